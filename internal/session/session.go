package session

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"shopmetrics-catalog/internal/catalog"
	"shopmetrics-catalog/internal/models"
	"shopmetrics-catalog/internal/search"
)

// Provider is the slice of the remote API a browse session consumes.
type Provider interface {
	ListProducts() ([]models.RawProduct, error)
	SearchProducts(query string) ([]models.RawProduct, error)
	Suggest(query string) ([]string, error)
}

// Browse owns one user's catalog state: the active collection, the filter
// state, and the suggestion box. The collection is replaced wholesale on
// load and on committed searches; views are always derived from the full
// current state, never cached.
//
// A single mutex covers all state. The only writers are request handlers
// and the autocomplete's debounce callback, so there is no contention to
// speak of; the lock just keeps reentrant event handling consistent.
type Browse struct {
	provider     Provider
	autocomplete *search.Autocomplete

	mu        sync.Mutex
	products  []models.Product
	filters   models.FilterState
	loadErr   string
	commitSeq uint64 // staleness ticket for collection replacements
}

func New(provider Provider, debounce time.Duration) *Browse {
	return &Browse{
		provider:     provider,
		autocomplete: search.NewAutocomplete(provider, debounce),
		filters:      models.NewFilterState(),
	}
}

// Load fetches the unfiltered catalog and makes it the active collection.
// A fetch failure leaves an empty but valid collection and a user-visible
// error; it is never fatal to the session.
func (b *Browse) Load() error {
	return b.replaceCollection("", b.provider.ListProducts)
}

// View computes the current page from the full filter state. If the
// filters shrank the result set below the current page, the page is
// clamped and the corrected value sticks in the session.
func (b *Browse) View() models.PagedView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return catalog.ComputeView(b.products, &b.filters)
}

// Filters returns a copy of the filter state.
func (b *Browse) Filters() models.FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cloneFiltersLocked()
}

// Error returns the user-visible message from the last failed fetch,
// empty when the last fetch succeeded.
func (b *Browse) Error() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadErr
}

// Categories lists the distinct normalized categories of the active
// collection, sorted.
func (b *Browse) Categories() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool)
	for _, product := range b.products {
		seen[product.Category] = true
	}

	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// SetPage moves to the requested page. Values below 1 snap to 1; values
// past the end are clamped by the next View call.
func (b *Browse) SetPage(page int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if page < 1 {
		page = 1
	}
	b.filters.CurrentPage = page
}

// SetSort switches the sort option. Unknown options fall back to newest.
// Changing the sort keeps the current page: the result set size does not
// change, only its order.
func (b *Browse) SetSort(option string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch option {
	case models.SortNewest, models.SortPriceHigh, models.SortPriceLow, models.SortDiscount:
		b.filters.SortOption = option
	default:
		b.filters.SortOption = models.SortNewest
	}
}

// SetPriceRange narrows the price filter and resets to the first page.
// The bounds are clamped into [0, ceiling] and swapped if inverted.
func (b *Browse) SetPriceRange(min, max float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ceiling := catalog.PriceCeiling(b.products)
	if min < 0 {
		min = 0
	}
	if max <= 0 || max > ceiling {
		max = ceiling
	}
	if min > max {
		min, max = max, min
	}

	b.filters.PriceRange = models.PriceRange{Min: min, Max: max}
	b.filters.CurrentPage = 1
}

// ToggleCategory adds or removes one category from the selection and
// resets to the first page. Comparison is case-folded.
func (b *Browse) ToggleCategory(category string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	folded := strings.ToLower(strings.TrimSpace(category))
	if folded == "" {
		return
	}
	if b.filters.SelectedCategories[folded] {
		delete(b.filters.SelectedCategories, folded)
	} else {
		b.filters.SelectedCategories[folded] = true
	}
	b.filters.CurrentPage = 1
}

// ClearFilters drops the category selection, restores the full price
// span, and returns to the first page. The committed search term stays.
func (b *Browse) ClearFilters() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.filters.SelectedCategories = make(map[string]bool)
	b.filters.PriceRange = models.PriceRange{Min: 0, Max: catalog.PriceCeiling(b.products)}
	b.filters.CurrentPage = 1
}

// Type feeds one keystroke to the suggestion box.
func (b *Browse) Type(query string) {
	b.autocomplete.Type(query)
}

// TypeAndWait feeds a keystroke and waits for its suggestion fetch to
// land or be superseded.
func (b *Browse) TypeAndWait(query string) search.Result {
	return b.autocomplete.TypeAndWait(query)
}

// Suggestions returns the current suggestion state.
func (b *Browse) Suggestions() search.State {
	return b.autocomplete.Snapshot()
}

// CommitSearch executes an explicit search: suggestions are cleared at
// once, the trimmed query replaces the active collection via the remote
// search endpoint (or the full listing when empty), the page resets to 1,
// and the term becomes part of the shareable session state. An in-flight
// suggestion fetch cannot override the committed term: the suggestion box
// was already reset past it.
func (b *Browse) CommitSearch(query string) error {
	b.autocomplete.Reset()

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return b.replaceCollection("", b.provider.ListProducts)
	}
	return b.replaceCollection(trimmed, func() ([]models.RawProduct, error) {
		return b.provider.SearchProducts(trimmed)
	})
}

// ClickSuggestion behaves like typing the suggestion verbatim and
// committing immediately.
func (b *Browse) ClickSuggestion(suggestion string) error {
	b.autocomplete.Type(suggestion)
	return b.CommitSearch(suggestion)
}

// Query encodes the shareable part of the session state: a link carrying
// these values reproduces the same search.
func (b *Browse) Query() url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()

	values := url.Values{}
	if b.filters.SearchTerm != "" {
		values.Set("q", b.filters.SearchTerm)
	}
	return values
}

// ApplyQuery restores shared state from URL values. A differing search
// term is committed as if the user had searched it.
func (b *Browse) ApplyQuery(values url.Values) error {
	term := strings.TrimSpace(values.Get("q"))

	b.mu.Lock()
	current := b.filters.SearchTerm
	b.mu.Unlock()

	if term == current {
		return nil
	}
	return b.CommitSearch(term)
}

// replaceCollection fetches a new raw collection and swaps it in. Each
// replacement takes a ticket; a slower fetch that finishes after a newer
// one began is discarded, so the collection always reflects the latest
// committed intent. On success the price ceiling is re-derived from the
// new collection and the active range resets to the full span.
func (b *Browse) replaceCollection(term string, fetch func() ([]models.RawProduct, error)) error {
	b.mu.Lock()
	b.commitSeq++
	ticket := b.commitSeq
	b.mu.Unlock()

	raws, err := fetch()

	b.mu.Lock()
	defer b.mu.Unlock()

	if ticket != b.commitSeq {
		return nil
	}

	b.filters.SearchTerm = term
	b.filters.CurrentPage = 1

	if err != nil {
		b.products = []models.Product{}
		b.loadErr = "Failed to load products. Please try again later."
		b.filters.PriceRange = models.PriceRange{Min: 0, Max: models.DefaultPriceCeiling}
		return fmt.Errorf("loading collection: %w", err)
	}

	b.products = catalog.NormalizeAll(raws)
	b.loadErr = ""
	b.filters.PriceRange = models.PriceRange{Min: 0, Max: catalog.PriceCeiling(b.products)}
	return nil
}

func (b *Browse) cloneFiltersLocked() models.FilterState {
	out := b.filters
	out.SelectedCategories = make(map[string]bool, len(b.filters.SelectedCategories))
	for category := range b.filters.SelectedCategories {
		out.SelectedCategories[category] = true
	}
	return out
}
