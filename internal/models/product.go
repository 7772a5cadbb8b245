package models

import (
	"time"
)

const PageSize = 12

// Sort options understood by the catalog engine.
const (
	SortNewest    = "newest"
	SortPriceHigh = "price-high"
	SortPriceLow  = "price-low"
	SortDiscount  = "discount"
)

// Product is the canonical record after resolving the source-key fallbacks.
// Upstream feeds are loosely shaped, so every field here is already defaulted.
type Product struct {
	ASIN      string  `json:"asin"`
	Title     string  `json:"title"`
	RawPrice  string  `json:"raw_price"`
	Price     float64 `json:"price"`
	Category  string  `json:"category"`
	Image     string  `json:"image"`
	Discount  string  `json:"discount,omitempty"`
	Available bool    `json:"available"`
}

// RawProduct is one upstream record before normalization.
type RawProduct map[string]any

type PriceHistoryEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	RawPrice    string    `json:"raw_price"`
	RawDiscount string    `json:"raw_discount,omitempty"`
}

// ProductDetail is the single-product payload from upstream.
type ProductDetail struct {
	Product
	PriceHistory []PriceHistoryEntry `json:"price_history"`
}

// FilterState holds everything the engine reads when computing a view.
// It belongs to one browse session; the engine may write CurrentPage back
// when clamping.
type FilterState struct {
	SearchTerm         string          `json:"search_term"`
	SelectedCategories map[string]bool `json:"selected_categories,omitempty"`
	PriceRange         PriceRange      `json:"price_range"`
	SortOption         string          `json:"sort_option"`
	CurrentPage        int             `json:"current_page"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultPriceCeiling is used until a collection arrives and the real
// ceiling is derived from its maximum price.
const DefaultPriceCeiling = 200000

// NewFilterState returns the defaults a fresh session starts with.
func NewFilterState() FilterState {
	return FilterState{
		SelectedCategories: make(map[string]bool),
		PriceRange:         PriceRange{Min: 0, Max: DefaultPriceCeiling},
		SortOption:         SortNewest,
		CurrentPage:        1,
	}
}

// PagedView is one page of the filtered, sorted collection. It is derived
// on demand and never stored.
type PagedView struct {
	Items       []Product `json:"items"`
	TotalItems  int       `json:"total_items"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
