package catalog

import (
	"math"
	"sort"
	"strings"

	"shopmetrics-catalog/internal/models"
	"shopmetrics-catalog/pkg/utils"
)

// ComputeView runs the full filter -> sort -> paginate pipeline over the
// current collection and filter state. The order is fixed: filtering must
// happen before sorting, and sorting before the page slice. The engine
// never fails; an empty result is a valid view with one empty page.
//
// The collection is expected to be search-filtered upstream already, so no
// client-side substring filter is applied here (server-assisted mode).
//
// If the requested page falls outside the filtered page count, CurrentPage
// is clamped and written back into fs so callers observe the corrected page.
func ComputeView(products []models.Product, fs *models.FilterState) models.PagedView {
	filtered := applyCategoryFilter(products, fs.SelectedCategories)
	filtered = applyPriceFilter(filtered, fs.PriceRange)
	applySorting(filtered, fs.SortOption)

	totalPages := int(math.Ceil(float64(len(filtered)) / float64(models.PageSize)))
	if totalPages < 1 {
		totalPages = 1
	}

	page := fs.CurrentPage
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	fs.CurrentPage = page

	start := (page - 1) * models.PageSize
	end := start + models.PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	items := make([]models.Product, end-start)
	copy(items, filtered[start:end])

	return models.PagedView{
		Items:       items,
		TotalItems:  len(filtered),
		TotalPages:  totalPages,
		CurrentPage: page,
	}
}

// applyCategoryFilter keeps items whose category is in the selection. An
// empty selection means "all categories", not "no categories".
func applyCategoryFilter(products []models.Product, selected map[string]bool) []models.Product {
	if len(selected) == 0 {
		return append([]models.Product(nil), products...)
	}

	filtered := make([]models.Product, 0, len(products))
	for _, product := range products {
		if selected[strings.ToLower(product.Category)] {
			filtered = append(filtered, product)
		}
	}
	return filtered
}

// applyPriceFilter keeps items whose parsed price lies inside the range,
// bounds inclusive. Items with an unparseable price carry the sentinel 0,
// so they stay visible only while the lower bound is still 0 and drop out
// as soon as the user raises it.
func applyPriceFilter(products []models.Product, priceRange models.PriceRange) []models.Product {
	filtered := products[:0]
	for _, product := range products {
		if product.Price >= priceRange.Min && product.Price <= priceRange.Max {
			filtered = append(filtered, product)
		}
	}
	return filtered
}

// applySorting reorders in place. The sort is stable so equal keys keep
// their relative input order. "newest" leaves the upstream order alone:
// the feed already lists most recently tracked products first.
func applySorting(products []models.Product, sortOption string) {
	switch sortOption {
	case models.SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price > products[j].Price
		})
	case models.SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	case models.SortDiscount:
		sort.SliceStable(products, func(i, j int) bool {
			return utils.ParseDiscount(products[i].Discount) > utils.ParseDiscount(products[j].Discount)
		})
	case models.SortNewest:
	default:
	}
}

// PriceCeiling rounds the collection's highest price up to the nearest
// 1000 boundary, which becomes the slider maximum for the price filter.
// An empty or priceless collection falls back to the default ceiling.
func PriceCeiling(products []models.Product) float64 {
	highest := 0.0
	for _, product := range products {
		if product.Price > highest {
			highest = product.Price
		}
	}
	if highest == 0 {
		return models.DefaultPriceCeiling
	}
	return math.Ceil(highest/1000) * 1000
}
