package catalog

import (
	"strconv"
	"strings"

	"shopmetrics-catalog/internal/models"
	"shopmetrics-catalog/pkg/utils"
)

// PlaceholderImage is served when a record carries no usable image URL.
const PlaceholderImage = "/api/placeholder/200/200"

const (
	defaultTitle    = "Unnamed Product"
	defaultCategory = "uncategorized"
)

// Normalize resolves one loosely shaped upstream record into a canonical
// Product. Every field has an ordered fallback chain ending in a safe
// default, so this never fails regardless of the record's shape.
func Normalize(raw models.RawProduct) models.Product {
	p := models.Product{
		ASIN:      stringField(raw, "asin", "id"),
		Title:     defaultTitle,
		Category:  defaultCategory,
		Image:     PlaceholderImage,
		Available: true,
	}

	if title := stringField(raw, "title", "name", "product_name"); title != "" {
		p.Title = title
	}

	if category := stringField(raw, "category"); category != "" {
		p.Category = strings.ToLower(category)
	}

	if image := stringField(raw, "high_res_image_url", "image_url", "imageUrl", "image"); image != "" {
		p.Image = image
	}

	p.Discount = stringField(raw, "raw_discount", "discount")

	if price, ok := firstPresent(raw, "price", "raw_price"); ok {
		p.RawPrice = priceString(price)
		p.Price = utils.ParsePrice(price)
	}

	if avail, ok := raw["availability"].(bool); ok {
		p.Available = avail
	}

	return p
}

// NormalizeAll maps a raw collection in order. A nil collection yields an
// empty, non-nil slice.
func NormalizeAll(raws []models.RawProduct) []models.Product {
	products := make([]models.Product, 0, len(raws))
	for _, raw := range raws {
		products = append(products, Normalize(raw))
	}
	return products
}

// firstPresent applies the same absence rule as stringField: a blank or
// whitespace-only string does not stop the fallback chain.
func firstPresent(raw models.RawProduct, keys ...string) (any, bool) {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return value, true
	}
	return nil, false
}

func stringField(raw models.RawProduct, keys ...string) string {
	for _, key := range keys {
		if value, ok := raw[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// priceString keeps only digits and decimal points, leaving a plain
// numeric string like "1234.50" for display and re-parsing.
func priceString(value any) string {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case float64:
		raw = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		raw = strconv.Itoa(v)
	default:
		return ""
	}

	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
