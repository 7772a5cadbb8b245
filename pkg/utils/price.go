package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonPriceChars = regexp.MustCompile(`[^\d.]`)
	firstInteger  = regexp.MustCompile(`\d+`)
)

// ParsePrice converts a currency-formatted value to float64. Anything that
// is not a digit or a decimal point is stripped before parsing, so
// "₹1,234.50" and "$1,234.50" both come out as 1234.5. Unparseable input
// returns 0, which callers treat as "no usable price" rather than an error.
func ParsePrice(value any) float64 {
	var raw string
	switch v := value.(type) {
	case nil:
		return 0
	case string:
		raw = v
	case float64:
		if v < 0 {
			return 0
		}
		return v
	case int:
		if v < 0 {
			return 0
		}
		return float64(v)
	default:
		raw = fmt.Sprintf("%v", v)
	}

	clean := nonPriceChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if clean == "" {
		return 0
	}

	price, err := strconv.ParseFloat(clean, 64)
	if err != nil || price < 0 {
		return 0
	}

	return price
}

// ParseDiscount extracts the first integer substring from a discount label
// like "-23%" or "Save 15%". Absent or unparseable discounts count as 0.
func ParseDiscount(discountStr string) int {
	if discountStr == "" {
		return 0
	}

	match := firstInteger.FindString(discountStr)
	if match == "" {
		return 0
	}

	value, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}

	return value
}
