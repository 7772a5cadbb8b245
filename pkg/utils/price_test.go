package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"rupee formatted", "₹1,234.50", 1234.5},
		{"dollar formatted", "$1,234.50", 1234.5},
		{"plain string", "1999", 1999},
		{"empty string", "", 0},
		{"no digits", "abc", 0},
		{"number input", float64(1999), 1999},
		{"int input", 1999, 1999},
		{"nil input", nil, 0},
		{"currency words", "Rs. 54,999.00", 54999},
		{"whitespace only", "   ", 0},
		{"negative number input", float64(-5), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrice(tt.input))
		})
	}
}

func TestParseDiscount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"percent label", "-23%", 23},
		{"save label", "Save 15%", 15},
		{"bare number", "40", 40},
		{"empty", "", 0},
		{"no digits", "deal", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDiscount(tt.input))
		})
	}
}
