package history

import (
	"sort"
	"time"

	"shopmetrics-catalog/internal/models"
	"shopmetrics-catalog/pkg/utils"
)

// Point is one history entry after reconstruction: chronological position,
// parsed price, and whether this entry changed price or discount compared
// with its predecessor.
type Point struct {
	Timestamp   string  `json:"timestamp"`
	RawPrice    string  `json:"raw_price"`
	RawDiscount string  `json:"raw_discount,omitempty"`
	Price       float64 `json:"price"`
	Valid       bool    `json:"valid"`
	ChangePoint bool    `json:"change_point"`
}

// Stats summarizes the valid (price > 0) points of a series. Everything is
// 0 when no valid points exist; that is a normal state, not an error.
type Stats struct {
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Average float64 `json:"average"`
}

// Series is the chronologically ascending price history of one product.
type Series struct {
	Points []Point `json:"points"`
	Stats  Stats   `json:"stats"`
}

// ChangePoints counts entries where price or discount moved.
func (s Series) ChangePoints() int {
	count := 0
	for _, point := range s.Points {
		if point.ChangePoint {
			count++
		}
	}
	return count
}

// Reconstruct turns an unordered history log into an ascending series with
// summary statistics. The source order is never trusted: entries are
// sorted by timestamp before anything is derived. Entries whose price does
// not parse stay in the series for display but are excluded from the
// statistics. An entry is a change point when its raw price or raw
// discount differs from the immediately preceding entry; the first entry
// never is.
func Reconstruct(entries []models.PriceHistoryEntry) Series {
	ordered := append([]models.PriceHistoryEntry(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	series := Series{Points: make([]Point, 0, len(ordered))}

	var stats Stats
	validCount := 0
	sum := 0.0

	for i, entry := range ordered {
		price := utils.ParsePrice(entry.RawPrice)
		point := Point{
			Timestamp:   entry.Timestamp.Format(time.RFC3339),
			RawPrice:    entry.RawPrice,
			RawDiscount: entry.RawDiscount,
			Price:       price,
			Valid:       price > 0,
		}
		if i > 0 {
			prev := ordered[i-1]
			point.ChangePoint = entry.RawPrice != prev.RawPrice || entry.RawDiscount != prev.RawDiscount
		}

		if point.Valid {
			validCount++
			sum += price
			stats.Current = price
			if price > stats.Max {
				stats.Max = price
			}
			if stats.Min == 0 || price < stats.Min {
				stats.Min = price
			}
		}

		series.Points = append(series.Points, point)
	}

	if validCount > 0 {
		stats.Average = sum / float64(validCount)
	}
	series.Stats = stats

	return series
}

// ValidPrices returns the chronological prices of the valid points,
// ready for forecasting.
func (s Series) ValidPrices() []float64 {
	prices := make([]float64, 0, len(s.Points))
	for _, point := range s.Points {
		if point.Valid {
			prices = append(prices, point.Price)
		}
	}
	return prices
}
