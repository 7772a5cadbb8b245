package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmetrics-catalog/internal/models"
)

func entry(ts int, price, discount string) models.PriceHistoryEntry {
	return models.PriceHistoryEntry{
		Timestamp:   time.Date(2026, 1, ts, 0, 0, 0, 0, time.UTC),
		RawPrice:    price,
		RawDiscount: discount,
	}
}

func TestReconstructOrdersAndDerivesStats(t *testing.T) {
	// Deliberately unordered source log.
	entries := []models.PriceHistoryEntry{
		entry(2, "100", ""),
		entry(1, "100", ""),
		entry(3, "150", ""),
	}

	series := Reconstruct(entries)
	require.Len(t, series.Points, 3)

	assert.Equal(t, "2026-01-01T00:00:00Z", series.Points[0].Timestamp)
	assert.Equal(t, "2026-01-02T00:00:00Z", series.Points[1].Timestamp)
	assert.Equal(t, "2026-01-03T00:00:00Z", series.Points[2].Timestamp)

	assert.Equal(t, 150.0, series.Stats.Current)
	assert.Equal(t, 150.0, series.Stats.Max)
	assert.Equal(t, 100.0, series.Stats.Min)
	assert.InDelta(t, 116.67, series.Stats.Average, 0.01)

	// Only the t:3 entry changed price.
	assert.False(t, series.Points[0].ChangePoint)
	assert.False(t, series.Points[1].ChangePoint)
	assert.True(t, series.Points[2].ChangePoint)
	assert.Equal(t, 1, series.ChangePoints())
}

func TestReconstructEmptyLog(t *testing.T) {
	series := Reconstruct(nil)
	assert.Empty(t, series.Points)
	assert.Equal(t, Stats{}, series.Stats)
}

func TestReconstructInvalidPricesExcludedFromStats(t *testing.T) {
	entries := []models.PriceHistoryEntry{
		entry(1, "200", ""),
		entry(2, "unavailable", ""),
		entry(3, "100", ""),
	}

	series := Reconstruct(entries)
	require.Len(t, series.Points, 3)

	// The unparseable entry stays in the series for display.
	assert.False(t, series.Points[1].Valid)
	assert.Equal(t, "unavailable", series.Points[1].RawPrice)

	// But the statistics only see the two valid prices.
	assert.Equal(t, 100.0, series.Stats.Current)
	assert.Equal(t, 200.0, series.Stats.Max)
	assert.Equal(t, 100.0, series.Stats.Min)
	assert.Equal(t, 150.0, series.Stats.Average)
}

func TestReconstructAllInvalid(t *testing.T) {
	entries := []models.PriceHistoryEntry{
		entry(1, "", ""),
		entry(2, "n/a", ""),
	}

	series := Reconstruct(entries)
	assert.Equal(t, Stats{}, series.Stats)
	assert.Empty(t, series.ValidPrices())
}

func TestChangePointOnDiscountOnly(t *testing.T) {
	entries := []models.PriceHistoryEntry{
		entry(1, "100", "-10%"),
		entry(2, "100", "-20%"),
		entry(3, "100", "-20%"),
	}

	series := Reconstruct(entries)
	assert.False(t, series.Points[0].ChangePoint)
	assert.True(t, series.Points[1].ChangePoint)
	assert.False(t, series.Points[2].ChangePoint)
}

func TestValidPrices(t *testing.T) {
	entries := []models.PriceHistoryEntry{
		entry(2, "150", ""),
		entry(1, "100", ""),
		entry(3, "x", ""),
	}

	assert.Equal(t, []float64{100, 150}, Reconstruct(entries).ValidPrices())
}

func tracked(asin string, prices ...string) TrackedProduct {
	entries := make([]models.PriceHistoryEntry, 0, len(prices))
	for i, price := range prices {
		entries = append(entries, entry(i+1, price, ""))
	}
	return TrackedProduct{
		Product: models.Product{ASIN: asin},
		Series:  Reconstruct(entries),
	}
}

func TestRankTrending(t *testing.T) {
	products := []TrackedProduct{
		tracked("steady", "100", "100", "100"),
		tracked("busy", "100", "110", "120", "130"),
		tracked("calm", "100", "105"),
	}

	ranked := RankTrending(products, 10)
	require.Len(t, ranked, 2)
	assert.Equal(t, "busy", ranked[0].Product.ASIN)
	assert.Equal(t, 3, ranked[0].PriceMoves)
	assert.Equal(t, "calm", ranked[1].Product.ASIN)
}

func TestRankDeals(t *testing.T) {
	products := []TrackedProduct{
		tracked("rising", "100", "120"),
		tracked("small-drop", "100", "95"),
		tracked("big-drop", "200", "100"),
		tracked("single", "100"),
	}

	ranked := RankDeals(products, 10)
	require.Len(t, ranked, 2)
	assert.Equal(t, "big-drop", ranked[0].Product.ASIN)
	assert.InDelta(t, 50.0, ranked[0].CurrentDrop, 0.01)
	assert.Equal(t, "small-drop", ranked[1].Product.ASIN)

	// Limit clips the tail.
	assert.Len(t, RankDeals(products, 1), 1)
}
