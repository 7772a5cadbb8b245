package history

import (
	"sort"

	"shopmetrics-catalog/internal/models"
)

// TrackedProduct pairs a product with its reconstructed series for the
// ranking endpoints.
type TrackedProduct struct {
	Product models.Product `json:"product"`
	Series  Series         `json:"-"`
}

// RankedProduct is one entry of a trending or deals listing.
type RankedProduct struct {
	Product     models.Product `json:"product"`
	PriceMoves  int            `json:"price_moves"`
	CurrentDrop float64        `json:"current_drop_percent,omitempty"`
}

// RankTrending orders products by how often their tracked price moved,
// most volatile first. Products with no recorded movement are left out.
func RankTrending(tracked []TrackedProduct, limit int) []RankedProduct {
	ranked := make([]RankedProduct, 0, len(tracked))
	for _, t := range tracked {
		moves := t.Series.ChangePoints()
		if moves == 0 {
			continue
		}
		ranked = append(ranked, RankedProduct{Product: t.Product, PriceMoves: moves})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriceMoves > ranked[j].PriceMoves
	})

	return clip(ranked, limit)
}

// RankDeals picks products whose latest valid price sits below the
// previous one and orders them by percent drop. A product needs at least
// two valid points to qualify.
func RankDeals(tracked []TrackedProduct, limit int) []RankedProduct {
	ranked := make([]RankedProduct, 0, len(tracked))
	for _, t := range tracked {
		prices := t.Series.ValidPrices()
		if len(prices) < 2 {
			continue
		}
		latest := prices[len(prices)-1]
		previous := prices[len(prices)-2]
		if latest >= previous {
			continue
		}
		drop := (previous - latest) / previous * 100
		ranked = append(ranked, RankedProduct{
			Product:     t.Product,
			PriceMoves:  t.Series.ChangePoints(),
			CurrentDrop: drop,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CurrentDrop > ranked[j].CurrentDrop
	})

	return clip(ranked, limit)
}

func clip(ranked []RankedProduct, limit int) []RankedProduct {
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
