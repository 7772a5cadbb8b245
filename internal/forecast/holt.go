package forecast

import (
	"fmt"
)

// Smoothing constants for Holt's linear trend. The history feeds are short
// and noisy, so the level reacts quickly and the trend is kept conservative.
const (
	alpha = 0.8
	beta  = 0.2

	// A forecast has to move at least this fraction away from the current
	// price before it counts as a real drop or increase.
	significance = 0.01
)

const (
	StatusDrop         = "drop"
	StatusIncrease     = "increase"
	StatusStable       = "stable"
	StatusInsufficient = "insufficient_history"
)

// Prediction is the outcome of forecasting one product's price series.
type Prediction struct {
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	CurrentPrice float64   `json:"current_price,omitempty"`
	ForecastLow  float64   `json:"forecast_low,omitempty"`
	ForecastHigh float64   `json:"forecast_high,omitempty"`
	DaysToMove   int       `json:"days_to_move,omitempty"`
	Forecast     []float64 `json:"forecast,omitempty"`
}

// Holt forecasts the next `days` prices with double exponential smoothing
// (level + trend) and classifies the movement against the last known
// price. Fewer than two valid points cannot seed a trend, so the result is
// an insufficient-history prediction rather than an error.
func Holt(prices []float64, days int) Prediction {
	if days < 1 {
		days = 1
	}
	if len(prices) < 2 {
		return Prediction{
			Status: StatusInsufficient,
			Message: fmt.Sprintf(
				"not enough price history for a forecast: %d data points, need at least 2", len(prices)),
		}
	}

	level := prices[0]
	trend := prices[1] - prices[0]
	for _, price := range prices[1:] {
		prevLevel := level
		level = alpha*price + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}

	current := prices[len(prices)-1]
	forecast := make([]float64, days)
	var low, high float64
	for i := range forecast {
		value := level + float64(i+1)*trend
		if value < 0 {
			value = 0
		}
		forecast[i] = value
		if i == 0 || value < low {
			low = value
		}
		if value > high {
			high = value
		}
	}

	prediction := Prediction{
		CurrentPrice: current,
		ForecastLow:  low,
		ForecastHigh: high,
		Forecast:     forecast,
	}

	dropBelow := current * (1 - significance)
	riseAbove := current * (1 + significance)

	if day := firstCrossing(forecast, dropBelow, false); day > 0 && current > 0 {
		prediction.Status = StatusDrop
		prediction.DaysToMove = day
		prediction.Message = fmt.Sprintf(
			"price drop anticipated: from %.2f down to %.2f within %d day(s)", current, low, day)
		return prediction
	}

	if day := firstCrossing(forecast, riseAbove, true); day > 0 {
		prediction.Status = StatusIncrease
		prediction.DaysToMove = day
		prediction.Message = fmt.Sprintf(
			"price increase anticipated: from %.2f up to %.2f within %d day(s)", current, high, day)
		return prediction
	}

	prediction.Status = StatusStable
	prediction.Message = fmt.Sprintf(
		"price expected to stay near %.2f over the next %d day(s)", current, days)
	return prediction
}

// firstCrossing returns the 1-based day on which the forecast first moves
// past the threshold, 0 if it never does.
func firstCrossing(forecast []float64, threshold float64, above bool) int {
	for i, value := range forecast {
		if above && value > threshold {
			return i + 1
		}
		if !above && value < threshold {
			return i + 1
		}
	}
	return 0
}
