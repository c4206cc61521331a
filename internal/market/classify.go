// Package market classifies local housing market temperature.
package market

import (
	"math"

	"github.com/sells-group/fsbo/internal/rules"
)

// Indicators are raw market statistics for a zip code. Nil fields fall back
// to neutral defaults.
type Indicators struct {
	DaysOnMarket       *float64 `json:"days_on_market"`
	PriceChangePercent *float64 `json:"price_change_percent"`
	ListToSaleRatio    *float64 `json:"list_to_sale_ratio"`
}

// Temperature is the classified market heat.
type Temperature struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// Classifier maps indicators to a temperature.
type Classifier struct {
	rules rules.MarketRules
}

// NewClassifier returns a Classifier using r.
func NewClassifier(r rules.MarketRules) *Classifier {
	return &Classifier{rules: r}
}

// Classify scores the indicators and labels the result.
func (c *Classifier) Classify(in Indicators) Temperature {
	r := c.rules
	score := r.Base

	if d, ok := r.DaysOnMarket.Apply(valueOr(in.DaysOnMarket, r.DefaultDaysOnMarket)); ok {
		score += d
	}
	if d, ok := r.PriceChangePercent.Apply(valueOr(in.PriceChangePercent, r.DefaultPriceChange)); ok {
		score += d
	}
	if d, ok := r.ListToSaleRatio.Apply(valueOr(in.ListToSaleRatio, r.DefaultListToSaleRatio)); ok {
		score += d
	}

	if r.Clamp {
		score = math.Min(r.Max, math.Max(r.Min, score))
	}
	score = math.Round(score)
	return Temperature{Score: int(score), Label: r.Labels.Label(score)}
}

func valueOr(p *float64, def float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return def
	}
	return *p
}
