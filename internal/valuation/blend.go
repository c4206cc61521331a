// Package valuation blends independent property value estimates into a single
// point estimate with a confidence score and a price range.
package valuation

import (
	"math"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/rules"
)

// Estimate is one externally sourced value for the subject property.
type Estimate struct {
	Source model.EstimateSource `json:"source"`
	Value  float64              `json:"value"`
}

// Input holds everything the blender needs for one property.
type Input struct {
	Estimates   []Estimate             `json:"estimates"`
	Comparables []model.ComparableSale `json:"comparables"`
	SubjectSqft float64                `json:"subject_sqft"`
	// Default is returned as the estimate and range when no source is usable.
	Default float64 `json:"default"`
}

// Result is the blended valuation.
type Result struct {
	EstimatedValue  float64                  `json:"estimated_value"`
	ValueLow        float64                  `json:"value_low"`
	ValueHigh       float64                  `json:"value_high"`
	ConfidenceScore int                      `json:"confidence_score"`
	HasData         bool                     `json:"has_data"`
	Methodology     []model.MethodologyEntry `json:"methodology"`
}

// Blender computes weighted valuations from a rule set.
type Blender struct {
	rules rules.ValuationRules
}

// NewBlender returns a Blender using r.
func NewBlender(r rules.ValuationRules) *Blender {
	return &Blender{rules: r}
}

// sourceOrder is the order methodology entries are reported in.
var sourceOrder = []model.EstimateSource{
	model.SourceDirect,
	model.SourceSecondary,
	model.SourceComparables,
	model.SourceTaxAssessed,
}

// Blend combines the available estimates. It never fails: with no usable
// source the result carries in.Default and HasData is false.
func (b *Blender) Blend(in Input) Result {
	values := make(map[model.EstimateSource]float64, len(sourceOrder))
	for _, e := range in.Estimates {
		if e.Source == model.SourceComparables {
			continue
		}
		if _, seen := values[e.Source]; seen || !usable(e.Value) {
			continue
		}
		if e.Source == model.SourceTaxAssessed {
			values[e.Source] = e.Value * b.rules.TaxAssessedMultiplier
			continue
		}
		values[e.Source] = e.Value
	}

	comps := qualifyingComps(in.Comparables)
	if v, ok := comparableValue(comps, in.SubjectSqft); ok {
		values[model.SourceComparables] = v
	}

	var totalWeight float64
	var entries []model.MethodologyEntry
	for _, src := range sourceOrder {
		v, ok := values[src]
		if !ok {
			continue
		}
		w := b.weight(src)
		if w <= 0 {
			continue
		}
		totalWeight += w
		entries = append(entries, model.MethodologyEntry{Source: src, Value: v, Weight: w})
	}

	if len(entries) == 0 || totalWeight <= 0 {
		return Result{
			EstimatedValue: in.Default,
			ValueLow:       in.Default,
			ValueHigh:      in.Default,
			Methodology:    []model.MethodologyEntry{},
		}
	}

	var blended float64
	for i := range entries {
		entries[i].NormalizedWeight = entries[i].Weight / totalWeight
		blended += entries[i].Value * entries[i].NormalizedWeight
	}

	est := roundTo(blended, b.rules.RoundTo)
	return Result{
		EstimatedValue:  est,
		ValueLow:        roundTo(est*(1-b.rules.RangeFraction), b.rules.RoundTo),
		ValueHigh:       roundTo(est*(1+b.rules.RangeFraction), b.rules.RoundTo),
		ConfidenceScore: b.confidence(entries, len(comps)),
		HasData:         true,
		Methodology:     entries,
	}
}

func (b *Blender) weight(src model.EstimateSource) float64 {
	switch src {
	case model.SourceDirect:
		return b.rules.DirectWeight
	case model.SourceSecondary:
		return b.rules.SecondaryWeight
	case model.SourceComparables:
		return b.rules.ComparablesWeight
	case model.SourceTaxAssessed:
		return b.rules.TaxAssessedWeight
	}
	return 0
}

func (b *Blender) confidence(entries []model.MethodologyEntry, qualifying int) int {
	c := b.rules.Confidence
	score := c.Base
	if len(entries) >= 3 {
		score += c.ThreeSources
	}
	if len(entries) >= 2 {
		score += c.TwoSources
	}
	if qualifying >= 3 {
		score += c.ThreeComparables
	}
	for _, e := range entries {
		switch e.Source {
		case model.SourceSecondary:
			score += c.Secondary
		case model.SourceTaxAssessed:
			score += c.TaxAssessed
		}
	}
	if score > c.Max {
		score = c.Max
	}
	return score
}

func qualifyingComps(comps []model.ComparableSale) []model.ComparableSale {
	out := make([]model.ComparableSale, 0, len(comps))
	for _, c := range comps {
		if c.Qualifies() && usable(c.Price) && usable(c.Sqft) {
			out = append(out, c)
		}
	}
	return out
}

// comparableValue prices the subject at the mean price per square foot of
// the qualifying comps, rounded to the nearest dollar.
func comparableValue(comps []model.ComparableSale, subjectSqft float64) (float64, bool) {
	if len(comps) == 0 || !usable(subjectSqft) {
		return 0, false
	}
	var sum float64
	for _, c := range comps {
		sum += c.Price / c.Sqft
	}
	return math.Round(sum / float64(len(comps)) * subjectSqft), true
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func roundTo(v, unit float64) float64 {
	return math.Round(v/unit) * unit
}
