// Package rules centralizes the weights, thresholds and labels used by the
// valuation blender, offer scorer and market classifier.
package rules

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Op is the comparison a ladder rung applies to its input.
type Op string

const (
	OpGTE Op = "gte"
	OpGT  Op = "gt"
	OpLTE Op = "lte"
	OpLT  Op = "lt"
)

func (o Op) valid() bool {
	switch o {
	case OpGTE, OpGT, OpLTE, OpLT:
		return true
	}
	return false
}

// Rung is one step of a ladder: if the input compares true against
// Threshold, Delta applies.
type Rung struct {
	Op        Op      `yaml:"op" json:"op"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Delta     float64 `yaml:"delta" json:"delta"`
}

// Matches reports whether v satisfies the rung.
func (r Rung) Matches(v float64) bool {
	switch r.Op {
	case OpGTE:
		return v >= r.Threshold
	case OpGT:
		return v > r.Threshold
	case OpLTE:
		return v <= r.Threshold
	case OpLT:
		return v < r.Threshold
	}
	return false
}

// Ladder is an ordered, mutually exclusive set of rungs. The first match wins.
type Ladder []Rung

// Apply returns the delta of the first matching rung and whether any matched.
func (l Ladder) Apply(v float64) (float64, bool) {
	for _, r := range l {
		if r.Matches(v) {
			return r.Delta, true
		}
	}
	return 0, false
}

// Bucket maps scores at or above Min to Label.
type Bucket struct {
	Min   float64 `yaml:"min" json:"min"`
	Label string  `yaml:"label" json:"label"`
}

// Buckets are evaluated top-down; the last bucket is the catch-all.
type Buckets []Bucket

// Label returns the label of the first bucket whose Min is <= score.
// Scores below every bucket get the last bucket's label.
func (b Buckets) Label(score float64) string {
	for _, bk := range b {
		if score >= bk.Min {
			return bk.Label
		}
	}
	if len(b) == 0 {
		return ""
	}
	return b[len(b)-1].Label
}

// ValuationRules configures the value-estimate blend.
type ValuationRules struct {
	DirectWeight          float64         `yaml:"direct_weight" json:"direct_weight"`
	SecondaryWeight       float64         `yaml:"secondary_weight" json:"secondary_weight"`
	ComparablesWeight     float64         `yaml:"comparables_weight" json:"comparables_weight"`
	TaxAssessedWeight     float64         `yaml:"tax_assessed_weight" json:"tax_assessed_weight"`
	TaxAssessedMultiplier float64         `yaml:"tax_assessed_multiplier" json:"tax_assessed_multiplier"`
	RoundTo               float64         `yaml:"round_to" json:"round_to"`
	RangeFraction         float64         `yaml:"range_fraction" json:"range_fraction"`
	Confidence            ConfidenceRules `yaml:"confidence" json:"confidence"`
}

// ConfidenceRules configures the additive confidence score of a blend.
type ConfidenceRules struct {
	Base             int `yaml:"base" json:"base"`
	ThreeSources     int `yaml:"three_sources" json:"three_sources"`
	TwoSources       int `yaml:"two_sources" json:"two_sources"`
	ThreeComparables int `yaml:"three_comparables" json:"three_comparables"`
	Secondary        int `yaml:"secondary" json:"secondary"`
	TaxAssessed      int `yaml:"tax_assessed" json:"tax_assessed"`
	Max              int `yaml:"max" json:"max"`
}

// OfferRules configures offer strength scoring.
type OfferRules struct {
	Base            float64            `yaml:"base" json:"base"`
	PriceRatio      Ladder             `yaml:"price_ratio" json:"price_ratio"`
	Financing       map[string]float64 `yaml:"financing" json:"financing"`
	NoInspection    float64            `yaml:"no_inspection_contingency" json:"no_inspection_contingency"`
	NoFinancing     float64            `yaml:"no_financing_contingency" json:"no_financing_contingency"`
	NoAppraisal     float64            `yaml:"no_appraisal_contingency" json:"no_appraisal_contingency"`
	EarnestRatio    Ladder             `yaml:"earnest_ratio" json:"earnest_ratio"`
	Min             float64            `yaml:"min" json:"min"`
	Max             float64            `yaml:"max" json:"max"`
	Recommendations Buckets            `yaml:"recommendations" json:"recommendations"`
}

// MarketRules configures market temperature classification.
type MarketRules struct {
	Base                   float64 `yaml:"base" json:"base"`
	DaysOnMarket           Ladder  `yaml:"days_on_market" json:"days_on_market"`
	PriceChangePercent     Ladder  `yaml:"price_change_percent" json:"price_change_percent"`
	ListToSaleRatio        Ladder  `yaml:"list_to_sale_ratio" json:"list_to_sale_ratio"`
	DefaultDaysOnMarket    float64 `yaml:"default_days_on_market" json:"default_days_on_market"`
	DefaultPriceChange     float64 `yaml:"default_price_change_percent" json:"default_price_change_percent"`
	DefaultListToSaleRatio float64 `yaml:"default_list_to_sale_ratio" json:"default_list_to_sale_ratio"`
	Clamp                  bool    `yaml:"clamp" json:"clamp"`
	Min                    float64 `yaml:"min" json:"min"`
	Max                    float64 `yaml:"max" json:"max"`
	Labels                 Buckets `yaml:"labels" json:"labels"`
}

// Rules is the full scoring rule set.
type Rules struct {
	Valuation ValuationRules `yaml:"valuation" json:"valuation"`
	Offer     OfferRules     `yaml:"offer" json:"offer"`
	Market    MarketRules    `yaml:"market" json:"market"`
}

// Recommendation texts for offer strength buckets.
const (
	RecommendStrong  = "Strong offer. Consider accepting or minor counter."
	RecommendGood    = "Good offer. Room for negotiation on price or terms."
	RecommendAverage = "Average offer. Consider countering with better terms."
	RecommendWeak    = "Weak offer. Significant gap from asking price."
)

// Default returns the canonical rule set.
func Default() Rules {
	return Rules{
		Valuation: ValuationRules{
			DirectWeight:          0.25,
			SecondaryWeight:       0.25,
			ComparablesWeight:     0.35,
			TaxAssessedWeight:     0.15,
			TaxAssessedMultiplier: 1.15,
			RoundTo:               1000,
			RangeFraction:         0.05,
			Confidence: ConfidenceRules{
				Base:             50,
				ThreeSources:     20,
				TwoSources:       10,
				ThreeComparables: 10,
				Secondary:        5,
				TaxAssessed:      5,
				Max:              98,
			},
		},
		Offer: OfferRules{
			Base: 50,
			PriceRatio: Ladder{
				{Op: OpGTE, Threshold: 1.05, Delta: 25},
				{Op: OpGTE, Threshold: 1.00, Delta: 20},
				{Op: OpGTE, Threshold: 0.97, Delta: 10},
				{Op: OpGTE, Threshold: 0.95, Delta: 5},
				{Op: OpLT, Threshold: 0.90, Delta: -15},
			},
			Financing: map[string]float64{
				"cash":         15,
				"conventional": 5,
			},
			NoInspection: 5,
			NoFinancing:  5,
			NoAppraisal:  5,
			EarnestRatio: Ladder{
				{Op: OpGTE, Threshold: 0.03, Delta: 5},
				{Op: OpGTE, Threshold: 0.02, Delta: 3},
			},
			Min: 0,
			Max: 100,
			Recommendations: Buckets{
				{Min: 80, Label: RecommendStrong},
				{Min: 60, Label: RecommendGood},
				{Min: 40, Label: RecommendAverage},
				{Min: 0, Label: RecommendWeak},
			},
		},
		Market: MarketRules{
			Base: 50,
			DaysOnMarket: Ladder{
				{Op: OpLT, Threshold: 14, Delta: 20},
				{Op: OpLT, Threshold: 21, Delta: 15},
				{Op: OpLT, Threshold: 30, Delta: 10},
				{Op: OpGT, Threshold: 60, Delta: -15},
				{Op: OpGT, Threshold: 45, Delta: -10},
			},
			PriceChangePercent: Ladder{
				{Op: OpGT, Threshold: 10, Delta: 20},
				{Op: OpGT, Threshold: 5, Delta: 15},
				{Op: OpGT, Threshold: 0, Delta: 5},
				{Op: OpLT, Threshold: -5, Delta: -15},
				{Op: OpLT, Threshold: 0, Delta: -5},
			},
			ListToSaleRatio: Ladder{
				{Op: OpGT, Threshold: 1.02, Delta: 15},
				{Op: OpGT, Threshold: 1.0, Delta: 10},
				{Op: OpLT, Threshold: 0.95, Delta: -10},
			},
			DefaultDaysOnMarket:    30,
			DefaultPriceChange:     0,
			DefaultListToSaleRatio: 0.97,
			Clamp:                  true,
			Min:                    0,
			Max:                    100,
			Labels: Buckets{
				{Min: 80, Label: "Very Hot"},
				{Min: 65, Label: "Hot"},
				{Min: 50, Label: "Warm"},
				{Min: 35, Label: "Balanced"},
				{Min: 0, Label: "Cool"},
			},
		},
	}
}

// LoadFile overlays the YAML rules file at path onto the defaults.
// Keys absent from the file keep their default values; ladders and bucket
// lists present in the file replace the defaults wholesale.
func LoadFile(path string) (Rules, error) {
	r := Default()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "rules: read %s", path)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, eris.Wrapf(err, "rules: parse %s", path)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate checks that a rule set is internally consistent.
func (r Rules) Validate() error {
	var errs []string

	v := r.Valuation
	weights := map[string]float64{
		"valuation.direct_weight":       v.DirectWeight,
		"valuation.secondary_weight":    v.SecondaryWeight,
		"valuation.comparables_weight":  v.ComparablesWeight,
		"valuation.tax_assessed_weight": v.TaxAssessedWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if v.DirectWeight+v.SecondaryWeight+v.ComparablesWeight+v.TaxAssessedWeight <= 0 {
		errs = append(errs, "valuation weights must sum to > 0")
	}
	if v.RoundTo <= 0 {
		errs = append(errs, "valuation.round_to must be > 0")
	}
	if v.RangeFraction < 0 || v.RangeFraction >= 1 {
		errs = append(errs, "valuation.range_fraction must be in [0, 1)")
	}
	if v.Confidence.Max < v.Confidence.Base {
		errs = append(errs, "valuation.confidence.max must be >= base")
	}

	if r.Offer.Max < r.Offer.Min {
		errs = append(errs, "offer.max must be >= offer.min")
	}
	errs = append(errs, checkLadder("offer.price_ratio", r.Offer.PriceRatio)...)
	errs = append(errs, checkLadder("offer.earnest_ratio", r.Offer.EarnestRatio)...)
	errs = append(errs, checkBuckets("offer.recommendations", r.Offer.Recommendations)...)

	errs = append(errs, checkLadder("market.days_on_market", r.Market.DaysOnMarket)...)
	errs = append(errs, checkLadder("market.price_change_percent", r.Market.PriceChangePercent)...)
	errs = append(errs, checkLadder("market.list_to_sale_ratio", r.Market.ListToSaleRatio)...)
	errs = append(errs, checkBuckets("market.labels", r.Market.Labels)...)
	if r.Market.Clamp && r.Market.Max < r.Market.Min {
		errs = append(errs, "market.max must be >= market.min")
	}

	if len(errs) > 0 {
		return eris.Errorf("rules: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func checkLadder(name string, l Ladder) []string {
	var errs []string
	for i, r := range l {
		if !r.Op.valid() {
			errs = append(errs, fmt.Sprintf("%s[%d]: unknown op %q", name, i, r.Op))
		}
	}
	return errs
}

func checkBuckets(name string, b Buckets) []string {
	if len(b) == 0 {
		return []string{name + " must not be empty"}
	}
	var errs []string
	for i := 1; i < len(b); i++ {
		if b[i].Min > b[i-1].Min {
			errs = append(errs, fmt.Sprintf("%s must be ordered by descending min", name))
			break
		}
	}
	return errs
}

// Hash returns a short SHA-256 of the rule set for logging which rules
// produced a stored score.
func (r Rules) Hash() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}
