// Package offer scores buyer offers and manages their lifecycle.
package offer

import (
	"math"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/rules"
)

// Input holds the immutable offer terms the score is computed from.
type Input struct {
	OfferPrice            float64             `json:"offer_price"`
	ListingPrice          float64             `json:"listing_price"`
	EarnestMoney          float64             `json:"earnest_money"`
	Financing             model.FinancingType `json:"financing_type"`
	InspectionContingency bool                `json:"inspection_contingency"`
	FinancingContingency  bool                `json:"financing_contingency"`
	AppraisalContingency  bool                `json:"appraisal_contingency"`
}

// Factor is one contribution to the score.
type Factor struct {
	Name  string  `json:"name"`
	Delta float64 `json:"delta"`
}

// Assessment is the scored offer. It is stored as the offer's analysis.
type Assessment struct {
	Score          int      `json:"score"`
	Recommendation string   `json:"recommendation"`
	PriceRatio     float64  `json:"price_ratio"`
	Factors        []Factor `json:"factors"`
}

// Scorer computes offer strength from a rule set.
type Scorer struct {
	rules rules.OfferRules
}

// NewScorer returns a Scorer using r.
func NewScorer(r rules.OfferRules) *Scorer {
	return &Scorer{rules: r}
}

// Score rates an offer from 0 to 100.
func (s *Scorer) Score(in Input) Assessment {
	r := s.rules
	total := r.Base
	var factors []Factor
	add := func(name string, d float64) {
		if d == 0 {
			return
		}
		total += d
		factors = append(factors, Factor{Name: name, Delta: d})
	}

	var ratio float64
	if in.ListingPrice > 0 {
		ratio = in.OfferPrice / in.ListingPrice
		if d, ok := r.PriceRatio.Apply(ratio); ok {
			add("price_ratio", d)
		}
	}

	add("financing_"+string(in.Financing), r.Financing[string(in.Financing)])

	if !in.InspectionContingency {
		add("no_inspection_contingency", r.NoInspection)
	}
	if !in.FinancingContingency {
		add("no_financing_contingency", r.NoFinancing)
	}
	if !in.AppraisalContingency {
		add("no_appraisal_contingency", r.NoAppraisal)
	}

	if in.OfferPrice > 0 {
		if d, ok := r.EarnestRatio.Apply(in.EarnestMoney / in.OfferPrice); ok {
			add("earnest_money", d)
		}
	}

	score := int(math.Round(math.Min(r.Max, math.Max(r.Min, total))))
	if factors == nil {
		factors = []Factor{}
	}
	return Assessment{
		Score:          score,
		Recommendation: r.Recommendations.Label(float64(score)),
		PriceRatio:     ratio,
		Factors:        factors,
	}
}
