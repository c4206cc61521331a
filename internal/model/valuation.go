package model

import "time"

// EstimateSource names an independent value estimate fed into the blend.
type EstimateSource string

const (
	SourceDirect      EstimateSource = "direct"
	SourceSecondary   EstimateSource = "secondary"
	SourceComparables EstimateSource = "comparables"
	SourceTaxAssessed EstimateSource = "tax_assessed"
)

// ComparableSale is a recently sold property used as a pricing reference.
// Price and Sqft may be zero when the provider omitted them.
type ComparableSale struct {
	ListingID     string     `json:"listing_id,omitempty"`
	Address       string     `json:"address"`
	Price         float64    `json:"price"`
	Sqft          float64    `json:"sqft"`
	Bedrooms      int        `json:"bedrooms,omitempty"`
	Bathrooms     float64    `json:"bathrooms,omitempty"`
	DistanceMiles float64    `json:"distance_miles,omitempty"`
	DaysOld       int        `json:"days_old,omitempty"`
	SoldDate      *time.Time `json:"sold_date,omitempty"`
}

// Qualifies reports whether the comp carries both price and square footage.
func (c ComparableSale) Qualifies() bool {
	return c.Price > 0 && c.Sqft > 0
}

// MethodologyEntry records one source's contribution to a blended valuation.
type MethodologyEntry struct {
	Source           EstimateSource `json:"source"`
	Value            float64        `json:"value"`
	Weight           float64        `json:"weight"`
	NormalizedWeight float64        `json:"normalized_weight"`
}

// Valuation is a persisted blended value estimate for a listing.
type Valuation struct {
	ID              string             `json:"id"`
	ListingID       string             `json:"listing_id"`
	EstimatedValue  float64            `json:"estimated_value"`
	ValueLow        float64            `json:"value_low"`
	ValueHigh       float64            `json:"value_high"`
	ConfidenceScore int                `json:"confidence_score"`
	HasData         bool               `json:"has_data"`
	Methodology     []MethodologyEntry `json:"methodology"`
	RulesHash       string             `json:"rules_hash,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}
