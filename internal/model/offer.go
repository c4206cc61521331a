package model

import (
	"encoding/json"
	"time"
)

// FinancingType is how the buyer intends to pay.
type FinancingType string

const (
	FinancingCash         FinancingType = "cash"
	FinancingConventional FinancingType = "conventional"
	FinancingFHA          FinancingType = "fha"
	FinancingVA           FinancingType = "va"
	FinancingOther        FinancingType = "other"
)

// OfferStatus represents the state of a purchase offer.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusWithdrawn OfferStatus = "withdrawn"
	OfferStatusExpired   OfferStatus = "expired"
)

// Open reports whether the offer can still be acted on.
func (s OfferStatus) Open() bool {
	return s == OfferStatusPending || s == OfferStatusCountered
}

// Offer is a buyer's purchase offer on a listing. AIStrengthScore and
// AIAnalysis are computed once at submission and never recomputed.
type Offer struct {
	ID                    string          `json:"id"`
	ListingID             string          `json:"listing_id"`
	BuyerID               string          `json:"buyer_id"`
	OfferPrice            float64         `json:"offer_price"`
	FinancingType         FinancingType   `json:"financing_type"`
	InspectionContingency bool            `json:"inspection_contingency"`
	FinancingContingency  bool            `json:"financing_contingency"`
	AppraisalContingency  bool            `json:"appraisal_contingency"`
	EarnestMoney          float64         `json:"earnest_money"`
	ClosingDate           *time.Time      `json:"closing_date,omitempty"`
	Message               string          `json:"message,omitempty"`
	AIStrengthScore       int             `json:"ai_strength_score"`
	AIAnalysis            json.RawMessage `json:"ai_analysis,omitempty"`
	Status                OfferStatus     `json:"status"`
	ExpiresAt             time.Time       `json:"expires_at"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// OfferFilter specifies criteria for listing offers.
type OfferFilter struct {
	ListingID string      `json:"listing_id,omitempty"`
	BuyerID   string      `json:"buyer_id,omitempty"`
	Status    OfferStatus `json:"status,omitempty"`
	Limit     int         `json:"limit,omitempty"`
}
