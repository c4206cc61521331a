// Package model holds the marketplace domain types shared by the store,
// services and HTTP layer.
package model

import (
	"strings"
	"time"
)

// ListingStatus represents where a listing is in its lifecycle.
type ListingStatus string

const (
	ListingStatusDraft         ListingStatus = "draft"
	ListingStatusPendingReview ListingStatus = "pending_review"
	ListingStatusActive        ListingStatus = "active"
	ListingStatusUnderContract ListingStatus = "under_contract"
	ListingStatusSold          ListingStatus = "sold"
	ListingStatusWithdrawn     ListingStatus = "withdrawn"
	ListingStatusExpired       ListingStatus = "expired"
)

// listingTransitions lists the statuses reachable from each status.
var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingStatusDraft:         {ListingStatusPendingReview, ListingStatusWithdrawn},
	ListingStatusPendingReview: {ListingStatusActive, ListingStatusDraft, ListingStatusWithdrawn},
	ListingStatusActive:        {ListingStatusUnderContract, ListingStatusWithdrawn, ListingStatusExpired},
	ListingStatusUnderContract: {ListingStatusActive, ListingStatusSold, ListingStatusWithdrawn},
	ListingStatusWithdrawn:     {ListingStatusDraft},
	ListingStatusExpired:       {ListingStatusDraft, ListingStatusActive},
	ListingStatusSold:          nil,
}

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	_, ok := listingTransitions[s]
	return ok
}

// CanTransition reports whether a listing may move from s to next.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	for _, to := range listingTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// CounterKind names one of the system-incremented listing counters.
type CounterKind string

const (
	CounterViews     CounterKind = "view_count"
	CounterSaves     CounterKind = "save_count"
	CounterInquiries CounterKind = "inquiry_count"
)

// Valid reports whether c is a known counter column.
func (c CounterKind) Valid() bool {
	switch c {
	case CounterViews, CounterSaves, CounterInquiries:
		return true
	}
	return false
}

// Listing is a seller's property listing.
type Listing struct {
	ID           string `json:"id"`
	SellerID     string `json:"seller_id"`
	Street       string `json:"street"`
	Unit         string `json:"unit,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	PropertyType string `json:"property_type"`

	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   float64 `json:"bathrooms"`
	Sqft        int     `json:"sqft"`
	LotSizeSqft int     `json:"lot_size_sqft,omitempty"`
	YearBuilt   int     `json:"year_built,omitempty"`

	Headline    string   `json:"headline,omitempty"`
	Description string   `json:"description,omitempty"`
	ListPrice   *float64 `json:"list_price"`

	AIEstimatedValue  *float64   `json:"ai_estimated_value,omitempty"`
	AIValueLow        *float64   `json:"ai_value_low,omitempty"`
	AIValueHigh       *float64   `json:"ai_value_high,omitempty"`
	AIConfidenceScore *int       `json:"ai_confidence_score,omitempty"`
	ValuedAt          *time.Time `json:"valued_at,omitempty"`

	Status       ListingStatus `json:"status"`
	ViewCount    int           `json:"view_count"`
	SaveCount    int           `json:"save_count"`
	InquiryCount int           `json:"inquiry_count"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Address returns the single-line street address used by data providers.
func (l *Listing) Address() string {
	street := l.Street
	if l.Unit != "" {
		street += " " + l.Unit
	}
	parts := []string{street, l.City, strings.TrimSpace(l.State + " " + l.ZipCode)}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// Price returns the list price, or 0 when it has not been set.
func (l *Listing) Price() float64 {
	if l.ListPrice == nil {
		return 0
	}
	return *l.ListPrice
}

// CheckInvariants verifies the listing can hold its current status.
func (l *Listing) CheckInvariants() error {
	if !l.Status.Valid() {
		return ErrInvalidStatus
	}
	if l.Status != ListingStatusDraft && l.Price() <= 0 {
		return ErrListPriceRequired
	}
	return nil
}

// Public reports whether anyone may see the listing. Other statuses are
// visible to the seller only.
func (l *Listing) Public() bool {
	switch l.Status {
	case ListingStatusActive, ListingStatusUnderContract, ListingStatusSold:
		return true
	}
	return false
}

// Deletable reports whether business rules allow physically deleting the listing.
func (l *Listing) Deletable() bool {
	return l.Status != ListingStatusActive && l.Status != ListingStatusUnderContract
}

// Editable reports whether the seller may still change listing fields.
func (l *Listing) Editable() bool {
	switch l.Status {
	case ListingStatusDraft, ListingStatusPendingReview, ListingStatusActive:
		return true
	}
	return false
}

// StatusChange moves a listing from one status to another. It only applies
// while the stored status is still From. Nil timestamps leave the stored
// values unchanged.
type StatusChange struct {
	From        ListingStatus
	To          ListingStatus
	PublishedAt *time.Time
	ExpiresAt   *time.Time
}

// ListingFilter specifies criteria for searching listings.
type ListingFilter struct {
	Status   ListingStatus `json:"status,omitempty"`
	SellerID string        `json:"seller_id,omitempty"`
	City     string        `json:"city,omitempty"`
	ZipCode  string        `json:"zip_code,omitempty"`
	MinPrice float64       `json:"min_price,omitempty"`
	MaxPrice float64       `json:"max_price,omitempty"`
	MinBeds  int           `json:"min_beds,omitempty"`
	Limit    int           `json:"limit,omitempty"`
	Offset   int           `json:"offset,omitempty"`
}

// ListingPatch carries the seller-editable fields of a listing update.
// Nil fields are left unchanged.
type ListingPatch struct {
	Street       *string  `json:"street,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
	City         *string  `json:"city,omitempty"`
	State        *string  `json:"state,omitempty"`
	ZipCode      *string  `json:"zip_code,omitempty"`
	PropertyType *string  `json:"property_type,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *float64 `json:"bathrooms,omitempty"`
	Sqft         *int     `json:"sqft,omitempty"`
	LotSizeSqft  *int     `json:"lot_size_sqft,omitempty"`
	YearBuilt    *int     `json:"year_built,omitempty"`
	Headline     *string  `json:"headline,omitempty"`
	Description  *string  `json:"description,omitempty"`
	ListPrice    *float64 `json:"list_price,omitempty"`
}

// Apply copies the non-nil patch fields onto l.
func (p ListingPatch) Apply(l *Listing) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setStr(&l.Street, p.Street)
	setStr(&l.Unit, p.Unit)
	setStr(&l.City, p.City)
	setStr(&l.State, p.State)
	setStr(&l.ZipCode, p.ZipCode)
	setStr(&l.PropertyType, p.PropertyType)
	setStr(&l.Headline, p.Headline)
	setStr(&l.Description, p.Description)
	if p.Bedrooms != nil {
		l.Bedrooms = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		l.Bathrooms = *p.Bathrooms
	}
	if p.Sqft != nil {
		l.Sqft = *p.Sqft
	}
	if p.LotSizeSqft != nil {
		l.LotSizeSqft = *p.LotSizeSqft
	}
	if p.YearBuilt != nil {
		l.YearBuilt = *p.YearBuilt
	}
	if p.ListPrice != nil {
		v := *p.ListPrice
		l.ListPrice = &v
	}
}
