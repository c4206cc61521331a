// Package store persists listings, offers, showings, valuations and
// comparable sales behind a single interface with Postgres and SQLite
// implementations.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/model"
)

// Store defines the persistence interface for the marketplace.
type Store interface {
	// Listings
	CreateListing(ctx context.Context, l *model.Listing) error
	GetListing(ctx context.Context, id string) (*model.Listing, error)
	UpdateListing(ctx context.Context, l *model.Listing) error
	UpdateListingStatus(ctx context.Context, id string, change model.StatusChange) error
	DeleteListing(ctx context.Context, id string) error
	SearchListings(ctx context.Context, filter model.ListingFilter) ([]model.Listing, error)
	IncrementCounter(ctx context.Context, id string, counter model.CounterKind) error
	ExpireListings(ctx context.Context, now time.Time) (int, error)

	// Valuations
	SaveValuation(ctx context.Context, v *model.Valuation) error
	LatestValuation(ctx context.Context, listingID string) (*model.Valuation, error)
	SaveComparables(ctx context.Context, listingID string, comps []model.ComparableSale) (int, error)
	ListComparables(ctx context.Context, listingID string) ([]model.ComparableSale, error)

	// Offers
	CreateOffer(ctx context.Context, o *model.Offer) error
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	ListOffers(ctx context.Context, filter model.OfferFilter) ([]model.Offer, error)
	UpdateOfferStatus(ctx context.Context, id string, from, to model.OfferStatus) error
	ExpireOffers(ctx context.Context, now time.Time) (int, error)

	// Showings
	CreateShowing(ctx context.Context, s *model.ShowingRequest) error
	GetShowing(ctx context.Context, id string) (*model.ShowingRequest, error)
	ListShowings(ctx context.Context, listingID string) ([]model.ShowingRequest, error)
	UpdateShowingStatus(ctx context.Context, id string, status model.ShowingStatus) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultLimit = 100

const listingColumns = `id, seller_id, street, unit, city, state, zip_code, property_type,
	bedrooms, bathrooms, sqft, lot_size_sqft, year_built, headline, description, list_price,
	ai_estimated_value, ai_value_low, ai_value_high, ai_confidence_score, valued_at,
	status, view_count, save_count, inquiry_count, published_at, expires_at, created_at, updated_at`

const offerColumns = `id, listing_id, buyer_id, offer_price, financing_type,
	inspection_contingency, financing_contingency, appraisal_contingency, earnest_money,
	closing_date, message, ai_strength_score, ai_analysis, status, expires_at, created_at, updated_at`

const showingColumns = `id, listing_id, buyer_id, requested_at, message, status, created_at, updated_at`

const comparableColumns = `listing_id, address, price, sqft, bedrooms, bathrooms, distance_miles, days_old, sold_date`

type scannable interface {
	Scan(dest ...any) error
}

func listingArgs(l *model.Listing) []any {
	return []any{
		l.ID, l.SellerID, l.Street, l.Unit, l.City, l.State, l.ZipCode, l.PropertyType,
		l.Bedrooms, l.Bathrooms, l.Sqft, l.LotSizeSqft, l.YearBuilt, l.Headline, l.Description, l.ListPrice,
		l.AIEstimatedValue, l.AIValueLow, l.AIValueHigh, l.AIConfidenceScore, l.ValuedAt,
		string(l.Status), l.ViewCount, l.SaveCount, l.InquiryCount, l.PublishedAt, l.ExpiresAt, l.CreatedAt, l.UpdatedAt,
	}
}

func scanListing(row scannable) (*model.Listing, error) {
	var l model.Listing
	err := row.Scan(
		&l.ID, &l.SellerID, &l.Street, &l.Unit, &l.City, &l.State, &l.ZipCode, &l.PropertyType,
		&l.Bedrooms, &l.Bathrooms, &l.Sqft, &l.LotSizeSqft, &l.YearBuilt, &l.Headline, &l.Description, &l.ListPrice,
		&l.AIEstimatedValue, &l.AIValueLow, &l.AIValueHigh, &l.AIConfidenceScore, &l.ValuedAt,
		&l.Status, &l.ViewCount, &l.SaveCount, &l.InquiryCount, &l.PublishedAt, &l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func offerArgs(o *model.Offer) []any {
	var analysis any
	if len(o.AIAnalysis) > 0 {
		analysis = string(o.AIAnalysis)
	}
	return []any{
		o.ID, o.ListingID, o.BuyerID, o.OfferPrice, string(o.FinancingType),
		o.InspectionContingency, o.FinancingContingency, o.AppraisalContingency, o.EarnestMoney,
		o.ClosingDate, o.Message, o.AIStrengthScore, analysis, string(o.Status), o.ExpiresAt, o.CreatedAt, o.UpdatedAt,
	}
}

func scanOffer(row scannable) (*model.Offer, error) {
	var o model.Offer
	var analysis *string
	err := row.Scan(
		&o.ID, &o.ListingID, &o.BuyerID, &o.OfferPrice, &o.FinancingType,
		&o.InspectionContingency, &o.FinancingContingency, &o.AppraisalContingency, &o.EarnestMoney,
		&o.ClosingDate, &o.Message, &o.AIStrengthScore, &analysis, &o.Status, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if analysis != nil {
		o.AIAnalysis = []byte(*analysis)
	}
	return &o, nil
}

func scanShowing(row scannable) (*model.ShowingRequest, error) {
	var s model.ShowingRequest
	err := row.Scan(&s.ID, &s.ListingID, &s.BuyerID, &s.RequestedAt, &s.Message, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func comparableRow(listingID string, c model.ComparableSale) []any {
	return []any{listingID, c.Address, c.Price, c.Sqft, c.Bedrooms, c.Bathrooms, c.DistanceMiles, c.DaysOld, c.SoldDate}
}

// uniqueComparables drops comps without an address and keeps the last comp
// for each repeated address, in first-seen order.
func uniqueComparables(comps []model.ComparableSale) []model.ComparableSale {
	at := make(map[string]int, len(comps))
	out := make([]model.ComparableSale, 0, len(comps))
	for _, c := range comps {
		if c.Address == "" {
			continue
		}
		if i, ok := at[c.Address]; ok {
			out[i] = c
			continue
		}
		at[c.Address] = len(out)
		out = append(out, c)
	}
	return out
}

func scanComparable(row scannable) (*model.ComparableSale, error) {
	var c model.ComparableSale
	err := row.Scan(&c.ListingID, &c.Address, &c.Price, &c.Sqft, &c.Bedrooms, &c.Bathrooms, &c.DistanceMiles, &c.DaysOld, &c.SoldDate)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// placeholder renders the nth (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func dollar(n int) string   { return fmt.Sprintf("$%d", n) }
func question(_ int) string { return "?" }

// listingWhere builds the WHERE clause and args for a listing search.
func listingWhere(f model.ListingFilter, ph placeholder) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", ph(len(args))))
	}

	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.SellerID != "" {
		add("seller_id = ?", f.SellerID)
	}
	if f.City != "" {
		add("LOWER(city) = LOWER(?)", f.City)
	}
	if f.ZipCode != "" {
		add("zip_code = ?", f.ZipCode)
	}
	if f.MinPrice > 0 {
		add("list_price >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("list_price <= ?", f.MaxPrice)
	}
	if f.MinBeds > 0 {
		add("bedrooms >= ?", f.MinBeds)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// offerWhere builds the WHERE clause and args for an offer listing.
func offerWhere(f model.OfferFilter, ph placeholder) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", ph(len(args))))
	}

	if f.ListingID != "" {
		add("listing_id = ?", f.ListingID)
	}
	if f.BuyerID != "" {
		add("buyer_id = ?", f.BuyerID)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func limitOf(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	return n
}

func notFound(entity, id string) error {
	return eris.Wrapf(model.ErrNotFound, "%s %s", entity, id)
}

// staleStatus reports a guarded write that matched no row because the
// stored status moved on from the one the caller read.
func staleStatus(sentinel error, entity, id, current, expected string) error {
	return eris.Wrapf(sentinel, "%s %s is %s, expected %s", entity, id, current, expected)
}

func counterColumn(c model.CounterKind) (string, error) {
	if !c.Valid() {
		return "", eris.Errorf("store: unknown counter %q", c)
	}
	return string(c), nil
}
