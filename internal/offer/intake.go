package offer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/store"
	"github.com/sells-group/fsbo/internal/validate"
)

const defaultExpiryHours = 72

// SubmitRequest is a buyer's offer as received from the client.
// Omitted contingencies default to kept.
type SubmitRequest struct {
	OfferPrice            float64    `json:"offer_price" validate:"required,gte=1"`
	FinancingType         string     `json:"financing_type" validate:"required,oneof=cash conventional fha va other"`
	EarnestMoney          float64    `json:"earnest_money" validate:"gte=0"`
	InspectionContingency *bool      `json:"inspection_contingency,omitempty"`
	FinancingContingency  *bool      `json:"financing_contingency,omitempty"`
	AppraisalContingency  *bool      `json:"appraisal_contingency,omitempty"`
	ClosingDate           *time.Time `json:"closing_date,omitempty"`
	Message               string     `json:"message,omitempty" validate:"max=2000"`
}

// ListingMover moves a listing between statuses on behalf of its seller.
type ListingMover interface {
	Transition(ctx context.Context, sellerID, id string, to model.ListingStatus) (*model.Listing, error)
}

// Intake accepts, scores and manages offers.
type Intake struct {
	store    store.Store
	scorer   *Scorer
	listings ListingMover
	expiry   time.Duration
	now      func() time.Time
}

// NewIntake creates an offer intake.
func NewIntake(st store.Store, scorer *Scorer, listings ListingMover, cfg config.OffersConfig) *Intake {
	hours := cfg.ExpiryHours
	if hours <= 0 {
		hours = defaultExpiryHours
	}
	return &Intake{
		store:    st,
		scorer:   scorer,
		listings: listings,
		expiry:   time.Duration(hours) * time.Hour,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Submit validates and scores a buyer's offer against the listing's current
// price and stores it as pending. The score is never recomputed.
func (in *Intake) Submit(ctx context.Context, buyerID, listingID string, req SubmitRequest) (*model.Offer, error) {
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}
	now := in.now()
	if req.ClosingDate != nil && !req.ClosingDate.After(now) {
		return nil, validate.Field("closing_date", "must be in the future")
	}

	l, err := in.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, eris.Wrapf(err, "offer: load listing %s", listingID)
	}
	if l.Status != model.ListingStatusActive {
		return nil, eris.Wrapf(model.ErrListingNotActive, "listing %s is %s", listingID, l.Status)
	}
	if l.SellerID == buyerID {
		return nil, eris.Wrap(model.ErrForbidden, "sellers cannot make offers on their own listing")
	}

	o := &model.Offer{
		ListingID:             listingID,
		BuyerID:               buyerID,
		OfferPrice:            req.OfferPrice,
		FinancingType:         model.FinancingType(req.FinancingType),
		InspectionContingency: boolOr(req.InspectionContingency, true),
		FinancingContingency:  boolOr(req.FinancingContingency, true),
		AppraisalContingency:  boolOr(req.AppraisalContingency, true),
		EarnestMoney:          req.EarnestMoney,
		ClosingDate:           req.ClosingDate,
		Message:               strings.TrimSpace(req.Message),
		Status:                model.OfferStatusPending,
		ExpiresAt:             now.Add(in.expiry),
		CreatedAt:             now,
	}

	a := in.scorer.Score(Input{
		OfferPrice:            o.OfferPrice,
		ListingPrice:          l.Price(),
		EarnestMoney:          o.EarnestMoney,
		Financing:             o.FinancingType,
		InspectionContingency: o.InspectionContingency,
		FinancingContingency:  o.FinancingContingency,
		AppraisalContingency:  o.AppraisalContingency,
	})
	analysis, err := json.Marshal(a)
	if err != nil {
		return nil, eris.Wrap(err, "offer: marshal analysis")
	}
	o.AIStrengthScore = a.Score
	o.AIAnalysis = analysis

	if err := in.store.CreateOffer(ctx, o); err != nil {
		return nil, eris.Wrap(err, "offer: create")
	}
	if err := in.store.IncrementCounter(ctx, listingID, model.CounterInquiries); err != nil {
		zap.L().Warn("failed to count offer inquiry", zap.String("listing_id", listingID), zap.Error(err))
	}

	zap.L().Info("offer submitted",
		zap.String("offer_id", o.ID),
		zap.String("listing_id", listingID),
		zap.Int("score", a.Score),
		zap.String("recommendation", a.Recommendation),
	)
	return o, nil
}

// sellerResponses lists the seller's allowed moves from each open status.
var sellerResponses = map[model.OfferStatus][]model.OfferStatus{
	model.OfferStatusPending:   {model.OfferStatusAccepted, model.OfferStatusRejected, model.OfferStatusCountered},
	model.OfferStatusCountered: {model.OfferStatusAccepted, model.OfferStatusRejected},
}

// Respond records the seller's answer to an offer. Accepting moves the
// listing under contract.
func (in *Intake) Respond(ctx context.Context, sellerID, offerID string, status model.OfferStatus) (*model.Offer, error) {
	switch status {
	case model.OfferStatusAccepted, model.OfferStatusRejected, model.OfferStatusCountered:
	default:
		return nil, validate.Field("status", "must be one of: accepted, rejected, countered")
	}

	o, err := in.open(ctx, offerID)
	if err != nil {
		return nil, err
	}
	l, err := in.store.GetListing(ctx, o.ListingID)
	if err != nil {
		return nil, eris.Wrapf(err, "offer: load listing %s", o.ListingID)
	}
	if l.SellerID != sellerID {
		return nil, eris.Wrapf(model.ErrForbidden, "offer %s", offerID)
	}

	allowed := false
	for _, s := range sellerResponses[o.Status] {
		if s == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, eris.Wrapf(model.ErrInvalidTransition, "offer %s: %s -> %s", offerID, o.Status, status)
	}

	// The offer is claimed first so a concurrent withdrawal or expiry wins
	// over the seller's answer.
	if err := in.store.UpdateOfferStatus(ctx, offerID, o.Status, status); err != nil {
		return nil, eris.Wrapf(err, "offer: respond %s", offerID)
	}
	if status == model.OfferStatusAccepted {
		if _, err := in.listings.Transition(ctx, sellerID, l.ID, model.ListingStatusUnderContract); err != nil {
			if rerr := in.store.UpdateOfferStatus(ctx, offerID, status, o.Status); rerr != nil {
				zap.L().Error("offer: reopen after failed accept",
					zap.String("offer_id", offerID), zap.Error(rerr))
			}
			return nil, eris.Wrapf(err, "offer: accept %s", offerID)
		}
	}

	zap.L().Info("offer status changed",
		zap.String("offer_id", offerID),
		zap.String("from", string(o.Status)),
		zap.String("to", string(status)),
	)
	o.Status = status
	return o, nil
}

// Withdraw lets the buyer pull an open offer.
func (in *Intake) Withdraw(ctx context.Context, buyerID, offerID string) (*model.Offer, error) {
	o, err := in.open(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, eris.Wrapf(model.ErrForbidden, "offer %s", offerID)
	}
	if err := in.store.UpdateOfferStatus(ctx, offerID, o.Status, model.OfferStatusWithdrawn); err != nil {
		return nil, eris.Wrapf(err, "offer: withdraw %s", offerID)
	}
	o.Status = model.OfferStatusWithdrawn
	return o, nil
}

// open loads an offer and fails with ErrOfferClosed unless it can still be
// acted on. Offers past their expiry count as closed even before the sweep.
func (in *Intake) open(ctx context.Context, offerID string) (*model.Offer, error) {
	o, err := in.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, eris.Wrapf(err, "offer: get %s", offerID)
	}
	if !o.Status.Open() {
		return nil, eris.Wrapf(model.ErrOfferClosed, "offer %s is %s", offerID, o.Status)
	}
	if !o.ExpiresAt.After(in.now()) {
		return nil, eris.Wrapf(model.ErrOfferClosed, "offer %s expired at %s", offerID, o.ExpiresAt.Format(time.RFC3339))
	}
	return o, nil
}

// List returns the offers on a listing visible to userID: all of them for
// the seller, only their own for a buyer.
func (in *Intake) List(ctx context.Context, userID, listingID string) ([]model.Offer, error) {
	l, err := in.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, eris.Wrapf(err, "offer: load listing %s", listingID)
	}
	filter := model.OfferFilter{ListingID: listingID}
	if l.SellerID != userID {
		filter.BuyerID = userID
	}
	out, err := in.store.ListOffers(ctx, filter)
	if err != nil {
		return nil, eris.Wrapf(err, "offer: list %s", listingID)
	}
	if out == nil {
		out = []model.Offer{}
	}
	return out, nil
}

// ExpireStale moves open offers past their expiry to expired.
func (in *Intake) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	n, err := in.store.ExpireOffers(ctx, now)
	if err != nil {
		return 0, eris.Wrap(err, "offer: expire stale")
	}
	if n > 0 {
		zap.L().Info("expired stale offers", zap.Int("count", n))
	}
	return n, nil
}
