package listing

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/validate"
)

// ShowingRequestInput is a buyer's request to tour a listing.
type ShowingRequestInput struct {
	RequestedAt time.Time `json:"requested_at" validate:"required"`
	Message     string    `json:"message,omitempty" validate:"max=1000"`
}

// RequestShowing books a showing request on an active listing.
func (s *Service) RequestShowing(ctx context.Context, buyerID, listingID string, in ShowingRequestInput) (*model.ShowingRequest, error) {
	if err := validate.Struct(ctx, in); err != nil {
		return nil, err
	}
	if !in.RequestedAt.After(s.now()) {
		return nil, validate.Field("requested_at", "must be in the future")
	}

	l, err := s.Get(ctx, listingID, false)
	if err != nil {
		return nil, err
	}
	if l.Status != model.ListingStatusActive {
		return nil, eris.Wrapf(model.ErrListingNotActive, "listing %s is %s", listingID, l.Status)
	}
	if l.SellerID == buyerID {
		return nil, eris.Wrap(model.ErrForbidden, "sellers cannot request showings of their own listing")
	}

	sr := &model.ShowingRequest{
		ListingID:   listingID,
		BuyerID:     buyerID,
		RequestedAt: in.RequestedAt.UTC(),
		Message:     strings.TrimSpace(in.Message),
		Status:      model.ShowingStatusRequested,
	}
	if err := s.store.CreateShowing(ctx, sr); err != nil {
		return nil, eris.Wrap(err, "listing: create showing")
	}
	if err := s.store.IncrementCounter(ctx, listingID, model.CounterInquiries); err != nil {
		zap.L().Warn("failed to count showing inquiry", zap.String("listing_id", listingID), zap.Error(err))
	}
	return sr, nil
}

// RespondShowing lets the seller confirm or decline a pending request.
func (s *Service) RespondShowing(ctx context.Context, sellerID, showingID string, status model.ShowingStatus) (*model.ShowingRequest, error) {
	if status != model.ShowingStatusConfirmed && status != model.ShowingStatusDeclined {
		return nil, validate.Field("status", "must be one of: confirmed, declined")
	}
	sr, err := s.store.GetShowing(ctx, showingID)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: get showing %s", showingID)
	}
	if _, err := s.Owned(ctx, sellerID, sr.ListingID); err != nil {
		return nil, err
	}
	if sr.Status != model.ShowingStatusRequested {
		return nil, eris.Wrapf(model.ErrInvalidTransition, "showing %s: %s -> %s", showingID, sr.Status, status)
	}
	if err := s.store.UpdateShowingStatus(ctx, showingID, status); err != nil {
		return nil, eris.Wrapf(err, "listing: respond showing %s", showingID)
	}
	sr.Status = status
	return sr, nil
}

// CancelShowing lets the buyer cancel a requested or confirmed showing.
func (s *Service) CancelShowing(ctx context.Context, buyerID, showingID string) (*model.ShowingRequest, error) {
	sr, err := s.store.GetShowing(ctx, showingID)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: get showing %s", showingID)
	}
	if sr.BuyerID != buyerID {
		return nil, eris.Wrapf(model.ErrForbidden, "showing %s", showingID)
	}
	if sr.Status != model.ShowingStatusRequested && sr.Status != model.ShowingStatusConfirmed {
		return nil, eris.Wrapf(model.ErrInvalidTransition, "showing %s: %s -> cancelled", showingID, sr.Status)
	}
	if err := s.store.UpdateShowingStatus(ctx, showingID, model.ShowingStatusCancelled); err != nil {
		return nil, eris.Wrapf(err, "listing: cancel showing %s", showingID)
	}
	sr.Status = model.ShowingStatusCancelled
	return sr, nil
}

// Showings lists a listing's showing requests. The seller sees all of them,
// anyone else only their own.
func (s *Service) Showings(ctx context.Context, userID, listingID string) ([]model.ShowingRequest, error) {
	l, err := s.Get(ctx, listingID, false)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListShowings(ctx, listingID)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: list showings %s", listingID)
	}
	out := make([]model.ShowingRequest, 0, len(all))
	for _, sr := range all {
		if l.SellerID == userID || sr.BuyerID == userID {
			out = append(out, sr)
		}
	}
	return out, nil
}
