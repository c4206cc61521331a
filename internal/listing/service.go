// Package listing manages the seller side of the marketplace: drafting a
// listing through the wizard, publishing and withdrawing it, buyer saves
// and showing requests.
package listing

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/store"
)

const defaultDurationDays = 180

// Service implements listing operations on top of a Store.
type Service struct {
	store    store.Store
	duration time.Duration
	now      func() time.Time
}

// NewService creates a listing service.
func NewService(st store.Store, cfg config.ListingsConfig) *Service {
	days := cfg.DurationDays
	if days <= 0 {
		days = defaultDurationDays
	}
	return &Service{
		store:    st,
		duration: time.Duration(days) * 24 * time.Hour,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new draft listing owned by sellerID.
func (s *Service) Create(ctx context.Context, sellerID string, patch model.ListingPatch) (*model.Listing, error) {
	if sellerID == "" {
		return nil, eris.Wrap(model.ErrForbidden, "listing: create requires a seller")
	}
	l := &model.Listing{SellerID: sellerID, Status: model.ListingStatusDraft}
	patch.Apply(l)

	if err := s.store.CreateListing(ctx, l); err != nil {
		return nil, eris.Wrap(err, "listing: create")
	}
	zap.L().Info("listing created", zap.String("listing_id", l.ID), zap.String("seller_id", sellerID))
	return l, nil
}

// Get loads a listing. When countView is set the view counter is bumped
// first so the returned listing includes the view.
func (s *Service) Get(ctx context.Context, id string, countView bool) (*model.Listing, error) {
	if countView {
		if err := s.store.IncrementCounter(ctx, id, model.CounterViews); err != nil {
			return nil, eris.Wrapf(err, "listing: count view %s", id)
		}
	}
	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: get %s", id)
	}
	return l, nil
}

// View loads a listing for viewerID, who may be empty for anonymous
// visitors. Non-public listings are reported as not found to anyone but the
// seller, and only other users' views are counted.
func (s *Service) View(ctx context.Context, viewerID, id string) (*model.Listing, error) {
	l, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if l.SellerID == viewerID {
		return l, nil
	}
	if !l.Public() {
		return nil, notFound(id)
	}
	if err := s.store.IncrementCounter(ctx, id, model.CounterViews); err != nil {
		zap.L().Warn("failed to count listing view", zap.String("listing_id", id), zap.Error(err))
		return l, nil
	}
	l.ViewCount++
	return l, nil
}

func notFound(id string) error {
	return eris.Wrapf(model.ErrNotFound, "listing %s", id)
}

// Owned loads a listing and checks it belongs to sellerID.
func (s *Service) Owned(ctx context.Context, sellerID, id string) (*model.Listing, error) {
	l, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if l.SellerID != sellerID {
		return nil, eris.Wrapf(model.ErrForbidden, "listing %s", id)
	}
	return l, nil
}

// Update applies seller edits. Only draft, pending_review and active
// listings are editable.
func (s *Service) Update(ctx context.Context, sellerID, id string, patch model.ListingPatch) (*model.Listing, error) {
	l, err := s.Owned(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}
	if !l.Editable() {
		return nil, eris.Wrapf(model.ErrNotEditable, "listing %s is %s", id, l.Status)
	}

	patch.Apply(l)
	if err := l.CheckInvariants(); err != nil {
		return nil, eris.Wrapf(err, "listing: update %s", id)
	}
	if err := s.store.UpdateListing(ctx, l); err != nil {
		return nil, eris.Wrapf(err, "listing: update %s", id)
	}
	return l, nil
}

// Transition moves a seller's listing to a new status.
func (s *Service) Transition(ctx context.Context, sellerID, id string, to model.ListingStatus) (*model.Listing, error) {
	l, err := s.Owned(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, l, to); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) apply(ctx context.Context, l *model.Listing, to model.ListingStatus) error {
	from := l.Status
	if !from.CanTransition(to) {
		return eris.Wrapf(model.ErrInvalidTransition, "listing %s: %s -> %s", l.ID, from, to)
	}

	l.Status = to
	if err := l.CheckInvariants(); err != nil {
		l.Status = from
		return eris.Wrapf(err, "listing %s: %s -> %s", l.ID, from, to)
	}
	l.Status = from

	change := model.StatusChange{From: from, To: to}
	if to == model.ListingStatusActive {
		now := s.now()
		expires := now.Add(s.duration)
		if l.PublishedAt == nil {
			change.PublishedAt = &now
		}
		change.ExpiresAt = &expires
	}

	if err := s.store.UpdateListingStatus(ctx, l.ID, change); err != nil {
		return eris.Wrapf(err, "listing: transition %s", l.ID)
	}
	l.Status = to
	if change.PublishedAt != nil {
		l.PublishedAt = change.PublishedAt
	}
	if change.ExpiresAt != nil {
		l.ExpiresAt = change.ExpiresAt
	}
	zap.L().Info("listing status changed",
		zap.String("listing_id", l.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

// Submit validates every wizard step and sends a draft for review.
func (s *Service) Submit(ctx context.Context, sellerID, id string) (*model.Listing, error) {
	l, err := s.Owned(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateAll(ctx, l); err != nil {
		return nil, err
	}
	if err := s.apply(ctx, l, model.ListingStatusPendingReview); err != nil {
		return nil, err
	}
	return l, nil
}

// CheckStep validates a single wizard step against the stored listing.
func (s *Service) CheckStep(ctx context.Context, sellerID, id string, step Step) error {
	l, err := s.Owned(ctx, sellerID, id)
	if err != nil {
		return err
	}
	return ValidateStep(ctx, step, l)
}

// Delete removes a listing unless it is active or under contract.
func (s *Service) Delete(ctx context.Context, sellerID, id string) error {
	l, err := s.Owned(ctx, sellerID, id)
	if err != nil {
		return err
	}
	if !l.Deletable() {
		return eris.Wrapf(model.ErrDeleteBlocked, "listing %s is %s", id, l.Status)
	}
	if err := s.store.DeleteListing(ctx, id); err != nil {
		return eris.Wrapf(err, "listing: delete %s", id)
	}
	zap.L().Info("listing deleted", zap.String("listing_id", id))
	return nil
}

// Save records a buyer saving the listing.
func (s *Service) Save(ctx context.Context, id string) error {
	return eris.Wrapf(s.store.IncrementCounter(ctx, id, model.CounterSaves), "listing: save %s", id)
}

// Search returns listings matching filter.
func (s *Service) Search(ctx context.Context, filter model.ListingFilter) ([]model.Listing, error) {
	out, err := s.store.SearchListings(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "listing: search")
	}
	if out == nil {
		out = []model.Listing{}
	}
	return out, nil
}

// ExpireStale marks active listings past their expiry as expired.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	n, err := s.store.ExpireListings(ctx, now)
	if err != nil {
		return 0, eris.Wrap(err, "listing: expire stale")
	}
	if n > 0 {
		zap.L().Info("expired stale listings", zap.Int("count", n))
	}
	return n, nil
}
