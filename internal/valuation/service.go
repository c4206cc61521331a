package valuation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/fsbo/internal/cache"
	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/resilience"
	"github.com/sells-group/fsbo/internal/store"
	"github.com/sells-group/fsbo/pkg/attom"
	"github.com/sells-group/fsbo/pkg/realtymole"
	"github.com/sells-group/fsbo/pkg/zillow"
)

const defaultCompCount = 10

// Providers are the value sources a Service queries. A nil client is skipped.
type Providers struct {
	RealtyMole realtymole.Client
	Zillow     zillow.Client
	Attom      attom.Client
}

// Service values stored listings from live provider data.
type Service struct {
	store     store.Store
	blender   *Blender
	providers Providers
	guard     *resilience.Guard
	cache     *cache.Cache
	compCount int
	rulesHash string
}

// ServiceConfig holds a Service's collaborators.
type ServiceConfig struct {
	Store     store.Store
	Blender   *Blender
	Providers Providers
	Guard     *resilience.Guard
	Cache     *cache.Cache
	CompCount int
	RulesHash string
}

// NewService creates a valuation service.
func NewService(cfg ServiceConfig) *Service {
	comps := cfg.CompCount
	if comps <= 0 {
		comps = defaultCompCount
	}
	guard := cfg.Guard
	if guard == nil {
		guard = resilience.NewGuard(config.ResilienceConfig{})
	}
	return &Service{
		store:     cfg.Store,
		blender:   cfg.Blender,
		providers: cfg.Providers,
		guard:     guard,
		cache:     cfg.Cache,
		compCount: comps,
		rulesHash: cfg.RulesHash,
	}
}

// sources is what the providers returned for one property. Zero values mean
// the provider was skipped or failed.
type sources struct {
	direct      float64
	secondary   float64
	taxAssessed float64
	comparables []model.ComparableSale
}

// Value fetches every source for the listing, blends them and persists the
// result. Provider failures are logged and the source is treated as absent.
func (s *Service) Value(ctx context.Context, listingID string) (*model.Valuation, error) {
	l, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, eris.Wrapf(err, "valuation: load listing %s", listingID)
	}

	src := s.gather(ctx, l)

	res := s.blender.Blend(Input{
		Estimates: []Estimate{
			{Source: model.SourceDirect, Value: src.direct},
			{Source: model.SourceSecondary, Value: src.secondary},
			{Source: model.SourceTaxAssessed, Value: src.taxAssessed},
		},
		Comparables: src.comparables,
		SubjectSqft: float64(l.Sqft),
		Default:     l.Price(),
	})

	v := &model.Valuation{
		ListingID:       l.ID,
		EstimatedValue:  res.EstimatedValue,
		ValueLow:        res.ValueLow,
		ValueHigh:       res.ValueHigh,
		ConfidenceScore: res.ConfidenceScore,
		HasData:         res.HasData,
		Methodology:     res.Methodology,
		RulesHash:       s.rulesHash,
	}
	if err := s.store.SaveValuation(ctx, v); err != nil {
		return nil, eris.Wrapf(err, "valuation: save %s", l.ID)
	}
	if len(src.comparables) > 0 {
		// The valuation is already stored; missing comps only thin out the
		// listing page, so they do not fail the run.
		n, err := s.store.SaveComparables(ctx, l.ID, src.comparables)
		if err != nil {
			zap.L().Warn("valuation: save comparables failed",
				zap.String("listing_id", l.ID),
				zap.Int("count", len(src.comparables)),
				zap.Error(err),
			)
		} else {
			zap.L().Debug("saved comparables", zap.String("listing_id", l.ID), zap.Int("count", n))
		}
	}

	zap.L().Info("listing valued",
		zap.String("listing_id", l.ID),
		zap.Float64("estimated_value", v.EstimatedValue),
		zap.Int("confidence", v.ConfidenceScore),
		zap.Int("sources", len(v.Methodology)),
		zap.Bool("has_data", v.HasData),
	)
	return v, nil
}

// gather queries every configured provider concurrently. It never fails.
func (s *Service) gather(ctx context.Context, l *model.Listing) sources {
	var src sources
	address := l.Address()
	g, gCtx := errgroup.WithContext(ctx)

	if s.providers.RealtyMole != nil {
		g.Go(func() error {
			resp, err := fetch(gCtx, s, "realtymole", "sale_price", address,
				func(ctx context.Context) (*realtymole.SalePriceResponse, error) {
					return s.providers.RealtyMole.SalePrice(ctx, address, s.compCount)
				})
			if err != nil {
				logSkipped("realtymole", l.ID, err)
				return nil
			}
			src.direct = resp.Price
			src.comparables = toComparables(l.ID, resp.Listings)
			return nil
		})
	}

	if s.providers.Zillow != nil {
		g.Go(func() error {
			resp, err := fetch(gCtx, s, "zillow", "zestimate", address,
				func(ctx context.Context) (*zillow.Zestimate, error) {
					return s.providers.Zillow.Zestimate(ctx, address)
				})
			if err != nil {
				logSkipped("zillow", l.ID, err)
				return nil
			}
			src.secondary = resp.Zestimate
			return nil
		})
	}

	if s.providers.Attom != nil {
		street := strings.TrimSpace(l.Street + " " + l.Unit)
		cityStateZip := fmt.Sprintf("%s, %s %s", l.City, l.State, l.ZipCode)
		g.Go(func() error {
			resp, err := fetch(gCtx, s, "attom", "assessment", address,
				func(ctx context.Context) (*attom.Assessment, error) {
					return s.providers.Attom.Assessment(ctx, street, cityStateZip)
				})
			if err != nil {
				logSkipped("attom", l.ID, err)
				return nil
			}
			src.taxAssessed = resp.AssessedTotal
			return nil
		})
	}

	_ = g.Wait()
	return src
}

// fetch runs a provider call through the cache and the provider's guard.
func fetch[T any](ctx context.Context, s *Service, provider, operation, address string, fn func(ctx context.Context) (T, error)) (T, error) {
	key := cache.Key("valuation", provider, operation, address)
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (T, error) {
		return resilience.Call(ctx, s.guard, provider, operation, fn)
	})
}

func logSkipped(provider, listingID string, err error) {
	zap.L().Warn("valuation source unavailable",
		zap.String("provider", provider),
		zap.String("listing_id", listingID),
		zap.String("class", resilience.Classify(err)),
		zap.Error(err),
	)
}

func toComparables(listingID string, in []realtymole.Listing) []model.ComparableSale {
	out := make([]model.ComparableSale, 0, len(in))
	for _, c := range in {
		out = append(out, model.ComparableSale{
			ListingID:     listingID,
			Address:       c.FormattedAddress,
			Price:         c.Price,
			Sqft:          c.SquareFootage,
			Bedrooms:      c.Bedrooms,
			Bathrooms:     c.Bathrooms,
			DistanceMiles: c.Distance,
			DaysOld:       c.DaysOld,
		})
	}
	return out
}
