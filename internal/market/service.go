package market

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/cache"
	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/resilience"
	"github.com/sells-group/fsbo/internal/validate"
	"github.com/sells-group/fsbo/pkg/realtymole"
)

const provider = "realtymole"

// Report is the market temperature for a zip code with the indicators it
// was derived from.
type Report struct {
	Zip          string      `json:"zip"`
	Indicators   Indicators  `json:"indicators"`
	Temperature  Temperature `json:"temperature"`
	MedianPrice  *float64    `json:"median_price,omitempty"`
	AveragePrice *float64    `json:"average_price,omitempty"`
}

// Service looks up market statistics and classifies them.
type Service struct {
	classifier *Classifier
	stats      realtymole.Client
	guard      *resilience.Guard
	cache      *cache.Cache
}

// NewService creates a market service. A nil guard uses default resilience
// settings; a nil cache disables caching.
func NewService(classifier *Classifier, stats realtymole.Client, guard *resilience.Guard, c *cache.Cache) *Service {
	if guard == nil {
		guard = resilience.NewGuard(config.ResilienceConfig{})
	}
	return &Service{classifier: classifier, stats: stats, guard: guard, cache: c}
}

type zipQuery struct {
	Zip string `json:"zip" validate:"required,len=5,numeric"`
}

// ForZip returns the market report for zip. Provider failures are returned;
// missing indicators fall back to the classifier defaults.
func (s *Service) ForZip(ctx context.Context, zip string) (*Report, error) {
	if err := validate.Struct(ctx, zipQuery{Zip: zip}); err != nil {
		return nil, err
	}
	if s.stats == nil {
		return nil, eris.New("market: no statistics provider configured")
	}

	stats, err := cache.Fetch(ctx, s.cache, cache.Key("market", provider, zip),
		func(ctx context.Context) (*realtymole.MarketStatsResponse, error) {
			return resilience.Call(ctx, s.guard, provider, "market_stats", func(ctx context.Context) (*realtymole.MarketStatsResponse, error) {
				return s.stats.MarketStats(ctx, zip)
			})
		})
	if err != nil {
		return nil, eris.Wrapf(err, "market: stats for %s", zip)
	}

	in := Indicators{
		DaysOnMarket:       stats.SaleData.AverageDaysOnMarket,
		PriceChangePercent: stats.SaleData.PriceChangePercent(),
		ListToSaleRatio:    stats.SaleData.AverageListToSaleRatio,
	}
	temp := s.classifier.Classify(in)

	zap.L().Debug("market classified",
		zap.String("zip", zip),
		zap.Int("score", temp.Score),
		zap.String("label", temp.Label),
	)
	return &Report{
		Zip:          zip,
		Indicators:   in,
		Temperature:  temp,
		MedianPrice:  stats.SaleData.MedianPrice,
		AveragePrice: stats.SaleData.AveragePrice,
	}, nil
}
