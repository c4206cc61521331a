package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/api"
	"github.com/sells-group/fsbo/internal/cache"
	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/describe"
	"github.com/sells-group/fsbo/internal/fetcher"
	"github.com/sells-group/fsbo/internal/listing"
	"github.com/sells-group/fsbo/internal/market"
	"github.com/sells-group/fsbo/internal/offer"
	"github.com/sells-group/fsbo/internal/resilience"
	"github.com/sells-group/fsbo/internal/rules"
	"github.com/sells-group/fsbo/internal/store"
	"github.com/sells-group/fsbo/internal/valuation"
	anthropicpkg "github.com/sells-group/fsbo/pkg/anthropic"
	"github.com/sells-group/fsbo/pkg/attom"
	"github.com/sells-group/fsbo/pkg/google"
	openaipkg "github.com/sells-group/fsbo/pkg/openai"
	"github.com/sells-group/fsbo/pkg/realtymole"
	"github.com/sells-group/fsbo/pkg/walkscore"
	"github.com/sells-group/fsbo/pkg/zillow"
)

// appEnv holds the store, clients and services shared by the serve and
// tool commands.
type appEnv struct {
	Store      store.Store
	Rules      rules.Rules
	Cache      *cache.Cache
	Scorer     *offer.Scorer
	Classifier *market.Classifier
	Listings   *listing.Service
	Offers     *offer.Intake

	// Optional; nil when their providers are not configured.
	Valuations    *valuation.Service
	Markets       *market.Service
	Neighborhoods *market.Neighborhoods
	Drafter       *describe.Drafter
	Places        google.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Cache != nil {
		e.Cache.Stop()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// Deps returns the services the HTTP API serves.
func (e *appEnv) Deps() api.Deps {
	return api.Deps{
		Store:         e.Store,
		Listings:      e.Listings,
		Offers:        e.Offers,
		Scorer:        e.Scorer,
		Valuations:    e.Valuations,
		Markets:       e.Markets,
		Neighborhoods: e.Neighborhoods,
		Drafter:       e.Drafter,
		Places:        e.Places,
	}
}

// initApp opens the store and builds every service. Callers should defer
// env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	r, err := rules.LoadFile(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	env, err := buildApp(cfg, st, r)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return env, nil
}

// buildApp wires services over st. Providers without a key are left out.
func buildApp(c *config.Config, st store.Store, r rules.Rules) (*appEnv, error) {
	env := &appEnv{
		Store:      st,
		Rules:      r,
		Cache:      cache.New(c.Cache),
		Scorer:     offer.NewScorer(r.Offer),
		Classifier: market.NewClassifier(r.Market),
	}
	env.Listings = listing.NewService(st, c.Listings)
	env.Offers = offer.NewIntake(st, env.Scorer, env.Listings, c.Offers)

	hc := fetcher.NewClient(fetcher.Options{RequestsPerSec: c.Resilience.RequestsPerSec})
	guard := resilience.NewGuard(c.Resilience)

	var providers valuation.Providers
	if c.RealtyMole.Key != "" {
		providers.RealtyMole = realtymole.NewClient(c.RealtyMole.Key,
			realtymole.WithBaseURL(c.RealtyMole.BaseURL),
			realtymole.WithHost(c.RealtyMole.Host),
			realtymole.WithHTTPClient(hc),
		)
		env.Markets = market.NewService(env.Classifier, providers.RealtyMole, guard, env.Cache)
	} else {
		zap.L().Debug("FSBO_REALTYMOLE_KEY not set, direct estimates and market stats disabled")
	}
	if c.Zillow.Key != "" {
		providers.Zillow = zillow.NewClient(c.Zillow.Key,
			zillow.WithBaseURL(c.Zillow.BaseURL),
			zillow.WithHTTPClient(hc),
		)
	}
	if c.Attom.Key != "" {
		providers.Attom = attom.NewClient(c.Attom.Key,
			attom.WithBaseURL(c.Attom.BaseURL),
			attom.WithHTTPClient(hc),
		)
	}
	if providers.RealtyMole != nil || providers.Zillow != nil || providers.Attom != nil {
		env.Valuations = valuation.NewService(valuation.ServiceConfig{
			Store:     st,
			Blender:   valuation.NewBlender(r.Valuation),
			Providers: providers,
			Guard:     guard,
			Cache:     env.Cache,
			CompCount: c.RealtyMole.Comps,
			RulesHash: r.Hash(),
		})
		zap.L().Info("valuation service enabled")
	}

	if c.Google.Key != "" {
		env.Places = google.NewClient(c.Google.Key, google.WithHTTPClient(hc))
		if c.WalkScore.Key != "" {
			walk := walkscore.NewClient(c.WalkScore.Key,
				walkscore.WithBaseURL(c.WalkScore.BaseURL),
				walkscore.WithHTTPClient(hc),
			)
			env.Neighborhoods = market.NewNeighborhoods(env.Places, walk, guard, env.Cache)
		}
	}

	if c.Anthropic.Key != "" || c.OpenAI.Key != "" {
		dc := describe.Config{
			AnthropicModel: c.Anthropic.Model,
			MaxTokens:      c.Anthropic.MaxTokens,
			OpenAIModel:    c.OpenAI.Model,
		}
		if c.Anthropic.Key != "" {
			dc.Anthropic = anthropicpkg.NewClient(c.Anthropic.Key)
		}
		if c.OpenAI.Key != "" {
			dc.OpenAI = openaipkg.NewClient(c.OpenAI.Key)
		}
		d, err := describe.NewDrafter(dc)
		if err != nil {
			env.Cache.Stop()
			return nil, eris.Wrap(err, "init drafter")
		}
		env.Drafter = d
	}

	return env, nil
}
