// Package api serves the marketplace's HTTP API.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/describe"
	"github.com/sells-group/fsbo/internal/listing"
	"github.com/sells-group/fsbo/internal/market"
	"github.com/sells-group/fsbo/internal/offer"
	"github.com/sells-group/fsbo/internal/store"
	"github.com/sells-group/fsbo/internal/valuation"
	"github.com/sells-group/fsbo/pkg/google"
)

// Deps are the services behind the API. Optional services may be nil; their
// routes then answer 503.
type Deps struct {
	Store         store.Store
	Listings      *listing.Service
	Offers        *offer.Intake
	Scorer        *offer.Scorer
	Valuations    *valuation.Service
	Markets       *market.Service
	Neighborhoods *market.Neighborhoods
	Drafter       *describe.Drafter
	Places        google.Client
}

type handler struct {
	Deps
}

// NewRouter builds the HTTP handler.
func NewRouter(server config.ServerConfig, auth *Authenticator, d Deps) http.Handler {
	h := &handler{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)
			r.Get("/listings", h.searchListings)
			r.Get("/listings/{id}", h.getListing)
			r.Get("/listings/{id}/comparables", h.listComparables)
			r.Get("/listings/{id}/neighborhood", h.neighborhood)
			r.Post("/score/offer", h.scoreOffer)
			r.Get("/market/{zip}", h.marketForZip)
			r.Get("/places/autocomplete", h.autocomplete)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Required)
			r.Post("/listings", h.createListing)
			r.Patch("/listings/{id}", h.updateListing)
			r.Delete("/listings/{id}", h.deleteListing)
			r.Post("/listings/{id}/wizard/{step}", h.checkStep)
			r.Post("/listings/{id}/submit", h.submitListing)
			r.Post("/listings/{id}/status", h.transitionListing)
			r.Post("/listings/{id}/save", h.saveListing)
			r.Post("/listings/{id}/valuation", h.valueListing)
			r.Post("/listings/{id}/description", h.draftDescription)

			r.Post("/listings/{id}/offers", h.submitOffer)
			r.Get("/listings/{id}/offers", h.listOffers)
			r.Post("/offers/{id}/respond", h.respondOffer)
			r.Post("/offers/{id}/withdraw", h.withdrawOffer)

			r.Post("/listings/{id}/showings", h.requestShowing)
			r.Get("/listings/{id}/showings", h.listShowings)
			r.Post("/showings/{id}/respond", h.respondShowing)
			r.Post("/showings/{id}/cancel", h.cancelShowing)
		})
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		zap.L().Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			zap.L().Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
