package market

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/cache"
	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/resilience"
	"github.com/sells-group/fsbo/pkg/google"
	"github.com/sells-group/fsbo/pkg/walkscore"
)

// ErrNoLocation is returned when a listing address cannot be geocoded.
var ErrNoLocation = eris.New("market: address could not be located")

// Neighborhood is walkability context for a listing.
type Neighborhood struct {
	Address   string            `json:"address"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Scores    *walkscore.Result `json:"scores"`
}

// Neighborhoods geocodes listings with Places and scores them with Walk Score.
type Neighborhoods struct {
	places google.Client
	walk   walkscore.Client
	guard  *resilience.Guard
	cache  *cache.Cache
}

// NewNeighborhoods creates a neighborhood lookup.
func NewNeighborhoods(places google.Client, walk walkscore.Client, guard *resilience.Guard, c *cache.Cache) *Neighborhoods {
	if guard == nil {
		guard = resilience.NewGuard(config.ResilienceConfig{})
	}
	return &Neighborhoods{places: places, walk: walk, guard: guard, cache: c}
}

// ForListing returns the neighborhood scores for l's address.
func (n *Neighborhoods) ForListing(ctx context.Context, l *model.Listing) (*Neighborhood, error) {
	if n.places == nil || n.walk == nil {
		return nil, eris.New("market: neighborhood providers not configured")
	}
	address := l.Address()

	loc, err := cache.Fetch(ctx, n.cache, cache.Key("geocode", "google", address),
		func(ctx context.Context) (*google.LatLng, error) {
			return n.locate(ctx, address)
		})
	if err != nil {
		return nil, err
	}

	scores, err := cache.Fetch(ctx, n.cache, cache.Key("walkscore", address),
		func(ctx context.Context) (*walkscore.Result, error) {
			return resilience.Call(ctx, n.guard, "walkscore", "score", func(ctx context.Context) (*walkscore.Result, error) {
				return n.walk.Score(ctx, address, loc.Latitude, loc.Longitude)
			})
		})
	if err != nil {
		return nil, eris.Wrapf(err, "market: walk score for %s", l.ID)
	}

	return &Neighborhood{
		Address:   address,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Scores:    scores,
	}, nil
}

func (n *Neighborhoods) locate(ctx context.Context, address string) (*google.LatLng, error) {
	ac, err := resilience.Call(ctx, n.guard, "google", "autocomplete", func(ctx context.Context) (*google.AutocompleteResponse, error) {
		return n.places.Autocomplete(ctx, address, "")
	})
	if err != nil {
		return nil, eris.Wrapf(err, "market: autocomplete %q", address)
	}

	var placeID string
	for _, s := range ac.Suggestions {
		if s.PlacePrediction != nil && s.PlacePrediction.PlaceID != "" {
			placeID = s.PlacePrediction.PlaceID
			break
		}
	}
	if placeID == "" {
		return nil, eris.Wrapf(ErrNoLocation, "%q", address)
	}

	d, err := resilience.Call(ctx, n.guard, "google", "place_details", func(ctx context.Context) (*google.PlaceDetails, error) {
		return n.places.PlaceDetails(ctx, placeID, "")
	})
	if err != nil {
		return nil, eris.Wrapf(err, "market: place details %s", placeID)
	}
	return &d.Location, nil
}
