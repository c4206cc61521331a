package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// Client performs Google Places API operations used by address entry.
type Client interface {
	Autocomplete(ctx context.Context, input, sessionToken string) (*AutocompleteResponse, error)
	PlaceDetails(ctx context.Context, placeID, sessionToken string) (*PlaceDetails, error)
}

// AutocompleteResponse is the response from Places Autocomplete.
type AutocompleteResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Suggestion wraps one predicted place.
type Suggestion struct {
	PlacePrediction *PlacePrediction `json:"placePrediction,omitempty"`
}

// PlacePrediction is a predicted address.
type PlacePrediction struct {
	PlaceID          string           `json:"placeId"`
	Text             FormattableText  `json:"text"`
	StructuredFormat StructuredFormat `json:"structuredFormat"`
}

// StructuredFormat splits a prediction into the street line and the rest.
type StructuredFormat struct {
	MainText      FormattableText `json:"mainText"`
	SecondaryText FormattableText `json:"secondaryText"`
}

// FormattableText holds display text.
type FormattableText struct {
	Text string `json:"text"`
}

// PlaceDetails is the subset of place details needed to prefill a listing.
type PlaceDetails struct {
	ID                string             `json:"id"`
	FormattedAddress  string             `json:"formattedAddress"`
	Location          LatLng             `json:"location"`
	AddressComponents []AddressComponent `json:"addressComponents"`
}

// LatLng is a coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AddressComponent is one typed piece of an address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// Component returns the short text of the first component with the given
// type, e.g. "postal_code" or "administrative_area_level_1".
func (d *PlaceDetails) Component(typ string) string {
	for _, c := range d.AddressComponents {
		for _, t := range c.Types {
			if t == typ {
				return c.ShortText
			}
		}
	}
	return ""
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type autocompleteRequest struct {
	Input                string   `json:"input"`
	SessionToken         string   `json:"sessionToken,omitempty"`
	IncludedRegionCodes  []string `json:"includedRegionCodes"`
	IncludedPrimaryTypes []string `json:"includedPrimaryTypes"`
}

func (c *httpClient) Autocomplete(ctx context.Context, input, sessionToken string) (*AutocompleteResponse, error) {
	body, err := json.Marshal(autocompleteRequest{
		Input:                input,
		SessionToken:         sessionToken,
		IncludedRegionCodes:  []string{"us"},
		IncludedPrimaryTypes: []string{"street_address", "premise", "subpremise"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:autocomplete", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var result AutocompleteResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID, sessionToken string) (*PlaceDetails, error) {
	u := c.baseURL + "/places/" + url.PathEscape(placeID)
	if sessionToken != "" {
		u += "?sessionToken=" + url.QueryEscape(sessionToken)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("X-Goog-FieldMask", "id,formattedAddress,location,addressComponents")

	var result PlaceDetails
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError("google", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}
