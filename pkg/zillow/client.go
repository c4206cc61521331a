// Package zillow is a client for Zestimate lookups through the Bridge
// Interactive data API.
package zillow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/resilience"
)

const defaultBaseURL = "https://api.bridgedataoutput.com/api/v2"

// ErrNoZestimate is returned when the address has no Zestimate.
var ErrNoZestimate = eris.New("zillow: no zestimate for address")

// Client fetches Zestimates.
type Client interface {
	Zestimate(ctx context.Context, address string) (*Zestimate, error)
}

// Zestimate is a Zillow automated valuation.
type Zestimate struct {
	ZPID        string  `json:"zpid"`
	Address     string  `json:"address"`
	Zestimate   float64 `json:"zestimate"`
	LowPercent  float64 `json:"lowPercent"`
	HighPercent float64 `json:"highPercent"`
	Date        string  `json:"date"`
}

type zestimateResponse struct {
	Success bool        `json:"success"`
	Bundle  []Zestimate `json:"bundle"`
	Total   int         `json:"total"`
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
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Zillow client authenticated with a Bridge access token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Zestimate(ctx context.Context, address string) (*Zestimate, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("address", address)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/zestimates_v2/zestimates?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "zillow: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "zillow: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zillow: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("zillow", resp.StatusCode, body)
	}

	var out zestimateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "zillow: unmarshal response")
	}
	if len(out.Bundle) == 0 || out.Bundle[0].Zestimate <= 0 {
		return nil, ErrNoZestimate
	}
	return &out.Bundle[0], nil
}
