// Package walkscore is a client for the Walk Score API.
package walkscore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/resilience"
)

const defaultBaseURL = "https://api.walkscore.com"

// Client fetches neighborhood walkability scores.
type Client interface {
	Score(ctx context.Context, address string, lat, lon float64) (*Result, error)
}

// Result holds walk, transit and bike scores. Transit and bike are nil when
// unavailable for the location.
type Result struct {
	WalkScore   int       `json:"walkscore"`
	Description string    `json:"description"`
	Transit     *SubScore `json:"transit,omitempty"`
	Bike        *SubScore `json:"bike,omitempty"`
	WSLink      string    `json:"ws_link"`
}

// SubScore is a transit or bike score.
type SubScore struct {
	Score       int    `json:"score"`
	Description string `json:"description"`
}

type scoreResponse struct {
	Result
	Status int `json:"status"`
}

// Walk Score reports errors in the body's status field.
const statusOK = 1

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

// NewClient creates a Walk Score client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Score(ctx context.Context, address string, lat, lon float64) (*Result, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("address", address)
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("transit", "1")
	q.Set("bike", "1")
	q.Set("wsapikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/score?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "walkscore: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "walkscore: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "walkscore: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("walkscore", resp.StatusCode, body)
	}

	var out scoreResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "walkscore: unmarshal response")
	}
	if out.Status != statusOK {
		return nil, eris.Errorf("walkscore: api status %d", out.Status)
	}
	return &out.Result, nil
}
