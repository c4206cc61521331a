// Package realtymole is a client for the Realty Mole property data API
// (served through RapidAPI).
package realtymole

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/resilience"
)

const (
	defaultBaseURL = "https://realty-mole-property-api.p.rapidapi.com"
	defaultHost    = "realty-mole-property-api.p.rapidapi.com"
)

// Client fetches value estimates and market statistics.
type Client interface {
	SalePrice(ctx context.Context, address string, compCount int) (*SalePriceResponse, error)
	MarketStats(ctx context.Context, zip string) (*MarketStatsResponse, error)
}

// SalePriceResponse is the automated value estimate plus the comparables it used.
type SalePriceResponse struct {
	Price          float64   `json:"price"`
	PriceRangeLow  float64   `json:"priceRangeLow"`
	PriceRangeHigh float64   `json:"priceRangeHigh"`
	Listings       []Listing `json:"listings"`
}

// Listing is one comparable property.
type Listing struct {
	ID               string  `json:"id"`
	FormattedAddress string  `json:"formattedAddress"`
	Price            float64 `json:"price"`
	SquareFootage    float64 `json:"squareFootage"`
	Bedrooms         int     `json:"bedrooms"`
	Bathrooms        float64 `json:"bathrooms"`
	Distance         float64 `json:"distance"`
	DaysOld          int     `json:"daysOld"`
	RemovedDate      string  `json:"removedDate,omitempty"`
}

// MarketStatsResponse holds zip-level sale statistics.
type MarketStatsResponse struct {
	ZipCode  string   `json:"zipCode"`
	SaleData SaleData `json:"saleData"`
}

// SaleData summarizes recent sale activity. Optional fields are nil when
// the provider has no data for the zip.
type SaleData struct {
	AverageDaysOnMarket    *float64                `json:"averageDaysOnMarket"`
	AveragePrice           *float64                `json:"averagePrice"`
	MedianPrice            *float64                `json:"medianPrice"`
	AverageListToSaleRatio *float64                `json:"averageListToSaleRatio"`
	History                map[string]HistoryEntry `json:"history"`
}

// HistoryEntry is one month of sale history, keyed by "YYYY-MM".
type HistoryEntry struct {
	AveragePrice float64 `json:"averagePrice"`
}

// PriceChangePercent returns the percent change in average price between
// the oldest and newest history months, or nil with fewer than two months.
func (s SaleData) PriceChangePercent() *float64 {
	if len(s.History) < 2 {
		return nil
	}
	months := make([]string, 0, len(s.History))
	for m := range s.History {
		months = append(months, m)
	}
	sort.Strings(months)
	first := s.History[months[0]].AveragePrice
	last := s.History[months[len(months)-1]].AveragePrice
	if first <= 0 {
		return nil
	}
	pct := (last - first) / first * 100
	return &pct
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHost overrides the RapidAPI host header.
func WithHost(host string) Option {
	return func(c *httpClient) {
		c.host = host
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
	host    string
	http    *http.Client
}

// NewClient creates a Realty Mole client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		host:    defaultHost,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SalePrice(ctx context.Context, address string, compCount int) (*SalePriceResponse, error) {
	if compCount <= 0 {
		compCount = 10
	}
	q := url.Values{}
	q.Set("address", address)
	q.Set("compCount", strconv.Itoa(compCount))

	var out SalePriceResponse
	if err := c.get(ctx, "/salePrice?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) MarketStats(ctx context.Context, zip string) (*MarketStatsResponse, error) {
	q := url.Values{}
	q.Set("dataType", "Sale")
	q.Set("historyRange", "6")

	var out MarketStatsResponse
	if err := c.get(ctx, "/zipCodes/"+url.PathEscape(zip)+"?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "realtymole: create request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "realtymole: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "realtymole: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError("realtymole", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "realtymole: unmarshal response")
	}
	return nil
}
