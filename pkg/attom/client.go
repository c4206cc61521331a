// Package attom is a client for the ATTOM Data property API.
package attom

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

const defaultBaseURL = "https://api.gateway.attomdata.com/propertyapi/v1.0.0"

// ErrNoAssessment is returned when the property has no assessment record.
var ErrNoAssessment = eris.New("attom: no assessment for address")

// Client fetches tax assessments.
type Client interface {
	Assessment(ctx context.Context, street, cityStateZip string) (*Assessment, error)
}

// Assessment is the tax assessment of one property.
type Assessment struct {
	AttomID          int64   `json:"attom_id"`
	AssessedTotal    float64 `json:"assessed_total"`
	MarketTotal      float64 `json:"market_total"`
	TaxAmount        float64 `json:"tax_amount"`
	TaxYear          int     `json:"tax_year"`
	YearBuilt        int     `json:"year_built"`
	LivingSqft       float64 `json:"living_sqft"`
	LotSizeSqft      float64 `json:"lot_size_sqft"`
	Bedrooms         int     `json:"bedrooms"`
	Bathrooms        float64 `json:"bathrooms"`
	PropertyTypeDesc string  `json:"property_type"`
}

type assessmentResponse struct {
	Status struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"status"`
	Property []struct {
		Identifier struct {
			AttomID int64 `json:"attomId"`
		} `json:"identifier"`
		Summary struct {
			PropType  string `json:"proptype"`
			YearBuilt int    `json:"yearbuilt"`
		} `json:"summary"`
		Lot struct {
			LotSize2 float64 `json:"lotsize2"`
		} `json:"lot"`
		Building struct {
			Size struct {
				LivingSize float64 `json:"livingsize"`
			} `json:"size"`
			Rooms struct {
				Beds       int     `json:"beds"`
				BathsTotal float64 `json:"bathstotal"`
			} `json:"rooms"`
		} `json:"building"`
		Assessment struct {
			Assessed struct {
				AssdTtlValue float64 `json:"assdttlvalue"`
			} `json:"assessed"`
			Market struct {
				MktTtlValue float64 `json:"mktttlvalue"`
			} `json:"market"`
			Tax struct {
				TaxAmt  float64 `json:"taxamt"`
				TaxYear int     `json:"taxyear"`
			} `json:"tax"`
		} `json:"assessment"`
	} `json:"property"`
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

// NewClient creates an ATTOM client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Assessment(ctx context.Context, street, cityStateZip string) (*Assessment, error) {
	q := url.Values{}
	q.Set("address1", street)
	q.Set("address2", cityStateZip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/assessment/detail?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "attom: create request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "attom: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "attom: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("attom", resp.StatusCode, body)
	}

	var out assessmentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "attom: unmarshal response")
	}
	if len(out.Property) == 0 {
		return nil, ErrNoAssessment
	}

	p := out.Property[0]
	return &Assessment{
		AttomID:          p.Identifier.AttomID,
		AssessedTotal:    p.Assessment.Assessed.AssdTtlValue,
		MarketTotal:      p.Assessment.Market.MktTtlValue,
		TaxAmount:        p.Assessment.Tax.TaxAmt,
		TaxYear:          p.Assessment.Tax.TaxYear,
		YearBuilt:        p.Summary.YearBuilt,
		LivingSqft:       p.Building.Size.LivingSize,
		LotSizeSqft:      p.Lot.LotSize2,
		Bedrooms:         p.Building.Rooms.Beds,
		Bathrooms:        p.Building.Rooms.BathsTotal,
		PropertyTypeDesc: p.Summary.PropType,
	}, nil
}
