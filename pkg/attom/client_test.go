package attom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fsbo/internal/resilience"
)

const assessmentJSON = `{
  "status": {"code": 0, "msg": "SuccessWithResult"},
  "property": [{
    "identifier": {"attomId": 184713191},
    "summary": {"proptype": "SFR", "yearbuilt": 1998},
    "lot": {"lotsize2": 7405},
    "building": {"size": {"livingsize": 2000}, "rooms": {"beds": 3, "bathstotal": 2.5}},
    "assessment": {
      "assessed": {"assdttlvalue": 400000},
      "market": {"mktttlvalue": 455000},
      "tax": {"taxamt": 8120.55, "taxyear": 2025}
    }
  }]
}`

func TestAssessment_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assessment/detail", r.URL.Path)
		assert.Equal(t, "12 Oak St", r.URL.Query().Get("address1"))
		assert.Equal(t, "Austin, TX 78701", r.URL.Query().Get("address2"))
		assert.Equal(t, "key", r.Header.Get("apikey"))
		_, _ = w.Write([]byte(assessmentJSON))
	}))
	defer srv.Close()

	a, err := NewClient("key", WithBaseURL(srv.URL)).Assessment(context.Background(), "12 Oak St", "Austin, TX 78701")
	require.NoError(t, err)

	assert.Equal(t, int64(184713191), a.AttomID)
	assert.InDelta(t, 400000, a.AssessedTotal, 0.001)
	assert.InDelta(t, 455000, a.MarketTotal, 0.001)
	assert.Equal(t, 2025, a.TaxYear)
	assert.Equal(t, 1998, a.YearBuilt)
	assert.InDelta(t, 2000, a.LivingSqft, 0.001)
	assert.Equal(t, 3, a.Bedrooms)
	assert.InDelta(t, 2.5, a.Bathrooms, 0.001)
}

func TestAssessment_NoProperty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":{"code":0,"msg":"SuccessWithoutResult"},"property":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("key", WithBaseURL(srv.URL)).Assessment(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ErrNoAssessment)
}

func TestAssessment_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"code":1,"msg":"invalid"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("key", WithBaseURL(srv.URL)).Assessment(context.Background(), "x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attom: unexpected status 400")
	assert.False(t, resilience.IsTransient(err))
}
