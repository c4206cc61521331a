package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fsbo/internal/resilience"
)

func TestAutocomplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:autocomplete", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))

		var body autocompleteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "12 Oak", body.Input)
		assert.Equal(t, "sess-1", body.SessionToken)
		assert.Equal(t, []string{"us"}, body.IncludedRegionCodes)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"suggestions":[{"placePrediction":{
			"placeId":"ChIJ123",
			"text":{"text":"12 Oak St, Austin, TX, USA"},
			"structuredFormat":{"mainText":{"text":"12 Oak St"},"secondaryText":{"text":"Austin, TX, USA"}}
		}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.Autocomplete(context.Background(), "12 Oak", "sess-1")

	require.NoError(t, err)
	require.Len(t, resp.Suggestions, 1)
	p := resp.Suggestions[0].PlacePrediction
	require.NotNil(t, p)
	assert.Equal(t, "ChIJ123", p.PlaceID)
	assert.Equal(t, "12 Oak St", p.StructuredFormat.MainText.Text)
	assert.Equal(t, "Austin, TX, USA", p.StructuredFormat.SecondaryText.Text)
}

func TestPlaceDetails_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/places/ChIJ123", r.URL.Path)
		assert.Equal(t, "sess-1", r.URL.Query().Get("sessionToken"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "addressComponents")

		_, _ = w.Write([]byte(`{
			"id":"ChIJ123",
			"formattedAddress":"12 Oak St, Austin, TX 78701, USA",
			"location":{"latitude":30.27,"longitude":-97.74},
			"addressComponents":[
				{"longText":"Texas","shortText":"TX","types":["administrative_area_level_1","political"]},
				{"longText":"78701","shortText":"78701","types":["postal_code"]}
			]}`))
	}))
	defer srv.Close()

	d, err := NewClient("test-key", WithBaseURL(srv.URL)).PlaceDetails(context.Background(), "ChIJ123", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "TX", d.Component("administrative_area_level_1"))
	assert.Equal(t, "78701", d.Component("postal_code"))
	assert.Empty(t, d.Component("locality"))
	assert.InDelta(t, 30.27, d.Location.Latitude, 0.0001)
}

func TestAutocomplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid API key"}`))
	}))
	defer srv.Close()

	resp, err := NewClient("bad-key", WithBaseURL(srv.URL)).Autocomplete(context.Background(), "x", "")
	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "403")
	assert.False(t, resilience.IsTransient(err))
}

func TestAutocomplete_RateLimitedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Autocomplete(context.Background(), "x", "")
	assert.True(t, resilience.IsTransient(err))
}

func TestAutocomplete_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Autocomplete(ctx, "x", "")
	assert.Error(t, err)
}

func TestAutocomplete_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL), WithHTTPClient(srv.Client())).Autocomplete(context.Background(), "x", "")
	assert.ErrorContains(t, err, "google: unmarshal response")
}
