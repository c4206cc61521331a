package walkscore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/score", r.URL.Path)
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "30.270000", q.Get("lat"))
		assert.Equal(t, "-97.740000", q.Get("lon"))
		assert.Equal(t, "ws-key", q.Get("wsapikey"))
		_, _ = w.Write([]byte(`{"status":1,"walkscore":78,"description":"Very Walkable",
			"transit":{"score":52,"description":"Good Transit"},
			"ws_link":"https://www.walkscore.com/score/12-oak-st"}`))
	}))
	defer srv.Close()

	res, err := NewClient("ws-key", WithBaseURL(srv.URL)).Score(context.Background(), "12 Oak St", 30.27, -97.74)
	require.NoError(t, err)
	assert.Equal(t, 78, res.WalkScore)
	assert.Equal(t, "Very Walkable", res.Description)
	require.NotNil(t, res.Transit)
	assert.Equal(t, 52, res.Transit.Score)
	assert.Nil(t, res.Bike)
}

func TestScore_APIStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":40}`))
	}))
	defer srv.Close()

	_, err := NewClient("bad", WithBaseURL(srv.URL)).Score(context.Background(), "x", 0, 0)
	assert.ErrorContains(t, err, "walkscore: api status 40")
}

func TestScore_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Score(context.Background(), "x", 0, 0)
	assert.ErrorContains(t, err, "walkscore: unexpected status 500")
}
