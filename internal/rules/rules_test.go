package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLadder_FirstMatchWins(t *testing.T) {
	l := Default().Offer.PriceRatio

	tests := []struct {
		ratio float64
		want  float64
		ok    bool
	}{
		{1.10, 25, true},
		{1.05, 25, true},
		{1.00, 20, true},
		{0.98, 10, true},
		{0.95, 5, true},
		{0.92, 0, false},
		{0.90, 0, false},
		{0.85, -15, true},
	}
	for _, tt := range tests {
		got, ok := l.Apply(tt.ratio)
		assert.Equal(t, tt.ok, ok, "ratio %v", tt.ratio)
		assert.InDelta(t, tt.want, got, 1e-9, "ratio %v", tt.ratio)
	}
}

func TestBuckets_Label(t *testing.T) {
	labels := Default().Market.Labels

	assert.Equal(t, "Very Hot", labels.Label(80))
	assert.Equal(t, "Hot", labels.Label(79))
	assert.Equal(t, "Hot", labels.Label(65))
	assert.Equal(t, "Warm", labels.Label(50))
	assert.Equal(t, "Balanced", labels.Label(35))
	assert.Equal(t, "Cool", labels.Label(34))
	assert.Equal(t, "Cool", labels.Label(-20), "below every bucket falls to the last")
	assert.Equal(t, "", Buckets(nil).Label(10))
}

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_Errors(t *testing.T) {
	r := Default()
	r.Valuation.RoundTo = 0
	r.Valuation.DirectWeight = -1
	r.Offer.PriceRatio = append(r.Offer.PriceRatio, Rung{Op: "between", Threshold: 1})
	r.Market.Labels = Buckets{{Min: 10, Label: "a"}, {Min: 50, Label: "b"}}

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valuation.round_to must be > 0")
	assert.Contains(t, err.Error(), "valuation.direct_weight must be >= 0")
	assert.Contains(t, err.Error(), `unknown op "between"`)
	assert.Contains(t, err.Error(), "market.labels must be ordered")
}

func TestLoadFile_EmptyPathReturnsDefaults(t *testing.T) {
	r, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default().Hash(), r.Hash())
}

func TestLoadFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
valuation:
  comparables_weight: 0.5
market:
  clamp: false
  days_on_market:
    - {op: lt, threshold: 7, delta: 30}
`), 0o644))

	r, err := LoadFile(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, r.Valuation.ComparablesWeight, 1e-9)
	assert.InDelta(t, 0.25, r.Valuation.DirectWeight, 1e-9, "unset keys keep defaults")
	assert.False(t, r.Market.Clamp)
	require.Len(t, r.Market.DaysOnMarket, 1)
	assert.Equal(t, OpLT, r.Market.DaysOnMarket[0].Op)
	assert.NotEqual(t, Default().Hash(), r.Hash())
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "rules: read")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("valuation: [\n"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "rules: parse")

	inv := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(inv, []byte("valuation:\n  round_to: 0\n"), 0o644))
	_, err = LoadFile(inv)
	assert.ErrorContains(t, err, "rules: validation failed")
}

func TestHash_Stable(t *testing.T) {
	a, b := Default().Hash(), Default().Hash()
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}
