//go:build !integration

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/offer"
	"github.com/sells-group/fsbo/internal/rules"
	"github.com/sells-group/fsbo/internal/store"
)

func ptr[T any](v T) *T { return &v }

func TestFormatListingsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	listings := []model.Listing{
		{
			ID:               "abc12345-6789-0000-0000-000000000000",
			Street:           "12 Oak St",
			City:             "Austin",
			State:            "TX",
			ZipCode:          "78704",
			ListPrice:        ptr(495000.0),
			AIEstimatedValue: ptr(488000.0),
			Status:           model.ListingStatusActive,
			ViewCount:        42,
			UpdatedAt:        now,
		},
		{
			ID:        "def12345",
			Street:    "9 Elm St",
			Status:    model.ListingStatusDraft,
			UpdatedAt: now,
		},
	}

	var buf bytes.Buffer
	formatListingsList(&buf, listings)

	out := buf.String()
	assert.Contains(t, out, "ADDRESS")
	assert.Contains(t, out, "abc12345 ")
	assert.NotContains(t, out, "abc12345-")
	assert.Contains(t, out, "12 Oak St, Austin, TX 78704")
	assert.Contains(t, out, "$495,000")
	assert.Contains(t, out, "$488,000")
	assert.Contains(t, out, "draft")
	assert.Contains(t, out, "2026-06-15 10:30")
}

func TestFormatOffersList(t *testing.T) {
	offers := []model.Offer{{
		ID:              "off-1",
		BuyerID:         "buyer-1",
		OfferPrice:      480000,
		FinancingType:   model.FinancingFHA,
		AIStrengthScore: 55,
		Status:          model.OfferStatusPending,
		ExpiresAt:       time.Date(2026, 6, 18, 9, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	formatOffersList(&buf, offers)
	out := buf.String()
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "$480,000")
	assert.Contains(t, out, "fha")
	assert.Contains(t, out, "55")
	assert.Contains(t, out, "2026-06-18 09:00")
}

func TestFormatAssessment(t *testing.T) {
	a := offer.NewScorer(rules.Default().Offer).Score(offer.Input{
		OfferPrice:   500000,
		ListingPrice: 500000,
		Financing:    model.FinancingCash,
	})

	var buf bytes.Buffer
	formatAssessment(&buf, a)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Score: 85\n"))
	assert.Contains(t, out, rules.RecommendStrong)
	assert.Contains(t, out, "Price ratio: 1.000")
	assert.Contains(t, out, "+20")
	assert.Contains(t, out, "+15")
}

func TestMarketClassifyCommand(t *testing.T) {
	cfg = &config.Config{}
	cmd := marketClassifyCmd
	t.Cleanup(func() {
		for _, name := range []string{"dom", "change", "ratio"} {
			f := cmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		cmd.SetOut(nil)
	})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, cmd.Flags().Set("dom", "12"))
	require.NoError(t, cmd.Flags().Set("change", "6"))
	require.NoError(t, cmd.Flags().Set("ratio", "1.01"))
	require.NoError(t, cmd.RunE(cmd, nil))

	// 50 + 20 + 15 + 10
	assert.Equal(t, "Very Hot (95)\n", buf.String())
}

func TestWriteRules(t *testing.T) {
	var buf bytes.Buffer
	r := rules.Default()
	require.NoError(t, writeRules(&buf, r, ""))

	out := buf.String()
	assert.Contains(t, out, "# source: built-in defaults")
	assert.Contains(t, out, "# hash: "+r.Hash())

	var decoded rules.Rules
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.Hash(), decoded.Hash())
}

func TestWriteOffersXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.xlsx")
	l := &model.Listing{ID: "l-1", Street: "12 Oak St", City: "Austin", State: "TX", ZipCode: "78704", ListPrice: ptr(500000.0)}
	closing := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	offers := []model.Offer{
		{
			ID:                    "off-1",
			BuyerID:               "buyer-1",
			OfferPrice:            490000,
			FinancingType:         model.FinancingConventional,
			EarnestMoney:          10000,
			InspectionContingency: true,
			ClosingDate:           &closing,
			AIStrengthScore:       70,
			Status:                model.OfferStatusPending,
		},
	}

	require.NoError(t, writeOffersXLSX(path, l, offers))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "12 Oak St, Austin, TX 78704", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Asking $500,000", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "Offer ID", sheet.Rows[1].Cells[0].String())

	row := sheet.Rows[2].Cells
	assert.Equal(t, "off-1", row[0].String())
	price, err := row[2].Float()
	require.NoError(t, err)
	assert.Equal(t, 490000.0, price)
	pct, err := row[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 98.0, pct, 0.001)
	assert.Equal(t, "kept", row[6].String())
	assert.Equal(t, "waived", row[7].String())
	assert.Equal(t, "2026-07-01", row[9].String())
	score, err := row[10].Int()
	require.NoError(t, err)
	assert.Equal(t, 70, score)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cmd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestBuildApp_NoProviders(t *testing.T) {
	st := newTestStore(t)
	env, err := buildApp(&config.Config{}, st, rules.Default())
	require.NoError(t, err)
	t.Cleanup(env.Cache.Stop)

	assert.NotNil(t, env.Listings)
	assert.NotNil(t, env.Offers)
	assert.Nil(t, env.Valuations)
	assert.Nil(t, env.Markets)
	assert.Nil(t, env.Neighborhoods)
	assert.Nil(t, env.Drafter)
	assert.Nil(t, env.Places)

	d := env.Deps()
	assert.Same(t, env.Listings, d.Listings)
	assert.Nil(t, d.Valuations)
}

func TestBuildApp_AllProviders(t *testing.T) {
	st := newTestStore(t)
	c := &config.Config{
		Anthropic:  config.AnthropicConfig{Key: "a", Model: "claude-sonnet-4-5-20250929"},
		OpenAI:     config.OpenAIConfig{Key: "o", Model: "gpt-4o-mini"},
		Google:     config.GoogleConfig{Key: "g"},
		RealtyMole: config.RealtyMoleConfig{Key: "r", BaseURL: "http://127.0.0.1:1", Host: "realty"},
		Zillow:     config.ZillowConfig{Key: "z", BaseURL: "http://127.0.0.1:1"},
		Attom:      config.AttomConfig{Key: "t", BaseURL: "http://127.0.0.1:1"},
		WalkScore:  config.WalkScoreConfig{Key: "w", BaseURL: "http://127.0.0.1:1"},
	}
	env, err := buildApp(c, st, rules.Default())
	require.NoError(t, err)
	t.Cleanup(env.Cache.Stop)

	assert.NotNil(t, env.Valuations)
	assert.NotNil(t, env.Markets)
	assert.NotNil(t, env.Neighborhoods)
	assert.NotNil(t, env.Drafter)
	assert.NotNil(t, env.Places)
}

func TestBuildApp_PartialProviders(t *testing.T) {
	st := newTestStore(t)
	c := &config.Config{
		Zillow: config.ZillowConfig{Key: "z", BaseURL: "http://127.0.0.1:1"},
		Google: config.GoogleConfig{Key: "g"},
	}
	env, err := buildApp(c, st, rules.Default())
	require.NoError(t, err)
	t.Cleanup(env.Cache.Stop)

	assert.NotNil(t, env.Valuations, "one valuation provider is enough")
	assert.Nil(t, env.Markets, "market stats need realtymole")
	assert.Nil(t, env.Neighborhoods, "neighborhood scores need walkscore")
	assert.NotNil(t, env.Places)
}
