package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/rules"
)

func newTestBlender() *Blender {
	return NewBlender(rules.Default().Valuation)
}

func comps(n int, price, sqft float64) []model.ComparableSale {
	out := make([]model.ComparableSale, n)
	for i := range out {
		out[i] = model.ComparableSale{Price: price, Sqft: sqft}
	}
	return out
}

func TestBlend_DirectPlusComparables(t *testing.T) {
	res := newTestBlender().Blend(Input{
		Estimates:   []Estimate{{Source: model.SourceDirect, Value: 500000}},
		Comparables: []model.ComparableSale{{Price: 480000, Sqft: 2000}},
		SubjectSqft: 2000,
	})

	// 500000*0.25/0.6 + 480000*0.35/0.6 = 488333.33
	assert.True(t, res.HasData)
	assert.InDelta(t, 488000, res.EstimatedValue, 0.001)
	assert.InDelta(t, 464000, res.ValueLow, 0.001)
	assert.InDelta(t, 512000, res.ValueHigh, 0.001)
	assert.Equal(t, 60, res.ConfidenceScore)

	require.Len(t, res.Methodology, 2)
	assert.Equal(t, model.SourceDirect, res.Methodology[0].Source)
	assert.InDelta(t, 0.4167, res.Methodology[0].NormalizedWeight, 0.0001)
	assert.Equal(t, model.SourceComparables, res.Methodology[1].Source)
	assert.InDelta(t, 480000, res.Methodology[1].Value, 0.001)
	assert.InDelta(t, 0.5833, res.Methodology[1].NormalizedWeight, 0.0001)
}

func TestBlend_NoSources(t *testing.T) {
	res := newTestBlender().Blend(Input{})
	assert.False(t, res.HasData)
	assert.Zero(t, res.EstimatedValue)
	assert.Zero(t, res.ConfidenceScore)
	assert.Empty(t, res.Methodology)

	res = newTestBlender().Blend(Input{Default: 350000})
	assert.False(t, res.HasData)
	assert.InDelta(t, 350000, res.EstimatedValue, 0.001)
	assert.InDelta(t, 350000, res.ValueLow, 0.001)
	assert.InDelta(t, 350000, res.ValueHigh, 0.001)
}

func TestBlend_IgnoresUnusableValues(t *testing.T) {
	res := newTestBlender().Blend(Input{
		Estimates: []Estimate{
			{Source: model.SourceDirect, Value: 0},
			{Source: model.SourceSecondary, Value: math.NaN()},
			{Source: model.SourceTaxAssessed, Value: math.Inf(1)},
		},
		Comparables: []model.ComparableSale{{Price: 400000}, {Sqft: 1500}},
		SubjectSqft: 1800,
		Default:     1,
	})
	assert.False(t, res.HasData)
	assert.InDelta(t, 1, res.EstimatedValue, 0.001)
}

func TestBlend_ComparablesNeedSubjectSqft(t *testing.T) {
	res := newTestBlender().Blend(Input{Comparables: comps(3, 300000, 1500)})
	assert.False(t, res.HasData)
}

func TestBlend_ComparablesOnly(t *testing.T) {
	res := newTestBlender().Blend(Input{
		Comparables: []model.ComparableSale{
			{Price: 300000, Sqft: 1500}, // 200/sqft
			{Price: 330000, Sqft: 1500}, // 220/sqft
			{Price: 0, Sqft: 1500},
		},
		SubjectSqft: 1750,
	})
	require.True(t, res.HasData)
	// mean 210/sqft * 1750 = 367500 -> 368000 (round half away from zero)
	assert.InDelta(t, 367500, res.Methodology[0].Value, 0.001)
	assert.InDelta(t, 368000, res.EstimatedValue, 0.001)
	assert.Equal(t, 50, res.ConfidenceScore, "two qualifying comps earn no bonus")
}

func TestBlend_TaxAssessedMultiplier(t *testing.T) {
	res := newTestBlender().Blend(Input{
		Estimates: []Estimate{{Source: model.SourceTaxAssessed, Value: 400000}},
	})
	require.Len(t, res.Methodology, 1)
	assert.InDelta(t, 460000, res.Methodology[0].Value, 0.001)
	assert.InDelta(t, 460000, res.EstimatedValue, 0.001)
	assert.Equal(t, 55, res.ConfidenceScore)
}

func TestBlend_FirstValueWinsPerSource(t *testing.T) {
	res := newTestBlender().Blend(Input{
		Estimates: []Estimate{
			{Source: model.SourceDirect, Value: 0},
			{Source: model.SourceDirect, Value: 410000},
			{Source: model.SourceDirect, Value: 999000},
		},
	})
	require.Len(t, res.Methodology, 1)
	assert.InDelta(t, 410000, res.EstimatedValue, 0.001)
}

func TestBlend_ConfidenceCapped(t *testing.T) {
	res := newTestBlender().Blend(Input{
		Estimates: []Estimate{
			{Source: model.SourceDirect, Value: 500000},
			{Source: model.SourceSecondary, Value: 510000},
			{Source: model.SourceTaxAssessed, Value: 400000},
		},
		Comparables: comps(5, 480000, 2000),
		SubjectSqft: 2000,
	})
	// 50 + 20 + 10 + 10 + 5 + 5 = 100, capped.
	assert.Equal(t, 98, res.ConfidenceScore)
	assert.Len(t, res.Methodology, 4)

	var sum float64
	for _, m := range res.Methodology {
		sum += m.NormalizedWeight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestBlend_RangeBracketsEstimate(t *testing.T) {
	b := newTestBlender()
	for _, v := range []float64{1, 999, 1500, 87654, 250000, 488333, 1234567, 9876543} {
		res := b.Blend(Input{Estimates: []Estimate{{Source: model.SourceDirect, Value: v}}})
		assert.LessOrEqual(t, res.ValueLow, res.EstimatedValue, "value %v", v)
		assert.LessOrEqual(t, res.EstimatedValue, res.ValueHigh, "value %v", v)
		assert.Zero(t, math.Mod(res.EstimatedValue, 1000), "value %v", v)
		if res.ValueLow >= 100000 {
			assert.InDelta(t, 1.05/0.95, res.ValueHigh/res.ValueLow, 0.02, "value %v", v)
		}
	}
}

func TestBlend_ConfidenceMonotonic(t *testing.T) {
	b := newTestBlender()
	steps := []Input{
		{Estimates: []Estimate{{Source: model.SourceDirect, Value: 500000}}},
		{
			Estimates:   []Estimate{{Source: model.SourceDirect, Value: 500000}},
			Comparables: comps(1, 480000, 2000), SubjectSqft: 2000,
		},
		{
			Estimates:   []Estimate{{Source: model.SourceDirect, Value: 500000}},
			Comparables: comps(3, 480000, 2000), SubjectSqft: 2000,
		},
		{
			Estimates: []Estimate{
				{Source: model.SourceDirect, Value: 500000},
				{Source: model.SourceSecondary, Value: 505000},
			},
			Comparables: comps(3, 480000, 2000), SubjectSqft: 2000,
		},
		{
			Estimates: []Estimate{
				{Source: model.SourceDirect, Value: 500000},
				{Source: model.SourceSecondary, Value: 505000},
				{Source: model.SourceTaxAssessed, Value: 420000},
			},
			Comparables: comps(3, 480000, 2000), SubjectSqft: 2000,
		},
	}

	prev := 0
	for i, in := range steps {
		res := b.Blend(in)
		assert.GreaterOrEqual(t, res.ConfidenceScore, 50, "step %d", i)
		assert.LessOrEqual(t, res.ConfidenceScore, 98, "step %d", i)
		assert.GreaterOrEqual(t, res.ConfidenceScore, prev, "step %d", i)
		prev = res.ConfidenceScore
	}
}
