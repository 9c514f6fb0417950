package pairs

import (
	"math"
	"math/rand/v2"
	"testing"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/domain/quanterr"
	"QuantLab/internal/services/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cointegratedPair builds p1 = 1.5*p2 + 10 + noise over a random walk p2.
func cointegratedPair(seed uint64, n int) (p1, p2 []float64) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	p1 = make([]float64, n)
	p2 = make([]float64, n)
	level := 100.0
	for i := 0; i < n; i++ {
		level += rng.NormFloat64()
		p2[i] = level
		p1[i] = 1.5*level + 10 + rng.NormFloat64()
	}
	return p1, p2
}

func TestAnalyzeCointegratedPair(t *testing.T) {
	p1, p2 := cointegratedPair(42, 300)
	res, err := Analyze(p1, p2, -1)
	require.NoError(t, err)

	c := res.Cointegration
	assert.InDelta(t, 1.5, c.HedgeRatio, 0.05)
	assert.True(t, c.IsCointegrated)
	assert.Less(t, c.PValue, 0.05)
	assert.Less(t, c.ADFStatistic, c.CriticalValues.FivePct)
	assert.Greater(t, c.RSquared, 0.9)
	require.Len(t, res.Spread, len(p1))
	assert.InDelta(t, p1[7]-c.HedgeRatio*p2[7]-c.Intercept, res.Spread[7], 1e-12)
}

func TestAnalyzeIdenticalSeriesIsDegenerate(t *testing.T) {
	p1, _ := cointegratedPair(1, 100)
	p2 := append([]float64(nil), p1...)
	_, err := Analyze(p1, p2, -1)
	assert.ErrorIs(t, err, quanterr.ErrDegenerateInput)
}

func TestAnalyzeErrors(t *testing.T) {
	p1, p2 := cointegratedPair(5, 60)
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 42
	}

	tests := []struct {
		name   string
		p1, p2 []float64
		want   error
	}{
		{"length mismatch", p1, p2[:50], quanterr.ErrInvalidParameter},
		{"too short", p1[:29], p2[:29], quanterr.ErrInsufficientData},
		{"constant first leg", flat, p2, quanterr.ErrDegenerateInput},
		{"constant second leg", p1, flat, quanterr.ErrDegenerateInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(tt.p1, tt.p2, -1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateSignalsSequence(t *testing.T) {
	got, err := GenerateSignals([]float64{0, 2.5, 2.0, 0.3, -0.1}, Thresholds{Entry: 2, Exit: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []models.PositionState{
		models.Flat, models.ShortSpread, models.ShortSpread, models.Flat, models.Flat,
	}, got)
}

func TestGenerateSignalsWarmUpForcesFlat(t *testing.T) {
	nan := math.NaN()
	got, err := GenerateSignals([]float64{nan, -3, -1, nan, -1, -2.1}, Thresholds{Entry: 2, Exit: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []models.PositionState{
		models.Flat, models.LongSpread, models.LongSpread, models.Flat, models.Flat, models.LongSpread,
	}, got)
}

func TestTransition(t *testing.T) {
	th := Thresholds{Entry: 2, Exit: 0.5}
	tests := []struct {
		prev models.PositionState
		z    float64
		want models.PositionState
	}{
		{models.Flat, -2, models.LongSpread},
		{models.Flat, 2, models.ShortSpread},
		{models.Flat, 1.9, models.Flat},
		{models.LongSpread, 0.5, models.Flat},
		{models.LongSpread, 3, models.LongSpread},
		{models.ShortSpread, -0.5, models.Flat},
		{models.ShortSpread, -3, models.ShortSpread},
	}
	for _, tt := range tests {
		t.Run(tt.prev.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, th.Transition(tt.prev, tt.z))
		})
	}
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, Thresholds{Entry: 2, Exit: 0}.Validate())
	assert.ErrorIs(t, Thresholds{Entry: 1, Exit: 1}.Validate(), quanterr.ErrInvalidParameter)
	assert.ErrorIs(t, Thresholds{Entry: 2, Exit: -0.1}.Validate(), quanterr.ErrInvalidParameter)

	_, err := GenerateSignals([]float64{0}, Thresholds{Entry: 0.5, Exit: 2})
	assert.ErrorIs(t, err, quanterr.ErrInvalidParameter)
}

func TestBacktestNeverOpens(t *testing.T) {
	p1, p2 := cointegratedPair(9, 50)
	states := make([]models.PositionState, 50)
	res, err := Backtest(p1, p2, 1.5, states)
	require.NoError(t, err)
	assert.Zero(t, res.TotalReturn)
	assert.Zero(t, res.NTrades)
	assert.Zero(t, res.SharpeRatio)
	assert.Zero(t, res.MaxDrawdown)
	require.Len(t, res.CumulativeReturns, 50)
	for _, c := range res.CumulativeReturns {
		assert.Equal(t, 1.0, c)
	}
}

func TestBacktestUsesPreviousBarPosition(t *testing.T) {
	p1 := []float64{100, 110, 121, 121}
	p2 := []float64{50, 50, 50, 50}
	states := []models.PositionState{models.Flat, models.LongSpread, models.LongSpread, models.Flat}

	res, err := Backtest(p1, p2, 0.5, states)
	require.NoError(t, err)
	// bar 1 was entered from FLAT, so only bar 2's move is earned.
	assert.InDeltaSlice(t, []float64{1, 1, 1 + 0.1/1.5, 1 + 0.1/1.5}, res.CumulativeReturns, 1e-12)
	assert.InDelta(t, 0.1/1.5*100, res.TotalReturn, 1e-9)
	assert.Equal(t, 1, res.NTrades)
	assert.Zero(t, res.MaxDrawdown)
}

func TestBacktestShortLosesOnRally(t *testing.T) {
	p1 := []float64{100, 100, 110}
	p2 := []float64{50, 50, 50}
	states := []models.PositionState{models.Flat, models.ShortSpread, models.ShortSpread}

	res, err := Backtest(p1, p2, 1, states)
	require.NoError(t, err)
	assert.InDelta(t, -5.0, res.TotalReturn, 1e-9)
	assert.InDelta(t, -5.0, res.MaxDrawdown, 1e-9)
	assert.Zero(t, res.NTrades, "position still open at the end")
}

func TestBacktestHedgesSecondLeg(t *testing.T) {
	p1 := []float64{100, 100, 104, 102}
	p2 := []float64{40, 40, 42, 41}
	states := []models.PositionState{models.Flat, models.LongSpread, models.LongSpread, models.Flat}

	res, err := Backtest(p1, p2, -2, states)
	require.NoError(t, err)
	r1 := features.SimpleReturns(p1)
	r2 := features.SimpleReturns(p2)
	// |hedge| sizes the legs, so a negative hedge still means unit notional
	step1 := (r1[1] + 2*r2[1]) / 3
	step2 := (r1[2] + 2*r2[2]) / 3
	want := []float64{1, 1, 1 + step1, (1 + step1) * (1 + step2)}
	assert.InDeltaSlice(t, want, res.CumulativeReturns, 1e-12)
	assert.Equal(t, 1, res.NTrades)
}

func TestBacktestErrors(t *testing.T) {
	_, err := Backtest([]float64{1, 2}, []float64{1}, 1, []models.PositionState{0, 0})
	assert.ErrorIs(t, err, quanterr.ErrInvalidParameter)
	_, err = Backtest(nil, nil, 1, nil)
	assert.ErrorIs(t, err, quanterr.ErrInsufficientData)
}

func TestCountTrades(t *testing.T) {
	s := []models.PositionState{
		models.Flat, models.LongSpread, models.ShortSpread, models.Flat, models.LongSpread,
	}
	assert.Equal(t, 2, CountTrades(s))
	assert.Zero(t, CountTrades(nil))
}
