package hmm

import (
	"math"
	"math/rand/v2"
	"testing"

	"QuantLab/internal/domain/quanterr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoRegimes splices 500 calm positive-drift draws with 500 volatile
// negative-drift draws.
func twoRegimes(seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed*31+7))
	out := make([]float64, 0, 1000)
	for i := 0; i < 500; i++ {
		out = append(out, 0.001+0.01*rng.NormFloat64())
	}
	for i := 0; i < 500; i++ {
		out = append(out, -0.002+0.03*rng.NormFloat64())
	}
	return out
}

func fitOrConverge(t *testing.T, obs []float64, k int) FitResult {
	t.Helper()
	res, err := Fit(obs, k, FitOptions{})
	if err != nil {
		require.ErrorIs(t, err, quanterr.ErrConvergence)
	}
	require.NotEmpty(t, res.LogLikelihoods)
	return res
}

func rowSumError(p Params) float64 {
	worst := 0.0
	check := func(xs []float64) {
		s := 0.0
		for _, x := range xs {
			s += x
		}
		worst = math.Max(worst, math.Abs(s-1))
	}
	for _, row := range p.Trans {
		check(row)
	}
	check(p.Init)
	return worst
}

func TestFitTwoRegimes(t *testing.T) {
	obs := twoRegimes(2024)
	res := fitOrConverge(t, obs, 2)

	lls := res.LogLikelihoods
	for i := 1; i < len(lls); i++ {
		assert.GreaterOrEqual(t, lls[i], lls[i-1]-1e-6, "iteration %d", i)
	}
	assert.Equal(t, lls[len(lls)-1], res.FinalLogLikelihood())
	assert.InDelta(t, LogLikelihood(obs, res.Params), res.FinalLogLikelihood(), 1e-9)

	p := res.Params
	calm, wild := 0, 1
	if p.Vols[1] < p.Vols[0] {
		calm, wild = 1, 0
	}
	assert.InDelta(t, 0.01, p.Vols[calm], 0.002)
	assert.InDelta(t, 0.03, p.Vols[wild], 0.005)
	assert.LessOrEqual(t, rowSumError(p), 1e-9)

	states, err := Decode(obs, p)
	require.NoError(t, err)
	require.Len(t, states, len(obs))

	boundary := -1
	for i := 0; i+20 <= len(states); i++ {
		switched := true
		for _, s := range states[i : i+20] {
			if s == calm {
				switched = false
				break
			}
		}
		if switched {
			boundary = i
			break
		}
	}
	assert.InDelta(t, 500, boundary, 15)
}

func TestFitIsDeterministic(t *testing.T) {
	obs := twoRegimes(7)
	a, errA := Fit(obs, 3, FitOptions{})
	b, errB := Fit(obs, 3, FitOptions{})
	assert.Equal(t, errA == nil, errB == nil)
	assert.Equal(t, a, b)
}

func TestFitIterationCap(t *testing.T) {
	obs := twoRegimes(11)
	res, err := Fit(obs, 2, FitOptions{MaxIter: 2})
	require.ErrorIs(t, err, quanterr.ErrConvergence)
	assert.False(t, res.Converged)
	assert.Equal(t, 2, res.Iterations())
	assert.InDelta(t, LogLikelihood(obs, res.Params), res.FinalLogLikelihood(), 1e-9)
	assert.LessOrEqual(t, rowSumError(res.Params), 1e-9)
}

func TestFitRejectsBadShape(t *testing.T) {
	obs := twoRegimes(1)
	_, err := Fit(obs, 1, FitOptions{})
	assert.ErrorIs(t, err, quanterr.ErrInvalidParameter)
	_, err = Fit(obs, 5, FitOptions{})
	assert.ErrorIs(t, err, quanterr.ErrInvalidParameter)
	_, err = Fit(obs[:39], 4, FitOptions{})
	assert.ErrorIs(t, err, quanterr.ErrInsufficientData)

	bad := append([]float64(nil), obs[:40]...)
	bad[3] = math.NaN()
	_, err = Fit(bad, 2, FitOptions{})
	assert.ErrorIs(t, err, quanterr.ErrInvalidParameter)
}

func TestInitialParams(t *testing.T) {
	obs := []float64{4, 1, 3, 2, 6, 5}
	p := InitialParams(obs, 2)
	assert.Equal(t, []float64{2, 5}, p.Means)
	assert.InDelta(t, 3*p.Vols[1], p.Vols[0], 1e-12)
	assert.Equal(t, []float64{0.5, 0.5}, p.Init)
	assert.InDeltaSlice(t, []float64{0.9, 0.1}, p.Trans[0], 1e-12)

	p3 := InitialParams(obs, 3)
	assert.InDeltaSlice(t, []float64{0.05, 0.9, 0.05}, p3.Trans[1], 1e-12)
	assert.Equal(t, []float64{1.5, 3.5, 5.5}, p3.Means)
	assert.InDelta(t, 1.5*p3.Vols[1], p3.Vols[0], 1e-12)
}

func TestDecodeTiesPreferLowerState(t *testing.T) {
	p := Params{
		Means: []float64{0, 0},
		Vols:  []float64{0.01, 0.01},
		Trans: [][]float64{{0.5, 0.5}, {0.5, 0.5}},
		Init:  []float64{0.5, 0.5},
	}
	states, err := Decode([]float64{0.01, -0.02, 0.003}, p)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, states)

	_, err = Decode(nil, p)
	assert.ErrorIs(t, err, quanterr.ErrInsufficientData)
}

func TestDecodeFollowsEmissions(t *testing.T) {
	p := Params{
		Means: []float64{-0.05, 0.05},
		Vols:  []float64{0.01, 0.01},
		Trans: [][]float64{{0.9, 0.1}, {0.1, 0.9}},
		Init:  []float64{0.5, 0.5},
	}
	states, err := Decode([]float64{-0.05, -0.04, 0.05, 0.06, 0.05}, p)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1, 1}, states)
	assert.Equal(t, 1, Transitions(states))
}

func TestLabels(t *testing.T) {
	two := Labels(Params{Means: []float64{-0.002, 0.001}, Vols: []float64{0.03, 0.01}}, 252)
	assert.Equal(t, LabelBearCrisis, two[0].Label)
	assert.Equal(t, LabelBull, two[1].Label)

	three := Labels(Params{
		Means: []float64{0, -0.001, 0.002},
		Vols:  []float64{0.02, 0.01, 0.015},
	}, 252)
	assert.Equal(t, LabelVolatile, three[0].Label)
	assert.Equal(t, LabelBear, three[1].Label)
	assert.Equal(t, LabelHighVolBull, three[2].Label)
	assert.Equal(t, "Avg Return: -25.2%, Vol: 15.9%", three[1].Description)
	for s, l := range three {
		assert.Equal(t, s, l.State)
	}
}

func TestLabelsWithoutVolatilitySpread(t *testing.T) {
	flat := Labels(Params{Means: []float64{-0.001, 0, 0.001}, Vols: []float64{0.01, 0.01, 0.01}}, 252)
	assert.Equal(t, LabelBear, flat[0].Label)
	assert.Equal(t, LabelNeutral, flat[1].Label)
	assert.Equal(t, LabelBull, flat[2].Label)

	same := Labels(Params{Means: []float64{0, 0, 0}, Vols: []float64{1e-5, 1e-5, 1e-5}}, 252)
	for _, l := range same {
		assert.Equal(t, LabelNeutral, l.Label)
	}
}

func TestStatistics(t *testing.T) {
	labels := Labels(Params{Means: []float64{0.01, 0.005}, Vols: []float64{0.01, 0.02}}, 252)
	got := Statistics([]float64{0.01, 0.01, -0.02, 0.03}, []int{0, 0, 1, 1}, labels, 252)
	require.Len(t, got, 2)

	assert.Equal(t, 2, got[0].Days)
	assert.InDelta(t, 50.0, got[0].PctTime, 1e-12)
	assert.InDelta(t, 252.0, got[0].AvgReturnAnnualized, 1e-9)
	assert.InDelta(t, 0.0, got[0].VolatilityAnnualized, 1e-9)
	assert.Zero(t, got[0].SharpeRatio)

	assert.InDelta(t, 126.0, got[1].AvgReturnAnnualized, 1e-9)
	assert.InDelta(t, 0.025*math.Sqrt(252)*100, got[1].VolatilityAnnualized, 1e-9)
	assert.Equal(t, labels[1].Label, got[1].Label)

	only := Statistics([]float64{0.01, 0.02}, []int{0, 0}, labels, 252)
	require.Len(t, only, 1)
	assert.Equal(t, 0, only[0].State)
}

func TestReportAnnualizes(t *testing.T) {
	p := InitialParams(twoRegimes(3), 2)
	r := Report(p, 252)
	assert.Equal(t, 2, r.NStates)
	assert.InDelta(t, p.Means[0]*252*100, r.Means[0], 1e-12)
	assert.InDelta(t, p.Vols[1]*math.Sqrt(252)*100, r.Volatilities[1], 1e-12)

	r.TransitionMatrix[0][0] = 0
	assert.Equal(t, 0.9, p.Trans[0][0], "report must not alias params")
}
