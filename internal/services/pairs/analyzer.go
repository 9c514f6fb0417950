// Package pairs implements the two-leg mean reversion pipeline: hedge
// regression and cointegration test, z-score signals, and the backtest.
package pairs

import (
	"QuantLab/internal/domain/models"
	"QuantLab/internal/domain/quanterr"
	"QuantLab/internal/services/stats"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MinObservations is the shortest pair history Analyze accepts.
const MinObservations = 30

// residualFloor is the smallest SSR/SST ratio treated as a real spread.
const residualFloor = 1e-12

// Analysis is the cointegration verdict together with the spread it was
// computed on.
type Analysis struct {
	Cointegration models.Cointegration
	Spread        []float64
}

// Analyze regresses prices1 on prices2, builds the residual spread and runs
// the ADF test on it. maxLag < 0 selects the default lag rule.
func Analyze(prices1, prices2 []float64, maxLag int) (Analysis, error) {
	const op = "pairs.analyze"
	if len(prices1) != len(prices2) {
		return Analysis{}, quanterr.InvalidParameter(op, "series lengths differ: %d vs %d", len(prices1), len(prices2))
	}
	if len(prices1) < MinObservations {
		return Analysis{}, quanterr.InsufficientData(op, "need at least %d aligned prices, got %d", MinObservations, len(prices1))
	}
	m1, v1 := stat.MeanVariance(prices1, nil)
	if stats.IsDegenerateVariance(v1, m1) {
		return Analysis{}, quanterr.DegenerateInput(op, "first series is constant")
	}

	reg, err := stats.OLS(prices2, prices1)
	if err != nil {
		return Analysis{}, err
	}

	spread := Spread(prices1, prices2, reg.Slope, reg.Intercept)
	sst := v1 * float64(len(prices1)-1)
	if floats.Dot(spread, spread)/sst < residualFloor {
		return Analysis{}, quanterr.DegenerateInput(op, "zero residual variance: series are collinear")
	}

	adf, err := stats.ADFTest(spread, maxLag)
	if err != nil {
		return Analysis{}, err
	}

	cv := adf.CriticalValues
	return Analysis{
		Cointegration: models.Cointegration{
			ADFStatistic:   adf.Statistic,
			PValue:         adf.PValue,
			IsCointegrated: adf.IsStationary,
			HedgeRatio:     reg.Slope,
			Intercept:      reg.Intercept,
			RSquared:       reg.RSquared,
			Lags:           adf.Lags,
			NObs:           adf.NObs,
			CriticalValues: models.CriticalValues{OnePct: cv.OnePct, FivePct: cv.FivePct, TenPct: cv.TenPct},
		},
		Spread: spread,
	}, nil
}

// Spread is price1 - hedge*price2 - intercept.
func Spread(prices1, prices2 []float64, hedge, intercept float64) []float64 {
	out := make([]float64, len(prices1))
	for i := range prices1 {
		out[i] = prices1[i] - hedge*prices2[i] - intercept
	}
	return out
}

// ZScore standardises the spread against a trailing window of lookback bars.
func ZScore(spread []float64, lookback int) ([]float64, error) {
	return stats.RollingZScore(spread, lookback)
}
