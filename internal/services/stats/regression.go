package stats

import (
	"QuantLab/internal/domain/quanterr"

	"gonum.org/v1/gonum/stat"
)

// Regression is a single-predictor least squares fit y = Intercept + Slope*x.
type Regression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

// minRegressionPoints is the smallest sample OLS accepts.
const minRegressionPoints = 3

// OLS regresses y on x with an intercept.
func OLS(x, y []float64) (Regression, error) {
	const op = "stats.ols"
	if len(x) != len(y) {
		return Regression{}, quanterr.InvalidParameter(op, "length mismatch: x=%d y=%d", len(x), len(y))
	}
	if len(x) < minRegressionPoints {
		return Regression{}, quanterr.InsufficientData(op, "need at least %d points, got %d", minRegressionPoints, len(x))
	}
	mx, vx := stat.MeanVariance(x, nil)
	if IsDegenerateVariance(vx, mx) {
		return Regression{}, quanterr.DegenerateInput(op, "predictor has zero variance")
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := 0.0
	my, vy := stat.MeanVariance(y, nil)
	if !IsDegenerateVariance(vy, my) {
		r2 = stat.RSquared(x, y, nil, alpha, beta)
	}
	return Regression{Slope: beta, Intercept: alpha, RSquared: r2}, nil
}

// IsDegenerateVariance reports whether a variance is zero relative to the
// magnitude of its mean, absorbing round-off from the mean computation.
func IsDegenerateVariance(variance, mean float64) bool {
	return variance <= 1e-20*(1+mean*mean)
}
