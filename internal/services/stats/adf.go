package stats

import (
	"math"

	"QuantLab/internal/domain/quanterr"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinADFObservations is the shortest series ADFTest accepts.
const MinADFObservations = 20

// StationarityLevel is the p-value below which a series is called stationary.
const StationarityLevel = 0.05

// CriticalValues are the ADF test-statistic thresholds at 1%, 5% and 10%.
type CriticalValues struct {
	OnePct  float64 `json:"1%"`
	FivePct float64 `json:"5%"`
	TenPct  float64 `json:"10%"`
}

// ADFResult is the outcome of an augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic      float64        `json:"statistic"`
	PValue         float64        `json:"p_value"`
	IsStationary   bool           `json:"is_stationary"`
	Lags           int            `json:"lags"`
	NObs           int            `json:"n_obs"`
	CriticalValues CriticalValues `json:"critical_values"`
}

// DefaultADFLag is floor((n-1)^(1/3)).
func DefaultADFLag(n int) int {
	if n < 2 {
		return 0
	}
	return int(math.Floor(math.Cbrt(float64(n - 1))))
}

// ADFTest regresses Δy[t] on a constant, y[t-1] and maxLag lagged differences
// and returns the t-statistic on the y[t-1] coefficient. A negative maxLag
// selects DefaultADFLag.
func ADFTest(series []float64, maxLag int) (ADFResult, error) {
	const op = "stats.adf"
	n := len(series)
	if n < MinADFObservations {
		return ADFResult{}, quanterr.InsufficientData(op, "need at least %d observations, got %d", MinADFObservations, n)
	}
	p := maxLag
	if p < 0 {
		p = DefaultADFLag(n)
	}

	dy := make([]float64, n-1)
	for t := 0; t < n-1; t++ {
		dy[t] = series[t+1] - series[t]
	}

	m := n - 1 - p // regression rows
	k := 2 + p     // constant, level, p lagged differences
	if m-k < 1 {
		return ADFResult{}, quanterr.InsufficientData(op, "lag %d leaves %d observations for %d regressors", p, m, k)
	}

	X := mat.NewDense(m, k, nil)
	y := mat.NewVecDense(m, nil)
	for row := 0; row < m; row++ {
		t := row + p
		X.Set(row, 0, 1)
		X.Set(row, 1, series[t])
		for j := 1; j <= p; j++ {
			X.Set(row, 1+j, dy[t-j])
		}
		y.SetVec(row, dy[t])
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return ADFResult{}, quanterr.DegenerateInput(op, "singular design matrix: %v", err)
	}
	var xty mat.VecDense
	xty.MulVec(X.T(), y)
	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	rss := 0.0
	for i := 0; i < m; i++ {
		e := y.AtVec(i) - fitted.AtVec(i)
		rss += e * e
	}
	sigma2 := rss / float64(m-k)
	se := math.Sqrt(sigma2 * inv.At(1, 1))
	if sigma2 <= 0 || se == 0 || math.IsNaN(se) {
		return ADFResult{}, quanterr.DegenerateInput(op, "zero residual variance")
	}

	tstat := beta.AtVec(1) / se
	pv := MacKinnonPValue(tstat)
	return ADFResult{
		Statistic:      tstat,
		PValue:         pv,
		IsStationary:   pv < StationarityLevel,
		Lags:           p,
		NObs:           m,
		CriticalValues: MacKinnonCriticalValues(m),
	}, nil
}

// MacKinnon (1994) approximate asymptotic p-value surface for the
// single-series ADF regression with a constant and no trend.
var (
	tauMax       = 2.74
	tauMin       = -18.83
	tauStar      = -1.61
	tauSmallP    = [...]float64{2.1659, 1.4412, 0.038269}
	tauLargeP    = [...]float64{1.7339, 0.93202, -0.12745, -0.010368}
	standardNorm = distuv.UnitNormal
)

// MacKinnonPValue maps an ADF t-statistic to its approximate p-value.
func MacKinnonPValue(tstat float64) float64 {
	switch {
	case math.IsNaN(tstat):
		return math.NaN()
	case tstat > tauMax:
		return 1
	case tstat < tauMin:
		return 0
	}
	coef := tauLargeP[:]
	if tstat <= tauStar {
		coef = tauSmallP[:]
	}
	return standardNorm.CDF(polyval(coef, tstat))
}

// MacKinnonCriticalValues evaluates the MacKinnon (2010) finite-sample
// response surface for the constant, no-trend case at nobs observations.
func MacKinnonCriticalValues(nobs int) CriticalValues {
	inv := 1 / float64(nobs)
	return CriticalValues{
		OnePct:  polyval([]float64{-3.43035, -6.5393, -16.786, -79.433}, inv),
		FivePct: polyval([]float64{-2.86154, -2.8903, -4.234, -40.040}, inv),
		TenPct:  polyval([]float64{-2.56677, -1.5384, -2.809}, inv),
	}
}

// polyval evaluates c[0] + c[1]x + c[2]x^2 + ... by Horner's rule.
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
