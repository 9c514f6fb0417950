package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualises daily figures.
const TradingDaysPerYear = 252

// PopMeanStd returns the mean and population standard deviation of xs.
func PopMeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean = stat.Mean(xs, nil)
	return mean, math.Sqrt(stat.MomentAbout(2, xs, mean, nil))
}

// SharpeRatio is mean/std scaled by sqrt(periodsPerYear), with a zero risk
// free rate. A flat or empty return stream scores 0.
func SharpeRatio(returns []float64, periodsPerYear int) float64 {
	mean, std := PopMeanStd(returns)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(float64(periodsPerYear))
}

// MaxDrawdown is the deepest peak-to-trough fall of a cumulative wealth
// curve as a fraction of the peak. It is <= 0.
func MaxDrawdown(cum []float64) float64 {
	if len(cum) == 0 {
		return 0
	}
	peak := cum[0]
	worst := 0.0
	for _, c := range cum {
		if c > peak {
			peak = c
		}
		if peak <= 0 {
			continue
		}
		if dd := (c - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// CumulativeWealth compounds returns from a starting value of 1. The result
// has len(returns)+1 points.
func CumulativeWealth(returns []float64) []float64 {
	cum := make([]float64, len(returns)+1)
	cum[0] = 1
	for i, r := range returns {
		cum[i+1] = cum[i] * (1 + r)
	}
	return cum
}

// AnnualizeReturn scales a per-period mean return.
func AnnualizeReturn(mean float64, periodsPerYear int) float64 {
	return mean * float64(periodsPerYear)
}

// AnnualizeVolatility scales a per-period standard deviation.
func AnnualizeVolatility(std float64, periodsPerYear int) float64 {
	return std * math.Sqrt(float64(periodsPerYear))
}
