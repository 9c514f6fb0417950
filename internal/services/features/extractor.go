package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SimpleReturns computes r_t = P_t / P_{t-1} - 1.
// It returns a slice of length len(prices)-1, or nil if insufficient data.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, prices[i]/prev-1)
	}
	return out
}

// LogReturns computes log returns r_t = ln(P_t / P_{t-1}).
// Non-positive prices yield a zero return for that step.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		cur := prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the annualized sample standard deviation of the
// last window returns, or 0 when fewer than window are available.
func RealizedVolatility(returns []float64, window int, barsPerYear float64) float64 {
	if window < 2 || len(returns) < window {
		return 0
	}
	return stat.StdDev(returns[len(returns)-window:], nil) * math.Sqrt(barsPerYear)
}

// BarsPerYear returns the approximate number of bars per year for a timeframe.
// Daily bars follow the trading calendar.
func BarsPerYear(tf string) float64 {
	switch tf {
	case "1m":
		return 252 * 390
	case "1h":
		return 252 * 6.5
	case "1d":
		return 252
	case "1w":
		return 52
	default:
		return 252
	}
}
