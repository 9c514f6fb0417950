package pairs

import (
	"math"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/domain/quanterr"
	"QuantLab/internal/services/features"
	"QuantLab/internal/services/stats"
)

// Backtest simulates holding one unit of spread whenever states is not
// FLAT. The return earned over bar t uses the position chosen at t-1, so a
// signal never trades on its own bar. Each leg pair is sized to unit gross
// notional by dividing by 1+|hedge|.
func Backtest(prices1, prices2 []float64, hedge float64, states []models.PositionState) (models.BacktestResult, error) {
	const op = "pairs.backtest"
	n := len(prices1)
	if len(prices2) != n || len(states) != n {
		return models.BacktestResult{}, quanterr.InvalidParameter(op,
			"length mismatch: prices1=%d prices2=%d states=%d", n, len(prices2), len(states))
	}
	if n == 0 {
		return models.BacktestResult{}, quanterr.InsufficientData(op, "empty price series")
	}

	scale := 1 + math.Abs(hedge)
	r1 := features.SimpleReturns(prices1)
	r2 := features.SimpleReturns(prices2)
	strat := make([]float64, n-1)
	for t := 1; t < n; t++ {
		pos := states[t-1]
		if pos == models.Flat {
			continue
		}
		strat[t-1] = pos.Sign() * (r1[t-1] - hedge*r2[t-1]) / scale
	}

	cum := stats.CumulativeWealth(strat)
	return models.BacktestResult{
		CumulativeReturns: cum,
		TotalReturn:       (cum[len(cum)-1] - 1) * 100,
		SharpeRatio:       stats.SharpeRatio(strat, stats.TradingDaysPerYear),
		MaxDrawdown:       stats.MaxDrawdown(cum) * 100,
		NTrades:           CountTrades(states),
	}, nil
}

// CountTrades counts closed round trips: every bar where an open position is
// exited to FLAT or flipped to the opposite side. A position still open on
// the last bar is not counted.
func CountTrades(states []models.PositionState) int {
	trades := 0
	for t := 1; t < len(states); t++ {
		prev, cur := states[t-1], states[t]
		if prev != models.Flat && cur != prev {
			trades++
		}
	}
	return trades
}
