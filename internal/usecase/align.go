package usecase

import (
	"QuantLab/internal/domain/models"
	"QuantLab/pkg/util"

	"github.com/samber/lo"
)

// AlignCloses keeps only the dates present in both series, in ascending
// order. Both inputs must already be sorted by date.
func AlignCloses(a, b []models.PriceBar) (dates []string, p1, p2 []float64) {
	n := min(len(a), len(b))
	dates = make([]string, 0, n)
	p1 = make([]float64, 0, n)
	p2 = make([]float64, 0, n)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		da, db := util.Truncate(a[i].Date), util.Truncate(b[j].Date)
		switch {
		case da.Before(db):
			i++
		case db.Before(da):
			j++
		default:
			dates = append(dates, util.FormatDate(da))
			p1 = append(p1, a[i].Close)
			p2 = append(p2, b[j].Close)
			i++
			j++
		}
	}
	return dates, p1, p2
}

// SplitCloses turns bars into parallel date and close slices.
func SplitCloses(bars []models.PriceBar) (dates []string, closes []float64) {
	dates = make([]string, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		dates[i] = util.FormatDate(b.Date)
		closes[i] = b.Close
	}
	return dates, closes
}

// stride is the smallest step that keeps at most maxPoints of n samples.
func stride(n, maxPoints int) int {
	if maxPoints <= 0 || n <= maxPoints {
		return 1
	}
	return (n + maxPoints - 1) / maxPoints
}

func every[T any](s []T, step int) []T {
	if step <= 1 {
		return s
	}
	return lo.Filter(s, func(_ T, i int) bool { return i%step == 0 })
}

// DecimatePairs thins the chart series to at most maxPoints samples.
// Summary figures are computed on the full series and are untouched.
func DecimatePairs(res *models.PairsTradingResult, maxPoints int) {
	ts := &res.TimeSeries
	step := stride(len(ts.Dates), maxPoints)
	ts.Dates = every(ts.Dates, step)
	ts.Prices1 = every(ts.Prices1, step)
	ts.Prices2 = every(ts.Prices2, step)
	ts.Spread = every(ts.Spread, step)
	ts.ZScore = every(ts.ZScore, step)
	ts.Signals = every(ts.Signals, step)
	res.Backtest.CumulativeReturns = every(res.Backtest.CumulativeReturns, step)
}

// DecimateRegime thins the chart series to at most maxPoints samples.
func DecimateRegime(res *models.RegimeResult, maxPoints int) {
	ts := &res.TimeSeries
	step := stride(len(ts.Dates), maxPoints)
	ts.Dates = every(ts.Dates, step)
	ts.Prices = every(ts.Prices, step)
	ts.States = every(ts.States, step)
	ts.Returns = every(ts.Returns, step)
}
