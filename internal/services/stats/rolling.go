package stats

import (
	"iter"
	"math"

	"QuantLab/internal/domain/quanterr"

	"gonum.org/v1/gonum/stat"
)

// WindowFunc reduces one window of observations to a value.
type WindowFunc func(window []float64) float64

// Undefined is the warm-up placeholder emitted before a window fills.
func Undefined() float64 { return math.NaN() }

// IsUndefined reports whether v is the warm-up placeholder.
func IsUndefined(v float64) bool { return math.IsNaN(v) }

// Rolling is a single-pass iterator over trailing windows of a series. The
// window ending at index i covers series[i-window+1 : i+1], so it includes
// the current point. Indices before window-1 yield Undefined.
type Rolling struct {
	series []float64
	window int
	fn     WindowFunc
	pos    int
	cur    float64
}

// NewRolling returns an iterator positioned before the first point.
func NewRolling(series []float64, window int, fn WindowFunc) (*Rolling, error) {
	const op = "stats.rolling"
	if window < 1 {
		return nil, quanterr.InvalidParameter(op, "window must be positive, got %d", window)
	}
	if fn == nil {
		return nil, quanterr.InvalidParameter(op, "nil window function")
	}
	if len(series) < window {
		return nil, quanterr.InsufficientData(op, "series of %d points is shorter than window %d", len(series), window)
	}
	return &Rolling{series: series, window: window, fn: fn, pos: -1}, nil
}

// Next advances to the following point. It returns false once exhausted.
func (r *Rolling) Next() bool {
	if r.pos+1 >= len(r.series) {
		r.pos = len(r.series)
		return false
	}
	r.pos++
	if r.pos < r.window-1 {
		r.cur = Undefined()
	} else {
		r.cur = r.fn(r.series[r.pos-r.window+1 : r.pos+1])
	}
	return true
}

// Index is the position of the current value.
func (r *Rolling) Index() int { return r.pos }

// Value is the reduction of the window ending at Index.
func (r *Rolling) Value() float64 { return r.cur }

// All yields the remaining (index, value) pairs. Consuming it drains r.
func (r *Rolling) All() iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for r.Next() {
			if !yield(r.pos, r.cur) {
				return
			}
		}
	}
}

// Collect drains r into a slice aligned with the untouched tail of the series.
func (r *Rolling) Collect() []float64 {
	var out []float64
	if rest := len(r.series) - r.pos - 1; rest > 0 {
		out = make([]float64, 0, rest)
	}
	for _, v := range r.All() {
		out = append(out, v)
	}
	return out
}

// Mean is the arithmetic mean of a window.
func Mean(w []float64) float64 { return stat.Mean(w, nil) }

// SampleStd is the n-1 standard deviation of a window.
func SampleStd(w []float64) float64 {
	if len(w) < 2 {
		return 0
	}
	return stat.StdDev(w, nil)
}

// RollingMean is the trailing mean over window points.
func RollingMean(series []float64, window int) ([]float64, error) {
	r, err := NewRolling(series, window, Mean)
	if err != nil {
		return nil, err
	}
	return r.Collect(), nil
}

// RollingStd is the trailing sample standard deviation over window points.
func RollingStd(series []float64, window int) ([]float64, error) {
	r, err := NewRolling(series, window, SampleStd)
	if err != nil {
		return nil, err
	}
	return r.Collect(), nil
}

// RollingZScore standardises each point against its trailing window. A window
// with zero spread maps to 0.
func RollingZScore(series []float64, window int) ([]float64, error) {
	means, err := RollingMean(series, window)
	if err != nil {
		return nil, err
	}
	stds, err := RollingStd(series, window)
	if err != nil {
		return nil, err
	}
	z := make([]float64, len(series))
	for i, x := range series {
		switch {
		case IsUndefined(means[i]):
			z[i] = Undefined()
		case IsDegenerateVariance(stds[i]*stds[i], means[i]):
			z[i] = 0
		default:
			z[i] = (x - means[i]) / stds[i]
		}
	}
	return z, nil
}
