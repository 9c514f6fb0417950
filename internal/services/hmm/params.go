// Package hmm fits a Gaussian-emission hidden Markov model to a return
// series with Baum-Welch and decodes the most likely state path.
package hmm

import (
	"math"
	"sort"

	"QuantLab/internal/domain/quanterr"
	"QuantLab/internal/services/stats"
)

const (
	MinStates = 2
	MaxStates = 4

	// MinObservationsPerState scales the required sample with K.
	MinObservationsPerState = 10

	DefaultMaxIter   = 100
	DefaultTolerance = 1e-6

	selfTransition = 0.9
	minVolatility  = 1e-5
	probFloor      = 1e-10
)

// Params is a K-state Gaussian HMM. Trans is row-stochastic and Init sums
// to one.
type Params struct {
	Means []float64
	Vols  []float64
	Trans [][]float64
	Init  []float64
}

// NStates is K.
func (p Params) NStates() int { return len(p.Means) }

// Clone returns a deep copy.
func (p Params) Clone() Params {
	c := Params{
		Means: append([]float64(nil), p.Means...),
		Vols:  append([]float64(nil), p.Vols...),
		Init:  append([]float64(nil), p.Init...),
		Trans: make([][]float64, len(p.Trans)),
	}
	for i, row := range p.Trans {
		c.Trans[i] = append([]float64(nil), row...)
	}
	return c
}

func checkShape(op string, obs []float64, k int) error {
	if k < MinStates || k > MaxStates {
		return quanterr.InvalidParameter(op, "n_states must be between %d and %d, got %d", MinStates, MaxStates, k)
	}
	if need := MinObservationsPerState * k; len(obs) < need {
		return quanterr.InsufficientData(op, "need at least %d returns for %d states, got %d", need, k, len(obs))
	}
	for i, x := range obs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return quanterr.InvalidParameter(op, "observation %d is not finite", i)
		}
	}
	return nil
}

// InitialParams seeds EM: state means are the means of K equal quantile
// buckets of the sorted sample. Volatilities start from the sample
// volatility tilted from 1.5x for the lowest-mean bucket down to 0.5x for the
// highest, so falling markets begin as the turbulent states. Transitions are
// sticky (0.9 on the diagonal) and the initial distribution is uniform.
func InitialParams(obs []float64, k int) Params {
	sorted := append([]float64(nil), obs...)
	sort.Float64s(sorted)

	_, std := stats.PopMeanStd(obs)

	n := len(sorted)
	p := Params{
		Means: make([]float64, k),
		Vols:  make([]float64, k),
		Trans: make([][]float64, k),
		Init:  make([]float64, k),
	}
	for i := 0; i < k; i++ {
		lo, hi := i*n/k, (i+1)*n/k
		p.Means[i] = stats.Mean(sorted[lo:hi])
		p.Vols[i] = math.Max(std*(1.5-float64(i)/float64(k-1)), minVolatility)
		p.Init[i] = 1 / float64(k)

		row := make([]float64, k)
		for j := range row {
			if i == j {
				row[j] = selfTransition
			} else {
				row[j] = (1 - selfTransition) / float64(k-1)
			}
		}
		normalize(row)
		p.Trans[i] = row
	}
	return p
}

// normalize scales xs in place to sum to one.
func normalize(xs []float64) {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	if s == 0 {
		return
	}
	for i := range xs {
		xs[i] /= s
	}
}
