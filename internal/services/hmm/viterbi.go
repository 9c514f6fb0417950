package hmm

import (
	"math"

	"QuantLab/internal/domain/quanterr"

	"gonum.org/v1/gonum/stat/distuv"
)

// Decode returns the single most likely state path for obs under p. Ties
// resolve to the lower state index.
func Decode(obs []float64, p Params) ([]int, error) {
	const op = "hmm.decode"
	n, k := len(obs), p.NStates()
	if n == 0 {
		return nil, quanterr.InsufficientData(op, "empty observation sequence")
	}
	if k == 0 {
		return nil, quanterr.InvalidParameter(op, "model has no states")
	}

	logA := make([]float64, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			logA[i*k+j] = math.Log(p.Trans[i][j])
		}
	}
	dists := make([]distuv.Normal, k)
	for j := range dists {
		dists[j] = distuv.Normal{Mu: p.Means[j], Sigma: p.Vols[j]}
	}

	delta := make([]float64, n*k)
	psi := make([]int, n*k)
	for j := 0; j < k; j++ {
		delta[j] = math.Log(p.Init[j]) + dists[j].LogProb(obs[0])
	}
	for t := 1; t < n; t++ {
		prev := delta[(t-1)*k : t*k]
		for j := 0; j < k; j++ {
			best, arg := math.Inf(-1), 0
			for i := 0; i < k; i++ {
				if v := prev[i] + logA[i*k+j]; v > best {
					best, arg = v, i
				}
			}
			delta[t*k+j] = best + dists[j].LogProb(obs[t])
			psi[t*k+j] = arg
		}
	}

	path := make([]int, n)
	last := delta[(n-1)*k:]
	best := math.Inf(-1)
	for j, v := range last {
		if v > best {
			best, path[n-1] = v, j
		}
	}
	for t := n - 1; t > 0; t-- {
		path[t-1] = psi[t*k+path[t]]
	}
	return path, nil
}

// Transitions counts the steps where the state changes.
func Transitions(states []int) int {
	n := 0
	for t := 1; t < len(states); t++ {
		if states[t] != states[t-1] {
			n++
		}
	}
	return n
}
