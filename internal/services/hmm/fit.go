package hmm

import (
	"math"

	"QuantLab/internal/domain/quanterr"

	"gonum.org/v1/gonum/stat/distuv"
)

// FitOptions bound the EM loop. Zero values select the defaults.
type FitOptions struct {
	MaxIter   int
	Tolerance float64
}

func (o FitOptions) withDefaults() FitOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// FitResult holds the fitted parameters and the log-likelihood recorded at
// each EM iteration. Params always correspond to the last trace entry.
type FitResult struct {
	Params         Params
	LogLikelihoods []float64
	Converged      bool
}

// Iterations is the number of E-steps run.
func (r FitResult) Iterations() int { return len(r.LogLikelihoods) }

// FinalLogLikelihood is the last trace entry.
func (r FitResult) FinalLogLikelihood() float64 {
	if len(r.LogLikelihoods) == 0 {
		return math.Inf(-1)
	}
	return r.LogLikelihoods[len(r.LogLikelihoods)-1]
}

// Fit runs Baum-Welch from InitialParams. When the iteration cap is reached
// first, the best-effort result is returned together with a convergence
// error.
func Fit(obs []float64, k int, opts FitOptions) (FitResult, error) {
	const op = "hmm.fit"
	if err := checkShape(op, obs, k); err != nil {
		return FitResult{}, err
	}
	opts = opts.withDefaults()

	p := InitialParams(obs, k)
	ws := newWorkspace(len(obs), k)
	lls := make([]float64, 0, opts.MaxIter)
	converged := false

	for it := 0; it < opts.MaxIter; it++ {
		ll := ws.expect(obs, p)
		lls = append(lls, ll)
		if it > 0 && math.Abs(ll-lls[it-1]) < opts.Tolerance {
			converged = true
			break
		}
		if it == opts.MaxIter-1 {
			break
		}
		ws.maximize(obs, &p)
	}

	res := FitResult{Params: p, LogLikelihoods: lls, Converged: converged}
	if !converged {
		return res, quanterr.Convergence(op, "log-likelihood still moving after %d iterations", opts.MaxIter)
	}
	return res, nil
}

// LogLikelihood scores obs under p with one scaled forward pass.
func LogLikelihood(obs []float64, p Params) float64 {
	ws := newWorkspace(len(obs), p.NStates())
	ws.emissions(obs, p)
	return ws.forward(p)
}

// workspace holds every per-iteration buffer, row-major by time then state,
// so one fit allocates once.
type workspace struct {
	n, k  int
	emis  []float64 // exp(logB[t,j] - shift[t])
	shift []float64
	alpha []float64
	beta  []float64
	gamma []float64
	xi    []float64 // k*k, summed over t
	scale []float64
}

func newWorkspace(n, k int) *workspace {
	return &workspace{
		n:     n,
		k:     k,
		emis:  make([]float64, n*k),
		shift: make([]float64, n),
		alpha: make([]float64, n*k),
		beta:  make([]float64, n*k),
		gamma: make([]float64, n*k),
		xi:    make([]float64, k*k),
		scale: make([]float64, n),
	}
}

// emissions fills emis with Gaussian densities rescaled per step by the
// largest log density, which keeps the forward pass away from underflow.
func (w *workspace) emissions(obs []float64, p Params) {
	dists := make([]distuv.Normal, w.k)
	for j := range dists {
		dists[j] = distuv.Normal{Mu: p.Means[j], Sigma: p.Vols[j]}
	}
	for t, x := range obs {
		row := w.emis[t*w.k : (t+1)*w.k]
		m := math.Inf(-1)
		for j := range row {
			row[j] = dists[j].LogProb(x)
			if row[j] > m {
				m = row[j]
			}
		}
		for j := range row {
			row[j] = math.Exp(row[j] - m)
		}
		w.shift[t] = m
	}
}

// forward runs the scaled forward recursion and returns the log-likelihood.
func (w *workspace) forward(p Params) float64 {
	k := w.k
	ll := 0.0
	for t := 0; t < w.n; t++ {
		a := w.alpha[t*k : (t+1)*k]
		b := w.emis[t*k : (t+1)*k]
		for j := 0; j < k; j++ {
			if t == 0 {
				a[j] = p.Init[j] * b[j]
				continue
			}
			prev := w.alpha[(t-1)*k : t*k]
			s := 0.0
			for i := 0; i < k; i++ {
				s += prev[i] * p.Trans[i][j]
			}
			a[j] = s * b[j]
		}
		c := 0.0
		for _, v := range a {
			c += v
		}
		w.scale[t] = c
		for j := range a {
			a[j] /= c
		}
		ll += math.Log(c) + w.shift[t]
	}
	return ll
}

func (w *workspace) backward(p Params) {
	k := w.k
	last := w.beta[(w.n-1)*k:]
	for i := range last {
		last[i] = 1
	}
	for t := w.n - 2; t >= 0; t-- {
		cur := w.beta[t*k : (t+1)*k]
		next := w.beta[(t+1)*k : (t+2)*k]
		b := w.emis[(t+1)*k : (t+2)*k]
		c := w.scale[t+1]
		for i := 0; i < k; i++ {
			s := 0.0
			for j := 0; j < k; j++ {
				s += p.Trans[i][j] * b[j] * next[j]
			}
			cur[i] = s / c
		}
	}
}

// expect is the E-step: it fills gamma and the summed xi and returns the
// log-likelihood of obs under p.
func (w *workspace) expect(obs []float64, p Params) float64 {
	k := w.k
	w.emissions(obs, p)
	ll := w.forward(p)
	w.backward(p)

	for t := 0; t < w.n; t++ {
		g := w.gamma[t*k : (t+1)*k]
		a := w.alpha[t*k : (t+1)*k]
		bt := w.beta[t*k : (t+1)*k]
		for i := range g {
			g[i] = a[i] * bt[i]
		}
		normalize(g)
	}

	for i := range w.xi {
		w.xi[i] = 0
	}
	for t := 0; t < w.n-1; t++ {
		a := w.alpha[t*k : (t+1)*k]
		b := w.emis[(t+1)*k : (t+2)*k]
		next := w.beta[(t+1)*k : (t+2)*k]
		c := w.scale[t+1]
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				w.xi[i*k+j] += a[i] * p.Trans[i][j] * b[j] * next[j] / c
			}
		}
	}
	return ll
}

// maximize is the M-step. A state with no posterior mass keeps its previous
// emission parameters.
func (w *workspace) maximize(obs []float64, p *Params) {
	k := w.k
	for i := 0; i < k; i++ {
		p.Init[i] = w.gamma[i] + probFloor
	}
	normalize(p.Init)

	for i := 0; i < k; i++ {
		row := p.Trans[i]
		for j := 0; j < k; j++ {
			row[j] = w.xi[i*k+j] + probFloor
		}
		normalize(row)
	}

	for j := 0; j < k; j++ {
		weight, sum := 0.0, 0.0
		for t, x := range obs {
			g := w.gamma[t*k+j]
			weight += g
			sum += g * x
		}
		if weight < 1e-300 {
			continue
		}
		mean := sum / weight
		ss := 0.0
		for t, x := range obs {
			d := x - mean
			ss += w.gamma[t*k+j] * d * d
		}
		p.Means[j] = mean
		p.Vols[j] = math.Max(math.Sqrt(ss/weight), minVolatility)
	}
}
