package models

// RegimeLabel names one hidden state.
type RegimeLabel struct {
	State       int    `json:"state"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// RegimeStatistics describes the bars decoded into one state. Return and
// volatility are annualized percentages.
type RegimeStatistics struct {
	State                int     `json:"state"`
	Label                string  `json:"label"`
	Days                 int     `json:"days"`
	PctTime              float64 `json:"pct_time"`
	AvgReturnAnnualized  float64 `json:"avg_return_annualized"`
	VolatilityAnnualized float64 `json:"volatility_annualized"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
}

// HMMParameters as reported to callers: means and volatilities are
// annualized percentages.
type HMMParameters struct {
	NStates             int         `json:"n_states"`
	Means               []float64   `json:"means"`
	Volatilities        []float64   `json:"volatilities"`
	TransitionMatrix    [][]float64 `json:"transition_matrix"`
	InitialDistribution []float64   `json:"initial_distribution"`
}

type Convergence struct {
	Iterations         int       `json:"iterations"`
	FinalLogLikelihood float64   `json:"final_log_likelihood"`
	LogLikelihoods     []float64 `json:"log_likelihoods"`
	Converged          bool      `json:"converged"`
	Warning            string    `json:"warning,omitempty"`
}

// RegimeTimeSeries is aligned to the return series: it starts one bar after
// the first price.
type RegimeTimeSeries struct {
	Dates   []string  `json:"dates"`
	Prices  []float64 `json:"prices"`
	States  []int     `json:"states"`
	Returns []float64 `json:"returns"`
}

// RegimeResult is the full regime pipeline output.
type RegimeResult struct {
	NStates            int                `json:"n_states"`
	DataPoints         int                `json:"data_points"`
	CurrentRegime      RegimeLabel        `json:"current_regime"`
	TotalTransitions   int                `json:"total_transitions"`
	AvgRegimeDuration  float64            `json:"avg_regime_duration"`
	// RealizedVolatility is the annualized volatility of the most recent
	// bars in percent, to compare against the current regime's.
	RealizedVolatility float64            `json:"realized_volatility"`
	RegimeStatistics   []RegimeStatistics `json:"regime_statistics"`
	RegimeLabels       []RegimeLabel      `json:"regime_labels"`
	HMMParameters      HMMParameters      `json:"hmm_parameters"`
	Convergence        Convergence        `json:"convergence"`
	TimeSeries         RegimeTimeSeries   `json:"time_series"`
}
