// Package analytics exposes the two analysis entry points over the
// numerical packages: the pairs pipeline and regime detection.
package analytics

import (
	"context"
	"errors"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/domain/quanterr"
	domsvc "QuantLab/internal/domain/service"
	"QuantLab/internal/services/features"
	"QuantLab/internal/services/hmm"
	"QuantLab/internal/services/pairs"
	"QuantLab/pkg/config"
)

// RealizedVolWindow is the trailing bar count behind
// RegimeResult.RealizedVolatility.
const RealizedVolWindow = 20

// Engine is stateless between calls; one value may serve any number of
// goroutines.
type Engine struct {
	lookback       int
	adfMaxLag      int
	emMaxIter      int
	emTolerance    float64
	periodsPerYear int
}

// NewEngine reads the engine section of cfg, falling back to the built-in
// defaults for unset fields.
func NewEngine(cfg *config.Config) *Engine {
	e := &Engine{
		lookback:       20,
		adfMaxLag:      -1,
		emMaxIter:      hmm.DefaultMaxIter,
		emTolerance:    hmm.DefaultTolerance,
		periodsPerYear: 252,
	}
	if cfg == nil {
		return e
	}
	ec := cfg.Engine
	if ec.ZScoreLookback > 0 {
		e.lookback = ec.ZScoreLookback
	}
	if ec.ADFMaxLag != nil {
		e.adfMaxLag = *ec.ADFMaxLag
	}
	if ec.EMMaxIterations > 0 {
		e.emMaxIter = ec.EMMaxIterations
	}
	if ec.EMTolerance > 0 {
		e.emTolerance = ec.EMTolerance
	}
	if ec.PeriodsPerYear > 0 {
		e.periodsPerYear = ec.PeriodsPerYear
	}
	return e
}

// AnalyzeCointegration tests the pair for cointegration, derives z-score
// signals on the spread and backtests them.
func (e *Engine) AnalyzeCointegration(ctx context.Context, in domsvc.PairsInput) (models.PairsTradingResult, error) {
	const op = "analytics.pairs"
	if err := ctx.Err(); err != nil {
		return models.PairsTradingResult{}, err
	}
	if len(in.Dates) != len(in.Prices1) {
		return models.PairsTradingResult{}, quanterr.InvalidParameter(op, "%d dates for %d prices", len(in.Dates), len(in.Prices1))
	}
	th := pairs.Thresholds{Entry: in.Entry, Exit: in.Exit}
	if err := th.Validate(); err != nil {
		return models.PairsTradingResult{}, err
	}
	lookback := in.Lookback
	if lookback <= 0 {
		lookback = e.lookback
	}
	if lookback < 2 {
		return models.PairsTradingResult{}, quanterr.InvalidParameter(op, "lookback must be at least 2, got %d", lookback)
	}

	an, err := pairs.Analyze(in.Prices1, in.Prices2, e.adfMaxLag)
	if err != nil {
		return models.PairsTradingResult{}, err
	}
	z, err := pairs.ZScore(an.Spread, lookback)
	if err != nil {
		return models.PairsTradingResult{}, err
	}
	signals, err := pairs.GenerateSignals(z, th)
	if err != nil {
		return models.PairsTradingResult{}, err
	}
	bt, err := pairs.Backtest(in.Prices1, in.Prices2, an.Cointegration.HedgeRatio, signals)
	if err != nil {
		return models.PairsTradingResult{}, err
	}

	return models.PairsTradingResult{
		DataPoints:    len(in.Prices1),
		Cointegration: an.Cointegration,
		Thresholds:    models.Thresholds{Entry: in.Entry, Exit: in.Exit, Lookback: lookback},
		Backtest:      bt,
		TimeSeries: models.PairsTimeSeries{
			Dates:   append([]string(nil), in.Dates...),
			Prices1: append([]float64(nil), in.Prices1...),
			Prices2: append([]float64(nil), in.Prices2...),
			Spread:  an.Spread,
			ZScore:  z,
			Signals: signals,
		},
	}, nil
}

// DetectRegimes fits a Gaussian HMM to the log returns of prices and decodes
// the regime path. Hitting the EM iteration cap is reported in the result's
// convergence block, not as an error.
func (e *Engine) DetectRegimes(ctx context.Context, in domsvc.RegimeInput) (models.RegimeResult, error) {
	const op = "analytics.regimes"
	if err := ctx.Err(); err != nil {
		return models.RegimeResult{}, err
	}
	if len(in.Dates) != len(in.Prices) {
		return models.RegimeResult{}, quanterr.InvalidParameter(op, "%d dates for %d prices", len(in.Dates), len(in.Prices))
	}
	if len(in.Prices) < 2 {
		return models.RegimeResult{}, quanterr.InsufficientData(op, "need at least 2 prices, got %d", len(in.Prices))
	}

	returns := features.LogReturns(in.Prices)
	fit, err := hmm.Fit(returns, in.NStates, hmm.FitOptions{MaxIter: e.emMaxIter, Tolerance: e.emTolerance})
	warning := ""
	if err != nil {
		if !errors.Is(err, quanterr.ErrConvergence) {
			return models.RegimeResult{}, err
		}
		warning = err.Error()
	}

	states, err := hmm.Decode(returns, fit.Params)
	if err != nil {
		return models.RegimeResult{}, err
	}
	ppy := e.periodsPerYear
	if in.PeriodsPerYear > 0 {
		ppy = in.PeriodsPerYear
	}
	labels := hmm.Labels(fit.Params, ppy)
	transitions := hmm.Transitions(states)

	pct := make([]float64, len(returns))
	for i, r := range returns {
		pct[i] = r * 100
	}

	return models.RegimeResult{
		NStates:            in.NStates,
		DataPoints:         len(returns),
		CurrentRegime:      labels[states[len(states)-1]],
		TotalTransitions:   transitions,
		AvgRegimeDuration:  float64(len(returns)) / float64(max(transitions, 1)),
		RealizedVolatility: features.RealizedVolatility(returns, RealizedVolWindow, float64(ppy)) * 100,
		RegimeStatistics:   hmm.Statistics(returns, states, labels, ppy),
		RegimeLabels:       labels,
		HMMParameters:      hmm.Report(fit.Params, ppy),
		Convergence: models.Convergence{
			Iterations:         fit.Iterations(),
			FinalLogLikelihood: fit.FinalLogLikelihood(),
			LogLikelihoods:     fit.LogLikelihoods,
			Converged:          fit.Converged,
			Warning:            warning,
		},
		TimeSeries: models.RegimeTimeSeries{
			Dates:   append([]string(nil), in.Dates[1:]...),
			Prices:  append([]float64(nil), in.Prices[1:]...),
			States:  states,
			Returns: pct,
		},
	}, nil
}

var (
	_ domsvc.PairsAnalyzer  = (*Engine)(nil)
	_ domsvc.RegimeDetector = (*Engine)(nil)
)
