package models

import (
	"bytes"
	"encoding/json"
	"math"
)

// PositionState is the spread position held over one bar.
type PositionState int8

const (
	ShortSpread PositionState = -1
	Flat        PositionState = 0
	LongSpread  PositionState = 1
)

func (s PositionState) String() string {
	switch s {
	case LongSpread:
		return "LONG_SPREAD"
	case ShortSpread:
		return "SHORT_SPREAD"
	default:
		return "FLAT"
	}
}

// Sign is +1 long spread, -1 short spread, 0 flat.
func (s PositionState) Sign() float64 { return float64(s) }

// CriticalValues are ADF thresholds keyed by significance level.
type CriticalValues struct {
	OnePct  float64 `json:"1%"`
	FivePct float64 `json:"5%"`
	TenPct  float64 `json:"10%"`
}

// Cointegration is the verdict for one pair: hedge regression plus the ADF
// test on its residual spread.
type Cointegration struct {
	ADFStatistic   float64        `json:"adf_statistic"`
	PValue         float64        `json:"p_value"`
	IsCointegrated bool           `json:"is_cointegrated"`
	HedgeRatio     float64        `json:"hedge_ratio"`
	Intercept      float64        `json:"intercept"`
	RSquared       float64        `json:"r_squared"`
	Lags           int            `json:"lags"`
	NObs           int            `json:"n_obs"`
	CriticalValues CriticalValues `json:"critical_values"`
}

type Thresholds struct {
	Entry    float64 `json:"entry"`
	Exit     float64 `json:"exit"`
	Lookback int     `json:"lookback"`
}

// BacktestResult summarises a simulated pairs strategy. Percent fields are
// scaled by 100.
type BacktestResult struct {
	CumulativeReturns []float64 `json:"cumulative_returns"`
	TotalReturn       float64   `json:"total_return"`
	SharpeRatio       float64   `json:"sharpe_ratio"`
	MaxDrawdown       float64   `json:"max_drawdown"`
	NTrades           int       `json:"n_trades"`
}

type PairsTimeSeries struct {
	Dates   []string        `json:"dates"`
	Prices1 []float64       `json:"prices1"`
	Prices2 []float64       `json:"prices2"`
	Spread  []float64       `json:"spread"`
	ZScore  NullableSeries  `json:"zscore"`
	Signals []PositionState `json:"signals"`
}

// PairsTradingResult is the full pairs pipeline output.
type PairsTradingResult struct {
	DataPoints    int             `json:"data_points"`
	Cointegration Cointegration   `json:"cointegration"`
	Thresholds    Thresholds      `json:"thresholds"`
	Backtest      BacktestResult  `json:"backtest"`
	TimeSeries    PairsTimeSeries `json:"time_series"`
}

// NullableSeries encodes NaN entries as JSON null.
type NullableSeries []float64

var null = []byte("null")

func (s NullableSeries) MarshalJSON() ([]byte, error) {
	if s == nil {
		return null, nil
	}
	vals := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) {
			vals[i] = &s[i]
		}
	}
	return json.Marshal(vals)
}

func (s *NullableSeries) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), null) {
		*s = nil
		return nil
	}
	var vals []*float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	out := make(NullableSeries, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	*s = out
	return nil
}
