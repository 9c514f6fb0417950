package models

import "QuantLab/pkg/util"

// Requests for the analysis HTTP endpoints and the Kafka request topic.
// Price arrays are validated for shape only; length and variance checks
// belong to the engine so they map to 422 rather than 400.

type PairsRequest struct {
	Dates     []string  `json:"dates" validate:"required"`
	Prices1   []float64 `json:"prices1" validate:"required,dive,gt=0"`
	Prices2   []float64 `json:"prices2" validate:"required,dive,gt=0"`
	Entry     float64   `json:"entry" default:"2.0" validate:"gt=0,lte=10"`
	Exit      *float64  `json:"exit" default:"0.5" validate:"gte=0,lte=10"`
	Lookback  int       `json:"lookback" default:"20" validate:"gte=2,lte=500"`
	MaxPoints int       `json:"max_points" default:"200" validate:"gte=10,lte=10000"`
}

// PairsQuery reads both legs from the price store.
type PairsQuery struct {
	Ticker1   string  `query:"ticker1" json:"ticker1" validate:"required"`
	Ticker2   string  `query:"ticker2" json:"ticker2" validate:"required,nefield=Ticker1"`
	From      string  `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string  `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Timeframe string  `query:"timeframe" json:"timeframe" default:"1d" validate:"oneof=1d 1w"`
	Entry     float64 `query:"entry" json:"entry" default:"2.0" validate:"gt=0,lte=10"`
	Exit      *float64 `query:"exit" json:"exit" default:"0.5" validate:"gte=0,lte=10"`
	Lookback  int     `query:"lookback" json:"lookback" default:"20" validate:"gte=2,lte=500"`
	MaxPoints int     `query:"max_points" json:"max_points" default:"200" validate:"gte=10,lte=10000"`
}

// DefaultExit applies when a request leaves the exit threshold unset. An
// explicit 0 is kept and means hold until the z-score crosses zero.
const DefaultExit = 0.5

func exitOrDefault(exit *float64) float64 {
	if exit == nil {
		return DefaultExit
	}
	return *exit
}

// ExitThreshold is Exit, or DefaultExit when unset.
func (r PairsRequest) ExitThreshold() float64 { return exitOrDefault(r.Exit) }

func (q PairsQuery) ExitThreshold() float64 { return exitOrDefault(q.Exit) }

// Normalize upper-cases both tickers so they match stored symbols and
// compare case-insensitively.
func (q *PairsQuery) Normalize() {
	q.Ticker1 = util.NormalizeSymbol(q.Ticker1)
	q.Ticker2 = util.NormalizeSymbol(q.Ticker2)
}

type RegimeRequest struct {
	Dates     []string  `json:"dates" validate:"required"`
	Prices    []float64 `json:"prices" validate:"required,dive,gt=0"`
	NStates   int       `json:"n_states" default:"3" validate:"gte=1,lte=10"`
	MaxPoints int       `json:"max_points" default:"500" validate:"gte=10,lte=10000"`
}

// RegimeQuery reads closes for one ticker from the price store.
type RegimeQuery struct {
	Ticker    string `query:"ticker" json:"ticker" validate:"required"`
	NStates   int    `query:"n_states" json:"n_states" default:"3" validate:"gte=1,lte=10"`
	From      string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"1d" validate:"oneof=1d 1w"`
	MaxPoints int    `query:"max_points" json:"max_points" default:"500" validate:"gte=10,lte=10000"`
}

// AnalysisKind selects the pipeline for an asynchronous request.
type AnalysisKind string

const (
	KindPairs  AnalysisKind = "pairs"
	KindRegime AnalysisKind = "regime"
)

// AnalysisRequest is the message body on the request topic.
type AnalysisRequest struct {
	ID     string         `json:"id" validate:"required"`
	Kind   AnalysisKind   `json:"kind" validate:"required,oneof=pairs regime"`
	Pairs  *PairsRequest  `json:"pairs,omitempty" validate:"required_if=Kind pairs"`
	Regime *RegimeRequest `json:"regime,omitempty" validate:"required_if=Kind regime"`
}

// AnalysisEvent is the message body on the result topic.
type AnalysisEvent struct {
	ID     string              `json:"id"`
	Kind   AnalysisKind        `json:"kind"`
	Pairs  *PairsTradingResult `json:"pairs,omitempty"`
	Regime *RegimeResult       `json:"regime,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func (q *RegimeQuery) Normalize() {
	q.Ticker = util.NormalizeSymbol(q.Ticker)
}
