package service

import (
	"context"

	"QuantLab/internal/domain/models"
)

// PairsInput is one pair of aligned closes plus strategy settings.
// Lookback <= 0 selects the engine default.
type PairsInput struct {
	Dates    []string
	Prices1  []float64
	Prices2  []float64
	Entry    float64
	Exit     float64
	Lookback int
}

// RegimeInput is one series of closes and the number of hidden states.
// PeriodsPerYear <= 0 selects the engine default.
type RegimeInput struct {
	Dates          []string
	Prices         []float64
	NStates        int
	PeriodsPerYear int
}

// PairsAnalyzer runs the cointegration, signal and backtest pipeline.
type PairsAnalyzer interface {
	AnalyzeCointegration(ctx context.Context, in PairsInput) (models.PairsTradingResult, error)
}

// RegimeDetector fits a Gaussian HMM to log returns and decodes regimes.
type RegimeDetector interface {
	DetectRegimes(ctx context.Context, in RegimeInput) (models.RegimeResult, error)
}
