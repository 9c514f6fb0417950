package pairs

import (
	"math"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/domain/quanterr"
)

// Thresholds are the z-score levels that open and close a spread position.
type Thresholds struct {
	Entry float64
	Exit  float64
}

// Validate requires Entry > Exit >= 0.
func (th Thresholds) Validate() error {
	const op = "pairs.thresholds"
	if math.IsNaN(th.Entry) || math.IsNaN(th.Exit) {
		return quanterr.InvalidParameter(op, "thresholds must be numbers")
	}
	if th.Exit < 0 {
		return quanterr.InvalidParameter(op, "exit threshold must be non-negative, got %g", th.Exit)
	}
	if th.Entry <= th.Exit {
		return quanterr.InvalidParameter(op, "entry threshold %g must exceed exit threshold %g", th.Entry, th.Exit)
	}
	return nil
}

// Transition is the position after observing z while holding prev. An
// undefined z always forces FLAT.
func (th Thresholds) Transition(prev models.PositionState, z float64) models.PositionState {
	if math.IsNaN(z) {
		return models.Flat
	}
	switch prev {
	case models.Flat:
		switch {
		case z <= -th.Entry:
			return models.LongSpread
		case z >= th.Entry:
			return models.ShortSpread
		}
		return models.Flat
	default:
		if math.Abs(z) <= th.Exit {
			return models.Flat
		}
		return prev
	}
}

// GenerateSignals runs the position state machine over a z-score series.
func GenerateSignals(z []float64, th Thresholds) ([]models.PositionState, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	out := make([]models.PositionState, len(z))
	prev := models.Flat
	for i, v := range z {
		prev = th.Transition(prev, v)
		out[i] = prev
	}
	return out, nil
}
