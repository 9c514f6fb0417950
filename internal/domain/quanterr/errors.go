package quanterr

import (
	"errors"
	"fmt"
)

// Kind classifies analysis failures.
type Kind string

const (
	KindInsufficientData Kind = "insufficient_data"
	KindDegenerateInput  Kind = "degenerate_input"
	KindConvergence      Kind = "convergence"
	KindInvalidParameter Kind = "invalid_parameter"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerateInput  = errors.New("degenerate input")
	// ErrConvergence is non-fatal: it accompanies a usable best-effort result.
	ErrConvergence      = errors.New("did not converge")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Error is the typed failure returned by the numerical engine.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.sentinel(), e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.sentinel(), e.Msg)
}

// Unwrap returns the sentinel for the kind so errors.Is works.
func (e *Error) Unwrap() error {
	return e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindInsufficientData:
		return ErrInsufficientData
	case KindDegenerateInput:
		return ErrDegenerateInput
	case KindConvergence:
		return ErrConvergence
	default:
		return ErrInvalidParameter
	}
}

func newf(kind Kind, op, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// InsufficientData reports a series too short for the requested statistic.
func InsufficientData(op, format string, a ...interface{}) error {
	return newf(KindInsufficientData, op, format, a...)
}

// DegenerateInput reports zero-variance input to a regression.
func DegenerateInput(op, format string, a ...interface{}) error {
	return newf(KindDegenerateInput, op, format, a...)
}

// Convergence reports an EM run that hit its iteration cap.
func Convergence(op, format string, a ...interface{}) error {
	return newf(KindConvergence, op, format, a...)
}

// InvalidParameter reports an out-of-range argument.
func InvalidParameter(op, format string, a ...interface{}) error {
	return newf(KindInvalidParameter, op, format, a...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind, true
	}
	return "", false
}
