package repository

import (
	"context"
	"errors"
	"time"

	"QuantLab/internal/domain/models"
)

// ErrStoreUnavailable is returned while the store's circuit breaker is open.
var ErrStoreUnavailable = errors.New("price store unavailable")

// PriceStore reads daily closes. Bars are returned in ascending date order;
// a zero from or to leaves that side of the range open.
type PriceStore interface {
	Closes(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.PriceBar, error)
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher emits finished analysis results.
type EventPublisher interface {
	PublishResult(ctx context.Context, ev models.AnalysisEvent) error
	Close() error
}

type Metrics interface {
	RecordLatency(op string, seconds float64)
	RecordError(op, kind string)
	RecordCache(op string, hit bool)
}
