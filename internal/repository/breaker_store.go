package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	applogger "QuantLab/pkg/logger"

	"github.com/sony/gobreaker"
)

// BreakerSettings trips after ConsecutiveFailures failed reads in a row, or
// when more than FailureRatio of at least MinRequests reads in one Interval
// fail. The breaker stays open for OpenTimeout.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	MinRequests         uint32
	FailureRatio        float64
	Interval            time.Duration
	OpenTimeout         time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 3,
		MinRequests:         20,
		FailureRatio:        0.5,
		Interval:            60 * time.Second,
		OpenTimeout:         30 * time.Second,
	}
}

// BreakerPriceStore fails fast with ErrStoreUnavailable while the wrapped
// store keeps erroring.
type BreakerPriceStore struct {
	next domrepo.PriceStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerPriceStore(next domrepo.PriceStore, s BreakerSettings, l *applogger.Logger) *BreakerPriceStore {
	if l == nil {
		l = applogger.Nop()
	}
	st := gobreaker.Settings{
		Name:     "price_store",
		Interval: s.Interval,
		Timeout:  s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.ConsecutiveFailures >= s.ConsecutiveFailures {
				return true
			}
			if c.Requests < s.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) > s.FailureRatio
		},
		// a caller giving up is not a store failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()))
		},
	}
	return &BreakerPriceStore{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (s *BreakerPriceStore) Closes(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.PriceBar, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Closes(ctx, symbol, from, to, tf)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domrepo.ErrStoreUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]models.PriceBar), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (s *BreakerPriceStore) State() string { return s.cb.State().String() }

func (s *BreakerPriceStore) Health(ctx context.Context) error { return s.next.Health(ctx) }

func (s *BreakerPriceStore) Close() error { return s.next.Close() }

var _ domrepo.PriceStore = (*BreakerPriceStore)(nil)
