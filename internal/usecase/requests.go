package usecase

import (
	"context"
	"fmt"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	applogger "QuantLab/pkg/logger"
)

// RequestProcessor serves asynchronous analysis requests: every request
// produces exactly one result event, carrying either the result or the
// analysis error.
type RequestProcessor struct {
	uc  *AnalysisUseCase
	pub domrepo.EventPublisher
	l   *applogger.Logger
}

func NewRequestProcessor(uc *AnalysisUseCase, pub domrepo.EventPublisher, l *applogger.Logger) *RequestProcessor {
	if l == nil {
		l = applogger.Nop()
	}
	return &RequestProcessor{uc: uc, pub: pub, l: l}
}

// Process runs req and publishes its event. Only a publish failure is
// returned, so the transport retries delivery but never re-runs a request
// whose analysis failed.
func (p *RequestProcessor) Process(ctx context.Context, req models.AnalysisRequest) error {
	start := time.Now()
	ev := models.AnalysisEvent{ID: req.ID, Kind: req.Kind}

	var err error
	switch {
	case req.Kind == models.KindPairs && req.Pairs != nil:
		ev.Pairs, err = p.uc.Pairs(ctx, *req.Pairs)
	case req.Kind == models.KindRegime && req.Regime != nil:
		ev.Regime, err = p.uc.Regime(ctx, *req.Regime)
	default:
		err = fmt.Errorf("no %q payload in request", req.Kind)
	}
	if err != nil {
		ev.Error = err.Error()
		p.l.Warn("analysis request failed",
			applogger.String("id", req.ID),
			applogger.String("kind", string(req.Kind)),
			applogger.Error(err))
	}

	if err := p.pub.PublishResult(ctx, ev); err != nil {
		return fmt.Errorf("publish result %s: %w", req.ID, err)
	}
	p.l.Info("analysis request done",
		applogger.String("id", req.ID),
		applogger.String("kind", string(req.Kind)),
		applogger.Bool("ok", ev.Error == ""),
		applogger.Duration("duration_ms", time.Since(start)))
	return nil
}
