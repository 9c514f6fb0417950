// Package consumer adapts Kafka messages to use case calls.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/usecase"
	xhttp "QuantLab/pkg/http"
	pkgkafka "QuantLab/pkg/kafka"
)

// AnalysisRequestHandler consumes the analysis request topic.
type AnalysisRequestHandler struct {
	topic string
	proc  *usecase.RequestProcessor
}

func NewAnalysisRequestHandler(topic string, proc *usecase.RequestProcessor) *AnalysisRequestHandler {
	return &AnalysisRequestHandler{topic: topic, proc: proc}
}

func (h *AnalysisRequestHandler) Topic() string { return h.topic }

// Handle decodes and validates one request. Malformed messages are
// permanent failures and go straight to the DLQ.
func (h *AnalysisRequestHandler) Handle(ctx context.Context, data []byte) error {
	var req models.AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode request: %v: %w", err, pkgkafka.ErrPermanent)
	}
	if req.ID == "" {
		req.ID = pkgkafka.RequestID(ctx)
	}
	// nested payloads first so their defaults are in place
	var verrs []xhttp.ValidationError
	switch {
	case req.Pairs != nil:
		verrs = xhttp.ValidateStruct(ctx, req.Pairs)
	case req.Regime != nil:
		verrs = xhttp.ValidateStruct(ctx, req.Regime)
	}
	if verrs == nil {
		verrs = xhttp.ValidateStruct(ctx, &req)
	}
	if verrs != nil {
		return fmt.Errorf("invalid request %s: %s: %w", req.ID, verrs[0].Message, pkgkafka.ErrPermanent)
	}
	return h.proc.Process(ctx, req)
}

var _ pkgkafka.MessageHandler = (*AnalysisRequestHandler)(nil)
