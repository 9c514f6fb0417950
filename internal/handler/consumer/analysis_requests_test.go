package consumer

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strconv"
	"testing"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/services/analytics"
	"QuantLab/internal/usecase"
	pkgkafka "QuantLab/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct{ events []models.AnalysisEvent }

func (p *capturePublisher) PublishResult(_ context.Context, ev models.AnalysisEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newHandler() (*AnalysisRequestHandler, *capturePublisher) {
	eng := analytics.NewEngine(nil)
	uc := usecase.NewAnalysisUseCase(usecase.AnalysisDeps{Pairs: eng, Regimes: eng})
	pub := &capturePublisher{}
	return NewAnalysisRequestHandler("analysis.requests", usecase.NewRequestProcessor(uc, pub, nil)), pub
}

func TestHandleRegimeRequest(t *testing.T) {
	h, pub := newHandler()
	assert.Equal(t, "analysis.requests", h.Topic())

	r := rand.New(rand.NewPCG(8, 9))
	prices := make([]float64, 120)
	dates := make([]string, 120)
	p := 100.0
	for i := range prices {
		vol := 0.01
		if i >= 60 {
			vol = 0.03
		}
		p *= 1 + r.NormFloat64()*vol
		prices[i] = p
		dates[i] = "t" + strconv.Itoa(i)
	}
	body, err := json.Marshal(map[string]interface{}{
		"id":     "r-1",
		"kind":   "regime",
		"regime": map[string]interface{}{"dates": dates, "prices": prices, "n_states": 2},
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), body))
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "r-1", ev.ID)
	assert.Empty(t, ev.Error)
	require.NotNil(t, ev.Regime)
	assert.Equal(t, 119, ev.Regime.DataPoints)
}

func TestHandleRejectsMalformed(t *testing.T) {
	h, pub := newHandler()
	for name, body := range map[string]string{
		"not json":     `{`,
		"unknown kind": `{"id":"x","kind":"momentum"}`,
		"no payload":   `{"id":"x","kind":"pairs"}`,
		"bad payload":  `{"id":"x","kind":"pairs","pairs":{"dates":["a"],"prices1":[1],"prices2":[-2]}}`,
		"no id":        `{"kind":"regime","regime":{"dates":["a"],"prices":[1]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := h.Handle(context.Background(), []byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
		})
	}
	assert.Empty(t, pub.events)
}

func TestHandlePublishesAnalysisFailure(t *testing.T) {
	h, pub := newHandler()
	body := `{"id":"short","kind":"pairs","pairs":{"dates":["a","b","c"],"prices1":[1,2,3],"prices2":[2,3,5]}}`
	require.NoError(t, h.Handle(context.Background(), []byte(body)))
	require.Len(t, pub.events, 1)
	assert.Contains(t, pub.events[0].Error, "insufficient data")
}
