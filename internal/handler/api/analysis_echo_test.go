package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	"QuantLab/internal/service/cache"
	"QuantLab/internal/services/analytics"
	"QuantLab/internal/usecase"
	xlogger "QuantLab/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore map[string][]models.PriceBar

func (s memStore) Closes(_ context.Context, symbol string, _, _ time.Time, _ domrepo.Timeframe) ([]models.PriceBar, error) {
	return s[symbol], nil
}

func (memStore) Health(context.Context) error { return nil }

func (memStore) Close() error { return nil }

func series(n int, seed uint64) (dates []string, p1, p2 []float64) {
	r := rand.New(rand.NewPCG(seed, 99))
	x := 80.0
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		x += r.NormFloat64() * 0.4
		dates = append(dates, start.AddDate(0, 0, i).Format("2006-01-02"))
		p1 = append(p1, 2*x+5+r.NormFloat64()*0.3)
		p2 = append(p2, x)
	}
	return dates, p1, p2
}

func newEcho(store domrepo.PriceStore) *echo.Echo {
	eng := analytics.NewEngine(nil)
	uc := usecase.NewAnalysisUseCase(usecase.AnalysisDeps{
		Pairs:   eng,
		Regimes: eng,
		Store:   store,
		Cache:   cache.NewTTLCache(8),
	})
	e := echo.New()
	NewAnalysisEchoHandler(xlogger.Nop(), uc).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target string, body interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestPostPairs(t *testing.T) {
	e := newEcho(nil)
	dates, p1, p2 := series(250, 1)

	rec, env := do(t, e, http.MethodPost, "/api/v1/pairs", map[string]interface{}{
		"dates": dates, "prices1": p1, "prices2": p2, "max_points": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.PairsTradingResult
	require.NoError(t, json.Unmarshal(env["data"], &res))
	assert.Equal(t, 250, res.DataPoints)
	assert.Equal(t, 2.0, res.Thresholds.Entry)
	assert.Equal(t, 20, res.Thresholds.Lookback)
	assert.LessOrEqual(t, len(res.TimeSeries.Dates), 100)
	assert.InDelta(t, 2.0, res.Cointegration.HedgeRatio, 0.05)
}

func TestPostPairsZeroExit(t *testing.T) {
	e := newEcho(nil)
	dates, p1, p2 := series(120, 3)

	rec, env := do(t, e, http.MethodPost, "/api/v1/pairs", map[string]interface{}{
		"dates": dates, "prices1": p1, "prices2": p2, "exit": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.PairsTradingResult
	require.NoError(t, json.Unmarshal(env["data"], &res))
	assert.Zero(t, res.Thresholds.Exit)
	assert.Equal(t, 2.0, res.Thresholds.Entry)
}

func TestPostPairsErrors(t *testing.T) {
	e := newEcho(nil)
	dates, p1, p2 := series(40, 2)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"too short", map[string]interface{}{"dates": dates[:25], "prices1": p1[:25], "prices2": p2[:25]}, http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_DATA"},
		{"exit above entry", map[string]interface{}{"dates": dates, "prices1": p1, "prices2": p2, "entry": 1.0, "exit": 1.5}, http.StatusBadRequest, "ERR_INVALID_PARAMETER"},
		{"missing leg", map[string]interface{}{"dates": dates, "prices1": p1}, http.StatusBadRequest, "ERR_REQUIRED"},
		{"negative price", map[string]interface{}{"dates": dates[:2], "prices1": []float64{1, -1}, "prices2": []float64{1, 1}}, http.StatusBadRequest, "ERR_GT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, e, http.MethodPost, "/api/v1/pairs", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var errs []struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(env["data"], &errs))
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

func TestGetPairsWithoutStore(t *testing.T) {
	rec, _ := do(t, newEcho(nil), http.MethodGet, "/api/v1/pairs?ticker1=KO&ticker2=PEP", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetPairsUnknownTicker(t *testing.T) {
	rec, _ := do(t, newEcho(memStore{}), http.MethodGet, "/api/v1/pairs?ticker1=KO&ticker2=PEP", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type downStore struct{ memStore }

func (downStore) Closes(context.Context, string, time.Time, time.Time, domrepo.Timeframe) ([]models.PriceBar, error) {
	return nil, fmt.Errorf("%w: circuit breaker is open", domrepo.ErrStoreUnavailable)
}

func TestGetPairsStoreUnavailable(t *testing.T) {
	rec, env := do(t, newEcho(downStore{}), http.MethodGet, "/api/v1/pairs?ticker1=KO&ticker2=PEP", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env["data"]), "ERR_STORE_UNAVAILABLE")
}

func TestGetRegimes(t *testing.T) {
	_, closes, _ := series(300, 5)
	bars := make([]models.PriceBar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.PriceBar{Symbol: "SPY", Date: start.AddDate(0, 0, i), Close: c}
	}
	e := newEcho(memStore{"SPY": bars})

	rec, env := do(t, e, http.MethodGet, "/api/v1/regimes?ticker=SPY&n_states=2&from=2024-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "private, max-age=60", rec.Header().Get(echo.HeaderCacheControl))

	var res models.RegimeResult
	require.NoError(t, json.Unmarshal(env["data"], &res))
	assert.Equal(t, 2, res.NStates)
	assert.Equal(t, 299, res.DataPoints)
	assert.NotEmpty(t, res.CurrentRegime)
}

func TestPostRegimesValidation(t *testing.T) {
	rec, _ := do(t, newEcho(nil), http.MethodPost, "/api/v1/regimes", map[string]interface{}{
		"dates": []string{"2024-01-01"}, "prices": []float64{1}, "n_states": 11,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, newEcho(nil), http.MethodGet, "/api/v1/regimes?ticker=SPY&from=01-02-2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTickersAreCaseInsensitive(t *testing.T) {
	dates, p1, p2 := series(120, 7)
	bars := func(sym string, closes []float64) []models.PriceBar {
		out := make([]models.PriceBar, len(closes))
		for i, c := range closes {
			d, _ := time.Parse("2006-01-02", dates[i])
			out[i] = models.PriceBar{Symbol: sym, Date: d, Close: c}
		}
		return out
	}
	e := newEcho(memStore{"KO": bars("KO", p1), "PEP": bars("PEP", p2)})

	rec, env := do(t, e, http.MethodGet, "/api/v1/pairs?ticker1=ko&ticker2=%20Pep%20&from=2024-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.PairsTradingResult
	require.NoError(t, json.Unmarshal(env["data"], &res))
	assert.Equal(t, 120, res.DataPoints)

	rec, _ = do(t, e, http.MethodGet, "/api/v1/regimes?ticker=ko&n_states=2&from=2024-01-01", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = do(t, e, http.MethodGet, "/api/v1/pairs?ticker1=ko&ticker2=KO", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env["data"]), "ERR_NEFIELD")
}
