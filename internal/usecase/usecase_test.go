package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/domain/quanterr"
	domrepo "QuantLab/internal/domain/repository"
	"QuantLab/internal/service/cache"
	"QuantLab/internal/services/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func pairBars(n int, seed uint64) (a, b []models.PriceBar) {
	r := rand.New(rand.NewPCG(seed, seed+1))
	x := 100.0
	for i := 0; i < n; i++ {
		x += r.NormFloat64() * 0.5
		d := epoch.AddDate(0, 0, i)
		a = append(a, models.PriceBar{Symbol: "AAA", Date: d, Close: 1.5*x + 10 + r.NormFloat64()*0.5})
		b = append(b, models.PriceBar{Symbol: "BBB", Date: d, Close: x})
	}
	return a, b
}

func regimeBars(n int, seed uint64) []models.PriceBar {
	r := rand.New(rand.NewPCG(seed, seed+1))
	p := 100.0
	bars := make([]models.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		vol := 0.01
		if i >= n/2 {
			vol = 0.03
		}
		p *= 1 + 0.0005 + r.NormFloat64()*vol
		bars = append(bars, models.PriceBar{Symbol: "IDX", Date: epoch.AddDate(0, 0, i), Close: p})
	}
	return bars
}

type fakeStore struct {
	mu    sync.Mutex
	bars  map[string][]models.PriceBar
	calls []domrepo.Timeframe
	err   error
}

func (s *fakeStore) Closes(_ context.Context, symbol string, _, _ time.Time, tf domrepo.Timeframe) ([]models.PriceBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, tf)
	if s.err != nil {
		return nil, s.err
	}
	return s.bars[symbol], nil
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
	errors map[string]int
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordError(_, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

func (m *fakeMetrics) RecordCache(_ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func newUseCase(store domrepo.PriceStore, m *fakeMetrics) *AnalysisUseCase {
	eng := analytics.NewEngine(nil)
	var metrics domrepo.Metrics
	if m != nil {
		metrics = m
	}
	return NewAnalysisUseCase(AnalysisDeps{
		Pairs:    eng,
		Regimes:  eng,
		Store:    store,
		Cache:    cache.NewTTLCache(16),
		CacheTTL: time.Minute,
		Metrics:  metrics,
	})
}

func pairsRequest(n, maxPoints int) models.PairsRequest {
	a, b := pairBars(n, 42)
	dates, p1, p2 := AlignCloses(a, b)
	return models.PairsRequest{
		Dates: dates, Prices1: p1, Prices2: p2,
		Entry: 2, Lookback: 20, MaxPoints: maxPoints,
	}
}

func TestPairsDecimatesAndCaches(t *testing.T) {
	m := &fakeMetrics{}
	uc := newUseCase(nil, m)
	req := pairsRequest(300, 50)

	first, err := uc.Pairs(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 300, first.DataPoints)
	ts := first.TimeSeries
	assert.Len(t, ts.Dates, 50)
	assert.Len(t, ts.ZScore, 50)
	assert.Len(t, ts.Signals, 50)
	assert.Equal(t, req.Dates[6], ts.Dates[1])
	assert.InDelta(t, 1.5, first.Cointegration.HedgeRatio, 0.05)

	second, err := uc.Pairs(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Cointegration, second.Cointegration)
	assert.Equal(t, first.TimeSeries.Dates, second.TimeSeries.Dates)
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
}

func TestPairsErrorsAreNotCached(t *testing.T) {
	m := &fakeMetrics{}
	uc := newUseCase(nil, m)
	req := pairsRequest(20, 200)

	for i := 0; i < 2; i++ {
		_, err := uc.Pairs(context.Background(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, quanterr.ErrInsufficientData)
	}
	assert.Equal(t, 0, m.hits)
	assert.Equal(t, 2, m.errors[string(quanterr.KindInsufficientData)])
}

func TestPairsFromStoreAlignsDates(t *testing.T) {
	a, b := pairBars(120, 7)
	// drop two dates from the second leg and one from the first
	b = append(b[:10:10], b[12:]...)
	a = append(a[:50:50], a[51:]...)
	store := &fakeStore{bars: map[string][]models.PriceBar{"AAA": a, "BBB": b}}
	uc := newUseCase(store, &fakeMetrics{})

	res, err := uc.PairsFromStore(context.Background(), models.PairsQuery{
		Ticker1: "AAA", Ticker2: "BBB", Timeframe: "1d",
		Entry: 2, Lookback: 20, MaxPoints: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 117, res.DataPoints)
	assert.Equal(t, "2023-01-02", res.TimeSeries.Dates[0])
	assert.NotContains(t, res.TimeSeries.Dates, "2023-01-12")
	assert.NotContains(t, res.TimeSeries.Dates, "2023-02-21")
}

func TestPairsFromStoreErrors(t *testing.T) {
	ctx := context.Background()
	q := models.PairsQuery{Ticker1: "AAA", Ticker2: "BBB", Entry: 2, Lookback: 20}

	_, err := newUseCase(nil, nil).PairsFromStore(ctx, q)
	assert.ErrorIs(t, err, ErrStoreDisabled)

	store := &fakeStore{bars: map[string][]models.PriceBar{}}
	_, err = newUseCase(store, nil).PairsFromStore(ctx, q)
	assert.ErrorIs(t, err, ErrNoPrices)

	store = &fakeStore{err: errors.New("clickhouse down")}
	_, err = newUseCase(store, nil).PairsFromStore(ctx, q)
	assert.ErrorContains(t, err, "clickhouse down")

	bad := q
	bad.From, bad.To = "2024-05-01", "2024-01-01"
	_, err = newUseCase(&fakeStore{}, nil).PairsFromStore(ctx, bad)
	assert.ErrorIs(t, err, quanterr.ErrInvalidParameter)

	same := q
	same.Ticker1, same.Ticker2 = "aaa", " AAA"
	_, err = newUseCase(&fakeStore{}, nil).PairsFromStore(ctx, same)
	assert.ErrorIs(t, err, quanterr.ErrInvalidParameter)
}

func TestPairsFromStoreNormalizesTickers(t *testing.T) {
	a, b := pairBars(120, 7)
	store := &fakeStore{bars: map[string][]models.PriceBar{"AAA": a, "BBB": b}}
	uc := newUseCase(store, &fakeMetrics{})

	res, err := uc.PairsFromStore(context.Background(), models.PairsQuery{
		Ticker1: "aaa", Ticker2: " bbb ", Timeframe: "1d",
		Entry: 2, Lookback: 20, MaxPoints: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 120, res.DataPoints)
}

func TestRegimeFromStoreUsesTimeframe(t *testing.T) {
	store := &fakeStore{bars: map[string][]models.PriceBar{"IDX": regimeBars(400, 11)}}
	uc := newUseCase(store, &fakeMetrics{})

	res, err := uc.RegimeFromStore(context.Background(), models.RegimeQuery{
		Ticker: "IDX", NStates: 2, Timeframe: "1w", MaxPoints: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, []domrepo.Timeframe{domrepo.TFWeekly}, store.calls)
	assert.Equal(t, 399, res.DataPoints)
	assert.LessOrEqual(t, len(res.TimeSeries.Dates), 100)
	assert.Equal(t, len(res.TimeSeries.Dates), len(res.TimeSeries.States))
	assert.Len(t, res.RegimeLabels, 2)
}

func TestRegimeInvalidStates(t *testing.T) {
	dates, closes := SplitCloses(regimeBars(100, 3))
	_, err := newUseCase(nil, nil).Regime(context.Background(), models.RegimeRequest{
		Dates: dates, Prices: closes, NStates: 7, MaxPoints: 500,
	})
	assert.ErrorIs(t, err, quanterr.ErrInvalidParameter)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishResult(ctx context.Context, ev models.AnalysisEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func TestRequestProcessor(t *testing.T) {
	pub := &mockPublisher{}
	var events []models.AnalysisEvent
	byID := func(id string) interface{} {
		return mock.MatchedBy(func(ev models.AnalysisEvent) bool { return ev.ID == id })
	}
	for _, id := range []string{"a", "b", "c"} {
		pub.On("PublishResult", mock.Anything, byID(id)).
			Run(func(args mock.Arguments) { events = append(events, args.Get(1).(models.AnalysisEvent)) }).
			Return(nil).Once()
	}
	pub.On("PublishResult", mock.Anything, byID("d")).Return(errors.New("broker down")).Once()

	proc := NewRequestProcessor(newUseCase(nil, nil), pub, nil)
	ctx := context.Background()

	ok := pairsRequest(200, 200)
	require.NoError(t, proc.Process(ctx, models.AnalysisRequest{ID: "a", Kind: models.KindPairs, Pairs: &ok}))

	short := pairsRequest(10, 200)
	require.NoError(t, proc.Process(ctx, models.AnalysisRequest{ID: "b", Kind: models.KindPairs, Pairs: &short}))

	require.NoError(t, proc.Process(ctx, models.AnalysisRequest{ID: "c", Kind: models.KindRegime}))

	require.Len(t, events, 3)
	assert.NotNil(t, events[0].Pairs)
	assert.Empty(t, events[0].Error)
	assert.Nil(t, events[1].Pairs)
	assert.Contains(t, events[1].Error, "insufficient data")
	assert.Contains(t, events[2].Error, "regime")

	err := proc.Process(ctx, models.AnalysisRequest{ID: "d", Kind: models.KindPairs, Pairs: &ok})
	assert.ErrorContains(t, err, "broker down")
	pub.AssertExpectations(t)
}

func TestAlignCloses(t *testing.T) {
	d := func(i int) time.Time { return epoch.AddDate(0, 0, i) }
	a := []models.PriceBar{{Date: d(0), Close: 1}, {Date: d(1), Close: 2}, {Date: d(3), Close: 4}}
	b := []models.PriceBar{{Date: d(1).Add(5 * time.Hour), Close: 20}, {Date: d(2), Close: 30}, {Date: d(3), Close: 40}}

	dates, p1, p2 := AlignCloses(a, b)
	assert.Equal(t, []string{"2023-01-03", "2023-01-05"}, dates)
	assert.Equal(t, []float64{2, 4}, p1)
	assert.Equal(t, []float64{20, 40}, p2)
}

func TestStride(t *testing.T) {
	assert.Equal(t, 1, stride(100, 200))
	assert.Equal(t, 1, stride(100, 0))
	assert.Equal(t, 2, stride(201, 200))
	assert.Equal(t, 3, stride(500, 200))
	assert.Equal(t, []int{0, 3, 6, 9}, every([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 3))
}
