package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/domain/quanterr"
	domrepo "QuantLab/internal/domain/repository"
	domsvc "QuantLab/internal/domain/service"
	"QuantLab/internal/service/cache"
	svcmetrics "QuantLab/internal/service/metrics"
	"QuantLab/internal/services/features"
	applogger "QuantLab/pkg/logger"
	"QuantLab/pkg/util"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoPrices means the store has no closes for a symbol in range.
	ErrNoPrices = errors.New("no prices")
	// ErrStoreDisabled means a symbol query arrived with no price store.
	ErrStoreDisabled = errors.New("price store disabled")
)

// AnalysisUseCase sits between transports and the engine: it resolves
// symbols to aligned closes, caches finished results, thins chart series
// and reports metrics.
type AnalysisUseCase struct {
	pairs    domsvc.PairsAnalyzer
	regimes  domsvc.RegimeDetector
	store    domrepo.PriceStore
	cache    cache.BytesCache
	cacheTTL time.Duration
	metrics  domrepo.Metrics
	timeout  time.Duration
	l        *applogger.Logger
}

type AnalysisDeps struct {
	Pairs    domsvc.PairsAnalyzer
	Regimes  domsvc.RegimeDetector
	Store    domrepo.PriceStore // nil disables symbol queries
	Cache    cache.BytesCache   // nil disables caching
	CacheTTL time.Duration
	Metrics  domrepo.Metrics
	Timeout  time.Duration
	Logger   *applogger.Logger
}

func NewAnalysisUseCase(d AnalysisDeps) *AnalysisUseCase {
	uc := &AnalysisUseCase{
		pairs:    d.Pairs,
		regimes:  d.Regimes,
		store:    d.Store,
		cache:    d.Cache,
		cacheTTL: d.CacheTTL,
		metrics:  d.Metrics,
		timeout:  d.Timeout,
		l:        d.Logger,
	}
	if uc.cache == nil {
		uc.cache = cache.Nop{}
	}
	if uc.l == nil {
		uc.l = applogger.Nop()
	}
	if uc.timeout <= 0 {
		uc.timeout = 20 * time.Second
	}
	return uc
}

// Pairs analyzes caller-supplied aligned closes.
func (uc *AnalysisUseCase) Pairs(ctx context.Context, req models.PairsRequest) (*models.PairsTradingResult, error) {
	return uc.pairsRun(ctx, req, "body")
}

func (uc *AnalysisUseCase) pairsRun(ctx context.Context, req models.PairsRequest, source string) (*models.PairsTradingResult, error) {
	// an unset exit and an explicit default share one cache entry
	exit := req.ExitThreshold()
	req.Exit = &exit

	var res models.PairsTradingResult
	err := uc.run(ctx, "pairs", source, req, &res, func(ctx context.Context) error {
		out, err := uc.pairs.AnalyzeCointegration(ctx, domsvc.PairsInput{
			Dates:    req.Dates,
			Prices1:  req.Prices1,
			Prices2:  req.Prices2,
			Entry:    req.Entry,
			Exit:     exit,
			Lookback: req.Lookback,
		})
		if err != nil {
			return err
		}
		DecimatePairs(&out, req.MaxPoints)
		svcmetrics.ObservePairs(&out)
		res = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// PairsFromStore loads both legs and aligns them on common dates first.
func (uc *AnalysisUseCase) PairsFromStore(ctx context.Context, q models.PairsQuery) (*models.PairsTradingResult, error) {
	if uc.store == nil {
		return nil, ErrStoreDisabled
	}
	q.Normalize()
	if q.Ticker1 == "" || q.Ticker2 == "" {
		return nil, quanterr.InvalidParameter("pairs", "both tickers are required")
	}
	if q.Ticker1 == q.Ticker2 {
		return nil, quanterr.InvalidParameter("pairs", "ticker1 and ticker2 are both %s", q.Ticker1)
	}
	from, to, err := util.DateRange(q.From, q.To)
	if err != nil {
		return nil, quanterr.InvalidParameter("pairs", "%v", err)
	}
	tf := domrepo.NormalizeTimeframe(q.Timeframe)

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	var (
		bars       [2][]models.PriceBar
		tickers    = [2]string{q.Ticker1, q.Ticker2}
		fetchStart = time.Now()
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := range tickers {
		g.Go(func() error {
			b, err := uc.store.Closes(gctx, tickers[i], from, to, tf)
			if err != nil {
				return fmt.Errorf("load %s: %w", tickers[i], err)
			}
			if len(b) == 0 {
				return fmt.Errorf("%w for %s", ErrNoPrices, tickers[i])
			}
			bars[i] = b
			return nil
		})
	}
	err = g.Wait()
	uc.recordLatency("store.closes", fetchStart)
	if err != nil {
		return nil, err
	}

	dates, p1, p2 := AlignCloses(bars[0], bars[1])
	uc.l.Debug("pairs aligned",
		applogger.String("ticker1", q.Ticker1),
		applogger.String("ticker2", q.Ticker2),
		applogger.Int("rows1", len(bars[0])),
		applogger.Int("rows2", len(bars[1])),
		applogger.Int("common", len(dates)))

	exit := q.ExitThreshold()
	return uc.pairsRun(ctx, models.PairsRequest{
		Dates:     dates,
		Prices1:   p1,
		Prices2:   p2,
		Entry:     q.Entry,
		Exit:      &exit,
		Lookback:  q.Lookback,
		MaxPoints: q.MaxPoints,
	}, "store")
}

// Regime fits the HMM to caller-supplied closes.
func (uc *AnalysisUseCase) Regime(ctx context.Context, req models.RegimeRequest) (*models.RegimeResult, error) {
	return uc.regime(ctx, req, 0, "body")
}

func (uc *AnalysisUseCase) regime(ctx context.Context, req models.RegimeRequest, periodsPerYear int, source string) (*models.RegimeResult, error) {
	var res models.RegimeResult
	key := struct {
		models.RegimeRequest
		PeriodsPerYear int
	}{req, periodsPerYear}
	err := uc.run(ctx, "regime", source, key, &res, func(ctx context.Context) error {
		out, err := uc.regimes.DetectRegimes(ctx, domsvc.RegimeInput{
			Dates:          req.Dates,
			Prices:         req.Prices,
			NStates:        req.NStates,
			PeriodsPerYear: periodsPerYear,
		})
		if err != nil {
			return err
		}
		if !out.Convergence.Converged {
			uc.l.Warn("regime fit did not converge",
				applogger.Int("iterations", out.Convergence.Iterations),
				applogger.Int("n_states", req.NStates))
		}
		DecimateRegime(&out, req.MaxPoints)
		svcmetrics.ObserveRegime(&out)
		res = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// RegimeFromStore loads closes for one ticker. Weekly bars annualize with
// 52 periods per year.
func (uc *AnalysisUseCase) RegimeFromStore(ctx context.Context, q models.RegimeQuery) (*models.RegimeResult, error) {
	if uc.store == nil {
		return nil, ErrStoreDisabled
	}
	q.Normalize()
	if q.Ticker == "" {
		return nil, quanterr.InvalidParameter("regime", "ticker is required")
	}
	from, to, err := util.DateRange(q.From, q.To)
	if err != nil {
		return nil, quanterr.InvalidParameter("regime", "%v", err)
	}
	tf := domrepo.NormalizeTimeframe(q.Timeframe)

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	bars, err := uc.store.Closes(ctx, q.Ticker, from, to, tf)
	uc.recordLatency("store.closes", start)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", q.Ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoPrices, q.Ticker)
	}
	dates, closes := SplitCloses(bars)
	return uc.regime(ctx, models.RegimeRequest{
		Dates:     dates,
		Prices:    closes,
		NStates:   q.NStates,
		MaxPoints: q.MaxPoints,
	}, int(features.BarsPerYear(string(tf))), "store")
}

// run serves op from the cache when possible and otherwise calls compute,
// which fills dst. Fresh results are cached; errors never are.
func (uc *AnalysisUseCase) run(ctx context.Context, op, source string, keyReq, dst interface{}, compute func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	key, err := cache.Key(op, keyReq)
	if err != nil {
		return err
	}

	if b, ok, err := uc.cache.GetBytes(ctx, key); err != nil {
		uc.l.Warn("cache get failed", applogger.String("op", op), applogger.Error(err))
	} else if ok {
		if err := json.Unmarshal(b, dst); err == nil {
			uc.recordCache(op, true)
			return nil
		}
		uc.l.Warn("cache entry unreadable", applogger.String("op", op), applogger.String("key", key))
	}
	uc.recordCache(op, false)

	if err := compute(ctx); err != nil {
		uc.recordError(op, err)
		svcmetrics.AnalyticsErrors.WithLabelValues(op, errorClass(err)).Inc()
		return err
	}
	svcmetrics.AnalyticsLatency.WithLabelValues(op, source).Observe(time.Since(start).Seconds())
	uc.recordLatency(op, start)

	b, err := json.Marshal(dst)
	if err != nil {
		uc.l.Warn("cache encode failed", applogger.String("op", op), applogger.Error(err))
		return nil
	}
	if err := uc.cache.SetBytes(ctx, key, b, uc.cacheTTL); err != nil {
		uc.l.Warn("cache set failed", applogger.String("op", op), applogger.Error(err))
	}
	return nil
}

func (uc *AnalysisUseCase) recordLatency(op string, start time.Time) {
	if uc.metrics != nil {
		uc.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}

func (uc *AnalysisUseCase) recordCache(op string, hit bool) {
	if uc.metrics != nil {
		uc.metrics.RecordCache(op, hit)
	}
}

func (uc *AnalysisUseCase) recordError(op string, err error) {
	if uc.metrics != nil {
		uc.metrics.RecordError(op, errorClass(err))
	}
}

func errorClass(err error) string {
	if kind, ok := quanterr.KindOf(err); ok {
		return string(kind)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
