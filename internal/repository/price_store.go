package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	applogger "QuantLab/pkg/logger"
)

// CHPriceStore implements PriceStore backed by a ClickHouse daily close
// table (see clickhouse.PriceSchema).
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHPriceStore reads from table, which should be database qualified.
func NewCHPriceStore(db *sql.DB, table string, l *applogger.Logger) *CHPriceStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHPriceStore{db: db, table: table, l: l}
}

// Closes returns one bar per date (daily) or per ISO week (weekly, keyed by
// the Monday and carrying the week's last close). Duplicate rows for a
// date resolve to the most recently ingested one.
func (s *CHPriceStore) Closes(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.PriceBar, error) {
	start := time.Now()
	q, args, err := s.closesQuery(symbol, from, to, tf)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse closes query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err))
		return nil, fmt.Errorf("query closes: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 512)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Close); err != nil {
			return nil, fmt.Errorf("scan close: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse closes ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func (s *CHPriceStore) closesQuery(symbol string, from, to time.Time, tf domrepo.Timeframe) (string, []interface{}, error) {
	var sel, order string
	switch tf {
	case domrepo.TFDaily, "":
		sel = "SELECT symbol, date AS d, argMax(close, ingested_at) AS c"
	case domrepo.TFWeekly:
		sel = "SELECT symbol, toMonday(date) AS d, argMax(close, (date, ingested_at)) AS c"
	default:
		return "", nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	order = " GROUP BY symbol, d ORDER BY d ASC"

	where := []string{"symbol = ?"}
	args := []interface{}{symbol}
	if !from.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, to)
	}
	q := fmt.Sprintf("%s FROM %s WHERE %s%s", sel, s.table, strings.Join(where, " AND "), order)
	return q, args, nil
}

// InsertBars writes closes in multi-row batches. Bars with an empty symbol
// or a non-positive close are skipped; the number written is returned.
func (s *CHPriceStore) InsertBars(ctx context.Context, bars []models.PriceBar) (int, error) {
	const chunkSize = 2000
	written := 0
	for start := 0; start < len(bars); start += chunkSize {
		end := min(start+chunkSize, len(bars))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*3)
		for _, b := range bars[start:end] {
			if b.Symbol == "" || !(b.Close > 0) {
				continue
			}
			values = append(values, "(?, ?, ?)")
			args = append(args, b.Symbol, b.Date, b.Close)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, date, close) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return written, fmt.Errorf("insert bars: %w", err)
		}
		written += len(values)
	}
	return written, nil
}

func (s *CHPriceStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to the clickhouse client.
func (s *CHPriceStore) Close() error {
	return nil
}

var _ domrepo.PriceStore = (*CHPriceStore)(nil)
