package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fxpull/internal/domain/models"
	pkgch "fxpull/pkg/clickhouse"
	applogger "fxpull/pkg/logger"
)

// CHBarStore implements TimeSeriesStore backed by ClickHouse. Every
// series gets its own ReplacingMergeTree table keyed by date: inserting
// a row with an existing date replaces it on merge, which gives the
// upsert-by-timestamp contract without UPDATE statements. Reads go
// through FINAL so replaced rows never surface.
type CHBarStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{db: ch.DB(), l: l}
}

const barTableTpl = `CREATE TABLE IF NOT EXISTS %s (
    date DateTime('UTC') NOT NULL,
    bidopen Nullable(Decimal(19,6)),
    bidhigh Nullable(Decimal(19,6)),
    bidlow Nullable(Decimal(19,6)),
    bidclose Nullable(Decimal(19,6)),
    askopen Nullable(Decimal(19,6)),
    askhigh Nullable(Decimal(19,6)),
    asklow Nullable(Decimal(19,6)),
    askclose Nullable(Decimal(19,6)),
    volume Nullable(Int64)
) ENGINE = ReplacingMergeTree
ORDER BY date`

// EnsureExists creates the database and table for a series. Both
// statements are IF NOT EXISTS, so the call is idempotent regardless of
// who raced it there first.
func (s *CHBarStore) EnsureExists(ctx context.Context, loc models.Location) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", loc.Database)); err != nil {
		return fmt.Errorf("create database %s: %w", loc.Database, err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(barTableTpl, loc)); err != nil {
		return fmt.Errorf("create table %s: %w", loc, err)
	}
	return nil
}

// ExtremityDates returns the earliest and latest stored timestamps, or
// ok=false for a series with no rows yet.
func (s *CHBarStore) ExtremityDates(ctx context.Context, loc models.Location) (models.ExtremityDates, bool, error) {
	q := fmt.Sprintf("SELECT count(), min(date), max(date) FROM %s FINAL", loc)
	var (
		count    uint64
		min, max time.Time
	)
	if err := s.db.QueryRowContext(ctx, q).Scan(&count, &min, &max); err != nil {
		return models.ExtremityDates{}, false, fmt.Errorf("extremity dates %s: %w", loc, err)
	}
	if count == 0 {
		return models.ExtremityDates{}, false, nil
	}
	return models.ExtremityDates{Earliest: min.UTC(), Latest: max.UTC()}, true, nil
}

// Write upserts a batch of bars. Chunked multi-row inserts keep the
// round-trip count down on backfills.
func (s *CHBarStore) Write(ctx context.Context, loc models.Location, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 1000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}
		chunk := bars[start:end]

		values := make([]string, 0, len(chunk))
		args := make([]interface{}, 0, len(chunk)*10)
		for _, b := range chunk {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				b.Date.UTC(),
				b.BidOpen, b.BidHigh, b.BidLow, b.BidClose,
				b.AskOpen, b.AskHigh, b.AskLow, b.AskClose,
				b.Volume,
			)
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (date, bidopen, bidhigh, bidlow, bidclose, askopen, askhigh, asklow, askclose, volume) VALUES %s",
			loc, strings.Join(values, ","),
		)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse write error",
					applogger.String("location", loc.String()),
					applogger.Int("rows", len(chunk)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("write %s: %w", loc, err)
		}
	}
	if s.l != nil {
		s.l.Debug("bars written",
			applogger.String("location", loc.String()),
			applogger.Int("rows", len(bars)),
		)
	}
	return nil
}

// Query reads bars back in ascending order for the HTTP surface.
func (s *CHBarStore) Query(ctx context.Context, loc models.Location, from, to time.Time, limit int) ([]models.Bar, error) {
	q := fmt.Sprintf(`
        SELECT date, bidopen, bidhigh, bidlow, bidclose, askopen, askhigh, asklow, askclose, volume
        FROM %s FINAL
        WHERE date >= ? AND date <= ?
        ORDER BY date ASC
        LIMIT ?`, loc)
	rows, err := s.db.QueryContext(ctx, q, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", loc, err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, limit)
	for rows.Next() {
		var (
			b    models.Bar
			px   [8]decimal.NullDecimal
			vol  sql.NullInt64
			date time.Time
		)
		if err := rows.Scan(&date, &px[0], &px[1], &px[2], &px[3], &px[4], &px[5], &px[6], &px[7], &vol); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", loc, err)
		}
		b.Date = date.UTC()
		b.BidOpen, b.BidHigh, b.BidLow, b.BidClose = px[0].Decimal, px[1].Decimal, px[2].Decimal, px[3].Decimal
		b.AskOpen, b.AskHigh, b.AskLow, b.AskClose = px[4].Decimal, px[5].Decimal, px[6].Decimal, px[7].Decimal
		b.Volume = vol.Int64
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", loc, err)
	}
	return out, nil
}

// Health pings the connection pool.
func (s *CHBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
