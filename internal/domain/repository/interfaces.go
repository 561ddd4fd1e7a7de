package repository

import (
	"context"
	"time"

	"fxpull/internal/domain/models"
)

// MarketDataSource is the quote provider session. Fetch returns bars
// for [from, to] as the provider pages them: newest-first batches of
// bounded size. Zero from/to asks for the provider's first full-history
// page. Connection-level failures are wrapped with
// models.ErrTransientConnection.
type MarketDataSource interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Close() error

	Fetch(ctx context.Context, instrument string, from, to time.Time, tf models.Timeframe) ([]models.Bar, error)
	Quote(ctx context.Context, instrument string) (bid, ask float64, err error)
	Offers(ctx context.Context) ([]string, error)
}

// TimeSeriesStore persists bar series. Write has upsert-by-timestamp
// semantics: a later write for the same timestamp replaces the stored
// row. Storage errors propagate unchanged, no retry at this layer.
type TimeSeriesStore interface {
	EnsureExists(ctx context.Context, loc models.Location) error
	ExtremityDates(ctx context.Context, loc models.Location) (models.ExtremityDates, bool, error)
	Write(ctx context.Context, loc models.Location, bars []models.Bar) error
	Query(ctx context.Context, loc models.Location, from, to time.Time, limit int) ([]models.Bar, error)
	Health(ctx context.Context) error
}

// BarPublisher mirrors cleaned bars to a secondary sink. Optional; a
// nil publisher disables mirroring.
type BarPublisher interface {
	PublishBatch(ctx context.Context, instrument string, tf models.Timeframe, bars []models.Bar) error
	Close() error
}

// Metrics records ingestion observability signals.
type Metrics interface {
	RecordBarsWritten(instrument, timeframe string, n int)
	RecordBarsRejected(instrument, timeframe, reason string, n int)
	RecordConnectAttempt(outcome string)
	RecordQuote(instrument string, bid, ask float64)
	RecordSyncDuration(instrument, timeframe string, seconds float64)
	RecordAnchorIterations(instrument string, n int)
	RecordError(kind string)
}
