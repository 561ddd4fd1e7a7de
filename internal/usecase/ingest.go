package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fxpull/internal/domain/models"
	drepo "fxpull/internal/domain/repository"
	"fxpull/internal/service/session"
	applogger "fxpull/pkg/logger"
)

// QuoteSink receives the latest quote per instrument. Implemented by
// the Redis quote cache; nil disables caching.
type QuoteSink interface {
	Set(ctx context.Context, q models.Quote) error
}

// UnitStatus is the last observed sync state of one
// (instrument, timeframe) ingestion unit.
type UnitStatus struct {
	Instrument string    `json:"instrument"`
	Timeframe  string    `json:"timeframe"`
	Earliest   time.Time `json:"earliest,omitempty"`
	Latest     time.Time `json:"latest,omitempty"`
	LastSync   time.Time `json:"last_sync,omitempty"`
	Written    int       `json:"written"`
	Rejected   int       `json:"rejected"`
	LastError  string    `json:"last_error,omitempty"`
}

// IngestorConfig carries the orchestration knobs.
type IngestorConfig struct {
	Broker         string
	Timeframes     []models.Timeframe
	QuoteRetryWait time.Duration
}

// Ingestor drives the ingestion cycle: per (instrument, timeframe)
// unit it resolves the storage location, ensures the table exists,
// derives the fetch window from the stored extremity dates (or the
// provider's initial timestamp for a fresh series), fetches, cleans
// and upserts. Instruments run in parallel; a failing unit never
// aborts its siblings.
type Ingestor struct {
	cfg     IngestorConfig
	source  drepo.MarketDataSource
	store   drepo.TimeSeriesStore
	pub     drepo.BarPublisher
	sess    *session.Manager
	anchors *AnchorFinder
	quotes  QuoteSink
	metrics drepo.Metrics
	l       *applogger.Logger
	now     func() time.Time

	mu         sync.Mutex
	status     map[string]*UnitStatus
	dayAnchors map[string]time.Time
}

func NewIngestor(
	cfg IngestorConfig,
	source drepo.MarketDataSource,
	store drepo.TimeSeriesStore,
	pub drepo.BarPublisher,
	sess *session.Manager,
	anchors *AnchorFinder,
	quotes QuoteSink,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *Ingestor {
	if cfg.QuoteRetryWait <= 0 {
		cfg.QuoteRetryWait = 2 * time.Second
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = models.SupportedTimeframes()
	}
	return &Ingestor{
		cfg:        cfg,
		source:     source,
		store:      store,
		pub:        pub,
		sess:       sess,
		anchors:    anchors,
		quotes:     quotes,
		metrics:    metrics,
		l:          l,
		now:        time.Now,
		status:     make(map[string]*UnitStatus),
		dayAnchors: make(map[string]time.Time),
	}
}

// RunCycle ingests all configured timeframes for the given instruments.
// A connection failure is fatal for the whole cycle; everything after
// that is isolated per unit.
func (ing *Ingestor) RunCycle(ctx context.Context, instruments []string) error {
	if err := ing.sess.EnsureConnected(ctx); err != nil {
		return fmt.Errorf("ingestion cycle: %w", err)
	}

	var wg sync.WaitGroup
	for _, instrument := range instruments {
		wg.Add(1)
		go func(instrument string) {
			defer wg.Done()
			ing.syncInstrument(ctx, instrument)
		}(instrument)
	}
	wg.Wait()
	return nil
}

func (ing *Ingestor) syncInstrument(ctx context.Context, instrument string) {
	if q, err := ing.pollQuote(ctx, instrument); err != nil {
		ing.metrics.RecordError("quote")
		ing.l.Warn("quote poll failed", applogger.String("instrument", instrument), applogger.Error(err))
	} else {
		ing.metrics.RecordQuote(instrument, q.Bid, q.Ask)
		if ing.quotes != nil {
			if err := ing.quotes.Set(ctx, q); err != nil {
				ing.metrics.RecordError("quote_cache")
				ing.l.Warn("quote cache write failed", applogger.String("instrument", instrument), applogger.Error(err))
			}
		}
	}

	// Resolve the opening timestamp of the still-forming trading day.
	// Failure here is fatal to the anchor call only, not to the unit.
	if anchor, iterations, err := ing.anchors.OpenDateTime(ctx, instrument); err != nil {
		ing.metrics.RecordError("anchor")
		ing.l.Warn("anchor resolution failed", applogger.String("instrument", instrument), applogger.Error(err))
	} else {
		ing.metrics.RecordAnchorIterations(instrument, iterations)
		ing.mu.Lock()
		ing.dayAnchors[instrument] = anchor
		ing.mu.Unlock()
	}

	for _, tf := range ing.cfg.Timeframes {
		if err := ing.syncUnit(ctx, instrument, tf); err != nil {
			ing.metrics.RecordError("sync")
			ing.l.Error("unit sync failed",
				applogger.String("instrument", instrument),
				applogger.String("timeframe", string(tf)),
				applogger.Error(err),
			)
			ing.recordUnitError(instrument, tf, err)
		}
	}
}

func (ing *Ingestor) syncUnit(ctx context.Context, instrument string, tf models.Timeframe) error {
	start := ing.now()
	loc := models.Locate(ing.cfg.Broker, instrument, tf)

	if err := ing.store.EnsureExists(ctx, loc); err != nil {
		return fmt.Errorf("ensure %s: %w", loc, err)
	}

	ext, ok, err := ing.store.ExtremityDates(ctx, loc)
	if err != nil {
		return fmt.Errorf("extremity dates %s: %w", loc, err)
	}

	var from time.Time
	if ok {
		// Refetch from the latest stored bar so the still-forming
		// period gets replaced by its more complete version.
		from = ext.Latest
	} else {
		from, err = ing.initialDateTime(ctx, instrument)
		if err != nil {
			return fmt.Errorf("initial datetime %s: %w", instrument, err)
		}
	}
	to := ing.now().UTC().Truncate(time.Minute)

	raw, err := ing.source.Fetch(ctx, instrument, from, to, tf)
	if err != nil {
		return fmt.Errorf("fetch %s %s: %w", instrument, tf, err)
	}

	clean, rejected := CleanBars(raw)
	if len(rejected) > 0 {
		counts := make(map[string]int)
		for _, r := range rejected {
			for _, reason := range r.Reasons {
				counts[reason]++
			}
		}
		for reason, n := range counts {
			ing.metrics.RecordBarsRejected(instrument, string(tf), reason, n)
		}
		ing.l.Warn("rejected inconsistent bars",
			applogger.String("instrument", instrument),
			applogger.String("timeframe", string(tf)),
			applogger.Int("rejected", len(rejected)),
		)
	}

	if len(clean) > 0 {
		if err := ing.store.Write(ctx, loc, clean); err != nil {
			return fmt.Errorf("write %s: %w", loc, err)
		}
		ing.metrics.RecordBarsWritten(instrument, string(tf), len(clean))

		if ing.pub != nil {
			// Mirroring never gates the durable write.
			if err := ing.pub.PublishBatch(ctx, instrument, tf, clean); err != nil {
				ing.metrics.RecordError("publish")
				ing.l.Warn("bar publish failed",
					applogger.String("instrument", instrument),
					applogger.String("timeframe", string(tf)),
					applogger.Error(err),
				)
			}
		}
	}

	ing.metrics.RecordSyncDuration(instrument, string(tf), ing.now().Sub(start).Seconds())
	ing.recordUnitSuccess(instrument, tf, clean, rejected)
	return nil
}

// initialDateTime asks the provider where a fresh series should start:
// the date of the current daily bar, obtained with a zero-window
// history probe.
func (ing *Ingestor) initialDateTime(ctx context.Context, instrument string) (time.Time, error) {
	bars, err := ing.source.Fetch(ctx, instrument, time.Time{}, time.Time{}, models.TFD1)
	if err != nil {
		return time.Time{}, err
	}
	if len(bars) == 0 {
		return time.Time{}, fmt.Errorf("provider returned no daily history for %s", instrument)
	}
	// Pages are newest-first; the head is the current daily bar.
	return bars[0].Date, nil
}

// pollQuote retries until both sides are strictly positive. Non-positive
// values and transient errors are market-open/close artifacts, not
// failures; only the context bounds the wait.
func (ing *Ingestor) pollQuote(ctx context.Context, instrument string) (models.Quote, error) {
	for {
		bid, ask, err := ing.source.Quote(ctx, instrument)
		if err == nil && bid > 0 && ask > 0 {
			return models.Quote{Instrument: instrument, Bid: bid, Ask: ask, At: ing.now().UTC()}, nil
		}
		if err != nil && !errors.Is(err, models.ErrTransientConnection) {
			return models.Quote{}, err
		}
		select {
		case <-ctx.Done():
			return models.Quote{}, ctx.Err()
		case <-time.After(ing.cfg.QuoteRetryWait):
		}
	}
}

func (ing *Ingestor) recordUnitSuccess(instrument string, tf models.Timeframe, clean []models.Bar, rejected []models.RejectedBar) {
	st := &UnitStatus{
		Instrument: instrument,
		Timeframe:  string(tf),
		LastSync:   ing.now().UTC(),
		Written:    len(clean),
		Rejected:   len(rejected),
	}
	if len(clean) > 0 {
		st.Earliest = clean[0].Date
		st.Latest = clean[len(clean)-1].Date
	}
	ing.mu.Lock()
	ing.status[unitKey(instrument, tf)] = st
	ing.mu.Unlock()
}

func (ing *Ingestor) recordUnitError(instrument string, tf models.Timeframe, err error) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	st, ok := ing.status[unitKey(instrument, tf)]
	if !ok {
		st = &UnitStatus{Instrument: instrument, Timeframe: string(tf)}
		ing.status[unitKey(instrument, tf)] = st
	}
	st.LastError = err.Error()
}

func unitKey(instrument string, tf models.Timeframe) string {
	return instrument + "/" + string(tf)
}

// Statuses returns a stable snapshot of all unit states.
func (ing *Ingestor) Statuses() []UnitStatus {
	ing.mu.Lock()
	out := make([]UnitStatus, 0, len(ing.status))
	for _, st := range ing.status {
		out = append(out, *st)
	}
	ing.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Instrument != out[j].Instrument {
			return out[i].Instrument < out[j].Instrument
		}
		return out[i].Timeframe < out[j].Timeframe
	})
	return out
}

// DayAnchors returns the last resolved trading-day anchor per
// instrument.
func (ing *Ingestor) DayAnchors() map[string]time.Time {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	out := make(map[string]time.Time, len(ing.dayAnchors))
	for k, v := range ing.dayAnchors {
		out[k] = v
	}
	return out
}
