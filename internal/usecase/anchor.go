package usecase

import (
	"context"
	"fmt"
	"time"

	"fxpull/internal/domain/models"
	drepo "fxpull/internal/domain/repository"
)

// DefaultAnchorIterations bounds the probe loop. Provider pages hold a
// few hundred bars, so a full day of minute data resolves in a handful
// of probes; hitting the cap means the feed is not converging.
const DefaultAnchorIterations = 64

// AnchorFinder resolves the timestamp at which the current, still-open
// coarse period began accumulating data. The coarse bar itself keeps
// changing while the period is open, so the finder probes the finest
// granularity instead: it repeatedly fetches [midnight UTC, cursor] and
// moves the cursor to the earliest bar of each newest-first page until
// a page with at most one bar remains.
type AnchorFinder struct {
	source        drepo.MarketDataSource
	maxIterations int
	now           func() time.Time
}

// NewAnchorFinder creates an AnchorFinder. maxIterations <= 0 selects
// DefaultAnchorIterations.
func NewAnchorFinder(source drepo.MarketDataSource, maxIterations int) *AnchorFinder {
	if maxIterations <= 0 {
		maxIterations = DefaultAnchorIterations
	}
	return &AnchorFinder{source: source, maxIterations: maxIterations, now: time.Now}
}

// OpenDateTime returns the anchor of the current trading day for
// instrument and the number of probes it took. An empty window yields
// the cursor itself. A cursor that stops decreasing, or exhaustion of
// the iteration cap, fails with models.ErrAnchorResolution.
func (f *AnchorFinder) OpenDateTime(ctx context.Context, instrument string) (time.Time, int, error) {
	now := f.now().UTC().Truncate(time.Minute)
	windowStart := now.Truncate(24 * time.Hour)
	cursor := now

	for i := 1; i <= f.maxIterations; i++ {
		bars, err := f.source.Fetch(ctx, instrument, windowStart, cursor, models.FinestTimeframe())
		if err != nil {
			return time.Time{}, i, fmt.Errorf("anchor probe %s: %w", instrument, err)
		}
		if len(bars) == 0 {
			return cursor, i, nil
		}
		earliest := bars[len(bars)-1].Date
		if len(bars) == 1 {
			return earliest, i, nil
		}
		if !earliest.Before(cursor) {
			return time.Time{}, i, fmt.Errorf("%w: cursor stuck at %s for %s",
				models.ErrAnchorResolution, cursor.Format(time.RFC3339), instrument)
		}
		cursor = earliest
	}
	return time.Time{}, f.maxIterations, fmt.Errorf("%w: no convergence after %d probes for %s",
		models.ErrAnchorResolution, f.maxIterations, instrument)
}
