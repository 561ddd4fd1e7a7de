package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"fxpull/internal/domain/models"
)

// pagedSource serves minute bars the way the provider does: newest-first
// pages of bounded size within the requested window.
type pagedSource struct {
	bars     []models.Bar // ascending
	pageSize int
	calls    int
}

func (s *pagedSource) Fetch(ctx context.Context, instrument string, from, to time.Time, tf models.Timeframe) ([]models.Bar, error) {
	s.calls++
	var page []models.Bar
	for i := len(s.bars) - 1; i >= 0 && len(page) < s.pageSize; i-- {
		d := s.bars[i].Date
		if d.Before(from) || d.After(to) {
			continue
		}
		page = append(page, s.bars[i])
	}
	return page, nil
}

func (s *pagedSource) Connect(ctx context.Context) error { return nil }
func (s *pagedSource) IsConnected() bool                 { return true }
func (s *pagedSource) Close() error                      { return nil }

func (s *pagedSource) Quote(ctx context.Context, instrument string) (float64, float64, error) {
	return 0, 0, nil
}

func (s *pagedSource) Offers(ctx context.Context) ([]string, error) { return nil, nil }

func minuteBars(start time.Time, n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = goodBar(start.Add(time.Duration(i)*time.Minute), 1.25, 10)
	}
	return bars
}

func TestAnchorConvergesInPageSteps(t *testing.T) {
	dayStart := time.Date(2024, 5, 10, 7, 0, 0, 0, time.UTC)
	src := &pagedSource{bars: minuteBars(dayStart, 100), pageSize: 30}

	f := NewAnchorFinder(src, 0)
	f.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 30, 0, time.UTC) }

	anchor, iterations, err := f.OpenDateTime(context.Background(), "GBP/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !anchor.Equal(dayStart) {
		t.Fatalf("expected anchor %v, got %v", dayStart, anchor)
	}
	// Every probe skips a whole page backward, so 100 bars resolve in a
	// handful of calls rather than one per bar.
	if src.calls > 10 {
		t.Fatalf("expected page-count convergence, took %d probes", src.calls)
	}
	if iterations != src.calls {
		t.Fatalf("iterations %d != probe calls %d", iterations, src.calls)
	}
}

func TestAnchorEmptyWindowReturnsCursor(t *testing.T) {
	src := &pagedSource{pageSize: 30}
	f := NewAnchorFinder(src, 0)
	now := time.Date(2024, 5, 12, 3, 45, 10, 0, time.UTC)
	f.now = func() time.Time { return now }

	anchor, _, err := f.OpenDateTime(context.Background(), "GBP/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := now.Truncate(time.Minute); !anchor.Equal(want) {
		t.Fatalf("expected cursor %v, got %v", want, anchor)
	}
}

func TestAnchorSingleBarIsAnchor(t *testing.T) {
	dayStart := time.Date(2024, 5, 10, 0, 1, 0, 0, time.UTC)
	src := &pagedSource{bars: minuteBars(dayStart, 1), pageSize: 30}
	f := NewAnchorFinder(src, 0)
	f.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }

	anchor, _, err := f.OpenDateTime(context.Background(), "GBP/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !anchor.Equal(dayStart) {
		t.Fatalf("expected %v, got %v", dayStart, anchor)
	}
}

// stuckSource never narrows the window: it always answers with two bars
// at the cursor itself, the pathological duplicate-timestamp feed.
type stuckSource struct {
	pagedSource
}

func (s *stuckSource) Fetch(ctx context.Context, instrument string, from, to time.Time, tf models.Timeframe) ([]models.Bar, error) {
	s.calls++
	b := goodBar(to, 1.25, 10)
	return []models.Bar{b, b}, nil
}

func TestAnchorDetectsStuckCursor(t *testing.T) {
	src := &stuckSource{}
	f := NewAnchorFinder(src, 0)
	f.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }

	_, _, err := f.OpenDateTime(context.Background(), "GBP/USD")
	if !errors.Is(err, models.ErrAnchorResolution) {
		t.Fatalf("expected ErrAnchorResolution, got %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("stuck cursor should fail on first probe, took %d", src.calls)
	}
}

func TestAnchorIterationCap(t *testing.T) {
	dayStart := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	// Tiny pages force many probes; a cap below that must trip.
	src := &pagedSource{bars: minuteBars(dayStart, 200), pageSize: 2}
	f := NewAnchorFinder(src, 5)
	f.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }

	_, iterations, err := f.OpenDateTime(context.Background(), "GBP/USD")
	if !errors.Is(err, models.ErrAnchorResolution) {
		t.Fatalf("expected ErrAnchorResolution, got %v", err)
	}
	if iterations != 5 {
		t.Fatalf("expected cap of 5 iterations, got %d", iterations)
	}
}
