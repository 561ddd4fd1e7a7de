package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fxpull/internal/domain/models"
	applogger "fxpull/pkg/logger"
)

type fakeSource struct {
	failBefore int // attempts that fail before connecting; -1 fails forever
	fatalErr   error
	attempts   int
	connected  bool
}

func (s *fakeSource) Connect(ctx context.Context) error {
	s.attempts++
	if s.fatalErr != nil {
		return s.fatalErr
	}
	if s.failBefore < 0 || s.attempts <= s.failBefore {
		return fmt.Errorf("%w: dial tcp: connection refused", models.ErrTransientConnection)
	}
	s.connected = true
	return nil
}

func (s *fakeSource) IsConnected() bool { return s.connected }
func (s *fakeSource) Close() error      { return nil }

func (s *fakeSource) Fetch(ctx context.Context, instrument string, from, to time.Time, tf models.Timeframe) ([]models.Bar, error) {
	return nil, nil
}

func (s *fakeSource) Quote(ctx context.Context, instrument string) (float64, float64, error) {
	return 0, 0, nil
}

func (s *fakeSource) Offers(ctx context.Context) ([]string, error) { return nil, nil }

type nopMetrics struct{}

func (nopMetrics) RecordBarsWritten(instrument, timeframe string, n int)          {}
func (nopMetrics) RecordBarsRejected(instrument, timeframe, reason string, n int) {}
func (nopMetrics) RecordConnectAttempt(outcome string)                            {}
func (nopMetrics) RecordQuote(instrument string, bid, ask float64)                {}
func (nopMetrics) RecordSyncDuration(instrument, timeframe string, seconds float64) {
}
func (nopMetrics) RecordAnchorIterations(instrument string, n int) {}
func (nopMetrics) RecordError(kind string)                         {}

func newTestManager(src *fakeSource, slept *[]time.Duration) *Manager {
	return NewManager(src, nopMetrics{}, applogger.Nop(),
		WithBackoffUnit(time.Second),
		WithSleep(func(d time.Duration) { *slept = append(*slept, d) }),
	)
}

func TestExhaustsAttemptBudget(t *testing.T) {
	src := &fakeSource{failBefore: -1}
	var slept []time.Duration
	m := newTestManager(src, &slept)

	err := m.EnsureConnected(context.Background())
	if !errors.Is(err, models.ErrConnectionFailure) {
		t.Fatalf("expected ErrConnectionFailure, got %v", err)
	}
	if src.attempts != 10 {
		t.Fatalf("expected 10 attempts, got %d", src.attempts)
	}
	// No sleep after the final attempt.
	if len(slept) != 9 {
		t.Fatalf("expected 9 sleeps, got %d", len(slept))
	}
	for i, d := range slept {
		if want := time.Duration(i+1) * time.Second; d != want {
			t.Fatalf("sleep %d: got %v, want %v", i, d, want)
		}
	}
}

func TestSucceedsOnThirdAttempt(t *testing.T) {
	src := &fakeSource{failBefore: 2}
	var slept []time.Duration
	m := newTestManager(src, &slept)

	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", src.attempts)
	}
	var total time.Duration
	for _, d := range slept {
		total += d
	}
	if total != 3*time.Second {
		t.Fatalf("expected 3 backoff units slept, got %v", total)
	}
	if !m.IsConnected() {
		t.Fatal("expected connected after success")
	}
}

func TestNonTransientPropagatesImmediately(t *testing.T) {
	authErr := errors.New("authentication rejected")
	src := &fakeSource{fatalErr: authErr}
	var slept []time.Duration
	m := newTestManager(src, &slept)

	err := m.EnsureConnected(context.Background())
	if !errors.Is(err, authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if errors.Is(err, models.ErrConnectionFailure) {
		t.Fatal("non-transient error must not escalate to ErrConnectionFailure")
	}
	if src.attempts != 1 || len(slept) != 0 {
		t.Fatalf("expected single attempt and no backoff, got %d attempts, %d sleeps", src.attempts, len(slept))
	}
}

func TestAlreadyConnectedIsNoop(t *testing.T) {
	src := &fakeSource{connected: true}
	var slept []time.Duration
	m := newTestManager(src, &slept)

	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.attempts != 0 {
		t.Fatalf("expected no connect attempts, got %d", src.attempts)
	}
}
