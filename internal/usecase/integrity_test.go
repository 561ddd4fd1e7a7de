package usecase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fxpull/internal/domain/models"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// goodBar builds a bar satisfying every consistency invariant.
func goodBar(ts time.Time, mid float64, vol int64) models.Bar {
	return models.Bar{
		Date:     ts,
		BidOpen:  dec(mid - 0.001),
		BidHigh:  dec(mid + 0.002),
		BidLow:   dec(mid - 0.003),
		BidClose: dec(mid),
		AskOpen:  dec(mid + 0.004),
		AskHigh:  dec(mid + 0.007),
		AskLow:   dec(mid + 0.002),
		AskClose: dec(mid + 0.005),
		Volume:   vol,
	}
}

func ts(min int) time.Time {
	return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}

func TestCleanDropsInconsistentBars(t *testing.T) {
	broken := goodBar(ts(1), 1.25, 10)
	broken.BidHigh = dec(1.0) // below open, low and close

	negVol := goodBar(ts(2), 1.25, 10)
	negVol.Volume = -1

	askBad := goodBar(ts(3), 1.25, 10)
	askBad.AskLow = dec(9.9)

	in := []models.Bar{goodBar(ts(0), 1.25, 5), broken, negVol, askBad, goodBar(ts(4), 1.26, 7)}
	clean, rejected := CleanBars(in)

	if len(clean) != 2 {
		t.Fatalf("expected 2 surviving bars, got %d", len(clean))
	}
	if len(rejected) != 3 {
		t.Fatalf("expected 3 rejected bars, got %d", len(rejected))
	}
	for _, b := range clean {
		if got := barViolations(b); len(got) != 0 {
			t.Fatalf("clean output violates invariants: %v", got)
		}
	}
	// Every violated invariant is reported independently.
	if len(rejected[0].Reasons) != 3 {
		t.Fatalf("expected 3 reasons for broken bid bar, got %v", rejected[0].Reasons)
	}
	if rejected[1].Reasons[0] != models.RejectNegativeVolume {
		t.Fatalf("expected negative volume reason, got %v", rejected[1].Reasons)
	}
}

func TestCleanDedupLastWins(t *testing.T) {
	a := goodBar(ts(1), 1.25, 100)
	b := goodBar(ts(1), 1.25, 250) // later in fetch order, more complete
	clean, rejected := CleanBars([]models.Bar{a, b})

	if len(rejected) != 0 {
		t.Fatalf("unexpected rejects: %v", rejected)
	}
	if len(clean) != 1 {
		t.Fatalf("expected 1 bar after dedup, got %d", len(clean))
	}
	if clean[0].Volume != 250 {
		t.Fatalf("expected last duplicate to win, got volume %d", clean[0].Volume)
	}
}

func TestCleanOutputStrictlyAscending(t *testing.T) {
	in := []models.Bar{
		goodBar(ts(5), 1.25, 1),
		goodBar(ts(1), 1.25, 2),
		goodBar(ts(3), 1.25, 3),
		goodBar(ts(1), 1.25, 4),
		goodBar(ts(2), 1.25, 5),
	}
	clean, _ := CleanBars(in)
	if len(clean) != 4 {
		t.Fatalf("expected 4 distinct timestamps, got %d", len(clean))
	}
	for i := 1; i < len(clean); i++ {
		if !clean[i-1].Date.Before(clean[i].Date) {
			t.Fatalf("output not strictly ascending at %d: %v >= %v", i, clean[i-1].Date, clean[i].Date)
		}
	}
}

func TestCleanIdempotent(t *testing.T) {
	in := []models.Bar{
		goodBar(ts(2), 1.25, 1),
		goodBar(ts(0), 1.24, 2),
		goodBar(ts(2), 1.25, 3),
	}
	once, _ := CleanBars(in)
	twice, rejected := CleanBars(once)
	if len(rejected) != 0 {
		t.Fatalf("second pass rejected bars: %v", rejected)
	}
	if len(once) != len(twice) {
		t.Fatalf("second pass changed length: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if !once[i].Date.Equal(twice[i].Date) || once[i].Volume != twice[i].Volume {
			t.Fatalf("second pass changed bar %d", i)
		}
	}
}

func TestCleanEmptyInput(t *testing.T) {
	clean, rejected := CleanBars(nil)
	if len(clean) != 0 || len(rejected) != 0 {
		t.Fatalf("expected empty output for empty input")
	}
}
