package oletime

import (
	"testing"
	"time"
)

func TestKnownValues(t *testing.T) {
	cases := []struct {
		t    time.Time
		want float64
	}{
		{time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(1899, 12, 30, 12, 0, 0, 0, time.UTC), 0.5},
		{time.Date(1900, 1, 1, 6, 0, 0, 0, time.UTC), 2.25},
	}
	for _, c := range cases {
		if got := ToOLE(c.t); got != c.want {
			t.Fatalf("ToOLE(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestRoundTripSecondPrecision(t *testing.T) {
	times := []time.Time{
		time.Date(2017, 4, 27, 10, 1, 0, 0, time.UTC),
		time.Date(2020, 2, 29, 23, 59, 59, 0, time.UTC),
		time.Date(1999, 12, 31, 0, 0, 1, 0, time.UTC),
		time.Date(2024, 6, 15, 17, 30, 45, 0, time.UTC),
	}
	for _, want := range times {
		got := FromOLE(ToOLE(want))
		if !got.Equal(want) {
			t.Fatalf("round trip %v -> %v", want, got)
		}
	}
}

func TestRoundTripSweep(t *testing.T) {
	// Step through a week of minute boundaries plus odd second offsets.
	start := time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7*24*60; i += 17 {
		want := start.Add(time.Duration(i)*time.Minute + time.Duration(i%60)*time.Second)
		got := FromOLE(ToOLE(want))
		if !got.Equal(want) {
			t.Fatalf("round trip %v -> %v", want, got)
		}
	}
}

func TestFromOLEDropsSubSecond(t *testing.T) {
	base := time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC)
	v := ToOLE(base)
	// Nudge by a quarter second; decode must round back to the second.
	got := FromOLE(v + 0.25/86400)
	if !got.Equal(base) {
		t.Fatalf("expected %v, got %v", base, got)
	}
}
