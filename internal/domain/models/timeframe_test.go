package models

import "testing"

func TestSupportedTimeframesOrder(t *testing.T) {
	tfs := SupportedTimeframes()
	if len(tfs) != 11 {
		t.Fatalf("expected 11 timeframes, got %d", len(tfs))
	}
	for i := 1; i < len(tfs); i++ {
		if !tfs[i].FinerThan(tfs[i-1]) {
			t.Fatalf("%s should be finer than %s", tfs[i], tfs[i-1])
		}
	}
	if tfs[len(tfs)-1] != FinestTimeframe() {
		t.Fatalf("finest timeframe should close the list, got %s", tfs[len(tfs)-1])
	}
}

func TestIsValidTimeframe(t *testing.T) {
	for _, tf := range SupportedTimeframes() {
		if !IsValidTimeframe(tf) {
			t.Fatalf("%s should be valid", tf)
		}
	}
	for _, tf := range []Timeframe{"", "42h", "M5", "h1", "d1"} {
		if IsValidTimeframe(tf) {
			t.Fatalf("%q should be invalid", tf)
		}
	}
}
