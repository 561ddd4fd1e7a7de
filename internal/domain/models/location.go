package models

import (
	"fmt"
	"regexp"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Location addresses one stored series: a database per
// (broker, instrument) and a table per (instrument, timeframe).
// Example: GBP/USD m1 for broker fxcm maps to
// fxcm_bar_GBPUSD.tbl_GBPUSD_m1.
type Location struct {
	Database string
	Table    string
}

// String returns the fully qualified table name.
func (l Location) String() string {
	return l.Database + "." + l.Table
}

// NormalizeInstrument strips every non-alphanumeric character from an
// instrument name, producing the storage-safe token used in database
// and table names.
func NormalizeInstrument(instrument string) string {
	return nonAlnum.ReplaceAllString(instrument, "")
}

// Locate derives the storage location for a series. Pure function of
// its inputs; the same (broker, instrument, timeframe) always maps to
// the same location regardless of instrument formatting.
func Locate(broker, instrument string, tf Timeframe) Location {
	ins := NormalizeInstrument(instrument)
	return Location{
		Database: fmt.Sprintf("%s_bar_%s", broker, ins),
		Table:    fmt.Sprintf("tbl_%s_%s", ins, tf),
	}
}

// DetectCollisions returns normalized tokens claimed by more than one
// distinct instrument. Normalization is expected to be injective over
// the configured set; a non-empty result means two instruments would
// share a series.
func DetectCollisions(instruments []string) map[string][]string {
	byToken := make(map[string][]string)
	for _, ins := range instruments {
		tok := NormalizeInstrument(ins)
		seen := false
		for _, prev := range byToken[tok] {
			if prev == ins {
				seen = true
				break
			}
		}
		if !seen {
			byToken[tok] = append(byToken[tok], ins)
		}
	}
	out := make(map[string][]string)
	for tok, list := range byToken {
		if len(list) > 1 {
			out[tok] = list
		}
	}
	return out
}
