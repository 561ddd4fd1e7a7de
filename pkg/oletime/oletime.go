// Package oletime converts between calendar timestamps and the OLE
// automation day-count representation used by the provider's history
// API: whole days since 1899-12-30 plus the fraction of the day elapsed
// since midnight. All arithmetic is UTC; dates before the epoch are out
// of contract.
package oletime

import (
	"math"
	"time"
)

var epoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 86400

// ToOLE converts t to an OLE day-count float with second precision.
func ToOLE(t time.Time) float64 {
	d := t.UTC().Sub(epoch)
	days := int64(d / (24 * time.Hour))
	secs := int64(d%(24*time.Hour)) / int64(time.Second)
	return float64(days) + float64(secs)/secondsPerDay
}

// FromOLE converts an OLE day-count float back to a UTC timestamp,
// rounding the day fraction to the nearest second.
func FromOLE(v float64) time.Time {
	days, frac := math.Modf(v)
	secs := math.Round(frac * secondsPerDay)
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
}
