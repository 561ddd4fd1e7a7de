package models

// Timeframe is the sampling granularity of a bar series. The token set
// matches the provider's history API (D1 daily down to m1 minutely).
type Timeframe string

const (
	TFD1  Timeframe = "D1"
	TFW1  Timeframe = "W1"
	TFM1  Timeframe = "M1"
	TFH8  Timeframe = "H8"
	TFH4  Timeframe = "H4"
	TFH2  Timeframe = "H2"
	TFH1  Timeframe = "H1"
	TFm30 Timeframe = "m30"
	TFm15 Timeframe = "m15"
	TFm5  Timeframe = "m5"
	TFm1  Timeframe = "m1"
)

// timeframeRank orders timeframes coarse to fine. W1 and M1 aggregate
// above the day, everything else below it.
var timeframeRank = map[Timeframe]int{
	TFM1: 0, TFW1: 1, TFD1: 2,
	TFH8: 3, TFH4: 4, TFH2: 5, TFH1: 6,
	TFm30: 7, TFm15: 8, TFm5: 9, TFm1: 10,
}

// SupportedTimeframes returns all timeframes in coarse-to-fine order.
func SupportedTimeframes() []Timeframe {
	return []Timeframe{TFM1, TFW1, TFD1, TFH8, TFH4, TFH2, TFH1, TFm30, TFm15, TFm5, TFm1}
}

// IsValidTimeframe returns true if tf belongs to the closed set.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := timeframeRank[tf]
	return ok
}

// FinerThan reports whether tf samples more finely than other.
func (tf Timeframe) FinerThan(other Timeframe) bool {
	return timeframeRank[tf] > timeframeRank[other]
}

// FinestTimeframe is the granularity used for anchor probing.
func FinestTimeframe() Timeframe { return TFm1 }
