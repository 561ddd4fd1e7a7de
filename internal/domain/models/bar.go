package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a bid/ask OHLCV record for one interval of a series. Prices are
// decimals to match the Decimal(19,6) storage columns.
type Bar struct {
	Date time.Time

	BidOpen  decimal.Decimal
	BidHigh  decimal.Decimal
	BidLow   decimal.Decimal
	BidClose decimal.Decimal

	AskOpen  decimal.Decimal
	AskHigh  decimal.Decimal
	AskLow   decimal.Decimal
	AskClose decimal.Decimal

	Volume int64
}

// RejectedBar is a bar dropped by the integrity filter together with the
// names of the invariants it violated.
type RejectedBar struct {
	Bar     Bar
	Reasons []string
}

// Reject reasons reported by the integrity filter.
const (
	RejectBidHighLow     = "bid_high_lt_low"
	RejectBidHighOpen    = "bid_high_lt_open"
	RejectBidLowOpen     = "bid_low_gt_open"
	RejectBidHighClose   = "bid_high_lt_close"
	RejectBidLowClose    = "bid_low_gt_close"
	RejectAskHighLow     = "ask_high_lt_low"
	RejectAskHighOpen    = "ask_high_lt_open"
	RejectAskLowOpen     = "ask_low_gt_open"
	RejectAskHighClose   = "ask_high_lt_close"
	RejectAskLowClose    = "ask_low_gt_close"
	RejectNegativeVolume = "negative_volume"
)

// Quote is the latest bid/ask pair reported for an instrument.
type Quote struct {
	Instrument string    `json:"instrument"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	At         time.Time `json:"at"`
}

// ExtremityDates are the earliest and latest timestamps present in a
// stored series.
type ExtremityDates struct {
	Earliest time.Time
	Latest   time.Time
}
