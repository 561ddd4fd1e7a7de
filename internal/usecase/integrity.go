package usecase

import (
	"sort"

	"fxpull/internal/domain/models"
)

// barViolations checks the per-bar consistency invariants: on each of
// the bid and ask sides high must dominate open, low and close, low
// must not exceed open or close, and volume must be non-negative. All
// checks are independent; every violated one is reported.
func barViolations(b models.Bar) []string {
	var reasons []string
	if b.BidHigh.Cmp(b.BidLow) < 0 {
		reasons = append(reasons, models.RejectBidHighLow)
	}
	if b.BidHigh.Cmp(b.BidOpen) < 0 {
		reasons = append(reasons, models.RejectBidHighOpen)
	}
	if b.BidLow.Cmp(b.BidOpen) > 0 {
		reasons = append(reasons, models.RejectBidLowOpen)
	}
	if b.BidHigh.Cmp(b.BidClose) < 0 {
		reasons = append(reasons, models.RejectBidHighClose)
	}
	if b.BidLow.Cmp(b.BidClose) > 0 {
		reasons = append(reasons, models.RejectBidLowClose)
	}
	if b.AskHigh.Cmp(b.AskLow) < 0 {
		reasons = append(reasons, models.RejectAskHighLow)
	}
	if b.AskHigh.Cmp(b.AskOpen) < 0 {
		reasons = append(reasons, models.RejectAskHighOpen)
	}
	if b.AskLow.Cmp(b.AskOpen) > 0 {
		reasons = append(reasons, models.RejectAskLowOpen)
	}
	if b.AskHigh.Cmp(b.AskClose) < 0 {
		reasons = append(reasons, models.RejectAskHighClose)
	}
	if b.AskLow.Cmp(b.AskClose) > 0 {
		reasons = append(reasons, models.RejectAskLowClose)
	}
	if b.Volume < 0 {
		reasons = append(reasons, models.RejectNegativeVolume)
	}
	return reasons
}

// CleanBars validates and deduplicates a fetched batch. Inconsistent
// bars are dropped and returned with their reasons so callers can count
// or log them. When several surviving bars share a timestamp the last
// one in fetch order wins; later elements of a provider response carry
// the more complete data for in-progress periods. The result is
// strictly ascending by timestamp with one bar per timestamp. Pure and
// deterministic; no bar is synthesized or corrected.
func CleanBars(bars []models.Bar) ([]models.Bar, []models.RejectedBar) {
	valid := make([]models.Bar, 0, len(bars))
	var rejected []models.RejectedBar
	for _, b := range bars {
		if reasons := barViolations(b); len(reasons) > 0 {
			rejected = append(rejected, models.RejectedBar{Bar: b, Reasons: reasons})
			continue
		}
		valid = append(valid, b)
	}

	// Last-wins dedup: walk in reverse and keep the first occurrence
	// per timestamp.
	seen := make(map[int64]struct{}, len(valid))
	out := make([]models.Bar, 0, len(valid))
	for i := len(valid) - 1; i >= 0; i-- {
		key := valid[i].Date.UTC().Unix()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, valid[i])
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, rejected
}
