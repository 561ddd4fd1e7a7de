package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	barsWritten      *prometheus.CounterVec
	barsRejected     *prometheus.CounterVec
	connectAttempts  *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	quoteBid         *prometheus.GaugeVec
	quoteAsk         *prometheus.GaugeVec
	syncDuration     *prometheus.HistogramVec
	anchorIterations *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_bars_written_total",
				Help: "Bars upserted into storage",
			},
			[]string{"instrument", "timeframe"},
		),
		barsRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_bars_rejected_total",
				Help: "Bars dropped by the integrity filter, by violated invariant",
			},
			[]string{"instrument", "timeframe", "reason"},
		),
		connectAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_connect_attempts_total",
				Help: "Provider connect attempts by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_errors_total",
				Help: "Errors encountered during ingestion",
			},
			[]string{"type"},
		),
		quoteBid: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fxpull_quote_bid",
				Help: "Last observed bid per instrument",
			},
			[]string{"instrument"},
		),
		quoteAsk: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fxpull_quote_ask",
				Help: "Last observed ask per instrument",
			},
			[]string{"instrument"},
		),
		syncDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxpull_sync_duration_seconds",
				Help:    "Duration of one unit sync",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"instrument", "timeframe"},
		),
		anchorIterations: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxpull_anchor_iterations",
				Help:    "Probes needed to resolve the trading-day anchor",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"instrument"},
		),
	}
}

func (r *Recorder) RecordBarsWritten(instrument, timeframe string, n int) {
	r.barsWritten.WithLabelValues(instrument, timeframe).Add(float64(n))
}

func (r *Recorder) RecordBarsRejected(instrument, timeframe, reason string, n int) {
	r.barsRejected.WithLabelValues(instrument, timeframe, reason).Add(float64(n))
}

func (r *Recorder) RecordConnectAttempt(outcome string) {
	r.connectAttempts.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordQuote(instrument string, bid, ask float64) {
	r.quoteBid.WithLabelValues(instrument).Set(bid)
	r.quoteAsk.WithLabelValues(instrument).Set(ask)
}

func (r *Recorder) RecordSyncDuration(instrument, timeframe string, seconds float64) {
	r.syncDuration.WithLabelValues(instrument, timeframe).Observe(seconds)
}

func (r *Recorder) RecordAnchorIterations(instrument string, n int) {
	r.anchorIterations.WithLabelValues(instrument).Observe(float64(n))
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
