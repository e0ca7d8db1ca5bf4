package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruralpay/ledgersim/internal/services"
)

// Metrics bundles ledger metrics. It implements services.EventSink.
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	SettledAmount    prometheus.Counter
	FeesCollected    prometheus.Counter
	PendingTransfers prometheus.Gauge
	TransferAmount   prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New constructs metrics and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersim_events_total",
				Help: "Total engine events by kind",
			},
			[]string{"kind"},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersim_rejections_total",
				Help: "Total rejected commands and discarded transfers by reason",
			},
			[]string{"reason"},
		),
		SettledAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledgersim_settled_amount_total",
			Help: "Sum of executed transfer amounts",
		}),
		FeesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledgersim_fees_collected_total",
			Help: "Sum of fees collected on executed transfers",
		}),
		PendingTransfers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledgersim_pending_transfers",
			Help: "Transfers placed but not yet settled",
		}),
		TransferAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgersim_transfer_amount",
			Help:    "Amount of executed transfers",
			Buckets: prometheus.ExponentialBuckets(10, 10, 8),
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.EventsTotal,
		m.RejectionsTotal,
		m.SettledAmount,
		m.FeesCollected,
		m.PendingTransfers,
		m.TransferAmount,
	)
	return m
}

func (m *Metrics) Emit(e services.Event) {
	m.EventsTotal.WithLabelValues(string(e.Kind)).Inc()
	if e.Rejected() {
		m.RejectionsTotal.WithLabelValues(string(e.Reason)).Inc()
	}

	switch e.Kind {
	case services.EventPlaced:
		m.PendingTransfers.Inc()
	case services.EventExecuted:
		m.PendingTransfers.Dec()
		m.SettledAmount.Add(float64(e.Tx.Amount))
		m.FeesCollected.Add(float64(e.Tx.Fee))
		m.TransferAmount.Observe(float64(e.Tx.Amount))
	case services.EventDiscarded:
		m.PendingTransfers.Dec()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
