// Package metrics defines the prometheus collectors for mutations, sync
// broadcasts, batches and imports.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "budgetsync"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	SyncEvents       *prometheus.CounterVec
	Batches          *prometheus.CounterVec
	BatchOpen        prometheus.Gauge
	Imports          *prometheus.CounterVec
	Importing        prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutating operations by operation and result.",
		}, []string{"op", "result"}), // result: ok|error

		MutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time spent inside the mutation envelope.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),

		SyncEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_events_total",
			Help:      "Change notifications by outcome.",
		}, []string{"outcome"}), // outcome: sent|skipped|failed

		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Completed batches by mode and result.",
		}, []string{"mode", "result"}),

		BatchOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_open",
			Help:      "1 while a batch is open.",
		}),

		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_transitions_total",
			Help:      "Import state machine transitions.",
		}, []string{"transition"}), // transition: start|finish|abort

		Importing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "importing",
			Help:      "1 while import mode is on.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.Mutations, m.MutationDuration, m.SyncEvents,
			m.Batches, m.BatchOpen, m.Imports, m.Importing,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveMutation records one enveloped operation.
func (m *Metrics) ObserveMutation(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op, result(err)).Inc()
	m.MutationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SyncEvent records a notification outcome.
func (m *Metrics) SyncEvent(outcome string) {
	if m == nil {
		return
	}
	m.SyncEvents.WithLabelValues(outcome).Inc()
}

// BatchStarted marks a batch open.
func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.BatchOpen.Set(1)
}

// BatchEnded records a finished batch.
func (m *Metrics) BatchEnded(mode string, err error) {
	if m == nil {
		return
	}
	m.BatchOpen.Set(0)
	m.Batches.WithLabelValues(mode, result(err)).Inc()
}

// ImportTransition records a state machine transition and the resulting
// import flag.
func (m *Metrics) ImportTransition(transition string, importing bool) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(transition).Inc()
	if importing {
		m.Importing.Set(1)
	} else {
		m.Importing.Set(0)
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// WriteText writes every metric family g gathers in the prometheus text
// exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
