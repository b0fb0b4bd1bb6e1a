package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for scheduling operations.
const (
	OutcomeScheduled = "scheduled"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"

	// Read-only lookups.
	OutcomeResolved = "resolved"
	OutcomeEmpty    = "empty"
)

// Recorder receives scheduling outcomes. Implementations must be safe for
// concurrent use because HTTP handlers share one recorder.
type Recorder interface {
	ObserveOperation(op, outcome string, dur time.Duration)
	AddRecords(op string, n int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveOperation(string, string, time.Duration) {}
func (Nop) AddRecords(string, int)                         {}

// Prom records scheduling outcomes as Prometheus metrics.
type Prom struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	created    *prometheus.CounterVec
}

// NewProm registers the dispatch collectors on reg. A nil registerer defaults
// to the global Prometheus registerer; collectors that are already registered
// are reused.
func NewProm(reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_operations_total",
		Help: "Scheduling operations by outcome",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_operation_duration_seconds",
		Help:    "Wall time of scheduling operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_records_created_total",
		Help: "Assignments, maintenance events and reroutes written by scheduling operations",
	}, []string{"operation"})

	var err error
	if operations, err = register(reg, operations); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if created, err = register(reg, created); err != nil {
		return nil, err
	}

	return &Prom{operations: operations, duration: duration, created: created}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (p *Prom) ObserveOperation(op, outcome string, dur time.Duration) {
	p.operations.WithLabelValues(op, outcome).Inc()
	p.duration.WithLabelValues(op).Observe(dur.Seconds())
}

func (p *Prom) AddRecords(op string, n int) {
	if n <= 0 {
		return
	}
	p.created.WithLabelValues(op).Add(float64(n))
}
