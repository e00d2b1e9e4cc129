package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/botix"
)

// Metrics records graph execution. It implements botix.Observer and owns its
// registry so several runs in one process do not collide.
type Metrics struct {
	reg *prometheus.Registry

	stateEntries *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	waitSeconds  *prometheus.HistogramVec
	wheelSpeed   *prometheus.GaugeVec
	runs         *prometheus.CounterVec
}

// NewMetrics registers the botix collectors on a fresh registry, plus the Go
// and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		stateEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botix",
				Subsystem: "graph",
				Name:      "state_entries_total",
				Help:      "States entered, by pattern kind.",
			},
			[]string{"kind"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botix",
				Subsystem: "graph",
				Name:      "transitions_total",
				Help:      "Transitions finished, by whether the breaker tripped.",
			},
			[]string{"tripped"},
		),
		waitSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "botix",
				Subsystem: "graph",
				Name:      "transition_wait_seconds",
				Help:      "Time spent waiting in a transition.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tripped"},
		),
		wheelSpeed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "botix",
				Subsystem: "motor",
				Name:      "commanded_speed",
				Help:      "Speed last commanded to each wheel.",
			},
			[]string{"wheel"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botix",
				Subsystem: "graph",
				Name:      "runs_total",
				Help:      "Graph runs, by outcome.",
			},
			[]string{"outcome"},
		),
	}
	m.reg.MustRegister(
		m.stateEntries, m.transitions, m.waitSeconds, m.wheelSpeed, m.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

var wheelNames = [botix.WheelCount]string{"front_left", "rear_left", "front_right", "rear_right"}

func (m *Metrics) StateEntered(s *botix.MovingState) {
	m.stateEntries.WithLabelValues(s.Kind().String()).Inc()
	for i, v := range s.Speeds() {
		m.wheelSpeed.WithLabelValues(wheelNames[i]).Set(float64(v))
	}
}

func (m *Metrics) TransitionFinished(_ *botix.MovingTransition, elapsed time.Duration, tripped bool) {
	label := strconv.FormatBool(tripped)
	m.transitions.WithLabelValues(label).Inc()
	m.waitSeconds.WithLabelValues(label).Observe(elapsed.Seconds())
}

// RunFinished counts a run as "completed", "stopped" or "failed".
func (m *Metrics) RunFinished(report botix.Report, err error) {
	switch {
	case err != nil:
		m.runs.WithLabelValues("failed").Inc()
	case report.Stopped:
		m.runs.WithLabelValues("stopped").Inc()
	default:
		m.runs.WithLabelValues("completed").Inc()
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

var _ botix.Observer = (*Metrics)(nil)
