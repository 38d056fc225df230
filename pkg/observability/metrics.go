package observability

import (
	"context"
	"errors"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	NodeVisits   *prometheus.CounterVec
	NodeDuration *prometheus.HistogramVec
	Runs         *prometheus.CounterVec
	Commands     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered (e.g. by a second engine in the same process) are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bbscript_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"kind"},
		),
		NodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bbscript_node_duration_seconds",
				Help:    "Time spent inside node handlers",
				Buckets: []float64{.01, .05, .1, .5, 1, 3, 10, 30, 120},
			},
			[]string{"kind"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bbscript_runs_total",
				Help: "Finished top-level runs by final status",
			},
			[]string{"status"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bbscript_command_dispatch_total",
				Help: "Dispatched external commands by result",
			},
			[]string{"result"},
		),
	}

	var err error
	m.NodeVisits, err = register(reg, m.NodeVisits)
	if err != nil {
		return nil, err
	}
	m.NodeDuration, err = register(reg, m.NodeDuration)
	if err != nil {
		return nil, err
	}
	m.Runs, err = register(reg, m.Runs)
	if err != nil {
		return nil, err
	}
	m.Commands, err = register(reg, m.Commands)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.Kind)).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeDuration.WithLabelValues(string(e.Kind)).Observe(e.Duration.Seconds())
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(string(e.Status)).Inc()
		},
		OnCommand: func(_ context.Context, e *domain.CommandEvent) {
			m.Commands.WithLabelValues(string(e.Result)).Inc()
		},
	}
}
