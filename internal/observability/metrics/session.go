// Package metrics exposes Prometheus instruments for session transitions and guard decisions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	obserrors "github.com/assignpro/assignpro-web/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition names.
const (
	TransitionInitialize = "initialize"
	TransitionLogin      = "login"
	TransitionRegister   = "register"
	TransitionLogout     = "logout"
)

// Guard layers.
const (
	LayerRoute = "route"
	LayerView  = "view"
)

const namespace = "assignpro"

// SessionMetric captures one session store transition.
type SessionMetric struct {
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// Sink receives session and guard observations.
type Sink interface {
	SessionTransition(in SessionMetric)
	SessionState(s domainauth.Session)
	GuardDecision(layer, outcome string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) SessionTransition(SessionMetric) {}
func (Nop) SessionState(domainauth.Session) {}
func (Nop) GuardDecision(string, string)    {}

// Prometheus implements Sink with collectors registered on a registry.
type Prometheus struct {
	transitions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	resolving   prometheus.Gauge
	viewer      *prometheus.GaugeVec
	decisions   *prometheus.CounterVec
}

var _ Sink = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session store transitions by result.",
		}, []string{"transition", "result", "error_class"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transition_duration_seconds",
			Help:      "Time spent resolving a session transition.",
			Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 5},
		}, []string{"transition"}),
		resolving: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resolving",
			Help:      "1 while a session transition is in flight.",
		}),
		viewer: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "authenticated",
			Help:      "1 for the role of the current identity, 0 otherwise.",
		}, []string{"role"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Route guard decisions by layer and outcome.",
		}, []string{"layer", "outcome"}),
	}
	for _, c := range []prometheus.Collector{p.transitions, p.durations, p.resolving, p.viewer, p.decisions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	for _, role := range domainauth.Roles() {
		p.viewer.WithLabelValues(string(role)).Set(0)
	}
	return p, nil
}

// SessionTransition counts a transition; failures carry their error class.
func (p *Prometheus) SessionTransition(in SessionMetric) {
	class := ""
	if in.Err != nil && in.Result == ResultError {
		class = obserrors.Classify(in.Err)
	}
	p.transitions.WithLabelValues(in.Transition, in.Result, class).Inc()
	if in.Duration > 0 {
		p.durations.WithLabelValues(in.Transition).Observe(in.Duration.Seconds())
	}
}

// SessionState mirrors a published snapshot.
func (p *Prometheus) SessionState(s domainauth.Session) {
	if s.Resolving {
		p.resolving.Set(1)
	} else {
		p.resolving.Set(0)
	}
	current := s.RoleOf()
	for _, role := range domainauth.Roles() {
		v := 0.0
		if role == current {
			v = 1
		}
		p.viewer.WithLabelValues(string(role)).Set(v)
	}
}

func (p *Prometheus) GuardDecision(layer, outcome string) {
	p.decisions.WithLabelValues(layer, outcome).Inc()
}
