package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/phytrace/internal/invariant"
)

// Recorder observes invariant evaluations and run outcomes.
type Recorder interface {
	invariant.Recorder
	ObserveRun(status string, success, checksPassed bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveCheck(string, invariant.Severity, bool) {}
func (Nop) ObserveRun(string, bool, bool)                 {}

// Prometheus exports invariant counters.
type Prometheus struct {
	checks     *prometheus.CounterVec
	violations *prometheus.CounterVec
	runs       *prometheus.CounterVec
}

// NewPrometheus registers the phytrace collectors on reg. Registering twice
// on the same registry reuses the existing collectors.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phytrace",
			Name:      "invariant_checks_total",
			Help:      "Invariant evaluations by check and severity",
		}, []string{"check", "severity"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phytrace",
			Name:      "invariant_violations_total",
			Help:      "Invariant violations by check and severity",
		}, []string{"check", "severity"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phytrace",
			Name:      "runs_total",
			Help:      "Orchestrated runs by termination status",
		}, []string{"status", "success", "checks_passed"}),
	}

	var err error
	if p.checks, err = register(reg, p.checks); err != nil {
		return nil, err
	}
	if p.violations, err = register(reg, p.violations); err != nil {
		return nil, err
	}
	if p.runs, err = register(reg, p.runs); err != nil {
		return nil, err
	}
	return p, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (p *Prometheus) ObserveCheck(name string, severity invariant.Severity, passed bool) {
	sev := severity.String()
	p.checks.WithLabelValues(name, sev).Inc()
	if !passed {
		p.violations.WithLabelValues(name, sev).Inc()
	}
}

func (p *Prometheus) ObserveRun(status string, success, checksPassed bool) {
	p.runs.WithLabelValues(status, boolLabel(success), boolLabel(checksPassed)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
