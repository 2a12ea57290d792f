package invariant

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/phytrace/internal/dynamo"
)

// Violation locates the first failure of a check.
type Violation struct {
	Step int     `json:"step"`
	Time float64 `json:"time"`
}

// Record accumulates the results of one check over a run.
type Record struct {
	Name           string     `json:"name"`
	Severity       Severity   `json:"severity"`
	Checks         int        `json:"checks"`
	Violations     int        `json:"violations"`
	FirstViolation *Violation `json:"first_violation,omitempty"`
}

// Log is the invariant outcome of a run.
type Log struct {
	Invariants   []Record `json:"invariants"`
	ChecksPassed bool     `json:"checks_passed"`
	Steps        int      `json:"steps_evaluated"`
	Aborted      bool     `json:"aborted"`
}

// Recorder observes every evaluation, typically to export metrics.
type Recorder interface {
	ObserveCheck(name string, severity Severity, passed bool)
}

type Option func(*Checker)

func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Checker) {
		c.recorder = r
	}
}

// Checker evaluates registered checks once per accepted step. It holds
// run-scoped state and must not be shared between runs.
type Checker struct {
	checks  []Check
	index   map[string]int
	records []Record
	history []dynamo.State

	step    int
	passed  bool
	aborted bool

	logger   *slog.Logger
	recorder Recorder
}

func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		index:  make(map[string]int),
		passed: true,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register appends a check. Checks are evaluated in registration order.
func (c *Checker) Register(check Check) error {
	if check.name == "" || check.predicate == nil {
		return fmt.Errorf("%w: name=%q", ErrInvalidCheck, check.name)
	}
	if !check.severity.Valid() {
		return fmt.Errorf("%w: %d for check %q", ErrUnknownSeverity, int(check.severity), check.name)
	}
	if _, ok := c.index[check.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, check.name)
	}
	c.index[check.name] = len(c.checks)
	c.checks = append(c.checks, check)
	c.records = append(c.records, Record{Name: check.name, Severity: check.severity})
	c.history = append(c.history, nil)
	return nil
}

// RegisterAll registers every item, stopping at the first error.
func (c *Checker) RegisterAll(items ...Checkable) error {
	for _, item := range items {
		if item == nil {
			continue
		}
		if err := c.Register(item.AsCheck()); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs every check against the state reached after an accepted
// step. All checks of the step are evaluated before a critical violation
// is returned, so their counters agree on the number of steps processed.
// A predicate that errors or panics stops evaluation with a PredicateError.
func (c *Checker) Evaluate(t float64, y dynamo.State, p dynamo.Params) error {
	if c.aborted {
		return ErrAborted
	}
	c.step++

	var critical *CriticalViolationError
	for i, check := range c.checks {
		s := Sample{
			Step:     c.step,
			Time:     t,
			State:    y,
			Params:   p,
			Previous: c.history[i],
		}

		ok, err := evaluate(check.predicate, s)
		if err != nil {
			c.aborted = true
			c.passed = false
			c.logger.Error("invariant predicate failed",
				"check", check.name, "step", c.step, "t", t, "error", err)
			return &PredicateError{Check: check.name, Step: c.step, Time: t, Err: err}
		}

		rec := &c.records[i]
		rec.Checks++
		if !ok {
			rec.Violations++
			if rec.FirstViolation == nil {
				rec.FirstViolation = &Violation{Step: c.step, Time: t}
			}
			c.violated(check, t, y)
			if check.severity == SeverityCritical && critical == nil {
				critical = &CriticalViolationError{Check: check.name, Step: c.step, Time: t, State: y.Clone()}
			}
		}
		if c.recorder != nil {
			c.recorder.ObserveCheck(check.name, check.severity, ok)
		}

		if check.NeedsHistory() {
			c.history[i] = y.Clone()
		}
	}

	if critical != nil {
		c.aborted = true
		return critical
	}
	return nil
}

func (c *Checker) violated(check Check, t float64, y dynamo.State) {
	attrs := []any{"check", check.name, "severity", check.severity.String(), "step", c.step, "t", t}
	switch {
	case check.severity.AtLeast(SeverityCritical):
		c.passed = false
		c.logger.Error("critical invariant violated, aborting", append(attrs, "state", []float64(y))...)
	case check.severity.AtLeast(SeverityError):
		c.passed = false
		c.logger.Error("invariant violated", attrs...)
	default:
		c.logger.Warn("invariant violated", attrs...)
	}
}

func evaluate(p Predicate, s Sample) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPredicatePanic, r)
		}
	}()
	return p.Evaluate(s)
}

// ChecksPassed is false once any error or critical check has failed.
func (c *Checker) ChecksPassed() bool { return c.passed }

// Aborted reports whether a critical violation or predicate failure stopped the run.
func (c *Checker) Aborted() bool { return c.aborted }

// Steps is the number of steps evaluated so far.
func (c *Checker) Steps() int { return c.step }

// Checks returns the registered checks in evaluation order.
func (c *Checker) Checks() []Check {
	out := make([]Check, len(c.checks))
	copy(out, c.checks)
	return out
}

// Records returns a copy of the per-check counters.
func (c *Checker) Records() []Record {
	out := make([]Record, len(c.records))
	for i, r := range c.records {
		out[i] = r
		if r.FirstViolation != nil {
			v := *r.FirstViolation
			out[i].FirstViolation = &v
		}
	}
	return out
}

// Definitions describes the registered checks.
func (c *Checker) Definitions() []Definition {
	out := make([]Definition, len(c.checks))
	for i, check := range c.checks {
		out[i] = check.Definition()
	}
	return out
}

func (c *Checker) Log() Log {
	return Log{
		Invariants:   c.Records(),
		ChecksPassed: c.passed,
		Steps:        c.step,
		Aborted:      c.aborted,
	}
}
