package integrators

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/phytrace/internal/dynamo"
)

const (
	DefaultMethod   = "RK45"
	DefaultRTol     = 1e-3
	DefaultATol     = 1e-6
	DefaultMaxSteps = 500000

	// defaultFixedSteps is the number of steps a fixed-step method takes
	// over the span when no step size is configured.
	defaultFixedSteps = 1000
)

// Method is an integration scheme known to Solve.
type Method interface {
	Name() string
	Adaptive() bool
}

var methods = map[string]func() Method{
	"RK45":  func() Method { return RK45() },
	"RK23":  func() Method { return RK23() },
	"RK4":   func() Method { return NewRK4() },
	"EULER": func() Method { return NewEuler() },
}

// Lookup returns a fresh instance of the named method. Names are case-insensitive.
func Lookup(name string) (Method, error) {
	if name == "" {
		name = DefaultMethod
	}
	fn, ok := methods[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown integration method: %s (available: %s)", name, strings.Join(Methods(), ", "))
	}
	return fn(), nil
}

// Methods lists the registered method names.
func Methods() []string {
	names := make([]string, 0, len(methods))
	for _, fn := range methods {
		names = append(names, fn().Name())
	}
	sort.Strings(names)
	return names
}

// Options configures a Solve call. Zero values select the defaults.
type Options struct {
	Method string
	RTol   float64
	ATol   float64
	// FirstStep is the initial step for adaptive methods and the step
	// size for fixed-step methods.
	FirstStep float64
	MaxStep   float64
	MaxSteps  int
}

// WithDefaults fills zero fields with the package defaults.
func (o Options) WithDefaults() Options {
	if o.Method == "" {
		o.Method = DefaultMethod
	}
	if o.RTol <= 0 {
		o.RTol = DefaultRTol
	}
	if o.ATol <= 0 {
		o.ATol = DefaultATol
	}
	if o.MaxStep <= 0 {
		o.MaxStep = math.Inf(1)
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	return o
}

// StepHook is called after every accepted step with the new time and
// state. Returning an error halts integration.
type StepHook func(t float64, y dynamo.State) error

// Status describes how a Solve call ended.
type Status int

const (
	StatusCompleted Status = iota
	StatusFailed
	StatusHalted
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusHalted:
		return "halted"
	case StatusCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Solution holds the accepted points of an integration, including the
// initial point.
type Solution struct {
	T       []float64
	Y       []dynamo.State
	NFev    int
	Steps   int
	Status  Status
	Success bool
	Message string
}

func (s *Solution) append(t float64, y dynamo.State) {
	s.T = append(s.T, t)
	s.Y = append(s.Y, y.Clone())
}

func (s *Solution) finish(status Status, msg string) {
	s.Status = status
	s.Success = status == StatusCompleted
	s.Message = msg
}

// Solve integrates sys from y0 over span. Integrator failures (step size
// underflow, exhausted step budget) are reported through Success and
// Message with a nil error. A non-nil error means invalid input, a halting
// hook (the hook's error is returned unchanged) or context cancellation.
func Solve(ctx context.Context, sys dynamo.System, p dynamo.Params, span dynamo.Span, y0 dynamo.State, opts Options, hook StepHook) (*Solution, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}
	if !y0.IsValid() {
		return nil, fmt.Errorf("initial state: %w", dynamo.ErrInvalidState)
	}
	opts = opts.WithDefaults()

	method, err := Lookup(opts.Method)
	if err != nil {
		return nil, err
	}

	f0 := sys.Derive(span.Start, y0.Clone(), p)
	if len(f0) != len(y0) {
		return nil, fmt.Errorf("%w: derivative has %d components, state has %d", dynamo.ErrDimensionMismatch, len(f0), len(y0))
	}

	sol := &Solution{NFev: 1}
	sol.append(span.Start, y0)

	switch m := method.(type) {
	case *Adaptive:
		err = solveAdaptive(ctx, m, sys, p, span, y0, f0, opts, hook, sol)
	case Stepper:
		err = solveFixed(ctx, m, sys, p, span, y0, opts, hook, sol)
	default:
		return nil, fmt.Errorf("method %s cannot be driven", method.Name())
	}
	return sol, err
}

func solveAdaptive(ctx context.Context, m *Adaptive, sys dynamo.System, p dynamo.Params, span dynamo.Span, y0, f0 dynamo.State, opts Options, hook StepHook, sol *Solution) error {
	t := span.Start
	y := y0.Clone()
	f := f0

	h := opts.FirstStep
	if h <= 0 {
		h = m.initialStep(sys, p, t, y, f, span.Length(), opts.RTol, opts.ATol)
		sol.NFev++
	}

	for t < span.End {
		select {
		case <-ctx.Done():
			sol.finish(StatusCanceled, "integration canceled")
			return ctx.Err()
		default:
		}

		if sol.Steps >= opts.MaxSteps {
			sol.finish(StatusFailed, dynamo.ErrMaxSteps.Error())
			return nil
		}

		minStep := 10 * (math.Nextafter(t, math.Inf(1)) - t)
		h = math.Min(h, opts.MaxStep)
		if h < minStep {
			h = minStep
		}

		var (
			tNew, errNorm float64
			yNew, fNew    dynamo.State
			rejected      bool
		)
		for {
			tNew = t + h
			if tNew >= span.End {
				tNew = span.End
			}
			step := tNew - t

			yNew, fNew, errNorm = m.attempt(sys, p, t, y, f, step, opts.RTol, opts.ATol)
			sol.NFev += m.stages()

			if errNorm < 1 {
				factor := m.factor(errNorm)
				if rejected {
					factor = math.Min(1, factor)
				}
				h = step * factor
				break
			}
			h = step * m.factor(errNorm)
			rejected = true
			if h < minStep {
				sol.finish(StatusFailed, (&dynamo.SimulationError{Step: sol.Steps, Time: t, State: y, Wrapped: dynamo.ErrStepTooSmall}).Error())
				return nil
			}
		}

		t, y, f = tNew, yNew, fNew
		sol.Steps++
		sol.append(t, y)

		if hook != nil {
			if err := hook(t, y.Clone()); err != nil {
				sol.finish(StatusHalted, fmt.Sprintf("halted by step hook at t=%.6g", t))
				return err
			}
		}
	}

	sol.finish(StatusCompleted, "integration reached end of span")
	return nil
}

func solveFixed(ctx context.Context, m Stepper, sys dynamo.System, p dynamo.Params, span dynamo.Span, y0 dynamo.State, opts Options, hook StepHook, sol *Solution) error {
	dt := opts.FirstStep
	if dt <= 0 {
		dt = math.Min(span.Length()/defaultFixedSteps, opts.MaxStep)
	}

	t := span.Start
	y := y0.Clone()

	for t < span.End {
		select {
		case <-ctx.Done():
			sol.finish(StatusCanceled, "integration canceled")
			return ctx.Err()
		default:
		}

		if sol.Steps >= opts.MaxSteps {
			sol.finish(StatusFailed, dynamo.ErrMaxSteps.Error())
			return nil
		}

		tNew := t + dt
		if tNew >= span.End || span.End-tNew < 1e-12*span.Length() {
			tNew = span.End
		}

		y = m.Step(sys, p, t, y, tNew-t)
		sol.NFev += m.Evaluations()
		t = tNew
		sol.Steps++
		sol.append(t, y)

		if hook != nil {
			if err := hook(t, y.Clone()); err != nil {
				sol.finish(StatusHalted, fmt.Sprintf("halted by step hook at t=%.6g", t))
				return err
			}
		}
	}

	sol.finish(StatusCompleted, "integration reached end of span")
	return nil
}
