package trace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/evidence"
	"github.com/san-kum/phytrace/internal/integrators"
	"github.com/san-kum/phytrace/internal/invariant"
	"github.com/san-kum/phytrace/internal/provenance"
	"github.com/san-kum/phytrace/internal/runlog"
	"github.com/san-kum/phytrace/internal/seed"
	"github.com/san-kum/phytrace/internal/telemetry"
)

var (
	ErrNoSystem       = errors.New("trace: system is required")
	ErrNoInitialState = errors.New("trace: initial state is required")
)

// Spec describes one run.
type Spec struct {
	System dynamo.System
	Params dynamo.Params
	Span   dynamo.Span
	Y0     dynamo.State

	// Invariants are evaluated after every accepted step in order. Bare
	// Stateless or Stateful functions are named after the function and get
	// severity error.
	Invariants []invariant.Checkable
	Solver     integrators.Options

	// Seed, when set, seeds a fresh seed.Context handed to systems that
	// implement seed.Seedable.
	Seed *int64
	// EvidenceDir, when set, receives an evidence pack for completed and
	// aborted runs alike.
	EvidenceDir string

	Logger   *slog.Logger
	Recorder telemetry.Recorder
	Capturer provenance.Capturer
	Writer   *evidence.Writer
}

func (s *Spec) validate() error {
	if s.System == nil {
		return ErrNoSystem
	}
	if len(s.Y0) == 0 {
		return ErrNoInitialState
	}
	return nil
}

// Run integrates spec.System under invariant checking.
//
// A critical violation, a failing predicate or cancellation stops the run:
// the partial result, including the step that stopped it, is returned
// together with the error. Integrator failures such as step size underflow
// only clear Success. Invalid input returns a nil result.
func Run(ctx context.Context, spec Spec) (res *Result, err error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	runID := uuid.NewString()
	rec := runlog.New(spec.Logger)
	log := rec.Logger().With("run_id", runID)

	opts := spec.Solver.WithDefaults()
	method, err := integrators.Lookup(opts.Method)
	if err != nil {
		return nil, err
	}
	identity := dynamo.Identity(spec.System)

	ctx, span := telemetry.StartSpan(ctx, "phytrace.Run",
		attribute.String("run.id", runID),
		attribute.String("run.system", identity),
		attribute.String("solver.method", method.Name()),
		attribute.Int("run.invariants", len(spec.Invariants)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	recorder := spec.Recorder
	if recorder == nil {
		recorder = telemetry.Nop{}
	}
	checker := invariant.NewChecker(invariant.WithLogger(log), invariant.WithRecorder(recorder))
	if err := checker.RegisterAll(spec.Invariants...); err != nil {
		return nil, fmt.Errorf("register invariants: %w", err)
	}

	params := spec.Params.Clone()
	if params == nil {
		params = dynamo.Params{}
	}

	log.Info("run started",
		"system", identity,
		"method", method.Name(),
		"rtol", opts.RTol,
		"atol", opts.ATol,
		"span", fmt.Sprintf("[%g, %g]", spec.Span.Start, spec.Span.End),
		"invariants", len(checker.Checks()),
	)

	var sc *seed.Context
	if spec.Seed != nil {
		sc = seed.New(*spec.Seed)
		if s, ok := spec.System.(seed.Seedable); ok {
			s.SeedWith(sc)
		}
		log.Info("seed context created", "seed", *spec.Seed)
	}

	env := captureEnvironment(ctx, spec.Capturer, log)

	hook := func(t float64, y dynamo.State) error {
		return checker.Evaluate(t, y, params)
	}
	ictx, ispan := telemetry.StartSpan(ctx, "phytrace.integrate")
	sol, solveErr := integrators.Solve(ictx, spec.System, params, spec.Span, spec.Y0, opts, hook)
	if sol != nil {
		ispan.SetAttributes(attribute.Int("solver.nfev", sol.NFev), attribute.Int("solver.steps", sol.Steps))
	}
	telemetry.EndSpan(ispan, solveErr)
	if sol == nil {
		log.Error("run rejected", "error", solveErr)
		return nil, solveErr
	}

	res = &Result{
		RunID:        runID,
		T:            sol.T,
		Y:            stateMajor(sol.Y),
		Params:       params,
		NFev:         sol.NFev,
		Steps:        sol.Steps,
		Status:       sol.Status,
		Success:      sol.Success && solveErr == nil,
		Message:      sol.Message,
		Invariants:   checker.Log(),
		Definitions:  checker.Definitions(),
		ChecksPassed: checker.ChecksPassed(),
	}

	abort := abortFrom(solveErr, res)
	if abort != nil {
		res.Message = abort.Message
		log.Error("run aborted", "kind", abort.Kind, "t", float64(abort.Time), "error", solveErr)
	}
	log.Info("run finished",
		"status", res.Status.String(),
		"success", res.Success,
		"checks_passed", res.ChecksPassed,
		"nfev", res.NFev,
		"steps", res.Steps,
		"message", res.Message,
	)
	recorder.ObserveRun(res.Status.String(), res.Success, res.ChecksPassed)

	res.manifest = buildManifest(spec, opts, method.Name(), identity, env, sc, res, abort)
	res.manifest.RunID = runID
	res.manifest.Timestamp = started.UTC().Format(time.RFC3339Nano)
	res.runLog = rec.Buffer().Bytes()

	if spec.EvidenceDir != "" {
		writeEvidence(ctx, spec, res, log)
	}
	return res, solveErr
}

func writeEvidence(ctx context.Context, spec Spec, res *Result, log *slog.Logger) {
	_, span := telemetry.StartSpan(ctx, "phytrace.write_evidence", attribute.String("evidence.dir", spec.EvidenceDir))
	w := spec.Writer
	if w == nil {
		w = evidence.NewWriter(evidence.WithLogger(log))
	}
	_, err := res.WriteEvidence(spec.EvidenceDir, w)
	telemetry.EndSpan(span, err)
	if err != nil {
		log.Error("evidence pack not written", "dir", spec.EvidenceDir, "error", err)
		res.EvidenceErr = err
		return
	}
	res.EvidenceDir = spec.EvidenceDir
}

// captureEnvironment never fails: a panicking capturer leaves every field
// unavailable.
func captureEnvironment(ctx context.Context, c provenance.Capturer, log *slog.Logger) (env provenance.Environment) {
	if c == nil {
		c = provenance.Local{}
	}
	ctx, span := telemetry.StartSpan(ctx, "phytrace.capture_environment")
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("environment capture panicked: %v", r)
			log.Warn("environment capture failed", "error", reason)
			env = provenance.Environment{
				GoVersion: provenance.Unavailable[string](reason),
				Module:    provenance.Unavailable[string](reason),
				Packages:  provenance.Unavailable[map[string]string](reason),
				System:    provenance.Unavailable[provenance.System](reason),
				Git:       provenance.Unavailable[provenance.Git](reason),
			}
		}
		span.End()
	}()

	env = c.Capture(ctx)
	if !env.Git.IsCaptured() {
		log.Debug("git state unavailable", "reason", env.Git.Reason())
	}
	return env
}

func abortFrom(err error, res *Result) *evidence.Abort {
	if err == nil {
		return nil
	}
	var (
		crit *invariant.CriticalViolationError
		perr *invariant.PredicateError
	)
	switch {
	case errors.As(err, &crit):
		return &evidence.Abort{
			Kind:    evidence.AbortCriticalViolation,
			Check:   crit.Check,
			Step:    crit.Step,
			Time:    evidence.Number(crit.Time),
			State:   evidence.VectorOf(crit.State),
			Message: err.Error(),
		}
	case errors.As(err, &perr):
		return &evidence.Abort{
			Kind:    evidence.AbortPredicateError,
			Check:   perr.Check,
			Step:    perr.Step,
			Time:    evidence.Number(perr.Time),
			Message: err.Error(),
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &evidence.Abort{
			Kind:    evidence.AbortCanceled,
			Time:    evidence.Number(res.FinalTime()),
			Message: err.Error(),
		}
	default:
		return &evidence.Abort{
			Kind:    "error",
			Time:    evidence.Number(res.FinalTime()),
			Message: err.Error(),
		}
	}
}

func buildManifest(spec Spec, opts integrators.Options, method, identity string, env provenance.Environment, sc *seed.Context, res *Result, abort *evidence.Abort) evidence.Manifest {
	maxStep := opts.MaxStep
	if math.IsInf(maxStep, 0) {
		maxStep = 0
	}
	return evidence.Manifest{
		Environment: env,
		Simulation: evidence.Simulation{
			Function:     identity,
			Params:       evidence.ParamsOf(res.Params),
			InitialState: evidence.VectorOf(spec.Y0),
			TimeSpan:     spec.Span,
		},
		Solver: evidence.Solver{
			Method:    method,
			RTol:      opts.RTol,
			ATol:      opts.ATol,
			FirstStep: opts.FirstStep,
			MaxStep:   maxStep,
			MaxSteps:  opts.MaxSteps,
		},
		Seeds:                   sc.Report(),
		ReproducibilityContract: provenance.DefaultContract().Snapshot(),
		SolverStats: evidence.SolverStats{
			Success:   res.Success,
			Status:    res.Status.String(),
			NFev:      res.NFev,
			Steps:     res.Steps,
			Points:    len(res.T),
			FinalTime: evidence.Number(res.FinalTime()),
			Message:   res.Message,
		},
		Invariants: evidence.InvariantsFrom(res.Definitions, res.Invariants),
		Abort:      abort,
	}
}
