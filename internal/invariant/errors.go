package invariant

import (
	"errors"
	"fmt"

	"github.com/san-kum/phytrace/internal/dynamo"
)

var (
	// ErrDuplicateName is returned by Register when a check name is already taken.
	ErrDuplicateName = errors.New("invariant: duplicate check name")

	// ErrInvalidCheck indicates a check without a name or predicate.
	ErrInvalidCheck = errors.New("invariant: invalid check")

	// ErrUnknownSeverity indicates a severity name outside warning|error|critical.
	ErrUnknownSeverity = errors.New("invariant: unknown severity")

	// ErrCriticalViolation is the cause of every CriticalViolationError.
	ErrCriticalViolation = errors.New("invariant: critical violation")

	// ErrPredicatePanic is the cause of a PredicateError raised by a panicking predicate.
	ErrPredicatePanic = errors.New("invariant: predicate panicked")

	// ErrAborted is returned by Evaluate once the checker has stopped the run.
	ErrAborted = errors.New("invariant: checker already aborted")
)

// CriticalViolationError stops a run. It carries enough context to
// reproduce the failing step.
type CriticalViolationError struct {
	Check string
	Step  int
	Time  float64
	State dynamo.State
}

func (e *CriticalViolationError) Error() string {
	return fmt.Sprintf("invariant %q violated at step %d (t=%.6g): state=%v", e.Check, e.Step, e.Time, []float64(e.State))
}

func (e *CriticalViolationError) Unwrap() error {
	return ErrCriticalViolation
}

// PredicateError reports a predicate that failed to evaluate. It is an
// implementation bug in the predicate, not a violation.
type PredicateError struct {
	Check string
	Step  int
	Time  float64
	Err   error
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("invariant %q could not be evaluated at step %d (t=%.6g): %v", e.Check, e.Step, e.Time, e.Err)
}

func (e *PredicateError) Unwrap() error {
	return e.Err
}
