// Package invariant evaluates named, severity-tagged predicates against the
// state of a running simulation.
//
// A [Check] wraps a [Predicate] with a name and a [Severity]. A [Checker]
// owns the checks of one run and is invoked once per accepted integration
// step through [Checker.Evaluate]:
//
//   - warning violations are logged and counted
//   - error violations are logged and clear the sticky [Checker.ChecksPassed] flag
//   - critical violations abort the run with a [*CriticalViolationError]
//
// Every check keeps its own previous-state history. A check sees the state
// it was evaluated against on the previous step, or nil on its first call.
//
// Invariant violations are runtime diagnostics, not proofs of correctness.
package invariant
