// Package trace orchestrates invariant-checked runs.
//
// Run seeds the run's own seed context, captures the environment, drives
// the integrator with an invariant checker as its step hook and, when asked,
// writes an evidence pack for both completed and aborted runs. All state of
// a run is owned by that call; concurrent runs share nothing.
package trace
