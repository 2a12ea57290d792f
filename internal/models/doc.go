// Package models provides built-in dynamical systems and a registry that
// pairs each with default parameters, initial state, span and invariants.
//
// Systems are stateless: every physical constant is read from the run's
// parameters, falling back to the model default when absent.
package models
