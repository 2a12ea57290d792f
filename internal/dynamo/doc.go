// Package dynamo provides the core primitives shared by the integrator, the
// invariant checker and the run orchestrator.
//
// The package defines the vocabulary of a traced simulation:
//
//   - [State]: vector representing system state
//   - [Params]: named scalar parameters passed to the right-hand side
//   - [System]: interface for ODE systems (dy/dt = f(t, y, p))
//   - [SystemFunc]: adapter that lets a plain function act as a [System]
//   - [Span]: the integration interval
//
// # Example
//
//	sys := dynamo.SystemFunc(func(t float64, y dynamo.State, p dynamo.Params) dynamo.State {
//	    return dynamo.State{-p["k"] * y[0]}
//	})
//	dy := sys.Derive(0, dynamo.State{1}, dynamo.Params{"k": 0.5})
//
// # Thread Safety
//
// State and Params are plain values; callers that share them across
// goroutines must copy them first with Clone.
package dynamo
