// Package integrators implements the ODE solvers that advance a
// [dynamo.System] over a [dynamo.Span].
//
// Two families are provided:
//
//   - adaptive embedded Runge-Kutta pairs ([RK45] Dormand-Prince and
//     [RK23] Bogacki-Shampine) with rtol/atol error control
//   - fixed-step schemes ([RK4], [Euler]) for reference runs
//
// [Solve] drives either family and calls a [StepHook] after every accepted
// step. A hook that returns an error halts integration after that step;
// the partial [Solution] is returned together with the hook's error.
package integrators
