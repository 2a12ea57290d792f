package integrators

import "github.com/san-kum/phytrace/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string     { return "Euler" }
func (e *Euler) Adaptive() bool   { return false }
func (e *Euler) Evaluations() int { return 1 }

func (e *Euler) Step(sys dynamo.System, p dynamo.Params, t float64, x dynamo.State, dt float64) dynamo.State {
	dx := sys.Derive(t, x, p)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
