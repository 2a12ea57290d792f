package models

import "github.com/san-kum/phytrace/internal/dynamo"

const (
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

// SpringMass is a chain of n identical masses between two walls. The state
// is [x_0..x_{n-1}, v_0..v_{n-1}], so n follows from the state length.
type SpringMass struct{}

func (SpringMass) Name() string { return "spring_mass" }

func (SpringMass) Derive(_ float64, x dynamo.State, p dynamo.Params) dynamo.State {
	n := len(x) / 2
	k, c, m := p.Get("k", DefaultStiffness), p.Get("c", DefaultDamping), p.Get("m", DefaultMass)
	dx := make(dynamo.State, len(x))

	for i := 0; i < n; i++ {
		dx[i] = x[n+i]
	}
	for i := 0; i < n; i++ {
		pos, vel := x[i], x[n+i]
		left, right := 0.0, 0.0
		if i > 0 {
			left = x[i-1]
		}
		if i < n-1 {
			right = x[i+1]
		}
		force := -k*(pos-left) - k*(pos-right) - c*vel
		dx[n+i] = force / m
	}
	return dx
}

func (SpringMass) Energy(x dynamo.State, p dynamo.Params) float64 {
	n := len(x) / 2
	k, m := p.Get("k", DefaultStiffness), p.Get("m", DefaultMass)
	energy := 0.0
	prev := 0.0
	for i := 0; i < n; i++ {
		v := x[n+i]
		energy += 0.5 * m * v * v
		stretch := x[i] - prev
		energy += 0.5 * k * stretch * stretch
		prev = x[i]
	}
	if n > 0 {
		energy += 0.5 * k * x[n-1] * x[n-1]
	}
	return energy
}
