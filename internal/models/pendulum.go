package models

import (
	"math"

	"github.com/san-kum/phytrace/internal/dynamo"
)

const (
	DefaultMass    = 1.0
	DefaultLength  = 1.0
	DefaultGravity = 9.81
)

// Pendulum is a damped simple pendulum with state [theta, omega].
type Pendulum struct{}

func (Pendulum) Name() string { return "pendulum" }

func (Pendulum) Derive(_ float64, y dynamo.State, p dynamo.Params) dynamo.State {
	m, l, g, b := p.Get("m", DefaultMass), p.Get("L", DefaultLength), p.Get("g", DefaultGravity), p.Get("b", 0.1)
	theta, omega := y[0], y[1]
	alpha := (-b*omega - m*g*l*math.Sin(theta)) / (m * l * l)
	return dynamo.State{omega, alpha}
}

func (Pendulum) Energy(y dynamo.State, p dynamo.Params) float64 {
	m, l, g := p.Get("m", DefaultMass), p.Get("L", DefaultLength), p.Get("g", DefaultGravity)
	theta, omega := y[0], y[1]
	return 0.5*m*l*l*omega*omega + m*g*l*(1-math.Cos(theta))
}
