package models

import (
	"math"

	"github.com/san-kum/phytrace/internal/dynamo"
)

// DoublePendulum has state [theta1, theta2, omega1, omega2] and parameters
// m1, m2, L1, L2, g.
type DoublePendulum struct{}

func (DoublePendulum) Name() string { return "double_pendulum" }

type dpParams struct{ m1, m2, l1, l2, g float64 }

func doublePendulumParams(p dynamo.Params) dpParams {
	return dpParams{
		m1: p.Get("m1", DefaultMass),
		m2: p.Get("m2", DefaultMass),
		l1: p.Get("L1", DefaultLength),
		l2: p.Get("L2", DefaultLength),
		g:  p.Get("g", DefaultGravity),
	}
}

func (DoublePendulum) Derive(_ float64, y dynamo.State, p dynamo.Params) dynamo.State {
	theta1, theta2, omega1, omega2 := y[0], y[1], y[2], y[3]
	c := doublePendulumParams(p)
	m1, m2, l1, l2, g := c.m1, c.m2, c.l1, c.l2, c.g

	delta := theta2 - theta1
	sinD, cosD := math.Sin(delta), math.Cos(delta)

	den1 := (m1+m2)*l1 - m2*l1*cosD*cosD
	den2 := (l2 / l1) * den1

	alpha1 := (m2*l1*omega1*omega1*sinD*cosD +
		m2*g*math.Sin(theta2)*cosD +
		m2*l2*omega2*omega2*sinD -
		(m1+m2)*g*math.Sin(theta1)) / den1

	alpha2 := (-m2*l2*omega2*omega2*sinD*cosD +
		(m1+m2)*g*math.Sin(theta1)*cosD -
		(m1+m2)*l1*omega1*omega1*sinD -
		(m1+m2)*g*math.Sin(theta2)) / den2

	return dynamo.State{omega1, omega2, alpha1, alpha2}
}

func (DoublePendulum) Energy(y dynamo.State, p dynamo.Params) float64 {
	theta1, theta2, omega1, omega2 := y[0], y[1], y[2], y[3]
	c := doublePendulumParams(p)
	m1, m2, l1, l2, g := c.m1, c.m2, c.l1, c.l2, c.g

	v1sq := l1 * l1 * omega1 * omega1
	v2sq := l1*l1*omega1*omega1 + l2*l2*omega2*omega2 +
		2*l1*l2*omega1*omega2*math.Cos(theta1-theta2)

	ke := 0.5*m1*v1sq + 0.5*m2*v2sq
	y1 := -l1 * math.Cos(theta1)
	y2 := y1 - l2*math.Cos(theta2)
	pe := m1*g*y1 + m2*g*y2

	return ke + pe
}
