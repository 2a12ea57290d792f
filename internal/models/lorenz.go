package models

import "github.com/san-kum/phytrace/internal/dynamo"

// Lorenz is the Lorenz system with parameters sigma, rho and beta.
type Lorenz struct{}

func (Lorenz) Name() string { return "lorenz" }

func (Lorenz) Derive(_ float64, s dynamo.State, p dynamo.Params) dynamo.State {
	sigma, rho, beta := p.Get("sigma", 10), p.Get("rho", 28), p.Get("beta", 8.0/3.0)
	return dynamo.State{sigma * (s[1] - s[0]), s[0]*(rho-s[2]) - s[1], s[0]*s[1] - beta*s[2]}
}
