package models

import (
	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/seed"
)

// DampedOscillator is m x'' + c x' + k x = 0 with state [x, v].
type DampedOscillator struct{}

func (DampedOscillator) Name() string { return "damped_oscillator" }

func (DampedOscillator) Derive(_ float64, y dynamo.State, p dynamo.Params) dynamo.State {
	k, c, m := p.Get("k", 1), p.Get("c", 0.1), p.Get("m", 1)
	x, v := y[0], y[1]
	return dynamo.State{v, (-k*x - c*v) / m}
}

func (DampedOscillator) Energy(y dynamo.State, p dynamo.Params) float64 {
	k, m := p.Get("k", 1), p.Get("m", 1)
	return 0.5*m*y[1]*y[1] + 0.5*k*y[0]*y[0]
}

// ExponentialGrowth is dy/dt = k y, applied componentwise.
type ExponentialGrowth struct{}

func (ExponentialGrowth) Name() string { return "exponential_growth" }

func (ExponentialGrowth) Derive(_ float64, y dynamo.State, p dynamo.Params) dynamo.State {
	return y.Scale(p.Get("k", 2))
}

// ForcedOscillator is a damped oscillator driven by piecewise constant
// random forcing. The forcing sequence comes from the run's seed context;
// without one the oscillator is unforced.
type ForcedOscillator struct {
	forcing []float64
}

const forcingBins = 1024

func (*ForcedOscillator) Name() string { return "forced_oscillator" }

var _ seed.Seedable = (*ForcedOscillator)(nil)

func (f *ForcedOscillator) SeedWith(c *seed.Context) {
	rng := c.Rand()
	f.forcing = make([]float64, forcingBins)
	for i := range f.forcing {
		f.forcing[i] = rng.NormFloat64()
	}
}

func (f *ForcedOscillator) Derive(t float64, y dynamo.State, p dynamo.Params) dynamo.State {
	dy := DampedOscillator{}.Derive(t, y, p)
	if len(f.forcing) == 0 {
		return dy
	}
	bin := p.Get("bin", 0.1)
	i := int(t/bin) % len(f.forcing)
	if i < 0 {
		i += len(f.forcing)
	}
	dy[1] += p.Get("amp", 0.1) * f.forcing[i] / p.Get("m", 1)
	return dy
}
