package models

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/invariant"
)

var ErrUnknownModel = errors.New("models: unknown model")

// Model bundles a system with its defaults.
type Model struct {
	Name        string
	Description string
	New         func() dynamo.System
	Params      dynamo.Params
	State       dynamo.State
	Span        dynamo.Span
	// Invariants builds the default checks for the given parameters.
	Invariants func(p dynamo.Params) []invariant.Checkable
}

// Defaults returns copies of the model's default params and state.
func (m Model) Defaults() (dynamo.Params, dynamo.State) {
	return m.Params.Clone(), m.State.Clone()
}

type Registry struct {
	models map[string]Model
}

// NewRegistry returns a registry holding every built-in model.
func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]Model)}
	for _, m := range builtins() {
		r.models[m.Name] = m
	}
	return r
}

func (r *Registry) Register(m Model) error {
	if m.Name == "" || m.New == nil {
		return fmt.Errorf("models: model needs a name and a constructor")
	}
	if _, ok := r.models[m.Name]; ok {
		return fmt.Errorf("models: %s already registered", m.Name)
	}
	r.models[m.Name] = m
	return nil
}

func (r *Registry) Get(name string) (Model, error) {
	m, ok := r.models[name]
	if !ok {
		return Model{}, fmt.Errorf("%w: %s (available: %v)", ErrUnknownModel, name, r.List())
	}
	return m, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BelowThreshold is a critical check that stops a run once any component
// exceeds limit.
func BelowThreshold(limit float64) invariant.Check {
	return invariant.New("below_threshold", invariant.SeverityCritical,
		invariant.Stateless(func(_ float64, y dynamo.State, _ dynamo.Params) bool {
			for _, v := range y {
				if v > limit {
					return false
				}
			}
			return true
		})).WithDescription(fmt.Sprintf("all components <= %g", limit))
}

func builtins() []Model {
	return []Model{
		{
			Name:        "damped_oscillator",
			Description: "m x'' + c x' + k x = 0",
			New:         func() dynamo.System { return DampedOscillator{} },
			Params:      dynamo.Params{"k": 1, "c": 0.1, "m": 1},
			State:       dynamo.State{1, 0},
			Span:        dynamo.Span{Start: 0, End: 10},
			Invariants: func(p dynamo.Params) []invariant.Checkable {
				return []invariant.Checkable{
					invariant.Finite(),
					invariant.Bounded(-2, 2),
					invariant.NonIncreasing("energy_decreasing", invariant.EnergyOf(DampedOscillator{}), 1e-6),
				}
			},
		},
		{
			Name:        "exponential_growth",
			Description: "dy/dt = k y, stopped by a critical threshold",
			New:         func() dynamo.System { return ExponentialGrowth{} },
			Params:      dynamo.Params{"k": 2},
			State:       dynamo.State{1},
			Span:        dynamo.Span{Start: 0, End: 5},
			Invariants: func(p dynamo.Params) []invariant.Checkable {
				return []invariant.Checkable{invariant.Finite(), BelowThreshold(10)}
			},
		},
		{
			Name:        "forced_oscillator",
			Description: "damped oscillator with seeded random forcing",
			New:         func() dynamo.System { return &ForcedOscillator{} },
			Params:      dynamo.Params{"k": 1, "c": 0.2, "m": 1, "amp": 0.1, "bin": 0.1},
			State:       dynamo.State{1, 0},
			Span:        dynamo.Span{Start: 0, End: 20},
			Invariants: func(p dynamo.Params) []invariant.Checkable {
				return []invariant.Checkable{invariant.Finite(), invariant.Bounded(-5, 5)}
			},
		},
		{
			Name:        "pendulum",
			Description: "damped simple pendulum",
			New:         func() dynamo.System { return Pendulum{} },
			Params:      dynamo.Params{"m": DefaultMass, "L": DefaultLength, "g": DefaultGravity, "b": 0.1},
			State:       dynamo.State{math.Pi / 4, 0},
			Span:        dynamo.Span{Start: 0, End: 10},
			Invariants: func(p dynamo.Params) []invariant.Checkable {
				return []invariant.Checkable{
					invariant.Finite(),
					invariant.NonIncreasing("energy_decreasing", invariant.EnergyOf(Pendulum{}), 1e-6),
				}
			},
		},
		{
			Name:        "double_pendulum",
			Description: "chaotic double pendulum",
			New:         func() dynamo.System { return DoublePendulum{} },
			Params:      dynamo.Params{"m1": 1, "m2": 1, "L1": 1, "L2": 1, "g": DefaultGravity},
			State:       dynamo.State{math.Pi / 2, math.Pi / 2, 0, 0},
			Span:        dynamo.Span{Start: 0, End: 20},
			Invariants: func(p dynamo.Params) []invariant.Checkable {
				return []invariant.Checkable{
					invariant.Finite(),
					invariant.Conserved("energy_conserved", invariant.EnergyOf(DoublePendulum{}), 0.01),
				}
			},
		},
		{
			Name:        "lorenz",
			Description: "Lorenz attractor",
			New:         func() dynamo.System { return Lorenz{} },
			Params:      dynamo.Params{"sigma": 10, "rho": 28, "beta": 8.0 / 3.0},
			State:       dynamo.State{1, 1, 1},
			Span:        dynamo.Span{Start: 0, End: 25},
			Invariants: func(p dynamo.Params) []invariant.Checkable {
				return []invariant.Checkable{invariant.Finite(), invariant.Bounded(-100, 100)}
			},
		},
		{
			Name:        "spring_mass",
			Description: "chain of three damped masses between walls",
			New:         func() dynamo.System { return SpringMass{} },
			Params:      dynamo.Params{"k": DefaultStiffness, "c": DefaultDamping, "m": DefaultMass},
			State:       dynamo.State{0.5, 0, -0.5, 0, 0, 0},
			Span:        dynamo.Span{Start: 0, End: 10},
			Invariants: func(p dynamo.Params) []invariant.Checkable {
				return []invariant.Checkable{
					invariant.Finite(),
					invariant.NonIncreasing("energy_decreasing", invariant.EnergyOf(SpringMass{}), 1e-6),
				}
			},
		},
	}
}
