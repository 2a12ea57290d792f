package config

import (
	"math"
	"sort"

	"github.com/san-kum/phytrace/internal/integrators"
)

func preset(model string, params map[string]float64, y0 []float64, end float64) *Config {
	cfg := DefaultConfig()
	cfg.Model = model
	cfg.Params = params
	cfg.InitialState = y0
	cfg.TimeSpan = &SpanConfig{Start: 0, End: end}
	return cfg
}

var Presets = map[string]map[string]*Config{
	"damped_oscillator": {
		"light": preset("damped_oscillator", map[string]float64{"k": 1, "c": 0.1, "m": 1}, []float64{1, 0}, 10),
		"heavy": preset("damped_oscillator", map[string]float64{"k": 1, "c": 2.5, "m": 1}, []float64{1, 0}, 10),
		"stiff": preset("damped_oscillator", map[string]float64{"k": 50, "c": 0.5, "m": 1}, []float64{0.1, 0}, 5),
	},
	"exponential_growth": {
		"runaway": preset("exponential_growth", map[string]float64{"k": 2}, []float64{1}, 5),
		"slow":    preset("exponential_growth", map[string]float64{"k": 0.2}, []float64{1}, 5),
	},
	"double_pendulum": {
		"gentle": preset("double_pendulum", nil, []float64{0.3, 0.3, 0, 0}, 20),
		"chaos": func() *Config {
			cfg := preset("double_pendulum", nil, []float64{math.Pi / 2, math.Pi / 2, 0, 0}, 20)
			cfg.Solver.RTol = 1e-9
			cfg.Solver.ATol = 1e-9
			return cfg
		}(),
	},
	"pendulum": {
		"small": preset("pendulum", nil, []float64{0.2, 0}, 20),
		"large": preset("pendulum", nil, []float64{2.5, 0}, 20),
		"fixed_step": func() *Config {
			cfg := preset("pendulum", nil, []float64{0.5, 0}, 20)
			cfg.Solver = SolverConfig{Method: "RK4", FirstStep: 0.01, RTol: integrators.DefaultRTol, ATol: integrators.DefaultATol}
			return cfg
		}(),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
