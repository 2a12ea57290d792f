// Package config loads YAML run configurations and turns them into runs of
// the built-in models.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/integrators"
	"github.com/san-kum/phytrace/internal/models"
	"github.com/san-kum/phytrace/internal/trace"
)

const (
	DefaultFile  = "phytrace.yaml"
	DefaultModel = "damped_oscillator"
	DefaultPlots = "png"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Model        string             `yaml:"model" validate:"required"`
	Params       map[string]float64 `yaml:"params,omitempty"`
	InitialState []float64          `yaml:"initial_state,omitempty"`
	TimeSpan     *SpanConfig        `yaml:"time_span,omitempty"`
	Solver       SolverConfig       `yaml:"solver"`
	Seed         *int64             `yaml:"seed,omitempty"`
	Evidence     EvidenceConfig     `yaml:"evidence"`
	Golden       GoldenConfig       `yaml:"golden"`
}

type SpanConfig struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end" validate:"gtfield=Start"`
}

type SolverConfig struct {
	Method    string  `yaml:"method" validate:"omitempty,oneof=RK45 RK23 RK4 EULER rk45 rk23 rk4 euler"`
	RTol      float64 `yaml:"rtol" validate:"gte=0"`
	ATol      float64 `yaml:"atol" validate:"gte=0"`
	FirstStep float64 `yaml:"first_step,omitempty" validate:"gte=0"`
	MaxStep   float64 `yaml:"max_step,omitempty" validate:"gte=0"`
	MaxSteps  int     `yaml:"max_steps,omitempty" validate:"gte=0"`
}

type EvidenceConfig struct {
	Dir   string `yaml:"dir,omitempty"`
	Plots string `yaml:"plots" validate:"omitempty,oneof=png svg none"`
}

// GoldenConfig selects the snapshot store. Dir is the directory of JSON
// files for the dir backend and the database directory for badger.
type GoldenConfig struct {
	Backend string  `yaml:"backend,omitempty" validate:"omitempty,oneof=dir badger"`
	Dir     string  `yaml:"dir,omitempty"`
	RTol    float64 `yaml:"rtol,omitempty" validate:"gte=0"`
	ATol    float64 `yaml:"atol,omitempty" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func DefaultConfig() *Config {
	return &Config{
		Model: DefaultModel,
		Solver: SolverConfig{
			Method: integrators.DefaultMethod,
			RTol:   integrators.DefaultRTol,
			ATol:   integrators.DefaultATol,
		},
		Evidence: EvidenceConfig{Plots: DefaultPlots},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks field constraints. Model names and parameter keys are
// checked later by Spec against the registry.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s fails %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Spec resolves the configuration against reg into a run. Params override
// the model defaults one by one; the initial state and time span replace
// them wholesale. Logging, metrics and the evidence writer are left to the
// caller.
func (c *Config) Spec(reg *models.Registry) (trace.Spec, error) {
	if err := c.Validate(); err != nil {
		return trace.Spec{}, err
	}
	m, err := reg.Get(c.Model)
	if err != nil {
		return trace.Spec{}, err
	}
	params, y0 := m.Defaults()
	for k, v := range c.Params {
		if _, ok := params[k]; !ok {
			return trace.Spec{}, fmt.Errorf("%w: %s has no parameter %q (have %v)", dynamo.ErrUnknownParam, m.Name, k, params.Keys())
		}
		params[k] = v
	}
	if len(c.InitialState) > 0 {
		if len(c.InitialState) != len(y0) {
			return trace.Spec{}, fmt.Errorf("%w: %s has %d state components, initial_state has %d",
				dynamo.ErrDimensionMismatch, m.Name, len(y0), len(c.InitialState))
		}
		y0 = dynamo.State(append([]float64(nil), c.InitialState...))
	}
	span := m.Span
	if c.TimeSpan != nil {
		span = dynamo.Span{Start: c.TimeSpan.Start, End: c.TimeSpan.End}
	}

	spec := trace.Spec{
		System: m.New(),
		Params: params,
		Span:   span,
		Y0:     y0,
		Solver: integrators.Options{
			Method:    c.Solver.Method,
			RTol:      c.Solver.RTol,
			ATol:      c.Solver.ATol,
			FirstStep: c.Solver.FirstStep,
			MaxStep:   c.Solver.MaxStep,
			MaxSteps:  c.Solver.MaxSteps,
		},
		EvidenceDir: c.Evidence.Dir,
	}
	if m.Invariants != nil {
		spec.Invariants = m.Invariants(params)
	}
	if c.Seed != nil {
		s := *c.Seed
		spec.Seed = &s
	}
	return spec, nil
}

func (c *Config) clone() *Config {
	out := *c
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	out.InitialState = append([]float64(nil), c.InitialState...)
	if c.TimeSpan != nil {
		span := *c.TimeSpan
		out.TimeSpan = &span
	}
	if c.Seed != nil {
		s := *c.Seed
		out.Seed = &s
	}
	return &out
}
