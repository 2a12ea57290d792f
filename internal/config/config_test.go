package config

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != DefaultModel {
		t.Errorf("expected model %s, got %s", DefaultModel, cfg.Model)
	}
	if cfg.Solver.RTol <= 0 || cfg.Solver.ATol <= 0 {
		t.Error("tolerances should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestTemplateParses(t *testing.T) {
	cfg, err := Parse([]byte(Template))
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if cfg.Seed != nil {
		t.Error("template seed should be commented out")
	}
	spec, err := cfg.Spec(models.NewRegistry())
	if err != nil {
		t.Fatalf("template spec: %v", err)
	}
	if spec.Span.End != 10 || spec.Solver.RTol != 1e-6 || spec.EvidenceDir != "evidence" {
		t.Errorf("unexpected spec %+v", spec)
	}
	if cfg.Golden.Backend != "dir" || cfg.Golden.Dir != ".golden" {
		t.Errorf("unexpected golden config %+v", cfg.Golden)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing model", "model: ''\n"},
		{"bad method", "solver: {method: LSODA}\n"},
		{"negative rtol", "solver: {rtol: -1}\n"},
		{"backwards span", "time_span: {start: 5, end: 1}\n"},
		{"bad plots", "evidence: {plots: gif}\n"},
		{"bad golden backend", "golden: {backend: sqlite}\n"},
	}

	for _, tt := range tests {
		_, err := Parse([]byte(tt.yaml))
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", tt.name, err)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte("model: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
}

func TestSpec_Overrides(t *testing.T) {
	seed := int64(7)
	cfg := DefaultConfig()
	cfg.Params = map[string]float64{"c": 0.5}
	cfg.InitialState = []float64{2, 0}
	cfg.TimeSpan = &SpanConfig{Start: 1, End: 3}
	cfg.Seed = &seed

	spec, err := cfg.Spec(models.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if spec.Params["c"] != 0.5 || spec.Params["k"] != 1 {
		t.Errorf("params not merged: %v", spec.Params)
	}
	if spec.Y0[0] != 2 {
		t.Errorf("initial state not applied: %v", spec.Y0)
	}
	if spec.Span != (dynamo.Span{Start: 1, End: 3}) {
		t.Errorf("span not applied: %v", spec.Span)
	}
	if spec.Seed == nil || *spec.Seed != 7 {
		t.Error("seed not applied")
	}
	if len(spec.Invariants) == 0 {
		t.Error("expected default invariants")
	}
}

func TestSpec_Errors(t *testing.T) {
	reg := models.NewRegistry()

	cfg := DefaultConfig()
	cfg.Model = "nope"
	if _, err := cfg.Spec(reg); !errors.Is(err, models.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Params = map[string]float64{"typo": 1}
	if _, err := cfg.Spec(reg); !errors.Is(err, dynamo.ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.InitialState = []float64{1, 2, 3}
	if _, err := cfg.Spec(reg); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	cfg := GetPreset("double_pendulum", "chaos")

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model != "double_pendulum" || loaded.Solver.RTol != 1e-9 {
		t.Errorf("unexpected config %+v", loaded)
	}
	if loaded.InitialState[0] != math.Pi/2 {
		t.Errorf("initial state lost precision: %v", loaded.InitialState)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("pendulum", "small")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.InitialState[0] != 0.2 {
		t.Errorf("expected theta 0.2, got %f", cfg.InitialState[0])
	}

	cfg.InitialState[0] = 9
	if GetPreset("pendulum", "small").InitialState[0] != 0.2 {
		t.Error("preset mutated through returned copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("pendulum", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "small"); cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestPresetsResolve(t *testing.T) {
	reg := models.NewRegistry()
	for model := range Presets {
		for _, name := range ListPresets(model) {
			if _, err := GetPreset(model, name).Spec(reg); err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
			}
		}
	}

	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent model")
	}
}
