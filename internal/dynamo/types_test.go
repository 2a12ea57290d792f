package dynamo

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_CloneNilStaysNil(t *testing.T) {
	var s State
	if s.Clone() != nil {
		t.Error("Clone of nil state should be nil")
	}

	src := State{1, 2}
	c := src.Clone()
	c[0] = 99
	if src[0] == 99 {
		t.Error("Clone did not create independent copy")
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	scaled := a.Scale(2)
	if scaled[0] != 2 || scaled[1] != 4 || scaled[2] != 6 {
		t.Errorf("Scale failed: got %v", scaled)
	}

	if n := (State{3, 4}).Norm(); math.Abs(n-5) > 1e-12 {
		t.Errorf("Norm = %v, want 5", n)
	}
}

func TestParams_KeysSorted(t *testing.T) {
	p := Params{"m": 1, "c": 0.1, "k": 1}
	keys := p.Keys()
	want := []string{"c", "k", "m"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
	if p.Get("missing", 7) != 7 {
		t.Error("Get should fall back to default")
	}
}

func TestSpan_Validate(t *testing.T) {
	if err := (Span{0, 10}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range []Span{{1, 1}, {2, 1}, {math.NaN(), 1}, {0, math.Inf(1)}} {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSpan) {
			t.Errorf("Validate(%v) = %v, want ErrInvalidSpan", s, err)
		}
	}
}

func decay(t float64, y State, p Params) State {
	return State{-p["k"] * y[0]}
}

type namedSystem struct{}

func (namedSystem) Derive(t float64, y State, p Params) State { return y }
func (namedSystem) Name() string                              { return "named" }

func TestIdentity(t *testing.T) {
	id := Identity(SystemFunc(decay))
	if !strings.Contains(id, "decay") || !strings.Contains(id, "types_test.go") {
		t.Errorf("Identity(SystemFunc) = %q, want function name and location", id)
	}
	if got := Identity(namedSystem{}); got != "named" {
		t.Errorf("Identity(Named) = %q", got)
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Step: 150, Time: 1.5, Wrapped: ErrStepTooSmall}
	if !errors.Is(err, ErrStepTooSmall) {
		t.Error("SimulationError should unwrap to its cause")
	}
	if !strings.HasPrefix(err.Error(), "step 150 (t=1.5)") {
		t.Errorf("Error() = %q", err.Error())
	}
}
