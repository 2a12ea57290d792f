package invariant

import (
	"math"
	"testing"

	"github.com/san-kum/phytrace/internal/dynamo"
)

func eval(t *testing.T, c Check, y, prev dynamo.State) bool {
	t.Helper()
	ok, err := c.Predicate().Evaluate(Sample{State: y, Previous: prev})
	if err != nil {
		t.Fatalf("%s: %v", c.Name(), err)
	}
	return ok
}

func TestFinite(t *testing.T) {
	c := Finite()
	if c.Severity() != SeverityCritical || c.NeedsHistory() {
		t.Errorf("unexpected finite check: %+v", c.Definition())
	}
	if !eval(t, c, dynamo.State{1, -2}, nil) {
		t.Error("finite state rejected")
	}
	if eval(t, c, dynamo.State{1, math.Inf(1)}, nil) {
		t.Error("infinite state accepted")
	}
}

func TestBounded(t *testing.T) {
	c := Bounded(-2, 2)
	tests := []struct {
		y    dynamo.State
		want bool
	}{
		{dynamo.State{0, 0}, true},
		{dynamo.State{-2, 2}, true},
		{dynamo.State{2.01, 0}, false},
		{dynamo.State{0, math.NaN()}, false},
	}
	for _, tt := range tests {
		if got := eval(t, c, tt.y, nil); got != tt.want {
			t.Errorf("Bounded(%v) = %v, want %v", tt.y, got, tt.want)
		}
	}

	bc := BoundedComponent(1, 0, 1)
	if bc.Name() != "bounded_1" || !eval(t, bc, dynamo.State{5, 0.5}, nil) || eval(t, bc, dynamo.State{0}, nil) {
		t.Error("BoundedComponent misbehaves")
	}
}

func TestMonotonic(t *testing.T) {
	inc := Monotonic(0, Increasing)
	if !inc.NeedsHistory() {
		t.Fatal("monotonic must track history")
	}
	if !eval(t, inc, dynamo.State{1}, nil) {
		t.Error("first call without history must pass")
	}
	if !eval(t, inc, dynamo.State{2}, dynamo.State{1}) || eval(t, inc, dynamo.State{0}, dynamo.State{1}) {
		t.Error("increasing check wrong")
	}
	dec := Monotonic(0, Decreasing)
	if !eval(t, dec, dynamo.State{0}, dynamo.State{1}) {
		t.Error("decreasing check wrong")
	}
}

func TestConservedAndNonIncreasing(t *testing.T) {
	energy := func(y dynamo.State, _ dynamo.Params) float64 { return 0.5 * (y[0]*y[0] + y[1]*y[1]) }

	c := Conserved("energy", energy, 1e-3)
	if !eval(t, c, dynamo.State{1, 0}, nil) {
		t.Error("first call must pass")
	}
	if !eval(t, c, dynamo.State{0, 1}, dynamo.State{1, 0}) {
		t.Error("equal energy rejected")
	}
	if eval(t, c, dynamo.State{2, 0}, dynamo.State{1, 0}) {
		t.Error("energy jump accepted")
	}

	n := NonIncreasing("energy_decreasing", energy, 1e-10)
	if !eval(t, n, dynamo.State{0.5, 0}, dynamo.State{1, 0}) || eval(t, n, dynamo.State{1, 0}, dynamo.State{0.5, 0}) {
		t.Error("non-increasing check wrong")
	}
}

func TestSeverity(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityError) || SeverityWarning.AtLeast(SeverityError) {
		t.Error("severity ordering broken")
	}
	for _, s := range []Severity{SeverityWarning, SeverityError, SeverityCritical} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Severity
		if err := back.UnmarshalText(text); err != nil || back != s {
			t.Errorf("round trip of %v gave %v (%v)", s, back, err)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Error("expected error for unknown severity")
	}
	if New("x", 0, always(true)).Severity() != SeverityError {
		t.Error("unset severity should default to error")
	}
}
