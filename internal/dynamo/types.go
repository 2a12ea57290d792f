package dynamo

import (
	"fmt"
	"math"
	"reflect"
	"runtime"
	"sort"
)

type State []float64

func (s State) Clone() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

// Params holds the named scalar parameters of a system.
type Params map[string]float64

func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the named parameter or def when it is absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// System is the right-hand side of dy/dt = f(t, y, p).
type System interface {
	Derive(t float64, y State, p Params) State
}

// SystemFunc adapts an ordinary function to the System interface.
type SystemFunc func(t float64, y State, p Params) State

func (f SystemFunc) Derive(t float64, y State, p Params) State {
	return f(t, y, p)
}

// Hamiltonian is implemented by systems with a known total energy.
type Hamiltonian interface {
	Energy(y State, p Params) float64
}

// Named is implemented by systems that report their own identity.
type Named interface {
	Name() string
}

// Identity describes where a system comes from, for provenance records.
// Named systems report their own name; SystemFunc values resolve to the
// function symbol and its source location.
func Identity(sys System) string {
	if sys == nil {
		return "<nil>"
	}
	if n, ok := sys.(Named); ok {
		return n.Name()
	}
	if f, ok := sys.(SystemFunc); ok {
		fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer())
		if fn == nil {
			return "<func>"
		}
		file, line := fn.FileLine(fn.Entry())
		return fmt.Sprintf("%s (%s:%d)", fn.Name(), file, line)
	}
	return fmt.Sprintf("%T", sys)
}

// Span is a closed integration interval [Start, End].
type Span struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

func (s Span) Validate() error {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) || math.IsInf(s.Start, 0) || math.IsInf(s.End, 0) {
		return fmt.Errorf("%w: [%v, %v] is not finite", ErrInvalidSpan, s.Start, s.End)
	}
	if s.End <= s.Start {
		return fmt.Errorf("%w: end %v must be greater than start %v", ErrInvalidSpan, s.End, s.Start)
	}
	return nil
}

func (s Span) Length() float64 {
	return s.End - s.Start
}
