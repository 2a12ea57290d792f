package invariant

import (
	"fmt"
	"math"

	"github.com/san-kum/phytrace/internal/dynamo"
)

// Finite fails when any component is NaN or Inf. It is critical by default:
// nothing downstream of a non-finite state is meaningful.
func Finite() Check {
	return New("finite", SeverityCritical, Stateless(func(_ float64, y dynamo.State, _ dynamo.Params) bool {
		return y.IsValid()
	})).WithDescription("all state components are finite")
}

// Bounded fails when any component leaves [lo, hi].
func Bounded(lo, hi float64) Check {
	return New("bounded", SeverityError, Stateless(func(_ float64, y dynamo.State, _ dynamo.Params) bool {
		for _, v := range y {
			if v < lo || v > hi || math.IsNaN(v) {
				return false
			}
		}
		return true
	})).WithDescription(fmt.Sprintf("all state components within [%g, %g]", lo, hi))
}

// BoundedComponent restricts a single component to [lo, hi].
func BoundedComponent(index int, lo, hi float64) Check {
	return New(fmt.Sprintf("bounded_%d", index), SeverityError, Stateless(func(_ float64, y dynamo.State, _ dynamo.Params) bool {
		if index >= len(y) {
			return false
		}
		v := y[index]
		return v >= lo && v <= hi
	})).WithDescription(fmt.Sprintf("state_%d within [%g, %g]", index, lo, hi))
}

type Direction int

const (
	Increasing Direction = iota
	Decreasing
)

func (d Direction) String() string {
	if d == Decreasing {
		return "decreasing"
	}
	return "increasing"
}

// Monotonic fails when component index moves against dir between two
// consecutive steps. Equal values pass.
func Monotonic(index int, dir Direction) Check {
	return New(fmt.Sprintf("monotonic_%d", index), SeverityWarning, Stateful(func(_ float64, y dynamo.State, _ dynamo.Params, prev dynamo.State) bool {
		if prev == nil || index >= len(prev) {
			return true
		}
		if index >= len(y) {
			return false
		}
		if dir == Decreasing {
			return y[index] <= prev[index]
		}
		return y[index] >= prev[index]
	})).WithDescription(fmt.Sprintf("state_%d is %s", index, dir))
}

// Quantity derives a scalar such as energy from a state.
type Quantity func(y dynamo.State, p dynamo.Params) float64

// Conserved fails when q changes by more than tol (relative) between two
// consecutive steps.
func Conserved(name string, q Quantity, tol float64) Check {
	return New(name, SeverityWarning, Stateful(func(_ float64, y dynamo.State, p dynamo.Params, prev dynamo.State) bool {
		if prev == nil {
			return true
		}
		cur, before := q(y, p), q(prev, p)
		if before == 0 {
			return math.Abs(cur) <= tol
		}
		return math.Abs(cur-before)/math.Abs(before) <= tol
	})).WithDescription(fmt.Sprintf("%s conserved step to step within relative %g", name, tol))
}

// NonIncreasing fails when q grows by more than tol (absolute) between two
// consecutive steps, e.g. the energy of a damped system.
func NonIncreasing(name string, q Quantity, tol float64) Check {
	return New(name, SeverityWarning, Stateful(func(_ float64, y dynamo.State, p dynamo.Params, prev dynamo.State) bool {
		if prev == nil {
			return true
		}
		return q(y, p) <= q(prev, p)+tol
	})).WithDescription(fmt.Sprintf("%s non-increasing within %g", name, tol))
}

// EnergyOf adapts a Hamiltonian system to a Quantity.
func EnergyOf(h dynamo.Hamiltonian) Quantity {
	return h.Energy
}
