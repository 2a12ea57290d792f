package invariant

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/san-kum/phytrace/internal/dynamo"
)

// Sample is the input of one predicate evaluation.
type Sample struct {
	Step   int
	Time   float64
	State  dynamo.State
	Params dynamo.Params
	// Previous is the state this check saw on the previous step, or nil
	// when no history is available yet.
	Previous dynamo.State
}

func (s Sample) HasPrevious() bool {
	return s.Previous != nil
}

// Predicate is the capability behind a Check.
type Predicate interface {
	Evaluate(s Sample) (bool, error)
}

// HistoryTracker is implemented by predicates that read Sample.Previous.
// The checker only keeps history for checks whose predicate reports true.
type HistoryTracker interface {
	NeedsHistory() bool
}

// Stateless is a predicate over the current state only.
type Stateless func(t float64, y dynamo.State, p dynamo.Params) bool

func (f Stateless) Evaluate(s Sample) (bool, error) {
	return f(s.Time, s.State, s.Params), nil
}

func (f Stateless) NeedsHistory() bool { return false }

// AsCheck wraps a bare function into a check named after it with severity error.
func (f Stateless) AsCheck() Check {
	return New(funcName(f), SeverityError, f)
}

// Stateful is a predicate that also sees the previous state. prev is nil on
// the first evaluation; implementations must return true in that case
// unless the current state alone is a violation.
type Stateful func(t float64, y dynamo.State, p dynamo.Params, prev dynamo.State) bool

func (f Stateful) Evaluate(s Sample) (bool, error) {
	return f(s.Time, s.State, s.Params, s.Previous), nil
}

func (f Stateful) NeedsHistory() bool { return true }

func (f Stateful) AsCheck() Check {
	return New(funcName(f), SeverityError, f)
}

// Func is a predicate that can fail on its own. It is treated as needing history.
type Func func(s Sample) (bool, error)

func (f Func) Evaluate(s Sample) (bool, error) {
	return f(s)
}

func (f Func) NeedsHistory() bool { return true }

func funcName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "predicate"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
