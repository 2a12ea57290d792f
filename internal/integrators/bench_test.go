package integrators

import (
	"context"
	"testing"

	"github.com/san-kum/phytrace/internal/dynamo"
)

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, nil, 0, x, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, nil, 0, x, 0.01)
	}
}

func BenchmarkSolveRK45(b *testing.B) {
	dyn := &harmonicOscillator{}
	span := dynamo.Span{Start: 0, End: 10}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Solve(context.Background(), dyn, nil, span, dynamo.State{1, 0}, Options{}, nil); err != nil {
			b.Fatal(err)
		}
	}
}
