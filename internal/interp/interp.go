// Package interp resamples sampled trajectories onto new time grids.
package interp

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrTooFewPoints   = errors.New("interp: at least one sample is required")
	ErrLengthMismatch = errors.New("interp: abscissa and ordinate lengths differ")
	ErrNotIncreasing  = errors.New("interp: abscissa must be strictly increasing")
	ErrOutOfRange     = errors.New("interp: point outside sampled range")
)

// Linspace returns n evenly spaced points over [start, stop]. Both ends are
// included exactly.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Linear is a piecewise-linear interpolant over strictly increasing xs.
type Linear struct {
	xs, ys []float64
}

func NewLinear(xs, ys []float64) (*Linear, error) {
	if len(xs) == 0 {
		return nil, ErrTooFewPoints
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("%w: x[%d]=%v after x[%d]=%v", ErrNotIncreasing, i, xs[i], i-1, xs[i-1])
		}
	}
	return &Linear{xs: xs, ys: ys}, nil
}

// At evaluates the interpolant at x. Points outside [xs[0], xs[n-1]] fail
// with ErrOutOfRange.
func (l *Linear) At(x float64) (float64, error) {
	n := len(l.xs)
	if x < l.xs[0] || x > l.xs[n-1] {
		return 0, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, x, l.xs[0], l.xs[n-1])
	}
	i := sort.SearchFloat64s(l.xs, x)
	if i < n && l.xs[i] == x {
		return l.ys[i], nil
	}
	x0, x1 := l.xs[i-1], l.xs[i]
	y0, y1 := l.ys[i-1], l.ys[i]
	frac := (x - x0) / (x1 - x0)
	return y0 + frac*(y1-y0), nil
}

// Resample evaluates the interpolant of (xs, ys) at every grid point.
func Resample(xs, ys, grid []float64) ([]float64, error) {
	l, err := NewLinear(xs, ys)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(grid))
	for i, g := range grid {
		v, err := l.At(g)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ResampleRows resamples every row of a state-major trajectory (rows are
// state dimensions, columns follow ts) onto grid.
func ResampleRows(ts []float64, rows [][]float64, grid []float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		r, err := Resample(ts, row, grid)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}
