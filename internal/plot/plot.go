// Package plot renders trajectories for evidence packs and the terminal.
// Rendering is best effort: callers treat any error as a missing plot.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
)

var (
	ErrNoData        = errors.New("plot: not enough points")
	ErrShapeMismatch = errors.New("plot: series length mismatch")
)

// Renderer draws the two plots an evidence pack carries. ys is state-major:
// ys[i][j] is dimension i at time ts[j].
type Renderer interface {
	TimeSeries(w io.Writer, ts []float64, ys [][]float64) error
	PhaseSpace(w io.Writer, xs, ys []float64) error
	Ext() string
}

var palette = []color.RGBA{
	{0x1f, 0x77, 0xb4, 0xff},
	{0xff, 0x7f, 0x0e, 0xff},
	{0x2c, 0xa0, 0x2c, 0xff},
	{0xd6, 0x27, 0x28, 0xff},
	{0x94, 0x67, 0xbd, 0xff},
	{0x8c, 0x56, 0x4b, 0xff},
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

// extent computes padded plot bounds, skipping non-finite values.
func extent(xs []float64, ys ...[]float64) (bounds, error) {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, x := range xs {
		if isFinite(x) {
			b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
		}
	}
	for _, series := range ys {
		if len(series) != len(xs) {
			return b, ErrShapeMismatch
		}
		for _, y := range series {
			if isFinite(y) {
				b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
			}
		}
	}
	if math.IsInf(b.minX, 0) || math.IsInf(b.minY, 0) {
		return b, ErrNoData
	}

	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.05
	b.maxX += rangeX * 0.05
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	return b, nil
}

// project maps data coordinates onto a w x h canvas with the origin at the
// top left.
func (b bounds) project(x, y float64, w, h int) (float64, float64) {
	px := (x - b.minX) / (b.maxX - b.minX) * float64(w)
	py := float64(h) - (y-b.minY)/(b.maxY-b.minY)*float64(h)
	return px, py
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
