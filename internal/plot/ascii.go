package plot

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

// Sparkline renders values as a terminal line chart. Values are
// downsampled to at most width points; non-finite values become gaps.
// It returns "" when no finite value remains.
func Sparkline(values []float64, width, height int, caption string) string {
	pts := downsample(values, width)
	finite := false
	for i, v := range pts {
		if isFinite(v) {
			finite = true
			continue
		}
		pts[i] = math.NaN()
	}
	if !finite {
		return ""
	}
	return asciigraph.Plot(pts,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

func downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, n)
	step := float64(len(values)-1) / float64(n-1)
	for i := range out {
		out[i] = values[int(float64(i)*step+0.5)]
	}
	return out
}
