package golden

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/phytrace/internal/interp"
)

const (
	DefaultPoints = 100
	DefaultRTol   = 1e-6
	DefaultATol   = 1e-9
)

type compareConfig struct {
	rtol, atol float64
	points     int
}

// Option tunes Compare.
type Option func(*compareConfig)

func WithTolerance(rtol, atol float64) Option {
	return func(c *compareConfig) {
		c.rtol = rtol
		c.atol = atol
	}
}

// WithPoints sets the size of the shared comparison grid.
func WithPoints(n int) Option {
	return func(c *compareConfig) {
		if n > 0 {
			c.points = n
		}
	}
}

func newCompareConfig(opts []Option) compareConfig {
	c := compareConfig{rtol: DefaultRTol, atol: DefaultATol, points: DefaultPoints}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// ParamDiff is a parameter present in only one snapshot or with different
// values. A nil side means the parameter is absent there.
type ParamDiff struct {
	Name      string   `json:"name"`
	Candidate *float64 `json:"candidate"`
	Reference *float64 `json:"reference"`
}

// Report is the outcome of comparing a candidate snapshot against a
// reference. Per-dimension slices are indexed by state component.
type Report struct {
	RTol            float64     `json:"rtol"`
	ATol            float64     `json:"atol"`
	Start           float64     `json:"start"`
	End             float64     `json:"end"`
	Grid            []float64   `json:"grid"`
	SameGrid        bool        `json:"same_grid"`
	MaxDiff         []float64   `json:"max_diff"`
	RMSDiff         []float64   `json:"rms_diff"`
	Divergence      []float64   `json:"divergence"`
	WithinTolerance bool        `json:"within_tolerance"`
	ParamDiffs      []ParamDiff `json:"param_diffs,omitempty"`
	Issues          []string    `json:"issues,omitempty"`
}

// Match reports whether the trajectories agree and no structural or scalar
// issue was found.
func (r Report) Match() bool {
	return r.WithinTolerance && len(r.Issues) == 0
}

// MaxAbsDiff is the largest per-dimension maximum difference.
func (r Report) MaxAbsDiff() float64 {
	m := 0.0
	for _, d := range r.MaxDiff {
		if d > m || math.IsNaN(d) {
			m = d
		}
	}
	return m
}

// GrowthRate estimates the exponential rate at which the trajectories
// separate: the least-squares slope of ln(divergence) against time, over
// grid points with nonzero divergence. A clearly positive rate on nearby
// initial conditions indicates chaos. It is zero when fewer than two points
// qualify.
func (r Report) GrowthRate() float64 {
	var n, sx, sy, sxx, sxy float64
	for i, d := range r.Divergence {
		if !(d > 0) || math.IsInf(d, 1) {
			continue
		}
		x, y := r.Grid[i], math.Log(d)
		n++
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if n < 2 || den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

func (r Report) String() string {
	var b strings.Builder
	if r.WithinTolerance {
		fmt.Fprintf(&b, "trajectories match within rtol=%g atol=%g", r.RTol, r.ATol)
	} else {
		fmt.Fprintf(&b, "trajectories differ beyond rtol=%g atol=%g", r.RTol, r.ATol)
	}
	for i := range r.MaxDiff {
		fmt.Fprintf(&b, "; state_%d max=%.3e rms=%.3e", i, r.MaxDiff[i], r.RMSDiff[i])
	}
	for _, issue := range r.Issues {
		b.WriteString("; ")
		b.WriteString(issue)
	}
	return b.String()
}

// Compare resamples candidate a and reference b onto a shared grid over the
// overlap of their time spans and checks |a-b| <= atol + rtol*|b| at every
// grid point and component.
func Compare(a, b Snapshot, opts ...Option) Report {
	cfg := newCompareConfig(opts)
	r := Report{
		RTol:       cfg.rtol,
		ATol:       cfg.atol,
		SameGrid:   sameGrid(a.T, b.T),
		ParamDiffs: paramDiffs(a.Params, b.Params),
	}
	if a.Success != b.Success {
		r.Issues = append(r.Issues, fmt.Sprintf("success %t differs from reference %t", a.Success, b.Success))
	}
	if a.ChecksPassed != b.ChecksPassed {
		r.Issues = append(r.Issues, fmt.Sprintf("checks_passed %t differs from reference %t", a.ChecksPassed, b.ChecksPassed))
	}

	switch {
	case len(a.T) == 0 || len(b.T) == 0:
		r.Issues = append(r.Issues, "empty trajectory")
		return r
	case len(a.Y) != len(b.Y):
		r.Issues = append(r.Issues, fmt.Sprintf("state dimension %d differs from reference %d", len(a.Y), len(b.Y)))
		return r
	}

	r.Start = math.Max(a.T[0], b.T[0])
	r.End = math.Min(a.T[len(a.T)-1], b.T[len(b.T)-1])
	if r.Start > r.End {
		r.Issues = append(r.Issues, fmt.Sprintf("time spans do not overlap (%g > %g)", r.Start, r.End))
		return r
	}
	r.Grid = interp.Linspace(r.Start, r.End, cfg.points)

	ya, err := interp.ResampleRows(a.T, a.Y, r.Grid)
	if err != nil {
		r.Issues = append(r.Issues, fmt.Sprintf("resample candidate: %v", err))
		return r
	}
	yb, err := interp.ResampleRows(b.T, b.Y, r.Grid)
	if err != nil {
		r.Issues = append(r.Issues, fmt.Sprintf("resample reference: %v", err))
		return r
	}

	r.WithinTolerance = true
	r.MaxDiff = make([]float64, len(ya))
	r.RMSDiff = make([]float64, len(ya))
	sq := make([]float64, len(r.Grid))
	for d := range ya {
		var sum float64
		for i := range r.Grid {
			diff := math.Abs(ya[d][i] - yb[d][i])
			if !(diff <= cfg.atol+cfg.rtol*math.Abs(yb[d][i])) {
				r.WithinTolerance = false
			}
			if diff > r.MaxDiff[d] || math.IsNaN(diff) {
				r.MaxDiff[d] = diff
			}
			sum += diff * diff
			sq[i] += diff * diff
		}
		r.RMSDiff[d] = math.Sqrt(sum / float64(len(r.Grid)))
	}
	r.Divergence = make([]float64, len(sq))
	for i, s := range sq {
		r.Divergence[i] = math.Sqrt(s)
	}
	return r
}

func sameGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func paramDiffs(a, b map[string]float64) []ParamDiff {
	var diffs []ParamDiff
	seen := make(map[string]bool, len(a)+len(b))
	for _, m := range []map[string]float64{a, b} {
		for k := range m {
			if seen[k] {
				continue
			}
			seen[k] = true
			va, okA := a[k]
			vb, okB := b[k]
			if okA && okB && (va == vb || math.IsNaN(va) && math.IsNaN(vb)) {
				continue
			}
			d := ParamDiff{Name: k}
			if okA {
				d.Candidate = &va
			}
			if okB {
				d.Reference = &vb
			}
			diffs = append(diffs, d)
		}
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Name < diffs[j].Name })
	return diffs
}
