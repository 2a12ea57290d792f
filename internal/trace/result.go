package trace

import (
	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/evidence"
	"github.com/san-kum/phytrace/internal/integrators"
	"github.com/san-kum/phytrace/internal/invariant"
)

// Result is the outcome of a run. Callers must treat it as read-only.
type Result struct {
	RunID string
	// T holds the initial time and every accepted step.
	T []float64
	// Y is state-major: Y[i][j] is dimension i at time T[j].
	Y       [][]float64
	Params  dynamo.Params
	NFev    int
	Steps   int
	Status  integrators.Status
	Success bool
	Message string

	Invariants   invariant.Log
	Definitions  []invariant.Definition
	ChecksPassed bool

	// EvidenceDir is set when a pack was written; EvidenceErr when writing
	// one failed. Neither affects Success.
	EvidenceDir string
	EvidenceErr error

	manifest evidence.Manifest
	runLog   []byte
}

func (r *Result) Dim() int { return len(r.Y) }

// FinalTime is the last time reached, or zero for an empty result.
func (r *Result) FinalTime() float64 {
	if len(r.T) == 0 {
		return 0
	}
	return r.T[len(r.T)-1]
}

// Trajectory returns the time series in evidence form.
func (r *Result) Trajectory() evidence.Trajectory {
	return evidence.Trajectory{T: r.T, Y: r.Y}
}

// Manifest returns a copy of the manifest the run was recorded with.
func (r *Result) Manifest() evidence.Manifest {
	return r.manifest
}

// WriteEvidence writes the run's pack to dir. Writing the same result to
// several directories yields identical manifests.
func (r *Result) WriteEvidence(dir string, w *evidence.Writer) (*evidence.Manifest, error) {
	if w == nil {
		w = evidence.NewWriter()
	}
	return w.Write(dir, evidence.Pack{
		Manifest:   r.manifest,
		Trajectory: r.Trajectory(),
		RunLog:     r.runLog,
	})
}

// stateMajor transposes solver output so each row is one state dimension.
func stateMajor(ys []dynamo.State) [][]float64 {
	if len(ys) == 0 {
		return nil
	}
	dim := len(ys[0])
	out := make([][]float64, dim)
	for i := range out {
		out[i] = make([]float64, len(ys))
	}
	for j, y := range ys {
		for i := 0; i < dim && i < len(y); i++ {
			out[i][j] = y[i]
		}
	}
	return out
}
