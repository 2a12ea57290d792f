package evidence

import (
	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/invariant"
	"github.com/san-kum/phytrace/internal/provenance"
	"github.com/san-kum/phytrace/internal/seed"
)

// FormatVersion is bumped whenever the pack layout changes incompatibly.
const FormatVersion = 1

// Pack-relative paths, slash separated.
const (
	ManifestFile   = "manifest.json"
	RunLogFile     = "run_log.txt"
	InvariantsFile = "invariants.json"
	ReportFile     = "report.md"
	TrajectoryFile = "data/trajectory.csv"
	TimeSeriesPlot = "plots/time_series"
	PhaseSpacePlot = "plots/phase_space"

	DataDir   = "data"
	PlotsDir  = "plots"
	ChecksDir = "checks"
)

// RequiredFiles and RequiredDirs define a complete pack.
var (
	RequiredFiles = []string{ManifestFile, RunLogFile, InvariantsFile, ReportFile}
	RequiredDirs  = []string{DataDir, PlotsDir, ChecksDir}
)

type Simulation struct {
	Function     string            `json:"function"`
	Params       map[string]Number `json:"params"`
	InitialState Vector            `json:"initial_state"`
	TimeSpan     dynamo.Span       `json:"time_span"`
}

type Solver struct {
	Method    string  `json:"method"`
	RTol      float64 `json:"rtol"`
	ATol      float64 `json:"atol"`
	FirstStep float64 `json:"first_step,omitempty"`
	MaxStep   float64 `json:"max_step,omitempty"`
	MaxSteps  int     `json:"max_steps"`
}

type SolverStats struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	NFev      int    `json:"nfev"`
	Steps     int    `json:"steps"`
	Points    int    `json:"points"`
	FinalTime Number `json:"final_time"`
	Message   string `json:"message"`
}

// InvariantEntry merges a check's definition with its run record.
type InvariantEntry struct {
	Name           string               `json:"name"`
	Severity       invariant.Severity   `json:"severity"`
	Description    string               `json:"description,omitempty"`
	Stateful       bool                 `json:"stateful"`
	Checks         int                  `json:"checks"`
	Violations     int                  `json:"violations"`
	FirstViolation *invariant.Violation `json:"first_violation,omitempty"`
}

// Invariants is the content of invariants.json and the manifest's
// invariants section.
type Invariants struct {
	ChecksPassed   bool             `json:"checks_passed"`
	Aborted        bool             `json:"aborted"`
	StepsEvaluated int              `json:"steps_evaluated"`
	Checks         []InvariantEntry `json:"checks"`
}

// InvariantsFrom joins definitions and records by name.
func InvariantsFrom(defs []invariant.Definition, log invariant.Log) Invariants {
	byName := make(map[string]invariant.Record, len(log.Invariants))
	for _, r := range log.Invariants {
		byName[r.Name] = r
	}
	out := Invariants{
		ChecksPassed:   log.ChecksPassed,
		Aborted:        log.Aborted,
		StepsEvaluated: log.Steps,
		Checks:         make([]InvariantEntry, 0, len(defs)),
	}
	for _, d := range defs {
		r := byName[d.Name]
		out.Checks = append(out.Checks, InvariantEntry{
			Name:           d.Name,
			Severity:       d.Severity,
			Description:    d.Description,
			Stateful:       d.Stateful,
			Checks:         r.Checks,
			Violations:     r.Violations,
			FirstViolation: r.FirstViolation,
		})
	}
	return out
}

// Abort describes why a run stopped early.
type Abort struct {
	Kind    string `json:"kind"`
	Check   string `json:"check,omitempty"`
	Step    int    `json:"step,omitempty"`
	Time    Number `json:"time"`
	State   Vector `json:"state,omitempty"`
	Message string `json:"message"`
}

const (
	AbortCriticalViolation = "critical_violation"
	AbortPredicateError    = "predicate_error"
	AbortCanceled          = "canceled"
)

// Manifest is the provenance record of a run.
type Manifest struct {
	FormatVersion           int                    `json:"format_version"`
	RunID                   string                 `json:"run_id"`
	Timestamp               string                 `json:"timestamp"`
	Environment             provenance.Environment `json:"environment"`
	Simulation              Simulation             `json:"simulation"`
	Solver                  Solver                 `json:"solver"`
	Seeds                   seed.Report            `json:"seeds"`
	ReproducibilityContract provenance.Snapshot    `json:"reproducibility_contract"`
	SolverStats             SolverStats            `json:"solver_stats"`
	Invariants              Invariants             `json:"invariants"`
	Abort                   *Abort                 `json:"abort,omitempty"`
	Notes                   []string               `json:"notes,omitempty"`
	Files                   []string               `json:"files"`
}
