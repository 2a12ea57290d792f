package evidence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/phytrace/internal/plot"
	"github.com/san-kum/phytrace/internal/provenance"
)

// Report renders report.md from the manifest. The trajectory only feeds the
// terminal-style chart of the first state.
func Report(m *Manifest, tr Trajectory) string {
	var b strings.Builder
	p := func(format string, args ...any) { fmt.Fprintf(&b, format, args...) }

	p("# Simulation Report\n\n")
	p("- **Run ID**: %s\n", m.RunID)
	p("- **Timestamp**: %s\n", m.Timestamp)
	p("- **Function**: `%s`\n", m.Simulation.Function)
	p("- **Time span**: [%g, %g]\n", m.Simulation.TimeSpan.Start, m.Simulation.TimeSpan.End)

	st := m.SolverStats
	p("\n## Result\n\n")
	p("- **Status**: %s\n", st.Status)
	p("- **Success**: %t\n", st.Success)
	p("- **Checks passed**: %t\n", m.Invariants.ChecksPassed)
	p("- **Function evaluations**: %d\n", st.NFev)
	p("- **Accepted steps**: %d\n", st.Steps)
	p("- **Final time**: %g\n", float64(st.FinalTime))
	if st.Message != "" {
		p("- **Message**: %s\n", st.Message)
	}

	if a := m.Abort; a != nil {
		p("\n## Abort\n\n")
		p("- **Kind**: %s\n", a.Kind)
		if a.Check != "" {
			p("- **Check**: %s\n", a.Check)
			p("- **Step**: %d\n", a.Step)
		}
		p("- **Time**: %g\n", float64(a.Time))
		if a.State != nil {
			p("- **State**: %v\n", a.State.Floats())
		}
		p("- **Message**: %s\n", a.Message)
	}

	p("\n## Parameters\n\n")
	if len(m.Simulation.Params) == 0 {
		p("(none)\n")
	} else {
		p("| name | value |\n|---|---|\n")
		keys := make([]string, 0, len(m.Simulation.Params))
		for k := range m.Simulation.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p("| %s | %g |\n", k, float64(m.Simulation.Params[k]))
		}
	}
	p("\nInitial state: %v\n", m.Simulation.InitialState.Floats())

	s := m.Solver
	p("\n## Solver\n\n")
	p("- **Method**: %s\n- **rtol**: %g\n- **atol**: %g\n", s.Method, s.RTol, s.ATol)

	p("\n## Invariants\n\n")
	if len(m.Invariants.Checks) == 0 {
		p("No invariants registered.\n")
	} else {
		p("| name | severity | checks | violations | first violation |\n|---|---|---|---|---|\n")
		for _, c := range m.Invariants.Checks {
			first := "-"
			if c.FirstViolation != nil {
				first = fmt.Sprintf("step %d, t=%g", c.FirstViolation.Step, c.FirstViolation.Time)
			}
			p("| %s | %s | %d | %d | %s |\n", c.Name, c.Severity, c.Checks, c.Violations, first)
		}
	}

	if tr.Check() == nil && tr.Dim() > 0 && tr.Len() > 1 {
		if chart := plot.Sparkline(tr.Y[0], 60, 8, "state_0"); chart != "" {
			p("\n## Trajectory\n\n```text\n%s\n```\n", chart)
		}
	}

	p("\n## Seeds\n\n")
	if m.Seeds.Seed == nil {
		p("No seed provided.\n")
	} else {
		p("Seed: %d\n\n", *m.Seeds.Seed)
	}
	srcs := make([]string, 0, len(m.Seeds.Sources))
	for src := range m.Seeds.Sources {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)
	for _, src := range srcs {
		status := "seeded"
		if !m.Seeds.Sources[src] {
			status = "not seeded: " + m.Seeds.Reasons[src]
		}
		p("- %s: %s\n", src, status)
	}

	env := m.Environment
	p("\n## Environment\n\n")
	p("- **Go**: %s\n", describe(env.GoVersion, func(v string) string { return v }))
	p("- **System**: %s\n", describe(env.System, func(v provenance.System) string {
		return fmt.Sprintf("%s/%s, %d CPUs", v.OS, v.Arch, v.NumCPU)
	}))
	p("- **Git**: %s\n", describe(env.Git, func(v provenance.Git) string {
		dirty := ""
		if v.Dirty {
			dirty = " (dirty)"
		}
		return fmt.Sprintf("%s@%s%s", v.Branch, v.Commit, dirty)
	}))

	p("\n## Reproducibility\n\n%s\n", provenance.DefaultContract().Summary())
	p("See `manifest.json` for the full contract.\n")

	if len(m.Notes) > 0 {
		p("\n## Notes\n\n")
		for _, n := range m.Notes {
			p("- %s\n", n)
		}
	}

	p("\n## Files\n\n")
	for _, f := range m.Files {
		p("- `%s`\n", f)
	}
	return b.String()
}

func describe[T any](f provenance.Field[T], show func(T) string) string {
	if v, ok := f.Get(); ok {
		return show(v)
	}
	return "unavailable (" + f.Reason() + ")"
}
