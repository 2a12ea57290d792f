package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Validation is the outcome of checking a pack for completeness.
type Validation struct {
	Valid    bool            `json:"valid"`
	Issues   []string        `json:"issues"`
	Warnings []string        `json:"warnings"`
	Checks   map[string]bool `json:"checks"`
	Summary  Summary         `json:"summary"`
}

type Summary struct {
	TotalIssues   int `json:"total_issues"`
	TotalWarnings int `json:"total_warnings"`
	ChecksPassed  int `json:"checks_passed"`
	ChecksTotal   int `json:"checks_total"`
}

func (v *Validation) issue(format string, args ...any) {
	v.Issues = append(v.Issues, fmt.Sprintf(format, args...))
}

func (v *Validation) warn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Validate checks that dir holds a complete pack. Missing plots are
// warnings; missing required files, directories or listed files are issues.
func Validate(dir string) Validation {
	v := Validation{
		Issues:   []string{},
		Warnings: []string{},
		Checks:   make(map[string]bool),
	}

	for _, f := range RequiredFiles {
		ok := exists(filepath.Join(dir, f))
		v.Checks["file_"+f] = ok
		if !ok {
			v.issue("missing required file: %s", f)
		}
	}
	for _, d := range RequiredDirs {
		ok := exists(filepath.Join(dir, d))
		v.Checks["dir_"+d] = ok
		if !ok {
			v.issue("missing required directory: %s", d)
		}
	}

	for _, f := range []string{ManifestFile, InvariantsFile} {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			continue
		}
		ok := json.Valid(data)
		v.Checks["json_valid_"+f] = ok
		if !ok {
			v.issue("invalid JSON in %s", f)
		}
	}

	v.checkManifest(dir)

	ok := exists(filepath.Join(dir, filepath.FromSlash(TrajectoryFile)))
	v.Checks["has_trajectory_csv"] = ok
	if !ok {
		v.issue("missing %s", TrajectoryFile)
	} else if _, err := LoadTrajectory(dir); err != nil {
		v.issue("unreadable %s: %v", TrajectoryFile, err)
	}

	plots, _ := filepath.Glob(filepath.Join(dir, PlotsDir, "time_series.*"))
	v.Checks["has_time_series_plot"] = len(plots) > 0
	if len(plots) == 0 {
		v.warn("time series plot not present")
	}

	v.Valid = len(v.Issues) == 0
	v.Summary = Summary{
		TotalIssues:   len(v.Issues),
		TotalWarnings: len(v.Warnings),
		ChecksTotal:   len(v.Checks),
	}
	for _, ok := range v.Checks {
		if ok {
			v.Summary.ChecksPassed++
		}
	}
	return v
}

func (v *Validation) checkManifest(dir string) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil || !json.Valid(data) {
		return
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		v.issue("manifest is not an object: %v", err)
		return
	}
	required := map[string]string{
		"environment": "environment information",
		"seeds":       "seed information",
		"simulation":  "simulation information",
		"solver":      "solver configuration",
	}
	for _, key := range []string{"environment", "seeds", "simulation", "solver"} {
		_, ok := sections[key]
		v.Checks["has_"+key] = ok
		if !ok {
			v.issue("missing %s in manifest", required[key])
		}
	}
	if _, ok := sections["reproducibility_contract"]; ok {
		v.Checks["has_reproducibility_contract"] = true
	} else {
		v.warn("reproducibility contract not present in manifest")
	}
	if _, ok := sections["invariants"]; ok {
		v.Checks["has_invariants"] = true
	} else {
		v.warn("no invariant definitions in manifest")
	}

	m, err := LoadManifest(dir)
	if err != nil {
		v.issue("manifest does not decode: %v", err)
		v.Checks["manifest_readable"] = false
		return
	}
	v.Checks["manifest_readable"] = true

	if !m.Environment.GoVersion.IsCaptured() {
		v.warn("Go version not captured in environment")
	}
	if !m.Environment.Packages.IsCaptured() {
		v.warn("package versions not captured in environment")
	}
	seeded := false
	for _, ok := range m.Seeds.Sources {
		seeded = seeded || ok
	}
	if !seeded {
		v.warn("no randomness source was seeded")
	}
	if len(m.Simulation.Params) == 0 {
		v.warn("no parameters recorded in simulation")
	}

	missing := 0
	for _, f := range m.Files {
		if !exists(filepath.Join(dir, filepath.FromSlash(f))) {
			v.issue("manifest lists %s but it does not exist", f)
			missing++
		}
	}
	v.Checks["manifest_files_exist"] = missing == 0
}
