package provenance

import (
	"strings"
)

// Item is one named entry of the reproducibility contract.
type Item struct {
	Key         string
	Description string
}

// Contract states what a run records, what it only attempts, and what it
// cannot promise.
type Contract struct {
	Captured      []Item
	BestEffort    []Item
	NotGuaranteed []Item
	Limitations   []string
}

// DefaultContract is the contract every run is written under.
func DefaultContract() Contract {
	return Contract{
		Captured: []Item{
			{"go_version", "Go toolchain version the binary was built with"},
			{"module_versions", "Versions of key dependencies from the embedded build info"},
			{"system_info", "OS, architecture, hostname and CPU count"},
			{"simulation_parameters", "All parameters passed to the run"},
			{"initial_state", "Initial state vector"},
			{"solver_config", "Integration method, tolerances and step limits"},
			{"random_seed", "Seed value of the run's seed context"},
			{"seed_status", "Which randomness sources were seeded and why others were not"},
			{"git_state", "Commit, branch and dirty flag when run inside a repository"},
			{"timestamp", "RFC 3339 timestamp of execution"},
			{"invariant_definitions", "Every registered invariant and its severity"},
			{"invariant_results", "Check and violation counts per invariant"},
			{"solver_statistics", "Function evaluations, accepted steps and termination message"},
			{"trajectory_data", "Complete state trajectory at every accepted step"},
		},
		BestEffort: []Item{
			{"git_repository", "Only captured when a git executable and repository are available"},
			{"module_versions", "Only key modules are listed; transitive versions may vary"},
			{"system_environment", "Environment variables and system configuration are not captured"},
			{"exact_bit_reproducibility", "Floating point results may vary across architectures and compilers"},
			{"external_dependencies", "Code called from the system's derivative function is not tracked"},
			{"plots", "Plots are rendered when the trajectory shape allows it"},
		},
		NotGuaranteed: []Item{
			{"determinism_across_architectures", "Different CPU architectures may produce slightly different results"},
			{"determinism_across_toolchains", "Different Go versions may change floating point code generation"},
			{"determinism_with_external_calls", "Systems that call external services or global random state will vary"},
			{"real_time_guarantees", "No guarantees about execution time"},
			{"formal_correctness", "Invariants are runtime diagnostics, not formal proofs"},
			{"certification", "No regulatory certification or compliance is implied"},
		},
		Limitations: []string{
			"Only systems implementing seed.Seedable receive the run's seed context; package-level random state is never reseeded",
			"The environment is captured at execution time; changes between runs are not tracked",
			"Changes to the source of the simulated system between runs are not captured",
			"Solver tolerances affect numerical precision and are part of the result",
			"Invariant violations indicate potential issues but do not prove correctness or incorrectness",
		},
	}
}

// Snapshot is the serialisable form stored in manifests.
type Snapshot struct {
	Captured      map[string]string `json:"captured"`
	BestEffort    map[string]string `json:"best_effort"`
	NotGuaranteed map[string]string `json:"not_guaranteed"`
	Limitations   []string          `json:"limitations"`
}

func (c Contract) Snapshot() Snapshot {
	return Snapshot{
		Captured:      itemMap(c.Captured),
		BestEffort:    itemMap(c.BestEffort),
		NotGuaranteed: itemMap(c.NotGuaranteed),
		Limitations:   append([]string(nil), c.Limitations...),
	}
}

func itemMap(items []Item) map[string]string {
	m := make(map[string]string, len(items))
	for _, it := range items {
		m[it.Key] = it.Description
	}
	return m
}

// Summary is a one sentence statement of the contract.
func (c Contract) Summary() string {
	return "phytrace captures the execution environment, parameters, seeds and results " +
		"of every run, but cannot guarantee bit-for-bit reproducibility across " +
		"architectures or when the simulated system depends on external state."
}

func (c Contract) Markdown() string {
	var b strings.Builder
	b.WriteString("# Reproducibility Contract\n\n")
	b.WriteString("What phytrace records for a run and what it cannot promise.\n")

	section := func(title string, items []Item) {
		b.WriteString("\n## " + title + "\n\n")
		for _, it := range items {
			b.WriteString("- **" + it.Title() + "**: " + it.Description + "\n")
		}
	}
	section("What is Captured", c.Captured)
	section("Best-Effort (May Not Always Succeed)", c.BestEffort)
	section("What is NOT Guaranteed", c.NotGuaranteed)

	b.WriteString("\n## Known Limitations\n\n")
	for _, l := range c.Limitations {
		b.WriteString("- " + l + "\n")
	}
	return b.String()
}

// Title is the key in display form: "go_version" becomes "Go Version".
func (it Item) Title() string {
	words := strings.Split(it.Key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
