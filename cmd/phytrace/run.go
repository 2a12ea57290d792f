package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/san-kum/phytrace/internal/config"
	"github.com/san-kum/phytrace/internal/evidence"
	"github.com/san-kum/phytrace/internal/golden"
	"github.com/san-kum/phytrace/internal/invariant"
	"github.com/san-kum/phytrace/internal/models"
	"github.com/san-kum/phytrace/internal/plot"
	"github.com/san-kum/phytrace/internal/telemetry"
	"github.com/san-kum/phytrace/internal/trace"
)

// resolveConfig layers defaults, preset, config file and flags in that
// order. A model argument overrides the model named by a config file.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Model = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 && loaded.Model != args[0] {
			return nil, fmt.Errorf("config %s is for model %s, not %s", configFile, loaded.Model, args[0])
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("evidence") {
		cfg.Evidence.Dir = evidenceDir
	}
	if flags.Changed("seed") {
		s := seed
		cfg.Seed = &s
	}
	if flags.Changed("method") {
		cfg.Solver.Method = method
	}
	if flags.Changed("rtol") {
		cfg.Solver.RTol = rtol
	}
	if flags.Changed("atol") {
		cfg.Solver.ATol = atol
	}
	if flags.Changed("time") {
		start := 0.0
		if cfg.TimeSpan != nil {
			start = cfg.TimeSpan.Start
		}
		cfg.TimeSpan = &config.SpanConfig{Start: start, End: tEnd}
	}
	if flags.Changed("plots") {
		cfg.Evidence.Plots = plots
	}
	return cfg, cfg.Validate()
}

func rendererFor(name string) (plot.Renderer, error) {
	switch strings.ToLower(name) {
	case "", "png":
		return plot.NewPNG(), nil
	case "svg":
		return plot.NewSVG(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown plot format: %s", name)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	spec, err := cfg.Spec(models.NewRegistry())
	if err != nil {
		return err
	}

	logger := newLogger()
	renderer, err := rendererFor(cfg.Evidence.Plots)
	if err != nil {
		return err
	}
	spec.Logger = logger
	spec.Writer = evidence.NewWriter(evidence.WithRenderer(renderer), evidence.WithLogger(logger))

	var reg *prometheus.Registry
	if dumpMetrics {
		reg = prometheus.NewRegistry()
		rec, err := telemetry.NewPrometheus(reg)
		if err != nil {
			return err
		}
		spec.Recorder = rec
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("running %s", cfg.Model)))
	start := time.Now()
	res, runErr := trace.Run(context.Background(), spec)
	if res == nil {
		return runErr
	}
	printResult(res, time.Since(start))

	if res.EvidenceDir != "" {
		fmt.Println(field("evidence", res.EvidenceDir))
	}
	if res.EvidenceErr != nil {
		fmt.Println(warnStyle.Render("evidence not written: " + res.EvidenceErr.Error()))
	}

	if reg != nil {
		if err := writeMetrics(reg); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if goldenName != "" {
		return checkGolden(cmd, cfg, res)
	}
	return nil
}

func printResult(res *trace.Result, elapsed time.Duration) {
	lines := []string{
		field("run id", res.RunID),
		field("status", res.Status),
		field("success", mark(res.Success)),
		field("final time", fmt.Sprintf("%.6g", res.FinalTime())),
		field("steps", res.Steps),
		field("rhs evals", res.NFev),
		field("elapsed", elapsed.Round(time.Microsecond)),
		field("checks passed", mark(res.ChecksPassed)),
	}
	if res.Message != "" {
		lines = append(lines, field("message", res.Message))
	}
	fmt.Println(boxStyle.Render(strings.Join(lines, "\n")))

	if len(res.Invariants.Invariants) == 0 {
		return
	}
	fmt.Println("\ninvariants:")
	for _, r := range res.Invariants.Invariants {
		line := fmt.Sprintf("  %s %-24s %-8s %d/%d violations", mark(r.Violations == 0), r.Name, r.Severity, r.Violations, r.Checks)
		if r.FirstViolation != nil {
			line += labelStyle.Render(fmt.Sprintf("  first at step %d, t=%.6g", r.FirstViolation.Step, r.FirstViolation.Time))
		}
		if r.Severity.AtLeast(invariant.SeverityError) && r.Violations > 0 {
			line = warnStyle.Render(line)
		}
		fmt.Println(line)
	}
}

func checkGolden(cmd *cobra.Command, cfg *config.Config, res *trace.Result) (err error) {
	store, dir, closeStore, err := openStore(cmd, cfg.Golden)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); err == nil {
			err = cerr
		}
	}()

	var opts []golden.Option
	if cfg.Golden.RTol > 0 || cfg.Golden.ATol > 0 {
		opts = append(opts, golden.WithTolerance(cfg.Golden.RTol, cfg.Golden.ATol))
	}

	v, err := golden.Verify(cmd.Context(), store, goldenName,
		func(context.Context) (*trace.Result, error) { return res, nil },
		golden.VerifyOptions{AllowCreate: true, Compare: opts})
	var mismatch *golden.MismatchError
	switch {
	case errors.As(err, &mismatch):
		fmt.Println(errStyle.Render("golden " + goldenName + ": mismatch"))
		fmt.Println(labelStyle.Render(mismatch.Report.String()))
		return err
	case err != nil:
		return err
	case v.Stored:
		fmt.Println(okStyle.Render("golden " + goldenName + ": stored in " + dir))
	default:
		fmt.Println(okStyle.Render(fmt.Sprintf("golden %s: match (max diff %.3e)", goldenName, v.Report.MaxAbsDiff())))
	}
	return nil
}

func writeMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	fmt.Println()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return err
		}
	}
	return nil
}
