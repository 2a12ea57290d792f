package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/san-kum/phytrace/internal/evidence"
	"github.com/san-kum/phytrace/internal/golden"
	"github.com/san-kum/phytrace/internal/plot"
)

const maxPlots = 6

func validatePack(cmd *cobra.Command, args []string) error {
	v := evidence.Validate(args[0])

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return err
		}
	} else {
		fmt.Println(titleStyle.Render("evidence pack " + args[0]))
		for _, issue := range v.Issues {
			fmt.Println("  " + errStyle.Render("✗ "+issue))
		}
		for _, w := range v.Warnings {
			fmt.Println("  " + warnStyle.Render("! "+w))
		}
		fmt.Printf("\n%d/%d checks passed, %d issues, %d warnings\n",
			v.Summary.ChecksPassed, v.Summary.ChecksTotal, v.Summary.TotalIssues, v.Summary.TotalWarnings)
		if v.Valid {
			fmt.Println(okStyle.Render("✓ evidence pack is valid"))
		}
	}

	if !v.Valid {
		return errors.New("evidence pack is invalid")
	}
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// comparePacks treats dir1 as the reference.
func comparePacks(cmd *cobra.Command, args []string) error {
	ref, err := golden.FromPack(filepath.Base(args[0]), args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	cand, err := golden.FromPack(filepath.Base(args[1]), args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}
	report := golden.Compare(cand, ref, golden.WithTolerance(cmpRTol, cmpATol))

	fmt.Println(titleStyle.Render("parameter comparison"))
	if len(report.ParamDiffs) == 0 {
		fmt.Println(labelStyle.Render("  (no parameter differences)"))
	}
	for _, d := range report.ParamDiffs {
		fmt.Printf("  %s: %s → %s\n", d.Name, optional(d.Reference), optional(d.Candidate))
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("trajectory comparison"))
	if !report.SameGrid {
		fmt.Println(labelStyle.Render(fmt.Sprintf("  resampled onto %d points over [%g, %g]", len(report.Grid), report.Start, report.End)))
	}
	for i := range report.MaxDiff {
		fmt.Println(field(fmt.Sprintf("  state_%d", i), fmt.Sprintf("max %.2e  rms %.2e", report.MaxDiff[i], report.RMSDiff[i])))
	}
	for _, issue := range report.Issues {
		fmt.Println("  " + warnStyle.Render(issue))
	}
	if len(report.Divergence) > 1 {
		fmt.Println(plot.Sparkline(report.Divergence, 60, 6, "divergence over time"))
	}

	if !report.Match() {
		fmt.Println(errStyle.Render(fmt.Sprintf("✗ packs differ beyond rtol=%g atol=%g", cmpRTol, cmpATol)))
		return errors.New("evidence packs differ")
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("✓ packs match within rtol=%g atol=%g", cmpRTol, cmpATol)))
	return nil
}

func plotPack(cmd *cobra.Command, args []string) error {
	dir := args[0]
	tr, err := evidence.LoadTrajectory(dir)
	if err != nil {
		return err
	}
	if tr.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	if m, err := evidence.LoadManifest(dir); err == nil {
		fmt.Println(field("run", m.RunID))
		fmt.Println(field("function", m.Simulation.Function))
	}
	fmt.Println(field("samples", tr.Len()))
	fmt.Println()

	n := tr.Dim()
	if n > maxPlots {
		n = maxPlots
	}
	for i := 0; i < n; i++ {
		chart := plot.Sparkline(tr.Y[i], 80, 10, fmt.Sprintf("state_%d vs time", i))
		if chart == "" {
			chart = warnStyle.Render(fmt.Sprintf("state_%d has no finite values", i))
		}
		fmt.Println(chart)
		fmt.Println()
	}

	if svgOut != "" {
		f, err := os.Create(svgOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := plot.NewSVG().TimeSeries(f, tr.T, tr.Y); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("wrote " + svgOut))
	}
	return nil
}
