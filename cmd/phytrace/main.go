package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/phytrace/internal/golden"
)

var (
	verbose       bool
	goldenDir     string
	goldenBackend string

	// run
	configFile  string
	preset      string
	evidenceDir string
	seed        int64
	method      string
	rtol        float64
	atol        float64
	tEnd        float64
	plots       string
	goldenName  string
	dumpMetrics bool

	// validate
	jsonOutput bool

	// compare
	cmpRTol float64
	cmpATol float64

	// plot
	svgOut string
)

// main wires the phytrace commands and exits with status 1 on any error,
// including a run stopped by a critical invariant.
func main() {
	rootCmd := &cobra.Command{
		Use:           "phytrace",
		Short:         "invariant-checked simulation runs with evidence packs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&goldenDir, "golden-dir", golden.DefaultDir, "golden snapshot directory")
	rootCmd.PersistentFlags().StringVar(&goldenBackend, "golden-backend", golden.BackendDir, "golden snapshot store: dir or badger")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a model with invariant checks",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&evidenceDir, "evidence", "", "write an evidence pack to this directory")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	runCmd.Flags().StringVar(&method, "method", "", "integration method (RK45, RK23, RK4, EULER)")
	runCmd.Flags().Float64Var(&rtol, "rtol", 0, "relative tolerance")
	runCmd.Flags().Float64Var(&atol, "atol", 0, "absolute tolerance")
	runCmd.Flags().Float64Var(&tEnd, "time", 0, "end of the time span")
	runCmd.Flags().StringVar(&plots, "plots", "", "plot format: png, svg or none")
	runCmd.Flags().StringVar(&goldenName, "golden", "", "compare against (or create) this golden snapshot")
	runCmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print invariant metrics in Prometheus text format")

	validateCmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "check an evidence pack for completeness",
		Args:  cobra.ExactArgs(1),
		RunE:  validatePack,
	}
	validateCmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	compareCmd := &cobra.Command{
		Use:   "compare [dir1] [dir2]",
		Short: "compare two evidence packs",
		Args:  cobra.ExactArgs(2),
		RunE:  comparePacks,
	}
	compareCmd.Flags().Float64Var(&cmpRTol, "rtol", golden.DefaultRTol, "relative tolerance")
	compareCmd.Flags().Float64Var(&cmpATol, "atol", 1e-8, "absolute tolerance")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "show the reproducibility contract",
		Args:  cobra.NoArgs,
		RunE:  showInfo,
	}

	initCmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "write a template config",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [dir]",
		Short: "plot the trajectory of an evidence pack",
		Args:  cobra.ExactArgs(1),
		RunE:  plotPack,
	}
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write an SVG time series to this file")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	rootCmd.AddCommand(runCmd, validateCmd, compareCmd, infoCmd, initCmd, plotCmd, presetsCmd, modelsCmd, goldenCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
