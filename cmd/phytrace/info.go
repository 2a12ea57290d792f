package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/san-kum/phytrace/internal/config"
	"github.com/san-kum/phytrace/internal/integrators"
	"github.com/san-kum/phytrace/internal/models"
	"github.com/san-kum/phytrace/internal/provenance"
)

func showInfo(cmd *cobra.Command, args []string) error {
	c := provenance.DefaultContract()

	fmt.Println(titleStyle.Render("phytrace reproducibility contract"))
	fmt.Println()
	fmt.Println(c.Summary())

	section := func(title string, items []provenance.Item) {
		fmt.Println()
		fmt.Println(titleStyle.Render(title))
		for _, it := range items {
			fmt.Printf("  • %s: %s\n", it.Title(), it.Description)
		}
	}
	section("What is captured", c.Captured)
	section("Best-effort (may not always succeed)", c.BestEffort)
	section("What is NOT guaranteed", c.NotGuaranteed)

	fmt.Println()
	fmt.Println(titleStyle.Render("Known limitations"))
	for _, l := range c.Limitations {
		fmt.Printf("  • %s\n", l)
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, config.DefaultFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.WriteFile(path, []byte(config.Template), 0644); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("wrote " + path))
	fmt.Println(labelStyle.Render("run it with: phytrace run --config " + path))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for model: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, p := range presets {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	reg := models.NewRegistry()
	for _, name := range reg.List() {
		m, _ := reg.Get(name)
		fmt.Printf("  %-20s %s\n", name, labelStyle.Render(m.Description))
	}
	fmt.Println()
	fmt.Println(field("methods", integrators.Methods()))
	return nil
}
