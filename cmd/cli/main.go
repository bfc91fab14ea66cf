package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dosescan/adapters/adaptive"
	"dosescan/adapters/excel"
	"dosescan/adapters/units"
	"dosescan/app"
	"dosescan/domain/core"
	"dosescan/internal"
)

func main() {
	// Optional .env for local overrides (LOG_LEVEL etc); absence is fine.
	if err := godotenv.Load(); err == nil {
		internal.NewLogger("CLI").Debug("loaded environment from .env")
	}

	rootCmd := &cobra.Command{
		Use:   "dosescan",
		Short: "Dose-response layout and dilution pattern detection",
	}

	rootCmd.AddCommand(newAnalyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var configPath string
	var timeoutSec int
	var compact bool

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a spreadsheet (.xlsx or .csv) and print the detection result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := core.DefaultDetectionConfig()
			if configPath != "" {
				loaded, err := core.LoadDetectionConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if timeoutSec > 0 {
				cfg.AdaptiveTimeout = time.Duration(timeoutSec) * time.Second
			}

			grid, err := excel.NewGridReader(args[0]).ReadGrid()
			if err != nil {
				return err
			}

			parser := units.NewParser()
			service := app.NewAnalysisService(cfg, parser, adaptive.NewDetector(cfg))

			result := service.Analyze(context.Background(), grid)

			enc := json.NewEncoder(os.Stdout)
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML detection config overrides (priors, tolerances, windows)")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "adaptive detector timeout in seconds (default 30)")
	cmd.Flags().BoolVar(&compact, "compact", false, "emit compact JSON")
	return cmd
}
