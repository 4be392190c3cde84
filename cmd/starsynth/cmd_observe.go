package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nordlund/starsynth/internal/config"
	"github.com/nordlund/starsynth/internal/dataset"
	"github.com/nordlund/starsynth/internal/logging"
	"github.com/nordlund/starsynth/internal/observe"
)

func newObserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Simulate observations of a synthetic population",
		Long: `Simulate noisy measurements of a generated population and write an
observed catalog with paired uncertainty columns.

The observation section of the scenario file lists the parameters to
observe with their uncertainties, and the parallax policy ("SN",
"Skymapper", or a constant parallax in mas).

Example:
  starsynth observe --config scenario.yaml --synth synth.db --out obs.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			synthPath, _ := cmd.Flags().GetString("synth")
			outPath, _ := cmd.Flags().GetString("out")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			spec, err := cfg.Observation.Spec()
			if err != nil {
				return err
			}

			ds, err := dataset.Read(synthPath)
			if err != nil {
				return err
			}

			obs, err := observe.Simulate(ds, spec, cfg.Observation.Seed)
			if err != nil {
				return err
			}
			if err := observe.WriteTSVFile(outPath, obs); err != nil {
				return err
			}
			logger.Info("catalog written", "stars", ds.NS(), "params", len(obs.Params))

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"output": outPath,
					"stars":  ds.NS(),
					"params": obs.Params,
				})
			}
			fmt.Printf("Observed catalog written to %s (%d stars)\n", outPath, ds.NS())
			return nil
		},
	}

	cmd.Flags().String("config", "scenario.yaml", "Scenario file")
	cmd.Flags().String("synth", "synth.db", "Synthetic dataset file")
	cmd.Flags().String("out", "obs.txt", "Output catalog file")
	return cmd
}
