package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nordlund/starsynth/internal/config"
	"github.com/nordlund/starsynth/internal/dataset"
	"github.com/nordlund/starsynth/internal/isogrid"
	"github.com/nordlund/starsynth/internal/logging"
	"github.com/nordlund/starsynth/internal/popmodel"
	"github.com/nordlund/starsynth/internal/sampler"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic stellar population",
		Long: `Generate a synthetic sample of stars by rejection sampling against
an isochrone grid, and persist the true parameters as a dataset.

Example:
  starsynth generate --config scenario.yaml --grid grid.db --out synth.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			gridPath, _ := cmd.Flags().GetString("grid")
			outPath, _ := cmd.Flags().GetString("out")
			tracePath, _ := cmd.Flags().GetString("trace")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			trace := logging.NewTraceLogger(tracePath, cfg.Logging.Level)
			defer trace.Close()

			grid, err := isogrid.Open(gridPath)
			if err != nil {
				return err
			}
			defer grid.Close()

			bursts, err := cfg.Generation.BurstModel()
			if err != nil {
				return err
			}

			gen := cfg.Generation
			res, err := sampler.Run(grid, sampler.Options{
				Bursts:      bursts,
				Metallicity: popmodel.Metallicity{Mean: gen.FeHMean, Sigma: gen.FeHDisp},
				IMF:         popmodel.IMF{Alpha: gen.IMFAlpha},
				N:           gen.NS,
				Seed:        gen.Seed,
				ExtraGiants: gen.ExtraGiants,
				MaxRejects:  gen.MaxRejects,
				AlphaFe:     sampler.DefaultAlphaFe,
				Logger:      logger,
				Trace:       trace,
			})
			if err != nil {
				return err
			}

			ds := dataset.FromResult(dataset.Config{
				Bursts:   bursts,
				IMFAlpha: gen.IMFAlpha,
				NS:       gen.NS,
				FeHMean:  gen.FeHMean,
				FeHDisp:  gen.FeHDisp,
				Seed:     gen.Seed,
				GridPath: gridPath,
			}, res)
			if err := dataset.Write(outPath, ds); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"output":   outPath,
					"accepted": res.Accepted,
					"rejected": res.Rejected,
				})
			}
			fmt.Printf("Number of valid stars = %d\n", res.Accepted)
			fmt.Printf("Number of discarded stars (too massive for the age) = %d\n", res.Rejected)
			fmt.Printf("Dataset written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().String("config", "scenario.yaml", "Scenario file")
	cmd.Flags().String("grid", "", "Isochrone grid database")
	cmd.Flags().String("out", "synth.db", "Output dataset file")
	cmd.Flags().String("trace", "trace.jsonl", "Sampling trace file (debug/trace level only)")
	cmd.MarkFlagRequired("grid")
	return cmd
}
