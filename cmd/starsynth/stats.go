package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nordlund/starsynth/internal/dataset"
)

// columnStats summarizes one dataset column.
type columnStats struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// summarizeColumn computes summary statistics for one column.
func summarizeColumn(name string, values []float64) columnStats {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return columnStats{
		Name:   name,
		Mean:   stat.Mean(values, nil),
		StdDev: stat.StdDev(values, nil),
		Min:    floats.Min(sorted),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Max:    floats.Max(sorted),
	}
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a synthetic dataset",
		Long: `Display per-parameter summary statistics for a generated dataset:
mean, standard deviation, minimum, median and maximum, plus the
generation settings it was drawn with.

Example:
  starsynth stats --synth synth.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			synthPath, _ := cmd.Flags().GetString("synth")
			jsonOut, _ := cmd.Flags().GetBool("json")

			ds, err := dataset.Read(synthPath)
			if err != nil {
				return err
			}
			if ds.NS() == 0 {
				return fmt.Errorf("dataset %s is empty", synthPath)
			}

			columns := append(append([]string{}, ds.Params...), "age", "phase")
			summary := make([]columnStats, 0, len(columns))
			for _, name := range columns {
				summary = append(summary, summarizeColumn(name, ds.Data[name]))
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"ns":      ds.NS(),
					"seed":    ds.Config.Seed,
					"columns": summary,
				})
			}

			fmt.Printf("Dataset: %s (%d stars, seed %d)\n", synthPath, ds.NS(), ds.Config.Seed)
			fmt.Printf("%-8s %10s %10s %10s %10s %10s\n", "param", "mean", "stddev", "min", "median", "max")
			for _, c := range summary {
				fmt.Printf("%-8s %10.4f %10.4f %10.4f %10.4f %10.4f\n",
					c.Name, c.Mean, c.StdDev, c.Min, c.Median, c.Max)
			}
			return nil
		},
	}

	cmd.Flags().String("synth", "synth.db", "Synthetic dataset file")
	return cmd
}
