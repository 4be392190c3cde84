package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "starsynth",
		Short: "Synthetic stellar populations with known ages",
		Long: `starsynth generates synthetic samples of stars with known ("true")
ages, metallicities and stellar parameters drawn from a star-formation
model and an isochrone grid, then simulates noisy observations of them.

Because the true values are known by construction, the output catalogs
serve as ground truth for validating age- and metallicity-inference
pipelines.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGridCmd(),
		newGenerateCmd(),
		newObserveCmd(),
		newStatsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("starsynth version %s\n", version)
			}
		},
	}
}
