package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nordlund/starsynth/internal/isogrid"
)

func newGridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Manage isochrone grid databases",
	}
	cmd.PersistentFlags().String("grid", "grid.db", "Isochrone grid database")
	cmd.AddCommand(newGridImportCmd(), newGridInfoCmd())
	return cmd
}

func newGridImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [tables...]",
		Short: "Build a grid database from isochrone tables",
		Long: `Import tab-delimited isochrone tables into a grid database.

Each table needs a header naming feh, alpha_fe and age columns plus
every grid parameter; consecutive rows sharing a (feh, alpha_fe, age)
triple form one isochrone.

Example:
  starsynth grid import --grid grid.db parsec_m05.tsv parsec_p00.tsv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gridPath, _ := cmd.Flags().GetString("grid")

			g, err := isogrid.Open(gridPath)
			if err != nil {
				return err
			}
			defer g.Close()

			if err := g.Import(args...); err != nil {
				return err
			}

			info, err := g.Info()
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d isochrones (%d models) into %s\n",
				info.Isochrones, info.Nodes, gridPath)
			return nil
		},
	}
}

func newGridInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show grid coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			gridPath, _ := cmd.Flags().GetString("grid")
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, err := isogrid.Open(gridPath)
			if err != nil {
				return err
			}
			defer g.Close()

			info, err := g.Info()
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(info)
			}
			fmt.Printf("Grid: %s\n", gridPath)
			fmt.Printf("  isochrones: %d (%d models)\n", info.Isochrones, info.Nodes)
			fmt.Printf("  [Fe/H]:     %g .. %g\n", info.FeHMin, info.FeHMax)
			fmt.Printf("  age (Gyr):  %g .. %g\n", info.AgeMin, info.AgeMax)
			fmt.Printf("  [alpha/Fe]: %v\n", info.AlphaFe)
			fmt.Printf("  parameters: %v\n", g.Schema())
			return nil
		},
	}
}
