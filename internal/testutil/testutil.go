// Package testutil builds small synthetic isochrone grids for tests.
package testutil

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/nordlund/starsynth/internal/isogrid"
)

// MakeTrack builds a synthetic isochrone track with nNodes nodes whose
// temperature run has exactly five tiny successive differences centered
// on the node at 70% of the track, so the dwarf/giant split heuristic
// lands there. Initial mass increases by 0.01 per node from 0.6.
func MakeTrack(feh float64, nNodes int) isogrid.Track {
	split := (nNodes * 7) / 10

	track := make(isogrid.Track, nNodes)
	teff := 4000.0
	for i := 0; i < nNodes; i++ {
		if i > 0 {
			step := 150.0
			if i > split-2 && i <= split+3 {
				step = 1.0
			}
			teff += step
		}
		mass := 0.6 + 0.01*float64(i)
		logT := math.Log10(teff)
		logg := 4.5 - 0.01*float64(i)
		logL := -0.5 + 0.02*float64(i)

		node := make(isogrid.Node, len(isogrid.Params))
		node[isogrid.ParamIndex("Mini")] = mass
		node[isogrid.ParamIndex("FeHini")] = feh
		node[isogrid.ParamIndex("logT")] = logT
		node[isogrid.ParamIndex("logg")] = logg
		node[isogrid.ParamIndex("logL")] = logL
		node[isogrid.ParamIndex("J")] = 5 - 0.05*float64(i)
		node[isogrid.ParamIndex("H")] = 4.8 - 0.05*float64(i)
		node[isogrid.ParamIndex("Ks")] = 4.7 - 0.05*float64(i)
		node[isogrid.ParamIndex("G")] = 5.5 - 0.06*float64(i)
		node[isogrid.ParamIndex("G_BPbr")] = 5.7 - 0.06*float64(i)
		node[isogrid.ParamIndex("G_BPft")] = 5.7 - 0.06*float64(i)
		node[isogrid.ParamIndex("G_RP")] = 5.2 - 0.055*float64(i)
		track[i] = node
	}
	return track
}

// SplitIndexOf returns the split node MakeTrack centers its flat
// temperature region on.
func SplitIndexOf(nNodes int) int {
	return (nNodes * 7) / 10
}

// BuildGrid creates a grid database under t.TempDir() covering the
// given [Fe/H] and age values at [alpha/Fe]=0, with 60-node tracks.
func BuildGrid(t *testing.T, fehs, ages []float64) *isogrid.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "grid.db")
	g, err := isogrid.Open(path)
	if err != nil {
		t.Fatalf("opening grid: %v", err)
	}
	t.Cleanup(func() { g.Close() })

	for _, feh := range fehs {
		for _, age := range ages {
			if err := g.AddIsochrone(feh, 0, age, MakeTrack(feh, 60)); err != nil {
				t.Fatalf("adding isochrone (%g, %g): %v", feh, age, err)
			}
		}
	}
	return g
}
