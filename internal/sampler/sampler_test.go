package sampler

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nordlund/starsynth/internal/isogrid"
	"github.com/nordlund/starsynth/internal/popmodel"
	"github.com/nordlund/starsynth/internal/testutil"
)

func baseOptions(n int) Options {
	return Options{
		Bursts:      popmodel.Bursts{{TLow: 1, THigh: 10}},
		Metallicity: popmodel.Metallicity{Mean: 0, Sigma: 0.1},
		IMF:         popmodel.IMF{Alpha: 2.35},
		N:           n,
		Seed:        1,
	}
}

func gridAges() []float64 {
	return []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
}

func TestRunScenarioSingleBurst(t *testing.T) {
	grid := testutil.BuildGrid(t, []float64{-0.2, 0, 0.2}, gridAges())

	res, err := Run(grid, baseOptions(100))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Accepted != 100 || len(res.Stars) != 100 {
		t.Fatalf("accepted %d stars (len %d), want exactly 100", res.Accepted, len(res.Stars))
	}

	iFeH := isogrid.ParamIndex("FeHini")
	for i, star := range res.Stars {
		if star.Age < 1 || star.Age > 10 {
			t.Errorf("star %d: age %g outside [1, 10]", i, star.Age)
		}
		if star.Phase != 0 {
			t.Errorf("star %d: phase %d, want 0 with extra_giants=0", i, star.Phase)
		}
		// Tracks run from 0.6 to 1.19 solar masses; every accepted
		// mass must lie strictly inside.
		mass := star.Values[0]
		if mass < 0.6 || mass >= 1.19 {
			t.Errorf("star %d: mass %g outside track range [0.6, 1.19)", i, mass)
		}
		// FeHini is constant along a track, so interpolation must
		// return a grid cell up to rounding.
		feh := star.Values[iFeH]
		onCell := false
		for _, cell := range []float64{-0.2, 0, 0.2} {
			if math.Abs(feh-cell) < 1e-12 {
				onCell = true
			}
		}
		if !onCell {
			t.Errorf("star %d: FeHini %g is not a grid cell", i, feh)
		}
	}
}

func TestRunDeterminism(t *testing.T) {
	grid := testutil.BuildGrid(t, []float64{-0.2, 0, 0.2}, gridAges())

	opts := baseOptions(60)
	opts.Seed = 42
	a, err := Run(grid, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Run(grid, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if a.Accepted != b.Accepted || a.Rejected != b.Rejected {
		t.Errorf("counts differ: (%d, %d) vs (%d, %d)",
			a.Accepted, a.Rejected, b.Accepted, b.Rejected)
	}
	if !reflect.DeepEqual(a.Stars, b.Stars) {
		t.Error("star sequences differ between identically seeded runs")
	}
}

func TestRunSeedChangesSequence(t *testing.T) {
	grid := testutil.BuildGrid(t, []float64{0}, gridAges())

	opts := baseOptions(30)
	a, _ := Run(grid, opts)
	opts.Seed = 2
	b, _ := Run(grid, opts)
	if reflect.DeepEqual(a.Stars, b.Stars) {
		t.Error("different seeds produced identical star sequences")
	}
}

func TestRunGiantAllocation(t *testing.T) {
	grid := testutil.BuildGrid(t, []float64{0}, gridAges())

	opts := baseOptions(50)
	opts.ExtraGiants = 0.2
	res, err := Run(grid, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The threshold is on the running accepted count: the first 40
	// accepted draws are ordinary, the last 10 are forced giants.
	for i, star := range res.Stars {
		want := 0
		if i >= 40 {
			want = 1
		}
		if star.Phase != want {
			t.Errorf("star %d: phase %d, want %d", i, star.Phase, want)
		}
	}
}

func TestRunGiantAllocationFractionalThreshold(t *testing.T) {
	grid := testutil.BuildGrid(t, []float64{0}, gridAges())

	// ns*(1-g) = 7.5: accepted counts 0..7 are ordinary, 8..9 forced,
	// giving floor(ns*g) = 2 giants.
	opts := baseOptions(10)
	opts.ExtraGiants = 0.25
	res, err := Run(grid, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var giants int
	for _, star := range res.Stars {
		giants += star.Phase
	}
	if giants != 2 {
		t.Errorf("got %d giants, want 2", giants)
	}
}

func TestRunInterpolatedBounds(t *testing.T) {
	grid := testutil.BuildGrid(t, []float64{0}, gridAges())

	res, err := Run(grid, baseOptions(80))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// logg decreases linearly from 4.5 by 0.01 per node over 60 nodes.
	iLogg := isogrid.ParamIndex("logg")
	for i, star := range res.Stars {
		logg := star.Values[iLogg]
		if logg > 4.5+1e-12 || logg < 4.5-0.59-1e-12 {
			t.Errorf("star %d: logg %g outside track envelope [%g, 4.5]", i, logg, 4.5-0.59)
		}
	}
}

func TestRunOptionValidation(t *testing.T) {
	grid := testutil.BuildGrid(t, []float64{0}, []float64{1, 5})

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero target", func(o *Options) { o.N = 0 }},
		{"extra giants above 1", func(o *Options) { o.ExtraGiants = 1.5 }},
		{"negative extra giants", func(o *Options) { o.ExtraGiants = -0.1 }},
		{"IMF exponent 1", func(o *Options) { o.IMF.Alpha = 1 }},
		{"inverted burst", func(o *Options) { o.Bursts = popmodel.Bursts{{TLow: 5, THigh: 1}} }},
		{"negative dispersion", func(o *Options) { o.Metallicity.Sigma = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := baseOptions(10)
			tt.mutate(&opts)
			if _, err := Run(grid, opts); err == nil {
				t.Error("expected a configuration error")
			}
		})
	}
}

func TestRunGridErrorPropagates(t *testing.T) {
	grid := testutil.BuildGrid(t, []float64{0}, gridAges())

	opts := baseOptions(10)
	opts.Metallicity = popmodel.Metallicity{Mean: 5, Sigma: 0} // far outside coverage
	_, err := Run(grid, opts)
	if !errors.Is(err, isogrid.ErrOutOfRange) {
		t.Errorf("error = %v, want wrapped isogrid.ErrOutOfRange", err)
	}
}

// degenerateGrid returns tracks whose masses are all equal, so every
// IMF draw lands above the track maximum.
type degenerateGrid struct{}

func (degenerateGrid) Schema() []string { return isogrid.Params }

func (degenerateGrid) Query(feh, alphaFe, age float64) (isogrid.Track, isogrid.Realized, error) {
	track := make(isogrid.Track, 6)
	for i := range track {
		node := make(isogrid.Node, len(isogrid.Params))
		node[0] = 1.0
		node[isogrid.ParamIndex("logT")] = math.Log10(5000)
		track[i] = node
	}
	return track, isogrid.Realized{Age: age}, nil
}

func TestRunRejectionCap(t *testing.T) {
	opts := baseOptions(5)
	opts.MaxRejects = 100
	_, err := Run(degenerateGrid{}, opts)
	if !errors.Is(err, ErrRejectionCap) {
		t.Errorf("error = %v, want ErrRejectionCap", err)
	}
}
