// Package observe simulates noisy measurements of a synthetic stellar
// population. For every requested parameter it produces an observed
// value and a paired uncertainty; parallax-dependent quantities
// (apparent magnitudes) are derived from a sampled true parallax.
package observe

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nordlund/starsynth/internal/dataset"
	"github.com/nordlund/starsynth/internal/isogrid"
)

var (
	// ErrUnknownParam reports a requested parameter missing from the
	// synthetic dataset.
	ErrUnknownParam = errors.New("observe: parameter not in synthetic dataset")

	// ErrMagnitudeNeedsPlx reports a photometric band requested
	// without a parallax, leaving apparent magnitudes undefined.
	ErrMagnitudeNeedsPlx = errors.New(`observe: "plx" must be requested to observe magnitudes`)

	// ErrBadPolicy reports an unrecognized parallax policy token.
	ErrBadPolicy = errors.New("observe: unknown parallax policy")
)

// Parallax policy kinds.
const (
	PlxSN        = "SN"        // solar-neighborhood lognormal
	PlxSkymapper = "Skymapper" // SkyMapper-like lognormal with drawn relative errors
	PlxConst     = "const"     // fixed true parallax
)

// PlxPolicy selects how true parallaxes are assigned.
type PlxPolicy struct {
	Kind  string
	Value float64 // true parallax in mas, Kind == PlxConst only
}

// ParamSpec is one requested observable: a fixed measurement sigma,
// plus a parallax policy when Name is "plx".
type ParamSpec struct {
	Name  string
	Sigma float64
	Plx   *PlxPolicy
}

// Spec is an ordered observation request.
type Spec struct {
	Params []ParamSpec
}

// ParsePlxPolicy maps a policy token ("SN", "Skymapper", or a numeric
// constant) to a PlxPolicy.
func ParsePlxPolicy(token string, value float64, isNumeric bool) (*PlxPolicy, error) {
	if isNumeric {
		if value <= 0 {
			return nil, fmt.Errorf("%w: constant parallax %g must be positive", ErrBadPolicy, value)
		}
		return &PlxPolicy{Kind: PlxConst, Value: value}, nil
	}
	switch token {
	case PlxSN:
		return &PlxPolicy{Kind: PlxSN}, nil
	case PlxSkymapper:
		return &PlxPolicy{Kind: PlxSkymapper}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrBadPolicy, token)
}

// plxSpec returns the parallax entry, if any.
func (s Spec) plxSpec() *ParamSpec {
	for i := range s.Params {
		if s.Params[i].Name == "plx" {
			return &s.Params[i]
		}
	}
	return nil
}

// Validate checks the spec against a synthetic dataset before any
// noise is drawn: magnitudes require a parallax, every non-parallax
// parameter must exist in the dataset, and the parallax entry must
// carry a policy.
func (s Spec) Validate(ds *dataset.Synthetic) error {
	if len(s.Params) == 0 {
		return errors.New("observe: empty observation spec")
	}
	plx := s.plxSpec()
	for _, p := range s.Params {
		if p.Name == "plx" {
			if p.Plx == nil {
				return fmt.Errorf("%w: plx entry has no policy", ErrBadPolicy)
			}
			continue
		}
		if isogrid.IsFilter(p.Name) && plx == nil {
			return fmt.Errorf("%w (requested %q)", ErrMagnitudeNeedsPlx, p.Name)
		}
		if _, ok := ds.Data[p.Name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParam, p.Name)
		}
	}
	return nil
}

// Observed is a simulated catalog: per requested parameter, one
// observed value and one uncertainty per star, row-indexed by draw
// order.
type Observed struct {
	Params []string
	Values map[string][]float64
	Unc    map[string][]float64

	// TruePlx holds the sampled true parallaxes when a parallax
	// policy is in effect. It is an intermediate product and is not
	// written to the catalog.
	TruePlx []float64
}

// Lognormal parameters mimicking the parallax distributions of solar-
// neighborhood and SkyMapper samples (mas).
const (
	snLogMu       = 0.5637
	snLogSigma    = 0.8767
	skyLogMu      = -0.255
	skyLogSigma   = 0.656
	skyRelErrRate = 14 // exponential weight over the relative-error grid
)

// skyRelErrGrid is the discretized relative-error grid for the
// SkyMapper parallax policy: 0.02 to 0.20 in steps of 0.01.
func skyRelErrGrid() []float64 {
	grid := make([]float64, 19)
	for i := range grid {
		grid[i] = 0.02 + 0.01*float64(i)
	}
	return grid
}

// Simulate draws one observed catalog. The draw sequence is fully
// determined by seed and the spec order.
func Simulate(ds *dataset.Synthetic, spec Spec, seed uint64) (*Observed, error) {
	if err := spec.Validate(ds); err != nil {
		return nil, err
	}

	ns := ds.NS()
	rng := rand.New(rand.NewPCG(seed, seed))
	unit := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	// True values for every requested parameter except plx; logT is
	// converted to Kelvin before noising.
	trueData := make(map[string][]float64, len(spec.Params))
	for _, p := range spec.Params {
		if p.Name == "plx" {
			continue
		}
		col := ds.Data[p.Name]
		if p.Name == "logT" {
			kelvin := make([]float64, ns)
			for i, v := range col {
				kelvin[i] = math.Pow(10, v)
			}
			col = kelvin
		}
		trueData[p.Name] = col
	}

	// True parallaxes and the derived apparent magnitudes.
	plx := spec.plxSpec()
	var plxTrue []float64
	if plx != nil {
		plxTrue = make([]float64, ns)
		switch plx.Plx.Kind {
		case PlxSN:
			dist := distuv.LogNormal{Mu: snLogMu, Sigma: snLogSigma, Src: rng}
			for i := range plxTrue {
				plxTrue[i] = dist.Rand()
			}
		case PlxSkymapper:
			dist := distuv.LogNormal{Mu: skyLogMu, Sigma: skyLogSigma, Src: rng}
			for i := range plxTrue {
				plxTrue[i] = dist.Rand()
			}
		case PlxConst:
			for i := range plxTrue {
				plxTrue[i] = plx.Plx.Value
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrBadPolicy, plx.Plx.Kind)
		}
		trueData["plx"] = plxTrue

		// Distance modulus converts absolute to apparent magnitudes.
		for _, p := range spec.Params {
			if !isogrid.IsFilter(p.Name) {
				continue
			}
			app := make([]float64, ns)
			abs := trueData[p.Name]
			for i := range app {
				app[i] = abs[i] + 5*math.Log10(100/plxTrue[i])
			}
			trueData[p.Name] = app
		}
	}

	obs := &Observed{
		Params:  make([]string, 0, len(spec.Params)),
		Values:  make(map[string][]float64, len(spec.Params)),
		Unc:     make(map[string][]float64, len(spec.Params)),
		TruePlx: plxTrue,
	}

	for _, p := range spec.Params {
		values := make([]float64, ns)
		unc := make([]float64, ns)
		truth := trueData[p.Name]

		if p.Name == "plx" && plx.Plx.Kind == PlxSkymapper {
			// Relative uncertainty is itself drawn per star from an
			// exponentially weighted grid.
			grid := skyRelErrGrid()
			weights := make([]float64, len(grid))
			for i, r := range grid {
				weights[i] = math.Exp(-skyRelErrRate * r)
			}
			pick := distuv.NewCategorical(weights, rng)
			for i := range values {
				sigma := truth[i] * grid[int(pick.Rand())]
				values[i] = truth[i] + sigma*unit.Rand()
				unc[i] = sigma
			}
		} else {
			for i := range values {
				values[i] = truth[i] + p.Sigma*unit.Rand()
				unc[i] = p.Sigma
			}
		}

		obs.Params = append(obs.Params, p.Name)
		obs.Values[p.Name] = values
		obs.Unc[p.Name] = unc
	}
	return obs, nil
}
