// Package sampler generates synthetic stellar populations by rejection
// sampling against an isochrone grid. Each draw picks an age from the
// star-formation history, a metallicity from the population model and
// an initial mass from the IMF, then accepts the star only if the mass
// lies inside the valid range of the matching isochrone.
package sampler

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/nordlund/starsynth/internal/isogrid"
	"github.com/nordlund/starsynth/internal/logging"
	"github.com/nordlund/starsynth/internal/popmodel"
)

// ErrRejectionCap reports that the sampler gave up after too many
// rejected draws, which indicates a degenerate configuration (mass
// floor at or beyond the track maximum for most of the grid).
var ErrRejectionCap = errors.New("sampler: rejected draw limit exceeded")

// DefaultMaxRejects bounds the total number of rejected draws per run.
const DefaultMaxRejects = 1_000_000

// DefaultAlphaFe is the fixed alpha enhancement used for grid queries.
const DefaultAlphaFe = 0.0

// Options configures one sampling run.
type Options struct {
	Bursts      popmodel.Bursts
	Metallicity popmodel.Metallicity
	IMF         popmodel.IMF

	// N is the target number of accepted stars.
	N int

	// Seed fully determines the draw sequence.
	Seed uint64

	// ExtraGiants in [0, 1] forces the tail of the accepted sample to
	// be giants: once the accepted count reaches N*(1-ExtraGiants),
	// the mass floor moves to the dwarf/giant split.
	ExtraGiants float64

	// MaxRejects caps total rejected draws; 0 means DefaultMaxRejects.
	MaxRejects int

	// AlphaFe is the fixed alpha enhancement for grid queries.
	AlphaFe float64

	Logger *slog.Logger
	Trace  *logging.TraceLogger
}

func (o Options) validate() error {
	if o.N < 1 {
		return fmt.Errorf("sampler: target count %d, need at least 1", o.N)
	}
	if o.ExtraGiants < 0 || o.ExtraGiants > 1 {
		return fmt.Errorf("sampler: extra_giants %g outside [0, 1]", o.ExtraGiants)
	}
	if o.Metallicity.Sigma < 0 {
		return fmt.Errorf("sampler: metallicity dispersion %g is negative", o.Metallicity.Sigma)
	}
	if err := o.Bursts.Validate(); err != nil {
		return err
	}
	return o.IMF.Validate()
}

// Star is one accepted draw: every grid parameter interpolated to the
// drawn initial mass, the realized age, and the phase flag (0 = dwarf-
// eligible, 1 = forced giant). Values is indexed by the grid schema.
type Star struct {
	Values []float64
	Age    float64
	Phase  int
}

// Result is a completed sampling run.
type Result struct {
	Schema   []string
	Stars    []Star
	Accepted int
	Rejected int
}

// Run draws stars until exactly opts.N are accepted. The sequence of
// accepted stars is fully determined by opts.Seed and the grid.
func Run(grid isogrid.Querier, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	maxRejects := opts.MaxRejects
	if maxRejects == 0 {
		maxRejects = DefaultMaxRejects
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	ages, err := popmodel.NewAgeSampler(opts.Bursts, rng)
	if err != nil {
		return nil, err
	}
	fehDist := opts.Metallicity.Sampler(rng)

	schema := grid.Schema()
	giantFrom := float64(opts.N) * (1 - opts.ExtraGiants)

	res := &Result{Schema: schema, Stars: make([]Star, 0, opts.N)}
	for res.Accepted < opts.N {
		age := ages.Draw()
		feh := fehDist.Rand()

		track, cell, err := grid.Query(feh, opts.AlphaFe, age)
		if err != nil {
			return nil, fmt.Errorf("querying grid at ([Fe/H]=%.3f, age=%.3f): %w", feh, age, err)
		}

		forceGiant := float64(res.Accepted) >= giantFrom
		mMin, phase := PhasePolicy(track, feh, forceGiant)
		m := opts.IMF.DrawMass(rng, mMin)

		if m >= track.MaxMass() {
			res.Rejected++
			opts.Trace.Log(map[string]any{
				"event": "reject", "age": cell.Age, "feh": feh,
				"mass": m, "m_min": mMin,
			})
			if res.Rejected >= maxRejects {
				return nil, fmt.Errorf("%w: %d rejected with %d/%d accepted",
					ErrRejectionCap, res.Rejected, res.Accepted, opts.N)
			}
			continue
		}

		res.Stars = append(res.Stars, interpolate(track, schema, m, cell.Age, phase))
		res.Accepted++
		opts.Trace.Log(map[string]any{
			"event": "accept", "age": cell.Age, "feh": feh,
			"mass": m, "m_min": mMin, "phase": phase,
		})
	}

	if opts.Logger != nil {
		opts.Logger.Info("sampling complete",
			"accepted", res.Accepted, "rejected", res.Rejected)
	}
	return res, nil
}

// interpolate builds a Star by linear interpolation between the two
// track nodes bracketing mass m. Requires track[0].mass <= m < MaxMass.
func interpolate(track isogrid.Track, schema []string, m, age float64, phase int) Star {
	// First node with mass strictly above m; the bracket below it is
	// the last node with mass <= m.
	ip := sort.Search(len(track), func(i int) bool { return track[i][0] > m })
	im := ip - 1

	h := (m - track[im][0]) / (track[ip][0] - track[im][0])
	values := make([]float64, len(schema))
	for i := range values {
		values[i] = (1-h)*track[im][i] + h*track[ip][i]
	}
	return Star{Values: values, Age: age, Phase: phase}
}
