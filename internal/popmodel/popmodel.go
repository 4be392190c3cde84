// Package popmodel defines the stellar population models that drive
// synthetic sampling: the star-formation history (one or more bursts),
// the metallicity distribution, and the initial mass function.
package popmodel

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrBadBursts reports a malformed burst table.
	ErrBadBursts = errors.New("popmodel: malformed burst table")

	// ErrBadAlpha reports an IMF exponent at or below 1, for which the
	// inverse-transform draw is undefined.
	ErrBadAlpha = errors.New("popmodel: IMF exponent must be greater than 1")
)

// Burst is one star-formation episode: an age interval in Gyr and a
// relative probability weight. The weight is ignored for a single-burst
// model.
type Burst struct {
	TLow   float64
	THigh  float64
	Weight float64
}

// Bursts is a star-formation history. A one-element history is a single
// burst; ages are drawn uniformly within it. A multi-burst history first
// picks a burst by its normalized weight, then draws uniformly within
// that burst's interval.
type Bursts []Burst

// Validate checks the burst table. Every interval must satisfy
// t_low <= t_high; a multi-burst table must have positive total weight.
func (b Bursts) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("%w: no bursts", ErrBadBursts)
	}
	for i, burst := range b {
		if burst.TLow > burst.THigh {
			return fmt.Errorf("%w: burst %d has t_low %g > t_high %g",
				ErrBadBursts, i, burst.TLow, burst.THigh)
		}
	}
	if len(b) > 1 {
		total := 0.0
		for i, burst := range b {
			if burst.Weight < 0 {
				return fmt.Errorf("%w: burst %d has negative weight %g",
					ErrBadBursts, i, burst.Weight)
			}
			total += burst.Weight
		}
		if total <= 0 {
			return fmt.Errorf("%w: weights sum to %g, cannot normalize",
				ErrBadBursts, total)
		}
	}
	return nil
}

// AgeSampler draws true ages from a validated burst table.
type AgeSampler struct {
	bursts Bursts
	rng    *rand.Rand
	pick   distuv.Categorical // burst index, multi-burst only
}

// NewAgeSampler validates b and binds it to rng.
func NewAgeSampler(b Bursts, rng *rand.Rand) (*AgeSampler, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	s := &AgeSampler{bursts: b, rng: rng}
	if len(b) > 1 {
		weights := make([]float64, len(b))
		for i, burst := range b {
			weights[i] = burst.Weight
		}
		s.pick = distuv.NewCategorical(weights, rng)
	}
	return s, nil
}

// Draw returns one age in Gyr.
func (s *AgeSampler) Draw() float64 {
	burst := s.bursts[0]
	if len(s.bursts) > 1 {
		burst = s.bursts[int(s.pick.Rand())]
	}
	return burst.TLow + (burst.THigh-burst.TLow)*s.rng.Float64()
}

// Metallicity is a normal distribution over [Fe/H]. Draws are
// unconstrained; the grid query rejects values outside its coverage.
type Metallicity struct {
	Mean  float64
	Sigma float64
}

// Sampler binds the metallicity model to rng.
func (m Metallicity) Sampler(rng *rand.Rand) distuv.Normal {
	return distuv.Normal{Mu: m.Mean, Sigma: m.Sigma, Src: rng}
}

// IMF is a truncated power-law initial mass function with exponent
// Alpha. The floor mass is supplied per draw, not stored here.
type IMF struct {
	Alpha float64
}

// Validate checks that the exponent admits the inverse transform.
func (f IMF) Validate() error {
	if f.Alpha <= 1 {
		return fmt.Errorf("%w: got %g", ErrBadAlpha, f.Alpha)
	}
	return nil
}

// DrawMass returns one initial mass above mMin via inverse-transform
// sampling of the power law: m = mMin * u^(-1/(alpha-1)).
func (f IMF) DrawMass(rng *rand.Rand, mMin float64) float64 {
	return mMin * math.Pow(rng.Float64(), -1/(f.Alpha-1))
}
