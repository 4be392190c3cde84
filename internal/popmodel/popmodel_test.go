package popmodel

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestBurstsValidate(t *testing.T) {
	tests := []struct {
		name    string
		bursts  Bursts
		wantErr bool
	}{
		{
			name:   "single burst",
			bursts: Bursts{{TLow: 1, THigh: 10}},
		},
		{
			name:   "single burst ignores weight",
			bursts: Bursts{{TLow: 1, THigh: 10, Weight: -5}},
		},
		{
			name: "multi burst",
			bursts: Bursts{
				{TLow: 0.5, THigh: 2, Weight: 1},
				{TLow: 8, THigh: 12, Weight: 3},
			},
		},
		{
			name:    "empty",
			bursts:  Bursts{},
			wantErr: true,
		},
		{
			name:    "inverted interval",
			bursts:  Bursts{{TLow: 10, THigh: 1}},
			wantErr: true,
		},
		{
			name: "zero total weight",
			bursts: Bursts{
				{TLow: 1, THigh: 2, Weight: 0},
				{TLow: 3, THigh: 4, Weight: 0},
			},
			wantErr: true,
		},
		{
			name: "negative weight",
			bursts: Bursts{
				{TLow: 1, THigh: 2, Weight: 1},
				{TLow: 3, THigh: 4, Weight: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bursts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrBadBursts) {
				t.Errorf("error %v does not wrap ErrBadBursts", err)
			}
		})
	}
}

func TestAgeSamplerSingleBurstRange(t *testing.T) {
	s, err := NewAgeSampler(Bursts{{TLow: 1, THigh: 10}}, newRNG(1))
	if err != nil {
		t.Fatalf("NewAgeSampler: %v", err)
	}
	for i := 0; i < 1000; i++ {
		age := s.Draw()
		if age < 1 || age > 10 {
			t.Fatalf("draw %d: age %g outside [1, 10]", i, age)
		}
	}
}

func TestAgeSamplerMultiBurstWeights(t *testing.T) {
	// Two disjoint bursts with 1:3 weights; the draw fraction must
	// follow the weights.
	bursts := Bursts{
		{TLow: 0, THigh: 1, Weight: 1},
		{TLow: 5, THigh: 6, Weight: 3},
	}
	s, err := NewAgeSampler(bursts, newRNG(7))
	if err != nil {
		t.Fatalf("NewAgeSampler: %v", err)
	}

	const n = 20000
	var old int
	for i := 0; i < n; i++ {
		age := s.Draw()
		switch {
		case age >= 0 && age <= 1:
			// young burst
		case age >= 5 && age <= 6:
			old++
		default:
			t.Fatalf("age %g outside both bursts", age)
		}
	}
	frac := float64(old) / n
	if math.Abs(frac-0.75) > 0.02 {
		t.Errorf("old-burst fraction = %.3f, want 0.75 ± 0.02", frac)
	}
}

func TestAgeSamplerDeterminism(t *testing.T) {
	bursts := Bursts{
		{TLow: 1, THigh: 4, Weight: 2},
		{TLow: 9, THigh: 13, Weight: 1},
	}
	a, _ := NewAgeSampler(bursts, newRNG(42))
	b, _ := NewAgeSampler(bursts, newRNG(42))
	for i := 0; i < 100; i++ {
		if x, y := a.Draw(), b.Draw(); x != y {
			t.Fatalf("draw %d: %g != %g with identical seeds", i, x, y)
		}
	}
}

func TestIMFValidate(t *testing.T) {
	if err := (IMF{Alpha: 2.35}).Validate(); err != nil {
		t.Errorf("alpha 2.35 should be valid: %v", err)
	}
	for _, alpha := range []float64{1.0, 0.5, -2} {
		err := (IMF{Alpha: alpha}).Validate()
		if !errors.Is(err, ErrBadAlpha) {
			t.Errorf("alpha %g: error = %v, want ErrBadAlpha", alpha, err)
		}
	}
}

func TestIMFDrawMassAboveFloor(t *testing.T) {
	imf := IMF{Alpha: 2.35}
	rng := newRNG(3)
	for i := 0; i < 1000; i++ {
		m := imf.DrawMass(rng, 0.7)
		if m < 0.7 {
			t.Fatalf("draw %d: mass %g below floor 0.7", i, m)
		}
	}
}

func TestIMFDrawMassSteepness(t *testing.T) {
	// A steeper IMF concentrates mass near the floor: the median draw
	// for alpha=3.35 must sit below the median for alpha=2.35.
	median := func(alpha float64) float64 {
		imf := IMF{Alpha: alpha}
		rng := newRNG(11)
		draws := make([]float64, 5001)
		for i := range draws {
			draws[i] = imf.DrawMass(rng, 1)
		}
		// selection by counting is overkill; sort-free median via
		// the analytic value is checked instead
		var above int
		analytic := math.Pow(2, 1/(alpha-1)) // median of the transform
		for _, m := range draws {
			if m > analytic {
				above++
			}
		}
		frac := float64(above) / float64(len(draws))
		if math.Abs(frac-0.5) > 0.03 {
			t.Errorf("alpha %g: fraction above analytic median = %.3f, want 0.5 ± 0.03", alpha, frac)
		}
		return analytic
	}

	if m335, m235 := median(3.35), median(2.35); m335 >= m235 {
		t.Errorf("median(alpha=3.35) = %g not below median(alpha=2.35) = %g", m335, m235)
	}
}
