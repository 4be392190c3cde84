package sampler

import (
	"math"
	"sort"

	"github.com/nordlund/starsynth/internal/isogrid"
)

// SplitIndex locates the dwarf/giant transition on a track from its
// temperature run (in Kelvin). It takes the five smallest absolute
// successive temperature differences — the region where temperature
// stops changing monotonically with mass — and returns the median of
// their indices.
func SplitIndex(teff []float64) int {
	n := len(teff) - 1
	if n < 1 {
		return 0
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(teff[idx[a]+1]-teff[idx[a]]) < math.Abs(teff[idx[b]+1]-teff[idx[b]])
	})

	k := 5
	if n < k {
		k = n
	}
	low := append([]int(nil), idx[:k]...)
	sort.Ints(low)
	if k%2 == 1 {
		return low[k/2]
	}
	return (low[k/2-1] + low[k/2]) / 2
}

// PhasePolicy determines the minimum allowed initial mass for one draw
// and the evolutionary phase flag. Ordinary draws (forceGiant false)
// anchor the floor at the dwarf-branch node closest to the
// metallicity-dependent temperature floor 4500 − 500·[Fe/H]; giant-
// forced draws anchor it at the split node itself.
func PhasePolicy(track isogrid.Track, feh float64, forceGiant bool) (mMin float64, phase int) {
	iLogT := isogrid.ParamIndex("logT")

	teff := make([]float64, len(track))
	for i, node := range track {
		teff[i] = math.Pow(10, node[iLogT])
	}
	split := SplitIndex(teff)

	if forceGiant {
		return track[split][0], 1
	}

	limit := split
	if limit < 1 {
		limit = 1
	}
	teffMin := 4500 - 500*feh
	best := 0
	for i := 1; i < limit; i++ {
		if math.Abs(teff[i]-teffMin) < math.Abs(teff[best]-teffMin) {
			best = i
		}
	}
	return track[best][0], 0
}
