package audio

import (
	"math"
	"slices"
)

// Prefer selects which silence endpoints are snap candidates.
type Prefer string

const (
	// PreferEnd snaps to the end of silences (speech resumes right after the cut).
	PreferEnd Prefer = "end"
	// PreferStart snaps to the start of silences.
	PreferStart Prefer = "start"
	// PreferBoth considers both endpoints.
	PreferBoth Prefer = "both"
)

// IsValid reports whether p is a known preference.
func (p Prefer) IsValid() bool {
	return p == PreferEnd || p == PreferStart || p == PreferBoth
}

// Default snapping parameters.
const (
	DefaultSnapWindowSec = 2.0
	DefaultMinGapSec     = 5.0

	// tailToleranceSec is how close to the end an accepted boundary may be
	// before it is replaced by the end itself.
	tailToleranceSec = 0.1
)

// SnapOpts configures SnapBoundaries.
type SnapOpts struct {
	// TargetSec is the ideal segment length.
	TargetSec float64
	// WindowSec is the search radius around each ideal cut.
	WindowSec float64
	// MinGapSec is the minimum distance between accepted boundaries.
	MinGapSec float64
	Prefer    Prefer
}

// DefaultSnapOpts returns the default snapping options for targetSec.
func DefaultSnapOpts(targetSec float64) SnapOpts {
	return SnapOpts{
		TargetSec: targetSec,
		WindowSec: DefaultSnapWindowSec,
		MinGapSec: DefaultMinGapSec,
		Prefer:    PreferEnd,
	}
}

// SnapBoundaries computes the boundary sequence for a file of the given
// duration. Ideal cuts at multiples of TargetSec move to the nearest silence
// endpoint within WindowSec; a cut closer than MinGapSec to the previously
// accepted one is dropped. The result starts at 0, ends at duration, is
// strictly increasing and rounded to milliseconds.
func SnapBoundaries(duration float64, silences []SilenceInterval, opts SnapOpts) []float64 {
	if duration <= 0 {
		return []float64{0}
	}
	if opts.TargetSec <= 0 {
		return []float64{0, roundMs(duration)}
	}
	window := math.Max(opts.WindowSec, 0)
	minGap := math.Max(opts.MinGapSec, 0)

	candidates := snapCandidates(silences, opts.Prefer)

	bounds := []float64{0}
	last := 0.0
	for k := 1; float64(k)*opts.TargetSec < duration; k++ {
		target := float64(k) * opts.TargetSec
		cut := nearestWithin(candidates, target, window)
		if cut-last >= minGap {
			bounds = append(bounds, cut)
			last = cut
		}
	}

	switch {
	case duration-last > tailToleranceSec:
		bounds = append(bounds, duration)
	case len(bounds) > 1:
		bounds[len(bounds)-1] = duration
	default:
		bounds = append(bounds, duration)
	}

	return dedupeMs(bounds)
}

// snapCandidates returns the sorted silence endpoints selected by prefer.
func snapCandidates(silences []SilenceInterval, prefer Prefer) []float64 {
	points := make([]float64, 0, 2*len(silences))
	for _, s := range silences {
		switch prefer {
		case PreferStart:
			points = append(points, s.Start)
		case PreferBoth:
			points = append(points, s.Start, s.End)
		default:
			points = append(points, s.End)
		}
	}
	slices.Sort(points)
	return points
}

// nearestWithin returns the candidate closest to target inside
// [target-window, target+window], or target when none qualifies.
// candidates must be sorted ascending.
func nearestWithin(candidates []float64, target, window float64) float64 {
	best := target
	bestDist := math.Inf(1)
	for _, c := range candidates {
		if c < target-window {
			continue
		}
		if c > target+window {
			break
		}
		if d := math.Abs(c - target); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func roundMs(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// dedupeMs rounds to milliseconds, sorts and removes duplicates.
func dedupeMs(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = roundMs(v)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
