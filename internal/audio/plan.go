package audio

import "math"

// Cut planning parameters.
const (
	DefaultPaddingSec = 0.25

	// MinPlanSec is the shortest padded plan that is kept.
	MinPlanSec = 0.25
)

// CutPlan is one interval to materialize as a segment file.
type CutPlan struct {
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	// Index is the plan's position in retained order and names its files.
	Index int `yaml:"index" json:"index"`
}

// Duration returns the plan length in seconds.
func (p CutPlan) Duration() float64 {
	return p.End - p.Start
}

// BuildCutPlans turns consecutive boundary pairs into padded plans.
//
// Every start except the first moves back by paddingSec and every end
// except the last moves forward by paddingSec, clamped to [0, duration].
// Plans shorter than MinPlanSec are dropped and the survivors are indexed
// contiguously from 0. When nothing survives, a single plan spans the whole
// file.
func BuildCutPlans(boundaries []float64, duration, paddingSec float64) []CutPlan {
	paddingSec = math.Max(paddingSec, 0)

	var plans []CutPlan
	last := len(boundaries) - 2
	for i := 0; i <= last; i++ {
		start := boundaries[i]
		end := boundaries[i+1]
		if i > 0 {
			start -= paddingSec
		}
		if i < last {
			end += paddingSec
		}
		start = roundMs(clamp(start, 0, duration))
		end = roundMs(clamp(end, 0, duration))

		if end-start < MinPlanSec {
			continue
		}
		plans = append(plans, CutPlan{Start: start, End: end, Index: len(plans)})
	}

	if len(plans) == 0 {
		return []CutPlan{{Start: 0, End: math.Max(duration, 0), Index: 0}}
	}
	return plans
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
