package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCutPlans(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []float64
		duration   float64
		padding    float64
		want       []CutPlan
	}{
		{
			name:       "padding skipped at the outer edges",
			boundaries: []float64{0, 60, 120, 130},
			duration:   130,
			padding:    0.25,
			want: []CutPlan{
				{Start: 0, End: 60.25, Index: 0},
				{Start: 59.75, End: 120.25, Index: 1},
				{Start: 119.75, End: 130, Index: 2},
			},
		},
		{
			name:       "single span",
			boundaries: []float64{0, 3},
			duration:   3,
			padding:    0.25,
			want:       []CutPlan{{Start: 0, End: 3, Index: 0}},
		},
		{
			name:       "short plans dropped and indices stay contiguous",
			boundaries: []float64{0, 0.1, 10, 20},
			duration:   20,
			padding:    0,
			want: []CutPlan{
				{Start: 0.1, End: 10, Index: 0},
				{Start: 10, End: 20, Index: 1},
			},
		},
		{
			name:       "padding clamped to the file",
			boundaries: []float64{0, 0.1, 5},
			duration:   5,
			padding:    0.25,
			want: []CutPlan{
				{Start: 0, End: 0.35, Index: 0},
				{Start: 0, End: 5, Index: 1},
			},
		},
		{
			name:       "nothing survives falls back to whole file",
			boundaries: []float64{0, 0.1},
			duration:   0.1,
			padding:    0.25,
			want:       []CutPlan{{Start: 0, End: 0.1, Index: 0}},
		},
		{
			name:       "no boundary pairs falls back to whole file",
			boundaries: []float64{0},
			duration:   0.0004,
			padding:    0.25,
			want:       []CutPlan{{Start: 0, End: 0.0004, Index: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCutPlans(tt.boundaries, tt.duration, tt.padding))
		})
	}
}

func TestBuildCutPlans_FromSnappedBoundaries(t *testing.T) {
	// 130s with no silence, 60s segments
	bounds := SnapBoundaries(130.0, nil, DefaultSnapOpts(60))
	plans := BuildCutPlans(bounds, 130.0, DefaultPaddingSec)

	assert.Len(t, plans, 3)
	for i, p := range plans {
		assert.Equal(t, i, p.Index)
		assert.Greater(t, p.Duration(), MinPlanSec)
	}
}
