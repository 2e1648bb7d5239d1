package temporal

import (
	"context"
	"testing"

	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func r(n int64) rational.Rat { return rational.FromInt(n) }

func chordAt(onset, dur int64, pitches ...int) []notes.Note {
	out := make([]notes.Note, len(pitches))
	for i, p := range pitches {
		out[i] = notes.Note{Onset: r(onset), Duration: r(dur), Pitch: p, Velocity: 80}
	}
	return out
}

func TestGridPoints(t *testing.T) {
	pts := gridPoints(r(-2), r(2), r(1), r(7))
	require.Len(t, pts, 3)
	assert.True(t, pts[0].Equal(r(2)))
	assert.True(t, pts[2].Equal(r(6)))

	assert.Nil(t, gridPoints(r(0), r(0), r(0), r(4)))
}

func TestSustainedCutsAndAlignment(t *testing.T) {
	ns := chordAt(0, 4, 60, 64, 67)
	grid := []rational.Rat{r(0), r(2)}

	assert.InDelta(t, 1.5, sustainedCuts(ns, grid), 1e-12)
	assert.InDelta(t, 1.5, onsetAlignment([]float64{0, 0, 0}, grid, 0.1), 1e-12)
	assert.Equal(t, 3.0, sustainedCuts(ns, nil))
}

func TestSimpleBarFraction(t *testing.T) {
	var ns []notes.Note
	ns = append(ns, chordAt(0, 4, 60, 64, 67)...)
	ns = append(ns, chordAt(4, 4, 61, 63, 66, 68, 70, 71)...)

	assert.InDelta(t, 0.5, simpleBarFraction(ns, r(0), r(4), r(0), r(8), 5), 1e-12)
	assert.InDelta(t, 0.0, simpleBarFraction(ns, r(0), r(8), r(0), r(8), 5), 1e-12)
}

func TestEstimateSingleChord(t *testing.T) {
	table := notes.NewTable(chordAt(0, 4, 60, 64, 67), notes.Metadata{})

	grid, err := NewBarGridEstimator().Estimate(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 2, grid.Feel)
	assert.True(t, grid.Duration.Equal(r(4)), grid.String())
	assert.True(t, grid.Offset.IsZero(), grid.String())
	assert.Equal(t, SourceEstimate, grid.Source)

	bars := grid.Bars(table.FirstOnset(), table.LastOffset())
	require.Len(t, bars, 1)
	assert.True(t, bars[0].End.Equal(r(4)))
}

func TestEstimateAlternatingTriads(t *testing.T) {
	var ns []notes.Note
	for bar := int64(0); bar < 8; bar++ {
		if bar%2 == 0 {
			ns = append(ns, chordAt(bar*4, 4, 60, 64, 67)...)
		} else {
			ns = append(ns, chordAt(bar*4, 4, 55, 59, 62)...)
		}
	}
	table := notes.NewTable(ns, notes.Metadata{})

	est := NewBarGridEstimator()
	grid, err := est.Estimate(context.Background(), table)
	require.NoError(t, err)
	assert.True(t, grid.Duration.Equal(r(4)), grid.String())
	assert.True(t, grid.Offset.IsZero(), grid.String())
	assert.Len(t, grid.Bars(table.FirstOnset(), table.LastOffset()), 8)

	again, err := est.Estimate(context.Background(), table.Clone())
	require.NoError(t, err)
	assert.Equal(t, grid, again)
}

// alternating builds n chords of length dur starting at start, switching
// between a and b
func alternating(n int, start, dur int64, a, b []int) []notes.Note {
	var ns []notes.Note
	for i := 0; i < n; i++ {
		pitches := a
		if i%2 == 1 {
			pitches = b
		}
		ns = append(ns, chordAt(start+int64(i)*dur, dur, pitches...)...)
	}
	return ns
}

func TestEstimateFromOnsets(t *testing.T) {
	cMajor := []int{60, 64, 67}
	gMajor := []int{55, 59, 62}
	gSeventh := []int{55, 59, 62, 65}

	tests := []struct {
		name     string
		notes    []notes.Note
		feel     int
		duration rational.Rat
		offset   rational.Rat
		bars     int
	}{
		{
			name:     "waltz",
			notes:    alternating(4, 0, 3, cMajor, gSeventh),
			feel:     3,
			duration: r(3),
			offset:   r(0),
			bars:     4,
		},
		{
			name:     "downbeat on beat one",
			notes:    alternating(4, 1, 4, cMajor, gMajor),
			feel:     2,
			duration: r(4),
			offset:   r(1),
			bars:     4,
		},
		{
			name:     "common time",
			notes:    alternating(4, 0, 4, cMajor, gMajor),
			feel:     2,
			duration: r(4),
			offset:   r(0),
			bars:     4,
		},
	}

	est := NewBarGridEstimator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := notes.NewTable(tt.notes, notes.Metadata{})
			grid, err := est.Estimate(context.Background(), table)
			require.NoError(t, err)

			assert.Equal(t, tt.feel, grid.Feel, grid.String())
			assert.True(t, grid.Duration.Equal(tt.duration), grid.String())
			assert.True(t, grid.Offset.Equal(tt.offset), grid.String())

			bars := grid.Bars(table.FirstOnset(), table.LastOffset())
			require.Len(t, bars, tt.bars)
			assert.True(t, bars[0].Start.Equal(table.FirstOnset()), grid.String())
		})
	}
}

func TestDetectFeel(t *testing.T) {
	est := NewBarGridEstimator()

	feel, err := est.detectFeel([]float64{0, 3, 6, 9})
	require.NoError(t, err)
	assert.Equal(t, 3, feel)

	feel, err = est.detectFeel([]float64{1, 5, 9, 13})
	require.NoError(t, err)
	assert.Equal(t, 2, feel)

	// a lone onset projects equally on every period
	feel, err = est.detectFeel([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, 2, feel)
}

func TestSearchOffsetBreaksTiesTowardNonNegative(t *testing.T) {
	ns := alternating(4, 1, 4, []int{60, 64, 67}, []int{55, 59, 62})
	onsets := make([]float64, len(ns))
	for i, n := range ns {
		onsets[i] = n.Onset.Float64()
	}

	// -1 and +1 put grid points on the same beats and score identically
	offset := NewBarGridEstimator().searchOffset(ns, onsets, 2, r(1), r(17))
	assert.True(t, offset.Equal(r(1)), offset.String())
}

func TestPreferOffset(t *testing.T) {
	half := rational.New(1, 2)
	tests := []struct {
		name string
		a, b rational.Rat
		want bool
	}{
		{"smaller magnitude", r(0), r(1), true},
		{"larger magnitude", r(-2), r(1), false},
		{"smaller negative magnitude", half.Neg(), r(1), true},
		{"positive over negative", half, half.Neg(), true},
		{"negative over positive", half.Neg(), half, false},
		{"equal", r(1), r(1), false},
		{"zero against itself", r(0), r(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preferOffset(tt.a, tt.b))
		})
	}
}

func TestSelectPeriodTernary(t *testing.T) {
	ns := alternating(4, 0, 3, []int{60, 64, 67}, []int{55, 59, 62, 65})
	est := NewBarGridEstimator()

	// two-chord bars span six pitch classes
	assert.True(t, est.selectPeriod(ns, 3, r(0), r(0), r(12)).Equal(r(3)))

	// nothing passes when every bar is crowded
	crowded := chordAt(0, 12, 60, 61, 62, 63, 64, 65)
	assert.True(t, est.selectPeriod(crowded, 3, r(0), r(0), r(12)).Equal(rational.New(3, 2)))
}

func TestEstimateSingleNote(t *testing.T) {
	table := notes.NewTable(chordAt(0, 1, 60), notes.Metadata{})
	grid, err := NewBarGridEstimator().Estimate(context.Background(), table)
	require.NoError(t, err)
	assert.True(t, grid.Duration.Equal(r(4)))
	assert.Len(t, grid.Bars(table.FirstOnset(), table.LastOffset()), 1)
}

func TestEstimateFromMetadata(t *testing.T) {
	meta := notes.Metadata{TimeSignatures: []notes.TimeSignature{{Numerator: 3, Denominator: 4}}}
	table := notes.NewTable(chordAt(0, 4, 60, 64, 67), meta)

	t.Run("auto uses the time signature", func(t *testing.T) {
		grid, err := NewBarGridEstimator().Estimate(context.Background(), table)
		require.NoError(t, err)
		assert.Equal(t, SourceMetadata, grid.Source)
		assert.True(t, grid.Duration.Equal(r(3)))
		assert.Len(t, grid.Bars(r(0), r(4)), 2)
	})

	t.Run("estimate ignores it", func(t *testing.T) {
		params := DefaultBarGridParams()
		params.Source = SourceEstimate
		grid, err := NewBarGridEstimatorWithParams(params).Estimate(context.Background(), table)
		require.NoError(t, err)
		assert.Equal(t, SourceEstimate, grid.Source)
		assert.True(t, grid.Duration.Equal(r(4)))
	})

	t.Run("compound meter is ternary", func(t *testing.T) {
		meta := notes.Metadata{TimeSignatures: []notes.TimeSignature{{Numerator: 6, Denominator: 8}}}
		grid, err := NewBarGridEstimator().Estimate(context.Background(), notes.NewTable(chordAt(0, 3, 60), meta))
		require.NoError(t, err)
		assert.Equal(t, 3, grid.Feel)
		assert.True(t, grid.Duration.Equal(r(3)))
	})
}

func TestBarsFollowMeterSegments(t *testing.T) {
	meta := notes.Metadata{TimeSignatures: []notes.TimeSignature{
		{At: r(0), Numerator: 4, Denominator: 4},
		{At: r(8), Numerator: 3, Denominator: 4},
	}}
	table := notes.NewTable(chordAt(0, 14, 60), meta)

	params := DefaultBarGridParams()
	params.AllowMeterChanges = true
	grid, err := NewBarGridEstimatorWithParams(params).Estimate(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, grid.Segments, 2)

	bars := grid.Bars(r(0), r(14))
	require.Len(t, bars, 4)
	assert.True(t, bars[2].Start.Equal(r(8)))
	assert.True(t, bars[3].Start.Equal(r(11)))
	assert.True(t, bars[3].End.Equal(r(14)))
}

func TestEstimateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBarGridEstimator().Estimate(ctx, notes.NewTable(chordAt(0, 4, 60), notes.Metadata{}))
	assert.Error(t, err)
}
