package temporal

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-harmony/algorithms/common"
	"github.com/RyanBlaney/sonido-harmony/algorithms/spectral"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
)

// Bar sources
const (
	SourceAuto     = "auto"     // time signature when present, estimate otherwise
	SourceMetadata = "metadata" // time signature required, estimate as fallback
	SourceEstimate = "estimate" // ignore time signatures
)

// MeterSegment is a run of bars with one duration starting at At
type MeterSegment struct {
	At       rational.Rat `json:"at"`
	Duration rational.Rat `json:"duration"`
}

// BarGrid is the inferred metric grid. Offset lies in [0, Duration).
type BarGrid struct {
	Duration rational.Rat   `json:"duration"`
	Offset   rational.Rat   `json:"offset"`
	Feel     int            `json:"feel"`
	Source   string         `json:"source"`
	Segments []MeterSegment `json:"segments,omitempty"`
}

// Bars partitions [first, last) starting at the latest downbeat at or before
// first. With several meter segments each bar takes the duration of the
// segment it starts in.
func (g BarGrid) Bars(first, last rational.Rat) []notes.Bar {
	if len(g.Segments) < 2 {
		return barsFrom(g.Offset, g.Duration, first, last)
	}

	seg := func(t rational.Rat) rational.Rat {
		d := g.Segments[0].Duration
		for _, s := range g.Segments {
			if s.At.LessEq(t) {
				d = s.Duration
			}
		}
		return d
	}
	start := barsFrom(g.Segments[0].At, g.Segments[0].Duration, first, last)[0].Start
	var bars []notes.Bar
	for len(bars) == 0 || start.Less(last) {
		d := seg(start)
		bars = append(bars, notes.Bar{Index: len(bars), Start: start, End: start.Add(d)})
		start = start.Add(d)
	}
	return bars
}

func (g BarGrid) String() string {
	return fmt.Sprintf("BarGrid{duration=%s offset=%s feel=%d source=%s}", g.Duration, g.Offset, g.Feel, g.Source)
}

// BarGridParams holds the estimator's tunables
type BarGridParams struct {
	Source            string                         `json:"source"`
	BinaryPeriods     []float64                      `json:"binary_periods"`
	TernaryPeriods    []float64                      `json:"ternary_periods"`
	OffsetStep        rational.Rat                   `json:"offset_step"`
	OnsetTolerance    float64                        `json:"onset_tolerance"`
	OnsetRankExponent float64                        `json:"onset_rank_exponent"`
	BinaryDurations   []rational.Rat                 `json:"binary_durations"`
	TernaryDurations  []rational.Rat                 `json:"ternary_durations"`
	MaxPitchClasses   int                            `json:"max_pitch_classes"`
	MinSimpleFraction float64                        `json:"min_simple_fraction"`
	AllowMeterChanges bool                           `json:"allow_meter_changes"`
	Projector         spectral.PeriodProjectorParams `json:"projector"`
}

// DefaultBarGridParams returns the estimator defaults
func DefaultBarGridParams() BarGridParams {
	return BarGridParams{
		Source:            SourceAuto,
		BinaryPeriods:     []float64{2, 4},
		TernaryPeriods:    []float64{1.5, 3, 4.5},
		OffsetStep:        rational.New(1, 8),
		OnsetTolerance:    0.1,
		OnsetRankExponent: 0.2,
		BinaryDurations:   []rational.Rat{rational.FromInt(2), rational.FromInt(4)},
		TernaryDurations:  []rational.Rat{rational.New(3, 2), rational.FromInt(3), rational.New(9, 2), rational.FromInt(6)},
		MaxPitchClasses:   5,
		MinSimpleFraction: 0.8,
		Projector:         spectral.DefaultPeriodProjectorParams(),
	}
}

// BarGridEstimator infers bar duration and downbeat offset from a note table
type BarGridEstimator struct {
	params    BarGridParams
	projector *spectral.PeriodProjector
}

// NewBarGridEstimator creates an estimator with default parameters
func NewBarGridEstimator() *BarGridEstimator {
	return NewBarGridEstimatorWithParams(DefaultBarGridParams())
}

// NewBarGridEstimatorWithParams creates an estimator with custom parameters
func NewBarGridEstimatorWithParams(params BarGridParams) *BarGridEstimator {
	if params.OffsetStep.Sign() <= 0 {
		params.OffsetStep = rational.New(1, 8)
	}
	return &BarGridEstimator{
		params:    params,
		projector: spectral.NewPeriodProjectorWithParams(params.Projector),
	}
}

// Estimate returns the bar grid of the table. It is deterministic for a
// fixed table.
func (e *BarGridEstimator) Estimate(ctx context.Context, table *notes.Table) (BarGrid, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "bar_grid",
		"function":  "Estimate",
	})

	if err := ctx.Err(); err != nil {
		return BarGrid{}, err
	}

	if e.params.Source != SourceEstimate {
		if grid, ok := e.fromMetadata(table); ok {
			logger.Debug("Bar grid from time signature", logging.Fields{"grid": grid.String()})
			return grid, nil
		}
		if e.params.Source == SourceMetadata {
			logger.Warn("No time signature in source, estimating bar grid")
		}
	}

	ns := table.Pitched()
	if len(ns) == 0 {
		ns = table.Notes
	}
	if len(ns) == 0 {
		return BarGrid{Duration: rational.FromInt(4), Feel: 2, Source: SourceEstimate}, nil
	}
	first := table.FirstOnset()
	last := table.LastOffset()

	onsets := make([]float64, len(ns))
	for i, n := range ns {
		onsets[i] = n.Onset.Float64()
	}

	feel, err := e.detectFeel(onsets)
	if err != nil {
		return BarGrid{}, err
	}
	offset := e.searchOffset(ns, onsets, feel, first, last)
	duration := e.selectPeriod(ns, feel, offset, first, last)

	grid := BarGrid{
		Duration: duration,
		Offset:   offset.Mod(duration),
		Feel:     feel,
		Source:   SourceEstimate,
	}
	logger.Debug("Bar grid estimated", logging.Fields{
		"feel":     feel,
		"offset":   offset.String(),
		"duration": duration.String(),
		"notes":    len(ns),
	})
	return grid, nil
}

func (e *BarGridEstimator) fromMetadata(table *notes.Table) (BarGrid, bool) {
	ts, ok := table.Meta.Meter()
	if !ok || ts.Numerator <= 0 || ts.Denominator <= 0 {
		return BarGrid{}, false
	}
	d := ts.BarDuration()
	feel := 2
	if ts.Denominator >= 8 && ts.Numerator%3 == 0 {
		feel = 3
	}
	grid := BarGrid{Duration: d, Offset: ts.At.Mod(d), Feel: feel, Source: SourceMetadata}
	if e.params.AllowMeterChanges && table.Meta.DistinctMeters() > 1 {
		for _, t := range table.Meta.TimeSignatures {
			if n := len(grid.Segments); n > 0 && grid.Segments[n-1].Duration.Equal(t.BarDuration()) {
				continue
			}
			grid.Segments = append(grid.Segments, MeterSegment{At: t.At, Duration: t.BarDuration()})
		}
	}
	return grid, true
}

// detectFeel compares mean spectral magnitude at binary and ternary periods.
// Ties go to binary.
func (e *BarGridEstimator) detectFeel(onsets []float64) (int, error) {
	periods := append(append([]float64(nil), e.params.BinaryPeriods...), e.params.TernaryPeriods...)
	mags, err := e.projector.Project(onsets, periods)
	if err != nil {
		return 0, fmt.Errorf("feel detection failed: %w", err)
	}
	nb := len(e.params.BinaryPeriods)
	binary := common.Mean(mags[:nb])
	ternary := common.Mean(mags[nb:])
	if ternary > binary {
		return 3, nil
	}
	return 2, nil
}

type offsetScore struct {
	offset rational.Rat
	onsets float64
	cuts   float64
}

// searchOffset sweeps offsets in [-feel, feel] and ranks them by onset
// alignment (higher better) and sustained cuts (lower better)
func (e *BarGridEstimator) searchOffset(ns []notes.Note, onsets []float64, feel int, first, last rational.Rat) rational.Rat {
	period := rational.FromInt(int64(feel))
	var scores []offsetScore
	for o := period.Neg(); o.LessEq(period); o = o.Add(e.params.OffsetStep) {
		grid := gridPoints(o, period, first, last)
		scores = append(scores, offsetScore{
			offset: o,
			onsets: onsetAlignment(onsets, grid, e.params.OnsetTolerance),
			cuts:   sustainedCuts(ns, grid),
		})
	}

	onsetRanks := common.CompetitionRanks(scores, func(a, b offsetScore) bool { return a.onsets > b.onsets })
	cutRanks := common.CompetitionRanks(scores, func(a, b offsetScore) bool { return a.cuts < b.cuts })

	best := -1
	bestScore := 0.0
	for i, s := range scores {
		combined := float64(cutRanks[i]) * math.Pow(float64(onsetRanks[i]), e.params.OnsetRankExponent)
		if best < 0 || combined < bestScore || (combined == bestScore && preferOffset(s.offset, scores[best].offset)) {
			best, bestScore = i, combined
		}
	}
	return scores[best].offset
}

// preferOffset breaks ties toward the smallest magnitude, then non-negative
func preferOffset(a, b rational.Rat) bool {
	if c := a.Abs().Cmp(b.Abs()); c != 0 {
		return c < 0
	}
	return a.Sign() >= 0 && b.Sign() < 0
}

// selectPeriod picks the largest candidate duration whose bars are simple
// enough, otherwise the smallest candidate
func (e *BarGridEstimator) selectPeriod(ns []notes.Note, feel int, offset, first, last rational.Rat) rational.Rat {
	candidates := e.params.BinaryDurations
	if feel == 3 {
		candidates = e.params.TernaryDurations
	}
	if len(candidates) == 0 {
		return rational.FromInt(int64(feel))
	}
	smallest := candidates[0]
	var chosen *rational.Rat
	for i, d := range candidates {
		smallest = rational.Min(smallest, d)
		score := simpleBarFraction(ns, offset, d, first, last, e.params.MaxPitchClasses)
		if score > e.params.MinSimpleFraction && (chosen == nil || chosen.Less(d)) {
			chosen = &candidates[i]
		}
	}
	if chosen == nil {
		return smallest
	}
	return *chosen
}
