package voicing

import (
	"context"
	"fmt"
	"sort"

	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/theory"
	"gonum.org/v1/gonum/stat"
)

// LeadingParams configures the part-writing check
type LeadingParams struct {
	MaxSpacing    int `json:"max_spacing"`    // semitones between adjacent upper voices, 0 disables
	LeapThreshold int `json:"leap_threshold"` // soprano move that makes a direct fifth or octave
}

// DefaultLeadingParams follows the kernel's common-practice rules
func DefaultLeadingParams() LeadingParams {
	r := theory.DefaultLeadingRules()
	return LeadingParams{MaxSpacing: r.MaxSpacing, LeapThreshold: r.LeapThreshold}
}

// VoiceID names a separated voice
type VoiceID struct {
	Track int `json:"track"`
	Voice int `json:"voice"`
}

func (v VoiceID) String() string {
	return fmt.Sprintf("%d.%d", v.Track, v.Voice)
}

// LeadingIssue is a part-writing error on the way into Bar
type LeadingIssue struct {
	Bar   int                 `json:"bar"`
	Error theory.LeadingError `json:"error"`
	Lower VoiceID             `json:"lower"`
	Upper VoiceID             `json:"upper"`
}

func (i LeadingIssue) String() string {
	return fmt.Sprintf("bar %d: %s between voices %s and %s", i.Bar, i.Error, i.Lower, i.Upper)
}

// LeadingChecker compares the voicings at consecutive downbeats
type LeadingChecker struct {
	params LeadingParams
	logger logging.Logger
}

// NewLeadingChecker creates a checker with default parameters
func NewLeadingChecker() *LeadingChecker {
	return NewLeadingCheckerWithParams(DefaultLeadingParams())
}

// NewLeadingCheckerWithParams creates a checker with custom parameters
func NewLeadingCheckerWithParams(params LeadingParams) *LeadingChecker {
	if params.MaxSpacing < 0 {
		params.MaxSpacing = 0
	}
	return &LeadingChecker{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "leading_checker",
		}),
	}
}

// Voices orders the voice labels of a table's pitched notes by mean pitch,
// bass first
func Voices(table *notes.Table) []VoiceID {
	pitches := make(map[VoiceID][]float64)
	for _, n := range table.Pitched() {
		id := VoiceID{Track: n.Track, Voice: n.Voice}
		pitches[id] = append(pitches[id], float64(n.Pitch))
	}
	ids := make([]VoiceID, 0, len(pitches))
	means := make(map[VoiceID]float64, len(pitches))
	for id, ps := range pitches {
		ids = append(ids, id)
		means[id] = stat.Mean(ps, nil)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if means[a] != means[b] {
			return means[a] < means[b]
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		return a.Voice < b.Voice
	})
	return ids
}

// Voicings samples each voice at every bar's downbeat, theory.Silent where
// the voice rests. Rows follow bars, columns follow voices.
func Voicings(table *notes.Table, voices []VoiceID, bars []notes.Bar) [][]int {
	column := make(map[VoiceID]int, len(voices))
	for i, id := range voices {
		column[id] = i
	}
	pitched := table.Pitched()

	out := make([][]int, len(bars))
	for b, bar := range bars {
		row := make([]int, len(voices))
		for i := range row {
			row[i] = theory.Silent
		}
		for _, n := range pitched {
			c, ok := column[VoiceID{Track: n.Track, Voice: n.Voice}]
			if ok && n.Sounds(bar.Start) && n.Pitch > row[c] {
				row[c] = n.Pitch
			}
		}
		out[b] = row
	}
	return out
}

// Check reports the part-writing errors between every pair of consecutive
// bars. The table must carry voice labels from Separate.
func (c *LeadingChecker) Check(ctx context.Context, table *notes.Table, bars []notes.Bar) ([]LeadingIssue, error) {
	logger := c.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Check",
	})

	voices := Voices(table)
	if len(voices) < 2 || len(bars) < 2 {
		return nil, nil
	}
	voicings := Voicings(table, voices, bars)
	rules := theory.LeadingRules{MaxSpacing: c.params.MaxSpacing, LeapThreshold: c.params.LeapThreshold}

	var out []LeadingIssue
	for b := 1; b < len(bars); b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, issue := range theory.CheckVoiceLeading(voicings[b-1], voicings[b], rules) {
			out = append(out, LeadingIssue{
				Bar:   b,
				Error: issue.Error,
				Lower: voices[issue.Lower],
				Upper: voices[issue.Upper],
			})
		}
	}

	logger.Debug("Voice leading checked", logging.Fields{
		"voices": len(voices),
		"bars":   len(bars),
		"issues": len(out),
	})
	return out, nil
}
