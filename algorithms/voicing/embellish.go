package voicing

import (
	"context"
	"fmt"
	"sort"

	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// EmbellishParams configures non-chord tone labeling
type EmbellishParams struct {
	// MaxGap is the longest rest, in beats, that still joins two notes of a
	// voice into one line
	MaxGap rational.Rat `json:"max_gap"`
}

// DefaultEmbellishParams joins only notes that touch
func DefaultEmbellishParams() EmbellishParams {
	return EmbellishParams{MaxGap: rational.Zero}
}

// NonChordTone is a labeled note outside the chord of its bar
type NonChordTone struct {
	Bar   int                  `json:"bar"`
	Onset rational.Rat         `json:"onset"`
	Pitch int                  `json:"pitch"`
	Voice VoiceID              `json:"voice"`
	Kind  theory.Embellishment `json:"kind"`
}

func (n NonChordTone) String() string {
	return fmt.Sprintf("bar %d at %s: %s %s in voice %s", n.Bar, n.Onset, n.Kind, theory.PitchName(n.Pitch), n.Voice)
}

// EmbellishmentLabeler finds passing tones, neighbors, suspensions and the
// other non-chord tones of every separated voice
type EmbellishmentLabeler struct {
	params EmbellishParams
	logger logging.Logger
}

// NewEmbellishmentLabeler creates a labeler with default parameters
func NewEmbellishmentLabeler() *EmbellishmentLabeler {
	return NewEmbellishmentLabelerWithParams(DefaultEmbellishParams())
}

// NewEmbellishmentLabelerWithParams creates a labeler with custom parameters
func NewEmbellishmentLabelerWithParams(params EmbellishParams) *EmbellishmentLabeler {
	if params.MaxGap.Sign() < 0 {
		params.MaxGap = rational.Zero
	}
	return &EmbellishmentLabeler{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "embellishment_labeler",
		}),
	}
}

// Label classifies every pitched note against the chord of the bar its
// onset falls in. masks holds one pitch-class set per bar; bars with an
// empty set are skipped. Results are ordered by voice, then onset.
func (l *EmbellishmentLabeler) Label(ctx context.Context, table *notes.Table, bars []notes.Bar, masks []uint16) ([]NonChordTone, error) {
	logger := l.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Label",
	})

	lines := make(map[VoiceID][]notes.Note)
	for _, n := range table.Pitched() {
		id := VoiceID{Track: n.Track, Voice: n.Voice}
		lines[id] = append(lines[id], n)
	}

	var out []NonChordTone
	for _, id := range Voices(table) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := lines[id]
		sort.SliceStable(line, func(a, b int) bool { return notes.Less(line[a], line[b]) })

		for i, n := range line {
			bar := barOf(bars, n.Onset)
			if bar < 0 || bar >= len(masks) || masks[bar] == 0 {
				continue
			}
			tc := theory.ToneContext{
				Prev:      theory.Silent,
				Pitch:     n.Pitch,
				Next:      theory.Silent,
				ChordTone: inMask(masks[bar], n.Pitch),
			}
			if tc.ChordTone {
				continue
			}
			if i > 0 && l.joined(line[i-1], n) {
				p := line[i-1]
				tc.Prev = p.Pitch
				tc.PrevChordTone = chordToneAt(bars, masks, p)
			}
			if i+1 < len(line) && l.joined(n, line[i+1]) {
				q := line[i+1]
				tc.Next = q.Pitch
				tc.NextChordTone = chordToneAt(bars, masks, q)
			}

			out = append(out, NonChordTone{
				Bar:   bar,
				Onset: n.Onset,
				Pitch: n.Pitch,
				Voice: id,
				Kind:  theory.ClassifyTone(tc),
			})
		}
	}

	counts := make(map[string]int)
	for _, n := range out {
		counts[n.Kind.Label()]++
	}
	logger.Debug("Non-chord tones labeled", logging.Fields{
		"bars":   len(bars),
		"total":  len(out),
		"counts": counts,
	})
	return out, nil
}

// joined reports whether b follows a within the allowed gap
func (l *EmbellishmentLabeler) joined(a, b notes.Note) bool {
	gap := b.Onset.Sub(a.Offset())
	return gap.Sign() >= 0 && gap.LessEq(l.params.MaxGap)
}

func chordToneAt(bars []notes.Bar, masks []uint16, n notes.Note) bool {
	bar := barOf(bars, n.Onset)
	return bar >= 0 && bar < len(masks) && inMask(masks[bar], n.Pitch)
}

func inMask(mask uint16, pitch int) bool {
	return mask&(1<<uint(theory.PitchClass(pitch))) != 0
}

// barOf returns the index of the bar containing t, -1 outside the bars
func barOf(bars []notes.Bar, t rational.Rat) int {
	i := sort.Search(len(bars), func(i int) bool { return t.Less(bars[i].End) })
	if i < len(bars) && bars[i].Contains(t) {
		return i
	}
	return -1
}
