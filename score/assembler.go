package score

import (
	"context"
	"fmt"
	"sort"

	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
)

// Part is one monophonic stream of the input: a (track, voice) pair
type Part struct {
	Name  string       `json:"name"`
	Track int          `json:"track"`
	Voice int          `json:"voice"`
	Notes []notes.Note `json:"-"`
}

// Parts groups the non-percussion notes of a voiced table by (track, voice)
// and names them "<family>__<n>", numbering each family in (track, voice) order
func Parts(table *notes.Table) []Part {
	type key struct{ track, voice int }
	groups := make(map[key][]notes.Note)
	var keys []key
	for _, n := range table.Notes {
		if n.Percussion {
			continue
		}
		k := key{n.Track, n.Voice}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], n)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].track != keys[j].track {
			return keys[i].track < keys[j].track
		}
		return keys[i].voice < keys[j].voice
	})

	counts := make(map[string]int)
	parts := make([]Part, 0, len(keys))
	for _, k := range keys {
		program := 0
		if info, ok := table.Meta.Track(k.track); ok {
			program = info.Program
		}
		family := notes.FamilyName(program)
		ns := groups[k]
		sort.SliceStable(ns, func(i, j int) bool { return notes.Less(ns[i], ns[j]) })
		parts = append(parts, Part{
			Name:  notes.PartName(family, counts[family]),
			Track: k.track,
			Voice: k.voice,
			Notes: ns,
		})
		counts[family]++
	}
	return parts
}

// segment is a clipped note of a part
type segment struct {
	start, end rational.Rat
	note       notes.Note
}

// segments clips each note at the next onset of its part and drops notes
// that start together with a later one
func segments(ns []notes.Note) []segment {
	out := make([]segment, 0, len(ns))
	for i, n := range ns {
		end := n.Offset()
		if i+1 < len(ns) {
			next := ns[i+1].Onset
			if !n.Onset.Less(next) {
				continue
			}
			end = rational.Min(end, next)
		}
		out = append(out, segment{start: n.Onset, end: end, note: n})
	}
	return out
}

// Assembler builds bar-aligned chords from the resolved analysis
type Assembler struct {
	logger logging.Logger
}

// NewAssembler creates an assembler
func NewAssembler() *Assembler {
	return &Assembler{
		logger: logging.WithFields(logging.Fields{
			"component": "score_assembler",
		}),
	}
}

// Assemble emits one chord per bar. chords must align with bars; table must
// carry voice labels.
func (a *Assembler) Assemble(ctx context.Context, table *notes.Table, bars []notes.Bar, chords []tonal.ChordCandidate) (*Score, error) {
	if len(bars) != len(chords) {
		return nil, fmt.Errorf("%d bars but %d chords", len(bars), len(chords))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parts := Parts(table)
	segs := make([][]segment, len(parts))
	for i, p := range parts {
		segs[i] = segments(p.Notes)
	}

	sc := &Score{Chords: make([]Chord, len(bars))}
	if len(bars) > 0 {
		sc.BarDuration = bars[0].Duration()
	}
	for bi, bar := range bars {
		cand := chords[bi]
		c := Chord{
			Roman:     cand.Roman,
			Tonality:  cand.Tonality,
			Extension: cand.Extension,
			Duration:  bar.Duration(),
			NoChord:   cand.NoChord,
			Parts:     make(map[string]Melody, len(parts)),
		}
		for pi, p := range parts {
			c.Parts[p.Name] = a.melody(segs[pi], bar, c)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("bar %d: %w", bi, err)
		}
		sc.Chords[bi] = c
	}

	a.logger.WithContext(ctx).Debug("Score assembled", logging.Fields{
		"function": "Assemble",
		"chords":   len(sc.Chords),
		"parts":    len(parts),
	})
	return sc, nil
}

func (a *Assembler) melody(segs []segment, bar notes.Bar, c Chord) Melody {
	var m Melody
	cursor := bar.Start
	for _, s := range segs {
		if !s.start.Less(bar.End) || !bar.Start.Less(s.end) {
			continue
		}
		start := rational.Max(s.start, bar.Start)
		end := rational.Min(s.end, bar.End)
		if cursor.Less(start) {
			m = append(m, Silence{Length: start.Sub(cursor)})
		}
		if s.start.Less(bar.Start) {
			m = append(m, Continuation{Length: end.Sub(start)})
		} else {
			m = append(m, Pitched{
				Symbol:  c.ParsePitch(s.note.Pitch),
				Dynamic: DynamicOf(s.note.Velocity),
				Length:  end.Sub(start),
			})
		}
		cursor = end
	}
	if cursor.Less(bar.End) {
		m = append(m, Silence{Length: bar.End.Sub(cursor)})
	}
	return m
}
