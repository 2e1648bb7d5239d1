package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// Chord is one analyzed bar: a Roman numeral in a tonality with the music
// of every part during it
type Chord struct {
	Roman     theory.RomanNumeral `json:"roman"`
	Tonality  theory.Tonality     `json:"tonality"`
	Extension string              `json:"extension"`
	Duration  rational.Rat        `json:"duration"`
	NoChord   bool                `json:"no_chord,omitempty"`
	Parts     map[string]Melody   `json:"parts"`
}

// Label is the Roman numeral or N.C.
func (c Chord) Label() string {
	if c.NoChord {
		return "N.C."
	}
	return c.Roman.String()
}

// PartNames lists the parts in stable order
func (c Chord) PartNames() []string {
	names := make([]string, 0, len(c.Parts))
	for name := range c.Parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Realize returns the theory chord, or false for N.C. and unrealizable numerals
func (c Chord) Realize() (theory.Chord, bool) {
	if c.NoChord {
		return theory.Chord{}, false
	}
	ch, err := theory.ChordOf(c.Roman, c.Tonality)
	return ch, err == nil
}

// ParsePitch writes pitch relative to the chord's own scale, so tones of a
// tonicized chord such as V7/V read in the tonicized key. N.C. bars and
// numerals the kernel cannot realize fall back to the tonality.
func (c Chord) ParsePitch(pitch int) theory.Symbol {
	if ch, ok := c.Realize(); ok {
		return ch.Parse(pitch)
	}
	return c.Tonality.ParseSymbol(pitch)
}

// Scale is the tonality ParsePitch reads in
func (c Chord) Scale() theory.Tonality {
	if ch, ok := c.Realize(); ok {
		return ch.Scale()
	}
	return c.Tonality
}

// ToPitch is the inverse of ParsePitch
func (c Chord) ToPitch(s theory.Symbol) int {
	if ch, ok := c.Realize(); ok {
		return ch.ToPitch(s)
	}
	return c.Tonality.ToPitch(s)
}

// Validate checks that every part fills the chord exactly
func (c Chord) Validate() error {
	for _, name := range c.PartNames() {
		if d := c.Parts[name].Duration(); !d.Equal(c.Duration) {
			return fmt.Errorf("part %s lasts %s in a chord of %s", name, d, c.Duration)
		}
	}
	return nil
}

func (c Chord) String() string {
	return fmt.Sprintf("%s in %s (%s)", c.Label(), c.Tonality.Name(), c.Duration)
}

// Score is an ordered sequence of chords. Start places the first chord
// relative to the downbeat of bar 1 and is negative for a pickup.
type Score struct {
	Chords      []Chord      `json:"chords"`
	BarDuration rational.Rat `json:"bar_duration"`
	Start       rational.Rat `json:"start"`
}

// Len is the number of chords
func (s Score) Len() int {
	return len(s.Chords)
}

// Empty reports a score without chords
func (s Score) Empty() bool {
	return len(s.Chords) == 0
}

// Duration sums the chord durations
func (s Score) Duration() rational.Rat {
	total := rational.Zero
	for _, c := range s.Chords {
		total = total.Add(c.Duration)
	}
	return total
}

// Starts returns the onset of every chord
func (s Score) Starts() []rational.Rat {
	out := make([]rational.Rat, len(s.Chords))
	pos := rational.Zero
	for i, c := range s.Chords {
		out[i] = pos
		pos = pos.Add(c.Duration)
	}
	return out
}

// Concat appends the chords of others. The empty score is the identity,
// the bar duration is the first non-zero one and the start is that of the
// first chord.
func (s Score) Concat(others ...Score) Score {
	out := Score{
		Chords:      append([]Chord(nil), s.Chords...),
		BarDuration: s.BarDuration,
		Start:       s.Start,
	}
	for _, o := range others {
		if len(out.Chords) == 0 && len(o.Chords) > 0 {
			out.Start = o.Start
		}
		out.Chords = append(out.Chords, o.Chords...)
		if out.BarDuration.IsZero() {
			out.BarDuration = o.BarDuration
		}
	}
	return out
}

// Transpose returns a copy moved by semitones. Tonalities move with the
// pitches, so Roman numerals stay; pitched symbols are re-read in the new
// chord scales.
func (s Score) Transpose(semitones int) Score {
	out := Score{
		Chords:      make([]Chord, len(s.Chords)),
		BarDuration: s.BarDuration,
		Start:       s.Start,
	}
	for i, c := range s.Chords {
		moved := c
		moved.Tonality = c.Tonality.Transpose(semitones)
		moved.Parts = make(map[string]Melody, len(c.Parts))
		for name, m := range c.Parts {
			tokens := make(Melody, len(m))
			for j, tok := range m {
				if p, ok := tok.(Pitched); ok {
					p.Symbol = moved.ParsePitch(c.ToPitch(p.Symbol) + semitones)
					tok = p
				}
				tokens[j] = tok
			}
			moved.Parts[name] = tokens
		}
		out.Chords[i] = moved
	}
	return out
}

// PartNames lists every part used by any chord
func (s Score) PartNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range s.Chords {
		for name := range c.Parts {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Validate checks every chord
func (s Score) Validate() error {
	for i, c := range s.Chords {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chord %d: %w", i, err)
		}
	}
	return nil
}

// Labels returns "roman@key" per chord
func (s Score) Labels() []string {
	out := make([]string, len(s.Chords))
	for i, c := range s.Chords {
		out[i] = c.Label() + "@" + c.Tonality.RomanTextKey()
	}
	return out
}

func (s Score) String() string {
	parts := make([]string, len(s.Chords))
	for i, c := range s.Chords {
		parts[i] = c.Label()
	}
	return strings.Join(parts, " ")
}

// partFamily splits "<family>__<n>"
func partFamily(name string) string {
	if i := strings.LastIndex(name, "__"); i >= 0 {
		return name[:i]
	}
	return name
}

// ToTable renders the score back into a note table with one track per part.
// Continuations lengthen the previous note of their part.
func (s Score) ToTable() *notes.Table {
	names := s.PartNames()
	meta := notes.Metadata{Tempo: notes.DefaultTempo}
	if ts, ok := MeterOf(s.BarDuration); ok {
		meta.TimeSignatures = []notes.TimeSignature{ts}
	}

	channel := 0
	trackOf := make(map[string]int, len(names))
	for i, name := range names {
		if channel%16 == notes.PercussionChannel {
			channel++
		}
		trackOf[name] = i
		meta.Tracks = append(meta.Tracks, notes.TrackInfo{
			Index:   i,
			Name:    name,
			Program: notes.FamilyProgram(partFamily(name)),
			Channel: channel % 16,
		})
		channel++
	}

	var out []notes.Note
	open := make(map[string]int) // part -> index in out of the last note
	starts := s.Starts()
	for ci, c := range s.Chords {
		for _, name := range c.PartNames() {
			pos := starts[ci]
			info := meta.Tracks[trackOf[name]]
			for _, tok := range c.Parts[name] {
				switch v := tok.(type) {
				case Pitched:
					out = append(out, notes.Note{
						Onset:    pos,
						Duration: v.Length,
						Pitch:    c.ToPitch(v.Symbol),
						Velocity: v.Dynamic.Velocity(),
						Track:    info.Index,
						Channel:  info.Channel,
					})
					open[name] = len(out) - 1
				case Continuation:
					if i, ok := open[name]; ok && out[i].Offset().Equal(pos) {
						out[i].Duration = out[i].Duration.Add(v.Length)
					}
				case Silence:
					delete(open, name)
				}
				pos = pos.Add(tok.Duration())
			}
		}
	}
	return notes.NewTable(out, meta)
}

// MeterOf writes a bar duration as a time signature with the smallest
// power-of-two denominator of at least 4
func MeterOf(d rational.Rat) (notes.TimeSignature, bool) {
	if d.Sign() <= 0 {
		return notes.TimeSignature{}, false
	}
	for den := int64(4); den <= 64; den *= 2 {
		n := d.MulInt(den).Div(rational.FromInt(4))
		if n.Den() == 1 {
			return notes.TimeSignature{Numerator: int(n.Num()), Denominator: int(den)}, true
		}
	}
	return notes.TimeSignature{}, false
}
