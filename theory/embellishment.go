package theory

import "fmt"

// Embellishment classifies a melodic tone against the chord it sounds under
type Embellishment int

const (
	ChordTone Embellishment = iota
	PassingTone
	NeighborTone
	Suspension
	Retardation
	Appoggiatura
	EscapeTone
	Anticipation
	PedalTone
	UnclassifiedTone
)

var embellishmentLabels = [...]string{"", "PT", "NT", "SUS", "RET", "APP", "ET", "ANT", "PED", "NCT"}

var embellishmentNames = [...]string{
	"chord tone", "passing tone", "neighbor tone", "suspension", "retardation",
	"appoggiatura", "escape tone", "anticipation", "pedal tone", "non-chord tone",
}

// Label is the short form, "" for chord tones
func (e Embellishment) Label() string {
	if e < ChordTone || e > UnclassifiedTone {
		return "?"
	}
	return embellishmentLabels[e]
}

func (e Embellishment) String() string {
	if e < ChordTone || e > UnclassifiedTone {
		return fmt.Sprintf("embellishment(%d)", int(e))
	}
	return embellishmentNames[e]
}

// ParseEmbellishment accepts a label or a long name
func ParseEmbellishment(s string) (Embellishment, error) {
	for e := ChordTone; e <= UnclassifiedTone; e++ {
		if s == e.Label() || s == e.String() {
			return e, nil
		}
	}
	return ChordTone, fmt.Errorf("unknown embellishment %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (e Embellishment) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *Embellishment) UnmarshalText(text []byte) error {
	parsed, err := ParseEmbellishment(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ToneContext is a tone with its neighbors in the same voice. Prev and Next
// are Silent when the voice rests on either side.
type ToneContext struct {
	Prev, Pitch, Next int
	ChordTone         bool // Pitch belongs to its own chord
	PrevChordTone     bool // Prev belongs to the chord it sounded under
	NextChordTone     bool
}

func isStep(d int) bool { return d != 0 && abs(d) <= 2 }

func isLeap(d int) bool { return abs(d) > 2 }

// ClassifyTone names a non-chord tone by how it is approached and left.
// Suspensions and retardations repeat or hold the previous chord tone and
// resolve by step; anticipations sound the next chord tone early.
func ClassifyTone(c ToneContext) Embellishment {
	if c.ChordTone {
		return ChordTone
	}
	hasPrev, hasNext := c.Prev != Silent, c.Next != Silent
	in, out := c.Pitch-c.Prev, c.Next-c.Pitch

	switch {
	case hasPrev && hasNext && in == 0 && out == 0:
		return PedalTone
	case hasNext && out == 0 && c.NextChordTone:
		return Anticipation
	case !hasPrev || !hasNext || !c.NextChordTone:
		return UnclassifiedTone
	case in == 0 && c.PrevChordTone && isStep(out):
		if out < 0 {
			return Suspension
		}
		return Retardation
	case isStep(in) && isStep(out) && (in > 0) == (out > 0) && c.PrevChordTone:
		return PassingTone
	case isStep(in) && isStep(out) && c.Prev == c.Next && c.PrevChordTone:
		return NeighborTone
	case isLeap(in) && isStep(out):
		return Appoggiatura
	case isStep(in) && isLeap(out) && c.PrevChordTone:
		return EscapeTone
	}
	return UnclassifiedTone
}
