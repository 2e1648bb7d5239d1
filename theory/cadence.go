package theory

import "fmt"

// Cadence names a phrase ending
type Cadence int

const (
	CadenceNone Cadence = iota
	CadencePerfectAuthentic
	CadenceImperfectAuthentic
	CadenceHalf
	CadencePhrygianHalf
	CadenceDeceptive
	CadencePlagal
)

var cadenceLabels = map[Cadence]string{
	CadenceNone:               "",
	CadencePerfectAuthentic:   "PAC",
	CadenceImperfectAuthentic: "IAC",
	CadenceHalf:               "HC",
	CadencePhrygianHalf:       "PHC",
	CadenceDeceptive:          "DC",
	CadencePlagal:             "PC",
}

// Label is the usual abbreviation, "" for none
func (c Cadence) Label() string {
	return cadenceLabels[c]
}

func (c Cadence) String() string {
	if c == CadenceNone {
		return "none"
	}
	if l, ok := cadenceLabels[c]; ok {
		return l
	}
	return fmt.Sprintf("cadence(%d)", int(c))
}

// ParseCadence reads a label; the empty string and "none" are CadenceNone
func ParseCadence(s string) (Cadence, error) {
	if s == "" || s == "none" {
		return CadenceNone, nil
	}
	for c, l := range cadenceLabels {
		if l == s {
			return c, nil
		}
	}
	return CadenceNone, fmt.Errorf("unknown cadence %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (c Cadence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Cadence) UnmarshalText(text []byte) error {
	parsed, err := ParseCadence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Authentic reports a dominant to tonic ending
func (c Cadence) Authentic() bool {
	return c == CadencePerfectAuthentic || c == CadenceImperfectAuthentic
}

// Arrival describes the two chords that close a phrase and the soprano
// pitch class over the second, NoSoprano when nothing sounds
type Arrival struct {
	Prev    Chord
	Next    Chord
	Soprano int
}

// NoSoprano marks an arrival without a known top voice
const NoSoprano = -1

// ClassifyCadence names the cadence the arrival makes. Both chords must be
// read in the same key and the arrival must not be tonicized; anything else
// is CadenceNone. An applied chord can only lead into a half cadence. A
// perfect authentic cadence needs V to I with both in root position and the
// tonic in the soprano.
func ClassifyCadence(a Arrival) Cadence {
	prev, next := a.Prev.Roman, a.Next.Roman
	if !a.Prev.Key.SameKey(a.Next.Key) || next.Secondary != nil {
		return CadenceNone
	}
	key := a.Next.Key
	applied := prev.Secondary != nil

	switch {
	case applied:
		if isHalfArrival(next) {
			return CadenceHalf
		}
	case isTonic(next) && isDominant(prev):
		if prev.Degree == 5 && prev.Inversion() == 0 && next.Inversion() == 0 &&
			a.Soprano == mod(key.Tonic, 12) {
			return CadencePerfectAuthentic
		}
		return CadenceImperfectAuthentic
	case next.Special == "" && next.Degree == 6 && next.Accidental <= 0 && isDominant(prev) && prev.Degree == 5:
		return CadenceDeceptive
	case isTonic(next) && prev.Special == "" && prev.Degree == 4 && prev.Accidental == 0 &&
		prev.Inversion() == 0 && next.Inversion() == 0:
		return CadencePlagal
	case isHalfArrival(next):
		if key.Mode.IsMinor() && prev.Special == "" && prev.Degree == 4 && !prev.Upper && prev.Inversion() == 1 {
			return CadencePhrygianHalf
		}
		return CadenceHalf
	}
	return CadenceNone
}

// isHalfArrival accepts a root-position V triad
func isHalfArrival(r RomanNumeral) bool {
	return r.Special == "" && r.Degree == 5 && r.Upper && r.Accidental == 0 &&
		r.Inversion() == 0 && !r.IsSeventh()
}

func isTonic(r RomanNumeral) bool {
	return r.Special == "" && r.Degree == 1 && r.Accidental == 0 && r.Marker == MarkerNone
}

func isLeadingTone(r RomanNumeral) bool {
	return r.Special == "" && r.Degree == 7 && r.Accidental == 0 &&
		(r.Marker == MarkerDiminished || r.Marker == MarkerHalfDiminished)
}

// isDominant accepts V in any inversion and the leading-tone chords
func isDominant(r RomanNumeral) bool {
	if r.Special != "" || r.Accidental != 0 {
		return false
	}
	return (r.Degree == 5 && r.Upper) || isLeadingTone(r)
}
