package theory

import "fmt"

// KeyRelation classifies how a key change moves
type KeyRelation int

const (
	RelationSame KeyRelation = iota
	RelationRelative
	RelationParallel
	RelationDominant
	RelationSubdominant
	RelationClose
	RelationChromaticMediant
	RelationDistant
)

var relationNames = [...]string{
	RelationSame:             "same",
	RelationRelative:         "relative",
	RelationParallel:         "parallel",
	RelationDominant:         "dominant",
	RelationSubdominant:      "subdominant",
	RelationClose:            "closely related",
	RelationChromaticMediant: "chromatic mediant",
	RelationDistant:          "distant",
}

func (r KeyRelation) String() string {
	if r >= 0 && int(r) < len(relationNames) {
		return relationNames[r]
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler
func (r KeyRelation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// family folds melodic minor into minor
func (m Mode) family() Mode {
	if m.IsMinor() {
		return Minor
	}
	return Major
}

// RelationTo classifies the move from t to o. Melodic minor counts as
// minor, and keys one signature apart that are not the dominant or
// subdominant are closely related.
func (t Tonality) RelationTo(o Tonality) KeyRelation {
	from, to := t.Mode.family(), o.Mode.family()
	step := mod(o.Tonic-t.Tonic, 12)

	switch {
	case step == 0 && from == to:
		return RelationSame
	case step == 0:
		return RelationParallel
	case from == Major && to == Minor && step == 9, from == Minor && to == Major && step == 3:
		return RelationRelative
	case from == to && step == 7:
		return RelationDominant
	case from == to && step == 5:
		return RelationSubdominant
	}

	a := Tonality{Tonic: t.Tonic, Mode: from}
	b := Tonality{Tonic: o.Tonic, Mode: to}
	if a.FifthsDistance(b) <= 1 {
		return RelationClose
	}
	if from == to && (step == 3 || step == 4 || step == 8 || step == 9) {
		return RelationChromaticMediant
	}
	return RelationDistant
}

// CloselyRelated reports keys at most one signature apart, parallel keys excluded
func (t Tonality) CloselyRelated(o Tonality) bool {
	switch t.RelationTo(o) {
	case RelationSame, RelationRelative, RelationDominant, RelationSubdominant, RelationClose:
		return true
	}
	return false
}

// triad figures native to each mode in degree order. Minor lists both the
// natural and the harmonic forms of v and VII.
var diatonicTriads = map[Mode][]string{
	Major:        {"I", "ii", "iii", "IV", "V", "vi", "viio"},
	Minor:        {"i", "iio", "III", "iv", "v", "V", "VI", "VII", "viio"},
	MelodicMinor: {"i", "ii", "III+", "IV", "V", "vio", "viio"},
}

// DiatonicChords lists the triads native to the mode of t
func (t Tonality) DiatonicChords() []Chord {
	figures := diatonicTriads[t.Mode]
	out := make([]Chord, 0, len(figures))
	for _, f := range figures {
		c, err := ChordOf(MustParseRoman(f), t)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Pivot is one chord read in both keys of a modulation
type Pivot struct {
	From RomanNumeral `json:"from"`
	To   RomanNumeral `json:"to"`
	Mask uint16       `json:"mask"`
}

func (p Pivot) String() string {
	return p.From.String() + " = " + p.To.String()
}

// PivotChords lists the triads diatonic to both keys in from's degree order
func PivotChords(from, to Tonality) []Pivot {
	targets := to.DiatonicChords()
	var out []Pivot
	for _, c := range from.DiatonicChords() {
		mask := c.Mask()
		for _, d := range targets {
			if d.Mask() == mask {
				out = append(out, Pivot{From: c.Roman, To: d.Roman, Mask: mask})
				break
			}
		}
	}
	return out
}

// PivotFor returns the pivot reading of a chord's triad, if from and to
// both hold it diatonically
func PivotFor(c Chord, to Tonality) (Pivot, bool) {
	if c.Roman.Special != "" || c.Roman.Secondary != nil {
		return Pivot{}, false
	}
	triad, err := ChordOf(c.Roman.WithoutExtensions().WithFigure(""), c.Key)
	if err != nil {
		return Pivot{}, false
	}
	mask := triad.Mask()
	for _, p := range PivotChords(c.Key, to) {
		if p.Mask == mask {
			return p, true
		}
	}
	return Pivot{}, false
}
