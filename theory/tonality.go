package theory

import (
	"fmt"
	"strings"
)

// NumKeys is the size of the key state space: 12 tonics x 3 modes
const NumKeys = 36

// DefaultOctave is the register a tonality is realized in when none is given
const DefaultOctave = 4

// Tonality is a tonic pitch class, a mode and a register.
// Two tonalities name the same key when tonic and mode agree.
type Tonality struct {
	Tonic  int  `json:"tonic"`
	Mode   Mode `json:"mode"`
	Octave int  `json:"octave"`
}

// tonic spellings indexed by pitch class: letter index and alteration
var (
	majorTonicSpelling = [12][2]int{{0, 0}, {1, -1}, {1, 0}, {2, -1}, {2, 0}, {3, 0}, {3, 1}, {4, 0}, {5, -1}, {5, 0}, {6, -1}, {6, 0}}
	minorTonicSpelling = [12][2]int{{0, 0}, {0, 1}, {1, 0}, {2, -1}, {2, 0}, {3, 0}, {3, 1}, {4, 0}, {4, 1}, {5, 0}, {6, -1}, {6, 0}}

	// key signatures (positive sharps, negative flats) of the spelled tonics above
	majorFifths = [12]int{0, -5, 2, -3, 4, -1, 6, 1, -4, 3, -2, 5}
	minorFifths = [12]int{-3, 4, -1, -6, 1, -4, 3, -2, 5, 0, -5, 2}
)

// NewTonality builds a tonality in the default octave
func NewTonality(tonic int, mode Mode) Tonality {
	return Tonality{Tonic: mod(tonic, 12), Mode: mode, Octave: DefaultOctave}
}

// TonalityFromIndex maps a key state index (mode*12 + tonic) to a tonality
func TonalityFromIndex(index int) Tonality {
	index = mod(index, NumKeys)
	return NewTonality(index%12, Mode(index/12))
}

// Index is the key state index mode*12 + tonic
func (t Tonality) Index() int {
	return int(t.Mode)*12 + mod(t.Tonic, 12)
}

// SameKey compares tonic and mode, ignoring register
func (t Tonality) SameKey(o Tonality) bool {
	return mod(t.Tonic, 12) == mod(o.Tonic, 12) && t.Mode == o.Mode
}

// ScalePitchClasses returns the pitch classes of the seven degrees
func (t Tonality) ScalePitchClasses() [7]int {
	var out [7]int
	for i, iv := range t.Mode.Intervals() {
		out[i] = mod(t.Tonic+iv, 12)
	}
	return out
}

// Contains reports scale membership of a pitch class
func (t Tonality) Contains(pc int) bool {
	pc = mod(pc, 12)
	for _, s := range t.ScalePitchClasses() {
		if s == pc {
			return true
		}
	}
	return false
}

// MembershipVector is the 12-dim 0/1 scale indicator
func (t Tonality) MembershipVector() []float64 {
	v := make([]float64, 12)
	for _, pc := range t.ScalePitchClasses() {
		v[pc] = 1
	}
	return v
}

// DegreePitchClass returns the pitch class of scale degree 1..7
func (t Tonality) DegreePitchClass(degree int) int {
	return t.ScalePitchClasses()[mod(degree-1, 7)]
}

// Transpose moves the tonic by semitones, carrying the register
func (t Tonality) Transpose(semitones int) Tonality {
	abs := 12*(t.Octave+1) + t.Tonic + semitones
	return Tonality{Tonic: mod(abs, 12), Mode: t.Mode, Octave: floorDiv(abs, 12) - 1}
}

// tonicSpelling returns letter index and alteration of the tonic
func (t Tonality) tonicSpelling() (int, int) {
	if t.Mode.IsMinor() {
		s := minorTonicSpelling[mod(t.Tonic, 12)]
		return s[0], s[1]
	}
	s := majorTonicSpelling[mod(t.Tonic, 12)]
	return s[0], s[1]
}

// TonicName spells the tonic, e.g. "Bb" or "F#"
func (t Tonality) TonicName() string {
	letter, alter := t.tonicSpelling()
	return Spelling{Step: letters[letter], Alter: alter}.Name()
}

// KeySignature is the number of sharps (positive) or flats (negative)
func (t Tonality) KeySignature() int {
	if t.Mode.IsMinor() {
		return minorFifths[mod(t.Tonic, 12)]
	}
	return majorFifths[mod(t.Tonic, 12)]
}

// FifthsDistance is the circular distance between key signatures, 0..6
func (t Tonality) FifthsDistance(o Tonality) int {
	d := mod(t.KeySignature()-o.KeySignature(), 12)
	if d > 6 {
		d = 12 - d
	}
	return d
}

// Name renders "C major", "F# minor", "A melodic minor"
func (t Tonality) Name() string {
	switch t.Mode {
	case MelodicMinor:
		return t.TonicName() + " melodic minor"
	default:
		return t.TonicName() + " " + t.Mode.String()
	}
}

func (t Tonality) String() string {
	return t.Name()
}

// RomanTextKey renders the key the way RomanText writes it: "Bb", "f#"
func (t Tonality) RomanTextKey() string {
	name := t.TonicName()
	if t.Mode.IsMinor() {
		return strings.ToLower(name)
	}
	return name
}

// ParseKey reads a key token. Case selects the mode ("C" major, "c" minor);
// accidentals may be "#", "b" or "-". A trailing ':' is ignored.
func ParseKey(token string) (Tonality, error) {
	token = strings.TrimSuffix(strings.TrimSpace(token), ":")
	if token == "" {
		return Tonality{}, fmt.Errorf("empty key")
	}
	idx := strings.IndexByte(letters, strings.ToUpper(token[:1])[0])
	if idx < 0 {
		return Tonality{}, fmt.Errorf("invalid key %q", token)
	}
	mode := Major
	if token[0] >= 'a' && token[0] <= 'z' {
		mode = Minor
	}
	alter := 0
	for _, r := range token[1:] {
		switch r {
		case '#':
			alter++
		case 'b', '-':
			alter--
		default:
			return Tonality{}, fmt.Errorf("invalid key %q", token)
		}
	}
	return NewTonality(letterPC[idx]+alter, mode), nil
}

// ParseTonality reads "C major", "a minor", "A melodic minor" or a bare key token
func ParseTonality(s string) (Tonality, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Tonality{}, fmt.Errorf("empty tonality")
	}
	t, err := ParseKey(fields[0])
	if err != nil {
		return Tonality{}, err
	}
	if len(fields) == 1 {
		return t, nil
	}
	mode, err := ParseMode(strings.Join(fields[1:], "_"))
	if err != nil {
		return Tonality{}, err
	}
	return NewTonality(t.Tonic, mode), nil
}

// symbolOf locates a pitch class relative to the tonic as a scale degree
// (0-based) plus alteration. Chromatic tones prefer flats except the raised
// third, fourth, sixth and seventh.
func (t Tonality) symbolOf(pc int) (degree, alter int) {
	rel := mod(pc-t.Tonic, 12)
	iv := t.Mode.Intervals()
	for d, s := range iv {
		if s == rel {
			return d, 0
		}
	}
	sharpDeg, flatDeg := -1, -1
	for d, s := range iv {
		if s == rel-1 {
			sharpDeg = d
		}
		if s == rel+1 {
			flatDeg = d
		}
	}
	preferSharp := rel == 4 || rel == 6 || rel == 9 || rel == 11
	switch {
	case preferSharp && sharpDeg >= 0:
		return sharpDeg, 1
	case flatDeg >= 0:
		return flatDeg, -1
	default:
		return sharpDeg, 1
	}
}

// Spell names a pitch with the letter its scale degree implies. The octave
// follows the letter, so B#3 sounds as C4 and Cb5 sounds as B4.
func (t Tonality) Spell(pitch int) Spelling {
	degree, _ := t.symbolOf(pitch)
	tonicLetter, _ := t.tonicSpelling()
	letter := (tonicLetter + degree) % 7
	alter := mod(pitch-letterPC[letter], 12)
	if alter > 6 {
		alter -= 12
	}
	return Spelling{
		Step:   letters[letter],
		Alter:  alter,
		Octave: floorDiv(pitch-alter, 12) - 1,
	}
}

// RomanOf names key o as a numeral of t, e.g. "V" or "bVII".
// Root(t) of the result is o's tonic.
func (t Tonality) RomanOf(o Tonality) RomanNumeral {
	degree, alter := t.symbolOf(o.Tonic)
	upper := o.Mode == Major
	if t.Mode == Minor && !upper && (degree == 5 || degree == 6) {
		alter--
	}
	return RomanNumeral{Degree: degree + 1, Accidental: alter, Upper: upper}
}

// ScalePitches realizes the scale upward from the tonic in t's register
func (t Tonality) ScalePitches() [7]int {
	var out [7]int
	base := 12*(t.Octave+1) + mod(t.Tonic, 12)
	for i, iv := range t.Mode.Intervals() {
		out[i] = base + iv
	}
	return out
}
