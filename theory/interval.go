package theory

import (
	"fmt"
	"strconv"
	"strings"
)

// semitones of the simple major and perfect intervals, indexed by diatonic steps
var referenceSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

// IntervalQuality is the perfect/major/minor/augmented/diminished class
type IntervalQuality int

const (
	IntervalUnknown IntervalQuality = iota
	IntervalPerfect
	IntervalMajor
	IntervalMinor
	IntervalAugmented
	IntervalDiminished
	IntervalDoublyAugmented
	IntervalDoublyDiminished
)

var intervalQualityNames = map[IntervalQuality]string{
	IntervalPerfect:          "P",
	IntervalMajor:            "M",
	IntervalMinor:            "m",
	IntervalAugmented:        "A",
	IntervalDiminished:       "d",
	IntervalDoublyAugmented:  "AA",
	IntervalDoublyDiminished: "dd",
}

func (q IntervalQuality) String() string {
	if name, ok := intervalQualityNames[q]; ok {
		return name
	}
	return "?"
}

// Interval is the distance between two spelled pitches: Steps counts letter
// names (0 unison, 4 fifth, 7 octave) and Semitones the sounding distance.
// A descending interval has negative Steps.
type Interval struct {
	Steps     int `json:"steps"`
	Semitones int `json:"semitones"`
}

// IntervalBetween measures from a to b
func IntervalBetween(a, b Spelling) Interval {
	return Interval{
		Steps:     b.diatonicIndex() - a.diatonicIndex(),
		Semitones: b.Pitch() - a.Pitch(),
	}
}

// diatonicIndex counts letters from C-1
func (s Spelling) diatonicIndex() int {
	return strings.IndexByte(letters, s.Step) + 7*s.Octave
}

// Interval spells both pitches in t and measures from a to b
func (t Tonality) Interval(a, b int) Interval {
	return IntervalBetween(t.Spell(a), t.Spell(b))
}

// Descending reports whether the interval moves down
func (i Interval) Descending() bool {
	return i.Steps < 0 || (i.Steps == 0 && i.Semitones < 0)
}

// Abs is the ascending form
func (i Interval) Abs() Interval {
	if i.Descending() {
		return Interval{Steps: -i.Steps, Semitones: -i.Semitones}
	}
	return i
}

// Simple folds octaves away. The octave itself folds to a unison.
func (i Interval) Simple() Interval {
	a := i.Abs()
	octaves := a.Steps / 7
	return Interval{Steps: a.Steps - 7*octaves, Semitones: a.Semitones - 12*octaves}
}

// Compound reports an interval wider than an octave
func (i Interval) Compound() bool {
	return i.Abs().Steps > 7
}

// Number is the ordinal name of the size: 1 unison, 5 fifth, 10 tenth
func (i Interval) Number() int {
	return i.Abs().Steps + 1
}

func perfectClass(steps int) bool {
	s := mod(steps, 7)
	return s == 0 || s == 3 || s == 4
}

// Quality classifies the interval against the major scale above its lower note
func (i Interval) Quality() IntervalQuality {
	s := i.Simple()
	delta := s.Semitones - referenceSemitones[s.Steps]
	if perfectClass(s.Steps) {
		switch delta {
		case 0:
			return IntervalPerfect
		case 1:
			return IntervalAugmented
		case -1:
			return IntervalDiminished
		case 2:
			return IntervalDoublyAugmented
		case -2:
			return IntervalDoublyDiminished
		}
		return IntervalUnknown
	}
	switch delta {
	case 0:
		return IntervalMajor
	case -1:
		return IntervalMinor
	case 1:
		return IntervalAugmented
	case -2:
		return IntervalDiminished
	case 2:
		return IntervalDoublyAugmented
	case -3:
		return IntervalDoublyDiminished
	}
	return IntervalUnknown
}

// Name renders quality and number of the ascending form, e.g. "m3" or "A4"
func (i Interval) Name() string {
	return i.Quality().String() + strconv.Itoa(i.Number())
}

func (i Interval) String() string {
	if i.Descending() {
		return "-" + i.Name()
	}
	return i.Name()
}

// Invert turns a simple interval upside down within the octave, so a unison
// becomes an octave and a major third a minor sixth
func (i Interval) Invert() Interval {
	s := i.Simple()
	return Interval{Steps: 7 - s.Steps, Semitones: 12 - s.Semitones}
}

// IsPerfectConsonance is true for perfect unisons, fifths and octaves and
// their compounds
func (i Interval) IsPerfectConsonance() bool {
	s := i.Simple()
	return (s.Steps == 0 || s.Steps == 4) && i.Quality() == IntervalPerfect
}

// IsConsonant adds major and minor thirds and sixths to the perfect
// consonances. The fourth counts as dissonant.
func (i Interval) IsConsonant() bool {
	if i.IsPerfectConsonance() {
		return true
	}
	s := i.Simple()
	q := i.Quality()
	return (s.Steps == 2 || s.Steps == 5) && (q == IntervalMajor || q == IntervalMinor)
}

// ParseInterval reads names such as "P5", "m3", "A4", "M10" or "-P4"
func ParseInterval(name string) (Interval, error) {
	s := strings.TrimSpace(name)
	down := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	n := 0
	for n < len(s) && (s[n] < '0' || s[n] > '9') {
		n++
	}
	number, err := strconv.Atoi(s[n:])
	if err != nil || number < 1 {
		return Interval{}, fmt.Errorf("invalid interval %q", name)
	}
	steps := number - 1
	simple := steps % 7
	perfect := perfectClass(simple)

	var delta int
	switch q := s[:n]; {
	case q == "P" && perfect, q == "M" && !perfect:
		delta = 0
	case q == "m" && !perfect:
		delta = -1
	case q == "A":
		delta = 1
	case q == "AA":
		delta = 2
	case q == "d" && perfect:
		delta = -1
	case q == "d":
		delta = -2
	case q == "dd" && perfect:
		delta = -2
	case q == "dd":
		delta = -3
	default:
		return Interval{}, fmt.Errorf("invalid interval %q", name)
	}

	out := Interval{Steps: steps, Semitones: referenceSemitones[simple] + 12*(steps/7) + delta}
	if down {
		out = Interval{Steps: -out.Steps, Semitones: -out.Semitones}
	}
	return out, nil
}

// MustParseInterval panics on malformed names; for tables of literals
func MustParseInterval(name string) Interval {
	i, err := ParseInterval(name)
	if err != nil {
		panic(err)
	}
	return i
}
