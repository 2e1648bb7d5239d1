package theory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/faults"
)

// ChordSymbol is a lead-sheet chord name such as "F#m7b5", "G7/B" or
// "C(add9)". Octaves of the spellings are ignored.
type ChordSymbol struct {
	Root    Spelling `json:"root"`
	Quality Quality  `json:"quality"`
	Added   []int    `json:"added,omitempty"` // semitones above the root outside the quality
	Bass    Spelling `json:"bass"`
}

var qualitySymbols = map[Quality]string{
	QualityMajor:           "",
	QualityMinor:           "m",
	QualityDominant7:       "7",
	QualityMajor7:          "maj7",
	QualityMinor7:          "m7",
	QualityMinorMajor7:     "m(maj7)",
	QualityHalfDiminished7: "m7b5",
	QualityDiminished:      "dim",
	QualityDiminished7:     "dim7",
	QualityAugmented:       "aug",
	QualitySus2:            "sus2",
	QualitySus4:            "sus4",
	QualityOther:           "",
}

// suffix spellings accepted by ParseChordSymbol
var symbolQualities = map[string]Quality{
	"":        QualityMajor,
	"M":       QualityMajor,
	"maj":     QualityMajor,
	"m":       QualityMinor,
	"min":     QualityMinor,
	"-":       QualityMinor,
	"7":       QualityDominant7,
	"dom7":    QualityDominant7,
	"maj7":    QualityMajor7,
	"M7":      QualityMajor7,
	"Δ":       QualityMajor7,
	"Δ7":      QualityMajor7,
	"m7":      QualityMinor7,
	"min7":    QualityMinor7,
	"-7":      QualityMinor7,
	"m(maj7)": QualityMinorMajor7,
	"mM7":     QualityMinorMajor7,
	"mmaj7":   QualityMinorMajor7,
	"minmaj7": QualityMinorMajor7,
	"m7b5":    QualityHalfDiminished7,
	"min7b5":  QualityHalfDiminished7,
	"-7b5":    QualityHalfDiminished7,
	"ø":       QualityHalfDiminished7,
	"ø7":      QualityHalfDiminished7,
	"dim":     QualityDiminished,
	"o":       QualityDiminished,
	"°":       QualityDiminished,
	"dim7":    QualityDiminished7,
	"o7":      QualityDiminished7,
	"°7":      QualityDiminished7,
	"aug":     QualityAugmented,
	"+":       QualityAugmented,
	"sus2":    QualitySus2,
	"sus4":    QualitySus4,
	"sus":     QualitySus4,
}

// names of tones above the root, indexed by semitones
var toneNames = [12]string{"1", "b9", "9", "b3", "3", "11", "#11", "5", "b13", "6", "b7", "7"}

// SymbolFor names the pitch-class set built on root. Qualities with more
// tones win; leftover tones become additions. bass is spelled in scale.
func SymbolFor(pcs []int, root, bass int, scale Tonality) ChordSymbol {
	rel := make(map[int]bool)
	for _, pc := range pcs {
		rel[mod(pc-root, 12)] = true
	}

	best := QualityOther
	for _, q := range TemplateQualities {
		iv := qualityIntervals[q]
		if best != QualityOther && len(iv) <= len(qualityIntervals[best]) {
			continue
		}
		subset := true
		for _, s := range iv {
			if !rel[s] {
				subset = false
				break
			}
		}
		if subset {
			best = q
		}
	}

	var added []int
	for s := 1; s < 12; s++ {
		if rel[s] && !containsInt(qualityIntervals[best], s) {
			added = append(added, s)
		}
	}
	return ChordSymbol{
		Root:    spellClass(root, scale),
		Quality: best,
		Added:   added,
		Bass:    spellClass(bass, scale),
	}
}

func spellClass(pc int, scale Tonality) Spelling {
	s := scale.Spell(60 + mod(pc, 12))
	s.Octave = 0
	return s
}

// Symbol names the chord for a lead sheet, spelled in the chord's own scale
func (c Chord) Symbol() ChordSymbol {
	return SymbolFor(c.PitchClasses(), c.Root(), c.Bass(), c.Scale())
}

// RootClass is the root's pitch class
func (s ChordSymbol) RootClass() int {
	return PitchClass(s.Root.Pitch())
}

// BassClass is the bass pitch class
func (s ChordSymbol) BassClass() int {
	return PitchClass(s.Bass.Pitch())
}

// PitchClasses lists the chord's pitch classes, bass first and the rest
// ascending from the root. A slash bass outside the chord is included.
func (s ChordSymbol) PitchClasses() []int {
	root, bass := s.RootClass(), s.BassClass()
	rel := append(s.Quality.Intervals(), s.Added...)
	if s.Quality == QualityOther {
		rel = append([]int{0}, s.Added...)
	}
	sort.Ints(rel)

	out := []int{bass}
	for _, iv := range rel {
		pc := mod(root+iv, 12)
		if pc != bass {
			out = append(out, pc)
		}
	}
	return dedupe(out)
}

// Mask is the symbol's pitch-class set
func (s ChordSymbol) Mask() uint16 {
	return MaskOf(s.PitchClasses())
}

// Interpretations reads the symbol as Roman numerals, those in key first
func (s ChordSymbol) Interpretations(v *Vocabulary, key Tonality) []Interpretation {
	all := v.Lookup(s.Mask())
	out := make([]Interpretation, 0, len(all))
	for _, in := range all {
		if in.Tonality.SameKey(key) {
			out = append(out, in)
		}
	}
	for _, in := range all {
		if !in.Tonality.SameKey(key) {
			out = append(out, in)
		}
	}
	return out
}

func (s ChordSymbol) String() string {
	var b strings.Builder
	b.WriteString(s.Root.Name())
	b.WriteString(qualitySymbols[s.Quality])
	if len(s.Added) > 0 {
		parts := make([]string, len(s.Added))
		for i, iv := range s.Added {
			parts[i] = toneNames[mod(iv, 12)]
			if s.Quality != QualityOther {
				parts[i] = "add" + parts[i]
			}
		}
		b.WriteString("(" + strings.Join(parts, ",") + ")")
	}
	if s.Bass.Name() != s.Root.Name() {
		b.WriteString("/" + s.Bass.Name())
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler
func (s ChordSymbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *ChordSymbol) UnmarshalText(text []byte) error {
	parsed, err := ParseChordSymbol(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseChordSymbol reads a lead-sheet symbol: root letter, accidentals,
// quality suffix, an optional parenthesized list of added tones and an
// optional slash bass.
func ParseChordSymbol(text string) (ChordSymbol, error) {
	src := strings.TrimSpace(text)
	body, slash, hasBass := strings.Cut(src, "/")

	root, rest, err := parseNoteName(body)
	if err != nil {
		return ChordSymbol{}, faults.Rejectf("chord symbol %q: %v", text, err)
	}

	qual, tail := rest, ""
	if strings.HasPrefix(rest, "m(maj7)") {
		qual, tail = "m(maj7)", rest[len("m(maj7)"):]
	} else if open := strings.IndexByte(rest, '('); open >= 0 {
		qual, tail = rest[:open], rest[open:]
	}

	s := ChordSymbol{Root: root, Bass: root}
	q, ok := symbolQualities[qual]
	if !ok {
		return ChordSymbol{}, faults.Rejectf("chord symbol %q: unknown quality %q", text, qual)
	}
	s.Quality = q

	if tail != "" {
		if !strings.HasPrefix(tail, "(") || !strings.HasSuffix(tail, ")") {
			return ChordSymbol{}, faults.Rejectf("chord symbol %q: unclosed additions", text)
		}
		bare := false
		for _, part := range strings.Split(tail[1:len(tail)-1], ",") {
			part = strings.TrimSpace(part)
			name, isAdd := strings.CutPrefix(part, "add")
			bare = bare || !isAdd
			iv := toneIndex(name)
			if iv < 0 {
				return ChordSymbol{}, faults.Rejectf("chord symbol %q: unknown tone %q", text, part)
			}
			if !containsInt(s.Added, iv) {
				s.Added = append(s.Added, iv)
			}
		}
		sort.Ints(s.Added)
		if bare && qual == "" {
			s.Quality = QualityOther
		}
	}

	if hasBass {
		bass, tail, err := parseNoteName(slash)
		if err != nil || tail != "" {
			return ChordSymbol{}, faults.Rejectf("chord symbol %q: invalid bass %q", text, slash)
		}
		s.Bass = bass
	}
	return s, nil
}

func toneIndex(name string) int {
	for i, n := range toneNames {
		if n == name && i > 0 {
			return i
		}
	}
	return -1
}

// parseNoteName reads a letter and its accidentals off the front of s
func parseNoteName(s string) (Spelling, string, error) {
	if s == "" {
		return Spelling{}, "", errors.New("missing root")
	}
	step := s[0]
	if strings.IndexByte(letters, step) < 0 {
		return Spelling{}, "", fmt.Errorf("invalid letter %q", s[:1])
	}
	out := Spelling{Step: step}
	rest := s[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case '#':
			out.Alter++
		case 'b':
			out.Alter--
		default:
			return out, rest, nil
		}
		rest = rest[1:]
	}
	return out, rest, nil
}
