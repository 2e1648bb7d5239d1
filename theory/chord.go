package theory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/faults"
)

// semitones above the root for an added scale step
var additionSemis = map[int]int{2: 2, 3: 4, 4: 5, 5: 7, 6: 9, 7: 10, 9: 2, 11: 5, 13: 9}

type addition struct {
	remove bool
	add    bool
	alter  int
	number int
}

func parseAddition(s string) (addition, error) {
	var a addition
	rest := s
	switch {
	case strings.HasPrefix(rest, "no"):
		a.remove, rest = true, rest[2:]
	case strings.HasPrefix(rest, "add"):
		a.add, rest = true, rest[3:]
	}
	for len(rest) > 0 && (rest[0] == 'b' || rest[0] == '#' || rest[0] == '-') {
		if rest[0] == '#' {
			a.alter++
		} else {
			a.alter--
		}
		rest = rest[1:]
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return addition{}, faults.Kernel("unsupported addition [%s]", s)
	}
	if _, ok := additionSemis[n]; !ok {
		return addition{}, faults.Kernel("unsupported addition [%s]", s)
	}
	if a.remove && n != 3 && n != 5 {
		return addition{}, faults.Kernel("unsupported omission [%s]", s)
	}
	a.number = n
	return a, nil
}

// tone is a chord member: its interval number (1, 3, 5, 7, 9) and pitch class
type tone struct {
	number int
	pc     int
}

// Key returns the tonality the numeral is read in: t itself, or the key
// its secondary part tonicizes
func (r RomanNumeral) Key(t Tonality) Tonality {
	if r.Secondary == nil {
		return t
	}
	outer := r.Secondary.Key(t)
	root := r.Secondary.rootIn(outer)
	mode := Minor
	if r.Secondary.Upper && r.Secondary.Marker != MarkerDiminished && r.Secondary.Marker != MarkerHalfDiminished {
		mode = Major
	}
	return Tonality{Tonic: root, Mode: mode, Octave: t.Octave}
}

// rootIn resolves the root pitch class inside key k (secondary already applied)
func (r RomanNumeral) rootIn(k Tonality) int {
	switch r.Special {
	case SpecialNeapolitan:
		return mod(k.Tonic+1, 12)
	case SpecialItalian, SpecialFrench, SpecialGerman:
		return mod(k.Tonic+8, 12)
	case SpecialCadential:
		return mod(k.Tonic, 12)
	}
	iv := k.Mode.Intervals()
	rel := iv[r.Degree-1] + r.Accidental
	if k.Mode == Minor && !r.Upper && (r.Degree == 6 || r.Degree == 7) {
		rel++
	}
	return mod(k.Tonic+rel, 12)
}

// Root is the chord root in tonality t
func (r RomanNumeral) Root(t Tonality) int {
	return r.rootIn(r.Key(t))
}

// tones realizes the chord members in root position plus extra added tones
func (r RomanNumeral) tones(t Tonality) (members []tone, added []int, err error) {
	k := r.Key(t)
	switch r.Special {
	case SpecialItalian, SpecialFrench, SpecialGerman:
		rels := map[string][]int{
			SpecialItalian: {8, 0, 6},
			SpecialFrench:  {8, 0, 2, 6},
			SpecialGerman:  {8, 0, 3, 6},
		}[r.Special]
		for i, rel := range rels {
			members = append(members, tone{number: 2*i + 1, pc: mod(k.Tonic+rel, 12)})
		}
		return members, nil, nil
	case SpecialCadential:
		third := 4
		if k.Mode.IsMinor() {
			third = 3
		}
		return []tone{{1, k.Tonic}, {3, mod(k.Tonic+third, 12)}, {5, mod(k.Tonic+7, 12)}}, nil, nil
	}

	if r.Special == "" && (r.Degree < 1 || r.Degree > 7) {
		return nil, nil, faults.Kernel("numeral degree %d out of range", r.Degree)
	}
	root := r.rootIn(k)
	third, fifth := 3, 7
	switch {
	case r.Marker == MarkerDiminished || r.Marker == MarkerHalfDiminished:
		third, fifth = 3, 6
	case r.Marker == MarkerAugmented:
		third, fifth = 4, 8
	case r.Upper:
		third = 4
	}
	members = []tone{{1, root}, {3, mod(root+third, 12)}, {5, mod(root+fifth, 12)}}

	if r.IsSeventh() {
		var seventh int
		switch {
		case r.Marker == MarkerDiminished:
			seventh = 9
		case r.Marker == MarkerHalfDiminished:
			seventh = 10
		case r.Accidental != 0 && r.Upper && r.Special == "":
			seventh = 10
		default:
			degree := 1
			if r.Special == "" {
				degree = r.Degree
			}
			seventh = mod(k.DegreePitchClass(degree+6)-root, 12)
		}
		members = append(members, tone{7, mod(root+seventh, 12)})
	}
	if r.Figure == "9" {
		degree := 2
		if r.Special == "" {
			degree = r.Degree + 1
		}
		members = append(members, tone{9, k.DegreePitchClass(degree)})
	}

	for _, raw := range r.Additions {
		a, err := parseAddition(raw)
		if err != nil {
			return nil, nil, err
		}
		idx := -1
		for i, m := range members {
			if m.number == a.number {
				idx = i
			}
		}
		switch {
		case a.remove:
			if idx >= 0 {
				members = append(members[:idx], members[idx+1:]...)
			}
		case !a.add && idx >= 0:
			members[idx].pc = mod(members[idx].pc+a.alter, 12)
		default:
			added = append(added, mod(root+additionSemis[a.number]+a.alter, 12))
		}
	}
	return members, added, nil
}

// PitchClasses returns the chord's pitch classes, bass first. Chord members
// follow in inversion order; added tones come last.
func (r RomanNumeral) PitchClasses(t Tonality) ([]int, error) {
	members, added, err := r.tones(t)
	if err != nil {
		return nil, err
	}
	inv := 0
	switch r.Special {
	case SpecialItalian, SpecialFrench, SpecialGerman:
	case SpecialCadential:
		inv = 2
	default:
		inv = r.Inversion()
	}
	if inv >= len(members) {
		return nil, faults.Kernel("inversion %q of %s has no bass tone", r.Figure, r)
	}
	out := make([]int, 0, len(members)+len(added))
	for i := range members {
		out = append(out, members[(i+inv)%len(members)].pc)
	}
	for _, pc := range added {
		if !containsInt(out, pc) {
			out = append(out, pc)
		}
	}
	return dedupe(out), nil
}

// Pitches realizes the chord upward from a bass placed one octave below t's register
func (r RomanNumeral) Pitches(t Tonality) ([]int, error) {
	pcs, err := r.PitchClasses(t)
	if err != nil {
		return nil, err
	}
	return stackUp(pcs, 12*t.Octave), nil
}

// Quality classifies the realized chord
func (r RomanNumeral) Quality(t Tonality) Quality {
	pcs, err := r.PitchClasses(t)
	if err != nil {
		return QualityOther
	}
	return QualityOf(pcs, r.Root(t))
}

// stackUp places each pitch class at the next pitch above the previous one,
// starting from the first pitch class at or above floor
func stackUp(pcs []int, floor int) []int {
	out := make([]int, 0, len(pcs))
	prev := floor - 1
	for _, pc := range pcs {
		p := prev + 1 + mod(pc-(prev+1), 12)
		out = append(out, p)
		prev = p
	}
	return out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func dedupe(xs []int) []int {
	out := xs[:0]
	for _, x := range xs {
		if !containsInt(out, x) {
			out = append(out, x)
		}
	}
	return out
}

// Chord is a Roman numeral bound to the tonality it is read in
type Chord struct {
	Roman RomanNumeral `json:"roman"`
	Key   Tonality     `json:"key"`

	pcs []int
}

// NewChord parses figure and realizes it in key
func NewChord(figure string, key Tonality) (Chord, error) {
	r, err := ParseRoman(figure)
	if err != nil {
		return Chord{}, err
	}
	return ChordOf(r, key)
}

// ChordOf realizes a parsed numeral in key
func ChordOf(r RomanNumeral, key Tonality) (Chord, error) {
	pcs, err := r.PitchClasses(key)
	if err != nil {
		return Chord{}, err
	}
	return Chord{Roman: r, Key: key, pcs: pcs}, nil
}

// PitchClasses returns the realized pitch classes, bass first
func (c Chord) PitchClasses() []int {
	if c.pcs == nil {
		pcs, err := c.Roman.PitchClasses(c.Key)
		if err != nil {
			return nil
		}
		return pcs
	}
	return append([]int(nil), c.pcs...)
}

// Mask is the chord's pitch-class set
func (c Chord) Mask() uint16 {
	return MaskOf(c.PitchClasses())
}

// Bass returns the lowest chord tone's pitch class
func (c Chord) Bass() int {
	pcs := c.PitchClasses()
	if len(pcs) == 0 {
		return 0
	}
	return pcs[0]
}

// Root returns the root pitch class
func (c Chord) Root() int {
	return c.Roman.Root(c.Key)
}

// Quality classifies the chord
func (c Chord) Quality() Quality {
	return QualityOf(c.PitchClasses(), c.Root())
}

// Pitches realizes the chord with the bass one octave below the key's register
func (c Chord) Pitches() []int {
	return stackUp(c.PitchClasses(), 12*c.Key.Octave)
}

// Scale is the tonality chord-relative symbols are read in
func (c Chord) Scale() Tonality {
	return c.Roman.Key(c.Key)
}

// Parse reads a pitch relative to the chord's scale
func (c Chord) Parse(pitch int) Symbol {
	return c.Scale().ParseSymbol(pitch)
}

// ToPitch converts a chord-relative symbol back to a pitch
func (c Chord) ToPitch(s Symbol) int {
	return c.Scale().ToPitch(s)
}

// ExtensionPitchClasses lists the pitch classes beyond the underlying triad
func (c Chord) ExtensionPitchClasses() []int {
	triad, err := c.Roman.WithoutExtensions().PitchClasses(c.Key)
	if err != nil {
		return nil
	}
	var out []int
	for _, pc := range c.PitchClasses() {
		if !containsInt(triad, pc) {
			out = append(out, pc)
		}
	}
	return out
}

func (c Chord) String() string {
	return fmt.Sprintf("%s in %s", c.Roman, c.Key.Name())
}
