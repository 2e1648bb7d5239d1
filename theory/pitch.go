package theory

import (
	"fmt"
	"strings"
)

// Letters of the natural notes, indexed C=0 ... B=6
const letters = "CDEFGAB"

// pitch classes of the natural letters
var letterPC = [7]int{0, 2, 4, 5, 7, 9, 11}

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchClass returns pitch modulo 12 in [0, 12)
func PitchClass(pitch int) int {
	return mod(pitch, 12)
}

// PitchClassName names a pitch class with sharps
func PitchClassName(pc int) string {
	return sharpNames[mod(pc, 12)]
}

// PitchName names a MIDI pitch with sharps, e.g. 60 -> "C4"
func PitchName(pitch int) string {
	return fmt.Sprintf("%s%d", sharpNames[mod(pitch, 12)], floorDiv(pitch, 12)-1)
}

// Spelling is a notated pitch: letter step, chromatic alteration and octave
type Spelling struct {
	Step   byte `json:"step"`   // 'A'..'G'
	Alter  int  `json:"alter"`  // -2..2
	Octave int  `json:"octave"` // scientific octave of the letter
}

// Pitch returns the MIDI pitch the spelling sounds
func (s Spelling) Pitch() int {
	idx := strings.IndexByte(letters, s.Step)
	if idx < 0 {
		return 0
	}
	return 12*(s.Octave+1) + letterPC[idx] + s.Alter
}

// Accidental renders the alteration as "#", "##", "b", "bb" or ""
func (s Spelling) Accidental() string {
	switch {
	case s.Alter > 0:
		return strings.Repeat("#", s.Alter)
	case s.Alter < 0:
		return strings.Repeat("b", -s.Alter)
	}
	return ""
}

// Name renders the pitch class part, e.g. "Bb"
func (s Spelling) Name() string {
	return string(s.Step) + s.Accidental()
}

func (s Spelling) String() string {
	return fmt.Sprintf("%s%d", s.Name(), s.Octave)
}

// ParsePitchName reads "C4", "Bb3", "F#5", "E-2" (music21 flats) into a MIDI pitch
func ParsePitchName(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("empty pitch name")
	}
	step := strings.ToUpper(name[:1])
	idx := strings.Index(letters, step)
	if idx < 0 {
		return 0, fmt.Errorf("invalid pitch letter in %q", name)
	}
	rest := name[1:]
	alter := 0
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b' || rest[0] == '-') {
		if rest[0] == '#' {
			alter++
		} else {
			alter--
		}
		rest = rest[1:]
	}
	var oct int
	if _, err := fmt.Sscanf(rest, "%d", &oct); err != nil {
		return 0, fmt.Errorf("invalid octave in %q", name)
	}
	return 12*(oct+1) + letterPC[idx] + alter, nil
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
