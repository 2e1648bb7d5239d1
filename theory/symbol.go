package theory

import "fmt"

// Symbol is a pitch written relative to a scale: a 0-based degree, a chromatic
// alteration and an octave counted from the tonic.
type Symbol struct {
	Degree int `json:"degree"`
	Alter  int `json:"alter"`
	Octave int `json:"octave"`
}

func (s Symbol) String() string {
	acc := ""
	switch {
	case s.Alter > 0:
		acc = "#"
	case s.Alter < 0:
		acc = "b"
	}
	return fmt.Sprintf("%s%d@%d", acc, s.Degree+1, s.Octave)
}

// ParseSymbol converts a MIDI pitch into a symbol of the tonality's scale.
// ToPitch(ParseSymbol(p)) == p for every pitch.
func (t Tonality) ParseSymbol(pitch int) Symbol {
	x := pitch - mod(t.Tonic, 12)
	degree, alter := t.symbolOf(pitch)
	return Symbol{Degree: degree, Alter: alter, Octave: floorDiv(x, 12) - 1}
}

// ToPitch converts a symbol back into a MIDI pitch
func (t Tonality) ToPitch(s Symbol) int {
	iv := t.Mode.Intervals()
	return 12*(s.Octave+1) + mod(t.Tonic, 12) + iv[mod(s.Degree, 7)] + s.Alter
}
