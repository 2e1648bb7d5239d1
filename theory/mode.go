package theory

import (
	"fmt"
	"strings"
)

// Mode is the scale type of a tonality
type Mode int

const (
	Major Mode = iota
	Minor
	MelodicMinor
)

// Modes lists every mode in state order
var Modes = []Mode{Major, Minor, MelodicMinor}

// semitone offsets of the seven scale degrees above the tonic
var modeIntervals = [3][7]int{
	{0, 2, 4, 5, 7, 9, 11}, // major
	{0, 2, 3, 5, 7, 8, 10}, // natural minor
	{0, 2, 3, 5, 7, 9, 11}, // melodic minor (ascending)
}

func (m Mode) valid() bool {
	return m >= Major && m <= MelodicMinor
}

// Intervals returns the semitone offsets of the scale degrees
func (m Mode) Intervals() [7]int {
	if !m.valid() {
		return modeIntervals[Major]
	}
	return modeIntervals[m]
}

// IsMinor reports whether the mode has a minor third
func (m Mode) IsMinor() bool {
	return m == Minor || m == MelodicMinor
}

func (m Mode) String() string {
	switch m {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case MelodicMinor:
		return "melodic_minor"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "major", "minor", "melodic_minor" (also "melodic minor")
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_") {
	case "major", "maj":
		return Major, nil
	case "minor", "min":
		return Minor, nil
	case "melodic_minor", "melodic":
		return MelodicMinor, nil
	}
	return Major, fmt.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
