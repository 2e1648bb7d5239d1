package tonal

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/theory"
)

// KeyProfile selects the pitch-class weights used by the key decoder
type KeyProfile int

const (
	KeyProfileAarden KeyProfile = iota
	KeyProfileKrumhansl
	KeyProfileTemperley
)

// KeyProfileTemplate holds the tonic-relative weights of one profile family
type KeyProfileTemplate struct {
	MajorProfile []float64 `json:"major_profile"`
	MinorProfile []float64 `json:"minor_profile"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
}

var keyProfiles = map[KeyProfile]KeyProfileTemplate{
	KeyProfileAarden: {
		MajorProfile: []float64{17.7661, 0.145624, 14.9265, 0.160186, 19.8049, 11.3587, 0.291248, 22.062, 0.145624, 8.15494, 0.232998, 4.95122},
		MinorProfile: []float64{18.2648, 0.737619, 14.0499, 16.8599, 0.702494, 14.4362, 0.702494, 18.6161, 4.56621, 1.93186, 7.37619, 1.75623},
		Name:         "aarden",
		Description:  "Aarden-Essen folk song corpus weights",
	},
	KeyProfileKrumhansl: {
		MajorProfile: []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88},
		MinorProfile: []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17},
		Name:         "krumhansl",
		Description:  "Empirical profiles based on listener ratings",
	},
	KeyProfileTemperley: {
		MajorProfile: []float64{5.0, 2.0, 3.5, 2.0, 4.5, 4.0, 2.0, 4.5, 2.0, 3.5, 1.5, 4.0},
		MinorProfile: []float64{5.0, 2.0, 3.5, 4.5, 2.0, 4.0, 2.0, 4.5, 3.5, 2.0, 1.5, 4.0},
		Name:         "temperley",
		Description:  "Statistical profiles from musical corpora",
	},
}

func (p KeyProfile) String() string {
	if t, ok := keyProfiles[p]; ok {
		return t.Name
	}
	return fmt.Sprintf("KeyProfile(%d)", int(p))
}

// ParseKeyProfile accepts the profile names, case-insensitively
func ParseKeyProfile(name string) (KeyProfile, error) {
	for p, t := range keyProfiles {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown key profile %q", name)
}

// GetSupportedProfiles lists the profile names
func GetSupportedProfiles() []string {
	return []string{"aarden", "krumhansl", "temperley"}
}

// ModeProfile returns the tonic-relative weights for a mode. The melodic-minor
// profile exchanges the lowered and raised sixth and seventh of the minor one.
func (t KeyProfileTemplate) ModeProfile(mode theory.Mode) []float64 {
	switch mode {
	case theory.Major:
		return append([]float64(nil), t.MajorProfile...)
	case theory.MelodicMinor:
		p := append([]float64(nil), t.MinorProfile...)
		p[8], p[9] = p[9], p[8]
		p[10], p[11] = p[11], p[10]
		return p
	default:
		return append([]float64(nil), t.MinorProfile...)
	}
}

// StateProfiles returns the 36 key profiles indexed by state, each rotated so
// its tonic sits on the state's tonic pitch class
func (t KeyProfileTemplate) StateProfiles() [][]float64 {
	out := make([][]float64, theory.NumKeys)
	for s := range out {
		key := theory.TonalityFromIndex(s)
		base := t.ModeProfile(key.Mode)
		rotated := make([]float64, 12)
		for i, w := range base {
			rotated[(i+key.Tonic)%12] = w
		}
		out[s] = rotated
	}
	return out
}
