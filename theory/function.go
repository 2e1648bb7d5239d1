package theory

import "fmt"

// Function is the harmonic role of a chord in its key
type Function int

const (
	FunctionNone Function = iota
	FunctionTonic
	FunctionPredominant
	FunctionDominant
	FunctionApplied
)

var functionLabels = map[Function]string{
	FunctionNone:        "",
	FunctionTonic:       "T",
	FunctionPredominant: "PD",
	FunctionDominant:    "D",
	FunctionApplied:     "A",
}

// Label is the short column form: "T", "PD", "D", "A" or ""
func (f Function) Label() string {
	return functionLabels[f]
}

func (f Function) String() string {
	switch f {
	case FunctionNone:
		return "none"
	case FunctionTonic:
		return "tonic"
	case FunctionPredominant:
		return "predominant"
	case FunctionDominant:
		return "dominant"
	case FunctionApplied:
		return "applied"
	}
	return fmt.Sprintf("function(%d)", int(f))
}

// ParseFunction accepts a label or a long name
func ParseFunction(s string) (Function, error) {
	for f := FunctionNone; f <= FunctionApplied; f++ {
		if s == f.Label() || s == f.String() {
			return f, nil
		}
	}
	return FunctionNone, fmt.Errorf("unknown harmonic function %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (f Function) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *Function) UnmarshalText(text []byte) error {
	parsed, err := ParseFunction(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Function classifies the numeral. Chords applied to the dominant (V/V,
// viio7/V) prepare it and count as predominant; other tonicizing chords are
// applied. Mediant and submediant chords prolong the tonic, and leading-tone
// and subtonic chords count as dominant.
func (r RomanNumeral) Function() Function {
	switch r.Special {
	case SpecialNeapolitan, SpecialItalian, SpecialFrench, SpecialGerman:
		return FunctionPredominant
	case SpecialCadential:
		return FunctionDominant
	}
	if r.Secondary != nil {
		target := *r.Secondary
		if target.Secondary == nil && target.Degree == 5 && target.Accidental == 0 {
			return FunctionPredominant
		}
		return FunctionApplied
	}
	switch r.Degree {
	case 1, 3, 6:
		return FunctionTonic
	case 2, 4:
		return FunctionPredominant
	case 5, 7:
		return FunctionDominant
	}
	return FunctionNone
}

// Function is the harmonic role of the chord in its key
func (c Chord) Function() Function {
	return c.Roman.Function()
}
