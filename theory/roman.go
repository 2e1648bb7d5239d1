package theory

import (
	"strings"

	"github.com/RyanBlaney/sonido-harmony/faults"
)

// Chord quality markers written after a numeral
const (
	MarkerNone           = ""
	MarkerDiminished     = "o"
	MarkerHalfDiminished = "ø"
	MarkerAugmented      = "+"
)

// Special chord names that are not built on a scale-degree numeral
const (
	SpecialNeapolitan = "N"
	SpecialItalian    = "It"
	SpecialFrench     = "Fr"
	SpecialGerman     = "Ger"
	SpecialCadential  = "Cad"
)

// RomanNumeral is a parsed Roman numeral figure such as "bVII7", "viiø65/V" or "Ger65"
type RomanNumeral struct {
	Special    string        `json:"special,omitempty"`
	Accidental int           `json:"accidental,omitempty"`
	Degree     int           `json:"degree,omitempty"` // 1..7, 0 for specials
	Upper      bool          `json:"upper,omitempty"`
	Marker     string        `json:"marker,omitempty"`
	Figure     string        `json:"figure,omitempty"`
	Additions  []string      `json:"additions,omitempty"`
	Secondary  *RomanNumeral `json:"secondary,omitempty"`
}

var numeralNames = [8]string{"", "I", "II", "III", "IV", "V", "VI", "VII"}

// canonical inversion figures
var figureAliases = map[string]string{
	"":    "",
	"5":   "",
	"53":  "",
	"6":   "6",
	"63":  "6",
	"64":  "64",
	"7":   "7",
	"75":  "7",
	"753": "7",
	"65":  "65",
	"653": "65",
	"43":  "43",
	"643": "43",
	"42":  "2",
	"642": "2",
	"2":   "2",
	"9":   "9",
}

// ParseRoman parses a Roman numeral figure
func ParseRoman(figure string) (RomanNumeral, error) {
	s := strings.TrimSpace(figure)
	if s == "" {
		return RomanNumeral{}, faults.Kernel("empty roman numeral")
	}
	r, rest, err := parsePrimary(s)
	if err != nil {
		return RomanNumeral{}, err
	}
	if rest == "" {
		return r, nil
	}
	if rest[0] != '/' {
		return RomanNumeral{}, faults.Kernel("unexpected %q in roman numeral %q", rest, figure)
	}
	sec, err := ParseRoman(rest[1:])
	if err != nil {
		return RomanNumeral{}, err
	}
	if sec.Special != "" {
		return RomanNumeral{}, faults.Kernel("cannot tonicize %q in %q", rest[1:], figure)
	}
	r.Secondary = &sec
	return r, nil
}

// MustParseRoman panics on malformed input; for tables of literals
func MustParseRoman(figure string) RomanNumeral {
	r, err := ParseRoman(figure)
	if err != nil {
		panic(err)
	}
	return r
}

func parsePrimary(s string) (RomanNumeral, string, error) {
	var r RomanNumeral
	orig := s

	for _, sp := range []string{SpecialGerman, SpecialItalian, SpecialFrench, SpecialCadential, SpecialNeapolitan} {
		if strings.HasPrefix(s, sp) {
			r.Special = sp
			s = s[len(sp):]
			if sp == SpecialNeapolitan {
				r.Upper = true
			}
			break
		}
	}

	if r.Special == "" {
		for len(s) > 0 && (s[0] == 'b' || s[0] == '#' || s[0] == '-') {
			if s[0] == '#' {
				r.Accidental++
			} else {
				r.Accidental--
			}
			s = s[1:]
		}
		deg, n, upper := scanNumeral(s)
		if deg == 0 {
			return RomanNumeral{}, "", faults.Kernel("no numeral in %q", orig)
		}
		r.Degree, r.Upper = deg, upper
		s = s[n:]

		switch {
		case strings.HasPrefix(s, "o"):
			r.Marker, s = MarkerDiminished, s[1:]
		case strings.HasPrefix(s, MarkerHalfDiminished):
			r.Marker, s = MarkerHalfDiminished, s[len(MarkerHalfDiminished):]
		case strings.HasPrefix(s, "/o"), strings.HasPrefix(s, "%"):
			r.Marker = MarkerHalfDiminished
			s = strings.TrimPrefix(strings.TrimPrefix(s, "/o"), "%")
		case strings.HasPrefix(s, "+"):
			r.Marker, s = MarkerAugmented, s[1:]
		}
	}

	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	fig, ok := figureAliases[s[:n]]
	if !ok {
		return RomanNumeral{}, "", faults.Kernel("unsupported figure %q in %q", s[:n], orig)
	}
	r.Figure = fig
	s = s[n:]

	for strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return RomanNumeral{}, "", faults.Kernel("unterminated addition in %q", orig)
		}
		add := s[1:end]
		if _, err := parseAddition(add); err != nil {
			return RomanNumeral{}, "", err
		}
		r.Additions = append(r.Additions, add)
		s = s[end+1:]
	}

	if r.Special == SpecialCadential && r.Figure != "64" {
		return RomanNumeral{}, "", faults.Kernel("cadential chord must be written Cad64, got %q", orig)
	}
	return r, s, nil
}

// scanNumeral matches the longest numeral at the head of s
func scanNumeral(s string) (degree, length int, upper bool) {
	// prefer the longest match: "VII" over "V", "IV" over "I"
	best := 0
	for deg := 1; deg <= 7; deg++ {
		name := numeralNames[deg]
		if len(s) < len(name) || len(name) <= best {
			continue
		}
		head := s[:len(name)]
		if head == name || head == strings.ToLower(name) {
			best = len(name)
			degree, length, upper = deg, len(name), head == name
		}
	}
	return degree, length, upper
}

// IsSeventh reports whether the figure implies a seventh
func (r RomanNumeral) IsSeventh() bool {
	switch r.Special {
	case SpecialFrench, SpecialGerman:
		return true
	case SpecialItalian, SpecialNeapolitan, SpecialCadential:
		return false
	}
	switch r.Figure {
	case "7", "65", "43", "2", "9":
		return true
	}
	return r.Marker == MarkerHalfDiminished
}

// Inversion is the index of the bass among the chord tones
func (r RomanNumeral) Inversion() int {
	switch r.Figure {
	case "6", "65":
		return 1
	case "64", "43":
		return 2
	case "2":
		return 3
	}
	return 0
}

// WithFigure returns a copy carrying another inversion figure
func (r RomanNumeral) WithFigure(figure string) RomanNumeral {
	out := r.clone()
	out.Figure = figure
	return out
}

// WithoutExtensions drops the seventh, ninth and bracketed additions,
// keeping the triad and its inversion
func (r RomanNumeral) WithoutExtensions() RomanNumeral {
	out := r.clone()
	out.Additions = nil
	if r.Special != "" {
		return out
	}
	switch r.Figure {
	case "7", "9":
		out.Figure = ""
	case "65":
		out.Figure = "6"
	case "43":
		out.Figure = "64"
	case "2":
		out.Figure = ""
	}
	if out.Marker == MarkerHalfDiminished {
		out.Marker = MarkerDiminished
	}
	return out
}

// Base is the numeral without its secondary part
func (r RomanNumeral) Base() RomanNumeral {
	out := r.clone()
	out.Secondary = nil
	return out
}

func (r RomanNumeral) clone() RomanNumeral {
	out := r
	if r.Additions != nil {
		out.Additions = append([]string(nil), r.Additions...)
	}
	if r.Secondary != nil {
		sec := r.Secondary.clone()
		out.Secondary = &sec
	}
	return out
}

// Equal compares two numerals structurally
func (r RomanNumeral) Equal(o RomanNumeral) bool {
	return r.String() == o.String()
}

func (r RomanNumeral) String() string {
	var b strings.Builder
	if r.Special != "" {
		b.WriteString(r.Special)
	} else {
		for i := 0; i < r.Accidental; i++ {
			b.WriteByte('#')
		}
		for i := 0; i > r.Accidental; i-- {
			b.WriteByte('b')
		}
		name := numeralNames[r.Degree]
		if !r.Upper {
			name = strings.ToLower(name)
		}
		b.WriteString(name)
		b.WriteString(r.Marker)
	}
	b.WriteString(r.Figure)
	for _, a := range r.Additions {
		b.WriteString("[" + a + "]")
	}
	if r.Secondary != nil {
		b.WriteString("/" + r.Secondary.String())
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler
func (r RomanNumeral) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *RomanNumeral) UnmarshalText(text []byte) error {
	parsed, err := ParseRoman(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
