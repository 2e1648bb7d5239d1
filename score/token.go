package score

import (
	"encoding/json"
	"fmt"

	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// Token is one element of a melody: Pitched, Silence or Continuation
type Token interface {
	Duration() rational.Rat
	String() string
	token()
}

// Pitched is a sounding note written relative to the chord's tonality
type Pitched struct {
	Symbol  theory.Symbol `json:"symbol"`
	Dynamic Dynamic       `json:"dynamic"`
	Length  rational.Rat  `json:"duration"`
}

// Silence is a rest
type Silence struct {
	Length rational.Rat `json:"duration"`
}

// Continuation ties into the previous pitched token of the part
type Continuation struct {
	Length rational.Rat `json:"duration"`
}

func (p Pitched) Duration() rational.Rat      { return p.Length }
func (s Silence) Duration() rational.Rat      { return s.Length }
func (c Continuation) Duration() rational.Rat { return c.Length }

func (Pitched) token()      {}
func (Silence) token()      {}
func (Continuation) token() {}

func (p Pitched) String() string {
	return fmt.Sprintf("%s:%s:%s", p.Symbol, p.Dynamic, p.Length)
}

func (s Silence) String() string { return "r:" + s.Length.String() }

func (c Continuation) String() string { return "~:" + c.Length.String() }

// Melody is the token sequence of one part inside one chord
type Melody []Token

// Duration sums the token durations
func (m Melody) Duration() rational.Rat {
	total := rational.Zero
	for _, t := range m {
		total = total.Add(t.Duration())
	}
	return total
}

// Pitches counts the pitched tokens
func (m Melody) Pitches() int {
	n := 0
	for _, t := range m {
		if _, ok := t.(Pitched); ok {
			n++
		}
	}
	return n
}

// Rest reports a melody without pitched or tied content
func (m Melody) Rest() bool {
	for _, t := range m {
		if _, ok := t.(Silence); !ok {
			return false
		}
	}
	return true
}

type tokenJSON struct {
	Kind     string         `json:"kind"`
	Symbol   *theory.Symbol `json:"symbol,omitempty"`
	Dynamic  Dynamic        `json:"dynamic,omitempty"`
	Duration rational.Rat   `json:"duration"`
}

// MarshalJSON writes tokens with a kind discriminator
func (m Melody) MarshalJSON() ([]byte, error) {
	out := make([]tokenJSON, len(m))
	for i, t := range m {
		switch v := t.(type) {
		case Pitched:
			sym := v.Symbol
			out[i] = tokenJSON{Kind: "pitched", Symbol: &sym, Dynamic: v.Dynamic, Duration: v.Length}
		case Silence:
			out[i] = tokenJSON{Kind: "silence", Duration: v.Length}
		case Continuation:
			out[i] = tokenJSON{Kind: "continuation", Duration: v.Length}
		default:
			return nil, fmt.Errorf("unknown token %T", t)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the kind-discriminated form
func (m *Melody) UnmarshalJSON(data []byte) error {
	var raw []tokenJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Melody, len(raw))
	for i, r := range raw {
		switch r.Kind {
		case "pitched":
			if r.Symbol == nil {
				return fmt.Errorf("token %d: pitched token without symbol", i)
			}
			out[i] = Pitched{Symbol: *r.Symbol, Dynamic: r.Dynamic, Length: r.Duration}
		case "silence":
			out[i] = Silence{Length: r.Duration}
		case "continuation":
			out[i] = Continuation{Length: r.Duration}
		default:
			return fmt.Errorf("token %d: unknown kind %q", i, r.Kind)
		}
	}
	*m = out
	return nil
}
