package tonal

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// ModulationParams configures key-change detection
type ModulationParams struct {
	// MinBars is how long a new key must hold to count as established;
	// shorter visits are tonicizations
	MinBars int `json:"min_bars"`
}

// DefaultModulationParams establishes a key after two bars
func DefaultModulationParams() ModulationParams {
	return ModulationParams{MinBars: 2}
}

// Modulation is a change of local key at Bar
type Modulation struct {
	Bar         int                `json:"bar"`
	From        theory.Tonality    `json:"from"`
	To          theory.Tonality    `json:"to"`
	Relation    theory.KeyRelation `json:"relation"`
	Pivot       *theory.Pivot      `json:"pivot,omitempty"` // last chord of the old key read in the new one
	Length      int                `json:"length"`          // bars the new key holds
	Established bool               `json:"established"`
}

func (m Modulation) String() string {
	s := fmt.Sprintf("bar %d: %s -> %s (%s, %d bars)", m.Bar, m.From.Name(), m.To.Name(), m.Relation, m.Length)
	if m.Pivot != nil {
		s += ", pivot " + m.Pivot.String()
	}
	return s
}

// ModulationDetector reports where the resolved chords change key
type ModulationDetector struct {
	params ModulationParams
	logger logging.Logger
}

// NewModulationDetector creates a detector with default parameters
func NewModulationDetector() *ModulationDetector {
	return NewModulationDetectorWithParams(DefaultModulationParams())
}

// NewModulationDetectorWithParams creates a detector with custom parameters
func NewModulationDetectorWithParams(params ModulationParams) *ModulationDetector {
	if params.MinBars < 1 {
		params.MinBars = 1
	}
	return &ModulationDetector{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "modulation_detector",
		}),
	}
}

// Detect walks the chords and reports every key change. N.C. bars keep the
// current key and count toward the length of the key they sit in.
func (d *ModulationDetector) Detect(ctx context.Context, chords []ChordCandidate) ([]Modulation, error) {
	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Detect",
	})

	var out []Modulation
	current, last := -1, -1 // bar of the current key's chord and of the last chord
	for i, c := range chords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.NoChord {
			continue
		}
		if current < 0 || chords[current].Tonality.SameKey(c.Tonality) {
			if current < 0 {
				current = i
			}
			last = i
			continue
		}

		from := chords[current].Tonality
		m := Modulation{
			Bar:      i,
			From:     from,
			To:       c.Tonality,
			Relation: from.RelationTo(c.Tonality),
			Length:   d.holds(chords, i),
		}
		m.Established = m.Length >= d.params.MinBars
		if prev, err := theory.ChordOf(chords[last].Roman, chords[last].Tonality); err == nil {
			if p, ok := theory.PivotFor(prev, c.Tonality); ok {
				m.Pivot = &p
			}
		}
		out = append(out, m)

		fields := logging.Fields{
			"bar":         i,
			"from":        from.Name(),
			"to":          c.Tonality.Name(),
			"relation":    m.Relation.String(),
			"length":      m.Length,
			"established": m.Established,
		}
		if m.Pivot != nil {
			fields["pivot"] = m.Pivot.String()
		}
		logger.Debug("Key change", fields)

		current, last = i, i
	}
	return out, nil
}

// holds counts the bars from start that stay in its key, N.C. included
func (d *ModulationDetector) holds(chords []ChordCandidate, start int) int {
	key := chords[start].Tonality
	n := 0
	for _, c := range chords[start:] {
		if !c.NoChord && !c.Tonality.SameKey(key) {
			break
		}
		n++
	}
	return n
}
