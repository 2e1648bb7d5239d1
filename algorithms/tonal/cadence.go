package tonal

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// CadenceParams configures cadence detection
type CadenceParams struct {
	// PhraseLength ends a phrase every n bars counted from the first. Zero
	// leaves rests, key changes and the final bar as the only phrase ends.
	PhraseLength int `json:"phrase_length"`
	// Anywhere reports cadential progressions inside phrases as well
	Anywhere bool `json:"anywhere"`
}

// DefaultCadenceParams assumes four-bar phrases
func DefaultCadenceParams() CadenceParams {
	return CadenceParams{PhraseLength: 4}
}

// Cadence is a phrase ending arriving at Bar
type Cadence struct {
	Bar  int             `json:"bar"`
	Kind theory.Cadence  `json:"kind"`
	Key  theory.Tonality `json:"key"`
}

func (c Cadence) String() string {
	return fmt.Sprintf("bar %d: %s in %s", c.Bar, c.Kind, c.Key.Name())
}

// CadenceDetector finds phrase endings in a resolved chord sequence
type CadenceDetector struct {
	params CadenceParams
	logger logging.Logger
}

// NewCadenceDetector creates a detector with default parameters
func NewCadenceDetector() *CadenceDetector {
	return NewCadenceDetectorWithParams(DefaultCadenceParams())
}

// NewCadenceDetectorWithParams creates a detector with custom parameters
func NewCadenceDetectorWithParams(params CadenceParams) *CadenceDetector {
	if params.PhraseLength < 0 {
		params.PhraseLength = 0
	}
	return &CadenceDetector{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "cadence_detector",
		}),
	}
}

// PhraseEnd reports whether bar i closes a phrase: the last bar, a bar
// before a rest or a key change, or the end of a phrase-length block
func (d *CadenceDetector) PhraseEnd(chords []ChordCandidate, i int) bool {
	if i == len(chords)-1 {
		return true
	}
	next := chords[i+1]
	if next.NoChord || !next.Tonality.SameKey(chords[i].Tonality) {
		return true
	}
	return d.params.PhraseLength > 0 && (i+1)%d.params.PhraseLength == 0
}

// Detect classifies the progression into every phrase end. sopranos holds
// the top pitch class per bar, theory.NoSoprano where nothing sounds, and
// may be shorter than chords.
func (d *CadenceDetector) Detect(ctx context.Context, chords []ChordCandidate, sopranos []int) ([]Cadence, error) {
	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Detect",
	})

	var out []Cadence
	for i := 1; i < len(chords); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev, next := chords[i-1], chords[i]
		if prev.NoChord || next.NoChord {
			continue
		}
		if !d.params.Anywhere && !d.PhraseEnd(chords, i) {
			continue
		}

		a, errA := theory.ChordOf(prev.Roman, prev.Tonality)
		b, errB := theory.ChordOf(next.Roman, next.Tonality)
		if errA != nil || errB != nil {
			logger.Debug("Skipping unrealizable chord pair", logging.Fields{"bar": i})
			continue
		}
		soprano := theory.NoSoprano
		if i < len(sopranos) {
			soprano = sopranos[i]
		}

		kind := theory.ClassifyCadence(theory.Arrival{Prev: a, Next: b, Soprano: soprano})
		if kind == theory.CadenceNone {
			continue
		}
		out = append(out, Cadence{Bar: i, Kind: kind, Key: next.Tonality})
		logger.Debug("Cadence found", logging.Fields{
			"bar":     i,
			"cadence": kind.Label(),
			"key":     next.Tonality.Name(),
			"from":    prev.Label(),
			"to":      next.Label(),
		})
	}
	return out, nil
}
