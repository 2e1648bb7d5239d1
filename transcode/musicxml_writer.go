package transcode

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/score"
)

const musicXMLDoctype = `<!DOCTYPE score-partwise PUBLIC "-//Recordare//DTD MusicXML 3.1 Partwise//EN" "http://www.musicxml.org/dtds/partwise.dtd">`

// EncodeMusicXML writes an analyzed score as partwise MusicXML. Each chord
// becomes one measure and its numeral is attached as a lyric to the first
// note of the first part.
func EncodeMusicXML(w io.Writer, sc *score.Score, title string) error {
	logger := logging.WithFields(logging.Fields{
		"component": "encoder",
		"function":  "EncodeMusicXML",
	})

	doc := buildXMLScore(sc, title)
	if _, err := io.WriteString(w, xml.Header+musicXMLDoctype+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write MusicXML: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	logger.Debug("MusicXML written", logging.Fields{
		"parts":    len(doc.Parts),
		"measures": sc.Len(),
	})
	return nil
}

// EncodeMXL writes the score as a compressed MusicXML archive
func EncodeMXL(w io.Writer, sc *score.Score, title string) error {
	var buf bytes.Buffer
	if err := EncodeMusicXML(&buf, sc, title); err != nil {
		return err
	}
	return writeMXL(w, "score.musicxml", buf.Bytes())
}

// divisionsOf is the smallest tick count per quarter that represents every
// duration in the score exactly
func divisionsOf(sc *score.Score) int64 {
	div := int64(1)
	add := func(r rational.Rat) {
		den := r.Den()
		div = div / gcd64(div, den) * den
	}
	for _, c := range sc.Chords {
		add(c.Duration)
		for _, m := range c.Parts {
			for _, tok := range m {
				add(tok.Duration())
			}
		}
	}
	return div
}

func gcd64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// partToken is one token of a part in score order
type partToken struct {
	chord int
	token score.Token
}

func buildXMLScore(sc *score.Score, title string) *xmlScore {
	doc := &xmlScore{Version: "3.1", Title: title}
	names := sc.PartNames()
	div := divisionsOf(sc)
	ticks := func(r rational.Rat) int {
		return int(r.MulInt(div).Num())
	}

	channel := 0
	for pi, name := range names {
		if channel == notes.PercussionChannel {
			channel++
		}
		id := "P" + strconv.Itoa(pi+1)
		doc.PartList = append(doc.PartList, xmlScorePart{
			ID:   id,
			Name: name,
			Instruments: []xmlMIDIInstrument{{
				ID:      id + "-I1",
				Channel: channel%16 + 1,
				Program: notes.FamilyProgram(familyOf(name)) + 1,
			}},
		})
		channel++

		var flat []partToken
		for ci, c := range sc.Chords {
			m, ok := c.Parts[name]
			if !ok {
				m = score.Melody{score.Silence{Length: c.Duration}}
			}
			for _, tok := range m {
				flat = append(flat, partToken{chord: ci, token: tok})
			}
		}

		part := xmlPart{ID: id}
		for ci := range sc.Chords {
			part.Measures = append(part.Measures, xmlMeasure{Number: strconv.Itoa(ci + 1)})
		}
		if len(part.Measures) > 0 {
			part.Measures[0].Events = append(part.Measures[0].Events, firstAttributes(sc, div))
		}

		var (
			open    *xmlPitch
			labeled = map[int]bool{}
		)
		for i, pt := range flat {
			c := sc.Chords[pt.chord]
			note := &xmlNote{Duration: ticks(pt.token.Duration()), Voice: "1"}
			tieOn := i+1 < len(flat)
			if tieOn {
				_, tieOn = flat[i+1].token.(score.Continuation)
			}

			switch v := pt.token.(type) {
			case score.Pitched:
				sp := c.Scale().Spell(c.ToPitch(v.Symbol))
				open = &xmlPitch{Step: string(sp.Step), Alter: float64(sp.Alter), Octave: sp.Octave}
				note.Pitch = open
				note.Dynamics = velocityDynamics(v.Dynamic.Velocity())
				if tieOn {
					note.tie("start")
				}
			case score.Continuation:
				if open == nil {
					note.Rest = &struct{}{}
					break
				}
				p := *open
				note.Pitch = &p
				note.tie("stop")
				if tieOn {
					note.tie("start")
				}
			case score.Silence:
				open = nil
				note.Rest = &struct{}{}
			}

			if pi == 0 && !labeled[pt.chord] {
				labeled[pt.chord] = true
				note.Lyrics = []xmlLyric{{Number: "1", Text: chordLyric(sc, pt.chord)}}
			}
			m := &part.Measures[pt.chord]
			m.Events = append(m.Events, note)
		}
		doc.Parts = append(doc.Parts, part)
	}
	return doc
}

func firstAttributes(sc *score.Score, div int64) *xmlAttributes {
	attrs := &xmlAttributes{Divisions: int(div)}
	if sc.Len() > 0 {
		k := sc.Chords[0].Tonality
		mode := "major"
		if k.Mode.IsMinor() {
			mode = "minor"
		}
		attrs.Key = &xmlKey{Fifths: k.KeySignature(), Mode: mode}
	}
	if ts, ok := score.MeterOf(sc.BarDuration); ok {
		attrs.Time = &xmlTime{Beats: strconv.Itoa(ts.Numerator), BeatType: ts.Denominator}
	}
	return attrs
}

// chordLyric prefixes the key when it changes, e.g. "C: I" then "V7"
func chordLyric(sc *score.Score, ci int) string {
	c := sc.Chords[ci]
	if ci > 0 && sc.Chords[ci-1].Tonality.SameKey(c.Tonality) {
		return c.Label()
	}
	return c.Tonality.RomanTextKey() + ": " + c.Label()
}

func (n *xmlNote) tie(kind string) {
	n.Ties = append(n.Ties, xmlTie{Type: kind})
	if n.Notations == nil {
		n.Notations = &xmlNotations{}
	}
	n.Notations.Tied = append(n.Notations.Tied, xmlTie{Type: kind})
}

// velocityDynamics inverts dynamicsVelocity
func velocityDynamics(velocity int) float64 {
	return float64(velocity) * 100 / 90
}

func familyOf(part string) string {
	if i := strings.LastIndex(part, "__"); i >= 0 {
		return part[:i]
	}
	return part
}
