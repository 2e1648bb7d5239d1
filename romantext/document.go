// Package romantext reads and writes RomanText harmonic annotations.
//
// A document is a header block followed by measure lines:
//
//	Composer: J. S. Bach
//	Time Signature: 3/4
//
//	m1 G: I b2 V6 b3 I
//	m2 e: i ||
//
// Chord durations are not written; they follow from the beat positions of
// consecutive chords and the meter in effect.
package romantext

import (
	"fmt"

	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// Header holds the metadata lines of a document
type Header struct {
	Composer    string   `json:"composer,omitempty"`
	Title       string   `json:"title,omitempty"`
	Movement    string   `json:"movement,omitempty"`
	Analyst     string   `json:"analyst,omitempty"`
	Proofreader string   `json:"proofreader,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// Meter is a time signature taking effect at a bar
type Meter struct {
	Bar         int `json:"bar"`
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// DefaultMeter applies before the first Time Signature line
var DefaultMeter = Meter{Bar: 0, Numerator: 4, Denominator: 4}

// Compound reports meters counted in dotted beats, such as 6/8 or 12/8
func (m Meter) Compound() bool {
	return m.Denominator >= 8 && m.Numerator > 3 && m.Numerator%3 == 0
}

// BarDuration in quarter-note beats
func (m Meter) BarDuration() rational.Rat {
	return rational.New(int64(4*m.Numerator), int64(m.Denominator))
}

// BeatDuration is the span of one counted beat in quarter notes
func (m Meter) BeatDuration() rational.Rat {
	if m.Compound() {
		return rational.New(12, int64(m.Denominator))
	}
	return rational.New(4, int64(m.Denominator))
}

func (m Meter) String() string {
	return fmt.Sprintf("%d/%d", m.Numerator, m.Denominator)
}

// Entry is one chord of the analysis. Beat counts from 1 at the downbeat.
type Entry struct {
	Bar   int                 `json:"bar"`
	Beat  rational.Rat        `json:"beat"`
	Key   theory.Tonality     `json:"key"`
	Roman theory.RomanNumeral `json:"roman"`
}

func (e Entry) String() string {
	return fmt.Sprintf("m%d b%s %s: %s", e.Bar, formatBeat(e.Beat), e.Key.RomanTextKey(), e.Roman)
}

// Document is a parsed RomanText file
type Document struct {
	Header  Header  `json:"header"`
	Meters  []Meter `json:"meters,omitempty"`
	Entries []Entry `json:"entries"`
}

// InitialKey is the key of the first chord
func (d *Document) InitialKey() (theory.Tonality, bool) {
	if len(d.Entries) == 0 {
		return theory.Tonality{}, false
	}
	return d.Entries[0].Key, true
}

// Transpose returns a copy with every key moved by semitones. Numerals are
// relative to their keys and stay as written.
func (d *Document) Transpose(semitones int) *Document {
	out := &Document{
		Header:  d.Header,
		Meters:  append([]Meter(nil), d.Meters...),
		Entries: make([]Entry, len(d.Entries)),
	}
	for i, e := range d.Entries {
		e.Key = e.Key.Transpose(semitones)
		out.Entries[i] = e
	}
	return out
}

// MeterAt returns the meter in effect at bar
func (d *Document) MeterAt(bar int) Meter {
	m := DefaultMeter
	for _, x := range d.Meters {
		if x.Bar > bar {
			break
		}
		m = x
	}
	return m
}

// Span is an entry placed on the timeline in quarter-note beats from the
// downbeat of bar 1
type Span struct {
	Entry
	Start    rational.Rat
	Duration rational.Rat
}

// barStart is the position of bar's downbeat relative to bar 1
func (d *Document) barStart(bar int) rational.Rat {
	pos := rational.Zero
	for b := 1; b < bar; b++ {
		pos = pos.Add(d.MeterAt(b).BarDuration())
	}
	for b := bar; b < 1; b++ {
		pos = pos.Sub(d.MeterAt(b).BarDuration())
	}
	return pos
}

// Timeline places every entry and derives its duration from the next one.
// The last chord lasts until the end of its bar.
func (d *Document) Timeline() ([]Span, error) {
	out := make([]Span, len(d.Entries))
	for i, e := range d.Entries {
		m := d.MeterAt(e.Bar)
		if e.Beat.Less(rational.FromInt(1)) {
			return nil, fmt.Errorf("m%d: beat %s before the downbeat", e.Bar, formatBeat(e.Beat))
		}
		offset := e.Beat.Sub(rational.FromInt(1)).Mul(m.BeatDuration())
		if !offset.Less(m.BarDuration()) {
			return nil, fmt.Errorf("m%d: beat %s beyond a bar of %s", e.Bar, formatBeat(e.Beat), m)
		}
		out[i] = Span{Entry: e, Start: d.barStart(e.Bar).Add(offset)}
		if i > 0 && !out[i-1].Start.Less(out[i].Start) {
			return nil, fmt.Errorf("m%d b%s does not follow the previous chord", e.Bar, formatBeat(e.Beat))
		}
	}
	for i := range out {
		var end rational.Rat
		if i+1 < len(out) {
			end = out[i+1].Start
		} else {
			end = d.barStart(out[i].Bar + 1)
		}
		out[i].Duration = end.Sub(out[i].Start)
	}
	return out, nil
}
