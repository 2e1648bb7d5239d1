package notes

import (
	"fmt"

	"github.com/RyanBlaney/sonido-harmony/rational"
)

// DefaultTempo is the MIDI default of 120 quarter notes per minute
const DefaultTempo = 120.0

// TimeSignature is a meter change at a beat position
type TimeSignature struct {
	At          rational.Rat `json:"at"`
	Numerator   int          `json:"numerator"`
	Denominator int          `json:"denominator"`
}

// BarDuration is numerator * 4 / denominator quarter-note beats
func (ts TimeSignature) BarDuration() rational.Rat {
	if ts.Denominator <= 0 {
		return rational.FromInt(4)
	}
	return rational.New(int64(ts.Numerator*4), int64(ts.Denominator))
}

// SameMeter ignores the position
func (ts TimeSignature) SameMeter(o TimeSignature) bool {
	return ts.Numerator == o.Numerator && ts.Denominator == o.Denominator
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Numerator, ts.Denominator)
}

// TempoChange sets quarter notes per minute from a beat position on
type TempoChange struct {
	At  rational.Rat `json:"at"`
	BPM float64      `json:"bpm"`
}

// KeySignature is a key signature event; Fifths counts sharps (positive) or flats
type KeySignature struct {
	At     rational.Rat `json:"at"`
	Fifths int          `json:"fifths"`
	Minor  bool         `json:"minor"`
}

// TrackInfo carries per-track names and instruments
type TrackInfo struct {
	Index   int    `json:"index"`
	Name    string `json:"name,omitempty"`
	Program int    `json:"program"`
	Channel int    `json:"channel"`
}

// Metadata is everything the source says besides the notes
type Metadata struct {
	Source         string          `json:"source,omitempty"`
	Format         string          `json:"format,omitempty"`
	TicksPerBeat   int             `json:"ticks_per_beat,omitempty"`
	Tempo          float64         `json:"tempo"`
	Tempos         []TempoChange   `json:"tempos,omitempty"`
	TimeSignatures []TimeSignature `json:"time_signatures,omitempty"`
	KeySignatures  []KeySignature  `json:"key_signatures,omitempty"`
	Tracks         []TrackInfo     `json:"tracks,omitempty"`
	Bars           []Bar           `json:"bars,omitempty"`
	Shift          rational.Rat    `json:"shift"`
}

// Clone deep-copies the slices
func (m Metadata) Clone() Metadata {
	out := m
	out.Tempos = append([]TempoChange(nil), m.Tempos...)
	out.TimeSignatures = append([]TimeSignature(nil), m.TimeSignatures...)
	out.KeySignatures = append([]KeySignature(nil), m.KeySignatures...)
	out.Tracks = append([]TrackInfo(nil), m.Tracks...)
	out.Bars = append([]Bar(nil), m.Bars...)
	return out
}

// Meter returns the first time signature, if any
func (m Metadata) Meter() (TimeSignature, bool) {
	if len(m.TimeSignatures) == 0 {
		return TimeSignature{}, false
	}
	return m.TimeSignatures[0], true
}

// DistinctMeters counts time signatures that differ from their predecessor
func (m Metadata) DistinctMeters() int {
	n := 0
	for i, ts := range m.TimeSignatures {
		if i == 0 || !ts.SameMeter(m.TimeSignatures[i-1]) {
			n++
		}
	}
	return n
}

// Track looks up a track's info by index
func (m Metadata) Track(index int) (TrackInfo, bool) {
	for _, t := range m.Tracks {
		if t.Index == index {
			return t, true
		}
	}
	return TrackInfo{}, false
}

func (m *Metadata) shift(delta rational.Rat) {
	for i := range m.Tempos {
		m.Tempos[i].At = m.Tempos[i].At.Add(delta)
	}
	for i := range m.TimeSignatures {
		m.TimeSignatures[i].At = m.TimeSignatures[i].At.Add(delta)
	}
	for i := range m.KeySignatures {
		m.KeySignatures[i].At = m.KeySignatures[i].At.Add(delta)
	}
	for i := range m.Bars {
		m.Bars[i].Start = m.Bars[i].Start.Add(delta)
		m.Bars[i].End = m.Bars[i].End.Add(delta)
	}
	m.Shift = m.Shift.Add(delta)
}
