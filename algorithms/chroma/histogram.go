package chroma

import (
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
)

// NoBass marks a bar without pitched notes
const NoBass = -1

// BarHistogram is the pitch-class content of one bar
type BarHistogram struct {
	Bar    notes.Bar        `json:"bar"`
	Vector PitchClassVector `json:"vector"` // L1 normalized
	Mass   float64          `json:"mass"`   // beats of sounding notes before normalization
	Bass   int              `json:"bass"`   // lowest sounding MIDI pitch or NoBass
}

// BassPitchClass returns the pitch class of the bass or NoBass
func (h BarHistogram) BassPitchClass() int {
	if h.Bass < 0 {
		return NoBass
	}
	return h.Bass % 12
}

// Empty reports a bar without pitched content
func (h BarHistogram) Empty() bool {
	return h.Mass <= 0
}

// HistogramBuilder accumulates note overlap per bar and pitch class
type HistogramBuilder struct {
	logger logging.Logger
}

// NewHistogramBuilder creates a builder
func NewHistogramBuilder() *HistogramBuilder {
	return &HistogramBuilder{
		logger: logging.WithFields(logging.Fields{
			"component": "histogram_builder",
		}),
	}
}

// Build returns one histogram per bar. Percussion notes are ignored.
func (hb *HistogramBuilder) Build(ns []notes.Note, bars []notes.Bar) []BarHistogram {
	out := make([]BarHistogram, len(bars))
	empty := 0
	for i, b := range bars {
		h := BarHistogram{Bar: b, Bass: NoBass}
		var raw PitchClassVector
		for _, n := range ns {
			if n.Percussion {
				continue
			}
			overlap := n.Overlap(b.Start, b.End)
			if overlap.Sign() <= 0 {
				continue
			}
			raw[n.PitchClass()] += overlap.Float64()
			if h.Bass == NoBass || n.Pitch < h.Bass {
				h.Bass = n.Pitch
			}
		}
		h.Mass = raw.Mass()
		h.Vector = raw.Normalized()
		if h.Empty() {
			empty++
		}
		out[i] = h
	}

	hb.logger.Debug("Pitch-class histograms built", logging.Fields{
		"function": "Build",
		"bars":     len(bars),
		"empty":    empty,
	})
	return out
}

// Vectors extracts the normalized vectors
func Vectors(hs []BarHistogram) []PitchClassVector {
	out := make([]PitchClassVector, len(hs))
	for i, h := range hs {
		out[i] = h.Vector
	}
	return out
}
