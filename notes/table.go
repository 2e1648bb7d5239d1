package notes

import (
	"sort"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/rational"
)

// Table is the canonical note list of a piece plus its metadata.
// Notes are kept sorted by onset, pitch, track and channel.
type Table struct {
	Notes []Note   `json:"notes"`
	Meta  Metadata `json:"meta"`
}

// NewTable sorts notes into canonical order
func NewTable(notes []Note, meta Metadata) *Table {
	t := &Table{Notes: append([]Note(nil), notes...), Meta: meta}
	if t.Meta.Tempo == 0 {
		t.Meta.Tempo = DefaultTempo
	}
	t.Sort()
	return t
}

// Sort restores canonical order
func (t *Table) Sort() {
	sort.SliceStable(t.Notes, func(i, j int) bool { return Less(t.Notes[i], t.Notes[j]) })
}

// Clone returns an independent copy
func (t *Table) Clone() *Table {
	return &Table{Notes: append([]Note(nil), t.Notes...), Meta: t.Meta.Clone()}
}

// Len is the number of notes
func (t *Table) Len() int {
	return len(t.Notes)
}

// Pitched returns the non-percussion notes
func (t *Table) Pitched() []Note {
	out := make([]Note, 0, len(t.Notes))
	for _, n := range t.Notes {
		if !n.Percussion {
			out = append(out, n)
		}
	}
	return out
}

// FirstOnset is the earliest onset, preferring pitched notes when any exist
func (t *Table) FirstOnset() rational.Rat {
	notes := t.Pitched()
	if len(notes) == 0 {
		notes = t.Notes
	}
	if len(notes) == 0 {
		return rational.Zero
	}
	first := notes[0].Onset
	for _, n := range notes[1:] {
		first = rational.Min(first, n.Onset)
	}
	return first
}

// LastOffset is the latest note end
func (t *Table) LastOffset() rational.Rat {
	if len(t.Notes) == 0 {
		return rational.Zero
	}
	last := t.Notes[0].Offset()
	for _, n := range t.Notes[1:] {
		last = rational.Max(last, n.Offset())
	}
	return last
}

// Tracks lists the track indices present, ascending
func (t *Table) Tracks() []int {
	seen := map[int]bool{}
	var out []int
	for _, n := range t.Notes {
		if !seen[n.Track] {
			seen[n.Track] = true
			out = append(out, n.Track)
		}
	}
	sort.Ints(out)
	return out
}

// TrackNotes returns the notes of one track in canonical order
func (t *Table) TrackNotes(track int) []Note {
	var out []Note
	for _, n := range t.Notes {
		if n.Track == track {
			out = append(out, n)
		}
	}
	return out
}

// Shift moves every onset and metadata position by delta
func (t *Table) Shift(delta rational.Rat) {
	if delta.IsZero() {
		return
	}
	for i := range t.Notes {
		t.Notes[i].Onset = t.Notes[i].Onset.Add(delta)
	}
	t.Meta.shift(delta)
}

// BarDuration is the bar length implied by the first time signature, 4 beats otherwise
func (t *Table) BarDuration() rational.Rat {
	if ts, ok := t.Meta.Meter(); ok {
		return ts.BarDuration()
	}
	return rational.FromInt(4)
}

// NormalizeAnacrusis shifts a table that starts before zero by whole bars
// until its first onset is non-negative, and returns the applied shift
func (t *Table) NormalizeAnacrusis() rational.Rat {
	if len(t.Notes) == 0 {
		return rational.Zero
	}
	first := t.Notes[0].Onset
	if first.Sign() >= 0 {
		return rational.Zero
	}
	d := t.BarDuration()
	bars := first.Neg().Div(d)
	n := bars.Floor()
	if !bars.Equal(rational.FromInt(n)) {
		n++
	}
	delta := d.MulInt(n)
	t.Shift(delta)
	return delta
}

// Validate rejects empty tables, non-positive durations and meter changes
// unless allowMeterChanges is set
func (t *Table) Validate(allowMeterChanges bool) error {
	if len(t.Notes) == 0 {
		return faults.Reject("note table is empty", "The input contains no notes.")
	}
	for _, n := range t.Notes {
		if n.Duration.Sign() <= 0 {
			return faults.Rejectf("note %s has non-positive duration", n)
		}
		if n.Pitch < 0 || n.Pitch > 127 {
			return faults.Rejectf("note pitch %d out of MIDI range", n.Pitch)
		}
	}
	if !allowMeterChanges && t.Meta.DistinctMeters() > 1 {
		return faults.Reject("multiple time signatures", "The input changes time signature, which is disallowed in strict bar mode.")
	}
	return nil
}
