package notes

import (
	"fmt"

	"github.com/RyanBlaney/sonido-harmony/rational"
)

// PercussionChannel is the General MIDI drum channel (0-based)
const PercussionChannel = 9

// Note is one sounding note. Onset and Duration are quarter-note beats.
type Note struct {
	Onset      rational.Rat `json:"onset"`
	Duration   rational.Rat `json:"duration"`
	Pitch      int          `json:"pitch"`
	Velocity   int          `json:"velocity"`
	Track      int          `json:"track"`
	Channel    int          `json:"channel"`
	Voice      int          `json:"voice"`
	Percussion bool         `json:"percussion,omitempty"`
}

// Offset is the end of the note
func (n Note) Offset() rational.Rat {
	return n.Onset.Add(n.Duration)
}

// PitchClass is the pitch modulo 12
func (n Note) PitchClass() int {
	pc := n.Pitch % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

// Overlap is the length of the note inside [start, end), zero if disjoint
func (n Note) Overlap(start, end rational.Rat) rational.Rat {
	lo := rational.Max(n.Onset, start)
	hi := rational.Min(n.Offset(), end)
	if !lo.Less(hi) {
		return rational.Zero
	}
	return hi.Sub(lo)
}

// Sounds reports whether the note is sounding at time t
func (n Note) Sounds(t rational.Rat) bool {
	return n.Onset.LessEq(t) && t.Less(n.Offset())
}

func (n Note) String() string {
	return fmt.Sprintf("note(pitch=%d onset=%s dur=%s track=%d ch=%d voice=%d)",
		n.Pitch, n.Onset, n.Duration, n.Track, n.Channel, n.Voice)
}

// Less orders notes by onset, then pitch, then track and channel
func Less(a, b Note) bool {
	if c := a.Onset.Cmp(b.Onset); c != 0 {
		return c < 0
	}
	if a.Pitch != b.Pitch {
		return a.Pitch < b.Pitch
	}
	if a.Track != b.Track {
		return a.Track < b.Track
	}
	if a.Channel != b.Channel {
		return a.Channel < b.Channel
	}
	return a.Duration.Less(b.Duration)
}
