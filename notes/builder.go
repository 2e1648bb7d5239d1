package notes

import (
	"sort"

	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/rational"
)

// EventKind distinguishes note starts from note ends
type EventKind int

const (
	NoteOff EventKind = iota
	NoteOn
)

// Event is a raw note event in ticks. A NoteOn with velocity 0 is a NoteOff.
type Event struct {
	Tick     int64     `json:"tick"`
	Kind     EventKind `json:"kind"`
	Track    int       `json:"track"`
	Channel  int       `json:"channel"`
	Pitch    int       `json:"pitch"`
	Velocity int       `json:"velocity"`
}

type voiceKey struct {
	track, channel, pitch int
}

type pending struct {
	tick     int64
	velocity int
}

// Builder pairs raw note events into notes. Pairing is first-in first-out per
// (track, channel, pitch); offs sort before ons at the same tick.
type Builder struct {
	ticksPerBeat int64
	events       []Event
	trackEnds    map[int]int64
	extra        []Note
}

// NewBuilder creates a builder for a tick resolution
func NewBuilder(ticksPerBeat int) *Builder {
	if ticksPerBeat <= 0 {
		ticksPerBeat = 480
	}
	return &Builder{ticksPerBeat: int64(ticksPerBeat), trackEnds: make(map[int]int64)}
}

// Add queues one event
func (b *Builder) Add(ev Event) {
	if ev.Kind == NoteOn && ev.Velocity == 0 {
		ev.Kind = NoteOff
	}
	b.events = append(b.events, ev)
	if ev.Tick > b.trackEnds[ev.Track] {
		b.trackEnds[ev.Track] = ev.Tick
	}
}

// EndTrack records where a track ends; dangling notes are closed there
func (b *Builder) EndTrack(track int, tick int64) {
	if tick > b.trackEnds[track] {
		b.trackEnds[track] = tick
	}
}

// AddNote adds an already paired note
func (b *Builder) AddNote(n Note) {
	b.extra = append(b.extra, n)
}

// Beats converts a tick position to quarter-note beats
func (b *Builder) Beats(tick int64) rational.Rat {
	return rational.New(tick, b.ticksPerBeat)
}

// Build pairs the events and returns the sorted table
func (b *Builder) Build(meta Metadata) *Table {
	logger := logging.WithFields(logging.Fields{
		"component": "note_builder",
		"function":  "Build",
	})

	events := append([]Event(nil), b.events...)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Tick != events[j].Tick {
			return events[i].Tick < events[j].Tick
		}
		return events[i].Kind < events[j].Kind
	})

	open := make(map[voiceKey][]pending)
	out := append([]Note(nil), b.extra...)
	orphans, dropped := 0, 0

	emit := func(k voiceKey, p pending, end int64) {
		if end <= p.tick {
			dropped++
			return
		}
		out = append(out, Note{
			Onset:      b.Beats(p.tick),
			Duration:   b.Beats(end - p.tick),
			Pitch:      k.pitch,
			Velocity:   p.velocity,
			Track:      k.track,
			Channel:    k.channel,
			Percussion: k.channel == PercussionChannel,
		})
	}

	for _, ev := range events {
		k := voiceKey{ev.Track, ev.Channel, ev.Pitch}
		switch ev.Kind {
		case NoteOn:
			open[k] = append(open[k], pending{tick: ev.Tick, velocity: ev.Velocity})
		case NoteOff:
			queue := open[k]
			if len(queue) == 0 {
				orphans++
				continue
			}
			emit(k, queue[0], ev.Tick)
			open[k] = queue[1:]
		}
	}

	keys := make([]voiceKey, 0, len(open))
	for k := range open {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, c := keys[i], keys[j]
		if a.track != c.track {
			return a.track < c.track
		}
		if a.channel != c.channel {
			return a.channel < c.channel
		}
		return a.pitch < c.pitch
	})
	dangling := 0
	for _, k := range keys {
		for _, p := range open[k] {
			dangling++
			emit(k, p, b.trackEnds[k.track])
		}
	}

	if meta.TicksPerBeat == 0 {
		meta.TicksPerBeat = int(b.ticksPerBeat)
	}
	table := NewTable(out, meta)
	logger.Debug("Note table built", logging.Fields{
		"events":         len(events),
		"notes":          table.Len(),
		"orphan_offs":    orphans,
		"dangling_ons":   dangling,
		"dropped_zero":   dropped,
		"ticks_per_beat": b.ticksPerBeat,
	})
	return table
}
