package transcode

import (
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
)

// DefaultTicksPerBeat is the resolution written when a table carries none
const DefaultTicksPerBeat = 480

type timedMessage struct {
	tick  int64
	order int // offs before ons at equal ticks
	msg   []byte
}

// EncodeMIDI writes a note table as a format-1 standard MIDI file: a
// conductor track with tempo, meter and key events, then one track per
// note-table track.
func EncodeMIDI(w io.Writer, table *notes.Table) error {
	tpq := table.Meta.TicksPerBeat
	if tpq <= 0 {
		tpq = DefaultTicksPerBeat
	}
	toTick := func(r rational.Rat) int64 {
		return r.MulInt(int64(tpq)).Quantize(1).Num()
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(tpq)

	var conductor []timedMessage
	tempo := table.Meta.Tempo
	if tempo <= 0 {
		tempo = notes.DefaultTempo
	}
	if len(table.Meta.Tempos) == 0 || table.Meta.Tempos[0].At.Sign() > 0 {
		conductor = append(conductor, timedMessage{0, 0, smf.MetaTempo(tempo)})
	}
	for _, tc := range table.Meta.Tempos {
		conductor = append(conductor, timedMessage{toTick(tc.At), 0, smf.MetaTempo(tc.BPM)})
	}
	for _, ts := range table.Meta.TimeSignatures {
		conductor = append(conductor, timedMessage{toTick(ts.At), 1, smf.MetaMeter(uint8(ts.Numerator), uint8(ts.Denominator))})
	}
	for _, ks := range table.Meta.KeySignatures {
		mi := byte(0)
		if ks.Minor {
			mi = 1
		}
		conductor = append(conductor, timedMessage{toTick(ks.At), 2, []byte{0xFF, 0x59, 0x02, byte(int8(ks.Fifths)), mi}})
	}
	if err := addTrack(s, conductor); err != nil {
		return err
	}

	for _, track := range table.Tracks() {
		var msgs []timedMessage
		info, _ := table.Meta.Track(track)
		if info.Name != "" {
			msgs = append(msgs, timedMessage{0, 0, smf.MetaTrackSequenceName(info.Name)})
		}
		programmed := map[int]bool{}
		for _, n := range table.TrackNotes(track) {
			if n.Onset.Sign() < 0 {
				return fmt.Errorf("note at negative onset %s cannot be written", n.Onset)
			}
			ch := uint8(n.Channel & 0x0F)
			if !programmed[n.Channel] && n.Channel != notes.PercussionChannel {
				programmed[n.Channel] = true
				msgs = append(msgs, timedMessage{0, 1, midi.ProgramChange(ch, uint8(info.Program&0x7F))})
			}
			vel := n.Velocity
			if vel <= 0 {
				vel = 64
			}
			msgs = append(msgs,
				timedMessage{toTick(n.Onset), 3, midi.NoteOn(ch, uint8(n.Pitch), uint8(vel))},
				timedMessage{toTick(n.Offset()), 2, midi.NoteOff(ch, uint8(n.Pitch))},
			)
		}
		if err := addTrack(s, msgs); err != nil {
			return err
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write MIDI: %w", err)
	}
	return nil
}

func addTrack(s *smf.SMF, msgs []timedMessage) error {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].order < msgs[j].order
	})
	var tr smf.Track
	var last int64
	for _, m := range msgs {
		tr.Add(uint32(m.tick-last), m.msg)
		last = m.tick
	}
	tr.Close(0)
	return s.Add(tr)
}
