package transcode

import (
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/notes"
)

// readSMF parses a standard MIDI file. gomidi may panic on truncated
// input; the panic is returned as an error.
func readSMF(r io.Reader) (s *smf.SMF, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s, err = nil, fmt.Errorf("midi parser panic: %v", rec)
		}
	}()
	return smf.ReadFrom(r)
}

// keySignature reads a raw FF 59 meta event
func keySignature(msg smf.Message) (fifths int, minor, ok bool) {
	b := []byte(msg)
	if len(b) < 5 || b[0] != 0xFF || b[1] != 0x59 || b[2] != 0x02 {
		return 0, false, false
	}
	return int(int8(b[3])), b[4] == 1, true
}

func (d *Decoder) decodeMIDI(r io.Reader) (*notes.Table, error) {
	s, err := readSMF(r)
	if err != nil {
		return nil, faults.WrapRejected(err, "malformed MIDI file")
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, faults.Reject("SMPTE time format", "MIDI files with SMPTE timing are not supported.")
	}
	tpq := int(mt.Resolution())
	if tpq <= 0 {
		return nil, faults.Reject("zero ticks per quarter", "The MIDI header declares zero ticks per quarter note.")
	}

	b := notes.NewBuilder(tpq)
	meta := notes.Metadata{TicksPerBeat: tpq, Tempo: notes.DefaultTempo}
	split := d.config.SplitChannels && len(s.Tracks) == 1
	tracks := map[int]*notes.TrackInfo{}

	info := func(index, channel int) *notes.TrackInfo {
		ti, ok := tracks[index]
		if !ok {
			ti = &notes.TrackInfo{Index: index, Channel: channel}
			tracks[index] = ti
		}
		return ti
	}

	for ti, track := range s.Tracks {
		var tick int64
		var name string
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message

			var ch, key, vel, prog uint8
			var bpm float64
			var num, den uint8
			trackIndex := ti
			switch {
			case msg.GetNoteOn(&ch, &key, &vel):
				if split {
					trackIndex = int(ch)
				}
				info(trackIndex, int(ch))
				b.Add(notes.Event{Tick: tick, Kind: notes.NoteOn, Track: trackIndex, Channel: int(ch), Pitch: int(key), Velocity: int(vel)})
			case msg.GetNoteOff(&ch, &key, &vel):
				if split {
					trackIndex = int(ch)
				}
				b.Add(notes.Event{Tick: tick, Kind: notes.NoteOff, Track: trackIndex, Channel: int(ch), Pitch: int(key)})
			case msg.GetProgramChange(&ch, &prog):
				if split {
					trackIndex = int(ch)
				}
				info(trackIndex, int(ch)).Program = int(prog)
			case msg.GetMetaTempo(&bpm):
				at := b.Beats(tick)
				if at.IsZero() || len(meta.Tempos) == 0 {
					meta.Tempo = bpm
				}
				meta.Tempos = append(meta.Tempos, notes.TempoChange{At: at, BPM: bpm})
			case msg.GetMetaMeter(&num, &den):
				meta.TimeSignatures = append(meta.TimeSignatures, notes.TimeSignature{
					At: b.Beats(tick), Numerator: int(num), Denominator: int(den),
				})
			case msg.GetMetaTrackName(&name):
			default:
				if fifths, minor, ok := keySignature(msg); ok {
					meta.KeySignatures = append(meta.KeySignatures, notes.KeySignature{
						At: b.Beats(tick), Fifths: fifths, Minor: minor,
					})
				}
			}
		}
		if split {
			for ch := 0; ch < 16; ch++ {
				b.EndTrack(ch, tick)
			}
		} else {
			b.EndTrack(ti, tick)
			if name != "" {
				info(ti, 0).Name = name
			}
		}
	}

	for _, ti := range tracks {
		meta.Tracks = append(meta.Tracks, *ti)
	}
	sort.Slice(meta.Tracks, func(i, j int) bool { return meta.Tracks[i].Index < meta.Tracks[j].Index })
	meta.TimeSignatures = dedupeMeters(meta.TimeSignatures)
	sort.SliceStable(meta.Tempos, func(i, j int) bool { return meta.Tempos[i].At.Less(meta.Tempos[j].At) })
	sort.SliceStable(meta.KeySignatures, func(i, j int) bool { return meta.KeySignatures[i].At.Less(meta.KeySignatures[j].At) })

	table := b.Build(meta)
	for i := range table.Notes {
		if table.Notes[i].Velocity == 0 {
			table.Notes[i].Velocity = d.config.DefaultVelocity
		}
	}
	return table, nil
}

// dedupeMeters sorts meter events and drops repeats at the same position
func dedupeMeters(in []notes.TimeSignature) []notes.TimeSignature {
	sort.SliceStable(in, func(i, j int) bool { return in[i].At.Less(in[j].At) })
	var out []notes.TimeSignature
	for _, ts := range in {
		if n := len(out); n > 0 && out[n-1].At.Equal(ts.At) {
			out[n-1] = ts
			continue
		}
		out = append(out, ts)
	}
	return out
}
