package score

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func r(n, d int64) rational.Rat { return rational.New(n, d) }

func note(onset, dur rational.Rat, pitch, voice int) notes.Note {
	return notes.Note{Onset: onset, Duration: dur, Pitch: pitch, Velocity: 80, Voice: voice}
}

func cMajor(figure string) tonal.ChordCandidate {
	return tonal.ChordCandidate{Roman: theory.MustParseRoman(figure), Tonality: theory.NewTonality(0, theory.Major)}
}

func TestDynamicOf(t *testing.T) {
	assert.Equal(t, PPP, DynamicOf(0))
	assert.Equal(t, MF, DynamicOf(80))
	assert.Equal(t, MF, DynamicOf(88), "halfway goes softer")
	assert.Equal(t, F, DynamicOf(89))
	assert.Equal(t, FFF, DynamicOf(127))
	assert.Equal(t, 64, MP.Velocity())

	_, err := ParseDynamic("sfz")
	assert.Error(t, err)
}

func TestAssembleTiesAndSilences(t *testing.T) {
	meta := notes.Metadata{Tracks: []notes.TrackInfo{{Index: 0, Program: 0}, {Index: 1, Program: 33}}}
	bass := note(r(0, 1), r(6, 1), 36, 0)
	bass.Track = 1
	table := notes.NewTable([]notes.Note{
		note(r(1, 1), r(1, 1), 72, 0),
		note(r(2, 1), r(4, 1), 74, 0),
		note(r(3, 1), r(1, 2), 60, 1),
		bass,
	}, meta)
	bars := notes.UniformBars(rational.Zero, r(8, 1), r(4, 1))

	sc, err := NewAssembler().Assemble(context.Background(), table, bars, []tonal.ChordCandidate{cMajor("I"), cMajor("V")})
	require.NoError(t, err)
	require.Equal(t, 2, sc.Len())
	require.NoError(t, sc.Validate())
	assert.Equal(t, []string{"bass__0", "piano__0", "piano__1"}, sc.PartNames())

	top := sc.Chords[0].Parts["piano__0"]
	require.Len(t, top, 3)
	assert.Equal(t, Silence{Length: r(1, 1)}, top[0])
	assert.Equal(t, theory.Symbol{Degree: 0, Octave: 5}, top[1].(Pitched).Symbol)
	assert.True(t, top[2].Duration().Equal(r(2, 1)))

	next := sc.Chords[1].Parts["piano__0"]
	require.Len(t, next, 2)
	assert.IsType(t, Continuation{}, next[0])
	assert.True(t, next[0].Duration().Equal(r(2, 1)))
	assert.True(t, next[1].(Silence).Length.Equal(r(2, 1)))

	assert.True(t, sc.Chords[1].Parts["piano__1"].Rest())
	assert.Equal(t, 1, sc.Chords[0].Parts["bass__0"].Pitches())
}

func TestAssembleClipsAtNextNote(t *testing.T) {
	table := notes.NewTable([]notes.Note{
		note(r(0, 1), r(4, 1), 60, 0),
		note(r(1, 1), r(1, 1), 62, 0),
	}, notes.Metadata{})
	bars := notes.UniformBars(rational.Zero, r(4, 1), r(4, 1))

	sc, err := NewAssembler().Assemble(context.Background(), table, bars, []tonal.ChordCandidate{cMajor("I")})
	require.NoError(t, err)
	m := sc.Chords[0].Parts["piano__0"]
	require.Len(t, m, 3)
	assert.True(t, m[0].Duration().Equal(r(1, 1)))
	assert.True(t, m[2].Duration().Equal(r(2, 1)))
}

func TestAssembleRejectsMisalignedInput(t *testing.T) {
	table := notes.NewTable([]notes.Note{note(r(0, 1), r(1, 1), 60, 0)}, notes.Metadata{})
	_, err := NewAssembler().Assemble(context.Background(), table, nil, []tonal.ChordCandidate{cMajor("I")})
	assert.Error(t, err)
}

func TestToTableRoundTrip(t *testing.T) {
	table := notes.NewTable([]notes.Note{
		note(r(0, 1), r(1, 1), 64, 0),
		note(r(1, 1), r(5, 1), 67, 0),
		note(r(6, 1), r(3, 2), 65, 0),
	}, notes.Metadata{})
	bars := notes.UniformBars(rational.Zero, r(8, 1), r(4, 1))
	sc, err := NewAssembler().Assemble(context.Background(), table, bars, []tonal.ChordCandidate{cMajor("I"), cMajor("V7")})
	require.NoError(t, err)

	back := sc.ToTable()
	require.Len(t, back.Notes, 3)
	for i, n := range back.Notes {
		assert.True(t, n.Onset.Equal(table.Notes[i].Onset), n.String())
		assert.True(t, n.Duration.Equal(table.Notes[i].Duration), n.String())
		assert.Equal(t, table.Notes[i].Pitch, n.Pitch)
		assert.Equal(t, 80, n.Velocity)
	}
	ts, ok := back.Meta.Meter()
	require.True(t, ok)
	assert.Equal(t, "4/4", ts.String())
	assert.Equal(t, "piano__0", back.Meta.Tracks[0].Name)
}

func TestConcat(t *testing.T) {
	mk := func(figures ...string) Score {
		s := Score{BarDuration: r(4, 1)}
		for _, f := range figures {
			s.Chords = append(s.Chords, Chord{Roman: theory.MustParseRoman(f), Duration: r(4, 1)})
		}
		return s
	}
	a, b, c := mk("I"), mk("IV", "V"), mk("I")

	left := a.Concat(b).Concat(c)
	right := a.Concat(b.Concat(c))
	assert.Equal(t, left, right)
	assert.Equal(t, "I IV V I", left.String())
	assert.Equal(t, a, Score{}.Concat(a))
	assert.Equal(t, a, a.Concat(Score{}).Concat())
	assert.True(t, left.Duration().Equal(r(16, 1)))
}

func TestSymbolsFollowTheChordScale(t *testing.T) {
	table := notes.NewTable([]notes.Note{
		note(r(0, 1), r(4, 1), 66, 0),
		note(r(4, 1), r(4, 1), 65, 0),
	}, notes.Metadata{})
	bars := notes.UniformBars(rational.Zero, r(8, 1), r(4, 1))

	sc, err := NewAssembler().Assemble(context.Background(), table, bars, []tonal.ChordCandidate{cMajor("V7/V"), cMajor("IV")})
	require.NoError(t, err)
	names := sc.PartNames()
	require.Len(t, names, 1)

	gMajor := theory.NewTonality(7, theory.Major)
	tonicized := sc.Chords[0].Parts[names[0]][0].(Pitched).Symbol
	assert.Equal(t, gMajor.ParseSymbol(66), tonicized, "F# is the seventh degree of G")
	assert.Equal(t, 0, tonicized.Alter)
	assert.True(t, sc.Chords[0].Scale().SameKey(gMajor))

	plain := sc.Chords[1].Parts[names[0]][0].(Pitched).Symbol
	assert.Equal(t, theory.Symbol{Degree: 3, Octave: 4}, plain)

	nc := Chord{Tonality: theory.NewTonality(0, theory.Major), NoChord: true}
	assert.Equal(t, nc.Tonality.ParseSymbol(66), nc.ParsePitch(66), "N.C. reads in the tonality")
	assert.Equal(t, 66, nc.ToPitch(nc.ParsePitch(66)))

	var pitches []int
	for _, n := range sc.ToTable().Notes {
		pitches = append(pitches, n.Pitch)
	}
	assert.Equal(t, []int{66, 65}, pitches)
}

func TestTranspose(t *testing.T) {
	table := notes.NewTable([]notes.Note{
		note(r(0, 1), r(4, 1), 66, 0),
		note(r(4, 1), r(2, 1), 65, 0),
	}, notes.Metadata{})
	bars := notes.UniformBars(rational.Zero, r(8, 1), r(4, 1))
	sc, err := NewAssembler().Assemble(context.Background(), table, bars, []tonal.ChordCandidate{cMajor("V7/V"), cMajor("IV")})
	require.NoError(t, err)

	pitchesOf := func(s Score) []int {
		var out []int
		for _, n := range s.ToTable().Notes {
			out = append(out, n.Pitch)
		}
		return out
	}

	tests := []struct {
		semitones int
		tonic     int
		pitches   []int
	}{
		{0, 0, []int{66, 65}},
		{-3, 9, []int{63, 62}},
		{5, 5, []int{71, 70}},
		{13, 1, []int{79, 78}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.semitones), func(t *testing.T) {
			moved := sc.Transpose(tt.semitones)
			require.NoError(t, moved.Validate())
			assert.Equal(t, tt.pitches, pitchesOf(moved))
			for i := range sc.Chords {
				assert.Equal(t, sc.Chords[i].Label(), moved.Chords[i].Label())
			}
			assert.Equal(t, tt.tonic, moved.Chords[0].Tonality.Tonic)
			assert.True(t, moved.Chords[0].Scale().SameKey(theory.NewTonality((7+tt.semitones+24)%12, theory.Major)))
			assert.True(t, moved.Duration().Equal(sc.Duration()))
		})
	}

	// the rest after the IV survives and the original is untouched
	moved := sc.Transpose(2)
	names := moved.PartNames()
	require.Len(t, names, 1)
	assert.Equal(t, Silence{Length: r(2, 1)}, moved.Chords[1].Parts[names[0]][1])
	assert.Equal(t, []int{66, 65}, pitchesOf(sc))
}

func TestToTableAvoidsPercussionChannel(t *testing.T) {
	c := Chord{
		Roman:    theory.MustParseRoman("I"),
		Tonality: theory.NewTonality(0, theory.Major),
		Duration: r(4, 1),
		Parts:    make(map[string]Melody),
	}
	for i := 0; i < 24; i++ {
		c.Parts[fmt.Sprintf("piano__%d", i)] = Melody{Pitched{Symbol: theory.Symbol{Octave: 4}, Dynamic: MF, Length: r(4, 1)}}
	}
	table := Score{BarDuration: r(4, 1), Chords: []Chord{c}}.ToTable()

	require.Len(t, table.Meta.Tracks, 24)
	for _, tr := range table.Meta.Tracks {
		assert.NotEqual(t, notes.PercussionChannel, tr.Channel, tr.Name)
	}
	require.Len(t, table.Notes, 24)
	for _, n := range table.Notes {
		assert.NotEqual(t, notes.PercussionChannel, n.Channel, "no part lands on the drum channel")
	}
}

func TestMelodyJSON(t *testing.T) {
	m := Melody{
		Continuation{Length: r(1, 2)},
		Pitched{Symbol: theory.Symbol{Degree: 4, Alter: -1, Octave: 3}, Dynamic: P, Length: r(3, 2)},
		Silence{Length: r(2, 1)},
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"continuation"`)

	var back Melody
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m, back)

	assert.Error(t, json.Unmarshal([]byte(`[{"kind":"drum","duration":"1"}]`), &back))
}

func TestMeterOf(t *testing.T) {
	cases := map[string]rational.Rat{"4/4": r(4, 1), "3/4": r(3, 1), "3/8": r(3, 2), "9/8": r(9, 2)}
	for want, d := range cases {
		ts, ok := MeterOf(d)
		require.True(t, ok)
		assert.Equal(t, want, ts.String())
	}
	_, ok := MeterOf(rational.Zero)
	assert.False(t, ok)
}
