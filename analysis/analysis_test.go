package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/algorithms/voicing"
	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/theory"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

func beats(n int64) rational.Rat { return rational.FromInt(n) }

func chordAt(onset, dur int64, pitches ...int) []notes.Note {
	out := make([]notes.Note, len(pitches))
	for i, p := range pitches {
		out[i] = notes.Note{Onset: beats(onset), Duration: beats(dur), Pitch: p, Velocity: 80}
	}
	return out
}

func commonTime() notes.Metadata {
	return notes.Metadata{TimeSignatures: []notes.TimeSignature{{Numerator: 4, Denominator: 4}}}
}

func analyze(t *testing.T, table *notes.Table) *Result {
	t.Helper()
	a, err := NewAnalyzer(nil)
	require.NoError(t, err)
	res, err := a.Analyze(context.Background(), table)
	require.NoError(t, err)
	require.Equal(t, len(res.Bars), res.Score.Len(), "one chord per bar")
	require.NoError(t, res.Score.Validate())
	return res
}

func romans(res *Result) []string {
	out := make([]string, len(res.Chords))
	for i, c := range res.Chords {
		out[i] = c.Label()
	}
	return out
}

func decodedKeys(res *Result) []string {
	out := make([]string, len(res.Keys))
	for i, k := range res.Keys {
		out[i] = k.Name()
	}
	return out
}

func keyNames(res *Result) []string {
	out := make([]string, len(res.Chords))
	for i, c := range res.Chords {
		out[i] = c.Tonality.Name()
	}
	return out
}

func alternatingTriads() *notes.Table {
	var ns []notes.Note
	for bar := int64(0); bar < 8; bar++ {
		if bar%2 == 0 {
			ns = append(ns, chordAt(bar*4, 4, 60, 64, 67)...)
		} else {
			ns = append(ns, chordAt(bar*4, 4, 55, 59, 62)...)
		}
	}
	return notes.NewTable(ns, notes.Metadata{})
}

func TestTonicTriad(t *testing.T) {
	res := analyze(t, notes.NewTable(chordAt(0, 4, 60, 64, 67), notes.Metadata{}))

	require.Len(t, res.Bars, 1)
	assert.True(t, res.Bars[0].Duration().Equal(beats(4)))
	assert.Equal(t, "I", res.Chords[0].Roman.String())
	assert.Equal(t, "C major", res.Chords[0].Tonality.Name())
	assert.Equal(t, "", res.Chords[0].Extension)
	assert.Equal(t, 60, res.Histograms[0].Bass)
	assert.Empty(t, res.Degradations)
}

func TestDominantSeventhResolvesToF(t *testing.T) {
	ns := chordAt(0, 2, 48, 64, 67, 70)
	ns = append(ns, chordAt(2, 2, 53, 57, 60)...)
	res := analyze(t, notes.NewTable(ns, commonTime()))

	require.Len(t, res.Bars, 1)
	assert.True(t, res.Score.BarDuration.Equal(beats(4)))
	c := res.Chords[0]
	assert.Equal(t, "V7", c.Roman.String())
	assert.Equal(t, "F major", c.Tonality.Name())
	assert.Equal(t, theory.QualityDominant7, c.Quality)
	assert.Equal(t, 0.0, res.Switches)
}

func TestAlternatingTriadsStayInC(t *testing.T) {
	res := analyze(t, alternatingTriads())

	require.Len(t, res.Bars, 8)
	assert.Equal(t, []string{"I", "V", "I", "V", "I", "V", "I", "V"}, romans(res))
	for i, name := range keyNames(res) {
		assert.Equal(t, "C major", name, "bar %d", i)
	}
	assert.Equal(t, 0.0, res.Switches)

	// four-bar phrases both end on the dominant
	require.Len(t, res.Cadences, 2)
	for i, bar := range []int{3, 7} {
		assert.Equal(t, bar, res.Cadences[i].Bar)
		assert.Equal(t, theory.CadenceHalf, res.Cadences[i].Kind)
	}
	assert.Empty(t, res.Modulations)
}

func TestMinorProgressionAvoidsSwitches(t *testing.T) {
	var ns []notes.Note
	ns = append(ns, chordAt(0, 4, 57, 60, 64)...)
	ns = append(ns, chordAt(4, 4, 50, 53, 57)...)
	ns = append(ns, chordAt(8, 4, 43, 59, 62, 65)...)
	ns = append(ns, chordAt(12, 4, 48, 64, 67)...)
	res := analyze(t, notes.NewTable(ns, commonTime()))

	require.Len(t, res.Bars, 4)
	// one key covers all four chords, so the cheapest reading never switches
	assert.Equal(t, 0.0, res.Switches)
	assert.Equal(t, []string{"vi", "ii", "V7", "I"}, romans(res))
	assert.Equal(t, []string{"C major", "C major", "C major", "C major"}, keyNames(res))
	assert.Equal(t, []string{"A minor", "A minor", "C major", "C major"}, decodedKeys(res))

	assert.Equal(t, []theory.Function{theory.FunctionTonic, theory.FunctionPredominant, theory.FunctionDominant, theory.FunctionTonic}, res.Functions)
	require.Len(t, res.Cadences, 1)
	assert.Equal(t, 3, res.Cadences[0].Bar)
	// G sits on top of the final tonic
	assert.Equal(t, theory.CadenceImperfectAuthentic, res.Cadences[0].Kind)
	assert.Empty(t, res.Modulations)

	want := [][]int{{9, 0, 4}, {2, 5, 9}, {7, 11, 2, 5}, {0, 4, 7}}
	for i, c := range res.Score.Chords {
		ch, ok := c.Realize()
		require.True(t, ok)
		assert.ElementsMatch(t, want[i], ch.PitchClasses(), "bar %d", i)
	}
}

func TestFirstInversionFromBass(t *testing.T) {
	res := analyze(t, notes.NewTable(chordAt(0, 4, 40, 55, 60, 64), commonTime()))

	require.Len(t, res.Chords, 1)
	assert.Equal(t, 4, res.Histograms[0].BassPitchClass())
	assert.Equal(t, "I6", res.Chords[0].Roman.String())
	assert.Equal(t, "6", res.Chords[0].Extension)
	assert.Equal(t, "C major", res.Chords[0].Tonality.Name())
}

func TestAnacrusisStartsBeforeBarOne(t *testing.T) {
	ns := []notes.Note{{Onset: beats(-1), Duration: beats(1), Pitch: 67, Velocity: 80}}
	ns = append(ns, chordAt(0, 4, 60, 64, 67)...)
	res := analyze(t, notes.NewTable(ns, commonTime()))

	assert.True(t, res.Shift.Equal(beats(4)), res.Shift.String())
	require.Len(t, res.Bars, 2)
	assert.True(t, res.Bars[0].Duration().Equal(res.Grid.Duration))
	assert.True(t, res.Score.Start.Equal(beats(-4)), res.Score.Start.String())

	pickup := res.Score.Chords[0]
	for _, name := range pickup.PartNames() {
		m := pickup.Parts[name]
		require.NotEmpty(t, m)
		if m.Pitches() > 0 {
			assert.True(t, m[0].Duration().Equal(beats(3)), "rest before the pickup note")
		}
	}
	assert.Equal(t, "I", res.Chords[1].Roman.String())
	assert.Equal(t, []string{"C major", "C major"}, keyNames(res))

	rows := Rows(res, rational.New(1, 4))
	require.NotEmpty(t, rows)
	assert.True(t, rows[0].Offset.Equal(beats(-4)), "rows use the input's time")
}

func TestSingleNote(t *testing.T) {
	res := analyze(t, notes.NewTable(chordAt(0, 1, 60), notes.Metadata{}))

	require.Len(t, res.Chords, 1)
	c := res.Chords[0]
	assert.NotZero(t, c.Mask&1, "chord contains C: %s", c)
	assert.Contains(t, []theory.Quality{theory.QualityMajor, theory.QualityMinor}, c.Quality)
	assert.Equal(t, "I in C major", c.Interpretation().String())
	assert.Equal(t, []string{"C major"}, decodedKeys(res))
}

func TestEmptyBarDegrades(t *testing.T) {
	rec := logging.NewRecorder()
	prev := logging.GetGlobalLogger()
	logging.SetGlobalLogger(rec)
	defer logging.SetGlobalLogger(prev)

	ns := chordAt(0, 4, 60, 64, 67)
	ns = append(ns, chordAt(8, 4, 55, 59, 62)...)
	res := analyze(t, notes.NewTable(ns, commonTime()))

	require.Len(t, res.Bars, 3)
	assert.True(t, res.Chords[1].NoChord)
	assert.True(t, res.Score.Chords[1].NoChord)
	assert.True(t, res.Degraded(faults.InferenceDegenerate))
	require.Len(t, res.Degradations, 1)
	assert.Equal(t, 1, res.Degradations[0].Bar)
	assert.True(t, res.Keys[1].SameKey(res.Chords[1].Tonality), "N.C. carries the decoded key")

	var audited, warned int
	for _, e := range rec.Filter("component", "analyzer") {
		switch e.Msg {
		case "Bar analyzed":
			audited++
		case "Bar analyzed with fallbacks":
			warned++
			assert.Equal(t, 1, e.Fields["bar"])
		}
	}
	assert.Equal(t, 2, audited)
	assert.Equal(t, 1, warned)
}

func TestAnalyzeRejections(t *testing.T) {
	a, err := NewAnalyzer(nil)
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), notes.NewTable(nil, notes.Metadata{}))
	assert.True(t, faults.Is(err, faults.InputRejected), "%v", err)

	_, err = a.Analyze(context.Background(), nil)
	assert.True(t, faults.Is(err, faults.InputRejected))

	meters := notes.Metadata{TimeSignatures: []notes.TimeSignature{
		{Numerator: 4, Denominator: 4},
		{At: beats(4), Numerator: 3, Denominator: 4},
	}}
	_, err = a.Analyze(context.Background(), notes.NewTable(chordAt(0, 7, 60), meters))
	assert.True(t, faults.Is(err, faults.InputRejected))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Analyze(ctx, alternatingTriads())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeterministic(t *testing.T) {
	first := analyze(t, alternatingTriads())
	second := analyze(t, alternatingTriads())

	a, err := json.Marshal(first.Score)
	require.NoError(t, err)
	b, err := json.Marshal(second.Score)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.Voices, second.Voices)
}

func TestScoreMIDIRoundTrip(t *testing.T) {
	res := analyze(t, alternatingTriads())

	var buf bytes.Buffer
	require.NoError(t, transcode.EncodeMIDI(&buf, res.Score.ToTable()))

	a, err := NewAnalyzer(nil)
	require.NoError(t, err)
	again, err := a.AnalyzeReader(context.Background(), &buf, transcode.FormatMIDI)
	require.NoError(t, err)

	cmp, err := CompareScores(res.Score, again.Score, DefaultCompareParams())
	require.NoError(t, err)
	assert.Equal(t, cmp.BarsA, cmp.BarsB)
	assert.True(t, cmp.SameNotes)
	assert.True(t, cmp.Match)
	assert.InDelta(t, 0.0, cmp.Distance, 1e-12)
	assert.Equal(t, romans(res), romans(again))
}

func TestAnalyzeFileTagsSource(t *testing.T) {
	rec := logging.NewRecorder()
	prev := logging.GetGlobalLogger()
	logging.SetGlobalLogger(rec)
	defer logging.SetGlobalLogger(prev)

	path := filepath.Join(t.TempDir(), "triads.mid")
	var buf bytes.Buffer
	require.NoError(t, transcode.EncodeMIDI(&buf, alternatingTriads()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	a, err := NewAnalyzer(nil)
	require.NoError(t, err)
	_, err = a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	entries := rec.Filter("component", "analyzer")
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, path, e.Fields["source"], e.Msg)
	}
}

func TestCompareScoresDetectsDifferences(t *testing.T) {
	long := analyze(t, alternatingTriads())
	short := analyze(t, notes.NewTable(chordAt(0, 4, 60, 64, 67), notes.Metadata{}))

	cmp, err := CompareScores(long.Score, short.Score, DefaultCompareParams())
	require.NoError(t, err)
	assert.False(t, cmp.Match)
	assert.False(t, cmp.SameNotes)
	assert.Equal(t, 8, cmp.BarsA)
	assert.Equal(t, 1, cmp.BarsB)
	assert.Greater(t, cmp.Distance, 0.0)
}

func TestRows(t *testing.T) {
	res := analyze(t, notes.NewTable(chordAt(0, 4, 60, 64, 67), notes.Metadata{}))

	rows := Rows(res, rational.New(1, 4))
	require.Len(t, rows, 16)
	first := rows[0]
	assert.True(t, first.ChordChange)
	assert.Equal(t, 60, first.Bass)
	assert.Equal(t, "G4", first.Soprano)
	assert.Equal(t, "E4", first.Alto)
	assert.Equal(t, "", first.Tenor)
	assert.Equal(t, "C4", first.BassNote)
	assert.Equal(t, "C major", first.LocalKey)
	assert.Equal(t, "C major", first.TonicizedKey)
	assert.Equal(t, "I", first.Roman)
	assert.Equal(t, 0, first.Inversion)
	assert.Equal(t, "maj", first.Quality)
	assert.Equal(t, []int{0, 4, 7}, first.PitchClasses)
	assert.Equal(t, "C", first.Symbol)
	assert.False(t, rows[1].ChordChange)
	assert.True(t, rows[5].Offset.Equal(rational.New(5, 4)))

	var buf bytes.Buffer
	require.NoError(t, WriteRowsTSV(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 17)
	assert.Equal(t, strings.Join(RowColumns, "\t"), lines[0])

	back, err := ReadRowsTSV(&buf)
	require.NoError(t, err)
	require.Len(t, back, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].Record(), back[i].Record(), "row %d", i)
	}

	_, err = ReadRowsTSV(strings.NewReader("offset\tbar\n"))
	assert.True(t, faults.Is(err, faults.InputRejected))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harmony.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"key": {"profile": "aarden"},
		"table": {"row_step": "1/2", "normalize_anacrusis": false},
		"resolver": {"key_distance_weight": 0.5, "prefer_decoded_key": true},
		"cadence": {"phrase_length": 8},
		"modulation": {"min_bars": 3}
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "aarden", cfg.Key.Profile)
	assert.True(t, cfg.Resolver.PreferDecodedKey)
	assert.True(t, cfg.Table.RowStep.Equal(rational.New(1, 2)))
	assert.False(t, cfg.Table.NormalizeAnacrusis)
	assert.Equal(t, 0.5, cfg.Resolver.KeyDistanceWeight)
	assert.Equal(t, 0.2, cfg.Chord.BassBonus, "defaults survive")
	assert.Equal(t, "krumhansl", DefaultConfig().Key.Profile)
	assert.Equal(t, 8, cfg.Cadence.PhraseLength)
	assert.False(t, cfg.Cadence.Anywhere)
	assert.Equal(t, 3, cfg.Modulation.MinBars)
	assert.Equal(t, 12, cfg.Leading.MaxSpacing, "defaults survive")

	t.Setenv(ConfigEnv, path)
	fromEnv, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, cfg, fromEnv)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"key": {"profile": "shaath"}}`), 0o644))
	_, err = LoadConfig(bad)
	assert.True(t, faults.Is(err, faults.InputRejected))

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	t.Setenv(ConfigEnv, "")
	def, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), def)
}

func TestConfigRejectsHarmonicLimits(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative phrase length", func(c *Config) { c.Cadence.PhraseLength = -1 }},
		{"zero modulation length", func(c *Config) { c.Modulation.MinBars = 0 }},
		{"negative spacing", func(c *Config) { c.Leading.MaxSpacing = -2 }},
		{"negative leap", func(c *Config) { c.Leading.LeapThreshold = -1 }},
		{"negative embellishment gap", func(c *Config) { c.Embellish.MaxGap = beats(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			assert.True(t, faults.Is(err, faults.InputRejected), "%v", err)
		})
	}
}

func TestAnalyzerUsesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Table.NormalizeAnacrusis = false
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	ns := []notes.Note{{Onset: beats(-1), Duration: beats(1), Pitch: 67, Velocity: 80}}
	ns = append(ns, chordAt(0, 4, 60, 64, 67)...)
	res, err := a.Analyze(context.Background(), notes.NewTable(ns, commonTime()))
	require.NoError(t, err)
	assert.True(t, res.Shift.IsZero())
	assert.True(t, res.Bars[0].Start.Equal(beats(-4)))
	assert.True(t, res.Score.Start.Equal(beats(-4)))
	assert.False(t, a.Config().Decoder.NormalizeAnacrusis, "table options reach the decoder")

	cfg.Key.Profile = "unknown"
	_, err = NewAnalyzer(cfg)
	assert.True(t, faults.Is(err, faults.InputRejected))
}

func resolved(t *testing.T, figure, keyName string) tonal.ChordCandidate {
	t.Helper()
	k, err := theory.ParseTonality(keyName)
	require.NoError(t, err)
	c, err := theory.NewChord(figure, k)
	require.NoError(t, err)
	return tonal.ChordCandidate{RootPC: c.Root(), Quality: c.Quality(), Roman: c.Roman, Tonality: k, Mask: c.Mask()}
}

func TestHarmonicReport(t *testing.T) {
	chords := []tonal.ChordCandidate{
		resolved(t, "I", "C major"),
		resolved(t, "vi", "C major"),
		resolved(t, "V", "G major"),
		resolved(t, "I", "G major"),
		resolved(t, "V7", "C major"),
		resolved(t, "I", "C major"),
	}
	// bass, tenor and soprano per bar
	voicings := [][3]int{
		{48, 55, 64},
		{45, 52, 60},
		{50, 54, 66},
		{43, 59, 67},
		{43, 53, 65},
		{48, 52, 60},
	}
	var ns []notes.Note
	for bar, v := range voicings {
		for voice, pitch := range v {
			n := chordAt(int64(bar)*4, 4, pitch)[0]
			n.Voice = voice
			if bar == 0 && voice == 2 {
				// E D into the C of the next bar
				n.Duration = beats(2)
				passing := chordAt(2, 2, 62)[0]
				passing.Voice = voice
				ns = append(ns, passing)
			}
			ns = append(ns, n)
		}
	}
	res := &Result{
		Chords: chords,
		Table:  notes.NewTable(ns, notes.Metadata{}),
		Bars:   notes.UniformBars(rational.Zero, beats(24), beats(4)),
		Shift:  rational.Zero,
	}

	a, err := NewAnalyzer(nil)
	require.NoError(t, err)
	require.NoError(t, a.report(context.Background(), res))

	assert.Equal(t, []theory.Function{
		theory.FunctionTonic, theory.FunctionTonic, theory.FunctionDominant,
		theory.FunctionTonic, theory.FunctionDominant, theory.FunctionTonic,
	}, res.Functions)

	require.Len(t, res.Cadences, 2)
	assert.Equal(t, 3, res.Cadences[0].Bar)
	assert.Equal(t, theory.CadencePerfectAuthentic, res.Cadences[0].Kind)
	assert.Equal(t, "G major", res.Cadences[0].Key.Name())
	assert.Equal(t, 5, res.Cadences[1].Bar)
	assert.Equal(t, theory.CadencePerfectAuthentic, res.Cadences[1].Kind)
	assert.Equal(t, theory.CadenceNone, res.CadenceAt(1))

	require.Len(t, res.Modulations, 2)
	up, back := res.Modulations[0], res.Modulations[1]
	assert.Equal(t, 2, up.Bar)
	assert.Equal(t, theory.RelationDominant, up.Relation)
	assert.True(t, up.Established)
	require.NotNil(t, up.Pivot)
	assert.Equal(t, "vi = ii", up.Pivot.String())
	assert.Equal(t, 4, back.Bar)
	assert.Equal(t, theory.RelationSubdominant, back.Relation)
	require.NotNil(t, back.Pivot)
	assert.Equal(t, "I = V", back.Pivot.String())

	assert.Equal(t, []voicing.LeadingIssue{{
		Bar:   1,
		Error: theory.ParallelFifths,
		Lower: voicing.VoiceID{Voice: 0},
		Upper: voicing.VoiceID{Voice: 1},
	}}, res.Leading)

	require.Len(t, res.Embellished, 1)
	assert.Equal(t, 62, res.Embellished[0].Pitch)
	assert.Equal(t, 0, res.Embellished[0].Bar)
	assert.Equal(t, theory.PassingTone, res.Embellished[0].Kind)

	rows := Rows(res, beats(1))
	require.Len(t, rows, 24)
	assert.Equal(t, "PAC", rows[12].Cadence)
	assert.Equal(t, "T", rows[12].Function)
	assert.Equal(t, "", rows[13].Cadence)
	assert.Equal(t, "D", rows[8].Function)
	assert.Equal(t, "D", rows[8].Symbol)
	assert.Equal(t, "G7", rows[16].Symbol)

	sum := Summarize(res)
	assert.Equal(t, 6, sum.Bars)
	assert.Equal(t, "C major", sum.Key)
	assert.Equal(t, []Share{{"C major", 4, 4.0 / 6}, {"G major", 2, 2.0 / 6}}, sum.Keys)
	require.Len(t, sum.Chords, 5)
	assert.Equal(t, Share{"C: I", 2, 2.0 / 6}, sum.Chords[0])
	assert.Equal(t, "C: V7", sum.Chords[1].Label)
	assert.InDelta(t, 1.5607, sum.ChordEntropy, 1e-3)
	assert.InDelta(t, 0.9697, sum.ChordEvenness, 1e-3)
	assert.Equal(t, 1.0, sum.ChangeRate)
	assert.Equal(t, map[string]int{"T": 4, "D": 2}, sum.Functions)
	assert.Equal(t, map[string]int{"PAC": 2}, sum.Cadences)
	assert.Equal(t, 2, sum.Modulations)
	assert.Equal(t, 2, sum.Established)
	assert.Equal(t, map[string]int{"PT": 1}, sum.NonChordTones)
	assert.Equal(t, map[string]int{"parallel_fifths": 1}, sum.VoiceLeading)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sum))
	assert.Contains(t, buf.String(), "C major")
	assert.Contains(t, buf.String(), "PAC 2")
	assert.Contains(t, buf.String(), "2 (2 established)")
}

func TestSummarizeEmptyReport(t *testing.T) {
	res := analyze(t, notes.NewTable(chordAt(0, 4, 60, 64, 67), notes.Metadata{}))

	sum := Summarize(res)
	assert.Equal(t, 1, sum.Bars)
	assert.Equal(t, "C major", sum.Key)
	assert.Equal(t, 0.0, sum.ChordEntropy)
	assert.Equal(t, 0.0, sum.ChangeRate)
	assert.Empty(t, sum.Cadences)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sum))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 12)
	assert.True(t, strings.HasPrefix(lines[7], "cadences"))
	assert.True(t, strings.HasSuffix(lines[7], " -"), lines[7])
}
