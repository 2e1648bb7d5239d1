package theory

import (
	"testing"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalBetween(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Spelling
		want     string
		compound bool
	}{
		{"perfect fifth", Spelling{Step: 'C', Octave: 4}, Spelling{Step: 'G', Octave: 4}, "P5", false},
		{"minor sixth", Spelling{Step: 'E', Octave: 4}, Spelling{Step: 'C', Octave: 5}, "m6", false},
		{"tritone as fourth", Spelling{Step: 'F', Octave: 4}, Spelling{Step: 'B', Octave: 4}, "A4", false},
		{"tritone as fifth", Spelling{Step: 'B', Octave: 3}, Spelling{Step: 'F', Octave: 4}, "d5", false},
		{"major tenth", Spelling{Step: 'C', Octave: 4}, Spelling{Step: 'E', Octave: 5}, "M10", true},
		{"octave", Spelling{Step: 'C', Octave: 4}, Spelling{Step: 'C', Octave: 5}, "P8", false},
		{"descending fifth", Spelling{Step: 'G', Octave: 4}, Spelling{Step: 'C', Octave: 4}, "-P5", false},
		{"augmented unison", Spelling{Step: 'C', Octave: 4}, Spelling{Step: 'C', Alter: 1, Octave: 4}, "A1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := IntervalBetween(tt.a, tt.b)
			assert.Equal(t, tt.want, iv.String())
			assert.Equal(t, tt.compound, iv.Compound())
			assert.Equal(t, tt.b.Pitch()-tt.a.Pitch(), iv.Semitones)
		})
	}
}

func TestIntervalInTonality(t *testing.T) {
	c := NewTonality(0, Major)
	assert.Equal(t, "d5", c.Interval(71, 77).Name())
	assert.Equal(t, "M3", c.Interval(60, 64).Name())

	// the same semitones spell differently in another key
	fSharp := NewTonality(6, Major)
	assert.Equal(t, "A4", fSharp.Interval(59, 65).Name())
}

func TestIntervalSimpleAndInvert(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("P1", MustParseInterval("P8").Simple().Name())
	assert.Equal("M3", MustParseInterval("M10").Simple().Name())
	assert.Equal("m6", MustParseInterval("M3").Invert().Name())
	assert.Equal("A4", MustParseInterval("d5").Invert().Name())
	assert.Equal("P8", MustParseInterval("P1").Invert().Name())
}

func TestIntervalConsonance(t *testing.T) {
	tests := []struct {
		name       string
		perfect    bool
		consonance bool
	}{
		{"P1", true, true},
		{"P5", true, true},
		{"P12", true, true},
		{"M3", false, true},
		{"m6", false, true},
		{"m10", false, true},
		{"P4", false, false},
		{"A4", false, false},
		{"d5", false, false},
		{"M2", false, false},
		{"m7", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := MustParseInterval(tt.name)
			assert.Equal(t, tt.perfect, iv.IsPerfectConsonance())
			assert.Equal(t, tt.consonance, iv.IsConsonant())
		})
	}
}

func TestParseInterval(t *testing.T) {
	for _, name := range []string{"P1", "m2", "M2", "m3", "M3", "P4", "A4", "d5", "P5", "m6", "M6", "m7", "M7", "P8", "M9", "m10", "P12", "-P4"} {
		iv, err := ParseInterval(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, iv.String())
	}
	assert.Equal(t, Interval{Steps: 3, Semitones: 6}, MustParseInterval("A4"))

	for _, bad := range []string{"P3", "M5", "x", "m0", ""} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, bad)
	}
}

func TestRomanFunction(t *testing.T) {
	tests := map[string]Function{
		"I":       FunctionTonic,
		"vi":      FunctionTonic,
		"iii":     FunctionTonic,
		"ii7":     FunctionPredominant,
		"IV":      FunctionPredominant,
		"N6":      FunctionPredominant,
		"Ger65":   FunctionPredominant,
		"V7":      FunctionDominant,
		"viio7":   FunctionDominant,
		"Cad64":   FunctionDominant,
		"V7/V":    FunctionPredominant,
		"viio7/V": FunctionPredominant,
		"V/vi":    FunctionApplied,
		"V7/IV":   FunctionApplied,
		"V/V/V":   FunctionApplied,
	}
	for figure, want := range tests {
		assert.Equal(t, want, MustParseRoman(figure).Function(), figure)
	}

	assert.Equal(t, "PD", FunctionPredominant.Label())
	f, err := ParseFunction("D")
	require.NoError(t, err)
	assert.Equal(t, FunctionDominant, f)
	f, err = ParseFunction("tonic")
	require.NoError(t, err)
	assert.Equal(t, FunctionTonic, f)
	_, err = ParseFunction("X")
	assert.Error(t, err)
}

func mustChord(t *testing.T, figure string, key Tonality) Chord {
	t.Helper()
	c, err := NewChord(figure, key)
	require.NoError(t, err, figure)
	return c
}

func TestClassifyCadence(t *testing.T) {
	c := NewTonality(0, Major)
	g := NewTonality(7, Major)
	a := NewTonality(9, Minor)

	tests := []struct {
		name    string
		prev    string
		prevKey Tonality
		next    string
		key     Tonality
		soprano int
		want    Cadence
	}{
		{"perfect authentic", "V", c, "I", c, 0, CadencePerfectAuthentic},
		{"seventh chord dominant", "V7", c, "I", c, 0, CadencePerfectAuthentic},
		{"third in the soprano", "V", c, "I", c, 4, CadenceImperfectAuthentic},
		{"inverted dominant", "V6", c, "I", c, 0, CadenceImperfectAuthentic},
		{"leading-tone chord", "viio6", c, "I", c, 0, CadenceImperfectAuthentic},
		{"unknown soprano", "V", c, "I", c, NoSoprano, CadenceImperfectAuthentic},
		{"minor tonic", "V7", a, "i", a, 9, CadencePerfectAuthentic},
		{"deceptive", "V", c, "vi", c, 0, CadenceDeceptive},
		{"deceptive to mixture", "V7", c, "bVI", c, 8, CadenceDeceptive},
		{"plagal", "IV", c, "I", c, 0, CadencePlagal},
		{"half", "ii", c, "V", c, 2, CadenceHalf},
		{"half after cadential six-four", "Cad64", c, "V", c, 2, CadenceHalf},
		{"half after applied dominant", "V/V", c, "V", c, 7, CadenceHalf},
		{"phrygian half", "iv6", a, "V", a, 11, CadencePhrygianHalf},
		{"dominant seventh is no arrival", "I", c, "V7", c, 5, CadenceNone},
		{"key change", "V", g, "I", c, 0, CadenceNone},
		{"tonicized arrival", "ii", c, "V/V", c, 2, CadenceNone},
		{"applied dominant into tonic", "V/IV", c, "IV", c, 5, CadenceNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyCadence(Arrival{
				Prev:    mustChord(t, tt.prev, tt.prevKey),
				Next:    mustChord(t, tt.next, tt.key),
				Soprano: tt.soprano,
			})
			assert.Equal(t, tt.want, got, got.String())
		})
	}

	assert.True(t, CadencePerfectAuthentic.Authentic())
	assert.False(t, CadenceHalf.Authentic())
	parsed, err := ParseCadence("PHC")
	require.NoError(t, err)
	assert.Equal(t, CadencePhrygianHalf, parsed)
	none, err := ParseCadence("")
	require.NoError(t, err)
	assert.Equal(t, CadenceNone, none)
}

func TestKeyRelation(t *testing.T) {
	c := NewTonality(0, Major)
	tests := []struct {
		to   Tonality
		want KeyRelation
	}{
		{NewTonality(0, Major), RelationSame},
		{NewTonality(9, Minor), RelationRelative},
		{NewTonality(0, Minor), RelationParallel},
		{NewTonality(0, MelodicMinor), RelationParallel},
		{NewTonality(7, Major), RelationDominant},
		{NewTonality(5, Major), RelationSubdominant},
		{NewTonality(4, Minor), RelationClose},
		{NewTonality(2, Minor), RelationClose},
		{NewTonality(9, Major), RelationChromaticMediant},
		{NewTonality(8, Major), RelationChromaticMediant},
		{NewTonality(6, Major), RelationDistant},
	}
	for _, tt := range tests {
		t.Run(tt.to.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, c.RelationTo(tt.to), c.RelationTo(tt.to).String())
		})
	}

	a := NewTonality(9, Minor)
	assert.Equal(t, RelationRelative, a.RelationTo(c))
	assert.Equal(t, RelationDominant, a.RelationTo(NewTonality(4, Minor)))
	assert.True(t, c.CloselyRelated(NewTonality(4, Minor)))
	assert.False(t, c.CloselyRelated(NewTonality(0, Minor)))
}

func TestPivotChords(t *testing.T) {
	c := NewTonality(0, Major)

	assert.Len(t, c.DiatonicChords(), 7)
	assert.Len(t, NewTonality(9, Minor).DiatonicChords(), 9)

	var names []string
	for _, p := range PivotChords(c, NewTonality(7, Major)) {
		names = append(names, p.String())
	}
	assert.Equal(t, []string{"I = IV", "iii = vi", "V = I", "vi = ii"}, names)
	assert.Len(t, PivotChords(c, NewTonality(9, Minor)), 7)

	p, ok := PivotFor(mustChord(t, "vi7", c), NewTonality(7, Major))
	require.True(t, ok)
	assert.Equal(t, "ii", p.To.String())

	_, ok = PivotFor(mustChord(t, "V7/V", c), NewTonality(7, Major))
	assert.False(t, ok)
	_, ok = PivotFor(mustChord(t, "IV", c), NewTonality(7, Major))
	assert.False(t, ok)
}

func TestMotionOf(t *testing.T) {
	assert.Equal(t, MotionParallel, MotionOf(48, 60, 50, 62))
	assert.Equal(t, MotionContrary, MotionOf(48, 60, 50, 59))
	assert.Equal(t, MotionOblique, MotionOf(48, 60, 48, 62))
	assert.Equal(t, MotionSimilar, MotionOf(48, 60, 50, 64))
	assert.Equal(t, MotionStatic, MotionOf(48, 60, 48, 60))
}

func TestCheckVoiceLeading(t *testing.T) {
	rules := DefaultLeadingRules()
	tests := []struct {
		name       string
		prev, next []int
		want       []LeadingIssue
	}{
		{
			name: "parallel fifths in the lower voices",
			prev: []int{48, 55, 64, 72},
			next: []int{50, 57, 65, 72},
			want: []LeadingIssue{{Error: ParallelFifths, Lower: 0, Upper: 1}},
		},
		{
			name: "parallel octaves",
			prev: []int{48, 60},
			next: []int{50, 62},
			want: []LeadingIssue{{Error: ParallelOctaves, Lower: 0, Upper: 1}},
		},
		{
			name: "repeated octave",
			prev: []int{48, 60},
			next: []int{48, 60},
		},
		{
			name: "direct fifth with a leaping soprano",
			prev: []int{48, 64},
			next: []int{50, 69},
			want: []LeadingIssue{{Error: DirectFifths, Lower: 0, Upper: 1}},
		},
		{
			name: "stepwise soprano into a fifth",
			prev: []int{50, 71},
			next: []int{53, 72},
		},
		{
			name: "crossing",
			prev: []int{48, 55, 64},
			next: []int{48, 65, 64},
			want: []LeadingIssue{{Error: VoiceCrossing, Lower: 1, Upper: 2}},
		},
		{
			name: "overlap",
			prev: []int{48, 60, 64},
			next: []int{48, 65, 67},
			want: []LeadingIssue{{Error: VoiceOverlap, Lower: 1, Upper: 2}},
		},
		{
			name: "wide upper spacing",
			prev: []int{36, 48, 64, 79},
			next: []int{36, 48, 64, 79},
			want: []LeadingIssue{
				{Error: WideSpacing, Lower: 1, Upper: 2},
				{Error: WideSpacing, Lower: 2, Upper: 3},
			},
		},
		{
			name: "silent voice",
			prev: []int{48, Silent},
			next: []int{50, 62},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckVoiceLeading(tt.prev, tt.next, rules))
		})
	}

	noSpacing := rules
	noSpacing.MaxSpacing = 0
	assert.Empty(t, CheckVoiceLeading([]int{36, 48, 64, 79}, []int{36, 48, 64, 79}, noSpacing))
}

func TestChordSymbolOfNumerals(t *testing.T) {
	tests := []struct {
		figure string
		key    string
		want   string
	}{
		{"I", "C major", "C"},
		{"I6", "C major", "C/E"},
		{"V7", "C major", "G7"},
		{"V65", "C major", "G7/B"},
		{"viio6", "C major", "Bdim/D"},
		{"V7/V", "C major", "D7"},
		{"bVI", "C major", "Ab"},
		{"IV", "F major", "Bb"},
		{"I[add9]", "C major", "C(add9)"},
		{"i", "F# minor", "F#m"},
		{"V", "F# minor", "C#"},
		{"viio7", "C minor", "Bdim7"},
		{"iiø7", "C minor", "Dm7b5"},
	}
	for _, tt := range tests {
		t.Run(tt.figure+" in "+tt.key, func(t *testing.T) {
			key, err := ParseTonality(tt.key)
			require.NoError(t, err)
			c := mustChord(t, tt.figure, key)
			sym := c.Symbol()
			assert.Equal(t, tt.want, sym.String())
			assert.Equal(t, c.Mask(), sym.Mask())
			assert.Equal(t, c.Bass(), sym.BassClass())
		})
	}
}

func TestParseChordSymbol(t *testing.T) {
	tests := []struct {
		text    string
		pcs     []int
		quality Quality
		canon   string
	}{
		{"F#m7b5", []int{6, 9, 0, 4}, QualityHalfDiminished7, "F#m7b5"},
		{"G7/B", []int{11, 7, 2, 5}, QualityDominant7, "G7/B"},
		{"Bb", []int{10, 2, 5}, QualityMajor, "Bb"},
		{"Cm(maj7)", []int{0, 3, 7, 11}, QualityMinorMajor7, "Cm(maj7)"},
		{"Am(add9)", []int{9, 11, 0, 4}, QualityMinor, "Am(add9)"},
		{"Ebsus", []int{3, 8, 10}, QualitySus4, "Ebsus4"},
		{"CΔ7", []int{0, 4, 7, 11}, QualityMajor7, "Cmaj7"},
		{"Bbø", []int{10, 1, 4, 8}, QualityHalfDiminished7, "Bbm7b5"},
		{"C/D", []int{2, 0, 4, 7}, QualityMajor, "C/D"},
		{"C(3,5)", []int{0, 4, 7}, QualityOther, "C(3,5)"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s, err := ParseChordSymbol(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.quality, s.Quality)
			assert.Equal(t, tt.pcs, s.PitchClasses())
			assert.Equal(t, tt.canon, s.String())

			again, err := ParseChordSymbol(s.String())
			require.NoError(t, err)
			assert.Equal(t, s.Mask(), again.Mask())
		})
	}

	for _, bad := range []string{"", "H7", "Cxyz", "C(add10)", "C/", "C(add9", "C/E7"} {
		_, err := ParseChordSymbol(bad)
		assert.True(t, faults.Is(err, faults.InputRejected), "%q: %v", bad, err)
	}
}

func TestChordSymbolInterpretations(t *testing.T) {
	s, err := ParseChordSymbol("G7")
	require.NoError(t, err)

	in := s.Interpretations(DefaultVocabulary(), NewTonality(0, Major))
	require.NotEmpty(t, in)
	assert.Equal(t, "C major", in[0].Tonality.Name())
	assert.Equal(t, "V7", in[0].Roman.String())
	for _, i := range in {
		assert.Equal(t, s.Mask(), i.Chord().Mask())
	}
}

func TestClassifyTone(t *testing.T) {
	tests := []struct {
		name string
		ctx  ToneContext
		want Embellishment
	}{
		{"chord tone", ToneContext{Prev: 60, Pitch: 64, Next: 67, ChordTone: true}, ChordTone},
		{"passing up", ToneContext{Prev: 60, Pitch: 62, Next: 64, PrevChordTone: true, NextChordTone: true}, PassingTone},
		{"chromatic passing down", ToneContext{Prev: 64, Pitch: 63, Next: 62, PrevChordTone: true, NextChordTone: true}, PassingTone},
		{"upper neighbor", ToneContext{Prev: 67, Pitch: 69, Next: 67, PrevChordTone: true, NextChordTone: true}, NeighborTone},
		{"lower neighbor", ToneContext{Prev: 60, Pitch: 59, Next: 60, PrevChordTone: true, NextChordTone: true}, NeighborTone},
		{"suspension", ToneContext{Prev: 72, Pitch: 72, Next: 71, PrevChordTone: true, NextChordTone: true}, Suspension},
		{"retardation", ToneContext{Prev: 71, Pitch: 71, Next: 72, PrevChordTone: true, NextChordTone: true}, Retardation},
		{"appoggiatura", ToneContext{Prev: 60, Pitch: 69, Next: 67, PrevChordTone: true, NextChordTone: true}, Appoggiatura},
		{"escape tone", ToneContext{Prev: 64, Pitch: 65, Next: 60, PrevChordTone: true, NextChordTone: true}, EscapeTone},
		{"anticipation", ToneContext{Prev: 67, Pitch: 72, Next: 72, PrevChordTone: true, NextChordTone: true}, Anticipation},
		{"pedal", ToneContext{Prev: 48, Pitch: 48, Next: 48}, PedalTone},
		{"unresolved", ToneContext{Prev: 60, Pitch: 62, Next: Silent, PrevChordTone: true}, UnclassifiedTone},
		{"after a rest", ToneContext{Prev: Silent, Pitch: 62, Next: 64, NextChordTone: true}, UnclassifiedTone},
		{"into a non-chord tone", ToneContext{Prev: 60, Pitch: 62, Next: 65, PrevChordTone: true}, UnclassifiedTone},
		{"leap both ways", ToneContext{Prev: 60, Pitch: 66, Next: 71, PrevChordTone: true, NextChordTone: true}, UnclassifiedTone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTone(tt.ctx))
		})
	}
}

func TestEmbellishmentText(t *testing.T) {
	for e := ChordTone; e <= UnclassifiedTone; e++ {
		text, err := e.MarshalText()
		require.NoError(t, err)
		var back Embellishment
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, e, back)
	}
	e, err := ParseEmbellishment("SUS")
	require.NoError(t, err)
	assert.Equal(t, Suspension, e)
	_, err = ParseEmbellishment("trill")
	assert.Error(t, err)
}
