package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	assert := assert.New(t)

	cases := map[string]Tonality{
		"C":  NewTonality(0, Major),
		"Bb": NewTonality(10, Major),
		"f#": NewTonality(6, Minor),
		"e-": NewTonality(3, Minor),
		"a:": NewTonality(9, Minor),
	}
	for token, want := range cases {
		got, err := ParseKey(token)
		require.NoError(t, err, token)
		assert.True(want.SameKey(got), token)
	}

	_, err := ParseKey("H")
	assert.Error(err)

	mel, err := ParseTonality("A melodic minor")
	require.NoError(t, err)
	assert.Equal(MelodicMinor, mel.Mode)
	assert.Equal(9, mel.Tonic)
	assert.Equal("A melodic minor", mel.Name())
}

func TestTonalityIndex(t *testing.T) {
	for i := 0; i < NumKeys; i++ {
		assert.Equal(t, i, TonalityFromIndex(i).Index())
	}
	assert.Equal(t, 12+9, NewTonality(9, Minor).Index())
}

func TestKeySignature(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(0, NewTonality(9, Minor).KeySignature())
	assert.Equal(-3, NewTonality(3, Major).KeySignature())
	assert.Equal(6, NewTonality(6, Major).KeySignature())
	assert.Equal(1, NewTonality(0, Major).FifthsDistance(NewTonality(7, Major)))
	assert.Equal(6, NewTonality(0, Major).FifthsDistance(NewTonality(6, Major)))
	assert.Equal(0, NewTonality(0, Major).FifthsDistance(NewTonality(9, Minor)))
}

func TestTranspose(t *testing.T) {
	b := Tonality{Tonic: 11, Mode: Major, Octave: 4}
	up := b.Transpose(2)
	assert.Equal(t, 1, up.Tonic)
	assert.Equal(t, 5, up.Octave)
}

func TestSymbolRoundTrip(t *testing.T) {
	for i := 0; i < NumKeys; i++ {
		key := TonalityFromIndex(i)
		for p := 0; p < 128; p++ {
			s := key.ParseSymbol(p)
			require.Equal(t, p, key.ToPitch(s), "%s pitch %d -> %s", key, p, s)
			require.True(t, s.Alter >= -1 && s.Alter <= 1)
		}
	}
}

func TestParseSymbolPrefersFlats(t *testing.T) {
	c := NewTonality(0, Major)
	assert.Equal(t, Symbol{Degree: 6, Alter: -1, Octave: 4}, c.ParseSymbol(70))
	assert.Equal(t, Symbol{Degree: 3, Alter: 1, Octave: 4}, c.ParseSymbol(66))

	a := NewTonality(9, Minor)
	// G# in A minor is the raised seventh
	assert.Equal(t, Symbol{Degree: 6, Alter: 1, Octave: 4}, a.ParseSymbol(80))
}

func TestSpell(t *testing.T) {
	assert := assert.New(t)

	cs := NewTonality(1, Minor)
	s := cs.Spell(60)
	assert.Equal("B#3", s.String())
	assert.Equal(60, s.Pitch())

	db := NewTonality(1, Major)
	s = db.Spell(71)
	assert.Equal("Cb5", s.String())
	assert.Equal(71, s.Pitch())

	assert.Equal("Bb4", NewTonality(0, Major).Spell(70).String())
	assert.Equal("A#4", NewTonality(6, Major).Spell(70).String())

	for i := 0; i < NumKeys; i++ {
		key := TonalityFromIndex(i)
		for p := 21; p <= 108; p++ {
			assert.Equal(p, key.Spell(p).Pitch())
		}
	}
}

func TestParsePitchName(t *testing.T) {
	p, err := ParsePitchName("Bb3")
	require.NoError(t, err)
	assert.Equal(t, 58, p)
	p, err = ParsePitchName("C4")
	require.NoError(t, err)
	assert.Equal(t, 60, p)
	_, err = ParsePitchName("X4")
	assert.Error(t, err)
	assert.Equal(t, "C#4", PitchName(61))
}

func TestParseRomanRoundTrip(t *testing.T) {
	for _, fig := range []string{
		"I", "viiø7", "V65/V", "bVII", "It6", "Ger65", "Fr43", "N6",
		"Cad64", "V7[b9]", "I[no5]", "#iv", "III+", "viio7/ii", "V7/V/V",
	} {
		r, err := ParseRoman(fig)
		require.NoError(t, err, fig)
		assert.Equal(t, fig, r.String())
	}
}

func TestParseRomanAliases(t *testing.T) {
	r, err := ParseRoman("vii/o7")
	require.NoError(t, err)
	assert.Equal(t, "viiø7", r.String())

	r, err = ParseRoman("V42")
	require.NoError(t, err)
	assert.Equal(t, "V2", r.String())
	assert.Equal(t, 3, r.Inversion())

	r, err = ParseRoman("IV53")
	require.NoError(t, err)
	assert.Equal(t, "IV", r.String())
}

func TestParseRomanErrors(t *testing.T) {
	for _, fig := range []string{"", "X", "V8", "V[add8]", "Cad", "V/Ger", "V7[b9"} {
		_, err := ParseRoman(fig)
		assert.Error(t, err, fig)
	}
}

func TestPitchClasses(t *testing.T) {
	c := NewTonality(0, Major)
	a := NewTonality(9, Minor)

	cases := []struct {
		fig  string
		key  Tonality
		want []int
	}{
		{"I", c, []int{0, 4, 7}},
		{"V7", c, []int{7, 11, 2, 5}},
		{"V65", c, []int{11, 2, 5, 7}},
		{"V43", c, []int{2, 5, 7, 11}},
		{"V2", c, []int{5, 7, 11, 2}},
		{"I64", c, []int{7, 0, 4}},
		{"viio7/V", c, []int{6, 9, 0, 3}},
		{"V/ii", c, []int{9, 1, 4}},
		{"It6", c, []int{8, 0, 6}},
		{"Fr43", c, []int{8, 0, 2, 6}},
		{"Ger65", a, []int{5, 9, 0, 3}},
		{"N6", c, []int{5, 8, 1}},
		{"Cad64", c, []int{7, 0, 4}},
		{"vi", a, []int{6, 9, 1}},
		{"VI", a, []int{5, 9, 0}},
		{"viio", a, []int{8, 11, 2}},
		{"V7", a, []int{4, 8, 11, 2}},
		{"V7[b9]", c, []int{7, 11, 2, 5, 8}},
		{"I[no5]", c, []int{0, 4}},
		{"V9", c, []int{7, 11, 2, 5, 9}},
		{"bVII7", c, []int{10, 2, 5, 8}},
		{"iiø7", c, []int{2, 5, 8, 0}},
		{"III+", a, []int{0, 4, 8}},
	}
	for _, tc := range cases {
		r, err := ParseRoman(tc.fig)
		require.NoError(t, err, tc.fig)
		got, err := r.PitchClasses(tc.key)
		require.NoError(t, err, tc.fig)
		assert.Equal(t, tc.want, got, tc.fig)
	}
}

func TestQuality(t *testing.T) {
	c := NewTonality(0, Major)
	for fig, want := range map[string]Quality{
		"I":     QualityMajor,
		"ii":    QualityMinor,
		"V7":    QualityDominant7,
		"I7":    QualityMajor7,
		"ii7":   QualityMinor7,
		"viiø7": QualityHalfDiminished7,
		"viio7": QualityDiminished7,
		"viio":  QualityDiminished,
		"bVII7": QualityDominant7,
		"It6":   QualityOther,
	} {
		assert.Equal(t, want, MustParseRoman(fig).Quality(c), fig)
	}
	assert.Equal(t, QualityMinorMajor7, QualityOf([]int{0, 3, 7, 11}, 0))
	assert.Equal(t, QualitySus4, QualityOf([]int{7, 0, 5}, 0))
}

func TestChord(t *testing.T) {
	assert := assert.New(t)
	c := NewTonality(0, Major)

	ch, err := NewChord("V7/V", c)
	require.NoError(t, err)
	assert.Equal([]int{2, 6, 9, 0}, ch.PitchClasses())
	assert.Equal(2, ch.Root())
	assert.Equal(2, ch.Bass())
	assert.Equal(7, ch.Scale().Tonic)
	assert.Equal([]int{0}, ch.ExtensionPitchClasses())
	assert.Equal([]int{50, 54, 57, 60}, ch.Pitches())
	assert.Equal("V7/V in C major", ch.String())

	// symbols read in the tonicized scale
	assert.Equal(Symbol{Degree: 6, Alter: 0, Octave: 3}, ch.Parse(66))
	assert.Equal(66, ch.ToPitch(ch.Parse(66)))

	_, err = NewChord("Q", c)
	assert.Error(err)
}

func TestRomanOf(t *testing.T) {
	for i := 0; i < NumKeys; i++ {
		home := TonalityFromIndex(i)
		for j := 0; j < NumKeys; j++ {
			other := TonalityFromIndex(j)
			r := home.RomanOf(other)
			require.Equal(t, other.Tonic, r.Root(home), "%s in %s: %s", other, home, r)
		}
	}
	a := NewTonality(9, Minor)
	assert.Equal(t, "vi", a.RomanOf(NewTonality(6, Minor)).String())
	assert.Equal(t, "VI", a.RomanOf(NewTonality(5, Major)).String())
	assert.Equal(t, "V", NewTonality(0, Major).RomanOf(NewTonality(7, Major)).String())
}

func TestVocabulary(t *testing.T) {
	assert := assert.New(t)
	v := DefaultVocabulary()
	assert.Same(v, DefaultVocabulary())

	cMajor := MaskOf([]int{0, 4, 7})
	interps := v.Lookup(cMajor)
	require.NotEmpty(t, interps)
	assert.Equal("I", interps[0].Roman.String())
	assert.True(interps[0].Tonality.SameKey(NewTonality(0, Major)))

	// every interpretation realizes the set it is filed under
	for _, m := range []uint16{cMajor, MaskOf([]int{7, 11, 2, 5}), MaskOf([]int{8, 0, 3, 6})} {
		for _, in := range v.Lookup(m) {
			assert.Equal(m, in.Chord().Mask(), in.String())
		}
	}

	assert.False(v.Known(0))
	assert.False(v.Known(MaskOf([]int{0, 1, 2})))

	near, sim := v.Nearest(MaskOf([]int{0, 4, 7, 1}))
	assert.True(v.Known(near))
	assert.Less(sim, 1.0)
	assert.Greater(sim, 0.5)

	same, sim := v.Nearest(cMajor)
	assert.Equal(cMajor, same)
	assert.Equal(1.0, sim)
}

func TestModeText(t *testing.T) {
	var m Mode
	require.NoError(t, m.UnmarshalText([]byte("melodic minor")))
	assert.Equal(t, MelodicMinor, m)
	out, err := m.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "melodic_minor", string(out))
	assert.Error(t, m.UnmarshalText([]byte("dorian")))
}

func TestScalePitches(t *testing.T) {
	a := Tonality{Tonic: 9, Mode: MelodicMinor, Octave: 3}
	assert.Equal(t, [7]int{57, 59, 60, 62, 64, 66, 68}, a.ScalePitches())
	assert.True(t, a.Contains(8))
	assert.False(t, a.Contains(7))
	assert.Equal(t, []float64{1, 0, 1, 0, 1, 0, 1, 0, 1, 1, 0, 1}, a.MembershipVector())
}
