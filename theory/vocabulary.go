package theory

import (
	"math"
	"math/bits"
	"sync"
)

// Interpretation is one Roman-numeral reading of a pitch-class set
type Interpretation struct {
	Roman    RomanNumeral `json:"roman"`
	Tonality Tonality     `json:"tonality"`
}

// Chord realizes the interpretation
func (i Interpretation) Chord() Chord {
	c, _ := ChordOf(i.Roman, i.Tonality)
	return c
}

func (i Interpretation) String() string {
	return i.Roman.String() + " in " + i.Tonality.Name()
}

// DefaultRomans are the figures enumerated per mode in every key
var DefaultRomans = map[Mode][]string{
	Major: {
		"I", "ii", "iii", "IV", "V", "vi", "viio",
		"I7", "ii7", "iii7", "IV7", "V7", "vi7", "viiø7", "viio7",
		"V/ii", "V/iii", "V/IV", "V/V", "V/vi",
		"V7/ii", "V7/iii", "V7/IV", "V7/V", "V7/vi",
		"viio/V", "viio7/V", "viio7/ii",
		"i", "iv", "bIII", "bVI", "bVII", "iiø7",
		"N", "It", "Fr", "Ger",
	},
	Minor: {
		"i", "iio", "III", "iv", "v", "V", "VI", "VII", "viio", "III+",
		"i7", "iiø7", "III7", "iv7", "V7", "VI7", "VII7", "viio7",
		"V/III", "V/iv", "V/V", "V/VI", "V/VII",
		"V7/III", "V7/iv", "V7/V", "V7/VI", "V7/VII",
		"viio7/V", "viio7/iv",
		"I", "IV",
		"N", "It", "Fr", "Ger",
	},
	MelodicMinor: {
		"i", "ii", "III+", "IV", "V", "vio", "viio",
		"i7", "ii7", "IV7", "V7", "viø7", "viiø7",
	},
}

// Vocabulary maps pitch-class sets to every interpretation that realizes them.
// Interpretations are ordered by tonality index, then by figure order.
type Vocabulary struct {
	entries map[uint16][]Interpretation
	masks   []uint16
}

var (
	defaultVocabulary *Vocabulary
	vocabularyOnce    sync.Once
)

// DefaultVocabulary builds the shared vocabulary on first use
func DefaultVocabulary() *Vocabulary {
	vocabularyOnce.Do(func() {
		v, err := NewVocabulary(DefaultRomans)
		if err != nil {
			panic(err)
		}
		defaultVocabulary = v
	})
	return defaultVocabulary
}

// NewVocabulary enumerates figures in all 36 keys
func NewVocabulary(romans map[Mode][]string) (*Vocabulary, error) {
	v := &Vocabulary{entries: make(map[uint16][]Interpretation)}
	parsed := make(map[Mode][]RomanNumeral, len(romans))
	for mode, figures := range romans {
		for _, f := range figures {
			r, err := ParseRoman(f)
			if err != nil {
				return nil, err
			}
			parsed[mode] = append(parsed[mode], r)
		}
	}
	for idx := 0; idx < NumKeys; idx++ {
		key := TonalityFromIndex(idx)
		for _, r := range parsed[key.Mode] {
			pcs, err := r.PitchClasses(key)
			if err != nil {
				return nil, err
			}
			mask := MaskOf(pcs)
			if _, ok := v.entries[mask]; !ok {
				v.masks = append(v.masks, mask)
			}
			v.entries[mask] = append(v.entries[mask], Interpretation{Roman: r, Tonality: key})
		}
	}
	return v, nil
}

// Lookup returns the interpretations of mask, nil when unknown
func (v *Vocabulary) Lookup(mask uint16) []Interpretation {
	return append([]Interpretation(nil), v.entries[mask]...)
}

// Known reports whether any figure realizes mask
func (v *Vocabulary) Known(mask uint16) bool {
	return len(v.entries[mask]) > 0
}

// Len is the number of distinct pitch-class sets
func (v *Vocabulary) Len() int {
	return len(v.masks)
}

// Nearest finds the known set with the highest cosine similarity to mask.
// Ties go to the numerically lowest set.
func (v *Vocabulary) Nearest(mask uint16) (uint16, float64) {
	if v.Known(mask) {
		return mask, 1
	}
	best, bestSim := uint16(0), math.Inf(-1)
	for _, m := range v.masks {
		sim := maskCosine(mask, m)
		if sim > bestSim || (sim == bestSim && m < best) {
			best, bestSim = m, sim
		}
	}
	return best, bestSim
}

func maskCosine(a, b uint16) float64 {
	na, nb := bits.OnesCount16(a), bits.OnesCount16(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(bits.OnesCount16(a&b)) / math.Sqrt(float64(na*nb))
}
