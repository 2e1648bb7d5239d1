package theory

import "sort"

// Quality classifies a chord by its intervals above the root
type Quality int

const (
	QualityMajor Quality = iota
	QualityMinor
	QualityDominant7
	QualityMajor7
	QualityMinor7
	QualityMinorMajor7
	QualityHalfDiminished7
	QualityDiminished
	QualityDiminished7
	QualityAugmented
	QualitySus2
	QualitySus4
	QualityOther
)

// TemplateQualities are the twelve qualities the template matcher knows
var TemplateQualities = []Quality{
	QualityMajor, QualityMinor, QualityDominant7, QualityMajor7,
	QualityMinor7, QualityMinorMajor7, QualityHalfDiminished7, QualityDiminished,
	QualityDiminished7, QualityAugmented, QualitySus2, QualitySus4,
}

var qualityIntervals = map[Quality][]int{
	QualityMajor:           {0, 4, 7},
	QualityMinor:           {0, 3, 7},
	QualityDominant7:       {0, 4, 7, 10},
	QualityMajor7:          {0, 4, 7, 11},
	QualityMinor7:          {0, 3, 7, 10},
	QualityMinorMajor7:     {0, 3, 7, 11},
	QualityHalfDiminished7: {0, 3, 6, 10},
	QualityDiminished:      {0, 3, 6},
	QualityDiminished7:     {0, 3, 6, 9},
	QualityAugmented:       {0, 4, 8},
	QualitySus2:            {0, 2, 7},
	QualitySus4:            {0, 5, 7},
}

var qualityNames = map[Quality]string{
	QualityMajor:           "maj",
	QualityMinor:           "min",
	QualityDominant7:       "7",
	QualityMajor7:          "maj7",
	QualityMinor7:          "min7",
	QualityMinorMajor7:     "minmaj7",
	QualityHalfDiminished7: "m7b5",
	QualityDiminished:      "dim",
	QualityDiminished7:     "dim7",
	QualityAugmented:       "aug",
	QualitySus2:            "sus2",
	QualitySus4:            "sus4",
	QualityOther:           "other",
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return "other"
}

// Intervals returns the semitones above the root, nil for QualityOther
func (q Quality) Intervals() []int {
	iv := qualityIntervals[q]
	if iv == nil {
		return nil
	}
	return append([]int(nil), iv...)
}

// Mask is the pitch-class set of the quality built on root
func (q Quality) Mask(root int) uint16 {
	var m uint16
	for _, iv := range qualityIntervals[q] {
		m |= 1 << uint(mod(root+iv, 12))
	}
	return m
}

// QualityOf names the pitch-class set relative to root
func QualityOf(pcs []int, root int) Quality {
	rel := make([]int, 0, len(pcs))
	seen := map[int]bool{}
	for _, pc := range pcs {
		r := mod(pc-root, 12)
		if !seen[r] {
			seen[r] = true
			rel = append(rel, r)
		}
	}
	sort.Ints(rel)
	for _, q := range TemplateQualities {
		iv := qualityIntervals[q]
		if len(iv) != len(rel) {
			continue
		}
		match := true
		for i := range iv {
			if iv[i] != rel[i] {
				match = false
				break
			}
		}
		if match {
			return q
		}
	}
	return QualityOther
}

// MaskOf folds pitch classes into a 12-bit set
func MaskOf(pcs []int) uint16 {
	var m uint16
	for _, pc := range pcs {
		m |= 1 << uint(mod(pc, 12))
	}
	return m
}

// PitchClassesOf expands a 12-bit set in ascending order
func PitchClassesOf(mask uint16) []int {
	var out []int
	for pc := 0; pc < 12; pc++ {
		if mask&(1<<uint(pc)) != 0 {
			out = append(out, pc)
		}
	}
	return out
}
