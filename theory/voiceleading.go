package theory

import "fmt"

// Motion is how two voices move together between two sonorities
type Motion int

const (
	MotionStatic Motion = iota // neither voice moves
	MotionOblique
	MotionContrary
	MotionSimilar
	MotionParallel
)

func (m Motion) String() string {
	switch m {
	case MotionStatic:
		return "static"
	case MotionOblique:
		return "oblique"
	case MotionContrary:
		return "contrary"
	case MotionSimilar:
		return "similar"
	case MotionParallel:
		return "parallel"
	}
	return fmt.Sprintf("motion(%d)", int(m))
}

// MotionOf classifies the move of a lower and an upper voice, given as
// MIDI pitches before and after. Parallel motion keeps the interval class.
func MotionOf(lower0, upper0, lower1, upper1 int) Motion {
	dl, du := lower1-lower0, upper1-upper0
	switch {
	case dl == 0 && du == 0:
		return MotionStatic
	case dl == 0 || du == 0:
		return MotionOblique
	case (dl > 0) != (du > 0):
		return MotionContrary
	case mod(upper0-lower0, 12) == mod(upper1-lower1, 12):
		return MotionParallel
	}
	return MotionSimilar
}

// LeadingError names a breach of common-practice part writing
type LeadingError string

const (
	ParallelFifths  LeadingError = "parallel_fifths"
	ParallelOctaves LeadingError = "parallel_octaves"
	DirectFifths    LeadingError = "direct_fifths"
	DirectOctaves   LeadingError = "direct_octaves"
	VoiceCrossing   LeadingError = "voice_crossing"
	VoiceOverlap    LeadingError = "voice_overlap"
	WideSpacing     LeadingError = "wide_spacing"
)

// Silent marks a voice that does not sound in a voicing
const Silent = -1

// LeadingIssue is one breach between two voicings. Lower and Upper index
// the voices, bass first.
type LeadingIssue struct {
	Error LeadingError `json:"error"`
	Lower int          `json:"lower"`
	Upper int          `json:"upper"`
}

func (i LeadingIssue) String() string {
	return fmt.Sprintf("%s between voices %d and %d", i.Error, i.Lower, i.Upper)
}

// LeadingRules tunes CheckVoiceLeading
type LeadingRules struct {
	// MaxSpacing is the widest distance between adjacent upper voices in
	// semitones; the bass may sit further below. Zero disables the check.
	MaxSpacing int
	// LeapThreshold is the smallest soprano move, in semitones, that makes
	// similar motion into a perfect interval a direct fifth or octave
	LeapThreshold int
}

// DefaultLeadingRules allow an octave between upper voices and call
// anything above a whole step a leap
func DefaultLeadingRules() LeadingRules {
	return LeadingRules{MaxSpacing: 12, LeapThreshold: 3}
}

// CheckVoiceLeading compares two voicings of the same voices, bass first.
// Silent voices take no part. Issues come in pair order, lower voice first.
func CheckVoiceLeading(prev, next []int, rules LeadingRules) []LeadingIssue {
	n := min(len(prev), len(next))
	var out []LeadingIssue
	sounding := func(v int) bool { return prev[v] != Silent && next[v] != Silent }

	for lo := 0; lo < n; lo++ {
		for hi := lo + 1; hi < n; hi++ {
			if !sounding(lo) || !sounding(hi) {
				continue
			}
			motion := MotionOf(prev[lo], prev[hi], next[lo], next[hi])
			before := mod(prev[hi]-prev[lo], 12)
			after := mod(next[hi]-next[lo], 12)

			switch {
			case motion == MotionParallel && after == 7 && before == 7:
				out = append(out, LeadingIssue{Error: ParallelFifths, Lower: lo, Upper: hi})
			case motion == MotionParallel && after == 0 && before == 0:
				out = append(out, LeadingIssue{Error: ParallelOctaves, Lower: lo, Upper: hi})
			case motion == MotionSimilar && lo == 0 && hi == n-1 && abs(next[hi]-prev[hi]) >= rules.LeapThreshold:
				if after == 7 {
					out = append(out, LeadingIssue{Error: DirectFifths, Lower: lo, Upper: hi})
				} else if after == 0 {
					out = append(out, LeadingIssue{Error: DirectOctaves, Lower: lo, Upper: hi})
				}
			}
		}
	}

	for lo := 0; lo+1 < n; lo++ {
		hi := lo + 1
		if next[lo] != Silent && next[hi] != Silent && next[lo] > next[hi] {
			out = append(out, LeadingIssue{Error: VoiceCrossing, Lower: lo, Upper: hi})
			continue
		}
		if sounding(lo) && sounding(hi) && (next[lo] > prev[hi] || next[hi] < prev[lo]) {
			out = append(out, LeadingIssue{Error: VoiceOverlap, Lower: lo, Upper: hi})
		}
	}

	if rules.MaxSpacing > 0 {
		for lo := 1; lo+1 < n; lo++ {
			hi := lo + 1
			if next[lo] != Silent && next[hi] != Silent && next[hi]-next[lo] > rules.MaxSpacing {
				out = append(out, LeadingIssue{Error: WideSpacing, Lower: lo, Upper: hi})
			}
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
