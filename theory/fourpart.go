package theory

import (
	"github.com/RyanBlaney/sonido-harmony/faults"
)

// Range bounds a part in MIDI pitches, both ends included
type Range struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

func (r Range) center() int { return (r.Low + r.High) / 2 }

// DefaultRanges are bass E2-D4, tenor C3-G4, alto G3-D5 and soprano C4-G5
var DefaultRanges = [4]Range{{40, 62}, {48, 67}, {55, 74}, {60, 79}}

// penalties of the four-part search, in semitones of motion
const (
	forbiddenCost = 100 // parallel or direct perfects, crossing, overlap
	doublingCost  = 2   // doubling a tone other than the root
	omissionCost  = 1   // leaving out the fifth
)

// Voicer realizes chords as bass, tenor, alto and soprano
type Voicer struct {
	Ranges [4]Range
	Rules  LeadingRules
}

// NewVoicer uses the default ranges and part-writing rules
func NewVoicer() *Voicer {
	return &Voicer{Ranges: DefaultRanges, Rules: DefaultLeadingRules()}
}

// Voicings enumerates the four-part layouts of c: the chord's bass in the
// bass, ascending upper voices within their ranges and the spacing limit,
// and every chord tone present. The fifth may be left out of chords with
// more than three tones; a ninth chord has to drop it.
func (v *Voicer) Voicings(c Chord) [][]int {
	pcs := c.PitchClasses()
	if len(pcs) == 0 {
		return nil
	}
	fifth := mod(c.Root()+7, 12)
	optional := func(pc int) bool { return len(pcs) > 3 && pc == fifth }

	member := make(map[int]bool, len(pcs))
	for _, pc := range pcs {
		member[pc] = true
	}
	pitchesIn := func(r Range) []int {
		var out []int
		for p := r.Low; p <= r.High; p++ {
			if member[mod(p, 12)] {
				out = append(out, p)
			}
		}
		return out
	}

	var out [][]int
	bass := c.Bass()
	for b := v.Ranges[0].Low; b <= v.Ranges[0].High; b++ {
		if mod(b, 12) != bass {
			continue
		}
		for _, t := range pitchesIn(v.Ranges[1]) {
			if t < b {
				continue
			}
			for _, a := range pitchesIn(v.Ranges[2]) {
				if a <= t || v.tooWide(t, a) {
					continue
				}
				for _, s := range pitchesIn(v.Ranges[3]) {
					if s <= a || v.tooWide(a, s) {
						continue
					}
					voiced := []int{b, t, a, s}
					if covers(voiced, pcs, optional) {
						out = append(out, voiced)
					}
				}
			}
		}
	}
	return out
}

func (v *Voicer) tooWide(lower, upper int) bool {
	return v.Rules.MaxSpacing > 0 && upper-lower > v.Rules.MaxSpacing
}

// covers reports whether the voicing sounds every chord tone but an
// optional one
func covers(voiced, pcs []int, optional func(int) bool) bool {
	have := make(map[int]bool, 4)
	for _, p := range voiced {
		have[mod(p, 12)] = true
	}
	for _, pc := range pcs {
		if !have[pc] && !optional(pc) {
			return false
		}
	}
	return true
}

// cost scores a voicing: voice motion from prev, or distance from the middle
// of each range for an opening chord, plus part-writing penalties
func (v *Voicer) cost(prev, next []int, c Chord) int {
	total := 0
	if prev == nil {
		for i, p := range next {
			total += abs(p - v.Ranges[i].center())
		}
	} else {
		for i := range next {
			total += abs(next[i] - prev[i])
		}
		for _, issue := range CheckVoiceLeading(prev, next, v.Rules) {
			if issue.Error != WideSpacing {
				total += forbiddenCost
			}
		}
	}

	root := c.Root()
	seen := make(map[int]bool, 4)
	for _, p := range next {
		pc := mod(p, 12)
		if seen[pc] && pc != root {
			total += doublingCost
		}
		seen[pc] = true
	}
	if fifth := mod(root+7, 12); containsInt(c.PitchClasses(), fifth) && !seen[fifth] {
		total += omissionCost
	}
	return total
}

// Next picks the cheapest voicing of c after prev, nil for an opening chord.
// Ties go to the first voicing in enumeration order.
func (v *Voicer) Next(prev []int, c Chord) ([]int, error) {
	var best []int
	bestCost := 0
	for _, voiced := range v.Voicings(c) {
		cost := v.cost(prev, voiced, c)
		if best == nil || cost < bestCost {
			best, bestCost = voiced, cost
		}
	}
	if best == nil {
		return nil, faults.Kernel("no four-part voicing of %s", c)
	}
	return best, nil
}

// Realize voices a progression chord by chord, each from the one before
func (v *Voicer) Realize(chords []Chord) ([][]int, error) {
	out := make([][]int, len(chords))
	var prev []int
	for i, c := range chords {
		voiced, err := v.Next(prev, c)
		if err != nil {
			return nil, err
		}
		out[i], prev = voiced, voiced
	}
	return out, nil
}
