package notes

import "github.com/RyanBlaney/sonido-harmony/rational"

// Bar is a half-open metric segment [Start, End)
type Bar struct {
	Index int          `json:"index"`
	Start rational.Rat `json:"start"`
	End   rational.Rat `json:"end"`
}

// Duration is End - Start
func (b Bar) Duration() rational.Rat {
	return b.End.Sub(b.Start)
}

// Contains reports whether t lies in [Start, End)
func (b Bar) Contains(t rational.Rat) bool {
	return b.Start.LessEq(t) && t.Less(b.End)
}

// UniformBars partitions [start, last) into bars of duration d starting at start.
// At least one bar is returned when d is positive.
func UniformBars(start, last, d rational.Rat) []Bar {
	if d.Sign() <= 0 {
		return nil
	}
	var bars []Bar
	for s := start; len(bars) == 0 || s.Less(last); s = s.Add(d) {
		bars = append(bars, Bar{Index: len(bars), Start: s, End: s.Add(d)})
	}
	return bars
}

// Span returns the start of the first bar and the end of the last
func Span(bars []Bar) (rational.Rat, rational.Rat) {
	if len(bars) == 0 {
		return rational.Zero, rational.Zero
	}
	return bars[0].Start, bars[len(bars)-1].End
}
