package temporal

import (
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
)

// gridPoints lists offset + k*period inside [first, last)
func gridPoints(offset, period, first, last rational.Rat) []rational.Rat {
	if period.Sign() <= 0 {
		return nil
	}
	k := first.Sub(offset).Div(period).Floor()
	p := offset.Add(period.MulInt(k))
	if p.Less(first) {
		p = p.Add(period)
	}
	var out []rational.Rat
	for ; p.Less(last); p = p.Add(period) {
		out = append(out, p)
	}
	return out
}

// onsetAlignment is the mean number of onsets within tol beats of each grid point
func onsetAlignment(onsets []float64, grid []rational.Rat, tol float64) float64 {
	if len(grid) == 0 {
		return 0
	}
	hits := 0
	for _, g := range grid {
		gf := g.Float64()
		for _, o := range onsets {
			if d := o - gf; d <= tol && d >= -tol {
				hits++
			}
		}
	}
	return float64(hits) / float64(len(grid))
}

// sustainedCuts is the mean number of notes sounding across each grid point,
// i.e. started before it and ending after it
func sustainedCuts(ns []notes.Note, grid []rational.Rat) float64 {
	if len(grid) == 0 {
		return float64(len(ns))
	}
	cuts := 0
	for _, g := range grid {
		for _, n := range ns {
			if n.Onset.Less(g) && g.Less(n.Offset()) {
				cuts++
			}
		}
	}
	return float64(cuts) / float64(len(grid))
}

// simpleBarFraction is the fraction of bars of duration d (phase offset)
// covering [first, last) whose notes span at most maxPCs pitch classes
func simpleBarFraction(ns []notes.Note, offset, d, first, last rational.Rat, maxPCs int) float64 {
	bars := barsFrom(offset, d, first, last)
	if len(bars) == 0 {
		return 0
	}
	simple := 0
	for _, b := range bars {
		var mask uint16
		for _, n := range ns {
			if n.Overlap(b.Start, b.End).Sign() > 0 {
				mask |= 1 << uint(n.PitchClass())
			}
		}
		count := 0
		for m := mask; m != 0; m &= m - 1 {
			count++
		}
		if count <= maxPCs {
			simple++
		}
	}
	return float64(simple) / float64(len(bars))
}

// barsFrom starts at the latest downbeat offset + k*d at or before first
// and emits uniform bars until last is covered
func barsFrom(offset, d, first, last rational.Rat) []notes.Bar {
	if d.Sign() <= 0 {
		return nil
	}
	k := first.Sub(offset).Div(d).Floor()
	start := offset.Add(d.MulInt(k))
	return notes.UniformBars(start, last, d)
}
