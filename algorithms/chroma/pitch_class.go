package chroma

import (
	"fmt"
	"math"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/common"
	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/theory"
	"gonum.org/v1/gonum/floats"
)

// PitchClassVector is a duration-weighted pitch-class distribution
type PitchClassVector [12]float64

// Slice returns a copy as a slice
func (v PitchClassVector) Slice() []float64 {
	out := make([]float64, 12)
	copy(out, v[:])
	return out
}

// Mass is the sum of all components
func (v PitchClassVector) Mass() float64 {
	return floats.Sum(v[:])
}

// IsZero reports a vector without mass
func (v PitchClassVector) IsZero() bool {
	return v.Mass() <= 0
}

// Normalized returns the L1-normalized vector; zero mass stays zero
func (v PitchClassVector) Normalized() PitchClassVector {
	if v.Mass() <= 1e-12 {
		return PitchClassVector{}
	}
	var out PitchClassVector
	copy(out[:], common.L1Normalize(v[:]))
	return out
}

// Transpose rotates the vector up by semitones
func (v PitchClassVector) Transpose(semitones int) PitchClassVector {
	var out PitchClassVector
	for pc, x := range v {
		out[((pc+semitones)%12+12)%12] = x
	}
	return out
}

// Mask sets bit p for every component above threshold
func (v PitchClassVector) Mask(threshold float64) uint16 {
	var mask uint16
	for pc, x := range v {
		if x > threshold {
			mask |= 1 << uint(pc)
		}
	}
	return mask
}

// Count is the number of sounding pitch classes
func (v PitchClassVector) Count() int {
	n := 0
	for _, x := range v {
		if x > 0 {
			n++
		}
	}
	return n
}

// Entropy is the Shannon entropy of the distribution in nats
func (v PitchClassVector) Entropy() float64 {
	if v.IsZero() {
		return 0
	}
	return stats.ShannonEntropy(v.Slice())
}

// Centroid is the circular mean pitch class in [0, 12)
func (v PitchClassVector) Centroid() float64 {
	sumSin, sumCos := 0.0, 0.0
	for pc, weight := range v {
		angle := 2.0 * math.Pi * float64(pc) / 12.0
		sumSin += weight * math.Sin(angle)
		sumCos += weight * math.Cos(angle)
	}
	angle := math.Atan2(sumSin, sumCos)
	if angle < 0 {
		angle += 2.0 * math.Pi
	}
	return angle * 12.0 / (2.0 * math.Pi)
}

// Correlation is the Pearson correlation with another 12-vector
func (v PitchClassVector) Correlation(other []float64) float64 {
	return stats.PearsonCorrelationFunc(v[:], other)
}

// BestTransposition finds the rotation of template that correlates best with
// v. Ties keep the smaller rotation.
func (v PitchClassVector) BestTransposition(template PitchClassVector) (int, float64) {
	best, bestCorr := 0, math.Inf(-1)
	for shift := 0; shift < 12; shift++ {
		t := template.Transpose(shift)
		if c := v.Correlation(t[:]); c > bestCorr {
			best, bestCorr = shift, c
		}
	}
	return best, bestCorr
}

func (v PitchClassVector) String() string {
	parts := make([]string, 0, 12)
	for pc, x := range v {
		if x > 0 {
			parts = append(parts, fmt.Sprintf("%s:%.3f", theory.PitchClassName(pc), x))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
