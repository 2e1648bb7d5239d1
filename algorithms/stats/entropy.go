package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ShannonEntropy returns the entropy in nats of a non-negative weight vector.
// Weights are normalized first; an all-zero vector has zero entropy.
func ShannonEntropy(weights []float64) float64 {
	total := floats.Sum(weights)
	if total <= 0 {
		return 0
	}
	p := make([]float64, len(weights))
	floats.ScaleTo(p, 1/total, weights)
	return stat.Entropy(p)
}

// NormalizedEntropy scales ShannonEntropy into [0, 1] by the entropy of the
// uniform distribution over len(weights) outcomes
func NormalizedEntropy(weights []float64) float64 {
	if len(weights) < 2 {
		return 0
	}
	return ShannonEntropy(weights) / math.Log(float64(len(weights)))
}

// Confidence maps a log-probability vector to 1 - normalized entropy of its
// distribution: 1 for a point mass, 0 for a uniform vector
func Confidence(logProbs []float64) float64 {
	if len(logProbs) < 2 {
		return 1
	}
	top := floats.Max(logProbs)
	p := make([]float64, len(logProbs))
	for i, lp := range logProbs {
		p[i] = math.Exp(lp - top)
	}
	return 1 - NormalizedEntropy(p)
}
