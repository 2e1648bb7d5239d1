package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DistanceMetric represents different distance/similarity measures
type DistanceMetric int

const (
	EuclideanDistance DistanceMetric = iota
	ManhattanDistance
	CosineDistance
	PearsonDistance
)

// DistanceFunction is a function type for computing distance between two vectors
type DistanceFunction func(a, b []float64) float64

// GetDistanceFunction returns the appropriate distance function for the given metric
func GetDistanceFunction(metric DistanceMetric) DistanceFunction {
	switch metric {
	case EuclideanDistance:
		return EuclideanDistanceFunc
	case ManhattanDistance:
		return ManhattanDistanceFunc
	case CosineDistance:
		return CosineDistanceFunc
	case PearsonDistance:
		return PearsonDistanceFunc
	default:
		return EuclideanDistanceFunc
	}
}

// EuclideanDistanceFunc calculates Euclidean distance between two points
func EuclideanDistanceFunc(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// ManhattanDistanceFunc calculates the L1 distance
func ManhattanDistanceFunc(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

// CosineSimilarityFunc returns a·b / (|a||b|), 0 when either vector is zero
func CosineSimilarityFunc(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// CosineDistanceFunc returns 1 - cosine similarity
func CosineDistanceFunc(a, b []float64) float64 {
	return 1.0 - CosineSimilarityFunc(a, b)
}

// PearsonCorrelationFunc calculates the Pearson correlation coefficient.
// Constant vectors have no defined correlation and yield 0.
func PearsonCorrelationFunc(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}
	if isConstant(a) || isConstant(b) {
		return 0.0
	}
	return clampCorrelation(stat.Correlation(a, b, nil))
}

// PearsonDistanceFunc returns 1 - Pearson correlation
func PearsonDistanceFunc(a, b []float64) float64 {
	return 1.0 - PearsonCorrelationFunc(a, b)
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func clampCorrelation(correlation float64) float64 {
	if math.IsNaN(correlation) {
		return 0.0
	}
	return math.Max(-1.0, math.Min(1.0, correlation))
}
