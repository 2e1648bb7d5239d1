package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions shared by the inference stages, backed by gonum

// Mean calculates the arithmetic mean of a slice
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// LogSumExp computes log(sum(exp(x))) without overflow
func LogSumExp(data []float64) float64 {
	if len(data) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(data)
}

// LogSoftmax returns log(exp(x*beta - max) / sum), with beta = 1/temperature.
// A non-positive temperature is treated as 1.
func LogSoftmax(data []float64, temperature float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	if temperature <= 0 {
		temperature = 1
	}
	scaled := make([]float64, len(data))
	copy(scaled, data)
	floats.Scale(1/temperature, scaled)

	maxVal := floats.Max(scaled)
	shifted := make([]float64, len(scaled))
	for i, v := range scaled {
		shifted[i] = v - maxVal
	}
	norm := LogSumExp(shifted)
	for i := range shifted {
		shifted[i] -= norm
	}
	return shifted
}

// L1Normalize divides by the sum of absolute values. A zero vector stays zero.
func L1Normalize(data []float64) []float64 {
	out := make([]float64, len(data))
	total := floats.Norm(data, 1)
	if total == 0 {
		return out
	}
	for i, v := range data {
		out[i] = v / total
	}
	return out
}

// LogGaussian is the log density of the standard normal distribution at x
func LogGaussian(x float64) float64 {
	return -0.5*x*x - 0.5*math.Log(2*math.Pi)
}
