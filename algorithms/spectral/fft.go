package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the transform of a real signal using mjibson/go-dsp
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes
	return fft.FFTReal(x)
}

// Magnitudes returns |X[k]| for every bin
func (f *FFT) Magnitudes(x []float64) []float64 {
	spectrum := f.Compute(x)
	out := make([]float64, len(spectrum))
	for i, v := range spectrum {
		out[i] = cmplx.Abs(v)
	}
	return out
}
