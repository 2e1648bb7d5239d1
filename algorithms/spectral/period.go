package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-harmony/logging"
)

// PeriodProjectorParams sets the sampling of the onset impulse train
type PeriodProjectorParams struct {
	// Resolution is the number of samples per quarter-note beat
	Resolution int `json:"resolution"`
	// Block is the padding unit of the train length. Every period p with
	// Block/(p*Resolution) integral falls on an exact FFT bin.
	Block int `json:"block"`
}

// DefaultPeriodProjectorParams samples at 1/48 beat and pads to multiples of
// 1728 so periods of 1.5, 2, 3, 4 and 4.5 beats are exact bins
func DefaultPeriodProjectorParams() PeriodProjectorParams {
	return PeriodProjectorParams{Resolution: 48, Block: 1728}
}

// PeriodProjector measures how strongly an onset pattern repeats at given periods
type PeriodProjector struct {
	params PeriodProjectorParams
	fft    *FFT
}

// NewPeriodProjector creates a projector with default parameters
func NewPeriodProjector() *PeriodProjector {
	return NewPeriodProjectorWithParams(DefaultPeriodProjectorParams())
}

// NewPeriodProjectorWithParams creates a projector with custom parameters
func NewPeriodProjectorWithParams(params PeriodProjectorParams) *PeriodProjector {
	if params.Resolution <= 0 {
		params.Resolution = 48
	}
	if params.Block <= 0 {
		params.Block = 1728
	}
	return &PeriodProjector{params: params, fft: NewFFT()}
}

// ImpulseTrain places a unit impulse at each onset (in beats, relative to
// the first) and zero-pads to a multiple of Block
func (p *PeriodProjector) ImpulseTrain(onsets []float64) []float64 {
	if len(onsets) == 0 {
		return nil
	}
	first := onsets[0]
	for _, o := range onsets {
		first = math.Min(first, o)
	}
	idx := make([]int, len(onsets))
	last := 0
	for i, o := range onsets {
		idx[i] = int(math.Round((o - first) * float64(p.params.Resolution)))
		if idx[i] > last {
			last = idx[i]
		}
	}
	n := (last/p.params.Block + 1) * p.params.Block
	train := make([]float64, n)
	for _, i := range idx {
		train[i] = 1
	}
	return train
}

// Bin returns the FFT bin of a period for a train of length n
func (p *PeriodProjector) Bin(n int, period float64) (int, error) {
	samples := period * float64(p.params.Resolution)
	k := float64(n) / samples
	if samples <= 0 || math.Abs(k-math.Round(k)) > 1e-9 {
		return 0, fmt.Errorf("period %.4g does not fall on an exact bin of length %d", period, n)
	}
	return int(math.Round(k)), nil
}

// Project returns the spectral magnitude of the onset train at each period,
// divided by the number of impulses
func (p *PeriodProjector) Project(onsets []float64, periods []float64) ([]float64, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "period_projector",
		"function":  "Project",
	})

	out := make([]float64, len(periods))
	if len(onsets) == 0 {
		return out, nil
	}
	train := p.ImpulseTrain(onsets)
	impulses := 0.0
	for _, v := range train {
		impulses += v
	}
	spectrum := p.fft.Compute(train)
	for i, period := range periods {
		k, err := p.Bin(len(train), period)
		if err != nil {
			return nil, err
		}
		out[i] = cmplx.Abs(spectrum[k]) / impulses
	}

	logger.Debug("Onset periodicity projected", logging.Fields{
		"onsets":     len(onsets),
		"train_size": len(train),
		"periods":    periods,
		"magnitudes": out,
	})
	return out, nil
}
