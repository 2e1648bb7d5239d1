package tonal

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
	"github.com/RyanBlaney/sonido-harmony/algorithms/common"
	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/theory"
	"gonum.org/v1/gonum/mat"
)

// KeyParams configures the key decoder
type KeyParams struct {
	Profile     string  `json:"profile"`     // krumhansl, aarden or temperley
	Temperature float64 `json:"temperature"` // softmax temperature of emissions and transitions
}

// DefaultKeyParams returns the decoder defaults
func DefaultKeyParams() KeyParams {
	return KeyParams{
		Profile:     "krumhansl",
		Temperature: 1.0,
	}
}

// KeyDecodeResult is the decoded key track
type KeyDecodeResult struct {
	Keys       []theory.Tonality `json:"keys"`
	States     []int             `json:"states"`
	LogProb    float64           `json:"log_prob"`
	Confidence []float64         `json:"confidence"` // per bar, 1 - normalized emission entropy
	Emissions  [][]float64       `json:"-"`
	Uniform    []bool            `json:"uniform"` // bars decoded from the carried key alone
}

// KeyDecoder runs Viterbi over the 36 key states. The profile bank and the
// transition matrix are built once and shared read-only.
type KeyDecoder struct {
	params     KeyParams
	profile    KeyProfile
	bank       *stats.CorrelationBank
	transition *mat.Dense // log probabilities, row = from state
	logger     logging.Logger
}

// NewKeyDecoder creates a decoder with default parameters
func NewKeyDecoder() *KeyDecoder {
	kd, err := NewKeyDecoderWithParams(DefaultKeyParams())
	if err != nil {
		panic(err)
	}
	return kd
}

// NewKeyDecoderWithParams creates a decoder with custom parameters
func NewKeyDecoderWithParams(params KeyParams) (*KeyDecoder, error) {
	if params.Temperature <= 0 {
		params.Temperature = 1.0
	}
	profile, err := ParseKeyProfile(params.Profile)
	if err != nil {
		return nil, err
	}

	rows := keyProfiles[profile].StateProfiles()
	bank, err := stats.NewCorrelationBank(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build key profile bank: %w", err)
	}
	corr, err := stats.CorrelationMatrix(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build key transition matrix: %w", err)
	}

	transition := mat.NewDense(theory.NumKeys, theory.NumKeys, nil)
	for i := 0; i < theory.NumKeys; i++ {
		transition.SetRow(i, common.LogSoftmax(mat.Row(nil, i, corr), params.Temperature))
	}

	return &KeyDecoder{
		params:     params,
		profile:    profile,
		bank:       bank,
		transition: transition,
		logger: logging.WithFields(logging.Fields{
			"component": "key_decoder",
			"profile":   profile.String(),
		}),
	}, nil
}

// Transition returns log P(to | from)
func (kd *KeyDecoder) Transition(from, to int) float64 {
	return kd.transition.At(from, to)
}

// Emission returns the 36 log emission scores of one bar histogram. A bar
// without mass gets the uniform distribution.
func (kd *KeyDecoder) Emission(v chroma.PitchClassVector) ([]float64, bool, error) {
	if v.IsZero() {
		out := make([]float64, theory.NumKeys)
		for i := range out {
			out[i] = -math.Log(theory.NumKeys)
		}
		return out, true, nil
	}
	corr, err := kd.bank.Correlate(v.Slice())
	if err != nil {
		return nil, false, err
	}
	return common.LogSoftmax(corr, kd.params.Temperature), false, nil
}

// Decode returns the most probable key per bar. Ties resolve to the lowest
// state index at every step.
func (kd *KeyDecoder) Decode(ctx context.Context, vectors []chroma.PitchClassVector) (*KeyDecodeResult, error) {
	logger := kd.logger.WithContext(ctx).WithFields(logging.Fields{"function": "Decode"})
	res := &KeyDecodeResult{}
	if len(vectors) == 0 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(vectors)
	res.Emissions = make([][]float64, n)
	res.Uniform = make([]bool, n)
	res.Confidence = make([]float64, n)
	for i, v := range vectors {
		e, uniform, err := kd.Emission(v)
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		res.Emissions[i] = e
		res.Uniform[i] = uniform
		if !uniform {
			res.Confidence[i] = stats.Confidence(e)
		}
	}

	const states = theory.NumKeys
	prior := -math.Log(states)
	delta := make([]float64, states)
	for s := range delta {
		delta[s] = prior + res.Emissions[0][s]
	}
	back := make([][]int, n)
	next := make([]float64, states)
	for t := 1; t < n; t++ {
		back[t] = make([]int, states)
		for s := 0; s < states; s++ {
			best, arg := math.Inf(-1), 0
			for k := 0; k < states; k++ {
				if v := delta[k] + kd.transition.At(k, s); v > best {
					best, arg = v, k
				}
			}
			next[s] = best + res.Emissions[t][s]
			back[t][s] = arg
		}
		delta, next = next, delta
	}

	last := common.ArgMax(delta)
	res.LogProb = delta[last]
	res.States = make([]int, n)
	res.States[n-1] = last
	for t := n - 1; t > 0; t-- {
		res.States[t-1] = back[t][res.States[t]]
	}
	res.Keys = make([]theory.Tonality, n)
	for t, s := range res.States {
		res.Keys[t] = theory.TonalityFromIndex(s)
	}

	logger.Debug("Key track decoded", logging.Fields{
		"bars":     n,
		"log_prob": res.LogProb,
		"first":    res.Keys[0].Name(),
		"last":     res.Keys[n-1].Name(),
	})
	return res, nil
}

// PathLogProb scores an arbitrary state path under the model
func (kd *KeyDecoder) PathLogProb(emissions [][]float64, path []int) float64 {
	if len(path) == 0 {
		return 0
	}
	lp := -math.Log(theory.NumKeys) + emissions[0][path[0]]
	for t := 1; t < len(path); t++ {
		lp += kd.transition.At(path[t-1], path[t]) + emissions[t][path[t]]
	}
	return lp
}

// GetParameters returns the decoder configuration
func (kd *KeyDecoder) GetParameters() KeyParams {
	return kd.params
}
