package tonal

import (
	"context"
	"math"

	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// ResolverParams configures the sequence resolver
type ResolverParams struct {
	KeyDistanceWeight float64 `json:"key_distance_weight"` // weight of circle-of-fifths distance / 6
	// PreferDecodedKey breaks switch-cost ties by agreement with the decoded
	// key track before falling back to candidate order
	PreferDecodedKey bool `json:"prefer_decoded_key"`
}

// DefaultResolverParams returns the resolver defaults
func DefaultResolverParams() ResolverParams {
	return ResolverParams{}
}

// Resolution is the chosen candidate per bar
type Resolution struct {
	Chosen     []ChordCandidate `json:"chosen"`
	Indices    []int            `json:"indices"`
	Switches   float64          `json:"switches"`   // total switch cost
	Mismatches int              `json:"mismatches"` // bars off the decoded key
	Fallbacks  []int            `json:"fallbacks"`  // bars whose empty candidate set was replaced
}

// cost orders paths by switch cost, then optionally by decoded-key mismatches
type cost struct {
	switches   float64
	mismatches int
}

const costEpsilon = 1e-12

func (c cost) less(o cost, byKey bool) bool {
	if math.Abs(c.switches-o.switches) > costEpsilon {
		return c.switches < o.switches
	}
	return byKey && c.mismatches < o.mismatches
}

// Resolver picks one candidate per bar minimizing tonality switches
type Resolver struct {
	params ResolverParams
	logger logging.Logger
}

// NewResolver creates a resolver with default parameters
func NewResolver() *Resolver {
	return NewResolverWithParams(DefaultResolverParams())
}

// NewResolverWithParams creates a resolver with custom parameters
func NewResolverWithParams(params ResolverParams) *Resolver {
	return &Resolver{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "resolver",
		}),
	}
}

// SwitchCost is 1 between different keys, plus the weighted fifths distance
func (r *Resolver) SwitchCost(a, b theory.Tonality) float64 {
	if a.SameKey(b) {
		return 0
	}
	return 1 + r.params.KeyDistanceWeight*float64(a.FifthsDistance(b))/6
}

// Resolve runs the dynamic program over bars. keys is the decoded key track
// and must have one entry per bar; it seeds fallbacks and, with
// PreferDecodedKey, breaks ties. Remaining ties go to the lower candidate index.
func (r *Resolver) Resolve(ctx context.Context, candidates [][]ChordCandidate, keys []theory.Tonality) (*Resolution, error) {
	logger := r.logger.WithContext(ctx).WithFields(logging.Fields{"function": "Resolve"})
	n := len(candidates)
	res := &Resolution{}
	if n == 0 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bars := make([][]ChordCandidate, n)
	for i, cands := range candidates {
		if len(cands) > 0 {
			bars[i] = cands
			continue
		}
		key := theory.NewTonality(0, theory.Major)
		if i < len(keys) {
			key = keys[i]
		}
		bars[i] = []ChordCandidate{fallbackCandidate(key)}
		res.Fallbacks = append(res.Fallbacks, i)
		logger.Warn("Empty candidate set replaced", logging.Fields{
			"bar": i,
			"key": key.Name(),
		})
	}

	mismatch := func(i int, c ChordCandidate) int {
		if i < len(keys) && !c.Tonality.SameKey(keys[i]) {
			return 1
		}
		return 0
	}

	dp := make([][]cost, n)
	back := make([][]int, n)
	dp[0] = make([]cost, len(bars[0]))
	for j, c := range bars[0] {
		dp[0][j] = cost{mismatches: mismatch(0, c)}
	}
	for i := 1; i < n; i++ {
		dp[i] = make([]cost, len(bars[i]))
		back[i] = make([]int, len(bars[i]))
		for j, c := range bars[i] {
			best := -1
			var bestCost cost
			for k, p := range bars[i-1] {
				total := cost{
					switches:   dp[i-1][k].switches + r.SwitchCost(p.Tonality, c.Tonality),
					mismatches: dp[i-1][k].mismatches,
				}
				if best < 0 || total.less(bestCost, r.params.PreferDecodedKey) {
					best, bestCost = k, total
				}
			}
			bestCost.mismatches += mismatch(i, c)
			dp[i][j] = bestCost
			back[i][j] = best
		}
	}

	last := 0
	for j := 1; j < len(dp[n-1]); j++ {
		if dp[n-1][j].less(dp[n-1][last], r.params.PreferDecodedKey) {
			last = j
		}
	}
	res.Switches = dp[n-1][last].switches
	res.Mismatches = dp[n-1][last].mismatches
	res.Indices = make([]int, n)
	res.Indices[n-1] = last
	for i := n - 1; i > 0; i-- {
		res.Indices[i-1] = back[i][res.Indices[i]]
	}
	res.Chosen = make([]ChordCandidate, n)
	for i, j := range res.Indices {
		res.Chosen[i] = bars[i][j]
	}

	logger.Debug("Chord sequence resolved", logging.Fields{
		"bars":       n,
		"switches":   res.Switches,
		"mismatches": res.Mismatches,
		"fallbacks":  len(res.Fallbacks),
	})
	return res, nil
}

// fallbackCandidate is the tonic triad of the decoded key
func fallbackCandidate(key theory.Tonality) ChordCandidate {
	figure := "I"
	if key.Mode.IsMinor() {
		figure = "i"
	}
	roman := theory.MustParseRoman(figure)
	chord, _ := theory.ChordOf(roman, key)
	return ChordCandidate{
		RootPC:   key.Tonic,
		Quality:  chord.Quality(),
		Roman:    roman,
		Tonality: key,
		Mask:     chord.Mask(),
		Rank:     -1,
	}
}

// GetParameters returns the resolver configuration
func (r *Resolver) GetParameters() ResolverParams {
	return r.params
}
