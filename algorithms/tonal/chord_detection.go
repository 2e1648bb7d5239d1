package tonal

import (
	"fmt"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// ChordCandidate is one interpretation of a bar
type ChordCandidate struct {
	RootPC    int                 `json:"root_pc"`
	Quality   theory.Quality      `json:"quality"`
	Roman     theory.RomanNumeral `json:"roman"`
	Tonality  theory.Tonality     `json:"tonality"`
	Extension string              `json:"extension"` // figured bass, set by the reconciler
	Mask      uint16              `json:"mask"`      // pitch-class set of the template
	Rank      int                 `json:"rank"`      // template index, lower first
	Score     float64             `json:"score"`
	NoChord   bool                `json:"no_chord,omitempty"`
}

// Interpretation returns the Roman numeral reading of the candidate
func (c ChordCandidate) Interpretation() theory.Interpretation {
	return theory.Interpretation{Roman: c.Roman, Tonality: c.Tonality}
}

// Label is the Roman numeral with its figure, or N.C. for the sentinel
func (c ChordCandidate) Label() string {
	if c.NoChord {
		return "N.C."
	}
	return c.Roman.String()
}

func (c ChordCandidate) String() string {
	return fmt.Sprintf("%s in %s (%s%s, rank %d)", c.Label(), c.Tonality.Name(),
		theory.PitchClassName(c.RootPC), c.Quality, c.Rank)
}

// NoChordCandidate is the sentinel for bars without pitched content
func NoChordCandidate(key theory.Tonality) ChordCandidate {
	return ChordCandidate{
		RootPC:   0,
		Quality:  theory.QualityMajor,
		Roman:    theory.MustParseRoman("I"),
		Tonality: theory.NewTonality(key.Tonic, key.Mode),
		NoChord:  true,
	}
}

// ChordTemplate is one root-quality pitch-class mask
type ChordTemplate struct {
	Index   int            `json:"index"`
	Root    int            `json:"root"`
	Quality theory.Quality `json:"quality"`
	Mask    uint16         `json:"mask"`
	Pattern []float64      `json:"pattern"`
	Weight  float64        `json:"weight"`
}

// ChordParams configures template matching
type ChordParams struct {
	BassBonus      float64            `json:"bass_bonus"`      // added to the bass bin before correlation
	TieEpsilon     float64            `json:"tie_epsilon"`     // scores within this of the best are kept
	Coefficients   map[string]float64 `json:"coefficients"`    // per quality name
	TonalityFilter bool               `json:"tonality_filter"` // keep candidates in the best-fitting keys
}

// DefaultChordParams returns the matcher defaults
func DefaultChordParams() ChordParams {
	return ChordParams{
		BassBonus:  0.2,
		TieEpsilon: 1e-9,
		Coefficients: map[string]float64{
			"maj": 1.0, "min": 1.0, "7": 1.0,
			"maj7": 0.9, "min7": 0.9, "minmaj7": 0.8, "m7b5": 0.85,
			"dim": 0.85, "dim7": 0.8, "aug": 0.75,
			"sus2": 0.7, "sus4": 0.7,
		},
		TonalityFilter: true,
	}
}

// MatchResult is the outcome for one bar
type MatchResult struct {
	Candidates []ChordCandidate  `json:"candidates"`
	Templates  []int             `json:"templates"` // tied template indices
	Best       float64           `json:"best"`
	Degenerate bool              `json:"degenerate"`        // empty bar, sentinel emitted
	Nearest    map[uint16]uint16 `json:"nearest,omitempty"` // unknown set -> substituted set
}

// ChordMatcher ranks the 144 chord templates against bar histograms
type ChordMatcher struct {
	params    ChordParams
	templates []ChordTemplate
	bank      *stats.CorrelationBank
	vocab     *theory.Vocabulary
	logger    logging.Logger
}

// NewChordMatcher creates a matcher over the default vocabulary
func NewChordMatcher() *ChordMatcher {
	cm, err := NewChordMatcherWithParams(DefaultChordParams(), theory.DefaultVocabulary())
	if err != nil {
		panic(err)
	}
	return cm
}

// NewChordMatcherWithParams creates a matcher with custom parameters
func NewChordMatcherWithParams(params ChordParams, vocab *theory.Vocabulary) (*ChordMatcher, error) {
	if vocab == nil {
		vocab = theory.DefaultVocabulary()
	}
	defaults := DefaultChordParams()
	if params.Coefficients == nil {
		params.Coefficients = defaults.Coefficients
	}
	if params.TieEpsilon <= 0 {
		params.TieEpsilon = defaults.TieEpsilon
	}

	cm := &ChordMatcher{
		params: params,
		vocab:  vocab,
		logger: logging.WithFields(logging.Fields{
			"component": "chord_matcher",
		}),
	}
	cm.initializeTemplates()

	patterns := make([][]float64, len(cm.templates))
	for i, t := range cm.templates {
		patterns[i] = t.Pattern
	}
	bank, err := stats.NewCorrelationBank(patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to build chord template bank: %w", err)
	}
	cm.bank = bank
	return cm, nil
}

// initializeTemplates lays out templates quality-major, root-minor
func (cm *ChordMatcher) initializeTemplates() {
	cm.templates = make([]ChordTemplate, 0, len(theory.TemplateQualities)*12)
	for _, q := range theory.TemplateQualities {
		weight, ok := cm.params.Coefficients[q.String()]
		if !ok {
			weight = 1.0
		}
		for root := 0; root < 12; root++ {
			mask := q.Mask(root)
			pattern := make([]float64, 12)
			for _, pc := range theory.PitchClassesOf(mask) {
				pattern[pc] = 1
			}
			cm.templates = append(cm.templates, ChordTemplate{
				Index:   len(cm.templates),
				Root:    root,
				Quality: q,
				Mask:    mask,
				Pattern: pattern,
				Weight:  weight,
			})
		}
	}
}

// Templates returns the template table
func (cm *ChordMatcher) Templates() []ChordTemplate {
	return cm.templates
}

// Scores returns the weighted template correlations of a bar
func (cm *ChordMatcher) Scores(h chroma.BarHistogram) ([]float64, error) {
	query := h.Vector.Slice()
	if pc := h.BassPitchClass(); pc != chroma.NoBass {
		query[pc] += cm.params.BassBonus
	}
	corr, err := cm.bank.Correlate(query)
	if err != nil {
		return nil, err
	}
	for i := range corr {
		corr[i] *= cm.templates[i].Weight
	}
	return corr, nil
}

// Match returns the tied best templates expanded to Roman-numeral
// interpretations. Empty bars yield the no-chord sentinel in the carried key.
func (cm *ChordMatcher) Match(h chroma.BarHistogram, carried theory.Tonality) (*MatchResult, error) {
	if h.Empty() {
		return &MatchResult{
			Candidates: []ChordCandidate{NoChordCandidate(carried)},
			Degenerate: true,
		}, nil
	}

	scores, err := cm.Scores(h)
	if err != nil {
		return nil, err
	}
	res := &MatchResult{Best: scores[0]}
	for _, s := range scores[1:] {
		if s > res.Best {
			res.Best = s
		}
	}
	for i, s := range scores {
		if s >= res.Best-cm.params.TieEpsilon {
			res.Templates = append(res.Templates, i)
		}
	}

	seen := make(map[string]bool)
	for _, ti := range res.Templates {
		t := cm.templates[ti]
		mask := t.Mask
		if !cm.vocab.Known(mask) {
			nearest, sim := cm.vocab.Nearest(mask)
			if res.Nearest == nil {
				res.Nearest = make(map[uint16]uint16)
			}
			res.Nearest[mask] = nearest
			cm.logger.Debug("Unknown pitch-class set replaced", logging.Fields{
				"function":   "Match",
				"bar":        h.Bar.Index,
				"mask":       fmt.Sprintf("%03x", mask),
				"nearest":    fmt.Sprintf("%03x", nearest),
				"similarity": sim,
			})
			mask = nearest
		}
		for _, interp := range cm.vocab.Lookup(mask) {
			key := interp.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			chord := interp.Chord()
			quality := t.Quality
			if mask != t.Mask {
				quality = chord.Quality()
			}
			res.Candidates = append(res.Candidates, ChordCandidate{
				RootPC:   chord.Root(),
				Quality:  quality,
				Roman:    interp.Roman,
				Tonality: interp.Tonality,
				Mask:     mask,
				Rank:     t.Index,
				Score:    scores[ti],
			})
		}
	}

	if cm.params.TonalityFilter {
		res.Candidates = cm.filterByTonality(h.Vector, res.Candidates)
	}
	return res, nil
}

// filterByTonality keeps the candidates whose key membership vector
// correlates best with the bar, preserving order
func (cm *ChordMatcher) filterByTonality(v chroma.PitchClassVector, cands []ChordCandidate) []ChordCandidate {
	if len(cands) < 2 {
		return cands
	}
	fit := make([]float64, len(cands))
	best := -2.0
	for i, c := range cands {
		fit[i] = v.Correlation(c.Tonality.MembershipVector())
		if fit[i] > best {
			best = fit[i]
		}
	}
	out := make([]ChordCandidate, 0, len(cands))
	for i, c := range cands {
		if fit[i] >= best-cm.params.TieEpsilon {
			out = append(out, c)
		}
	}
	return out
}

// GetParameters returns the matcher configuration
func (cm *ChordMatcher) GetParameters() ChordParams {
	return cm.params
}
