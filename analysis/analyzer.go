// Package analysis runs the full harmonic analysis of a note table: bar grid
// and voices, then keys, chord candidates, sequence resolution and score
// assembly, followed by the harmonic report (functions, cadences, key changes,
// voice leading and non-chord tones).
package analysis

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/Southclaws/fault/ftag"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
	"github.com/RyanBlaney/sonido-harmony/algorithms/temporal"
	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/algorithms/voicing"
	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/score"
	"github.com/RyanBlaney/sonido-harmony/theory"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

// Degradation records a bar where a stage fell back instead of failing
type Degradation struct {
	Bar    int       `json:"bar"`
	Kind   ftag.Kind `json:"kind"`
	Detail string    `json:"detail"`
}

func (d Degradation) String() string {
	return fmt.Sprintf("bar %d: %s: %s", d.Bar, d.Kind, d.Detail)
}

// Result is everything the analysis produced
type Result struct {
	Score        *score.Score             `json:"score"`
	Grid         temporal.BarGrid         `json:"grid"`
	Bars         []notes.Bar              `json:"bars"`
	Shift        rational.Rat             `json:"shift"` // applied to normalize an anacrusis
	Voices       map[int]int              `json:"voices"`
	Keys         []theory.Tonality        `json:"keys"`
	Confidence   []float64                `json:"key_confidence"`
	Chords       []tonal.ChordCandidate   `json:"chords"`
	Candidates   [][]tonal.ChordCandidate `json:"-"`
	Histograms   []chroma.BarHistogram    `json:"-"`
	Table        *notes.Table             `json:"-"` // voiced, in analysis time
	Switches     float64                  `json:"switches"`
	Degradations []Degradation            `json:"degradations,omitempty"`
	Functions    []theory.Function        `json:"functions"`
	Cadences     []tonal.Cadence          `json:"cadences,omitempty"`
	Modulations  []tonal.Modulation       `json:"modulations,omitempty"`
	Leading      []voicing.LeadingIssue   `json:"voice_leading,omitempty"`
	Embellished  []voicing.NonChordTone   `json:"non_chord_tones,omitempty"`
}

// Degraded reports whether any bar needed a fallback of the given kind
func (r *Result) Degraded(kind ftag.Kind) bool {
	for _, d := range r.Degradations {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// Analyzer wires the inference stages together. It is safe for concurrent
// use; every stage is immutable after construction.
type Analyzer struct {
	config      *Config
	decoder     *transcode.Decoder
	estimator   *temporal.BarGridEstimator
	separator   *voicing.Separator
	histograms  *chroma.HistogramBuilder
	keys        *tonal.KeyDecoder
	matcher     *tonal.ChordMatcher
	resolver    *tonal.Resolver
	reconciler  *tonal.Reconciler
	assembler   *score.Assembler
	cadences    *tonal.CadenceDetector
	modulations *tonal.ModulationDetector
	leading     *voicing.LeadingChecker
	embellish   *voicing.EmbellishmentLabeler
	logger      logging.Logger
}

// NewAnalyzer builds every stage from config; nil means DefaultConfig
func NewAnalyzer(config *Config) (*Analyzer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := *config
	cfg.Sync()

	keys, err := tonal.NewKeyDecoderWithParams(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create key decoder: %w", err)
	}
	matcher, err := tonal.NewChordMatcherWithParams(cfg.Chord, theory.DefaultVocabulary())
	if err != nil {
		return nil, fmt.Errorf("failed to create chord matcher: %w", err)
	}
	decoderConfig := cfg.Decoder

	return &Analyzer{
		config:      &cfg,
		decoder:     transcode.NewDecoder(&decoderConfig),
		estimator:   temporal.NewBarGridEstimatorWithParams(cfg.Meter),
		separator:   voicing.NewSeparatorWithParams(cfg.Voice),
		histograms:  chroma.NewHistogramBuilder(),
		keys:        keys,
		matcher:     matcher,
		resolver:    tonal.NewResolverWithParams(cfg.Resolver),
		reconciler:  tonal.NewReconciler(),
		assembler:   score.NewAssembler(),
		cadences:    tonal.NewCadenceDetectorWithParams(cfg.Cadence),
		modulations: tonal.NewModulationDetectorWithParams(cfg.Modulation),
		leading:     voicing.NewLeadingCheckerWithParams(cfg.Leading),
		embellish:   voicing.NewEmbellishmentLabelerWithParams(cfg.Embellish),
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}, nil
}

// Config returns the configuration in effect
func (a *Analyzer) Config() Config {
	return *a.config
}

// Decoder returns the input decoder built from the configuration
func (a *Analyzer) Decoder() *transcode.Decoder {
	return a.decoder
}

// AnalyzeFile decodes a MIDI or MusicXML file and analyzes it. Log records
// of the run carry the file as source.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	ctx = logging.ContextWithFields(ctx, logging.Fields{"source": path})
	table, err := a.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, table)
}

// AnalyzeReader decodes a source in the given format and analyzes it
func (a *Analyzer) AnalyzeReader(ctx context.Context, r io.Reader, format transcode.Format) (*Result, error) {
	table, err := a.decoder.Decode(ctx, r, format)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, table)
}

// Analyze runs the inference cascade. Only an unusable table or a cancelled
// context is an error; everything later degrades per bar and the score always
// has one chord per bar.
func (a *Analyzer) Analyze(ctx context.Context, table *notes.Table) (*Result, error) {
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Analyze",
	})

	if table == nil {
		return nil, faults.Reject("nil note table", "No input was given.")
	}
	if err := table.Validate(a.config.Table.AllowMeterChanges); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	work := table.Clone()
	res := &Result{}
	if a.config.Table.NormalizeAnacrusis {
		res.Shift = work.NormalizeAnacrusis()
	}

	// bar grid and voices only read the table, each on its own copy
	var voiced *voicing.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		grid, err := a.estimator.Estimate(gctx, work.Clone())
		if err != nil {
			return fmt.Errorf("bar grid: %w", err)
		}
		res.Grid = grid
		return nil
	})
	g.Go(func() error {
		sep, err := a.separator.Separate(gctx, work.Clone())
		if err != nil {
			return fmt.Errorf("voice separation: %w", err)
		}
		voiced = sep
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error(err, "Metric and voice analysis failed")
		return nil, err
	}
	res.Table = voiced.Table
	res.Voices = voiced.Voices
	res.Bars = res.Grid.Bars(work.FirstOnset(), work.LastOffset())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Histograms = a.histograms.Build(res.Table.Notes, res.Bars)

	keyRes, err := a.keys.Decode(ctx, chroma.Vectors(res.Histograms))
	if err != nil {
		logger.Error(err, "Key decoding failed")
		return nil, err
	}
	res.Keys = keyRes.Keys
	res.Confidence = keyRes.Confidence

	res.Candidates = make([][]tonal.ChordCandidate, len(res.Bars))
	for i, h := range res.Histograms {
		m, err := a.matcher.Match(h, res.Keys[i])
		if err != nil {
			res.degrade(i, faults.TheoryKernel, err.Error())
			continue
		}
		res.Candidates[i] = m.Candidates
		if m.Degenerate {
			res.degrade(i, faults.InferenceDegenerate, "no sounding pitch classes, key carried as "+res.Keys[i].Name())
		}
		for _, unknown := range slices.Sorted(maps.Keys(m.Nearest)) {
			res.degrade(i, faults.TheoryKernel, fmt.Sprintf("pitch-class set %03x read as %03x", unknown, m.Nearest[unknown]))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolution, err := a.resolver.Resolve(ctx, res.Candidates, res.Keys)
	if err != nil {
		logger.Error(err, "Chord resolution failed")
		return nil, err
	}
	for _, bar := range resolution.Fallbacks {
		res.degrade(bar, faults.Inconsistent, "empty candidate set replaced by the tonic of "+res.Keys[bar].Name())
	}
	res.Switches = resolution.Switches
	res.Chords = a.reconciler.Reconcile(resolution.Chosen, res.Histograms)

	sc, err := a.assembler.Assemble(ctx, res.Table, res.Bars, res.Chords)
	if err != nil {
		logger.Error(err, "Score assembly failed")
		return nil, err
	}
	sc.Start = res.start()
	res.Score = sc

	if err := a.report(ctx, res); err != nil {
		logger.Error(err, "Harmonic report failed")
		return nil, err
	}

	a.audit(logger, res)
	logger.Debug("Analysis completed", logging.Fields{
		"bars":         len(res.Bars),
		"grid":         res.Grid.String(),
		"shift":        res.Shift.String(),
		"switches":     res.Switches,
		"degradations": len(res.Degradations),
		"cadences":     len(res.Cadences),
		"modulations":  len(res.Modulations),
		"non_chord":    len(res.Embellished),
	})
	return res, nil
}

// report derives functions, cadences, key changes and voice-leading issues
// from the resolved chords
func (a *Analyzer) report(ctx context.Context, res *Result) error {
	res.Functions = make([]theory.Function, len(res.Chords))
	for i, c := range res.Chords {
		if !c.NoChord {
			res.Functions[i] = c.Roman.Function()
		}
	}

	cadences, err := a.cadences.Detect(ctx, res.Chords, res.sopranos())
	if err != nil {
		return fmt.Errorf("cadences: %w", err)
	}
	res.Cadences = cadences

	modulations, err := a.modulations.Detect(ctx, res.Chords)
	if err != nil {
		return fmt.Errorf("modulations: %w", err)
	}
	res.Modulations = modulations

	leading, err := a.leading.Check(ctx, res.Table, res.Bars)
	if err != nil {
		return fmt.Errorf("voice leading: %w", err)
	}
	res.Leading = leading

	embellished, err := a.embellish.Label(ctx, res.Table, res.Bars, res.chordMasks())
	if err != nil {
		return fmt.Errorf("non-chord tones: %w", err)
	}
	res.Embellished = embellished
	return nil
}

// chordMasks is the realized pitch-class set per bar, 0 for N.C. bars
func (r *Result) chordMasks() []uint16 {
	out := make([]uint16, len(r.Chords))
	for i, c := range r.Chords {
		if c.NoChord {
			continue
		}
		if ch, err := theory.ChordOf(c.Roman, c.Tonality); err == nil {
			out[i] = ch.Mask()
		} else {
			out[i] = c.Mask
		}
	}
	return out
}

// sopranos is the pitch class of the highest note sounding at each
// downbeat, theory.NoSoprano for silent downbeats
func (r *Result) sopranos() []int {
	pitched := r.Table.Pitched()
	out := make([]int, len(r.Bars))
	for i, bar := range r.Bars {
		out[i] = theory.NoSoprano
		if sounding := soundingAt(pitched, bar.Start); len(sounding) > 0 {
			out[i] = theory.PitchClass(sounding[0])
		}
	}
	return out
}

// CadenceAt returns the cadence arriving at bar, CadenceNone if there is none
func (r *Result) CadenceAt(bar int) theory.Cadence {
	for _, c := range r.Cadences {
		if c.Bar == bar {
			return c.Kind
		}
	}
	return theory.CadenceNone
}

// FunctionAt returns the harmonic function of the chord in bar
func (r *Result) FunctionAt(bar int) theory.Function {
	if bar < 0 || bar >= len(r.Functions) {
		return theory.FunctionNone
	}
	return r.Functions[bar]
}

func (r *Result) degrade(bar int, kind ftag.Kind, detail string) {
	r.Degradations = append(r.Degradations, Degradation{Bar: bar, Kind: kind, Detail: detail})
}

// start places the first bar relative to the downbeat at or before the
// original time zero, so a pickup bar comes out negative
func (r *Result) start() rational.Rat {
	if len(r.Bars) == 0 || r.Grid.Duration.Sign() <= 0 {
		return rational.Zero
	}
	origin := r.Shift.Sub(r.Shift.Sub(r.Grid.Offset).Mod(r.Grid.Duration))
	return r.Bars[0].Start.Sub(origin)
}

// audit writes one record per bar
func (a *Analyzer) audit(logger logging.Logger, res *Result) {
	byBar := make(map[int][]string)
	for _, d := range res.Degradations {
		byBar[d.Bar] = append(byBar[d.Bar], string(d.Kind)+": "+d.Detail)
	}
	for i, bar := range res.Bars {
		fields := logging.Fields{
			"bar":        i,
			"start":      bar.Start.String(),
			"end":        bar.End.String(),
			"key":        res.Keys[i].Name(),
			"confidence": res.Confidence[i],
			"chord":      res.Chords[i].String(),
			"function":   res.FunctionAt(i).Label(),
			"candidates": len(res.Candidates[i]),
		}
		if cadence := res.CadenceAt(i); cadence != theory.CadenceNone {
			fields["cadence"] = cadence.Label()
		}
		if issues, ok := byBar[i]; ok {
			fields["degradations"] = issues
			logger.Warn("Bar analyzed with fallbacks", fields)
			continue
		}
		logger.Debug("Bar analyzed", fields)
	}
}
