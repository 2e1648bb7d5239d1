package voicing

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-harmony/algorithms/common"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"gonum.org/v1/gonum/stat"
)

// VoiceParams configures the beam search
type VoiceParams struct {
	PitchSigma   float64 `json:"pitch_sigma"`    // semitones
	GapSigma     float64 `json:"gap_sigma"`      // beats
	GapFloor     float64 `json:"gap_floor"`      // lower bound of the gap term before log
	NewVoiceProb float64 `json:"new_voice_prob"` // probability of opening a voice
	Window       int     `json:"window"`         // notes in the weighted pitch average
	BeamSize     int     `json:"beam_size"`      // actions kept per state
	MaxStates    int     `json:"max_states"`     // states kept per note
}

// DefaultVoiceParams returns greedy deterministic defaults
func DefaultVoiceParams() VoiceParams {
	return VoiceParams{
		PitchSigma:   4,
		GapSigma:     127000,
		GapFloor:     9e-5,
		NewVoiceProb: 2e-11,
		Window:       5,
		BeamSize:     1,
		MaxStates:    1,
	}
}

// Separator partitions each track into monophonic voices
type Separator struct {
	params VoiceParams
	logger logging.Logger
}

// NewSeparator creates a separator with default parameters
func NewSeparator() *Separator {
	return NewSeparatorWithParams(DefaultVoiceParams())
}

// NewSeparatorWithParams creates a separator with custom parameters
func NewSeparatorWithParams(params VoiceParams) *Separator {
	if params.BeamSize < 1 {
		params.BeamSize = 1
	}
	if params.MaxStates < 1 {
		params.MaxStates = 1
	}
	if params.Window < 1 {
		params.Window = 1
	}
	return &Separator{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "voice_separator",
		}),
	}
}

// Result summarizes a separation
type Result struct {
	Table  *notes.Table `json:"-"`
	Voices map[int]int  `json:"voices"` // track -> voice count
}

// Separate returns a copy of the table with voice labels written into every
// note. Percussion notes get voice 0 and take no part in the search.
func (s *Separator) Separate(ctx context.Context, table *notes.Table) (*Result, error) {
	out := table.Clone()
	res := &Result{Table: out, Voices: make(map[int]int)}

	for _, track := range out.Tracks() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var idx []int
		var pitched []notes.Note
		for i, n := range out.Notes {
			if n.Track != track {
				continue
			}
			if n.Percussion {
				out.Notes[i].Voice = 0
				continue
			}
			idx = append(idx, i)
			pitched = append(pitched, n)
		}
		if len(pitched) == 0 {
			res.Voices[track] = 1
			continue
		}

		labels, count := s.AssignTrack(pitched)
		for k, i := range idx {
			out.Notes[i].Voice = labels[k]
		}
		res.Voices[track] = count
	}

	s.logger.WithContext(ctx).Debug("Voices separated", logging.Fields{
		"function": "Separate",
		"tracks":   len(res.Voices),
		"voices":   res.Voices,
	})
	return res, nil
}

// voice is one monophonic stream; ids are stable across insertions
type voice struct {
	id    int
	notes []notes.Note
}

type state struct {
	voices  []voice
	logProb float64
	nextID  int
	assign  []int // note index -> voice id
}

func (st *state) clone() *state {
	c := &state{
		voices:  make([]voice, len(st.voices)),
		logProb: st.logProb,
		nextID:  st.nextID,
		assign:  append([]int(nil), st.assign...),
	}
	for i, v := range st.voices {
		c.voices[i] = voice{id: v.id, notes: v.notes[:len(v.notes):len(v.notes)]}
	}
	return c
}

// action extends voice k (extend=true) or opens a voice at position k
type action struct {
	extend  bool
	k       int
	logProb float64
	order   int
}

// AssignTrack labels the notes of one track. Labels follow the final
// left-to-right voice order, lowest voice first, and are returned aligned
// with the input slice together with the voice count.
func (s *Separator) AssignTrack(ns []notes.Note) ([]int, int) {
	order := make([]int, len(ns))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := ns[order[a]], ns[order[b]]
		if c := x.Onset.Cmp(y.Onset); c != 0 {
			return c < 0
		}
		if x.Pitch != y.Pitch {
			return x.Pitch < y.Pitch
		}
		return x.Duration.Less(y.Duration)
	})

	states := []*state{{assign: make([]int, len(ns))}}
	for _, i := range order {
		n := ns[i]
		var next []*state
		for _, st := range states {
			acts := s.actions(st, n)
			for _, a := range acts[:min(len(acts), s.params.BeamSize)] {
				next = append(next, s.apply(st, a, n, i))
			}
		}
		sort.SliceStable(next, func(a, b int) bool { return next[a].logProb > next[b].logProb })
		states = next[:min(len(next), s.params.MaxStates)]
	}

	best := states[0]
	position := make(map[int]int, len(best.voices))
	for p, v := range best.voices {
		position[v.id] = p
	}
	labels := make([]int, len(ns))
	for i := range ns {
		labels[i] = position[best.assign[i]]
	}
	return labels, len(best.voices)
}

// actions scores every feasible action, best first. Equal scores keep the
// enumeration order: extensions by voice position, then new voices by position.
func (s *Separator) actions(st *state, n notes.Note) []action {
	var acts []action
	for k, v := range st.voices {
		last := v.notes[len(v.notes)-1]
		if !canExtend(last, n) {
			continue
		}
		acts = append(acts, action{extend: true, k: k, logProb: s.extensionLogProb(v, n)})
	}
	for k := 0; k <= len(st.voices); k++ {
		acts = append(acts, action{k: k, logProb: math.Log(s.params.NewVoiceProb)})
	}

	for i := range acts {
		acts[i].order = i
		acts[i].logProb += float64(s.orderViolations(st, acts[i], n)) * math.Log(0.5)
	}
	sort.SliceStable(acts, func(a, b int) bool { return acts[a].logProb > acts[b].logProb })
	return acts
}

// canExtend allows overlap of at most half the previous note
func canExtend(last, n notes.Note) bool {
	overlap := last.Offset().Sub(n.Onset)
	return overlap.LessEq(last.Duration.Div(rational.FromInt(2))) && last.Offset().Less(n.Offset())
}

func (s *Separator) extensionLogProb(v voice, n notes.Note) float64 {
	last := v.notes[len(v.notes)-1]
	z := (float64(n.Pitch) - s.averagePitch(v.notes)) / s.params.PitchSigma
	gap := n.Onset.Sub(last.Offset()).Float64()
	g := math.Max(math.Log(1-gap/s.params.GapSigma)+1, s.params.GapFloor)
	if math.IsNaN(g) {
		g = s.params.GapFloor
	}
	return common.LogGaussian(z) + math.Log(g)
}

// averagePitch weights the most recent of the last Window notes by 2^(l-1)
// down to 1 for the oldest
func (s *Separator) averagePitch(ns []notes.Note) float64 {
	l := min(len(ns), s.params.Window)
	window := ns[len(ns)-l:]
	pitches := make([]float64, l)
	weights := make([]float64, l)
	for i, n := range window {
		pitches[i] = float64(n.Pitch)
		weights[i] = math.Exp2(float64(i))
	}
	return stat.Mean(pitches, weights)
}

// orderViolations counts adjacent voices whose average pitch decreases after
// applying the action
func (s *Separator) orderViolations(st *state, a action, n notes.Note) int {
	avgs := make([]float64, 0, len(st.voices)+1)
	for k, v := range st.voices {
		if a.extend && k == a.k {
			avgs = append(avgs, s.averagePitch(append(v.notes[:len(v.notes):len(v.notes)], n)))
			continue
		}
		if !a.extend && k == a.k {
			avgs = append(avgs, float64(n.Pitch))
		}
		avgs = append(avgs, s.averagePitch(v.notes))
	}
	if !a.extend && a.k == len(st.voices) {
		avgs = append(avgs, float64(n.Pitch))
	}

	violations := 0
	for i := 1; i < len(avgs); i++ {
		if avgs[i-1] > avgs[i] {
			violations++
		}
	}
	return violations
}

func (s *Separator) apply(st *state, a action, n notes.Note, index int) *state {
	c := st.clone()
	c.logProb += a.logProb
	if a.extend {
		v := &c.voices[a.k]
		v.notes = append(v.notes, n)
		c.assign[index] = v.id
		return c
	}
	nv := voice{id: c.nextID, notes: []notes.Note{n}}
	c.nextID++
	c.voices = append(c.voices[:a.k], append([]voice{nv}, c.voices[a.k:]...)...)
	c.assign[index] = nv.id
	return c
}

// Streams groups labeled notes into per-voice streams for one track
func Streams(ns []notes.Note) [][]notes.Note {
	var out [][]notes.Note
	for _, n := range ns {
		for len(out) <= n.Voice {
			out = append(out, nil)
		}
		out[n.Voice] = append(out[n.Voice], n)
	}
	for _, v := range out {
		sort.SliceStable(v, func(a, b int) bool { return notes.Less(v[a], v[b]) })
	}
	return out
}

// CheckMonophonic returns an error naming the first pair of adjacent notes in
// a voice that overlap by more than half of the earlier note
func CheckMonophonic(ns []notes.Note) error {
	for v, stream := range Streams(ns) {
		for i := 1; i < len(stream); i++ {
			prev, cur := stream[i-1], stream[i]
			if cur.Onset.Less(prev.Offset().Sub(prev.Duration.Div(rational.FromInt(2)))) {
				return fmt.Errorf("voice %d: %s overlaps %s", v, cur, prev)
			}
		}
	}
	return nil
}
