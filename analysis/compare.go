package analysis

import (
	"fmt"

	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/score"
)

// Comparison summarizes how closely two scores agree
type Comparison struct {
	BarsA      int     `json:"bars_a"`
	BarsB      int     `json:"bars_b"`
	NotesA     int     `json:"notes_a"`
	NotesB     int     `json:"notes_b"`
	Distance   float64 `json:"distance"`    // mean DTW cost over the alignment path
	PathLength int     `json:"path_length"` // aligned note pairs
	SameNotes  bool    `json:"same_notes"`  // identical quantized (onset, pitch) sequences
	Match      bool    `json:"match"`       // same bar count and distance within tolerance
}

// CompareScores aligns the notes of two scores by dynamic time warping over
// (quantized onset, pitch) and compares their bar counts
func CompareScores(a, b *score.Score, params CompareParams) (*Comparison, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "analysis",
		"function":  "CompareScores",
	})
	if params.Quantum.Sign() <= 0 {
		params.Quantum = DefaultCompareParams().Quantum
	}

	qa := noteSequence(a, params.Quantum)
	qb := noteSequence(b, params.Quantum)
	cmp := &Comparison{
		BarsA:  a.Len(),
		BarsB:  b.Len(),
		NotesA: len(qa),
		NotesB: len(qb),
	}
	cmp.SameNotes = sameSequence(qa, qb)

	switch {
	case len(qa) == 0 && len(qb) == 0:
		cmp.Match = cmp.BarsA == cmp.BarsB
		return cmp, nil
	case len(qa) == 0 || len(qb) == 0:
		cmp.Distance = -1
		return cmp, nil
	}

	dtw := stats.NewDTWAlignmentWithParams(params.BandRadius, "symmetric2", stats.EuclideanDistance)
	res, err := dtw.Align(qa, qb)
	if err != nil {
		return nil, fmt.Errorf("failed to align scores: %w", err)
	}
	cmp.Distance = res.Distance
	cmp.PathLength = len(res.Path)
	cmp.Match = cmp.BarsA == cmp.BarsB && res.Distance <= params.MaxDistance

	logger.Debug("Scores compared", logging.Fields{
		"bars_a":   cmp.BarsA,
		"bars_b":   cmp.BarsB,
		"distance": cmp.Distance,
		"match":    cmp.Match,
	})
	return cmp, nil
}

// noteSequence renders a score as (onset, pitch) pairs on a grid of quantum beats
func noteSequence(sc *score.Score, quantum rational.Rat) [][]float64 {
	table := sc.ToTable()
	out := make([][]float64, 0, table.Len())
	for _, n := range table.Notes {
		onset := n.Onset.Div(quantum).Quantize(1).Mul(quantum)
		out = append(out, []float64{onset.Float64(), float64(n.Pitch)})
	}
	return out
}

func sameSequence(a, b [][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i][0] != b[i][0] || a[i][1] != b[i][1] {
			return false
		}
	}
	return true
}
