package tonal

import (
	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

var (
	triadFigures   = []string{"", "6", "64"}
	seventhFigures = []string{"7", "65", "43", "2"}
)

// Reconciler sets inversion figures from the bass and recognizes the
// cadential six-four
type Reconciler struct {
	logger logging.Logger
}

// NewReconciler creates a reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{
		logger: logging.WithFields(logging.Fields{
			"component": "reconciler",
		}),
	}
}

// Figure returns the figured bass for a bass pitch class given the chord's
// pitch classes in root position. A bass outside the chord means root position.
func Figure(pcs []int, seventh bool, bass int) string {
	inv := 0
	for i, pc := range pcs {
		if pc == bass {
			inv = i
			break
		}
	}
	if seventh {
		if inv >= len(seventhFigures) {
			inv = 0
		}
		return seventhFigures[inv]
	}
	if inv >= len(triadFigures) {
		inv = 0
	}
	return triadFigures[inv]
}

// Reconcile returns copies of the chosen candidates with figures applied.
// hists supplies the bass hint per bar and must align with chosen.
func (rc *Reconciler) Reconcile(chosen []ChordCandidate, hists []chroma.BarHistogram) []ChordCandidate {
	out := make([]ChordCandidate, len(chosen))
	for i, c := range chosen {
		bass := chroma.NoBass
		if i < len(hists) {
			bass = hists[i].BassPitchClass()
		}
		out[i] = rc.reconcileOne(c, bass)
	}

	for i := 0; i+1 < len(out); i++ {
		if isCadentialSixFour(out[i], out[i+1]) {
			out[i].Roman = theory.MustParseRoman("Cad64")
			out[i].Extension = "64"
			rc.logger.Debug("Cadential six-four", logging.Fields{
				"function": "Reconcile",
				"bar":      i,
				"key":      out[i].Tonality.Name(),
			})
		}
	}
	return out
}

func (rc *Reconciler) reconcileOne(c ChordCandidate, bass int) ChordCandidate {
	if c.NoChord {
		return c
	}
	if c.Roman.Special != "" {
		c.Extension = c.Roman.Figure
		return c
	}

	seventh := c.Roman.IsSeventh()
	root := c.Roman.WithFigure("")
	if seventh {
		root = c.Roman.WithFigure("7")
	}
	pcs, err := root.PitchClasses(c.Tonality)
	if err != nil {
		rc.logger.Warn("Cannot realize chord, keeping root position", logging.Fields{
			"roman": c.Roman.String(),
			"key":   c.Tonality.Name(),
			"error": err.Error(),
		})
		return c
	}

	figure := ""
	if bass != chroma.NoBass {
		figure = Figure(pcs, seventh, bass)
	} else if seventh {
		figure = "7"
	}
	c.Roman = c.Roman.WithFigure(figure)
	c.Extension = figure
	return c
}

// isCadentialSixFour matches a tonic triad in second inversion followed by
// V or V7 in the same key
func isCadentialSixFour(cur, next ChordCandidate) bool {
	if cur.NoChord || next.NoChord || !cur.Tonality.SameKey(next.Tonality) {
		return false
	}
	r := cur.Roman
	if r.Special != "" || r.Secondary != nil || r.Degree != 1 || r.Accidental != 0 || r.Figure != "64" {
		return false
	}
	if r.Upper != (cur.Tonality.Mode == theory.Major) || r.Marker != theory.MarkerNone {
		return false
	}
	n := next.Roman
	return n.Special == "" && n.Secondary == nil && n.Degree == 5 && n.Upper &&
		n.Accidental == 0 && n.Marker == theory.MarkerNone
}
