package analysis

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
)

// Share is a label with the number of bars it holds
type Share struct {
	Label string  `json:"label"`
	Bars  int     `json:"bars"`
	Share float64 `json:"share"`
}

// Summary condenses a result into piece-level statistics
type Summary struct {
	Bars          int            `json:"bars"`
	Key           string         `json:"key"` // the local key holding the most bars
	Keys          []Share        `json:"keys"`
	Chords        []Share        `json:"chords"`
	ChordEntropy  float64        `json:"chord_entropy"`  // nats
	ChordEvenness float64        `json:"chord_evenness"` // entropy over its maximum, 0..1
	ChangeRate    float64        `json:"change_rate"`    // share of bar lines where the chord changes
	Functions     map[string]int `json:"functions"`
	Cadences      map[string]int `json:"cadences"`
	Modulations   int            `json:"modulations"`
	Established   int            `json:"established_modulations"`
	NonChordTones map[string]int `json:"non_chord_tones"`
	VoiceLeading  map[string]int `json:"voice_leading"`
	Degradations  int            `json:"degradations"`
}

// Summarize counts keys, chords, functions, cadences and the other report
// entries of res. Chords are labeled with their key, e.g. "C: V7".
func Summarize(res *Result) Summary {
	s := Summary{
		Bars:          len(res.Chords),
		Functions:     make(map[string]int),
		Cadences:      make(map[string]int),
		NonChordTones: make(map[string]int),
		VoiceLeading:  make(map[string]int),
		Degradations:  len(res.Degradations),
	}

	keys := make(map[string]int)
	chords := make(map[string]int)
	changes := 0
	for i, c := range res.Chords {
		keys[c.Tonality.Name()]++
		chords[chordLabel(res, i)]++
		if i > 0 && chordLabel(res, i) != chordLabel(res, i-1) {
			changes++
		}
	}
	s.Keys = shares(keys, s.Bars)
	s.Chords = shares(chords, s.Bars)
	if len(s.Keys) > 0 {
		s.Key = s.Keys[0].Label
	}
	if s.Bars > 1 {
		s.ChangeRate = float64(changes) / float64(s.Bars-1)
	}

	weights := make([]float64, len(s.Chords))
	for i, sh := range s.Chords {
		weights[i] = float64(sh.Bars)
	}
	s.ChordEntropy = stats.ShannonEntropy(weights)
	s.ChordEvenness = stats.NormalizedEntropy(weights)

	for _, f := range res.Functions {
		if f.Label() != "" {
			s.Functions[f.Label()]++
		}
	}
	for _, c := range res.Cadences {
		s.Cadences[c.Kind.Label()]++
	}
	for _, m := range res.Modulations {
		s.Modulations++
		if m.Established {
			s.Established++
		}
	}
	for _, n := range res.Embellished {
		s.NonChordTones[n.Kind.Label()]++
	}
	for _, issue := range res.Leading {
		s.VoiceLeading[string(issue.Error)]++
	}
	return s
}

func chordLabel(res *Result, i int) string {
	c := res.Chords[i]
	if c.NoChord {
		return c.Label()
	}
	return c.Tonality.RomanTextKey() + ": " + c.Label()
}

// shares sorts counts by bars, most first, then by label
func shares(counts map[string]int, total int) []Share {
	out := make([]Share, 0, len(counts))
	for label, n := range counts {
		sh := Share{Label: label, Bars: n}
		if total > 0 {
			sh.Share = float64(n) / float64(total)
		}
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bars != out[j].Bars {
			return out[i].Bars > out[j].Bars
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// WriteSummary renders the summary as aligned text
func WriteSummary(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "bars\t%d\n", s.Bars)
	fmt.Fprintf(tw, "key\t%s\n", s.Key)
	fmt.Fprintf(tw, "keys\t%s\n", joinShares(s.Keys, 0))
	fmt.Fprintf(tw, "chords\t%s\n", joinShares(s.Chords, 8))
	fmt.Fprintf(tw, "chord entropy\t%.3f (evenness %.2f)\n", s.ChordEntropy, s.ChordEvenness)
	fmt.Fprintf(tw, "change rate\t%.2f\n", s.ChangeRate)
	fmt.Fprintf(tw, "functions\t%s\n", joinCounts(s.Functions))
	fmt.Fprintf(tw, "cadences\t%s\n", joinCounts(s.Cadences))
	fmt.Fprintf(tw, "modulations\t%d (%d established)\n", s.Modulations, s.Established)
	fmt.Fprintf(tw, "non-chord tones\t%s\n", joinCounts(s.NonChordTones))
	fmt.Fprintf(tw, "voice leading\t%s\n", joinCounts(s.VoiceLeading))
	fmt.Fprintf(tw, "degradations\t%d\n", s.Degradations)
	return tw.Flush()
}

// joinShares lists up to limit shares, all of them when limit is 0
func joinShares(sh []Share, limit int) string {
	if limit > 0 && len(sh) > limit {
		sh = sh[:limit]
	}
	parts := make([]string, len(sh))
	for i, s := range sh {
		parts[i] = fmt.Sprintf("%s %d", s.Label, s.Bars)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func joinCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s %d", l, counts[l])
	}
	return strings.Join(parts, ", ")
}
