package dataset

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"
)

// Count is a vocabulary entry with its frequency
type Count struct {
	Value string `json:"value"`
	N     int    `json:"n"`
}

// Summary describes a bundle
type Summary struct {
	ID        string         `json:"id"`
	Created   time.Time      `json:"created"`
	Pieces    int            `json:"pieces"`
	Rows      int            `json:"rows"`
	Changes   int            `json:"chord_changes"`
	VocabSize map[string]int `json:"vocab_size"`
	Romans    []Count        `json:"romans"` // most frequent first, counted at chord changes
	Keys      []Count        `json:"keys"`
}

// Inspect summarizes a bundle, keeping the top entries of the Roman numeral
// and local key distributions
func Inspect(b *Bundle, top int) Summary {
	s := Summary{
		ID:        b.ID,
		Created:   b.Created,
		Pieces:    len(b.Pieces),
		Rows:      b.Rows(),
		VocabSize: make(map[string]int, len(b.Vocab)),
	}
	for name, vocab := range b.Vocab {
		s.VocabSize[name] = len(vocab)
	}

	col := func(name string) int { return slices.Index(b.Columns[1:], name) }
	roman, key, change := col("roman"), col("local_key"), col("harmonic_rhythm")
	if roman < 0 || key < 0 || change < 0 {
		return s
	}
	changeTrue := int32(slices.Index(b.Vocab["harmonic_rhythm"], "true"))

	romans := make(map[int32]int)
	keys := make(map[int32]int)
	for _, p := range b.Pieces {
		for r := range p.Len() {
			if p.Codes[change][r] != changeTrue {
				continue
			}
			s.Changes++
			romans[p.Codes[roman][r]]++
			keys[p.Codes[key][r]]++
		}
	}
	s.Romans = topCounts(romans, b.Vocab["roman"], top)
	s.Keys = topCounts(keys, b.Vocab["local_key"], top)
	return s
}

func topCounts(counts map[int32]int, vocab []string, top int) []Count {
	out := make([]Count, 0, len(counts))
	for code, n := range counts {
		out = append(out, Count{Value: vocab[code], N: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.N, a.N); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

// WriteText prints the summary for humans
func (s Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "bundle %s (created %s)\n", s.ID, s.Created.Format(time.RFC3339)); err != nil {
		return err
	}
	fmt.Fprintf(w, "pieces: %d\nrows: %d\nchord changes: %d\n", s.Pieces, s.Rows, s.Changes)

	names := make([]string, 0, len(s.VocabSize))
	for name := range s.VocabSize {
		names = append(names, name)
	}
	slices.Sort(names)
	fmt.Fprintln(w, "vocabulary:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %d\n", name, s.VocabSize[name])
	}
	fmt.Fprintln(w, "romans:")
	for _, c := range s.Romans {
		fmt.Fprintf(w, "  %-14s %d\n", c.Value, c.N)
	}
	fmt.Fprintln(w, "keys:")
	for _, c := range s.Keys {
		_, err := fmt.Fprintf(w, "  %-14s %d\n", c.Value, c.N)
		if err != nil {
			return err
		}
	}
	return nil
}
