package dataset

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/logging"
)

// Piece is one analysis table in column-major form. Offsets stay as text;
// every other column is an index into the bundle vocabulary of that column.
type Piece struct {
	Name    string
	Offsets []string
	Codes   [][]int32 // Codes[c][r] for c over Bundle.Columns[1:]
}

// Len is the number of rows
func (p Piece) Len() int {
	return len(p.Offsets)
}

// Bundle packs many analysis tables with shared column vocabularies
type Bundle struct {
	ID      string
	Created time.Time
	Columns []string
	Vocab   map[string][]string
	Pieces  []Piece
}

// Rows counts the rows across all pieces
func (b *Bundle) Rows() int {
	n := 0
	for _, p := range b.Pieces {
		n += p.Len()
	}
	return n
}

// Piece decodes piece i back into analysis rows
func (b *Bundle) Piece(i int) ([]analysis.Row, error) {
	if i < 0 || i >= len(b.Pieces) {
		return nil, faults.Rejectf("piece %d out of range [0,%d)", i, len(b.Pieces))
	}
	p := b.Pieces[i]
	coded := b.Columns[1:]
	if len(p.Codes) != len(coded) {
		return nil, faults.Rejectf("piece %s has %d columns, want %d", p.Name, len(p.Codes), len(coded))
	}

	rows := make([]analysis.Row, p.Len())
	rec := make([]string, len(b.Columns))
	for r := range rows {
		rec[0] = p.Offsets[r]
		for c, name := range coded {
			vocab := b.Vocab[name]
			code := p.Codes[c][r]
			if code < 0 || int(code) >= len(vocab) {
				return nil, faults.Rejectf("piece %s row %d: code %d outside the %s vocabulary", p.Name, r, code, name)
			}
			rec[c+1] = vocab[code]
		}
		row, err := analysis.ParseRow(rec)
		if err != nil {
			return nil, faults.WrapRejected(err, fmt.Sprintf("piece %s row %d", p.Name, r))
		}
		rows[r] = row
	}
	return rows, nil
}

// Pack reads analysis tables and codes every column except the offset
// against a sorted vocabulary of the values seen across all tables
func Pack(ctx context.Context, paths []string) (*Bundle, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "dataset",
		"function":  "Pack",
	})

	coded := analysis.RowColumns[1:]
	tables := make([][][]string, len(paths))
	seen := make([]map[string]bool, len(coded))
	for c := range seen {
		seen[c] = make(map[string]bool)
	}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := readTable(path)
		if err != nil {
			return nil, err
		}
		records := make([][]string, len(rows))
		for r, row := range rows {
			rec := row.Record()
			for c := range coded {
				seen[c][rec[c+1]] = true
			}
			records[r] = rec
		}
		tables[i] = records
	}

	b := &Bundle{
		ID:      uuid.New().String(),
		Created: time.Now().UTC(),
		Columns: slices.Clone(analysis.RowColumns),
		Vocab:   make(map[string][]string, len(coded)),
	}
	index := make([]map[string]int32, len(coded))
	for c, name := range coded {
		vocab := make([]string, 0, len(seen[c]))
		for v := range seen[c] {
			vocab = append(vocab, v)
		}
		slices.Sort(vocab)
		b.Vocab[name] = vocab
		index[c] = make(map[string]int32, len(vocab))
		for k, v := range vocab {
			index[c][v] = int32(k)
		}
	}

	for i, records := range tables {
		p := Piece{
			Name:    strings.TrimSuffix(filepath.Base(paths[i]), filepath.Ext(paths[i])),
			Offsets: make([]string, len(records)),
			Codes:   make([][]int32, len(coded)),
		}
		for c := range coded {
			p.Codes[c] = make([]int32, len(records))
		}
		for r, rec := range records {
			p.Offsets[r] = rec[0]
			for c := range coded {
				p.Codes[c][r] = index[c][rec[c+1]]
			}
		}
		b.Pieces = append(b.Pieces, p)
	}

	logger.Info("Dataset packed", logging.Fields{
		"id":     b.ID,
		"pieces": len(b.Pieces),
		"rows":   b.Rows(),
	})
	return b, nil
}

func readTable(path string) ([]analysis.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()
	rows, err := analysis.ReadRowsTSV(f)
	if err != nil {
		return nil, faults.WrapRejected(err, path)
	}
	return rows, nil
}

// Write stores the bundle as gzip-compressed gob
func (b *Bundle) Write(w io.Writer) error {
	zw := gzip.NewWriter(w)
	zw.Name = b.ID
	if err := gob.NewEncoder(zw).Encode(b); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return zw.Close()
}

// WriteFile stores the bundle at path
func (b *Bundle) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	if err := b.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadBundle loads a bundle written by Write
func ReadBundle(r io.Reader) (*Bundle, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, faults.WrapRejected(err, "bundle is not gzip data")
	}
	defer zr.Close()
	var b Bundle
	if err := gob.NewDecoder(zr).Decode(&b); err != nil {
		return nil, faults.WrapRejected(err, "malformed bundle")
	}
	if _, err := uuid.Parse(b.ID); err != nil {
		return nil, faults.WrapRejected(err, "bundle id")
	}
	return &b, nil
}

// ReadBundleFile loads a bundle from path
func ReadBundleFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer f.Close()
	return ReadBundle(f)
}
