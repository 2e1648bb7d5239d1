package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// NoPitch marks a row without sounding notes in the bass column
const NoPitch = -1

// Row is one sample of the analysis on a fixed grid
type Row struct {
	Offset       rational.Rat `json:"offset"` // beats, in the input's own time
	Bar          int          `json:"bar"`
	Bass         int          `json:"bass"` // lowest sounding MIDI pitch or NoPitch
	Soprano      string       `json:"s"`
	Alto         string       `json:"a"`
	Tenor        string       `json:"t"`
	BassNote     string       `json:"b"`
	LocalKey     string       `json:"local_key"`
	TonicizedKey string       `json:"tonicized_key"`
	Roman        string       `json:"roman"`
	Inversion    int          `json:"inversion"`
	Quality      string       `json:"quality"`
	PitchClasses []int        `json:"pcset"`
	ChordChange  bool         `json:"harmonic_rhythm"`
	Function     string       `json:"function"`
	Cadence      string       `json:"cadence"` // on the downbeat the cadence arrives at
	Symbol       string       `json:"chord_symbol"`
}

// RowColumns are the TSV header names in column order
var RowColumns = []string{
	"offset", "measure", "bass", "s", "a", "t", "b",
	"local_key", "tonicized_key", "roman", "inversion", "quality", "pcset", "harmonic_rhythm",
	"function", "cadence", "chord_symbol",
}

// Rows samples the result every step beats across its bars. Voice spellings
// follow the local key; the highest sounding note is the soprano and the
// lowest the bass.
func Rows(res *Result, step rational.Rat) []Row {
	if step.Sign() <= 0 || len(res.Bars) == 0 {
		return nil
	}
	pitched := res.Table.Pitched()

	var out []Row
	for bi, bar := range res.Bars {
		c := res.Chords[bi]
		key := c.Tonality
		base := Row{
			Bar:       bi,
			LocalKey:  key.Name(),
			Roman:     c.Label(),
			Inversion: c.Roman.Inversion(),
			Quality:   c.Quality.String(),
			Function:  res.FunctionAt(bi).Label(),
		}
		if c.NoChord {
			base.TonicizedKey = key.Name()
			base.Inversion = 0
			base.Quality = ""
		} else {
			base.TonicizedKey = c.Roman.Key(key).Name()
			if ch, err := theory.ChordOf(c.Roman, key); err == nil {
				base.PitchClasses = ch.PitchClasses()
				base.Symbol = ch.Symbol().String()
			}
		}

		for t := bar.Start; t.Less(bar.End); t = t.Add(step) {
			row := base
			row.Offset = t.Sub(res.Shift)
			row.ChordChange = t.Equal(bar.Start)
			if row.ChordChange {
				row.Cadence = res.CadenceAt(bi).Label()
			}
			row.Bass = NoPitch

			sounding := soundingAt(pitched, t)
			if n := len(sounding); n > 0 {
				row.Bass = sounding[n-1]
				row.Soprano = key.Spell(sounding[0]).String()
				if n >= 2 {
					row.BassNote = key.Spell(sounding[n-1]).String()
				}
				if n >= 3 {
					row.Alto = key.Spell(sounding[1]).String()
				}
				if n >= 4 {
					row.Tenor = key.Spell(sounding[2]).String()
				}
			}
			out = append(out, row)
		}
	}
	return out
}

// soundingAt returns the distinct pitches sounding at t, highest first
func soundingAt(ns []notes.Note, t rational.Rat) []int {
	seen := make(map[int]bool)
	var out []int
	for _, n := range ns {
		if n.Sounds(t) && !seen[n.Pitch] {
			seen[n.Pitch] = true
			out = append(out, n.Pitch)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Record renders the row as TSV fields in RowColumns order
func (r Row) Record() []string {
	pcs := make([]string, len(r.PitchClasses))
	for i, pc := range r.PitchClasses {
		pcs[i] = strconv.Itoa(pc)
	}
	return []string{
		r.Offset.String(),
		strconv.Itoa(r.Bar),
		strconv.Itoa(r.Bass),
		r.Soprano, r.Alto, r.Tenor, r.BassNote,
		r.LocalKey, r.TonicizedKey, r.Roman,
		strconv.Itoa(r.Inversion),
		r.Quality,
		strings.Join(pcs, ","),
		strconv.FormatBool(r.ChordChange),
		r.Function,
		r.Cadence,
		r.Symbol,
	}
}

// WriteRowsTSV writes rows under a header line
func WriteRowsTSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(RowColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRowsTSV parses the output of WriteRowsTSV
func ReadRowsTSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(RowColumns)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, faults.WrapRejected(err, "malformed analysis table")
	}
	if len(records) == 0 {
		return nil, faults.Reject("missing header", "The analysis table is empty.")
	}
	if strings.Join(records[0], "\t") != strings.Join(RowColumns, "\t") {
		return nil, faults.Rejectf("unexpected header %q", strings.Join(records[0], " "))
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := ParseRow(rec)
		if err != nil {
			return nil, faults.WrapRejected(err, fmt.Sprintf("line %d", i+2))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseRow parses fields in RowColumns order
func ParseRow(rec []string) (Row, error) {
	if len(rec) != len(RowColumns) {
		return Row{}, fmt.Errorf("expected %d fields, got %d", len(RowColumns), len(rec))
	}
	var row Row
	var err error
	if row.Offset, err = rational.Parse(rec[0]); err != nil {
		return row, err
	}
	if row.Bar, err = strconv.Atoi(rec[1]); err != nil {
		return row, err
	}
	if row.Bass, err = strconv.Atoi(rec[2]); err != nil {
		return row, err
	}
	row.Soprano, row.Alto, row.Tenor, row.BassNote = rec[3], rec[4], rec[5], rec[6]
	row.LocalKey, row.TonicizedKey, row.Roman = rec[7], rec[8], rec[9]
	if row.Inversion, err = strconv.Atoi(rec[10]); err != nil {
		return row, err
	}
	row.Quality = rec[11]
	if rec[12] != "" {
		for _, f := range strings.Split(rec[12], ",") {
			pc, err := strconv.Atoi(f)
			if err != nil {
				return row, err
			}
			row.PitchClasses = append(row.PitchClasses, pc)
		}
	}
	if row.ChordChange, err = strconv.ParseBool(rec[13]); err != nil {
		return row, err
	}
	if _, err := theory.ParseFunction(rec[14]); err != nil {
		return row, err
	}
	if _, err := theory.ParseCadence(rec[15]); err != nil {
		return row, err
	}
	row.Function, row.Cadence = rec[14], rec[15]
	if rec[16] != "" {
		if _, err := theory.ParseChordSymbol(rec[16]); err != nil {
			return row, err
		}
	}
	row.Symbol = rec[16]
	return row, nil
}
