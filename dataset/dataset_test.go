package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

func triads(chords ...[]int) *notes.Table {
	var ns []notes.Note
	for bar, pitches := range chords {
		for _, p := range pitches {
			ns = append(ns, notes.Note{
				Onset:    rational.FromInt(int64(bar * 4)),
				Duration: rational.FromInt(4),
				Pitch:    p,
				Velocity: 80,
			})
		}
	}
	return notes.NewTable(ns, notes.Metadata{
		TimeSignatures: []notes.TimeSignature{{Numerator: 4, Denominator: 4}},
	})
}

func writeMIDI(t *testing.T, path string, table *notes.Table) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	require.NoError(t, transcode.EncodeMIDI(&buf, table))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// corpus lays out two good files, one broken file and one ignored file
func corpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	c, g, f := []int{60, 64, 67}, []int{55, 59, 62}, []int{53, 57, 60}
	writeMIDI(t, filepath.Join(root, "a.mid"), triads(c, g, c))
	writeMIDI(t, filepath.Join(root, "set", "b.mid"), triads(c, f, g, c))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.mid"), []byte("not midi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("skip me"), 0o644))
	return root
}

func newBuilder(t *testing.T, params BuildParams) *Builder {
	t.Helper()
	a, err := analysis.NewAnalyzer(nil)
	require.NoError(t, err)
	return NewBuilderWithParams(a, params)
}

func TestGather(t *testing.T) {
	root := corpus(t)

	paths, err := newBuilder(t, DefaultBuildParams()).Gather(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.mid"),
		filepath.Join(root, "broken.mid"),
		filepath.Join(root, "set", "b.mid"),
	}, paths)

	limited, err := newBuilder(t, BuildParams{MaxFiles: 1}).Gather(root)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestBuild(t *testing.T) {
	root := corpus(t)
	out := filepath.Join(t.TempDir(), "tables")

	m, err := newBuilder(t, BuildParams{Workers: 2}).Build(context.Background(), root, out)
	require.NoError(t, err)
	require.Len(t, m.Entries, 3)
	assert.Equal(t, 1, m.Failed())

	byTable := map[string]Entry{}
	for _, e := range m.Entries {
		if e.Error != "" {
			assert.Equal(t, filepath.Join(root, "broken.mid"), e.Source)
			assert.NotContains(t, e.Error, "<ftag>")
			continue
		}
		byTable[e.Table] = e
	}
	require.Contains(t, byTable, "a.tsv")
	require.Contains(t, byTable, "set__b.tsv")
	assert.Equal(t, 3, byTable["a.tsv"].Bars)
	assert.Equal(t, 48, byTable["a.tsv"].Rows)
	assert.Equal(t, 4, byTable["set__b.tsv"].Bars)

	f, err := os.Open(filepath.Join(out, "a.tsv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := analysis.ReadRowsTSV(f)
	require.NoError(t, err)
	assert.Len(t, rows, 48)
	assert.Equal(t, "I", rows[0].Roman)
	assert.Equal(t, "V", rows[16].Roman)

	saved, err := ReadManifest(filepath.Join(out, ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, m, saved)
	assert.Len(t, saved.Tables(out), 2)
}

func TestBuildCancelled(t *testing.T) {
	root := corpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBuilder(t, BuildParams{Workers: 1}).Build(ctx, root, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPackRoundTrip(t *testing.T) {
	root := corpus(t)
	out := t.TempDir()
	m, err := newBuilder(t, DefaultBuildParams()).Build(context.Background(), root, out)
	require.NoError(t, err)

	tables := m.Tables(out)
	b, err := Pack(context.Background(), tables)
	require.NoError(t, err)
	_, err = uuid.Parse(b.ID)
	require.NoError(t, err)
	require.Len(t, b.Pieces, 2)
	assert.Equal(t, analysis.RowColumns, b.Columns)
	assert.Equal(t, 48+64, b.Rows())
	assert.Contains(t, b.Vocab["roman"], "IV")
	assert.IsIncreasing(t, b.Vocab["local_key"])

	path := filepath.Join(out, "bundle.gob.gz")
	require.NoError(t, b.WriteFile(path))
	back, err := ReadBundleFile(path)
	require.NoError(t, err)
	assert.Equal(t, b.ID, back.ID)
	assert.True(t, b.Created.Equal(back.Created))
	assert.Equal(t, b.Vocab, back.Vocab)

	for i, table := range tables {
		f, err := os.Open(table)
		require.NoError(t, err)
		want, err := analysis.ReadRowsTSV(f)
		f.Close()
		require.NoError(t, err)

		got, err := back.Piece(i)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for r := range want {
			assert.Equal(t, want[r].Record(), got[r].Record(), "piece %d row %d", i, r)
		}
	}

	_, err = back.Piece(5)
	assert.True(t, faults.Is(err, faults.InputRejected))
}

func TestReadBundleRejectsGarbage(t *testing.T) {
	_, err := ReadBundle(bytes.NewReader([]byte("plain text")))
	assert.True(t, faults.Is(err, faults.InputRejected))
}

func TestInspect(t *testing.T) {
	root := corpus(t)
	out := t.TempDir()
	m, err := newBuilder(t, DefaultBuildParams()).Build(context.Background(), root, out)
	require.NoError(t, err)
	b, err := Pack(context.Background(), m.Tables(out))
	require.NoError(t, err)

	s := Inspect(b, 2)
	assert.Equal(t, 2, s.Pieces)
	assert.Equal(t, 7, s.Changes, "one change per bar")
	require.Len(t, s.Romans, 2)
	assert.Equal(t, Count{Value: "I", N: 4}, s.Romans[0])
	assert.Equal(t, Count{Value: "V", N: 2}, s.Romans[1])
	assert.Equal(t, len(b.Vocab["roman"]), s.VocabSize["roman"])

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	assert.Contains(t, buf.String(), b.ID)
	assert.Contains(t, buf.String(), "chord changes: 7")
}
