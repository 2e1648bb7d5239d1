// Package dataset turns collections of MIDI and MusicXML files into analysis
// tables and packs those tables into a compact bundle.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

// ManifestFile is written next to the tables by Build
const ManifestFile = "manifest.json"

// BuildParams configures a dataset build
type BuildParams struct {
	Workers  int `json:"workers"`   // concurrent files, <= 0 means GOMAXPROCS
	MaxFiles int `json:"max_files"` // 0 means no limit
}

// DefaultBuildParams uses one worker per CPU
func DefaultBuildParams() BuildParams {
	return BuildParams{Workers: runtime.GOMAXPROCS(0)}
}

// Entry is the outcome for one source file
type Entry struct {
	Source string `json:"source"`
	Table  string `json:"table,omitempty"` // relative to the output directory
	Bars   int    `json:"bars"`
	Rows   int    `json:"rows"`
	Error  string `json:"error,omitempty"`
}

// Manifest lists every file a build touched, in source order
type Manifest struct {
	Root    string  `json:"root"`
	Entries []Entry `json:"entries"`
}

// Tables returns the table paths of successful entries
func (m *Manifest) Tables(outDir string) []string {
	var out []string
	for _, e := range m.Entries {
		if e.Error == "" {
			out = append(out, filepath.Join(outDir, e.Table))
		}
	}
	return out
}

// Failed counts entries that could not be analyzed
func (m *Manifest) Failed() int {
	n := 0
	for _, e := range m.Entries {
		if e.Error != "" {
			n++
		}
	}
	return n
}

// Builder analyzes files concurrently and writes one TSV table per file
type Builder struct {
	analyzer *analysis.Analyzer
	params   BuildParams
	logger   logging.Logger
}

// NewBuilder creates a builder with default params
func NewBuilder(analyzer *analysis.Analyzer) *Builder {
	return NewBuilderWithParams(analyzer, DefaultBuildParams())
}

// NewBuilderWithParams creates a builder with custom params
func NewBuilderWithParams(analyzer *analysis.Analyzer, params BuildParams) *Builder {
	if params.Workers <= 0 {
		params.Workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		analyzer: analyzer,
		params:   params,
		logger: logging.WithFields(logging.Fields{
			"component": "dataset",
		}),
	}
}

// Gather walks root for MIDI and MusicXML files in lexical order
func (b *Builder) Gather(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := transcode.FormatFromPath(path); err != nil {
			return nil
		}
		if b.params.MaxFiles == 0 || len(paths) < b.params.MaxFiles {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return paths, nil
}

// Build analyzes every supported file under root and writes the tables and
// a manifest to outDir. A file that fails to analyze is recorded in the
// manifest; only cancellation or an unwritable output aborts the build.
func (b *Builder) Build(ctx context.Context, root, outDir string) (*Manifest, error) {
	logger := b.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Build",
		"root":     root,
	})

	paths, err := b.Gather(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := &Manifest{Root: root, Entries: make([]Entry, len(paths))}
	step := b.analyzer.Config().Table.RowStep

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.params.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := b.buildOne(gctx, root, outDir, path, step)
			manifest.Entries[i] = entry
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error(err, "Dataset build aborted")
		return nil, err
	}

	if err := writeManifest(filepath.Join(outDir, ManifestFile), manifest); err != nil {
		return nil, err
	}
	logger.Info("Dataset built", logging.Fields{
		"files":  len(paths),
		"failed": manifest.Failed(),
		"output": outDir,
	})
	return manifest, nil
}

func (b *Builder) buildOne(ctx context.Context, root, outDir, path string, step rational.Rat) (Entry, error) {
	entry := Entry{Source: path}
	res, err := b.analyzer.AnalyzeFile(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return entry, ctx.Err()
		}
		b.logger.Warn("Skipping file", logging.Fields{"source": path, "error": err.Error()})
		entry.Error = err.Error()
		return entry, nil
	}

	rows := analysis.Rows(res, step)
	entry.Table = tableName(root, path)
	entry.Bars = len(res.Bars)
	entry.Rows = len(rows)

	f, err := os.Create(filepath.Join(outDir, entry.Table))
	if err != nil {
		return entry, fmt.Errorf("failed to create table: %w", err)
	}
	defer f.Close()
	if err := analysis.WriteRowsTSV(f, rows); err != nil {
		return entry, fmt.Errorf("failed to write table for %s: %w", path, err)
	}
	return entry, f.Close()
}

// tableName flattens the path below root into a single file name
func tableName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(filepath.ToSlash(rel), "/")
	parts = slices.DeleteFunc(parts, func(s string) bool { return s == "" || s == "." })
	return strings.Join(parts, "__") + ".tsv"
}

func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadManifest loads a manifest written by Build
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
