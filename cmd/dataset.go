package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-harmony/dataset"
)

var (
	buildOut      string
	buildWorkers  int
	buildMaxFiles int

	packOut string

	inspectTop  int
	inspectJSON bool
)

func init() {
	rootCmd.AddCommand(buildDatasetCmd, packDatasetCmd, inspectCmd)

	buildDatasetCmd.Flags().StringVarP(&buildOut, "out", "o", "tables", "directory for the analysis tables")
	buildDatasetCmd.Flags().IntVarP(&buildWorkers, "workers", "j", 0, "files analyzed concurrently (default one per CPU)")
	buildDatasetCmd.Flags().IntVar(&buildMaxFiles, "max-files", 0, "stop after this many files")
	addAnalysisFlags(buildDatasetCmd)

	packDatasetCmd.Flags().StringVarP(&packOut, "out", "o", "dataset.gob.gz", "bundle file")

	inspectCmd.Flags().IntVar(&inspectTop, "top", 10, "entries shown per distribution")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the summary as JSON")
}

var buildDatasetCmd = &cobra.Command{
	Use:   "build-dataset <dir>",
	Short: "Analyzes every MIDI and MusicXML file under a directory into TSV tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAnalyzer(cmd)
		if err != nil {
			return err
		}
		b := dataset.NewBuilderWithParams(a, dataset.BuildParams{
			Workers:  buildWorkers,
			MaxFiles: buildMaxFiles,
		})
		m, err := b.Build(cmd.Context(), args[0], buildOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d tables written to %s, %d files failed\n",
			len(m.Entries)-m.Failed(), buildOut, m.Failed())
		return nil
	},
}

var packDatasetCmd = &cobra.Command{
	Use:   "pack-dataset <tables-dir|table.tsv...>",
	Short: "Packs analysis tables into a compressed bundle",
	Long: `Packs the tables listed in a build manifest, or the TSV files given,
into a gzip-compressed gob bundle with per-column vocabularies.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := tablePaths(args)
		if err != nil {
			return err
		}
		b, err := dataset.Pack(cmd.Context(), tables)
		if err != nil {
			return err
		}
		if err := b.WriteFile(packOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "bundle %s: %d pieces, %d rows -> %s\n", b.ID, len(b.Pieces), b.Rows(), packOut)
		return nil
	},
}

// tablePaths expands a build directory through its manifest
func tablePaths(args []string) ([]string, error) {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			m, err := dataset.ReadManifest(filepath.Join(args[0], dataset.ManifestFile))
			if err != nil {
				return nil, err
			}
			return m.Tables(args[0]), nil
		}
	}
	return args, nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <bundle>",
	Short: "Summarizes a dataset bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := dataset.ReadBundleFile(args[0])
		if err != nil {
			return err
		}
		s := dataset.Inspect(b, inspectTop)
		if inspectJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		return s.WriteText(cmd.OutOrStdout())
	},
}
