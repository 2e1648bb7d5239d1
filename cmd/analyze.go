package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/server"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

var (
	analyzeAs     string
	analyzeOut    string
	analyzeFormat string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeAs, "as", "text", "output: text, summary, json or tsv")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "output file (default stdout)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "input-format", "", "input format when reading stdin: midi, musicxml or mxl")
	addAnalysisFlags(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Analyzes a MIDI or MusicXML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAnalyzer(cmd)
		if err != nil {
			return err
		}
		res, err := analyzeInput(cmd.Context(), a, args[0], analyzeFormat)
		if err != nil {
			return err
		}

		w, err := output(analyzeOut)
		if err != nil {
			return err
		}
		defer w.Close()
		switch analyzeAs {
		case "text":
			err = writeText(w, res)
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			err = enc.Encode(server.NewAnalyzeResponse(res))
		case "summary":
			err = analysis.WriteSummary(w, analysis.Summarize(res))
		case "tsv":
			err = analysis.WriteRowsTSV(w, analysis.Rows(res, a.Config().Table.RowStep))
		default:
			return fmt.Errorf("unknown output %q", analyzeAs)
		}
		if err != nil {
			return err
		}
		return w.Close()
	},
}

// analyzeInput analyzes a file, or stdin when path is "-"
func analyzeInput(ctx context.Context, a *analysis.Analyzer, path, format string) (*analysis.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if path != "-" {
		return a.AnalyzeFile(ctx, path)
	}
	f, err := transcode.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("reading stdin needs --input-format: %w", err)
	}
	return a.AnalyzeReader(ctx, os.Stdin, f)
}

func writeText(w io.Writer, res *analysis.Result) error {
	fmt.Fprintf(w, "grid: %s per bar, offset %s (%s)\n", res.Grid.Duration, res.Grid.Offset, res.Grid.Source)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "bar\tstart\tkey\tconf\tchord\tin\tfn\tcadence")
	for i, bar := range res.Bars {
		c := res.Chords[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\t%s\t%s\n",
			i+1, bar.Start.Sub(res.Shift), res.Keys[i].Name(), res.Confidence[i], c.Label(), c.Tonality.Name(),
			res.FunctionAt(i).Label(), res.CadenceAt(i).Label())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, m := range res.Modulations {
		fmt.Fprintln(w, "modulation:", m)
	}
	for _, issue := range res.Leading {
		fmt.Fprintln(w, "voice leading:", issue)
	}
	for _, d := range res.Degradations {
		fmt.Fprintln(w, "warning:", d)
	}
	_, err := fmt.Fprintf(w, "key switches: %g\n", res.Switches)
	return err
}
