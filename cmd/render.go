package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-harmony/romantext"
	"github.com/RyanBlaney/sonido-harmony/score"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

var (
	renderTo        string
	renderOut       string
	renderTitle     string
	renderTranspose int
)

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderTo, "to", "", "midi, musicxml, mxl or romantext (default from --out extension)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output file (default stdout)")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "title written to MusicXML and RomanText")
	renderCmd.Flags().IntVar(&renderTranspose, "transpose", 0, "semitones to move the analyzed score")
	renderCmd.Flags().StringVar(&analyzeFormat, "input-format", "", "input format when reading stdin")
	addAnalysisFlags(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file|->",
	Short: "Analyzes a file and renders the analyzed score",
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
		title := renderTitle
		if title == "" && args[0] != "-" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		sc := res.Score
		if renderTranspose != 0 {
			moved := sc.Transpose(renderTranspose)
			sc = &moved
		}
		return renderScore(sc, renderTo, renderOut, title)
	},
}

// renderScore writes sc as to, falling back on the extension of out
func renderScore(sc *score.Score, to, out, title string) error {
	if to == "" {
		to = strings.TrimPrefix(filepath.Ext(out), ".")
	}
	w, err := output(out)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := encodeScore(w, sc, to, title); err != nil {
		return err
	}
	return w.Close()
}

func encodeScore(w io.Writer, sc *score.Score, to, title string) error {
	switch strings.ToLower(to) {
	case "rntxt", "romantext", "txt", "":
		doc := romantext.FromScore(sc, romantext.Header{Title: title, Analyst: "sonido-harmony"})
		_, err := doc.WriteTo(w)
		return err
	}
	format, err := transcode.ParseFormat(to)
	if err != nil {
		return err
	}
	switch format {
	case transcode.FormatMIDI:
		return transcode.EncodeMIDI(w, sc.ToTable())
	case transcode.FormatMusicXML:
		return transcode.EncodeMusicXML(w, sc, title)
	case transcode.FormatMXL:
		return transcode.EncodeMXL(w, sc, title)
	}
	return fmt.Errorf("cannot render %s", to)
}
