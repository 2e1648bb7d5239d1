package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-harmony/romantext"
	"github.com/RyanBlaney/sonido-harmony/score"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

var (
	rntxtTo         string
	rntxtOut        string
	rntxtRelativize bool
	rntxtVoicing    string
	rntxtTranspose  int
)

func init() {
	rootCmd.AddCommand(romantextCmd)
	romantextCmd.Flags().StringVar(&rntxtTo, "to", "romantext", "midi, musicxml, mxl or romantext")
	romantextCmd.Flags().StringVarP(&rntxtOut, "out", "o", "", "output file (default stdout)")
	romantextCmd.Flags().BoolVar(&rntxtRelativize, "relativize", false, "rewrite modulations relative to the initial key")
	romantextCmd.Flags().IntVar(&rntxtTranspose, "transpose", 0, "semitones to move every key")
	romantextCmd.Flags().StringVar(&rntxtVoicing, "voicing", "block", "block chords or satb four-part writing")
}

var romantextCmd = &cobra.Command{
	Use:   "romantext <file.rntxt|->",
	Short: "Realizes a RomanText analysis as a score",
	Long: `Parses a RomanText document, optionally rewrites its modulations as
tonicizations of the opening key, and renders the realized chords. With
--voicing satb each chord is voiced for four parts and led from the one
before it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		doc, err := romantext.Parse(in)
		if err != nil {
			return err
		}
		if rntxtRelativize {
			doc = romantext.Relativize(doc)
		}
		if rntxtTranspose != 0 {
			doc = doc.Transpose(rntxtTranspose)
		}
		if rntxtTo == "romantext" || rntxtTo == "rntxt" {
			w, err := output(rntxtOut)
			if err != nil {
				return err
			}
			defer w.Close()
			if _, err := doc.WriteTo(w); err != nil {
				return err
			}
			return w.Close()
		}
		sc, err := realizeDocument(doc)
		if err != nil {
			return err
		}
		return renderScore(sc, rntxtTo, rntxtOut, doc.Header.Title)
	},
}

func realizeDocument(doc *romantext.Document) (*score.Score, error) {
	switch rntxtVoicing {
	case "", "block":
		return romantext.Realize(doc)
	case "satb":
		return romantext.RealizeFourPart(doc, theory.NewVoicer())
	}
	return nil, fmt.Errorf("unknown voicing %q", rntxtVoicing)
}
