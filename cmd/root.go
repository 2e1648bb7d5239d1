// Package cmd implements the sonido-harmony command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/rational"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// stage overrides shared by every analyzing command
	keyProfile        string
	rowStep           string
	allowMeterChanges bool
	keepPickup        bool
)

var rootCmd = &cobra.Command{
	Use:   "sonido-harmony",
	Short: "Harmonic analysis of MIDI and MusicXML",
	Long: `sonido-harmony infers bars, voices, keys and Roman-numeral chords from
symbolic music and renders the analysis as JSON, TSV, RomanText, MIDI or MusicXML.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file (default $"+analysis.ConfigEnv+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text or json")
}

// Execute runs the root command
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func setupLogging() error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	var format logging.Format
	switch logFormat {
	case "text":
		format = logging.TextFormat
	case "json":
		format = logging.JSONFormat
	default:
		return fmt.Errorf("unknown log format %q", logFormat)
	}
	logger := logging.NewLogger(os.Stderr, format)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)
	return nil
}

// addAnalysisFlags registers the overrides applied by loadAnalyzer
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&keyProfile, "profile", "", "key profile: krumhansl, aarden or temperley")
	cmd.Flags().StringVar(&rowStep, "row-step", "", "row sampling step in beats, e.g. 1/4")
	cmd.Flags().BoolVar(&allowMeterChanges, "allow-meter-changes", false, "accept inputs that change time signature")
	cmd.Flags().BoolVar(&keepPickup, "keep-pickup", false, "do not shift an anacrusis to start at zero")
}

// loadAnalyzer reads the config file and applies the flags the user set
func loadAnalyzer(cmd *cobra.Command) (*analysis.Analyzer, error) {
	cfg, err := analysis.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("profile") {
		if _, err := tonal.ParseKeyProfile(keyProfile); err != nil {
			return nil, err
		}
		cfg.Key.Profile = keyProfile
	}
	if flags.Changed("row-step") {
		step, err := rational.Parse(rowStep)
		if err != nil {
			return nil, fmt.Errorf("invalid --row-step: %w", err)
		}
		cfg.Table.RowStep = step
	}
	if flags.Changed("allow-meter-changes") {
		cfg.Table.AllowMeterChanges = allowMeterChanges
	}
	if flags.Changed("keep-pickup") {
		cfg.Table.NormalizeAnacrusis = !keepPickup
	}
	return analysis.NewAnalyzer(cfg)
}

// output opens path for writing; "" and "-" mean stdout
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
