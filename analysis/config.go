package analysis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-harmony/algorithms/temporal"
	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/algorithms/voicing"
	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

// ConfigEnv names a JSON file read by LoadConfig when no path is given
const ConfigEnv = "SONIDO_HARMONY_CONFIG"

// TableParams configures the note table before inference and the tabular output
type TableParams struct {
	NormalizeAnacrusis bool         `json:"normalize_anacrusis"`
	AllowMeterChanges  bool         `json:"allow_meter_changes"`
	RowStep            rational.Rat `json:"row_step"` // sampling grid of Rows, in beats
}

// DefaultTableParams shifts pickups and samples rows every sixteenth
func DefaultTableParams() TableParams {
	return TableParams{
		NormalizeAnacrusis: true,
		RowStep:            rational.New(1, 4),
	}
}

// CompareParams configures score comparison
type CompareParams struct {
	Quantum     rational.Rat `json:"quantum"`      // onset grid, in beats
	BandRadius  int          `json:"band_radius"`  // Sakoe-Chiba band, <= 0 disables it
	MaxDistance float64      `json:"max_distance"` // mean DTW cost still counted as a match
}

// DefaultCompareParams compares on a sixteenth-note grid
func DefaultCompareParams() CompareParams {
	return CompareParams{
		Quantum:     rational.New(1, 4),
		BandRadius:  -1,
		MaxDistance: 0.25,
	}
}

// Config holds the parameters of every stage
type Config struct {
	Decoder    transcode.DecoderConfig `json:"decoder"`
	Table      TableParams             `json:"table"`
	Meter      temporal.BarGridParams  `json:"meter"`
	Voice      voicing.VoiceParams     `json:"voice"`
	Key        tonal.KeyParams         `json:"key"`
	Chord      tonal.ChordParams       `json:"chord"`
	Resolver   tonal.ResolverParams    `json:"resolver"`
	Cadence    tonal.CadenceParams     `json:"cadence"`
	Modulation tonal.ModulationParams  `json:"modulation"`
	Leading    voicing.LeadingParams   `json:"leading"`
	Embellish  voicing.EmbellishParams `json:"embellishment"`
	Compare    CompareParams           `json:"compare"`
}

// DefaultConfig returns the defaults of every stage
func DefaultConfig() *Config {
	return &Config{
		Decoder:    *transcode.DefaultDecoderConfig(),
		Table:      DefaultTableParams(),
		Meter:      temporal.DefaultBarGridParams(),
		Voice:      voicing.DefaultVoiceParams(),
		Key:        tonal.DefaultKeyParams(),
		Chord:      tonal.DefaultChordParams(),
		Resolver:   tonal.DefaultResolverParams(),
		Cadence:    tonal.DefaultCadenceParams(),
		Modulation: tonal.DefaultModulationParams(),
		Leading:    voicing.DefaultLeadingParams(),
		Embellish:  voicing.DefaultEmbellishParams(),
		Compare:    DefaultCompareParams(),
	}
}

// LoadConfig reads a JSON file over the defaults. An empty path falls back to
// the file named by SONIDO_HARMONY_CONFIG, then to the defaults alone.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, faults.WrapRejected(err, "malformed config "+path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects parameter values no stage can work with
func (c *Config) Validate() error {
	if c.Table.RowStep.Sign() <= 0 {
		return faults.Rejectf("row step must be positive, got %s", c.Table.RowStep)
	}
	if c.Compare.Quantum.Sign() <= 0 {
		return faults.Rejectf("compare quantum must be positive, got %s", c.Compare.Quantum)
	}
	if _, err := tonal.ParseKeyProfile(c.Key.Profile); err != nil {
		return faults.WrapRejected(err, "invalid key profile")
	}
	switch c.Meter.Source {
	case temporal.SourceAuto, temporal.SourceMetadata, temporal.SourceEstimate:
	default:
		return faults.Rejectf("unknown bar source %q", c.Meter.Source)
	}
	if c.Resolver.KeyDistanceWeight < 0 {
		return faults.Rejectf("key distance weight must not be negative")
	}
	if c.Cadence.PhraseLength < 0 {
		return faults.Rejectf("phrase length must not be negative, got %d", c.Cadence.PhraseLength)
	}
	if c.Modulation.MinBars < 1 {
		return faults.Rejectf("a key must hold at least one bar, got %d", c.Modulation.MinBars)
	}
	if c.Leading.MaxSpacing < 0 || c.Leading.LeapThreshold < 0 {
		return faults.Rejectf("voice-leading limits must not be negative")
	}
	if c.Embellish.MaxGap.Sign() < 0 {
		return faults.Rejectf("embellishment gap must not be negative, got %s", c.Embellish.MaxGap)
	}
	return nil
}

// Sync copies the table options into the decoder and meter settings so one
// flag drives every stage
func (c *Config) Sync() {
	c.Decoder.AllowMeterChanges = c.Table.AllowMeterChanges
	c.Decoder.NormalizeAnacrusis = c.Table.NormalizeAnacrusis
	c.Meter.AllowMeterChanges = c.Table.AllowMeterChanges
}
