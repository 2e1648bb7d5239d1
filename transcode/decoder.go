package transcode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
)

// Format names a supported symbolic input format
type Format string

const (
	FormatMIDI     Format = "midi"
	FormatMusicXML Format = "musicxml"
	FormatMXL      Format = "mxl"
)

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi", ".smf":
		return FormatMIDI, nil
	case ".xml", ".musicxml":
		return FormatMusicXML, nil
	case ".mxl":
		return FormatMXL, nil
	}
	return "", faults.Rejectf("unsupported file extension %q", filepath.Ext(path))
}

// ParseFormat accepts a format name or a file extension
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".") {
	case "mid", "midi", "smf":
		return FormatMIDI, nil
	case "xml", "musicxml":
		return FormatMusicXML, nil
	case "mxl":
		return FormatMXL, nil
	}
	return "", faults.Rejectf("unsupported format %q", name)
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	AllowMeterChanges  bool  `json:"allow_meter_changes"`
	KeepPercussion     bool  `json:"keep_percussion"`     // drop channel-10 notes when false
	NormalizeAnacrusis bool  `json:"normalize_anacrusis"` // shift negative onsets by whole bars
	SplitChannels      bool  `json:"split_channels"`      // single-track MIDI: one track per channel
	DefaultVelocity    int   `json:"default_velocity"`    // for sources without dynamics
	MaxInputBytes      int64 `json:"max_input_bytes"`     // 0 means unlimited
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		AllowMeterChanges:  false,
		KeepPercussion:     true,
		NormalizeAnacrusis: true,
		SplitChannels:      true,
		DefaultVelocity:    80, // mf
		MaxInputBytes:      64 << 20,
	}
}

// Decoder turns MIDI and MusicXML sources into note tables
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes the file at filename, picking the format from its extension
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*notes.Table, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	format, err := FormatFromPath(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filename)
	if err != nil {
		logger.Error(err, "Failed to open input file")
		return nil, faults.WrapRejected(err, "cannot open input file")
	}
	defer f.Close()

	table, err := d.Decode(ctx, f, format)
	if err != nil {
		return nil, err
	}
	table.Meta.Source = filename
	return table, nil
}

// Decode reads a whole source from r
func (d *Decoder) Decode(ctx context.Context, r io.Reader, format Format) (*notes.Table, error) {
	var src io.Reader = r
	if d.config.MaxInputBytes > 0 {
		src = io.LimitReader(r, d.config.MaxInputBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, faults.WrapRejected(err, "cannot read input")
	}
	if d.config.MaxInputBytes > 0 && int64(len(data)) > d.config.MaxInputBytes {
		return nil, faults.Rejectf("input exceeds %d bytes", d.config.MaxInputBytes)
	}
	return d.DecodeBytes(ctx, data, format)
}

// DecodeBytes decodes an in-memory source
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte, format Format) (*notes.Table, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "decoder",
		"function":  "DecodeBytes",
		"format":    string(format),
		"data_size": len(data),
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, faults.Reject("empty input", "The input is empty.")
	}

	var (
		table *notes.Table
		err   error
	)
	switch format {
	case FormatMIDI:
		table, err = d.decodeMIDI(bytes.NewReader(data))
	case FormatMusicXML:
		table, err = d.decodeMusicXML(bytes.NewReader(data))
	case FormatMXL:
		table, err = d.decodeMXL(data)
	default:
		err = faults.Rejectf("unsupported format %q", format)
	}
	if err != nil {
		logger.Error(err, "Failed to decode input")
		return nil, err
	}

	if !d.config.KeepPercussion {
		table = notes.NewTable(table.Pitched(), table.Meta)
	}
	table.Meta.Format = string(format)

	if err := table.Validate(d.config.AllowMeterChanges); err != nil {
		logger.Warn("Input rejected", logging.Fields{"issue": faults.Issue(err)})
		return nil, err
	}
	if d.config.NormalizeAnacrusis {
		if shift := table.NormalizeAnacrusis(); !shift.IsZero() {
			logger.Debug("Anacrusis normalized", logging.Fields{"shift": shift.String()})
		}
	}

	logger.Debug("Input decoded", logging.Fields{
		"notes":           table.Len(),
		"tracks":          len(table.Tracks()),
		"time_signatures": len(table.Meta.TimeSignatures),
		"tempo":           table.Meta.Tempo,
	})
	return table, nil
}

// GetConfig returns decoder configuration information
func (d *Decoder) GetConfig() map[string]any {
	return map[string]any{
		"allow_meter_changes": d.config.AllowMeterChanges,
		"keep_percussion":     d.config.KeepPercussion,
		"normalize_anacrusis": d.config.NormalizeAnacrusis,
		"split_channels":      d.config.SplitChannels,
		"default_velocity":    d.config.DefaultVelocity,
		"max_input_bytes":     d.config.MaxInputBytes,
	}
}

func (d *Decoder) String() string {
	return fmt.Sprintf("Decoder%v", d.GetConfig())
}
