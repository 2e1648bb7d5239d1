package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Format selects how DefaultLogger renders a record
type Format int

const (
	TextFormat Format = iota
	JSONFormat
)

// DefaultLogger writes leveled records to an io.Writer.
// Text records look like `2024/01/02 15:04:05 [WARN] msg: err {k=v ...}`
// with fields sorted by key; JSON records are one object per line.
type DefaultLogger struct {
	mu        *sync.Mutex
	out       io.Writer
	level     Level
	fields    Fields
	format    Format
	useColors bool
	now       func() time.Time
}

// NewDefaultLogger creates a text logger on stderr.
// Analysis output goes to stdout, so diagnostics never interleave with it.
func NewDefaultLogger() *DefaultLogger {
	return NewLogger(os.Stderr, TextFormat)
}

// NewDefaultLoggerNoColor creates a new default logger without colored output
func NewDefaultLoggerNoColor() *DefaultLogger {
	l := NewLogger(os.Stderr, TextFormat)
	l.useColors = false
	return l
}

// NewLogger creates a logger writing to out in the given format
func NewLogger(out io.Writer, format Format) *DefaultLogger {
	return &DefaultLogger{
		mu:        &sync.Mutex{},
		out:       out,
		level:     InfoLevel,
		fields:    make(Fields),
		format:    format,
		useColors: format == TextFormat && isTerminal(out),
		now:       time.Now,
	}
}

// isTerminal reports whether out is a character device
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	if fileInfo, _ := f.Stat(); fileInfo != nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

func (d *DefaultLogger) merged(fields ...Fields) Fields {
	allFields := make(Fields, len(d.fields))
	maps.Copy(allFields, d.fields)
	for _, f := range fields {
		maps.Copy(allFields, f)
	}
	return allFields
}

func (d *DefaultLogger) formatText(level Level, err error, msg string, fields Fields) string {
	var b strings.Builder
	b.WriteString(d.now().Format("2006/01/02 15:04:05"))
	fmt.Fprintf(&b, " [%s] %s", level.String(), msg)

	if err != nil {
		fmt.Fprintf(&b, ": %v", err)
	}

	if len(fields) > 0 {
		keys := slices.Sorted(maps.Keys(fields))
		b.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%v", k, fields[k])
		}
		b.WriteByte('}')
	}

	logMsg := b.String()
	if d.useColors {
		switch level {
		case WarnLevel:
			logMsg = ColorYellow + logMsg + ColorReset
		case ErrorLevel:
			logMsg = ColorRed + logMsg + ColorReset
		case FatalLevel:
			logMsg = ColorBold + ColorRed + logMsg + ColorReset
		}
	}
	return logMsg
}

func (d *DefaultLogger) formatJSON(level Level, err error, msg string, fields Fields) string {
	record := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		record[k] = v
	}
	record["time"] = d.now().Format(time.RFC3339)
	record["level"] = level.String()
	record["msg"] = msg
	if err != nil {
		record["error"] = err.Error()
	}

	data, marshalErr := json.Marshal(record)
	if marshalErr != nil {
		return fmt.Sprintf(`{"level":%q,"msg":%q,"error":%q}`, level.String(), msg, marshalErr.Error())
	}
	return string(data)
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields ...Fields) {
	if level < d.level {
		return
	}

	allFields := d.merged(fields...)
	var line string
	if d.format == JSONFormat {
		line = d.formatJSON(level, err, msg, allFields)
	} else {
		line = d.formatText(level, err, msg, allFields)
	}

	d.mu.Lock()
	fmt.Fprintln(d.out, line)
	d.mu.Unlock()

	if level == FatalLevel {
		os.Exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields...)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	clone := *d
	clone.fields = d.merged(fields)
	return &clone
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.level = level
}

// NoOpLogger discards everything
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
