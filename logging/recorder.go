package logging

import (
	"context"
	"maps"
	"sync"
)

// Entry is one record captured by a Recorder
type Entry struct {
	Level  Level
	Msg    string
	Err    error
	Fields Fields
}

// Recorder keeps records in memory. Loggers derived through WithFields share
// the parent's record list.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	level   Level
	fields  Fields
}

// NewRecorder creates a Recorder that captures every level
func NewRecorder() *Recorder {
	return &Recorder{
		mu:      &sync.Mutex{},
		entries: &[]Entry{},
		level:   DebugLevel,
		fields:  make(Fields),
	}
}

func (r *Recorder) record(level Level, err error, msg string, fields ...Fields) {
	if level < r.level {
		return
	}
	all := make(Fields, len(r.fields))
	maps.Copy(all, r.fields)
	for _, f := range fields {
		maps.Copy(all, f)
	}
	r.mu.Lock()
	*r.entries = append(*r.entries, Entry{Level: level, Msg: msg, Err: err, Fields: all})
	r.mu.Unlock()
}

func (r *Recorder) Debug(msg string, fields ...Fields) { r.record(DebugLevel, nil, msg, fields...) }
func (r *Recorder) Info(msg string, fields ...Fields)  { r.record(InfoLevel, nil, msg, fields...) }
func (r *Recorder) Warn(msg string, fields ...Fields)  { r.record(WarnLevel, nil, msg, fields...) }
func (r *Recorder) Error(err error, msg string, fields ...Fields) {
	r.record(ErrorLevel, err, msg, fields...)
}
func (r *Recorder) Fatal(err error, msg string, fields ...Fields) {
	r.record(FatalLevel, err, msg, fields...)
}

func (r *Recorder) WithFields(fields Fields) Logger {
	merged := make(Fields, len(r.fields)+len(fields))
	maps.Copy(merged, r.fields)
	maps.Copy(merged, fields)
	return &Recorder{mu: r.mu, entries: r.entries, level: r.level, fields: merged}
}

func (r *Recorder) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return r.WithFields(fields)
	}
	return r
}

func (r *Recorder) SetLevel(level Level) {
	r.level = level
}

// Entries returns a copy of the captured records
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Filter returns captured records whose field key equals value
func (r *Recorder) Filter(key string, value any) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Fields[key] == value {
			out = append(out, e)
		}
	}
	return out
}
