package romantext

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// ParseError locates a problem in the source text
type ParseError struct {
	Line  int
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("line %d: %q: %v", e.Line, e.Token, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	measureRe = regexp.MustCompile(`^m(\d+)(var\d+)?$`)
	repeatRe  = regexp.MustCompile(`^m(\d+)(?:-(\d+))?\s*=\s*m(\d+)(?:-(\d+))?$`)
	beatRe    = regexp.MustCompile(`^b(\d+(?:\.\d+)?)$`)
	keyRe     = regexp.MustCompile(`^[A-Ga-g][#b-]*:$`)
	meterRe   = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
)

// parser state for one document
type parser struct {
	doc    *Document
	line   int
	key    theory.Tonality
	hasKey bool
	// a time signature waiting for the next measure line
	pending *Meter
	logger  logging.Logger
}

// measure state while scanning one measure line
type measure struct {
	bar  int
	beat rational.Rat
}

// tokenRule is one row of the measure-line scanner: the first rule whose
// pattern matches a token handles it
type tokenRule struct {
	name   string
	match  func(tok string) bool
	handle func(p *parser, m *measure, tok string) error
}

var tokenRules = []tokenRule{
	{
		name:   "barline",
		match:  func(tok string) bool { return strings.Trim(tok, "|:") == "" },
		handle: func(*parser, *measure, string) error { return nil },
	},
	{
		name:   "beat",
		match:  beatRe.MatchString,
		handle: (*parser).beat,
	},
	{
		name:   "key",
		match:  keyRe.MatchString,
		handle: (*parser).keyChange,
	},
	{
		name:   "numeral",
		match:  func(string) bool { return true },
		handle: (*parser).numeral,
	},
}

// Parse reads a RomanText document. Errors are InputRejected and wrap a
// *ParseError.
func Parse(r io.Reader) (*Document, error) {
	p := &parser{
		doc: &Document{},
		logger: logging.WithFields(logging.Fields{
			"component": "romantext",
			"function":  "Parse",
		}),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(strings.TrimSpace(sc.Text())); err != nil {
			return nil, faults.WrapRejected(err, "malformed RomanText")
		}
	}
	if err := sc.Err(); err != nil {
		return nil, faults.WrapRejected(err, "cannot read RomanText")
	}
	if _, err := p.doc.Timeline(); err != nil {
		return nil, faults.WrapRejected(err, "inconsistent RomanText timing")
	}

	p.logger.Debug("RomanText parsed", logging.Fields{
		"lines":   p.line,
		"entries": len(p.doc.Entries),
		"meters":  len(p.doc.Meters),
	})
	return p.doc, nil
}

// ParseString parses a document held in memory
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func (p *parser) fail(tok string, format string, args ...any) error {
	return &ParseError{Line: p.line, Token: tok, Err: fmt.Errorf(format, args...)}
}

func (p *parser) parseLine(line string) error {
	if line == "" {
		return nil
	}
	if m := repeatRe.FindStringSubmatch(line); m != nil {
		return p.repeat(m)
	}
	fields := strings.Fields(line)
	if m := measureRe.FindStringSubmatch(fields[0]); m != nil {
		if m[2] != "" {
			// variant readings are alternatives, not part of the main analysis
			return nil
		}
		bar, _ := strconv.Atoi(m[1])
		return p.measureLine(bar, fields[1:])
	}
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return p.fail(fields[0], "expected a header or a measure line")
	}
	return p.header(strings.TrimSpace(name), strings.TrimSpace(value))
}

func (p *parser) header(name, value string) error {
	h := &p.doc.Header
	switch strings.ToLower(name) {
	case "composer":
		h.Composer = value
	case "title", "piece":
		h.Title = value
	case "movement":
		h.Movement = value
	case "analyst":
		h.Analyst = value
	case "proofreader", "proof reader":
		h.Proofreader = value
	case "note":
		h.Notes = append(h.Notes, value)
	case "time signature", "timesignature":
		m := meterRe.FindStringSubmatch(value)
		if m == nil {
			return p.fail(value, "invalid time signature")
		}
		num, _ := strconv.Atoi(m[1])
		den, _ := strconv.Atoi(m[2])
		if num <= 0 || den <= 0 || den&(den-1) != 0 {
			return p.fail(value, "invalid time signature")
		}
		p.pending = &Meter{Numerator: num, Denominator: den}
	default:
		p.logger.Debug("Ignoring RomanText header", logging.Fields{"header": name, "line": p.line})
	}
	return nil
}

func (p *parser) measureLine(bar int, tokens []string) error {
	if n := len(p.doc.Entries); n > 0 && bar <= p.doc.Entries[n-1].Bar {
		return p.fail("m"+strconv.Itoa(bar), "measure out of order")
	}
	p.applyMeter(bar)
	m := &measure{bar: bar, beat: rational.FromInt(1)}
	for _, tok := range tokens {
		for _, rule := range tokenRules {
			if !rule.match(tok) {
				continue
			}
			if err := rule.handle(p, m, tok); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

// applyMeter starts a pending time signature at bar. The first one also
// covers any pickup measure.
func (p *parser) applyMeter(bar int) {
	if p.pending == nil {
		return
	}
	meter := *p.pending
	p.pending = nil
	meter.Bar = bar
	if len(p.doc.Entries) == 0 {
		meter.Bar = 0
	}
	if n := len(p.doc.Meters); n > 0 && p.doc.Meters[n-1].Bar >= meter.Bar {
		p.doc.Meters[n-1] = meter
		return
	}
	p.doc.Meters = append(p.doc.Meters, meter)
}

func (p *parser) beat(m *measure, tok string) error {
	b, err := parseBeat(tok[1:])
	if err != nil {
		return p.fail(tok, "%v", err)
	}
	if b.Less(m.beat) {
		return p.fail(tok, "beat goes backwards")
	}
	m.beat = b
	return nil
}

func (p *parser) keyChange(_ *measure, tok string) error {
	k, err := theory.ParseKey(tok)
	if err != nil {
		return p.fail(tok, "%v", err)
	}
	p.key, p.hasKey = k, true
	return nil
}

func (p *parser) numeral(m *measure, tok string) error {
	if !p.hasKey {
		return p.fail(tok, "chord before any key")
	}
	r, err := theory.ParseRoman(tok)
	if err != nil {
		return p.fail(tok, "%v", err)
	}
	if n := len(p.doc.Entries); n > 0 {
		last := p.doc.Entries[n-1]
		if last.Bar == m.bar && last.Beat.Equal(m.beat) {
			return p.fail(tok, "two chords on beat %s", formatBeat(m.beat))
		}
	}
	p.doc.Entries = append(p.doc.Entries, Entry{Bar: m.bar, Beat: m.beat, Key: p.key, Roman: r})
	return nil
}

// repeat copies the entries of earlier measures: "m5-6 = m1-2"
func (p *parser) repeat(m []string) error {
	first, _ := strconv.Atoi(m[1])
	last := first
	if m[2] != "" {
		last, _ = strconv.Atoi(m[2])
	}
	srcFirst, _ := strconv.Atoi(m[3])
	srcLast := srcFirst
	if m[4] != "" {
		srcLast, _ = strconv.Atoi(m[4])
	}
	if last-first != srcLast-srcFirst || last < first {
		return p.fail(m[0], "repeat ranges differ in length")
	}
	if n := len(p.doc.Entries); n > 0 && first <= p.doc.Entries[n-1].Bar {
		return p.fail(m[0], "measure out of order")
	}

	p.applyMeter(first)
	var copied []Entry
	for _, e := range p.doc.Entries {
		if e.Bar >= srcFirst && e.Bar <= srcLast {
			e.Bar += first - srcFirst
			copied = append(copied, e)
		}
	}
	if len(copied) == 0 {
		return p.fail(m[0], "repeat of empty measures")
	}
	p.doc.Entries = append(p.doc.Entries, copied...)
	p.key, p.hasKey = copied[len(copied)-1].Key, true
	return nil
}

// parseBeat reads "2", "2.5" or the rounded thirds "1.33" and "2.67"
func parseBeat(s string) (rational.Rat, error) {
	b, err := rational.Parse(s)
	if err != nil {
		return rational.Zero, err
	}
	if b.Den() > 16 {
		f := b.Float64()
		if near := rational.FromFloat(f, 16); math.Abs(near.Float64()-f) < 0.01 {
			return near, nil
		}
	}
	return b, nil
}

// formatBeat writes exact decimals and rounds other fractions to two places
func formatBeat(b rational.Rat) string {
	den := b.Den()
	for den%2 == 0 {
		den /= 2
	}
	for den%5 == 0 {
		den /= 5
	}
	prec := 2
	if den == 1 {
		prec = -1
	}
	return strconv.FormatFloat(b.Float64(), 'f', prec, 64)
}
