package romantext

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/rational"
)

var downbeat = rational.FromInt(1)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo renders the document. Keys are written on the first chord and
// wherever they change; the beat is omitted for chords on the downbeat.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	h := d.Header
	for _, kv := range [][2]string{
		{"Composer", h.Composer},
		{"Title", h.Title},
		{"Movement", h.Movement},
		{"Analyst", h.Analyst},
		{"Proofreader", h.Proofreader},
	} {
		if kv[1] != "" {
			fmt.Fprintf(bw, "%s: %s\n", kv[0], kv[1])
		}
	}
	for _, n := range h.Notes {
		fmt.Fprintf(bw, "Note: %s\n", n)
	}

	meters := d.Meters
	writeMeters := func(bar int) {
		for len(meters) > 0 && meters[0].Bar <= bar {
			fmt.Fprintf(bw, "Time Signature: %s\n", meters[0])
			meters = meters[1:]
		}
	}
	first := int(^uint(0) >> 1)
	if len(d.Entries) > 0 {
		first = d.Entries[0].Bar
	}
	writeMeters(first)
	bw.WriteString("\n")

	var line strings.Builder
	flush := func() {
		if line.Len() > 0 {
			bw.WriteString(line.String())
			bw.WriteString("\n")
			line.Reset()
		}
	}
	for i, e := range d.Entries {
		newBar := i == 0 || e.Bar != d.Entries[i-1].Bar
		if newBar {
			flush()
			writeMeters(e.Bar)
			fmt.Fprintf(&line, "m%d", e.Bar)
		}
		if !newBar || !e.Beat.Equal(downbeat) {
			line.WriteString(" b" + formatBeat(e.Beat))
		}
		if i == 0 || !e.Key.SameKey(d.Entries[i-1].Key) {
			line.WriteString(" " + e.Key.RomanTextKey() + ":")
		}
		line.WriteString(" " + e.Roman.String())
	}
	flush()

	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func (d *Document) String() string {
	var b strings.Builder
	d.WriteTo(&b)
	return b.String()
}
