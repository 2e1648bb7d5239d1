package romantext

import (
	"strconv"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/score"
	"github.com/RyanBlaney/sonido-harmony/theory"
)

// RealizedFamily names the parts of realized chords: "piano__0" is the bass
const RealizedFamily = "piano"

// Realize turns the analysis into a score of block chords, one part per
// chord tone from the bass up. Parts a chord does not use rest.
func Realize(d *Document) (*score.Score, error) {
	return realize(d, "Realize", func(chords []theory.Chord) ([][]int, error) {
		out := make([][]int, len(chords))
		for i, ch := range chords {
			out[i] = ch.Pitches()
		}
		return out, nil
	})
}

// RealizeFourPart voices the analysis for bass, tenor, alto and soprano,
// each chord led from the one before by v
func RealizeFourPart(d *Document, v *theory.Voicer) (*score.Score, error) {
	return realize(d, "RealizeFourPart", v.Realize)
}

func realize(d *Document, function string, voice func([]theory.Chord) ([][]int, error)) (*score.Score, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "romantext",
		"function":  function,
	})

	spans, err := d.Timeline()
	if err != nil {
		return nil, faults.WrapRejected(err, "inconsistent RomanText timing")
	}

	chords := make([]theory.Chord, len(spans))
	for i, sp := range spans {
		ch, err := theory.ChordOf(sp.Roman, sp.Key)
		if err != nil {
			return nil, faults.Tag(err, faults.TheoryKernel, "m"+strconv.Itoa(sp.Bar)+" "+sp.Roman.String())
		}
		chords[i] = ch
	}
	voicings, err := voice(chords)
	if err != nil {
		return nil, err
	}
	width := 0
	for _, v := range voicings {
		if len(v) > width {
			width = len(v)
		}
	}

	sc := &score.Score{BarDuration: d.MeterAt(1).BarDuration()}
	if len(spans) > 0 {
		sc.Start = spans[0].Start
		if len(d.Meters) > 1 {
			logger.Warn("Meter changes flattened to the first full bar", logging.Fields{
				"meters": len(d.Meters),
			})
		}
	}
	for i, sp := range spans {
		c := score.Chord{
			Roman:     sp.Roman,
			Tonality:  sp.Key,
			Extension: sp.Roman.Figure,
			Duration:  sp.Duration,
			Parts:     make(map[string]score.Melody, width),
		}
		for v := 0; v < width; v++ {
			name := notes.PartName(RealizedFamily, v)
			if v >= len(voicings[i]) {
				c.Parts[name] = score.Melody{score.Silence{Length: sp.Duration}}
				continue
			}
			c.Parts[name] = score.Melody{score.Pitched{
				Symbol:  c.ParsePitch(voicings[i][v]),
				Dynamic: score.MF,
				Length:  sp.Duration,
			}}
		}
		sc.Chords = append(sc.Chords, c)
	}

	logger.Debug("RomanText realized", logging.Fields{
		"chords": sc.Len(),
		"parts":  width,
	})
	return sc, nil
}

// FromScore writes a score's chords as a document. Bars and beats come from
// the score's bar duration and start; N.C. chords are dropped and their time
// goes to the chord before them.
func FromScore(sc *score.Score, header Header) *Document {
	doc := &Document{Header: header}
	ts, ok := score.MeterOf(sc.BarDuration)
	if !ok {
		ts = notes.TimeSignature{Numerator: 4, Denominator: 4}
	}
	meter := Meter{Numerator: ts.Numerator, Denominator: ts.Denominator}
	barDur := meter.BarDuration()
	beatDur := meter.BeatDuration()

	for i, pos := range sc.Starts() {
		c := sc.Chords[i]
		if c.NoChord {
			continue
		}
		at := pos.Add(sc.Start)
		bars := at.Div(barDur).Floor()
		within := at.Sub(barDur.MulInt(bars))
		doc.Entries = append(doc.Entries, Entry{
			Bar:   int(bars) + 1,
			Beat:  within.Div(beatDur).Add(rational.FromInt(1)),
			Key:   c.Tonality,
			Roman: c.Roman,
		})
	}
	if len(doc.Entries) > 0 {
		meter.Bar = doc.Entries[0].Bar
		if meter.Bar > 0 {
			meter.Bar = 0
		}
	}
	doc.Meters = []Meter{meter}
	return doc
}

// Relativize re-expresses every chord in the first chord's key: a chord
// written "V/V" in C major inside an F major piece becomes "V/V/V".
// Chords whose key cannot be reached by a tonicization are left as written.
func Relativize(d *Document) *Document {
	out := &Document{
		Header:  d.Header,
		Meters:  append([]Meter(nil), d.Meters...),
		Entries: make([]Entry, len(d.Entries)),
	}
	home, ok := d.InitialKey()
	if !ok {
		return out
	}

	logger := logging.WithFields(logging.Fields{
		"component": "romantext",
		"function":  "Relativize",
		"home":      home.Name(),
	})

	for i, e := range d.Entries {
		out.Entries[i] = e
		if e.Key.SameKey(home) {
			continue
		}
		r := tonicize(e.Roman, home.RomanOf(e.Key))
		if !r.Key(home).SameKey(e.Roman.Key(e.Key)) {
			logger.Debug("Modulation kept as written", logging.Fields{
				"bar":   e.Bar,
				"key":   e.Key.Name(),
				"roman": e.Roman.String(),
			})
			continue
		}
		out.Entries[i].Roman = r
		out.Entries[i].Key = home
	}
	return out
}

// tonicize appends target at the end of r's secondary chain
func tonicize(r theory.RomanNumeral, target theory.RomanNumeral) theory.RomanNumeral {
	if r.Secondary == nil {
		out := r.Base()
		out.Secondary = &target
		return out
	}
	out := r.Base()
	sec := tonicize(*r.Secondary, target)
	out.Secondary = &sec
	return out
}
