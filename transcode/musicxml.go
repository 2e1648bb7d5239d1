package transcode

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
)

// xmlScore holds the parts of a partwise MusicXML document
type xmlScore struct {
	XMLName  xml.Name       `xml:"score-partwise"`
	Version  string         `xml:"version,attr,omitempty"`
	Title    string         `xml:"work>work-title,omitempty"`
	Movement string         `xml:"movement-title,omitempty"`
	PartList []xmlScorePart `xml:"part-list>score-part"`
	Parts    []xmlPart      `xml:"part"`
}

type xmlScorePart struct {
	ID          string              `xml:"id,attr"`
	Name        string              `xml:"part-name"`
	Instruments []xmlMIDIInstrument `xml:"midi-instrument"`
}

type xmlMIDIInstrument struct {
	ID      string `xml:"id,attr,omitempty"`
	Channel int    `xml:"midi-channel"`
	Program int    `xml:"midi-program"`
}

type xmlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []xmlMeasure `xml:"measure"`
}

// xmlMeasure keeps its children in document order; backup and forward
// only make sense relative to the notes around them
type xmlMeasure struct {
	Number   string
	Implicit bool
	Events   []any
}

type xmlAttributes struct {
	Divisions int      `xml:"divisions,omitempty"`
	Key       *xmlKey  `xml:"key"`
	Time      *xmlTime `xml:"time"`
}

type xmlKey struct {
	Fifths int    `xml:"fifths"`
	Mode   string `xml:"mode"`
}

type xmlTime struct {
	Beats    string `xml:"beats"`
	BeatType int    `xml:"beat-type"`
}

type xmlSound struct {
	Tempo    float64 `xml:"tempo,attr,omitempty"`
	Dynamics float64 `xml:"dynamics,attr,omitempty"`
}

type xmlDirection struct {
	Sound *xmlSound `xml:"sound"`
}

type xmlShift struct {
	Forward  bool `xml:"-"`
	Duration int  `xml:"duration"`
}

type xmlPitch struct {
	Step   string  `xml:"step"`
	Alter  float64 `xml:"alter"`
	Octave int     `xml:"octave"`
}

type xmlUnpitched struct {
	Step   string `xml:"display-step"`
	Octave int    `xml:"display-octave"`
}

type xmlTie struct {
	Type string `xml:"type,attr"`
}

type xmlNotations struct {
	Tied []xmlTie `xml:"tied"`
}

type xmlLyric struct {
	Number string `xml:"number,attr,omitempty"`
	Text   string `xml:"text"`
}

type xmlNote struct {
	Dynamics  float64       `xml:"dynamics,attr,omitempty"`
	Grace     *struct{}     `xml:"grace"`
	Chord     *struct{}     `xml:"chord"`
	Pitch     *xmlPitch     `xml:"pitch"`
	Unpitched *xmlUnpitched `xml:"unpitched"`
	Rest      *struct{}     `xml:"rest"`
	Duration  int           `xml:"duration"`
	Ties      []xmlTie      `xml:"tie"`
	Voice     string        `xml:"voice,omitempty"`
	Notations *xmlNotations `xml:"notations"`
	Lyrics    []xmlLyric    `xml:"lyric"`
}

func (m *xmlMeasure) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "number":
			m.Number = attr.Value
		case "implicit":
			m.Implicit = attr.Value == "yes"
		}
	}

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		switch t := token.(type) {
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return nil
			}
		case xml.StartElement:
			var ev any
			switch t.Name.Local {
			case "attributes":
				ev = &xmlAttributes{}
			case "note":
				ev = &xmlNote{}
			case "backup":
				ev = &xmlShift{}
			case "forward":
				ev = &xmlShift{Forward: true}
			case "sound":
				ev = &xmlSound{}
			case "direction":
				ev = &xmlDirection{}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			if err := d.DecodeElement(ev, &t); err != nil {
				return err
			}
			m.Events = append(m.Events, ev)
		}
	}
}

// MarshalXML writes the events back in order under their MusicXML names
func (m xmlMeasure) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr[:0], xml.Attr{Name: xml.Name{Local: "number"}, Value: m.Number})
	if m.Implicit {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "implicit"}, Value: "yes"})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, ev := range m.Events {
		var name string
		switch v := ev.(type) {
		case *xmlAttributes:
			name = "attributes"
		case *xmlNote:
			name = "note"
		case *xmlShift:
			name = "backup"
			if v.Forward {
				name = "forward"
			}
		case *xmlSound:
			name = "sound"
		case *xmlDirection:
			name = "direction"
		default:
			return fmt.Errorf("unexpected measure event %T", ev)
		}
		if err := e.EncodeElement(ev, xml.StartElement{Name: xml.Name{Local: name}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

var stepPC = map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}

func (p xmlPitch) midi() int {
	return 12*(p.Octave+1) + stepPC[strings.ToUpper(p.Step)] + int(math.Round(p.Alter))
}

func (n *xmlNote) hasTie(kind string) bool {
	for _, t := range n.Ties {
		if t.Type == kind {
			return true
		}
	}
	return false
}

func decodeXMLScore(r io.Reader) (*xmlScore, error) {
	var doc xmlScore
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return nil, faults.WrapRejected(err, "malformed MusicXML")
	}
	if doc.XMLName.Local != "score-partwise" {
		return nil, faults.Reject("not a partwise score", "Only score-partwise MusicXML is supported.")
	}
	return &doc, nil
}

func (d *Decoder) decodeMusicXML(r io.Reader) (*notes.Table, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "decoder",
		"function":  "decodeMusicXML",
	})

	doc, err := decodeXMLScore(r)
	if err != nil {
		return nil, err
	}

	meta := notes.Metadata{Tempo: notes.DefaultTempo}
	var all []notes.Note
	partInfo := map[string]xmlScorePart{}
	for _, sp := range doc.PartList {
		partInfo[sp.ID] = sp
	}

	for pi, part := range doc.Parts {
		ti := notes.TrackInfo{Index: pi, Channel: pi % 16, Name: partInfo[part.ID].Name}
		if ins := partInfo[part.ID].Instruments; len(ins) > 0 {
			ti.Program = ins[0].Program - 1
			if ins[0].Channel > 0 {
				ti.Channel = ins[0].Channel - 1
			}
		}
		if ti.Program < 0 {
			ti.Program = 0
		}
		meta.Tracks = append(meta.Tracks, ti)

		pn, bars, pm := d.readPart(part, pi, ti.Channel)
		all = append(all, pn...)
		if pi == 0 {
			meta.Bars = bars
			meta.TimeSignatures = pm.TimeSignatures
			meta.KeySignatures = pm.KeySignatures
			meta.Tempos = pm.Tempos
			if len(pm.Tempos) > 0 {
				meta.Tempo = pm.Tempos[0].BPM
			}
		}
	}

	logger.Debug("MusicXML parsed", logging.Fields{
		"parts": len(doc.Parts),
		"notes": len(all),
		"bars":  len(meta.Bars),
	})
	return notes.NewTable(all, meta), nil
}

// readPart walks one part's measures. A leading implicit (pickup) measure is
// placed before zero so the first full measure starts on beat 0.
func (d *Decoder) readPart(part xmlPart, track, channel int) ([]notes.Note, []notes.Bar, notes.Metadata) {
	var (
		meta      notes.Metadata
		out       []notes.Note
		bars      []notes.Bar
		divisions = 1
		measureAt = rational.Zero
		velocity  = d.config.DefaultVelocity
		nominal   = rational.FromInt(4)
	)
	// open ties per pitch: index into out
	tied := map[int]int{}
	voices := map[string]int{}

	for mi, m := range part.Measures {
		pos := measureAt
		end := measureAt
		lastOnset := measureAt
		beats := func(div int) rational.Rat { return rational.New(int64(div), int64(divisions)) }

		for _, ev := range m.Events {
			end = rational.Max(end, pos)
			switch e := ev.(type) {
			case *xmlAttributes:
				if e.Divisions > 0 {
					divisions = e.Divisions
				}
				if e.Time != nil && e.Time.BeatType > 0 {
					num := sumBeats(e.Time.Beats)
					ts := notes.TimeSignature{At: measureAt, Numerator: num, Denominator: e.Time.BeatType}
					nominal = ts.BarDuration()
					meta.TimeSignatures = append(meta.TimeSignatures, ts)
				}
				if e.Key != nil {
					meta.KeySignatures = append(meta.KeySignatures, notes.KeySignature{
						At: pos, Fifths: e.Key.Fifths, Minor: e.Key.Mode == "minor",
					})
				}
			case *xmlSound:
				d.applySound(e, pos, &meta, &velocity)
			case *xmlDirection:
				if e.Sound != nil {
					d.applySound(e.Sound, pos, &meta, &velocity)
				}
			case *xmlShift:
				if e.Forward {
					pos = pos.Add(beats(e.Duration))
				} else {
					pos = pos.Sub(beats(e.Duration))
				}
			case *xmlNote:
				if e.Grace != nil {
					continue
				}
				dur := beats(e.Duration)
				onset := pos
				if e.Chord != nil {
					onset = lastOnset
				} else {
					lastOnset = pos
					pos = pos.Add(dur)
				}
				if e.Rest != nil || dur.Sign() <= 0 {
					break
				}
				pitch, percussion := 0, channel == notes.PercussionChannel
				switch {
				case e.Pitch != nil:
					pitch = e.Pitch.midi()
				case e.Unpitched != nil:
					pitch = xmlPitch{Step: e.Unpitched.Step, Octave: e.Unpitched.Octave}.midi()
					percussion = true
				default:
					continue
				}
				vel := velocity
				if e.Dynamics > 0 {
					vel = dynamicsVelocity(e.Dynamics)
				}
				if idx, ok := tied[pitch]; ok && e.hasTie("stop") && out[idx].Offset().Equal(onset) {
					out[idx].Duration = out[idx].Duration.Add(dur)
					if !e.hasTie("start") {
						delete(tied, pitch)
					}
					break
				}
				if _, ok := voices[e.Voice]; !ok {
					voices[e.Voice] = len(voices)
				}
				out = append(out, notes.Note{
					Onset:      onset,
					Duration:   dur,
					Pitch:      pitch,
					Velocity:   vel,
					Track:      track,
					Channel:    channel,
					Voice:      voices[e.Voice],
					Percussion: percussion,
				})
				if e.hasTie("start") {
					tied[pitch] = len(out) - 1
				}
			}
		}
		end = rational.Max(end, pos)

		length := end.Sub(measureAt)
		if length.Sign() <= 0 {
			length = nominal
		}
		bars = append(bars, notes.Bar{Index: mi, Start: measureAt, End: measureAt.Add(length)})
		measureAt = measureAt.Add(length)
	}

	if len(bars) > 1 && part.Measures[0].Implicit {
		pickup := bars[0].Duration()
		if pickup.Less(bars[1].Duration()) {
			shift := pickup.Neg()
			for i := range out {
				out[i].Onset = out[i].Onset.Add(shift)
			}
			for i := range bars {
				bars[i].Start = bars[i].Start.Add(shift)
				bars[i].End = bars[i].End.Add(shift)
			}
			for i := range meta.TimeSignatures {
				meta.TimeSignatures[i].At = rational.Max(rational.Zero, meta.TimeSignatures[i].At.Add(shift))
			}
			for i := range meta.KeySignatures {
				meta.KeySignatures[i].At = rational.Max(rational.Zero, meta.KeySignatures[i].At.Add(shift))
			}
			for i := range meta.Tempos {
				meta.Tempos[i].At = rational.Max(rational.Zero, meta.Tempos[i].At.Add(shift))
			}
		}
	}
	meta.TimeSignatures = dedupeMeters(meta.TimeSignatures)
	return out, bars, meta
}

func (d *Decoder) applySound(s *xmlSound, at rational.Rat, meta *notes.Metadata, velocity *int) {
	if s.Tempo > 0 {
		meta.Tempos = append(meta.Tempos, notes.TempoChange{At: at, BPM: s.Tempo})
	}
	if s.Dynamics > 0 {
		*velocity = dynamicsVelocity(s.Dynamics)
	}
}

// dynamicsVelocity converts a MusicXML dynamics percentage (100 = forte's 90)
func dynamicsVelocity(percent float64) int {
	v := int(math.Round(percent * 90 / 100))
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return v
}

// sumBeats reads additive meters such as "3+2"
func sumBeats(s string) int {
	total := 0
	for _, part := range strings.Split(s, "+") {
		n := 0
		for _, r := range strings.TrimSpace(part) {
			if r < '0' || r > '9' {
				break
			}
			n = n*10 + int(r-'0')
		}
		total += n
	}
	if total == 0 {
		return 4
	}
	return total
}
