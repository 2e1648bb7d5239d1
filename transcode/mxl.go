package transcode

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/notes"
)

type mxlContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// decodeMXL opens a compressed MusicXML archive and decodes its root score
func (d *Decoder) decodeMXL(data []byte) (*notes.Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, faults.WrapRejected(err, "malformed MXL archive")
	}

	name, err := mxlRootfile(zr)
	if err != nil {
		return nil, err
	}
	f, err := zr.Open(name)
	if err != nil {
		return nil, faults.WrapRejected(err, "missing MXL root score")
	}
	defer f.Close()
	return d.decodeMusicXML(f)
}

// mxlRootfile finds the score named by META-INF/container.xml, falling back
// to the first XML file outside META-INF
func mxlRootfile(zr *zip.Reader) (string, error) {
	if f, err := zr.Open("META-INF/container.xml"); err == nil {
		defer f.Close()
		var c mxlContainer
		dec := xml.NewDecoder(f)
		dec.CharsetReader = charset.NewReaderLabel
		if err := dec.Decode(&c); err == nil {
			for _, rf := range c.Rootfiles {
				if rf.MediaType == "" || strings.Contains(rf.MediaType, "musicxml") {
					return rf.FullPath, nil
				}
			}
		}
	}
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".xml", ".musicxml":
			return f.Name, nil
		}
	}
	return "", faults.Reject("no score in MXL archive", "The MXL archive contains no MusicXML score.")
}

// writeMXL packs one MusicXML document into an MXL archive
func writeMXL(w io.Writer, name string, score []byte) error {
	zw := zip.NewWriter(w)
	container, err := zw.Create("META-INF/container.xml")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(container, xml.Header+
		`<container><rootfiles><rootfile full-path="`+name+`" media-type="application/vnd.recordare.musicxml+xml"/></rootfiles></container>`+"\n"); err != nil {
		return err
	}
	body, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := body.Write(score); err != nil {
		return err
	}
	return zw.Close()
}
