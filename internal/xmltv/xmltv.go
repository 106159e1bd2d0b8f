// Package xmltv reads and writes XMLTV guide documents.
//
// Channel and programme elements keep their raw inner XML so a pruned
// document round-trips titles, descriptions, icons and ratings without
// modelling the whole XMLTV schema. Files ending in .gz are transparently
// gzip-compressed.
package xmltv

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Channel is one <channel> element.
type Channel struct {
	ID           string
	DisplayNames []string
	Attrs        []xml.Attr
	Inner        []byte
}

// Programme is one <programme> element; Channel is its channel ref.
type Programme struct {
	Channel string
	Attrs   []xml.Attr
	Inner   []byte
}

// Document is a parsed XMLTV file.
type Document struct {
	SourcePath string
	RootAttrs  []xml.Attr
	Channels   []Channel
	Programmes []Programme
}

type channelNode struct {
	Attrs        []xml.Attr `xml:",any,attr"`
	DisplayNames []struct {
		Text string `xml:",chardata"`
	} `xml:"display-name"`
	Inner []byte `xml:",innerxml"`
}

type programmeNode struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Inner []byte     `xml:",innerxml"`
}

// Parse decodes an XMLTV document from r in a streaming fashion.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "tv":
			doc.RootAttrs = se.Attr
		case "channel":
			var node channelNode
			if err := dec.DecodeElement(&node, &se); err != nil {
				return nil, err
			}
			ch := Channel{Attrs: node.Attrs, Inner: node.Inner}
			ch.ID = strings.TrimSpace(attrValue(node.Attrs, "id"))
			for _, dn := range node.DisplayNames {
				if name := strings.TrimSpace(dn.Text); name != "" {
					ch.DisplayNames = append(ch.DisplayNames, name)
				}
			}
			if ch.ID == "" {
				continue
			}
			doc.Channels = append(doc.Channels, ch)
		case "programme":
			var node programmeNode
			if err := dec.DecodeElement(&node, &se); err != nil {
				return nil, err
			}
			doc.Programmes = append(doc.Programmes, Programme{
				Channel: strings.TrimSpace(attrValue(node.Attrs, "channel")),
				Attrs:   node.Attrs,
				Inner:   node.Inner,
			})
		}
	}
	return doc, nil
}

// ReadFile parses path, decompressing when the name ends in .gz.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xmltv %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	doc, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("xmltv %s: %w", path, err)
	}
	doc.SourcePath = path
	return doc, nil
}

// Write serializes the document with an XML declaration.
func (d *Document) Write(w io.Writer) error {
	bw := bytes.Buffer{}
	bw.WriteString(xml.Header)
	bw.WriteString("<tv")
	writeAttrs(&bw, d.RootAttrs)
	bw.WriteString(">\n")
	for _, ch := range d.Channels {
		writeElement(&bw, "channel", ch.Attrs, ch.Inner)
	}
	for _, pg := range d.Programmes {
		writeElement(&bw, "programme", pg.Attrs, pg.Inner)
	}
	bw.WriteString("</tv>\n")
	_, err := w.Write(bw.Bytes())
	return err
}

// WriteFile writes the document to path, gzip-compressing when the name
// ends in .gz. A temp-file-then-rename would be overkill here: outputs are
// regenerated wholesale each run.
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if err := d.Write(gz); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}
	return d.Write(f)
}

func writeElement(buf *bytes.Buffer, name string, attrs []xml.Attr, inner []byte) {
	buf.WriteString("<")
	buf.WriteString(name)
	writeAttrs(buf, attrs)
	if len(inner) == 0 {
		buf.WriteString("/>\n")
		return
	}
	buf.WriteString(">")
	buf.Write(inner)
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteString(">\n")
}

func writeAttrs(buf *bytes.Buffer, attrs []xml.Attr) {
	for _, a := range attrs {
		buf.WriteString(" ")
		buf.WriteString(a.Name.Local)
		buf.WriteString(`="`)
		_ = xml.EscapeText(buf, []byte(a.Value))
		buf.WriteString(`"`)
	}
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
