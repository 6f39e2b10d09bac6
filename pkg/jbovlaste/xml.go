// Package jbovlaste turns the jbovlaste XML export into OTM-JSON
// dictionaries: decoding, caching, word construction, per-language
// customization, downloading and packaging.
package jbovlaste

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Valsi is one Lojban headword of the export.
type Valsi struct {
	Word         string    `xml:"word,attr" json:"word"`
	Type         string    `xml:"type,attr" json:"type"`
	Unofficial   bool      `xml:"unofficial,attr" json:"unofficial,omitempty"`
	Rafsi        []string  `xml:"rafsi" json:"rafsi,omitempty"`
	Selmaho      string    `xml:"selmaho" json:"selmaho,omitempty"`
	User         User      `xml:"user" json:"user"`
	Definition   string    `xml:"definition" json:"definition"`
	DefinitionID int       `xml:"definitionid" json:"definitionid"`
	Notes        string    `xml:"notes" json:"notes,omitempty"`
	Glosswords   []Gloss   `xml:"glossword" json:"glosswords,omitempty"`
	Keywords     []Keyword `xml:"keyword" json:"keywords,omitempty"`
}

// User is the submitter of a definition.
type User struct {
	Username string `xml:"username" json:"username"`
	RealName string `xml:"realname" json:"realname,omitempty"`
}

// Gloss is a natural-language gloss of a valsi.
type Gloss struct {
	Word  string `xml:"word,attr" json:"word"`
	Sense string `xml:"sense,attr" json:"sense,omitempty"`
}

// Keyword is a gloss for one place of a valsi.
type Keyword struct {
	Word  string `xml:"word,attr" json:"word"`
	Place string `xml:"place,attr" json:"place"`
	Sense string `xml:"sense,attr" json:"sense,omitempty"`
}

// Decoder streams valsi out of an export. Only the first <direction>
// (Lojban to natural language) is read.
type Decoder struct {
	d       *xml.Decoder
	started bool
	done    bool
	from    string
	to      string
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{d: xml.NewDecoder(r)}
}

// Direction returns the from/to attributes of the direction being read.
func (dec *Decoder) Direction() (from, to string) { return dec.from, dec.to }

// Next returns the next valsi, or io.EOF after the last one.
func (dec *Decoder) Next() (*Valsi, error) {
	if dec.done {
		return nil, io.EOF
	}
	for {
		tok, err := dec.d.Token()
		if err == io.EOF {
			dec.done = true
			if !dec.started {
				return nil, errors.New("jbovlaste: no <direction> element in export")
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("jbovlaste: read xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "direction":
				if dec.started {
					dec.done = true
					return nil, io.EOF
				}
				dec.started = true
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "from":
						dec.from = a.Value
					case "to":
						dec.to = a.Value
					}
				}
			case "valsi":
				if !dec.started {
					continue
				}
				var v Valsi
				if err := dec.d.DecodeElement(&v, &t); err != nil {
					return nil, fmt.Errorf("jbovlaste: decode valsi: %w", err)
				}
				return &v, nil
			}
		case xml.EndElement:
			if t.Name.Local == "direction" {
				dec.done = true
				return nil, io.EOF
			}
		}
	}
}

// ReadAll decodes every valsi of the first direction.
func ReadAll(r io.Reader) ([]Valsi, error) {
	dec := NewDecoder(r)
	var out []Valsi
	for {
		v, err := dec.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
}
