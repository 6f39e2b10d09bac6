// Package dictionary holds the in-memory OTM-JSON model: words, their
// components and the dictionary-level metadata.
package dictionary

import (
	"encoding/json"
	"time"
)

// Entry is the identity of a word: a numeric id and its headword form.
type Entry struct {
	ID   int    `json:"id"`
	Form string `json:"form"`
}

// Translation is one sense of a word.
type Translation struct {
	Title string   `json:"title"`
	Forms []string `json:"forms"`
}

// Content is a named free-text field.
type Content struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Variation is an alternate spelling.
type Variation struct {
	Title string `json:"title"`
	Form  string `json:"form"`
}

// Relation links a word to another entry of the same dictionary. Relations
// discovered automatically carry an empty title.
type Relation struct {
	Title string `json:"title"`
	Entry Entry  `json:"entry"`
}

// Word is a single OTM-JSON word record.
type Word struct {
	Entry        Entry         `json:"entry"`
	Translations []Translation `json:"translations"`
	Tags         []string      `json:"tags"`
	Contents     Contents      `json:"contents"`
	Variations   []Variation   `json:"variations"`
	Relations    []Relation    `json:"relations"`
}

// NewWord returns a word for entry with every sequence initialised empty.
func NewWord(id int, form string) Word {
	return Word{
		Entry:        Entry{ID: id, Form: form},
		Translations: []Translation{},
		Tags:         []string{},
		Contents:     Contents{},
		Variations:   []Variation{},
		Relations:    []Relation{},
	}
}

// MarshalJSON encodes nil sequences as [] so consumers never see null.
func (w Word) MarshalJSON() ([]byte, error) {
	type plain Word
	out := plain(w)
	ts := make([]Translation, len(out.Translations))
	for i, t := range out.Translations {
		if t.Forms == nil {
			t.Forms = []string{}
		}
		ts[i] = t
	}
	out.Translations = ts
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.Contents == nil {
		out.Contents = Contents{}
	}
	if out.Variations == nil {
		out.Variations = []Variation{}
	}
	if out.Relations == nil {
		out.Relations = []Relation{}
	}
	return json.Marshal(out)
}

// AddTranslation appends a sense.
func (w *Word) AddTranslation(title string, forms ...string) {
	w.Translations = append(w.Translations, Translation{Title: title, Forms: forms})
}

// AddContent appends a content field.
func (w *Word) AddContent(title, text string) {
	w.Contents = append(w.Contents, Content{Title: title, Text: text})
}

// AddTag appends a tag unless it is already present.
func (w *Word) AddTag(tag string) {
	if w.HasTag(tag) {
		return
	}
	w.Tags = append(w.Tags, tag)
}

// HasTag reports whether the word carries tag.
func (w *Word) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddRelation appends a relation to entry.
func (w *Word) AddRelation(title string, entry Entry) {
	w.Relations = append(w.Relations, Relation{Title: title, Entry: entry})
}

// Clone returns a deep copy of w.
func (w Word) Clone() Word {
	out := w
	if w.Translations != nil {
		out.Translations = make([]Translation, len(w.Translations))
		for i, t := range w.Translations {
			out.Translations[i] = Translation{Title: t.Title, Forms: append([]string(nil), t.Forms...)}
		}
	}
	if w.Tags != nil {
		out.Tags = append([]string{}, w.Tags...)
	}
	if w.Contents != nil {
		out.Contents = append(Contents{}, w.Contents...)
	}
	if w.Variations != nil {
		out.Variations = append([]Variation{}, w.Variations...)
	}
	if w.Relations != nil {
		out.Relations = append([]Relation{}, w.Relations...)
	}
	return out
}

// Lang is a source/target language pair.
type Lang struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Metadata is serialised under the "meta" key.
type Metadata struct {
	Lang          Lang   `json:"lang"`
	GeneratedDate string `json:"generated_date,omitempty"`
}

// SetGeneratedDate records t as a calendar date.
func (m *Metadata) SetGeneratedDate(t time.Time) {
	m.GeneratedDate = t.Format(time.DateOnly)
}

// Dictionary is an ordered list of words plus metadata.
type Dictionary struct {
	Words []Word     `json:"words"`
	Meta  Metadata   `json:"meta"`
	ZpDIC *ZpDICInfo `json:"zpdic,omitempty"`
}

// New creates an empty dictionary translating from -> to.
func New(from, to string) *Dictionary {
	return &Dictionary{
		Words: []Word{},
		Meta:  Metadata{Lang: Lang{From: from, To: to}},
	}
}

// Append adds w to the end of the dictionary.
func (d *Dictionary) Append(w Word) {
	d.Words = append(d.Words, w)
}

// Len returns the number of words.
func (d *Dictionary) Len() int { return len(d.Words) }

// Entries returns the entries of all words in dictionary order.
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, len(d.Words))
	for i, w := range d.Words {
		out[i] = w.Entry
	}
	return out
}

// WithWords returns a dictionary sharing d's metadata but holding words.
func (d *Dictionary) WithWords(words []Word) *Dictionary {
	out := &Dictionary{Words: words, Meta: d.Meta}
	if d.ZpDIC != nil {
		z := d.ZpDIC.Clone()
		out.ZpDIC = &z
	}
	return out
}
