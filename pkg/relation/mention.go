package relation

import (
	"regexp"
	"strings"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

// NotesField is the content title always scanned for mentions.
const NotesField = "notes"

// RelatedWordsField is the Japanese "related words" content split out of notes.
const RelatedWordsField = "関連語"

// mentionRegex is deliberately coarse: residual punctuation inside the braces
// is removed by TrimMention.
var mentionRegex = regexp.MustCompile(`\{[^{}\s]+\}`)

// Extractor finds candidate headword mentions in a word's content fields.
type Extractor struct {
	fields []string
}

// NewExtractor scans "notes" followed by the given extra fields.
func NewExtractor(extraFields ...string) *Extractor {
	fields := []string{NotesField}
	for _, f := range extraFields {
		if f != "" && f != NotesField {
			fields = append(fields, f)
		}
	}
	return &Extractor{fields: fields}
}

// Fields returns the scanned content titles in scan order.
func (e *Extractor) Fields() []string {
	return append([]string(nil), e.fields...)
}

// Mentions returns the trimmed candidates in discovery order, field by field.
// Only the first content carrying each title is read. Duplicates and empty
// candidates are kept.
func (e *Extractor) Mentions(w dictionary.Word) []string {
	var out []string
	for _, field := range e.fields {
		text, ok := w.Contents.Text(field)
		if !ok {
			continue
		}
		for _, raw := range mentionRegex.FindAllString(text, -1) {
			out = append(out, TrimMention(raw))
		}
	}
	return out
}

// TrimMention strips boundary noise from a raw match. Leading characters
// other than ASCII letters, apostrophe and period are removed, so the period
// that starts cmavo like ".i" survives. Trailing characters other than ASCII
// letters and apostrophe are removed, which drops closing braces and stray
// commas or full stops.
func TrimMention(s string) string {
	s = strings.TrimLeftFunc(s, func(r rune) bool { return !isMentionLead(r) })
	return strings.TrimRightFunc(s, func(r rune) bool { return !isMentionTail(r) })
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isMentionLead(r rune) bool { return isASCIILetter(r) || r == '\'' || r == '.' }

func isMentionTail(r rune) bool { return isASCIILetter(r) || r == '\'' }
