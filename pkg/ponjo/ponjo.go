// Package ponjo cleans up the free-form notes of the Japanese jbovlaste
// export, splitting keyword sections and examples into their own contents.
package ponjo

import (
	"regexp"
	"strings"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

// Content titles produced from Japanese notes.
const (
	Summary      = "大意"
	Reading      = "読み方"
	Mnemonic     = "語呂合わせ"
	RelatedWords = "関連語"
	Examples     = "用例"
)

const notes = "notes"

// Keywords are the note sections split out by SplitNotes.
var Keywords = []string{Summary, Reading, Mnemonic, RelatedWords}

// ContentOrder is the content order applied by SortContents.
var ContentOrder = []string{
	notes, Reading, dictionary.GlosswordField, "keyword", Examples,
	Mnemonic, RelatedWords, "rafsi", "username",
}

// A section starts at the beginning of the notes or after "・" and reads
// "<keyword>:" with either colon width.
var sectionRegex = regexp.MustCompile(`(?:^|・)[\s　]*(` + strings.Join(Keywords, "|") + `)[\s　]*[:：][\s　]*`)

var exampleRegex = regexp.MustCompile(`「[^／]+／[^／]+」`)

// SplitNotes moves keyword sections of the notes into contents of their own.
// Text outside any section stays in notes. A repeated keyword keeps its last
// section.
func SplitNotes(w *dictionary.Word) {
	text, ok := w.Contents.Text(notes)
	if !ok {
		return
	}
	locs := sectionRegex.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return
	}

	rest := strings.TrimRightFunc(text[:locs[0][0]], isSpace)
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		keyword := text[loc[2]:loc[3]]
		body := strings.TrimRightFunc(text[loc[1]:end], isSpace)
		if !w.Contents.Renew(keyword, body) {
			w.AddContent(keyword, body)
		}
	}
	w.Contents.Renew(notes, rest)
}

// ExtractExamples moves 「…／…」 example phrases out of notes into a 用例
// content, one phrase per line.
func ExtractExamples(w *dictionary.Word) {
	text, ok := w.Contents.Text(notes)
	if !ok {
		return
	}
	examples := exampleRegex.FindAllString(text, -1)
	if len(examples) == 0 {
		return
	}
	w.Contents.Renew(notes, exampleRegex.ReplaceAllString(text, ""))
	w.AddContent(Examples, strings.Join(examples, "\n"))
}

// IntegrateGloss merges the 大意 content into the glosswords and removes it.
func IntegrateGloss(w *dictionary.Word) {
	summary, ok := w.Contents.Text(Summary)
	if !ok {
		return
	}
	known := false
	for _, g := range w.Glosswords() {
		if g == summary {
			known = true
			break
		}
	}
	if !known {
		w.AddGlossword(summary)
	}
	w.Contents = w.Contents.Remove(Summary)
}

// SortContents applies ContentOrder.
func SortContents(w *dictionary.Word) {
	w.Contents.SortByTitle(ContentOrder)
}

// DeleteEmptyNotes drops a notes content holding only whitespace.
func DeleteEmptyNotes(w *dictionary.Word) {
	text, ok := w.Contents.Text(notes)
	if ok && strings.TrimSpace(text) == "" {
		w.Contents = w.Contents.Remove(notes)
	}
}

// Tweak runs every cleanup step in order.
func Tweak(w *dictionary.Word) {
	SplitNotes(w)
	ExtractExamples(w)
	IntegrateGloss(w)
	SortContents(w)
	DeleteEmptyNotes(w)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　'
}
