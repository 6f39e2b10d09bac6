// Package rafsi builds the table of Lojban combining forms (rafsi), including
// forms proposed in the notes of unofficial words.
package rafsi

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

// Format is the output format of WriteTable.
type Format string

const (
	CSV Format = "csv"
	TSV Format = "tsv"
)

// ParseFormat accepts "csv" or "tsv".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case CSV, TSV:
		return f, nil
	default:
		return "", fmt.Errorf("rafsi: unsupported format %q", s)
	}
}

// Header is the first row written by WriteTable.
var Header = []string{"valsi", "rafsi_1", "rafsi_2", "rafsi_3"}

// Words whose notes mention rafsi that are not theirs.
var exceptWords = map[string]bool{"lesrxapsurdie": true}

// Words whose proposed rafsi cannot be detected from the notes.
var manualWords = map[string][]string{"lelxe": {"lel"}}

// window is how far after the key phrase rafsi are looked for, in bytes.
const window = 50

var keyPhrase = regexp.MustCompile(`([pP]roposed |[sS]hort |[pP]roposed [sS]hort )rafsi`)

var rafsiRegex = func() *regexp.Regexp {
	const c, v = `[bcdfgjklmnprstvxz]`, `[aeiou]`
	forms := strings.Join([]string{
		c + c + v,
		c + v + c,
		c + v + `'` + v,
		c + `ai`, c + `au`, c + `ei`, c + `oi`,
	}, "|")
	return regexp.MustCompile(`-(` + forms + `)-|–(` + forms + `)–`)
}()

// Detect guesses the rafsi proposed in the notes of w: "-CVC-" style forms
// shortly after a phrase such as "proposed rafsi".
func Detect(w dictionary.Word) []string {
	form := w.Entry.Form
	if exceptWords[form] {
		return nil
	}
	if manual, ok := manualWords[form]; ok {
		return slices.Clone(manual)
	}
	notes, ok := w.Contents.Text("notes")
	if !ok {
		return nil
	}
	loc := keyPhrase.FindStringIndex(notes)
	if loc == nil {
		return nil
	}
	tail := notes[loc[1]:min(loc[1]+window, len(notes))]

	var out []string
	for _, m := range rafsiRegex.FindAllStringSubmatch(tail, -1) {
		r := m[1]
		if r == "" {
			r = m[2]
		}
		out = append(out, r)
	}
	return out
}

// Row is one valsi and its rafsi.
type Row struct {
	Valsi string
	Rafsi []string
}

// Collect gathers official rafsi from the "rafsi" content of every word.
// Unofficial words are keyed "*form" and also get the rafsi Detect finds.
// Rows are sorted by valsi ignoring the "*" marker.
func Collect(dicts ...*dictionary.Dictionary) []Row {
	index := make(map[string]int)
	var rows []Row
	add := func(key string, rafsi []string) {
		if len(rafsi) == 0 {
			return
		}
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, Row{Valsi: key})
		}
		for _, r := range rafsi {
			if !slices.Contains(rows[i].Rafsi, r) {
				rows[i].Rafsi = append(rows[i].Rafsi, r)
			}
		}
	}

	for _, d := range dicts {
		for _, w := range d.Words {
			key := w.Entry.Form
			if w.HasTag("unofficial") {
				key = "*" + key
				add(key, Detect(w))
			}
			if text, ok := w.Contents.Text("rafsi"); ok {
				add(key, strings.Fields(text))
			}
		}
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(strings.TrimPrefix(a.Valsi, "*"), strings.TrimPrefix(b.Valsi, "*")),
			cmp.Compare(a.Valsi, b.Valsi),
		)
	})
	return rows
}

// WriteTable writes the header and rows, padding each row to four columns.
func WriteTable(w io.Writer, rows []Row, f Format) error {
	cw := csv.NewWriter(w)
	if f == TSV {
		cw.Comma = '\t'
	}
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := append([]string{r.Valsi}, r.Rafsi...)
		for len(rec) < len(Header) {
			rec = append(rec, "")
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
