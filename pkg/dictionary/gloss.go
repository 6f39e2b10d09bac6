package dictionary

import (
	"strings"
)

// GlosswordField is the content holding "- gloss" lines.
const GlosswordField = "glossword"

// Glosswords returns the gloss lines of the glossword content with their
// "- " markers removed.
func (w *Word) Glosswords() []string {
	text, ok := w.Contents.Text(GlosswordField)
	if !ok {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if g := strings.Trim(line, "- "); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// AddGlossword appends gloss as a new line of the glossword content,
// creating the content when missing.
func (w *Word) AddGlossword(gloss string) {
	line := "- " + gloss
	if text, ok := w.Contents.Text(GlosswordField); ok {
		w.Contents.Renew(GlosswordField, text+"\n"+line)
		return
	}
	w.AddContent(GlosswordField, line)
}

// DeleteDollar removes TeX "$" markers from the first translation form.
func (w *Word) DeleteDollar() {
	if len(w.Translations) == 0 || len(w.Translations[0].Forms) == 0 {
		return
	}
	w.Translations[0].Forms[0] = strings.ReplaceAll(w.Translations[0].Forms[0], "$", "")
}
