package dictionary

import "strings"

// EntryField selects the headword instead of a content field in FilterOptions.
const EntryField = "@entry"

// FilterOptions controls Filter.
type FilterOptions struct {
	// Field is a content title, or EntryField to compare headwords.
	Field string
	// Exact requires full equality instead of substring containment.
	Exact bool
}

// Filter returns the words whose selected field matches query. Words lacking
// the content field never match.
func Filter(words []Word, query string, opts FilterOptions) []Word {
	field := opts.Field
	if field == "" {
		field = "glossword"
	}
	match := func(s string) bool {
		if opts.Exact {
			return s == query
		}
		return strings.Contains(s, query)
	}

	var out []Word
	for _, w := range words {
		var text string
		if field == EntryField {
			text = w.Entry.Form
		} else {
			t, ok := w.Contents.Text(field)
			if !ok {
				continue
			}
			text = t
		}
		if match(text) {
			out = append(out, w)
		}
	}
	return out
}
