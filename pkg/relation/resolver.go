package relation

import (
	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

// Resolve looks candidate up in idx and returns the first entry whose form is
// exactly equal to it.
func Resolve(candidate string, idx *Index) (dictionary.Entry, bool) {
	if candidate == "" {
		return dictionary.Entry{}, false
	}
	for _, e := range idx.Lookup(candidate[0]) {
		if e.Form == candidate {
			return e, true
		}
	}
	return dictionary.Entry{}, false
}

// ResolveWord returns a copy of w whose relations are recomputed from its
// mentions. Titled relations already on w are curated by hand and kept in
// front; each distinct resolved entry is then appended once with an empty
// title, in discovery order. w itself is not modified.
func ResolveWord(w dictionary.Word, idx *Index, ex *Extractor) dictionary.Word {
	out := w.Clone()
	out.Relations = curatedRelations(w.Relations)

	seen := make(map[dictionary.Entry]struct{})
	for _, candidate := range ex.Mentions(w) {
		e, ok := Resolve(candidate, idx)
		if !ok {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out.AddRelation("", e)
	}
	return out
}

// curatedRelations keeps the relations that carry a title. The result is
// never nil.
func curatedRelations(rs []dictionary.Relation) []dictionary.Relation {
	out := make([]dictionary.Relation, 0, len(rs))
	for _, r := range rs {
		if r.Title != "" {
			out = append(out, r)
		}
	}
	return out
}
