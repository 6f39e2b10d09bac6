package relation

import (
	"fmt"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

func word(id int, form, notes string) dictionary.Word {
	w := dictionary.NewWord(id, form)
	if notes != "" {
		w.AddContent(NotesField, notes)
	}
	return w
}

func dict(words ...dictionary.Word) *dictionary.Dictionary {
	d := dictionary.New("jbo", "en")
	for _, w := range words {
		d.Append(w)
	}
	return d
}

// syntheticDictionary builds n words named with a leading letter from the
// bucket alphabet; word i mentions words i+1 and i+7 and one unknown form.
func syntheticDictionary(n int) *dictionary.Dictionary {
	letters := "bcdfgjklmnprstvxz"
	form := func(i int) string {
		return fmt.Sprintf("%c%05da", letters[i%len(letters)], i)
	}
	d := dictionary.New("jbo", "en")
	for i := 0; i < n; i++ {
		notes := fmt.Sprintf("see {%s}, also {%s}. not {zzz%d}", form((i+1)%n), form((i+7)%n), i)
		d.Append(word(i+1, form(i), notes))
	}
	return d
}

type pair struct{ from, to int }

func relationPairs(d *dictionary.Dictionary) map[pair]struct{} {
	out := make(map[pair]struct{})
	for _, w := range d.Words {
		for _, r := range w.Relations {
			out[pair{w.Entry.ID, r.Entry.ID}] = struct{}{}
		}
	}
	return out
}
