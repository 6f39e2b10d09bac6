// Package relation discovers cross-references between dictionary words by
// scanning their notes for brace-wrapped headword mentions.
package relation

import (
	"slices"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

// Alphabet lists the lowercase bucket keys. Lojban headwords never begin with
// h, q or w, so those letters have no bucket; '.' covers cmavo such as ".i".
const Alphabet = ".abcdefgijklmnoprstuvxyz"

var bucketKeys = func() [256]bool {
	var keys [256]bool
	for i := 0; i < len(Alphabet); i++ {
		c := Alphabet[i]
		keys[c] = true
		if c >= 'a' && c <= 'z' {
			keys[c-'a'+'A'] = true
		}
	}
	return keys
}()

// IsBucketKey reports whether c starts an indexable headword.
func IsBucketKey(c byte) bool { return bucketKeys[c] }

// Index buckets entries by the first byte of their form. It is immutable
// after NewIndex returns and safe for concurrent use without locking.
type Index struct {
	buckets map[byte][]dictionary.Entry
	size    int
}

// NewIndex builds the first-letter index. Entries whose form is empty or
// starts with a character outside the bucket alphabet are not indexed and
// can never be matched. Bucket order follows entries.
func NewIndex(entries []dictionary.Entry) *Index {
	idx := &Index{buckets: make(map[byte][]dictionary.Entry)}
	for _, e := range entries {
		if e.Form == "" || !IsBucketKey(e.Form[0]) {
			continue
		}
		idx.buckets[e.Form[0]] = append(idx.buckets[e.Form[0]], e)
		idx.size++
	}
	for k, b := range idx.buckets {
		idx.buckets[k] = slices.Clip(b)
	}
	return idx
}

// Lookup returns the bucket for key. Unknown keys yield nil. The returned
// slice must not be modified.
func (idx *Index) Lookup(key byte) []dictionary.Entry {
	return idx.buckets[key]
}

// Keys returns the non-empty bucket keys in ascending order.
func (idx *Index) Keys() []byte {
	keys := make([]byte, 0, len(idx.buckets))
	for k := range idx.buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len is the number of indexed entries.
func (idx *Index) Len() int { return idx.size }
