package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

func TestTrimMention(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"{dunda}", "dunda"},
		{"{dunda.}", "dunda"},
		{"{dunda,}", "dunda"},
		{"{.i}", ".i"},
		{"{la'e}", "la'e"},
		{"{\"broda\"}", "broda"},
		{"{,}", ""},
		{"{123}", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TrimMention(tc.in), tc.in)
	}
}

func TestExtractorMentions(t *testing.T) {
	w := dictionary.NewWord(1, "broda")
	w.AddContent(RelatedWordsField, "{brode}")
	w.AddContent(NotesField, "Cf. {brodi}, {brodo}. See {not a mention} and {x1}. {brodi}")
	w.AddContent(NotesField, "{ignored}")

	assert.Equal(t, []string{"brodi", "brodo", "x", "brodi"}, NewExtractor().Mentions(w))
	assert.Equal(t, []string{"brodi", "brodo", "x", "brodi", "brode"}, NewExtractor(RelatedWordsField).Mentions(w))
}

func TestExtractorMissingFields(t *testing.T) {
	w := dictionary.NewWord(1, "broda")
	assert.Empty(t, NewExtractor(RelatedWordsField).Mentions(w))
}

func TestExtractorFields(t *testing.T) {
	assert.Equal(t, []string{NotesField}, NewExtractor("", NotesField).Fields())
	assert.Equal(t, []string{NotesField, RelatedWordsField}, NewExtractor(RelatedWordsField).Fields())
}
