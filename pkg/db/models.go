package db

import (
	"time"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

// WordRecord is a row of the words table with its decoded OTM-JSON word.
type WordRecord struct {
	Lang      string
	Word      dictionary.Word
	UpdatedAt time.Time
}

// Backlink is a word that relates to a given target entry.
type Backlink struct {
	From  dictionary.Entry
	Title string
}
