package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// UpsertWord stores w under lang, replacing any previous row with the same id.
func UpsertWord(db DBExecutor, lang string, w dictionary.Word) error {
	if strings.TrimSpace(w.Entry.Form) == "" {
		return fmt.Errorf("word %d: form must be non-empty", w.Entry.ID)
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode word %q: %w", w.Entry.Form, err)
	}
	_, err = db.Exec(`INSERT INTO words (lang, id, form, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(lang, id) DO UPDATE SET
		  form = excluded.form,
		  data = excluded.data,
		  updated_at = excluded.updated_at`,
		lang, w.Entry.ID, w.Entry.Form, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert word %q: %w", w.Entry.Form, err)
	}
	return nil
}

// ReplaceRelations replaces the stored relations of word wordID.
func ReplaceRelations(db DBExecutor, lang string, wordID int, rels []dictionary.Relation) error {
	if _, err := db.Exec(`DELETE FROM relations WHERE lang = ? AND word_id = ?`, lang, wordID); err != nil {
		return fmt.Errorf("clear relations of %d: %w", wordID, err)
	}
	for i, r := range rels {
		_, err := db.Exec(`INSERT INTO relations (lang, word_id, position, target_id, target_form, title)
			VALUES (?, ?, ?, ?, ?, ?)`,
			lang, wordID, i, r.Entry.ID, r.Entry.Form, r.Title)
		if err != nil {
			return fmt.Errorf("insert relation %d of %d: %w", i, wordID, err)
		}
	}
	return nil
}

// GetRelations returns the relations of word wordID in stored order.
func GetRelations(db DBExecutor, lang string, wordID int) ([]dictionary.Relation, error) {
	rows, err := db.Query(`SELECT title, target_id, target_form FROM relations
		WHERE lang = ? AND word_id = ? ORDER BY position`, lang, wordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []dictionary.Relation{}
	for rows.Next() {
		var r dictionary.Relation
		if err := rows.Scan(&r.Title, &r.Entry.ID, &r.Entry.Form); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBacklinks returns the words whose relations point at targetID.
func GetBacklinks(db DBExecutor, lang string, targetID int) ([]Backlink, error) {
	rows, err := db.Query(`SELECT w.id, w.form, r.title FROM relations r
		JOIN words w ON w.lang = r.lang AND w.id = r.word_id
		WHERE r.lang = ? AND r.target_id = ? ORDER BY w.form, w.id`, lang, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Backlink
	for rows.Next() {
		var b Backlink
		if err := rows.Scan(&b.From.ID, &b.From.Form, &b.Title); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWordByForm returns every stored word of lang spelled form. Duplicate
// forms are legal, so the result may hold more than one record.
func GetWordByForm(db DBExecutor, lang, form string) ([]WordRecord, error) {
	rows, err := db.Query(`SELECT data, updated_at FROM words WHERE lang = ? AND form = ? ORDER BY id`, lang, form)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WordRecord
	for rows.Next() {
		var data string
		rec := WordRecord{Lang: lang}
		if err := rows.Scan(&data, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Word); err != nil {
			return nil, fmt.Errorf("decode word %q: %w", form, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountWords returns the number of stored words of lang.
func CountWords(db DBExecutor, lang string) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM words WHERE lang = ?`, lang).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SaveDictionary stores every word of d and its relations, batchSize words
// per transaction. It returns the number of words committed.
func SaveDictionary(ctx context.Context, conn *sql.DB, d *dictionary.Dictionary, batchSize int) (int, error) {
	lang := d.Meta.Lang.To
	ww := NewWordWriter(ctx, conn, batchSize, 0)

	for _, w := range d.Words {
		if err := ctx.Err(); err != nil {
			_ = ww.Close()
			return ww.Committed(), err
		}
		if err := ww.Write(lang, w); err != nil {
			_ = ww.Close()
			return ww.Committed(), err
		}
	}
	if err := ww.Close(); err != nil {
		return ww.Committed(), fmt.Errorf("save %s dictionary: %w", lang, err)
	}
	return ww.Committed(), nil
}
