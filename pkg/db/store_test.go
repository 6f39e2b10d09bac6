package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testWord(id int, form string) dictionary.Word {
	w := dictionary.NewWord(id, form)
	w.AddTranslation("gismu", "x1 goes to x2")
	w.AddContent("notes", "See also {litru}.")
	return w
}

func TestUpsertWordAndGetByForm(t *testing.T) {
	conn := setupTestDB(t)

	w := testWord(1, "klama")
	require.NoError(t, UpsertWord(conn, "en", w))
	w.AddTag("unofficial")
	require.NoError(t, UpsertWord(conn, "en", w))
	require.NoError(t, UpsertWord(conn, "ja", testWord(1, "klama")))

	n, err := CountWords(conn, "en")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := GetWordByForm(conn, "en", "klama")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "en", recs[0].Lang)
	assert.Equal(t, []string{"unofficial"}, recs[0].Word.Tags)
	assert.Equal(t, w.Translations, recs[0].Word.Translations)
	assert.False(t, recs[0].UpdatedAt.IsZero())

	recs, err = GetWordByForm(conn, "en", "litru")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUpsertWordRejectsEmptyForm(t *testing.T) {
	conn := setupTestDB(t)
	assert.Error(t, UpsertWord(conn, "en", dictionary.NewWord(3, " ")))
}

func TestGetWordByFormDuplicates(t *testing.T) {
	conn := setupTestDB(t)
	require.NoError(t, UpsertWord(conn, "en", testWord(7, "mlatu")))
	require.NoError(t, UpsertWord(conn, "en", testWord(2, "mlatu")))

	recs, err := GetWordByForm(conn, "en", "mlatu")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].Word.Entry.ID)
	assert.Equal(t, 7, recs[1].Word.Entry.ID)
}

func TestReplaceRelations(t *testing.T) {
	conn := setupTestDB(t)
	require.NoError(t, UpsertWord(conn, "en", testWord(1, "klama")))
	require.NoError(t, UpsertWord(conn, "en", testWord(2, "litru")))
	require.NoError(t, UpsertWord(conn, "en", testWord(3, "cliva")))

	first := []dictionary.Relation{
		{Entry: dictionary.Entry{ID: 2, Form: "litru"}},
		{Title: "see also", Entry: dictionary.Entry{ID: 3, Form: "cliva"}},
	}
	require.NoError(t, ReplaceRelations(conn, "en", 1, first))
	got, err := GetRelations(conn, "en", 1)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	require.NoError(t, ReplaceRelations(conn, "en", 1, first[1:]))
	got, err = GetRelations(conn, "en", 1)
	require.NoError(t, err)
	assert.Equal(t, first[1:], got)

	got, err = GetRelations(conn, "en", 2)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetBacklinks(t *testing.T) {
	conn := setupTestDB(t)
	for _, w := range []dictionary.Word{testWord(1, "klama"), testWord(2, "litru"), testWord(3, "cliva")} {
		require.NoError(t, UpsertWord(conn, "en", w))
	}
	target := dictionary.Entry{ID: 2, Form: "litru"}
	require.NoError(t, ReplaceRelations(conn, "en", 3, []dictionary.Relation{{Entry: target}}))
	require.NoError(t, ReplaceRelations(conn, "en", 1, []dictionary.Relation{{Title: "cf", Entry: target}}))

	links, err := GetBacklinks(conn, "en", 2)
	require.NoError(t, err)
	assert.Equal(t, []Backlink{
		{From: dictionary.Entry{ID: 3, Form: "cliva"}},
		{From: dictionary.Entry{ID: 1, Form: "klama"}, Title: "cf"},
	}, links)
}

func TestSaveDictionary(t *testing.T) {
	conn := setupTestDB(t)
	d := dictionary.New("jbo", "en")
	for i, form := range []string{"klama", "litru", "cliva", "bajra", "cadzu"} {
		w := testWord(i+1, form)
		if form != "litru" {
			w.AddRelation("", dictionary.Entry{ID: 2, Form: "litru"})
		}
		d.Append(w)
	}

	n, err := SaveDictionary(context.Background(), conn, d, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	count, err := CountWords(conn, "en")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	links, err := GetBacklinks(conn, "en", 2)
	require.NoError(t, err)
	assert.Len(t, links, 4)
}

func TestSaveDictionaryCanceled(t *testing.T) {
	conn := setupTestDB(t)
	d := dictionary.New("jbo", "en")
	d.Append(testWord(1, "klama"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SaveDictionary(ctx, conn, d, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
