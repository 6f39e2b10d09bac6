package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

func TestWordWriterCommitsInBatches(t *testing.T) {
	conn := setupTestDB(t)
	ww := NewWordWriter(context.Background(), conn, 2, 0)

	var (
		mu    sync.Mutex
		sizes []int
	)
	ww.OnCommit = func(n int) {
		mu.Lock()
		sizes = append(sizes, n)
		mu.Unlock()
	}

	for i, form := range []string{"klama", "litru", "cliva", "bajra", "cadzu"} {
		require.NoError(t, ww.Write("en", testWord(i+1, form)))
	}
	require.NoError(t, ww.Close())

	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, 5, ww.Committed())
	n, err := CountWords(conn, "en")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestWordWriterStoresRelations(t *testing.T) {
	conn := setupTestDB(t)
	ww := NewWordWriter(context.Background(), conn, 10, 0)

	w := testWord(1, "klama")
	w.AddRelation("", dictionary.Entry{ID: 2, Form: "litru"})
	w.AddRelation("cf", dictionary.Entry{ID: 3, Form: "cliva"})
	require.NoError(t, ww.Write("en", w))
	require.NoError(t, ww.Close())

	rels, err := GetRelations(conn, "en", 1)
	require.NoError(t, err)
	assert.Equal(t, w.Relations, rels)
}

func TestWordWriterRollsBackInvalidBatch(t *testing.T) {
	conn := setupTestDB(t)
	ww := NewWordWriter(context.Background(), conn, 3, 0)
	errCh := make(chan error, 1)
	ww.OnError = func(err error) { errCh <- err }

	require.NoError(t, ww.Write("en", testWord(1, "klama")))
	require.NoError(t, ww.Write("en", dictionary.NewWord(2, "")))
	require.NoError(t, ww.Write("en", testWord(3, "cliva")))
	require.NoError(t, ww.Write("en", testWord(4, "bajra")))

	err := ww.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "form must be non-empty")

	select {
	case got := <-errCh:
		assert.Equal(t, err, got)
	default:
		t.Fatal("expected OnError to be called")
	}

	n, err := CountWords(conn, "en")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the batch after the invalid one is stored")
	assert.Equal(t, 1, ww.Committed())
}

func TestWordWriterFlushesOnInterval(t *testing.T) {
	conn := setupTestDB(t)
	ww := NewWordWriter(context.Background(), conn, 100, 10*time.Millisecond)
	defer ww.Close()

	require.NoError(t, ww.Write("en", testWord(1, "klama")))
	assert.Eventually(t, func() bool { return ww.Committed() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWordWriterDropsAfterCancel(t *testing.T) {
	conn := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	ww := NewWordWriter(ctx, conn, 1, 0)
	cancel()

	require.NoError(t, ww.Write("en", testWord(1, "klama")))
	err := ww.Close()
	require.ErrorIs(t, err, context.Canceled)

	n, err := CountWords(conn, "en")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, ww.Committed())
}

func TestWordWriterClosed(t *testing.T) {
	conn := setupTestDB(t)
	ww := NewWordWriter(context.Background(), conn, 3, 0)
	require.NoError(t, ww.Close())

	assert.Equal(t, ErrWordWriterClosed, ww.Write("en", testWord(1, "klama")))
	assert.Equal(t, ErrWordWriterClosed, ww.Close())
}
