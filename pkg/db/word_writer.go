package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

type pendingWord struct {
	lang string
	word dictionary.Word
}

// WordWriter buffers words and stores each batch, words and relations, in a
// single transaction on a background goroutine. One invalid word rolls its
// whole batch back.
type WordWriter struct {
	mu      sync.Mutex
	pending []pendingWord
	size    int
	closed  bool
	ticker  *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	batches   chan []pendingWord
	conn      *sql.DB
	committed atomic.Int64

	// OnCommit receives the size of every committed batch.
	OnCommit func(words int)
	// OnError receives every batch failure.
	OnError func(error)

	errMu    sync.Mutex
	firstErr error
}

// NewWordWriter starts a writer committing batchSize words per transaction,
// and every flushInterval when it is positive. Once ctx is canceled, batches
// that are not queued yet are dropped.
func NewWordWriter(ctx context.Context, conn *sql.DB, batchSize int, flushInterval time.Duration) *WordWriter {
	if batchSize <= 0 {
		batchSize = 100
	}
	ctx, cancel := context.WithCancel(ctx)
	ww := &WordWriter{
		pending: make([]pendingWord, 0, batchSize),
		size:    batchSize,
		ctx:     ctx,
		cancel:  cancel,
		batches: make(chan []pendingWord, 2),
		conn:    conn,
	}

	ww.wg.Add(1)
	go ww.commitLoop()

	if flushInterval > 0 {
		ww.ticker = time.NewTicker(flushInterval)
		ww.wg.Add(1)
		go ww.tickLoop()
	}
	return ww
}

// Write queues w for lang. It blocks while two batches are already waiting.
func (ww *WordWriter) Write(lang string, w dictionary.Word) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return ErrWordWriterClosed
	}
	ww.pending = append(ww.pending, pendingWord{lang: lang, word: w})
	if len(ww.pending) >= ww.size {
		ww.flushLocked()
	}
	return nil
}

// Committed returns the number of words stored so far.
func (ww *WordWriter) Committed() int { return int(ww.committed.Load()) }

// Err returns the first failure seen by the writer.
func (ww *WordWriter) Err() error {
	ww.errMu.Lock()
	defer ww.errMu.Unlock()
	return ww.firstErr
}

// flushLocked requires ww.mu.
func (ww *WordWriter) flushLocked() {
	if len(ww.pending) == 0 {
		return
	}
	batch := ww.pending
	ww.pending = make([]pendingWord, 0, ww.size)

	if err := ww.ctx.Err(); err != nil {
		ww.fail(fmt.Errorf("word writer: dropped %d words: %w", len(batch), err))
		return
	}
	select {
	case ww.batches <- batch:
	case <-ww.ctx.Done():
		ww.fail(fmt.Errorf("word writer: dropped %d words: %w", len(batch), ww.ctx.Err()))
	}
}

func (ww *WordWriter) fail(err error) {
	ww.errMu.Lock()
	if ww.firstErr == nil {
		ww.firstErr = err
	}
	ww.errMu.Unlock()
	if ww.OnError != nil {
		ww.OnError(err)
	}
}

func (ww *WordWriter) commitLoop() {
	defer ww.wg.Done()
	for batch := range ww.batches {
		if err := ww.store(batch); err != nil {
			ww.fail(err)
			continue
		}
		ww.committed.Add(int64(len(batch)))
		if ww.OnCommit != nil {
			ww.OnCommit(len(batch))
		}
	}
}

func (ww *WordWriter) store(batch []pendingWord) error {
	// A queued batch is stored even if the writer is being shut down.
	ctx := context.WithoutCancel(ww.ctx)

	tx, err := ww.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range batch {
		if err := UpsertWord(tx, p.lang, p.word); err != nil {
			return err
		}
		if err := ReplaceRelations(tx, p.lang, p.word.Entry.ID, p.word.Relations); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %d words: %w", len(batch), err)
	}
	return nil
}

func (ww *WordWriter) tickLoop() {
	defer ww.wg.Done()
	for {
		select {
		case <-ww.ctx.Done():
			return
		case <-ww.ticker.C:
			ww.mu.Lock()
			if !ww.closed {
				ww.flushLocked()
			}
			ww.mu.Unlock()
		}
	}
}

// Close flushes the remaining words, waits for every queued batch and
// returns the first failure.
func (ww *WordWriter) Close() error {
	ww.mu.Lock()
	if ww.closed {
		ww.mu.Unlock()
		return ErrWordWriterClosed
	}
	ww.closed = true
	if ww.ticker != nil {
		ww.ticker.Stop()
	}
	ww.flushLocked()
	ww.mu.Unlock()

	ww.cancel()
	close(ww.batches)
	ww.wg.Wait()
	return ww.Err()
}

// ErrWordWriterClosed is returned by Write and Close after Close.
var ErrWordWriterClosed = &WriterError{"word writer closed"}

type WriterError struct{ msg string }

func (e *WriterError) Error() string { return e.msg }
