package relation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRelationizer() *Relationizer {
	r := NewRelationizer()
	r.Logger = quietLogger()
	return r
}

func TestRunSequentialKeepsInputOrder(t *testing.T) {
	d := dict(
		word(3, "zdani", "{klama}"),
		word(1, "klama", "{zdani} {gerku}"),
		word(2, "gerku", ""),
	)
	r := newTestRelationizer()
	var progress []Progress
	r.OnProgress = func(p Progress) { progress = append(progress, p) }

	res, err := r.Run(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, Sequential, res.Strategy)
	assert.Equal(t, 3, res.Relations)
	forms := []string{}
	for _, w := range res.Dictionary.Words {
		forms = append(forms, w.Entry.Form)
	}
	assert.Equal(t, []string{"zdani", "klama", "gerku"}, forms)
	assert.Equal(t, []Progress{
		{Done: 1, Total: 3, Workers: 1, Strategy: Sequential},
		{Done: 2, Total: 3, Workers: 1, Strategy: Sequential},
		{Done: 3, Total: 3, Workers: 1, Strategy: Sequential},
	}, progress)
	assert.Equal(t, d.Meta, res.Dictionary.Meta)
	for _, w := range d.Words {
		assert.Empty(t, w.Relations, "input words must not be modified")
	}
}

func TestRunParallelSortsByForm(t *testing.T) {
	d := dict(
		word(1, "zdani", "{klama}"),
		word(2, "klama", "{zdani}"),
		word(3, "bangu", ""),
		word(4, "klama", ""),
		word(5, "cmalu", "{bangu}"),
	)
	r := newTestRelationizer()
	r.Threshold = 1
	r.ChunkSize = 2
	r.Workers = 3
	var last Progress
	r.OnProgress = func(p Progress) { last = p }

	res, err := r.Run(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, Parallel, res.Strategy)
	var got []dictionary.Entry
	for _, w := range res.Dictionary.Words {
		got = append(got, w.Entry)
	}
	assert.Equal(t, []dictionary.Entry{
		{ID: 3, Form: "bangu"},
		{ID: 5, Form: "cmalu"},
		{ID: 2, Form: "klama"},
		{ID: 4, Form: "klama"},
		{ID: 1, Form: "zdani"},
	}, got)
	assert.Equal(t, Progress{Done: 5, Total: 5, Workers: 3, Strategy: Parallel}, last)
}

func TestRunCountInvariant(t *testing.T) {
	for _, n := range []int{0, 1, 1999, 2000, 2001, 6000, 6001} {
		d := syntheticDictionary(n)
		for _, threshold := range []int{n + 1, 1} {
			r := newTestRelationizer()
			r.Threshold = threshold
			out, err := r.Relationize(context.Background(), d)
			require.NoError(t, err, "n=%d threshold=%d", n, threshold)
			require.Len(t, out.Words, n, "n=%d threshold=%d", n, threshold)

			seen := make(map[int]bool)
			for _, w := range out.Words {
				assert.False(t, seen[w.Entry.ID], "duplicate id %d", w.Entry.ID)
				seen[w.Entry.ID] = true
			}
		}
	}
}

func TestStrategiesProduceSameRelations(t *testing.T) {
	d := syntheticDictionary(10000)

	seq := newTestRelationizer()
	seq.Threshold = 20000
	seqRes, err := seq.Run(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, Sequential, seqRes.Strategy)

	par := newTestRelationizer()
	parRes, err := par.Run(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, Parallel, parRes.Strategy)

	want := relationPairs(seqRes.Dictionary)
	assert.Len(t, want, 20000)
	assert.Equal(t, want, relationPairs(parRes.Dictionary))
	assert.Equal(t, seqRes.Relations, parRes.Relations)
}

func TestParallelOutputIsDeterministic(t *testing.T) {
	d := syntheticDictionary(7000)
	r := newTestRelationizer()
	r.Workers = 8
	r.ChunkSize = 500

	a, err := r.Relationize(context.Background(), d)
	require.NoError(t, err)
	b, err := r.Relationize(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, a.Words, b.Words)
	assert.True(t, slices.IsSortedFunc(a.Words, func(x, y dictionary.Word) int {
		if x.Entry.Form < y.Entry.Form {
			return -1
		}
		if x.Entry.Form > y.Entry.Form {
			return 1
		}
		return 0
	}))
}

func TestWordFaultIsIsolated(t *testing.T) {
	for _, threshold := range []int{100, 1} {
		d := dict(word(1, "broda", "{brode}"), word(2, "brode", "{broda}"), word(3, "brodi", "{broda}"))
		d.Words[1].AddRelation("see also", dictionary.Entry{ID: 3, Form: "brodi"})

		r := newTestRelationizer()
		r.Threshold = threshold
		r.ChunkSize = 2
		var faults int32
		r.OnFault = func(WordFault) { atomic.AddInt32(&faults, 1) }
		r.resolve = func(w dictionary.Word, idx *Index, ex *Extractor) dictionary.Word {
			if w.Entry.ID == 2 {
				panic("malformed notes")
			}
			return ResolveWord(w, idx, ex)
		}

		res, err := r.Run(context.Background(), d)
		require.NoError(t, err)
		require.Len(t, res.Dictionary.Words, 3)
		require.Len(t, res.Faults, 1)
		assert.Equal(t, dictionary.Entry{ID: 2, Form: "brode"}, res.Faults[0].Entry)
		assert.Contains(t, res.Faults[0].Error(), "malformed notes")
		assert.EqualValues(t, 1, atomic.LoadInt32(&faults))

		for _, w := range res.Dictionary.Words {
			switch w.Entry.ID {
			case 2:
				assert.Equal(t, []dictionary.Relation{{Title: "see also", Entry: dictionary.Entry{ID: 3, Form: "brodi"}}}, w.Relations)
			default:
				assert.Len(t, w.Relations, 1)
			}
		}
	}
}

// droppingPool accepts every job but silently runs only the first n.
type droppingPool struct {
	*WorkerPool
	mu   sync.Mutex
	left int
}

func (p *droppingPool) SubmitCtx(ctx context.Context, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.left == 0 {
		return nil
	}
	p.left--
	return p.WorkerPool.SubmitCtx(ctx, job)
}

func TestLostChunkIsConsistencyError(t *testing.T) {
	r := newTestRelationizer()
	r.Threshold = 1
	r.ChunkSize = 10
	r.PoolFactory = func(workers, queue int) Pool {
		return &droppingPool{WorkerPool: NewWorkerPool(workers, queue), left: 2}
	}

	_, err := r.Relationize(context.Background(), syntheticDictionary(50))
	require.Error(t, err)
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 20, ce.Got)
	assert.Equal(t, 50, ce.Want)
}

type closedPool struct{}

func (closedPool) Start(context.Context) {}

func (closedPool) SubmitCtx(context.Context, Job) error { return ErrPoolClosed }

func (closedPool) Close() {}

func TestSubmitFailureIsConsistencyError(t *testing.T) {
	r := newTestRelationizer()
	r.Threshold = 1
	r.PoolFactory = func(int, int) Pool { return closedPool{} }

	_, err := r.Relationize(context.Background(), syntheticDictionary(10))
	require.True(t, IsConsistencyError(err))
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestCanceledContextFailsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, threshold := range []int{100000, 1} {
		r := newTestRelationizer()
		r.Threshold = threshold
		_, err := r.Relationize(ctx, syntheticDictionary(100))
		require.True(t, IsConsistencyError(err), "threshold=%d", threshold)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestChunkTimeoutFailsRun(t *testing.T) {
	r := newTestRelationizer()
	r.Threshold = 1
	r.ChunkSize = 5
	r.ChunkTimeout = 20 * time.Millisecond
	r.resolve = func(w dictionary.Word, idx *Index, ex *Extractor) dictionary.Word {
		if w.Entry.ID == 1 {
			time.Sleep(60 * time.Millisecond)
		}
		return ResolveWord(w, idx, ex)
	}

	_, err := r.Relationize(context.Background(), syntheticDictionary(20))
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 15, ce.Got)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestEnrichRelations(t *testing.T) {
	d := dict(word(1, "klama", "{gerku}"), word(2, "gerku", ""))
	out, err := EnrichRelations(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, out.Words, 2)
	assert.Equal(t, []dictionary.Relation{{Entry: dictionary.Entry{ID: 2, Form: "gerku"}}}, out.Words[0].Relations)
	assert.NotNil(t, out.Words[1].Relations)
}
