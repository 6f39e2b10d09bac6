package relation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

const (
	// DefaultThreshold is the word count from which the parallel strategy is used.
	DefaultThreshold = 6000
	// DefaultChunkSize is the number of contiguous words handed to one job.
	DefaultChunkSize = 2000
)

// Strategy names the execution path chosen for a run.
type Strategy string

const (
	Sequential Strategy = "sequential"
	Parallel   Strategy = "parallel"
)

// Progress is reported after every word (sequential) or chunk (parallel).
type Progress struct {
	Done     int
	Total    int
	Workers  int
	Strategy Strategy
}

// WordFault records a word whose resolution panicked. The word is still
// emitted, carrying only its curated relations.
type WordFault struct {
	Entry dictionary.Entry
	Value any
}

func (f WordFault) Error() string {
	return fmt.Sprintf("resolving %q (id %d): %v", f.Entry.Form, f.Entry.ID, f.Value)
}

// ConsistencyError means the merged output does not hold exactly one word per
// input word. The run produced no usable output.
type ConsistencyError struct {
	Got   int
	Want  int
	Cause error
}

func (e *ConsistencyError) Error() string {
	msg := fmt.Sprintf("relation: merged %d words, want %d", e.Got, e.Want)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConsistencyError) Unwrap() error { return e.Cause }

// Result summarises a run.
type Result struct {
	Dictionary *dictionary.Dictionary
	Strategy   Strategy
	Workers    int
	// Relations counts the untitled relations attached by the run.
	Relations int
	Faults    []WordFault
	Elapsed   time.Duration
}

// Relationizer recomputes the relations of every word in a dictionary.
type Relationizer struct {
	Threshold int
	ChunkSize int
	Workers   int
	// ChunkTimeout bounds one chunk; zero means no limit. An expired chunk is
	// lost and fails the run.
	ChunkTimeout time.Duration
	// ExtraFields are content titles scanned after "notes".
	ExtraFields []string

	Logger *slog.Logger
	// OnProgress is always called from a single goroutine.
	OnProgress func(Progress)
	// OnFault may be called concurrently from several workers.
	OnFault func(WordFault)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) Pool

	resolve func(dictionary.Word, *Index, *Extractor) dictionary.Word
}

// NewRelationizer returns a Relationizer with default settings.
func NewRelationizer(extraFields ...string) *Relationizer {
	return &Relationizer{
		Threshold:   DefaultThreshold,
		ChunkSize:   DefaultChunkSize,
		Workers:     runtime.NumCPU(),
		ExtraFields: extraFields,
	}
}

// EnrichRelations runs a default Relationizer over d.
func EnrichRelations(ctx context.Context, d *dictionary.Dictionary) (*dictionary.Dictionary, error) {
	return NewRelationizer().Relationize(ctx, d)
}

// Relationize returns a new dictionary sharing d's metadata whose words carry
// recomputed relations. d is not modified.
func (r *Relationizer) Relationize(ctx context.Context, d *dictionary.Dictionary) (*dictionary.Dictionary, error) {
	res, err := r.Run(ctx, d)
	if err != nil {
		return nil, err
	}
	return res.Dictionary, nil
}

// Run is Relationize with run statistics.
func (r *Relationizer) Run(ctx context.Context, d *dictionary.Dictionary) (*Result, error) {
	start := time.Now()
	logger := r.logger()

	idx := NewIndex(d.Entries())
	ex := NewExtractor(r.ExtraFields...)

	var (
		words  []dictionary.Word
		faults []WordFault
		res    = &Result{}
		err    error
	)
	if len(d.Words) < r.threshold() {
		res.Strategy, res.Workers = Sequential, 1
		words, faults, err = r.runSequential(ctx, d.Words, idx, ex)
	} else {
		res.Strategy, res.Workers = Parallel, r.workers()
		words, faults, err = r.runParallel(ctx, d.Words, idx, ex)
	}
	if err != nil {
		logger.Error("relation run failed",
			slog.String("strategy", string(res.Strategy)),
			slog.Int("words", len(d.Words)),
			slog.Any("error", err))
		return nil, err
	}

	for _, w := range words {
		for _, rel := range w.Relations {
			if rel.Title == "" {
				res.Relations++
			}
		}
	}
	res.Dictionary = d.WithWords(words)
	res.Faults = faults
	res.Elapsed = time.Since(start)

	logger.Info("relations resolved",
		slog.String("lang", d.Meta.Lang.To),
		slog.String("strategy", string(res.Strategy)),
		slog.Int("words", len(words)),
		slog.Int("indexed", idx.Len()),
		slog.Int("relations", res.Relations),
		slog.Int("faults", len(faults)),
		slog.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (r *Relationizer) runSequential(ctx context.Context, in []dictionary.Word, idx *Index, ex *Extractor) ([]dictionary.Word, []WordFault, error) {
	out := make([]dictionary.Word, 0, len(in))
	var faults []WordFault
	for _, w := range in {
		if err := ctx.Err(); err != nil {
			return nil, nil, &ConsistencyError{Got: len(out), Want: len(in), Cause: err}
		}
		rw, fault := r.resolveSafely(w, idx, ex)
		if fault != nil {
			faults = append(faults, *fault)
		}
		out = append(out, rw)
		r.progress(Progress{Done: len(out), Total: len(in), Workers: 1, Strategy: Sequential})
	}
	if len(out) != len(in) {
		return nil, nil, &ConsistencyError{Got: len(out), Want: len(in)}
	}
	return out, faults, nil
}

type chunkResult struct {
	index  int
	words  []dictionary.Word
	faults []WordFault
}

func (r *Relationizer) runParallel(ctx context.Context, in []dictionary.Word, idx *Index, ex *Extractor) ([]dictionary.Word, []WordFault, error) {
	logger := r.logger()
	size := r.chunkSize()
	workers := r.workers()
	nchunks := (len(in) + size - 1) / size

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wp Pool
	if r.PoolFactory != nil {
		wp = r.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	// Buffered for every chunk so a finishing job never waits on the consumer.
	resultCh := make(chan chunkResult, nchunks)

	var (
		causeMu sync.Mutex
		cause   error
	)
	setCause := func(err error) {
		causeMu.Lock()
		if cause == nil {
			cause = err
		}
		causeMu.Unlock()
	}

	// Single consumer: slots are filled by chunk index so merge order does not
	// depend on completion order.
	slots := make([][]dictionary.Word, nchunks)
	var faults []WordFault
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		done := 0
		for res := range resultCh {
			slots[res.index] = res.words
			faults = append(faults, res.faults...)
			done += len(res.words)
			r.progress(Progress{Done: done, Total: len(in), Workers: workers, Strategy: Parallel})
		}
	}()

	wp.Start(ctx)

Loop:
	for c := 0; c < nchunks; c++ {
		lo := c * size
		hi := min(lo+size, len(in))
		ci := c
		chunk := in[lo:hi]

		job := func(ctx context.Context) error {
			if r.ChunkTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, r.ChunkTimeout)
				defer cancel()
			}
			res := chunkResult{index: ci, words: make([]dictionary.Word, 0, len(chunk))}
			for _, w := range chunk {
				if err := ctx.Err(); err != nil {
					err = fmt.Errorf("chunk %d dropped after %d of %d words: %w", ci, len(res.words), len(chunk), err)
					setCause(err)
					return err
				}
				rw, fault := r.resolveSafely(w, idx, ex)
				if fault != nil {
					res.faults = append(res.faults, *fault)
				}
				res.words = append(res.words, rw)
			}
			resultCh <- res
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			setCause(fmt.Errorf("submit chunk %d: %w", ci, err))
			break Loop
		}
	}

	// Full barrier: every started job has returned once Close does.
	wp.Close()
	close(resultCh)
	<-consumerDone

	merged := make([]dictionary.Word, 0, len(in))
	for _, s := range slots {
		merged = append(merged, s...)
	}
	if len(merged) != len(in) {
		err := cause
		if err == nil {
			err = ctx.Err()
		}
		return nil, nil, &ConsistencyError{Got: len(merged), Want: len(in), Cause: err}
	}

	slices.SortFunc(faults, func(a, b WordFault) int { return cmp.Compare(a.Entry.ID, b.Entry.ID) })
	slices.SortStableFunc(merged, func(a, b dictionary.Word) int {
		return cmp.Or(
			cmp.Compare(a.Entry.Form, b.Entry.Form),
			cmp.Compare(a.Entry.ID, b.Entry.ID),
		)
	})
	logger.Debug("chunks merged",
		slog.Int("chunks", nchunks),
		slog.Int("chunk_size", size),
		slog.Int("workers", workers))
	return merged, faults, nil
}

// resolveSafely isolates a panic to the word being resolved.
func (r *Relationizer) resolveSafely(w dictionary.Word, idx *Index, ex *Extractor) (out dictionary.Word, fault *WordFault) {
	defer func() {
		if v := recover(); v != nil {
			out = w.Clone()
			out.Relations = curatedRelations(w.Relations)
			fault = &WordFault{Entry: w.Entry, Value: v}
			r.logger().Warn("word skipped",
				slog.String("form", w.Entry.Form),
				slog.Int("id", w.Entry.ID),
				slog.Any("panic", v))
			if r.OnFault != nil {
				r.OnFault(*fault)
			}
		}
	}()
	resolve := r.resolve
	if resolve == nil {
		resolve = ResolveWord
	}
	return resolve(w, idx, ex), nil
}

func (r *Relationizer) progress(p Progress) {
	if r.OnProgress != nil {
		r.OnProgress(p)
	}
}

func (r *Relationizer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Relationizer) threshold() int {
	if r.Threshold <= 0 {
		return DefaultThreshold
	}
	return r.Threshold
}

func (r *Relationizer) chunkSize() int {
	if r.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return r.ChunkSize
}

func (r *Relationizer) workers() int {
	if r.Workers <= 0 {
		return runtime.NumCPU()
	}
	return r.Workers
}

// IsConsistencyError reports whether err is or wraps a *ConsistencyError.
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
