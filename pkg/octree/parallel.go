package octree

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// ExecConfig controls a parallel chunked run: how many workers, the
// smallest input worth parallelizing, how big a chunk each worker takes,
// and an optional wall-clock deadline.
type ExecConfig struct {
	Threads   int
	MinSize   int
	ChunkSize int
	Timeout   time.Duration
}

func execConfigFrom(cfg Config) ExecConfig {
	return ExecConfig{
		Threads:   cfg.ParallelThreads,
		MinSize:   cfg.ParallelMinSize,
		ChunkSize: cfg.ParallelChunkSize,
		Timeout:   cfg.ParallelTimeout,
	}
}

// ExecResult is what RunParallel hands back: the per-chunk results in
// input order, plus whether the run degraded to sequential or timed out. A
// worker error is not recorded here; RunParallel returns it as its error.
type ExecResult[R any] struct {
	Values      []R
	ChunkCount  int
	ThreadsUsed int
	Sequential  bool
	TimedOut    bool
}

// RunParallel splits items into chunks and runs fn over each chunk on a
// worker pool, mirroring the channel-based worker-pool pattern used
// elsewhere in this codebase for loading work in parallel, generalized
// here to arbitrary chunked computations with a bounded deadline.
//
// When len(items) is below cfg.MinSize, fn runs once, sequentially, in the
// caller's goroutine — spinning up a pool for a handful of items is pure
// overhead. If cfg.Timeout elapses before every chunk finishes,
// RunParallel returns the chunks that did complete, TimedOut set, and no
// error of its own; it is up to the caller to decide whether a partial
// result is usable. A panic or returned error from any single chunk is
// collected via ErrWorkerFailure and the whole call returns that error;
// chunks still in flight are allowed to finish draining but their results
// are discarded.
func RunParallel[T, R any](items []T, cfg ExecConfig, fn func(chunk []T) (R, error)) (ExecResult[R], error) {
	if len(items) == 0 {
		return ExecResult[R]{}, nil
	}
	call := func(chunk []T) (val R, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return fn(chunk)
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if len(items) < cfg.MinSize || threads <= 1 {
		r, err := call(items)
		if err != nil {
			return ExecResult[R]{}, &ErrWorkerFailure{Err: err}
		}
		return ExecResult[R]{Values: []R{r}, ChunkCount: 1, ThreadsUsed: 1, Sequential: true}, nil
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = (len(items) + threads - 1) / threads
		if chunkSize < 1 {
			chunkSize = 1
		}
	}

	type job struct {
		idx   int
		chunk []T
	}
	type outcome struct {
		idx int
		val R
		err error
	}

	var jobs []job
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		jobs = append(jobs, job{idx: len(jobs), chunk: items[start:end]})
	}

	jobCh := make(chan job, len(jobs))
	resultCh := make(chan outcome, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	workers := threads
	if workers > len(jobs) {
		workers = len(jobs)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				val, err := call(j.chunk)
				resultCh <- outcome{idx: j.idx, val: val, err: err}
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var timeoutCh <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	values := make([]R, len(jobs))
	got := make([]bool, len(jobs))
	remaining := len(jobs)
	for remaining > 0 {
		select {
		case out := <-resultCh:
			if out.err != nil {
				return ExecResult[R]{}, &ErrWorkerFailure{Err: out.err}
			}
			values[out.idx] = out.val
			got[out.idx] = true
			remaining--
		case <-timeoutCh:
			partial := make([]R, 0, len(jobs))
			for i, ok := range got {
				if ok {
					partial = append(partial, values[i])
				}
			}
			return ExecResult[R]{Values: partial, ChunkCount: len(partial), ThreadsUsed: workers, TimedOut: true}, nil
		}
	}
	return ExecResult[R]{Values: values, ChunkCount: len(jobs), ThreadsUsed: workers}, nil
}
