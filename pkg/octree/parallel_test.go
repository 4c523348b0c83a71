package octree

import (
	"errors"
	"testing"
	"time"
)

func TestRunParallelSequentialFallbackBelowMinSize(t *testing.T) {
	items := []int{1, 2, 3}
	cfg := ExecConfig{Threads: 4, MinSize: 100}
	result, err := RunParallel(items, cfg, func(chunk []int) (int, error) {
		sum := 0
		for _, v := range chunk {
			sum += v
		}
		return sum, nil
	})
	if err != nil {
		t.Fatalf("RunParallel: %v", err)
	}
	if !result.Sequential {
		t.Fatal("expected Sequential fallback for input below MinSize")
	}
	if len(result.Values) != 1 || result.Values[0] != 6 {
		t.Fatalf("Values = %+v, want [6]", result.Values)
	}
}

func TestRunParallelChunksAndPreservesOrder(t *testing.T) {
	items := make([]int, 40)
	for i := range items {
		items[i] = i
	}
	cfg := ExecConfig{Threads: 4, MinSize: 1, ChunkSize: 10}
	result, err := RunParallel(items, cfg, func(chunk []int) ([]int, error) {
		out := make([]int, len(chunk))
		for i, v := range chunk {
			out[i] = v * 2
		}
		return out, nil
	})
	if err != nil {
		t.Fatalf("RunParallel: %v", err)
	}
	if result.Sequential {
		t.Fatal("expected a parallel run for an input well above MinSize")
	}
	if result.ChunkCount != 4 {
		t.Fatalf("ChunkCount = %d, want 4", result.ChunkCount)
	}
	var flat []int
	for _, chunk := range result.Values {
		flat = append(flat, chunk...)
	}
	if len(flat) != len(items) {
		t.Fatalf("got %d results, want %d", len(flat), len(items))
	}
	for i, v := range flat {
		if v != i*2 {
			t.Fatalf("flat[%d] = %d, want %d (order not preserved)", i, v, i*2)
		}
	}
}

func TestRunParallelPropagatesWorkerError(t *testing.T) {
	items := make([]int, 20)
	cfg := ExecConfig{Threads: 4, MinSize: 1, ChunkSize: 5}
	wantErr := errors.New("boom")
	_, err := RunParallel(items, cfg, func(chunk []int) (int, error) {
		if len(chunk) > 0 && chunk[0] == 0 {
			return 0, wantErr
		}
		return 0, nil
	})
	if err == nil {
		t.Fatal("expected an error from a failing chunk")
	}
	var wf *ErrWorkerFailure
	if !errors.As(err, &wf) {
		t.Fatalf("expected *ErrWorkerFailure, got %T", err)
	}
	if !errors.Is(err, wantErr) {
		t.Fatal("expected the wrapped error to unwrap to the original worker error")
	}
}

func TestRunParallelTimesOut(t *testing.T) {
	items := make([]int, 20)
	cfg := ExecConfig{Threads: 2, MinSize: 1, ChunkSize: 1, Timeout: time.Millisecond}
	result, err := RunParallel(items, cfg, func(chunk []int) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	if err != nil {
		t.Fatalf("RunParallel: %v", err)
	}
	if !result.TimedOut {
		t.Fatal("expected TimedOut to be set")
	}
}

func TestRunParallelEmptyInput(t *testing.T) {
	result, err := RunParallel([]int{}, ExecConfig{}, func(chunk []int) (int, error) { return 0, nil })
	if err != nil {
		t.Fatalf("RunParallel: %v", err)
	}
	if len(result.Values) != 0 {
		t.Fatalf("expected no values for empty input, got %+v", result.Values)
	}
}
