package compute

import (
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParallelForCoversRangeOnce(t *testing.T) {
	backends := []Backend{
		NewSerialBackend(),
		NewCPUBackendWorkers(1),
		NewCPUBackendWorkers(3),
		NewCPUBackendWorkers(16),
	}

	for _, b := range backends {
		for _, n := range []int{0, 1, 7, 64, 1001} {
			hits := make([]int32, n)
			b.ParallelFor(n, 4, func(chunk, start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("%s n=%d: index %d visited %d times", b.Name(), n, i, h)
				}
			}
		}
	}
}

func TestChunkOrdinalsFitPartials(t *testing.T) {
	b := NewCPUBackendWorkers(4)
	n := 100
	partial := make([]float64, b.Chunks(n, 8))
	b.ParallelFor(n, 8, func(chunk, start, end int) {
		for i := start; i < end; i++ {
			partial[chunk] += float64(i)
		}
	})

	total := 0.0
	for _, p := range partial {
		total += p
	}
	if total != 4950 {
		t.Errorf("expected 4950, got %f", total)
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name     string
		workers  int
		n, min   int
		expected int
	}{
		{"small input", 8, 4, 8, 1},
		{"limited by workers", 2, 100, 4, 2},
		{"limited by chunk size", 8, 20, 8, 2},
		{"single worker", 1, 1000, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewCPUBackendWorkers(tt.workers)
			if got := b.Chunks(tt.n, tt.min); got != tt.expected {
				t.Errorf("expected %d chunks, got %d", tt.expected, got)
			}
		})
	}
}

func TestSetBackend(t *testing.T) {
	orig := GetBackend()
	defer SetBackend(orig)

	SetBackend(NewSerialBackend())
	if GetBackend().Name() != "serial" {
		t.Errorf("expected serial backend, got %s", GetBackend().Name())
	}

	SetBackend(nil)
	if GetBackend().Name() != "cpu" {
		t.Errorf("nil should restore the cpu backend, got %s", GetBackend().Name())
	}
}

func TestParallelForPanicReachesCaller(t *testing.T) {
	b := NewCPUBackendWorkers(4)
	var done int32

	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected the chunk panic on the calling goroutine")
			}
			err, ok := r.(error)
			if !ok || !strings.Contains(err.Error(), "chunk 2") {
				t.Errorf("unexpected panic value %v", r)
			}
		}()
		b.ParallelFor(100, 10, func(chunk, start, end int) {
			if chunk == 2 {
				panic("bad cell")
			}
			atomic.AddInt32(&done, 1)
		})
	}()

	if got := atomic.LoadInt32(&done); got != int32(b.Chunks(100, 10)-1) {
		t.Errorf("expected the other chunks to finish, %d did", got)
	}
}
