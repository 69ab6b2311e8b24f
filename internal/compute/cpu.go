package compute

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

// NewCPUBackendWorkers pins the worker count; values below 1 mean one.
func NewCPUBackendWorkers(workers int) *CPUBackend {
	return &CPUBackend{workers: max(workers, 1)}
}

func (c *CPUBackend) Name() string { return "cpu" }
func (c *CPUBackend) Workers() int { return c.workers }

func (c *CPUBackend) Chunks(n, minChunk int) int {
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || c.workers <= 1 {
		return 1
	}
	return max(min(c.workers, n/minChunk), 1)
}

func (c *CPUBackend) ParallelFor(n, minChunk int, fn func(chunk, start, end int)) {
	if n <= 0 {
		return
	}
	chunks := c.Chunks(n, minChunk)
	if chunks == 1 {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(c.workers)
	for k := 0; k < chunks; k++ {
		start := k * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("compute: chunk %d [%d, %d): %v", k, start, end, r)
				}
			}()
			fn(k, start, end)
			return nil
		})
	}
	// A panicking chunk resurfaces on the caller once every chunk is done.
	if err := g.Wait(); err != nil {
		panic(err)
	}
}
