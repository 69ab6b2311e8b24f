// Package compute provides the execution backends for per-cell phases.
//
// Every engine phase is a read-snapshot / write-next-buffer sweep, so rows
// can be processed independently:
//
//   - CPU: rows split into chunks and run on an errgroup, one per core
//   - Serial: everything inline, for deterministic tests and tiny grids
//
// # Reductions
//
// ParallelFor passes a chunk ordinal to the callback. Callers keep one
// partial sum per chunk and add them in chunk order afterwards:
//
//	b := compute.GetBackend()
//	partial := make([]float64, b.Chunks(h, 8))
//	b.ParallelFor(h, 8, func(chunk, y0, y1 int) {
//		for y := y0; y < y1; y++ {
//			partial[chunk] += rowMass(y)
//		}
//	})
package compute
