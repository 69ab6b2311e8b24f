// Package grid provides the storage primitives every physical field uses.
//
// The package defines:
//
//   - [Grid]: flat row-major 2D container that owns its memory
//   - [Snapshot]: immutable read-only copy of a grid at a pipeline point
//   - [DoubleBuffer]: read/write buffer pair for one phase writer
//   - [Pool]: reusable scratch grids
//
// # Example
//
//	buf := grid.NewDoubleBuffer[float64](64, 32)
//	next := buf.Write()
//	prev := buf.Read()
//	for i := range next.Data() {
//		next.Data()[i] = prev.AtIndex(i) * 0.5
//	}
//	buf.Swap()
//	snap := buf.Publish()
//
// # Thread Safety
//
// Grid and DoubleBuffer are NOT safe for concurrent writes to the same
// cell. Workers may write disjoint rows of one grid concurrently.
// Snapshots are immutable and safe to share between goroutines.
package grid
