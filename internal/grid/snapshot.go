package grid

// Snapshot is an immutable view of a grid. It holds a private copy, so the
// grid it was taken from may be rewritten freely afterwards.
type Snapshot[T any] struct {
	g       *Grid[T]
	version uint64
}

// Take copies r into a new snapshot.
func Take[T any](r Reader[T], version uint64) Snapshot[T] {
	c := New[T](r.Width(), r.Height())
	copy(c.data, r.values())
	return Snapshot[T]{g: c, version: version}
}

// IsZero reports whether the snapshot was never taken.
func (s Snapshot[T]) IsZero() bool { return s.g == nil }

func (s Snapshot[T]) Version() uint64 { return s.version }

func (s Snapshot[T]) Width() int {
	if s.g == nil {
		return 0
	}
	return s.g.width
}

func (s Snapshot[T]) Height() int {
	if s.g == nil {
		return 0
	}
	return s.g.height
}

func (s Snapshot[T]) Len() int {
	if s.g == nil {
		return 0
	}
	return len(s.g.data)
}

func (s Snapshot[T]) At(x, y int) T { return s.g.At(x, y) }

func (s Snapshot[T]) AtIndex(i int) T { return s.g.data[i] }

func (s Snapshot[T]) AtClamped(x, y int) T { return s.g.AtClamped(x, y) }

// Values returns a copy of the cell values in row-major order.
func (s Snapshot[T]) Values() []T {
	out := make([]T, s.Len())
	if s.g != nil {
		copy(out, s.g.data)
	}
	return out
}

// Grid returns a mutable copy.
func (s Snapshot[T]) Grid() *Grid[T] {
	if s.g == nil {
		return New[T](0, 0)
	}
	return s.g.Clone()
}

func (s Snapshot[T]) values() []T {
	if s.g == nil {
		return nil
	}
	return s.g.data
}
