package grid

import "sync"

// DoubleBuffer pairs the buffer a phase reads (previous values) with the
// buffer it writes (next values). Never read and write the same buffer in
// one phase.
type DoubleBuffer[T any] struct {
	read    *Grid[T]
	write   *Grid[T]
	version uint64
}

func NewDoubleBuffer[T any](width, height int) *DoubleBuffer[T] {
	return &DoubleBuffer[T]{
		read:  New[T](width, height),
		write: New[T](width, height),
	}
}

// Read returns the current values. Callers must not modify them.
func (b *DoubleBuffer[T]) Read() *Grid[T] { return b.read }

// Write returns the buffer receiving the next values.
func (b *DoubleBuffer[T]) Write() *Grid[T] { return b.write }

// Swap makes the written buffer current and bumps the version.
func (b *DoubleBuffer[T]) Swap() {
	b.read, b.write = b.write, b.read
	b.version++
}

// Reset overwrites both buffers with src.
func (b *DoubleBuffer[T]) Reset(src Reader[T]) error {
	if err := b.read.CopyFrom(src); err != nil {
		return err
	}
	b.version++
	return b.write.CopyFrom(src)
}

func (b *DoubleBuffer[T]) Version() uint64 { return b.version }

// Publish snapshots the current values.
func (b *DoubleBuffer[T]) Publish() Snapshot[T] { return Take[T](b.read, b.version) }

// Pool recycles scratch grids of one shape.
type Pool[T any] struct {
	pool   sync.Pool
	width  int
	height int
}

func NewPool[T any](width, height int) *Pool[T] {
	p := &Pool[T]{width: width, height: height}
	p.pool.New = func() any { return New[T](width, height) }
	return p
}

func (p *Pool[T]) Get() *Grid[T] { return p.pool.Get().(*Grid[T]) }

func (p *Pool[T]) Put(g *Grid[T]) {
	if g == nil || g.width != p.width || g.height != p.height {
		return
	}
	var zero T
	g.Fill(zero)
	p.pool.Put(g)
}

// GetCopy returns a pooled grid holding a copy of src.
func (p *Pool[T]) GetCopy(src Reader[T]) *Grid[T] {
	g := p.Get()
	copy(g.data, src.values())
	return g
}
