package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrDimensionMismatch indicates grids of different shapes were combined.
	ErrDimensionMismatch = errors.New("grid: dimension mismatch")

	// ErrInvalidSize indicates a non-positive width or height.
	ErrInvalidSize = errors.New("grid: width and height must be positive")
)

// Reader is the read side shared by Grid and Snapshot.
type Reader[T any] interface {
	Width() int
	Height() int
	Len() int
	At(x, y int) T
	AtIndex(i int) T
	values() []T
}

type Grid[T any] struct {
	width  int
	height int
	data   []T
}

func New[T any](width, height int) *Grid[T] {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Grid[T]{
		width:  width,
		height: height,
		data:   make([]T, width*height),
	}
}

func NewFilled[T any](width, height int, v T) *Grid[T] {
	g := New[T](width, height)
	g.Fill(v)
	return g
}

// FromSlice copies data into a new grid of the given shape.
func FromSlice[T any](width, height int, data []T) (*Grid[T], error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrDimensionMismatch, len(data), width, height)
	}
	g := New[T](width, height)
	copy(g.data, data)
	return g, nil
}

func (g *Grid[T]) Width() int  { return g.width }
func (g *Grid[T]) Height() int { return g.height }
func (g *Grid[T]) Len() int    { return len(g.data) }

func (g *Grid[T]) Index(x, y int) int { return y*g.width + x }

func (g *Grid[T]) XY(i int) (int, int) { return i % g.width, i / g.width }

func (g *Grid[T]) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *Grid[T]) At(x, y int) T { return g.data[y*g.width+x] }

func (g *Grid[T]) AtIndex(i int) T { return g.data[i] }

// AtClamped reads with zero-gradient extrapolation past the edges.
func (g *Grid[T]) AtClamped(x, y int) T {
	return g.data[clampIndex(y, g.height)*g.width+clampIndex(x, g.width)]
}

func (g *Grid[T]) Set(x, y int, v T) { g.data[y*g.width+x] = v }

func (g *Grid[T]) SetIndex(i int, v T) { g.data[i] = v }

// Data exposes the backing store to the grid's single owner.
func (g *Grid[T]) Data() []T { return g.data }

// Row returns the backing slice of row y.
func (g *Grid[T]) Row(y int) []T { return g.data[y*g.width : (y+1)*g.width] }

func (g *Grid[T]) Fill(v T) {
	for i := range g.data {
		g.data[i] = v
	}
}

func (g *Grid[T]) Clone() *Grid[T] {
	c := New[T](g.width, g.height)
	copy(c.data, g.data)
	return c
}

func (g *Grid[T]) CopyFrom(src Reader[T]) error {
	if !SameShape[T](g, src) {
		return fmt.Errorf("%w: %dx%d <- %dx%d", ErrDimensionMismatch, g.width, g.height, src.Width(), src.Height())
	}
	copy(g.data, src.values())
	return nil
}

func (g *Grid[T]) values() []T { return g.data }

// SameShape reports whether a and b have equal dimensions.
func SameShape[T any](a, b Reader[T]) bool {
	return a.Width() == b.Width() && a.Height() == b.Height()
}

// Neighbors4 calls fn for the in-bounds von Neumann neighbours of (x, y).
func Neighbors4(width, height, x, y int, fn func(nx, ny int)) {
	if x > 0 {
		fn(x-1, y)
	}
	if x < width-1 {
		fn(x+1, y)
	}
	if y > 0 {
		fn(x, y-1)
	}
	if y < height-1 {
		fn(x, y+1)
	}
}

func Sum(r Reader[float64]) float64 {
	if r.Len() == 0 {
		return 0
	}
	return floats.Sum(r.values())
}

func Mean(r Reader[float64]) float64 {
	if r.Len() == 0 {
		return 0
	}
	return floats.Sum(r.values()) / float64(r.Len())
}

func MinMax(r Reader[float64]) (float64, float64) {
	if r.Len() == 0 {
		return 0, 0
	}
	v := r.values()
	return floats.Min(v), floats.Max(v)
}

// AllFinite reports whether no cell holds NaN or Inf.
func AllFinite(r Reader[float64]) bool {
	for _, v := range r.values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CountNonFinite replaces NaN/Inf cells with fallback and returns how many.
func CountNonFinite(g *Grid[float64], fallback float64) int {
	n := 0
	for i, v := range g.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			g.data[i] = fallback
			n++
		}
	}
	return n
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
