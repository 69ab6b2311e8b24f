package grid

import (
	"errors"
	"math"
	"testing"
)

func TestGridIndexing(t *testing.T) {
	g := New[float64](4, 3)
	g.Set(3, 2, 7)

	if g.Len() != 12 {
		t.Fatalf("expected 12 cells, got %d", g.Len())
	}
	if g.Index(3, 2) != 11 {
		t.Errorf("expected index 11, got %d", g.Index(3, 2))
	}
	if x, y := g.XY(11); x != 3 || y != 2 {
		t.Errorf("expected (3,2), got (%d,%d)", x, y)
	}
	if g.AtIndex(11) != 7 {
		t.Errorf("expected 7, got %f", g.AtIndex(11))
	}
	if g.InBounds(4, 0) || g.InBounds(0, -1) {
		t.Error("out-of-range coordinates reported in bounds")
	}
}

func TestGridAtClamped(t *testing.T) {
	g, err := FromSlice(3, 2, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("from slice: %v", err)
	}

	tests := []struct {
		name string
		x, y int
		want float64
	}{
		{"inside", 1, 1, 5},
		{"left of grid", -2, 0, 1},
		{"right of grid", 5, 1, 6},
		{"above grid", 2, -1, 3},
		{"below grid", 0, 9, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.AtClamped(tt.x, tt.y); got != tt.want {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestFromSliceErrors(t *testing.T) {
	if _, err := FromSlice(0, 2, []float64{}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := FromSlice(2, 2, []float64{1, 2, 3}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	g := NewFilled(2, 2, 1.0)
	snap := Take[float64](g, 1)

	g.Set(0, 0, 99)

	if snap.At(0, 0) != 1 {
		t.Errorf("snapshot changed after source write: %f", snap.At(0, 0))
	}

	vals := snap.Values()
	vals[1] = -5
	if snap.AtIndex(1) != 1 {
		t.Error("Values must return a copy")
	}
}

func TestZeroSnapshot(t *testing.T) {
	var s Snapshot[float64]
	if !s.IsZero() {
		t.Error("expected zero snapshot")
	}
	if s.Len() != 0 || s.Width() != 0 || Sum(s) != 0 {
		t.Error("zero snapshot should be empty")
	}
}

func TestDoubleBufferSwapAndPublish(t *testing.T) {
	buf := NewDoubleBuffer[float64](2, 1)
	buf.Write().Fill(3)

	if buf.Read().AtIndex(0) != 0 {
		t.Fatal("write buffer leaked into read buffer before swap")
	}

	buf.Swap()
	if buf.Read().AtIndex(0) != 3 {
		t.Errorf("expected 3 after swap, got %f", buf.Read().AtIndex(0))
	}

	snap := buf.Publish()
	buf.Write().Fill(8)
	buf.Swap()

	if snap.AtIndex(0) != 3 {
		t.Errorf("published snapshot mutated: %f", snap.AtIndex(0))
	}
	if snap.Version() != 1 || buf.Version() != 2 {
		t.Errorf("unexpected versions snap=%d buf=%d", snap.Version(), buf.Version())
	}
}

func TestReductions(t *testing.T) {
	g, _ := FromSlice(2, 2, []float64{1, -2, 3, 6})

	if Sum(g) != 8 {
		t.Errorf("expected sum 8, got %f", Sum(g))
	}
	if Mean(g) != 2 {
		t.Errorf("expected mean 2, got %f", Mean(g))
	}
	lo, hi := MinMax(g)
	if lo != -2 || hi != 6 {
		t.Errorf("expected (-2, 6), got (%f, %f)", lo, hi)
	}
}

func TestNonFinite(t *testing.T) {
	g, _ := FromSlice(3, 1, []float64{1, math.NaN(), math.Inf(1)})
	if AllFinite(g) {
		t.Fatal("expected non-finite detection")
	}
	if n := CountNonFinite(g, 0); n != 2 {
		t.Errorf("expected 2 replacements, got %d", n)
	}
	if !AllFinite(g) {
		t.Error("grid should be finite after replacement")
	}
}

func TestPoolReturnsZeroedGrids(t *testing.T) {
	p := NewPool[float64](2, 2)
	g := p.Get()
	g.Fill(4)
	p.Put(g)

	again := p.Get()
	for i := 0; i < again.Len(); i++ {
		if again.AtIndex(i) != 0 {
			t.Fatalf("pooled grid not zeroed at %d", i)
		}
	}

	src := NewFilled(2, 2, 1.5)
	cp := p.GetCopy(src)
	if cp.AtIndex(3) != 1.5 {
		t.Errorf("expected copy, got %f", cp.AtIndex(3))
	}
}

func TestNeighbors4(t *testing.T) {
	count := 0
	Neighbors4(3, 3, 0, 0, func(nx, ny int) { count++ })
	if count != 2 {
		t.Errorf("corner should have 2 neighbours, got %d", count)
	}
	count = 0
	Neighbors4(3, 3, 1, 1, func(nx, ny int) { count++ })
	if count != 4 {
		t.Errorf("centre should have 4 neighbours, got %d", count)
	}
}

func TestGradient(t *testing.T) {
	g := New[float64](4, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			g.Set(x, y, 2*float64(x)+10*float64(y))
		}
	}

	for _, c := range [][2]int{{0, 0}, {1, 1}, {3, 2}} {
		gx, gy := Gradient(g, c[0], c[1], 2)
		if gx != 1 {
			t.Errorf("cell %v: expected gx=1, got %f", c, gx)
		}
		// rows increase southward, so northward slope is negative
		if gy != -5 {
			t.Errorf("cell %v: expected gy=-5, got %f", c, gy)
		}
	}

	single := NewFilled(1, 1, 3.0)
	if gx, gy := Gradient(single, 0, 0, 1); gx != 0 || gy != 0 {
		t.Errorf("single cell must have zero gradient, got (%f, %f)", gx, gy)
	}
}

func TestMean4AndEdgeDistance(t *testing.T) {
	g, _ := FromSlice(3, 3, []float64{
		0, 1, 0,
		1, 9, 3,
		0, 5, 0,
	})
	if m := Mean4(g, 1, 1); m != 2.5 {
		t.Errorf("expected mean 2.5, got %f", m)
	}
	if m := Mean4(g, 0, 0); m != 1 {
		t.Errorf("expected corner mean 1, got %f", m)
	}

	if d := EdgeDistance(10, 6, 4, 3); d != 2 {
		t.Errorf("expected distance 2, got %d", d)
	}
	if d := EdgeDistance(10, 6, 9, 3); d != 0 {
		t.Errorf("expected edge distance 0, got %d", d)
	}
}
