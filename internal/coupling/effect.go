package coupling

import (
	"github.com/san-kum/terrasim/internal/grid"
)

type Tag uint8

const (
	None Tag = iota
	Enhancement
	Suppression
)

func (t Tag) String() string {
	switch t {
	case Enhancement:
		return "enhancement"
	case Suppression:
		return "suppression"
	}
	return "none"
}

type Kind uint8

const (
	Multiplicative Kind = iota
	Additive
)

// EffectGrid is one coupling's output: a scalar per cell plus the tag
// that claimed it.
type EffectGrid struct {
	Name string
	Kind Kind

	// Exported is material that left the domain while the grid was built,
	// in metres summed over cells.
	Exported float64

	values  *grid.Grid[float64]
	tags    []Tag
	refused int
}

func NewEffectGrid(name string, kind Kind, width, height int) *EffectGrid {
	neutral := 0.0
	if kind == Multiplicative {
		neutral = 1
	}
	return &EffectGrid{
		Name:   name,
		Kind:   kind,
		values: grid.NewFilled(width, height, neutral),
		tags:   make([]Tag, width*height),
	}
}

func (e *EffectGrid) Width() int  { return e.values.Width() }
func (e *EffectGrid) Height() int { return e.values.Height() }

// Mark sets cell i to value under tag. A cell already claimed by a
// different tag is left untouched and the refusal is counted.
func (e *EffectGrid) Mark(i int, tag Tag, value float64) bool {
	cur := e.tags[i]
	if cur != None && cur != tag {
		e.refused++
		return false
	}
	e.tags[i] = tag
	e.values.SetIndex(i, value)
	return true
}

// Add accumulates into an untagged cell.
func (e *EffectGrid) Add(i int, value float64) bool {
	if e.tags[i] != None {
		e.refused++
		return false
	}
	e.values.SetIndex(i, e.values.AtIndex(i)+value)
	return true
}

func (e *EffectGrid) Value(i int) float64 { return e.values.AtIndex(i) }
func (e *EffectGrid) At(x, y int) float64 { return e.values.At(x, y) }
func (e *EffectGrid) Tag(i int) Tag       { return e.tags[i] }

// Refused counts writes rejected by Mark or Add.
func (e *EffectGrid) Refused() int { return e.refused }

// Count returns the number of cells carrying tag.
func (e *EffectGrid) Count(tag Tag) int {
	n := 0
	for _, t := range e.tags {
		if t == tag {
			n++
		}
	}
	return n
}

// Snapshot copies the values for consumers in other phases.
func (e *EffectGrid) Snapshot() grid.Snapshot[float64] {
	return grid.Take[float64](e.values, 0)
}
