package hydro

import (
	"math"

	"github.com/san-kum/terrasim/internal/scale"
)

const (
	// sedimentCapacity scales speed·depth into a carrying capacity in m.
	sedimentCapacity = 1.0
	depositionRate   = 0.05
)

// Capacity is the sediment a cell's flow can carry.
func Capacity(speed, depth float64) float64 {
	return sedimentCapacity * speed * depth
}

// ErosionExchange returns the bed change for one cell: negative when the
// flow picks up material, positive when it drops it.
func ErosionExchange(p scale.Parameters, speed, depth, sediment float64) float64 {
	c := Capacity(speed, depth)
	if sediment < c {
		return -math.Min((c-sediment)*p.HydraulicErosionRate, p.ErosionCapPerTick)
	}
	return (sediment - c) * depositionRate
}

func (e *Engine) erode(res *AdvanceResult) {
	depth := e.depth.Read()
	sed := e.sediment.Read()
	next := e.sediment.Write()

	for i := 0; i < depth.Len(); i++ {
		speed := math.Hypot(e.u.AtIndex(i), e.v.AtIndex(i))
		dz := ErosionExchange(e.params, speed, depth.AtIndex(i), sed.AtIndex(i))
		next.SetIndex(i, sed.AtIndex(i)-dz)
		if dz == 0 {
			continue
		}
		e.delta.SetIndex(i, dz)
		if dz < 0 {
			res.Eroded -= dz
		} else {
			res.Deposited += dz
		}
	}
	e.sediment.Swap()
}
