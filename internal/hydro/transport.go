package hydro

import "math"

// bilinear is the share of a parcel centred at offset (ox, oy) from a cell
// centre that lands on that cell.
func bilinear(ox, oy float64) float64 {
	return math.Max(0, 1-math.Abs(ox)) * math.Max(0, 1-math.Abs(oy))
}

// transport moves depth and sediment along the current velocity. Each
// target gathers from its 3x3 sources; the share of a source that lands
// outside the grid is outflow. Displacements stay below one cell because
// dt obeys the CFL limit.
func (e *Engine) transport(res *AdvanceResult) {
	w, h := e.params.Scale.Width, e.params.Scale.Height
	k := res.Dt / e.params.MetersPerCell

	depth := e.depth.Read()
	sed := e.sediment.Read()
	nextDepth := e.depth.Write()
	nextSed := e.sediment.Write()

	// displacement of source (x, y) in cells; rows grow southward
	disp := func(i int) (float64, float64) {
		return e.u.AtIndex(i) * k, -e.v.AtIndex(i) * k
	}

	chunks := e.backend.Chunks(h, minRows)
	outWater := make([]float64, chunks)
	outSed := make([]float64, chunks)

	e.backend.ParallelFor(h, minRows, func(chunk, y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				var dSum, sSum float64
				for sy := y - 1; sy <= y+1; sy++ {
					if sy < 0 || sy >= h {
						continue
					}
					for sx := x - 1; sx <= x+1; sx++ {
						if sx < 0 || sx >= w {
							continue
						}
						j := sy*w + sx
						ox, oy := disp(j)
						wt := bilinear(float64(sx)+ox-float64(x), float64(sy)+oy-float64(y))
						if wt == 0 {
							continue
						}
						dSum += depth.AtIndex(j) * wt
						sSum += sed.AtIndex(j) * wt
					}
				}
				i := y*w + x
				nextDepth.SetIndex(i, dSum)
				nextSed.SetIndex(i, sSum)

				lost := offGridShare(x, y, w, h, disp)
				if lost > 0 {
					outWater[chunk] += depth.AtIndex(i) * lost
					outSed[chunk] += sed.AtIndex(i) * lost
				}
			}
		}
	})

	e.depth.Swap()
	e.sediment.Swap()

	var ow, os float64
	for c := range outWater {
		ow += outWater[c]
		os += outSed[c]
	}
	res.Outflow = ow * e.params.CellArea
	res.SedimentExport = os * e.params.CellArea
}

// offGridShare is the fraction of cell (x, y)'s parcel landing outside
// the grid.
func offGridShare(x, y, w, h int, disp func(int) (float64, float64)) float64 {
	ox, oy := disp(y*w + x)
	if ox == 0 && oy == 0 {
		return 0
	}
	inside := 0.0
	for ty := y - 1; ty <= y+1; ty++ {
		if ty < 0 || ty >= h {
			continue
		}
		for tx := x - 1; tx <= x+1; tx++ {
			if tx < 0 || tx >= w {
				continue
			}
			inside += bilinear(float64(x)+ox-float64(tx), float64(y)+oy-float64(ty))
		}
	}
	return math.Max(0, 1-inside)
}
