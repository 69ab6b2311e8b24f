package grid

// Gradient returns the spatial derivative of r at (x, y) with cell spacing
// dx. gx points east (increasing x); gy points north (decreasing row), so
// callers get physical orientation. Interior cells use centred differences,
// edge cells one-sided ones. A single-cell axis has zero derivative.
func Gradient(r Reader[float64], x, y int, dx float64) (gx, gy float64) {
	w, h := r.Width(), r.Height()
	if dx <= 0 {
		return 0, 0
	}

	if w > 1 {
		x0, x1 := max(x-1, 0), min(x+1, w-1)
		gx = (r.At(x1, y) - r.At(x0, y)) / (float64(x1-x0) * dx)
	}
	if h > 1 {
		y0, y1 := max(y-1, 0), min(y+1, h-1)
		gy = -(r.At(x, y1) - r.At(x, y0)) / (float64(y1-y0) * dx)
	}
	return gx, gy
}

// Mean4 averages the in-bounds von Neumann neighbours of (x, y). A cell
// with no neighbours returns its own value.
func Mean4(r Reader[float64], x, y int) float64 {
	sum, n := 0.0, 0
	Neighbors4(r.Width(), r.Height(), x, y, func(nx, ny int) {
		sum += r.At(nx, ny)
		n++
	})
	if n == 0 {
		return r.At(x, y)
	}
	return sum / float64(n)
}

// EdgeDistance is the number of cells between (x, y) and the nearest edge.
func EdgeDistance(width, height, x, y int) int {
	return min(x, y, width-1-x, height-1-y)
}
