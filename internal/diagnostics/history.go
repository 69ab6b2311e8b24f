package diagnostics

import (
	"gonum.org/v1/gonum/stat"
)

// History keeps the most recent reports in a fixed-size ring.
type History struct {
	reports []QualityReport
	next    int
	full    bool
}

func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{reports: make([]QualityReport, size)}
}

func (h *History) Add(r QualityReport) {
	h.reports[h.next] = r
	h.next = (h.next + 1) % len(h.reports)
	if h.next == 0 {
		h.full = true
	}
}

func (h *History) Len() int {
	if h.full {
		return len(h.reports)
	}
	return h.next
}

func (h *History) Cap() int { return len(h.reports) }

// Reports returns the retained reports, oldest first.
func (h *History) Reports() []QualityReport {
	n := h.Len()
	out := make([]QualityReport, 0, n)
	start := 0
	if h.full {
		start = h.next
	}
	for k := 0; k < n; k++ {
		out = append(out, h.reports[(start+k)%len(h.reports)])
	}
	return out
}

func (h *History) Latest() (QualityReport, bool) {
	if h.Len() == 0 {
		return QualityReport{}, false
	}
	return h.reports[(h.next-1+len(h.reports))%len(h.reports)], true
}

func (h *History) Reset() {
	clear(h.reports)
	h.next = 0
	h.full = false
}

// Series extracts one value per retained report, oldest first.
func (h *History) Series(f func(QualityReport) float64) []float64 {
	reports := h.Reports()
	out := make([]float64, len(reports))
	for i, r := range reports {
		out[i] = f(r)
	}
	return out
}

// Selectors for Series, Mean and Trend.
func ScoreOf(r QualityReport) float64     { return r.Score }
func MassErrorOf(r QualityReport) float64 { return r.MassConservationError }

// Mean averages f over the retained reports.
func (h *History) Mean(f func(QualityReport) float64) float64 {
	s := h.Series(f)
	if len(s) == 0 {
		return 0
	}
	return stat.Mean(s, nil)
}

// Trend is the least-squares slope of f per tick. Fewer than two reports
// have no trend.
func (h *History) Trend(f func(QualityReport) float64) float64 {
	ys := h.Series(f)
	if len(ys) < 2 {
		return 0
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope
}
