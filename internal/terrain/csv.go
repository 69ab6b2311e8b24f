package terrain

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

// LoadCSV reads an elevation grid with one row of metres per line. The
// file must have exactly height rows of width values.
func LoadCSV(path string, width, height int) (*grid.Grid[float64], error) {
	if path == "" {
		return nil, scale.NewConfigurationError("terrain.path", path, "csv terrain needs a path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open terrain: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, width, height)
}

func ReadCSV(r io.Reader, width, height int) (*grid.Grid[float64], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read terrain csv: %w", err)
	}
	if len(records) != height {
		return nil, scale.NewConfigurationError("terrain.path", len(records), fmt.Sprintf("expected %d rows", height))
	}

	data := make([]float64, 0, width*height)
	for y, rec := range records {
		if len(rec) != width {
			return nil, scale.NewConfigurationError("terrain.path", len(rec), fmt.Sprintf("row %d: expected %d values", y, width))
		}
		for x, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, scale.NewConfigurationError("terrain.path", field, fmt.Sprintf("row %d col %d: not a finite number", y, x))
			}
			data = append(data, v)
		}
	}
	return grid.FromSlice(width, height, data)
}

// WriteCSV writes g in the format ReadCSV accepts.
func WriteCSV(w io.Writer, g grid.Reader[float64]) error {
	cw := csv.NewWriter(w)
	row := make([]string, g.Width())
	for y := 0; y < g.Height(); y++ {
		for x := range row {
			row[x] = strconv.FormatFloat(g.At(x, y), 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
