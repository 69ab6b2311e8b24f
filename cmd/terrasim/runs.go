package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/terrasim/internal/config"
	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/export"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/storage"
	"github.com/san-kum/terrasim/internal/viz"
)

var (
	exportFormat string
	exportField  string
	exportTheme  string
	exportOut    string
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTERRAIN\tTIME\tDOMAIN\tGRID\tSTEPS\tAUTHORITY\tVIOLATIONS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%gkm\t%dx%d\t%d\t%s\t%d\n",
			run.ID,
			run.Terrain,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.DomainKm,
			run.Width, run.Height,
			run.Steps,
			run.Authority,
			run.Violations,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadReports(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("terrain: %s at %g km\n", meta.Terrain, meta.DomainKm)
	fmt.Printf("ticks: %d\n\n", len(rows))

	score := make([]float64, len(rows))
	massErr := make([]float64, len(rows))
	cfl := make([]float64, len(rows))
	for i, r := range rows {
		score[i] = r.Score
		massErr[i] = math.Log10(math.Max(r.MassError, 1e-16))
		cfl[i] = r.MaxCFL
	}

	fmt.Println(viz.PlotSeries(score, "quality score", 80, 10))
	fmt.Println()
	fmt.Println(viz.PlotSeries(massErr, "log10 mass error", 80, 10))
	fmt.Println()
	fmt.Println(viz.PlotSeries(cfl, "max cfl", 80, 10))
	fmt.Println()

	if period := diagnostics.DominantPeriod(score); period > 0 {
		fmt.Printf("dominant score period: %.1f ticks\n", period)
	}
	return nil
}

type storedRun struct {
	Metadata *storage.RunMetadata `json:"metadata"`
	Reports  []storage.ReportRow  `json:"reports"`
	Final    *storage.Fields      `json:"final,omitempty"`
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	var out io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "json":
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		rows, err := st.LoadReports(runID)
		if err != nil {
			return err
		}
		// Fields are optional: interrupted runs may not have them.
		fields, _ := st.LoadFields(runID)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(storedRun{Metadata: meta, Reports: rows, Final: fields})
	case "svg":
		svg, err := runSVG(st, runID)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, svg)
		return err
	}
	return fmt.Errorf("unknown format: %s (available: json, svg)", exportFormat)
}

func runSVG(st *storage.Store, runID string) (string, error) {
	if exportField == "score" {
		rows, err := st.LoadReports(runID)
		if err != nil {
			return "", err
		}
		score := make([]float64, len(rows))
		for i, r := range rows {
			score[i] = r.Score
		}
		return export.SeriesSVG(score, 800, 240, string(viz.GetTheme(exportTheme).Good)), nil
	}

	f, err := st.LoadFields(runID)
	if err != nil {
		return "", err
	}
	field, err := fieldGrid(f, exportField)
	if err != nil {
		return "", err
	}
	cellPx := math.Max(1, 800/float64(max(f.Width, f.Height)))
	return export.FieldSVG(field, viz.GetTheme(exportTheme), cellPx), nil
}

func fieldGrid(f *storage.Fields, name string) (grid.Reader[float64], error) {
	var data []float64
	switch name {
	case "elevation":
		data = f.Elevation
	case "depth":
		data = f.Depth
	case "temperature":
		data = f.Temperature
	case "pressure":
		data = f.Pressure
	case "rain":
		data = f.Rain
	case "wind":
		u, err := grid.FromSlice(f.Width, f.Height, f.WindU)
		if err != nil {
			return nil, err
		}
		v, err := grid.FromSlice(f.Width, f.Height, f.WindV)
		if err != nil {
			return nil, err
		}
		return viz.Speed(u, v), nil
	default:
		return nil, fmt.Errorf("unknown field: %s", name)
	}
	return grid.FromSlice(f.Width, f.Height, data)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDOMAIN\tGRID\tTERRAIN\tAUTHORITY\tTICKS")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%gkm\t%dx%d\t%s\t%s\t%d\n",
			name, p.Domain.SizeKm, p.Domain.Width, p.Domain.Height,
			p.Terrain.Kind, p.Erosion.Authority, p.Run.Ticks)
	}
	return w.Flush()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}
