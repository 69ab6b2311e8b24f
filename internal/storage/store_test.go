package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/san-kum/terrasim/internal/compute"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/sim"
)

func runSim(t *testing.T, ticks int) (RunInfo, *sim.Result) {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.DomainKm = 80
	cfg.Width = 10
	cfg.Height = 8
	cfg.Seed = 42

	elev := grid.New[float64](10, 8)
	for i := 0; i < elev.Len(); i++ {
		x, _ := elev.XY(i)
		elev.SetIndex(i, float64(10-x)*40)
	}

	s, err := sim.New(cfg, elev, sim.WithBackend(compute.NewSerialBackend()))
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	result, err := s.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return RunInfo{Label: "slope", Terrain: "slope", Config: cfg}, result
}

func TestStoreSaveLoad(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	st := New(t.TempDir(), WithClock(clock))
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	info, result := runSim(t, 5)
	runID, err := st.Save(info, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "slope_20240426T151000_") {
		t.Errorf("unexpected run id %s", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Steps != 5 {
		t.Errorf("expected 5 steps, got %d", meta.Steps)
	}
	if !meta.Timestamp.Equal(clock.Now()) {
		t.Errorf("expected timestamp from clock, got %v", meta.Timestamp)
	}
	if meta.Authority != "alternate" {
		t.Errorf("expected alternate authority, got %s", meta.Authority)
	}
	if meta.Drainage.Rain != result.Drainage.Rain {
		t.Errorf("drainage rain mismatch: %g vs %g", meta.Drainage.Rain, result.Drainage.Rain)
	}

	rows, err := st.LoadReports(runID)
	if err != nil {
		t.Fatalf("load reports failed: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 report rows, got %d", len(rows))
	}
	for i, row := range rows {
		want := result.Reports[i]
		if row.Tick != want.Tick || row.Score != want.Score || row.MassError != want.MassConservationError {
			t.Errorf("row %d does not match report: %+v", i, row)
		}
	}
}

func TestStoreList(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	dir := t.TempDir()
	st := New(dir, WithClock(clock))
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	info, result := runSim(t, 2)
	first, err := st.Save(info, result)
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)
	info.Label = "later"
	second, err := st.Save(info, result)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	got := []string{}
	for _, r := range runs {
		got = append(got, r.ID)
	}
	if diff := cmp.Diff([]string{first, second}, got); diff != "" {
		t.Errorf("run order mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadReports("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := st.SaveFields("nope", sim.Frame{}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	info, result := runSim(t, 3)
	runID, err := st.Save(info, result)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SaveFields(runID, result.Final); err != nil {
		t.Fatalf("save fields: %v", err)
	}

	f, err := st.LoadFields(runID)
	if err != nil {
		t.Fatalf("load fields: %v", err)
	}
	if f.Width != 10 || f.Height != 8 || f.Tick != 3 {
		t.Errorf("unexpected header %dx%d tick %d", f.Width, f.Height, f.Tick)
	}
	if diff := cmp.Diff(result.Final.Hydro.Depth.Values(), f.Depth); diff != "" {
		t.Errorf("depth mismatch (-want +got):\n%s", diff)
	}
	if len(f.Humidity) != 80 || len(f.Vorticity) != 80 {
		t.Errorf("expected humidity and vorticity for 80 cells, got %d and %d", len(f.Humidity), len(f.Vorticity))
	}
	if len(f.Systems) != len(result.Final.Systems) {
		t.Errorf("expected %d pressure systems, got %d", len(result.Final.Systems), len(f.Systems))
	}
}

func TestExportJSON(t *testing.T) {
	info, result := runSim(t, 4)

	var buf bytes.Buffer
	if err := ExportJSON(&buf, info, result, true); err != nil {
		t.Fatalf("export: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Steps != 4 || len(data.Reports) != 4 {
		t.Errorf("expected 4 steps and reports, got %d and %d", data.Steps, len(data.Reports))
	}
	if data.Final == nil || len(data.Final.Elevation) != 80 {
		t.Error("expected final fields with 80 cells")
	}

	buf.Reset()
	if err := ExportJSON(&buf, info, result, false); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), `"final"`) {
		t.Error("fields should be omitted")
	}
}
