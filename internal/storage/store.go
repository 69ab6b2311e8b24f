// Package storage persists simulation runs as directories of plain files:
// metadata.json, reports.csv and an optional fields.json of the final
// frame.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/san-kum/terrasim/internal/hydro"
	"github.com/san-kum/terrasim/internal/sim"
)

var ErrRunNotFound = errors.New("terrasim: run not found")

const (
	metadataFile = "metadata.json"
	reportsFile  = "reports.csv"
	fieldsFile   = "fields.json"
)

type Store struct {
	baseDir string
	clock   clockwork.Clock
}

type Option func(*Store)

func WithClock(c clockwork.Clock) Option { return func(s *Store) { s.clock = c } }

func New(baseDir string, opts ...Option) *Store {
	s := &Store{baseDir: baseDir, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo names a run and the configuration it ran with.
type RunInfo struct {
	Label   string
	Terrain string
	Config  sim.Config
}

type Drainage struct {
	Initial        float64 `json:"initial_m3"`
	Rain           float64 `json:"rain_m3"`
	Evaporation    float64 `json:"evaporation_m3"`
	Outflow        float64 `json:"outflow_m3"`
	Corrections    float64 `json:"corrections_m3"`
	Storage        float64 `json:"storage_m3"`
	BalanceError   float64 `json:"balance_error"`
	EdgeSaturation float64 `json:"edge_saturation"`
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Label      string             `json:"label"`
	Terrain    string             `json:"terrain"`
	Timestamp  time.Time          `json:"timestamp"`
	DomainKm   float64            `json:"domain_km"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Seed       uint64             `json:"seed"`
	Authority  string             `json:"authority"`
	Steps      int                `json:"steps"`
	SimTime    float64            `json:"sim_time_s"`
	WallTime   time.Duration      `json:"wall_time_ns"`
	Violations int                `json:"violations"`
	Drainage   Drainage           `json:"drainage"`
	Metrics    map[string]float64 `json:"metrics"`
}

func drainageOf(d hydro.DrainageMetrics) Drainage {
	return Drainage{
		Initial:        d.Initial,
		Rain:           d.Rain,
		Evaporation:    d.Evaporation,
		Outflow:        d.Outflow,
		Corrections:    d.Corrections,
		Storage:        d.Storage,
		BalanceError:   d.BalanceError,
		EdgeSaturation: d.EdgeSaturation,
	}
}

func newMetadata(id string, ts time.Time, info RunInfo, result *sim.Result) RunMetadata {
	return RunMetadata{
		ID:         id,
		Label:      info.Label,
		Terrain:    info.Terrain,
		Timestamp:  ts,
		DomainKm:   info.Config.DomainKm,
		Width:      info.Config.Width,
		Height:     info.Config.Height,
		Seed:       info.Config.Seed,
		Authority:  info.Config.Authority.String(),
		Steps:      result.StepsTaken,
		SimTime:    result.SimTime,
		WallTime:   result.Duration,
		Violations: len(result.Errors),
		Drainage:   drainageOf(result.Drainage),
		Metrics:    result.Metrics,
	}
}

// Save writes a new run directory and returns its ID.
func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	now := s.clock.Now().UTC()
	label := info.Label
	if label == "" {
		label = "run"
	}
	runID := fmt.Sprintf("%s_%s_%s", label, now.Format("20060102T150405"), uuid.New().String()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := newMetadata(runID, now, info, result)
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeReports(filepath.Join(runDir, reportsFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var reportHeader = []string{
	"tick", "mass_error", "residual_error", "cfl_violations", "max_cfl",
	"realistic_fraction", "score", "escalated", "warnings",
}

func writeReports(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		return err
	}
	for _, r := range result.Reports {
		warnings := make([]string, len(r.Warnings))
		for i, wn := range r.Warnings {
			warnings[i] = wn.Kind.String()
		}
		row := []string{
			strconv.FormatInt(r.Tick, 10),
			strconv.FormatFloat(r.MassConservationError, 'g', -1, 64),
			strconv.FormatFloat(r.ResidualMassError, 'g', -1, 64),
			strconv.Itoa(r.CFLViolations),
			strconv.FormatFloat(r.MaxCFL, 'g', -1, 64),
			strconv.FormatFloat(r.RealisticFraction, 'g', -1, 64),
			strconv.FormatFloat(r.Score, 'g', -1, 64),
			strconv.FormatBool(r.Escalated),
			strings.Join(warnings, ";"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

// ReportRow is one line of reports.csv.
type ReportRow struct {
	Tick              int64
	MassError         float64
	ResidualError     float64
	CFLViolations     int
	MaxCFL            float64
	RealisticFraction float64
	Score             float64
	Escalated         bool
	Warnings          []string
}

func (s *Store) LoadReports(runID string) ([]ReportRow, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, reportsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(reportHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []ReportRow{}, nil
	}

	rows := make([]ReportRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseReport(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", reportsFile, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseReport(rec []string) (ReportRow, error) {
	var (
		row  ReportRow
		err  error
		errs []error
	)
	float := func(s string) float64 {
		v, e := strconv.ParseFloat(s, 64)
		errs = append(errs, e)
		return v
	}

	row.Tick, err = strconv.ParseInt(rec[0], 10, 64)
	errs = append(errs, err)
	row.MassError = float(rec[1])
	row.ResidualError = float(rec[2])
	row.CFLViolations, err = strconv.Atoi(rec[3])
	errs = append(errs, err)
	row.MaxCFL = float(rec[4])
	row.RealisticFraction = float(rec[5])
	row.Score = float(rec[6])
	row.Escalated, err = strconv.ParseBool(rec[7])
	errs = append(errs, err)
	if rec[8] != "" {
		row.Warnings = strings.Split(rec[8], ";")
	}
	return row, errors.Join(errs...)
}
