package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/sim"
)

// ExportData is the single-document form of a run, for piping into other
// tools.
type ExportData struct {
	Label     string                      `json:"label"`
	DomainKm  float64                     `json:"domain_km"`
	Width     int                         `json:"width"`
	Height    int                         `json:"height"`
	Authority string                      `json:"authority"`
	Steps     int                         `json:"steps"`
	SimTime   float64                     `json:"sim_time_s"`
	Reports   []diagnostics.QualityReport `json:"reports"`
	Drainage  Drainage                    `json:"drainage"`
	Metrics   map[string]float64          `json:"metrics"`
	Final     *Fields                     `json:"final,omitempty"`
}

// ExportJSON writes the run to w. withFields adds the final frame grids.
func ExportJSON(w io.Writer, info RunInfo, result *sim.Result, withFields bool) error {
	data := ExportData{
		Label:     info.Label,
		DomainKm:  info.Config.DomainKm,
		Width:     info.Config.Width,
		Height:    info.Config.Height,
		Authority: info.Config.Authority.String(),
		Steps:     result.StepsTaken,
		SimTime:   result.SimTime,
		Reports:   result.Reports,
		Drainage:  drainageOf(result.Drainage),
		Metrics:   result.Metrics,
	}
	if withFields && result.StepsTaken > 0 {
		f := FieldsOf(result.Final)
		data.Final = &f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
