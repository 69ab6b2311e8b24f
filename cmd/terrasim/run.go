package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/observability"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/sim"
	"github.com/san-kum/terrasim/internal/storage"
	"github.com/san-kum/terrasim/internal/terrain"
	"github.com/san-kum/terrasim/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, simCfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	elev, err := terrain.Build(cfg.TerrainSpec())
	if err != nil {
		return err
	}

	opts := []sim.Option{sim.WithLogger(log), sim.WithMetrics(diagnostics.DefaultMetrics()...)}
	if converge {
		opts = append(opts, sim.WithConvergence(diagnostics.DefaultConvergenceConfig()))
	}
	var obs *observability.Observer
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		obs = observability.NewObserver(observability.NewMetrics(reg))
		opts = append(opts, sim.WithObserver(obs))

		srv := observability.NewServer(metricsAddr, reg, log)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	s, err := sim.New(simCfg, elev, opts...)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	if obs != nil {
		obs.Started(simCfg.DomainKm)
	}
	fmt.Printf("running %s terrain at %g km (%dx%d) for %d ticks...\n",
		cfg.Terrain.Kind, simCfg.DomainKm, simCfg.Width, simCfg.Height, cfg.Run.Ticks)
	result, err := s.Run(ctx, cfg.Run.Ticks)
	if obs != nil {
		obs.Stopped()
	}
	switch {
	case errors.Is(err, scale.ErrConservation):
		log.Warn("run finished with conservation violations", zap.Int("count", len(result.Errors)), zap.Error(err))
	case errors.Is(err, context.Canceled):
		log.Warn("run interrupted", zap.Int("steps", result.StepsTaken))
	case err != nil:
		return err
	}

	printSummary(s, result)

	info := storage.RunInfo{Label: runLabel(cfg.Terrain.Kind), Terrain: cfg.Terrain.Kind, Config: simCfg}
	if exportPath != "" && result.StepsTaken > 0 {
		if err := writeExport(exportPath, info, result); err != nil {
			return err
		}
	}

	if noSave || result.StepsTaken == 0 {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(info, result)
	if err != nil {
		return err
	}
	if err := st.SaveFields(runID, result.Final); err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runLabel(terrainKind string) string {
	switch {
	case label != "":
		return label
	case preset != "":
		return preset
	}
	return terrainKind
}

func writeExport(path string, info storage.RunInfo, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(f, info, result, true); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(s *sim.Simulator, result *sim.Result) {
	history := s.Validator().History()
	d := result.Drainage

	fmt.Printf("completed %d ticks in %v (%.1f h simulated)\n", result.StepsTaken, result.Duration, result.SimTime/3600)
	fmt.Printf("mean score: %.4f\n", history.Mean(diagnostics.ScoreOf))
	fmt.Printf("violations: %d\n", len(result.Errors))
	if result.ConvergedAt > 0 {
		fmt.Printf("converged at tick %d\n", result.ConvergedAt)
	}
	fmt.Println("\ndrainage (m³):")
	fmt.Printf("  rain:        %.4g\n", d.Rain)
	fmt.Printf("  evaporation: %.4g\n", d.Evaporation)
	fmt.Printf("  outflow:     %.4g\n", d.Outflow)
	fmt.Printf("  storage:     %.4g\n", d.Storage)
	fmt.Printf("  balance err: %.3g\n", d.BalanceError)

	if len(result.Metrics) == 0 {
		return
	}
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}
}

func watchSimulation(cmd *cobra.Command, args []string) error {
	cfg, simCfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	elev, err := terrain.Build(cfg.TerrainSpec())
	if err != nil {
		return err
	}

	// The monitor owns the terminal, so engine logs are dropped.
	s, err := sim.New(simCfg, elev, sim.WithLogger(zap.NewNop()))
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewMonitor(s, cfg.Run.Ticks), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
