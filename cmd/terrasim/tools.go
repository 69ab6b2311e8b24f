package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/terrasim/internal/automation"
	"github.com/san-kum/terrasim/internal/optim"
	"github.com/san-kum/terrasim/internal/sim"
	"github.com/san-kum/terrasim/internal/terrain"
)

var (
	tuneParams []string
	tuneValues []float64

	trials   int
	parallel int
	minScore float64
)

func sweepScales(cmd *cobra.Command, args []string) error {
	cfg, simCfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	sizes := make([]float64, len(args))
	for i, a := range args {
		sizes[i], err = strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("size %q: %w", a, err)
		}
	}
	elev, err := terrain.Build(cfg.TerrainSpec())
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	results, err := sim.Sweep(ctx, simCfg, elev, sizes, cfg.Run.Ticks, sim.WithLogger(log))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tM/CELL\tMEAN SCORE\tPEAK MASS ERR\tMAX WIND\tVIOLATIONS")
	for _, r := range results {
		peak := 0.0
		for _, rep := range r.Result.Reports {
			peak = max(peak, rep.MassConservationError)
		}
		fmt.Fprintf(w, "%gkm\t%.0f\t%.4f\t%.3g\t%.1f\t%d\n",
			r.DomainKm,
			r.DomainKm*1000/float64(max(simCfg.Width, simCfg.Height)),
			r.MeanScore,
			peak,
			r.Result.Final.Atmos.MaxWindSpeed(),
			len(r.Result.Errors))
	}
	return w.Flush()
}

func tuneCouplings(cmd *cobra.Command, args []string) error {
	cfg, simCfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ranges := make([][]float64, len(tuneParams))
	for i := range ranges {
		ranges[i] = tuneValues
	}
	gs, err := optim.NewGridSearch(tuneParams, ranges)
	if err != nil {
		return err
	}
	elev, err := terrain.Build(cfg.TerrainSpec())
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	fmt.Printf("searching %d points over %v...\n", gs.Points(), tuneParams)
	quiet := sim.WithLogger(zap.NewNop())
	best, value, trialsRun, err := gs.WithLogger(log).Search(ctx, optim.TuningObjective(simCfg, elev, cfg.Run.Ticks, quiet))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPARAMS\tSCORE")
	for i, t := range optim.Ranked(trialsRun) {
		if i == 10 {
			break
		}
		fmt.Fprintf(w, "%d\t%v\t%.4f\n", i+1, t.Params, t.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest: %v (score %.4f)\n", best, value)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("%s\n", scenario.Description)
	}
	results, err := automation.RunScenario(ctx, scenario, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Println()
	fmt.Fprintln(w, "STEP\tDOMAIN\tTICKS\tMEAN SCORE\tVIOLATIONS")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%gkm\t%d\t%.4f\t%d\n",
			r.Label, r.DomainKm, r.Result.StepsTaken, r.MeanScore, len(r.Result.Errors))
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, simCfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	elev, err := terrain.Build(cfg.TerrainSpec())
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	results, err := automation.RunEnsemble(ctx, automation.EnsembleConfig{
		Base:      simCfg,
		Elevation: elev,
		Trials:    trials,
		Ticks:     cfg.Run.Ticks,
		FirstSeed: cfg.Run.Seed,
		MinScore:  minScore,
	}, parallel, log, sim.WithLogger(zap.NewNop()))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tMEAN SCORE\tVIOLATIONS\tFINITE\tSTABLE")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%.4f\t%d\t%t\t%t\n", r.Seed, r.MeanScore, r.Violations, r.Finite, r.Stable)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	stable, unstable, spread := automation.EnsembleStats(results)
	fmt.Printf("\nstable: %d/%d (unstable %d), score spread %.4f\n", stable, len(results), unstable, spread)
	return nil
}
