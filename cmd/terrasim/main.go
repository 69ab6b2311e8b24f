package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/terrasim/internal/config"
	"github.com/san-kum/terrasim/internal/logging"
	"github.com/san-kum/terrasim/internal/sim"
	"github.com/san-kum/terrasim/internal/terrain"
)

var (
	dataDir  string
	logLevel string

	configFile  string
	preset      string
	domainKm    float64
	width       int
	height      int
	ticks       int
	seed        uint64
	terrainKind string
	authority   string
	label       string
	metricsAddr string
	noSave      bool
	exportPath  string
	converge    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "terrasim",
		Short:         "scale-aware coupled atmosphere, water and terrain simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".terrasim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store it",
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().StringVar(&label, "label", "", "run label (defaults to the preset or terrain name)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&exportPath, "export", "", "also write the run with its final fields as json to this file")
	runCmd.Flags().BoolVar(&converge, "until-converged", false, "stop before --ticks once terrain and water settle")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "run a simulation in the terminal monitor",
		RunE:  watchSimulation,
	}
	addSimFlags(watchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the quality history of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json or svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format (json, svg)")
	exportCmd.Flags().StringVar(&exportField, "field", "elevation", "svg field (elevation, depth, temperature, pressure, wind, rain, score)")
	exportCmd.Flags().StringVar(&exportTheme, "theme", "terrain", "svg colour theme")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (stdout when empty)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file with the defaults or a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  writeConfig,
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "preset to write")

	sweepCmd := &cobra.Command{
		Use:   "sweep [size_km...]",
		Short: "run the same terrain at several domain sizes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  sweepScales,
	}
	addSimFlags(sweepCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search coupling strengths for the best quality score",
		RunE:  tuneCouplings,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().StringSliceVar(&tuneParams, "param", []string{"orographic", "maritime"}, "parameters to search")
	tuneCmd.Flags().Float64SliceVar(&tuneValues, "values", []float64{0.5, 1, 2}, "strengths tried for every parameter")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted multi-scale scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run one configuration under several noise seeds",
		RunE:  runEnsemble,
	}
	addSimFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&trials, "trials", 8, "number of seeds")
	ensembleCmd.Flags().IntVar(&parallel, "parallel", 4, "concurrent trials")
	ensembleCmd.Flags().Float64Var(&minScore, "min-score", 0.8, "mean score a stable trial needs")

	rootCmd.AddCommand(runCmd, watchCmd, listCmd, plotCmd, exportCmd, presetsCmd, initCmd,
		sweepCmd, tuneCmd, scenarioCmd, ensembleCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&domainKm, "size", config.DefaultDomainKm, "domain size in km")
	cmd.Flags().IntVar(&width, "width", config.DefaultWidth, "grid width in cells")
	cmd.Flags().IntVar(&height, "height", config.DefaultHeight, "grid height in cells")
	cmd.Flags().IntVar(&ticks, "ticks", config.DefaultTicks, "ticks to run")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "pressure noise and terrain seed")
	cmd.Flags().StringVar(&terrainKind, "terrain", "", fmt.Sprintf("terrain kind %v", terrain.Kinds()))
	cmd.Flags().StringVar(&authority, "authority", "", "erosion authority (hydraulic, aeolian, alternate)")
}

// loadConfig layers defaults, a preset, a config file and explicit flags,
// later layers winning.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Domain.SizeKm = domainKm
	}
	if flags.Changed("width") {
		cfg.Domain.Width = width
	}
	if flags.Changed("height") {
		cfg.Domain.Height = height
	}
	if flags.Changed("ticks") {
		cfg.Run.Ticks = ticks
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("terrain") {
		cfg.Terrain.Kind = terrainKind
	}
	if flags.Changed("authority") {
		cfg.Erosion.Authority = authority
	}
	return cfg, cfg.Validate()
}

func newLogger() (*zap.Logger, error) { return logging.New(logLevel) }

// setup builds the logger and resolves the run configuration.
func setup(cmd *cobra.Command) (*config.Config, sim.Config, *zap.Logger, error) {
	log, err := newLogger()
	if err != nil {
		return nil, sim.Config{}, nil, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, sim.Config{}, nil, err
	}
	simCfg, err := cfg.ToSim()
	if err != nil {
		return nil, sim.Config{}, nil, err
	}
	return cfg, simCfg, log, nil
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
