package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	theme      string
	// run overrides
	controller string
	duration   float64
	dt         float64
	seed       int64
	level      int
	savePlots  bool
	// suite
	suiteDir string
	noPlots  bool
	jobs     int
	// plot
	figDir string
	// ensemble
	numRuns   int
	seedStart int64
	// charts
	chartWidth int
	// live view
	live  bool
	speed float64

	logger = zap.NewNop()
)

// main registers the quadsim commands and exits with status 1 if a
// command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "quadsim",
		Short:         "quadrotor trajectory tracking simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			logger = l
			viz.SetTheme(theme)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".quadsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration ("+strings.Join(config.ListPresets(), ", ")+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "cyberpunk", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "fly one scenario and store the run",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addOverrideFlags(runCmd)
	runCmd.Flags().StringVar(&controller, "controller", "lqr", "controller (lqr, pid)")
	runCmd.Flags().Float64Var(&duration, "time", 0, "duration (0 uses the scenario horizon)")
	runCmd.Flags().BoolVar(&savePlots, "plot", false, "write PNG figures next to the run")
	addLiveFlags(runCmd)

	suiteCmd := &cobra.Command{
		Use:   "suite",
		Short: "run the standard four-case comparison",
		Args:  cobra.NoArgs,
		RunE:  runSuite,
	}
	addOverrideFlags(suiteCmd)
	suiteCmd.Flags().StringVar(&suiteDir, "out", "outputs", "output root; each suite gets a timestamped directory")
	suiteCmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip PNG figures")
	suiteCmd.Flags().IntVar(&jobs, "jobs", 0, "concurrent cases (0 uses all CPUs)")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [scenario]",
		Short: "repeat a scenario over consecutive disturbance seeds",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnsemble,
	}
	addOverrideFlags(ensembleCmd)
	ensembleCmd.Flags().StringVar(&controller, "controller", "lqr", "controller (lqr, pid)")
	ensembleCmd.Flags().Float64Var(&duration, "time", 0, "duration (0 uses the scenario horizon)")
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of seeds")
	ensembleCmd.Flags().Int64Var(&seedStart, "seed-start", 0, "first seed")
	ensembleCmd.Flags().IntVar(&jobs, "jobs", 0, "concurrent runs (0 uses all CPUs)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "write PNG figures for a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&figDir, "out", "", "figure directory (default <data>/<run_id>/figs)")

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "draw a run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().IntVar(&chartWidth, "width", 80, "chart width")
	addLiveFlags(renderCmd)

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id] [path]",
		Short: "export run data to CSV",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportCSV,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the resolved configuration as yaml",
		Args:  cobra.NoArgs,
		RunE:  dumpConfig,
	}

	rootCmd.AddCommand(runCmd, suiteCmd, ensembleCmd, listCmd, plotCmd, renderCmd, exportCmd, exportCSVCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep override")
	cmd.Flags().Int64Var(&seed, "seed", 0, "disturbance seed override")
	cmd.Flags().IntVar(&level, "level", 0, "disturbance level override (0, 1, 2)")
}

func addLiveFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&live, "live", false, "play the run in an interactive terminal view")
	cmd.Flags().Float64Var(&speed, "speed", 1, "live playback speed relative to real time")
}

func newLogger(lvl string) (*zap.Logger, error) {
	atom, err := zap.ParseAtomicLevel(lvl)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atom
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// loadConfig resolves defaults, then the preset, then the config file
// (which replaces the preset), then command-line overrides.
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
	if flags.Lookup("dt") != nil && flags.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if flags.Lookup("seed") != nil && flags.Changed("seed") {
		cfg.Disturbance.Seed = seed
	}
	if flags.Lookup("level") != nil && flags.Changed("level") {
		cfg.Disturbance.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
