package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/experiment"
	"github.com/san-kum/quadsim/internal/metrics"
	"github.com/san-kum/quadsim/internal/plotting"
	"github.com/san-kum/quadsim/internal/scenario"
	"github.com/san-kum/quadsim/internal/sim"
	"github.com/san-kum/quadsim/internal/storage"
	"github.com/san-kum/quadsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

const timestampFmt = "20060102_150405"

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kind, err := control.ParseKind(controller)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.Case{Scenario: args[0], Controller: string(kind), Duration: duration}, nil)
	exp.SetLogger(logger)
	if err := exp.Setup(); err != nil {
		return err
	}
	sc := exp.Scenario()

	ctx, cancel := interruptible()
	defer cancel()

	var result *dynamo.Result
	start := time.Now()
	if live {
		result, err = flyLive(ctx, exp, fmt.Sprintf("%s / %s", sc.Name, kind))
	} else {
		fmt.Printf("flying %s with %s for %gs...\n", sc.Name, kind, sc.Duration)
		result, err = exp.Run(ctx)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunMetadata{
		Scenario:         sc.Name,
		Controller:       string(kind),
		Seed:             cfg.Disturbance.Seed,
		Dt:               cfg.Sim.Dt,
		Duration:         sc.Duration,
		DisturbanceLevel: cfg.Disturbance.Level,
		Metrics:          result.Metrics,
	}, result)
	if err != nil {
		return err
	}
	logger.Info("run stored", zap.String("run_id", runID), zap.Duration("elapsed", elapsed))

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", elapsed)
	fmt.Println(viz.RunSummary(meta, viz.PositionErrors(result), 72))

	if savePlots {
		paths, err := plotting.ForRun(result, filepath.Join(st.Dir(), runID, "figs"), runID, sc.Name)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println("wrote", p)
		}
	}
	return nil
}

// flyLive runs exp while a live view plays its samples at --speed times
// real time. Quitting the view early cancels the run.
func flyLive(ctx context.Context, exp *experiment.Experiment, title string) (*dynamo.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := viz.NewFeed(ctx)
	exp.GetSimulator().AddObserver(feed)

	type outcome struct {
		res *dynamo.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer feed.Close()
		res, err := exp.Run(ctx)
		done <- outcome{res, err}
	}()

	_, viewErr := tea.NewProgram(viz.NewLiveModel(title, feed.Frames(), speed), tea.WithAltScreen()).Run()
	cancel()
	out := <-done
	if viewErr != nil {
		return nil, viewErr
	}
	return out.res, out.err
}

func runSuite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir := filepath.Join(suiteDir, time.Now().Format(timestampFmt))
	st := storage.New(dir)
	suite := experiment.NewSuite(cfg, st, logger)
	suite.SetLimit(jobs)

	ctx, cancel := interruptible()
	defer cancel()

	logger.Info("suite started", zap.String("out", dir))
	rows, err := suite.Run(ctx, experiment.StandardSuite())
	if err != nil {
		return err
	}

	metricsPath, err := experiment.WriteMetrics(dir, rows)
	if err != nil {
		return err
	}
	logger.Info("metrics written", zap.String("path", metricsPath))

	if !noPlots {
		figs := filepath.Join(dir, "figs")
		for _, row := range rows {
			meta, err := st.Load(row.RunID)
			if err != nil {
				return err
			}
			res, err := st.LoadTrajectory(row.RunID)
			if err != nil {
				return err
			}
			if _, err := plotting.ForRun(res, figs, row.Exp+"__"+row.Controller, meta.Scenario); err != nil {
				return err
			}
		}
		logger.Info("figures written", zap.String("dir", figs))
	}

	fmt.Println(viz.MetricsTable(rows, []string{"rmse_pos", "max_pos_err", "final_pos_err", "energy_u", "peak_thrust"}))
	fmt.Printf("[OK] Done. Outputs: %s\n", dir)
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kind, err := control.ParseKind(controller)
	if err != nil {
		return err
	}
	sc, err := scenario.ByName(args[0], cfg)
	if err != nil {
		return err
	}
	if duration > 0 {
		sc.Duration = duration
	}
	x0, err := sim.InitialState(cfg)
	if err != nil {
		return err
	}

	factory := func() (*sim.Simulator, error) {
		s, err := sim.Build(cfg, kind)
		if err != nil {
			return nil, err
		}
		for _, m := range metrics.Default() {
			s.AddMetric(m)
		}
		return s, nil
	}
	ens := sim.NewEnsemble(factory, numRuns, seedStart)
	ens.SetLimit(jobs)

	ctx, cancel := interruptible()
	defer cancel()

	start := time.Now()
	results, err := ens.Run(ctx, x0, sc.Ref, sim.RunConfig(cfg, sc.Duration))
	if err != nil {
		return err
	}
	logger.Info("ensemble finished", zap.Int("runs", numRuns), zap.Duration("elapsed", time.Since(start)))

	rows := make([]experiment.Row, len(results))
	rmse := make([]float64, len(results))
	for i, res := range results {
		rows[i] = experiment.Row{Exp: fmt.Sprintf("seed %d", seedStart+int64(i)), Controller: string(kind), Metrics: res.Metrics}
		rmse[i] = res.Metrics["rmse_pos"]
	}
	fmt.Println(viz.MetricsTable(rows, []string{"rmse_pos", "max_pos_err", "energy_u", "stability"}))

	mean, std := stat.MeanStdDev(rmse, nil)
	fmt.Printf("%s over %d seeds: rmse_pos mean %.4g, std %.4g\n", sc.Name, len(results), mean, std)
	return nil
}

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
	fmt.Fprintln(w, "ID\tSCENARIO\tCTRL\tTIME\tDURATION\tDT\tLEVEL\tSEED\tRMSE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\t%.4g\n",
			run.ID,
			run.Scenario,
			run.Controller,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.DisturbanceLevel,
			run.Seed,
			run.Metrics["rmse_pos"],
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
	res, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	dir := figDir
	if dir == "" {
		dir = filepath.Join(st.Dir(), runID, "figs")
	}
	paths, err := plotting.ForRun(res, dir, runID, meta.Scenario)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println("wrote", p)
	}
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	res, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if res.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	if live {
		ctx, cancel := interruptible()
		defer cancel()
		feed := viz.Replay(ctx, res)
		_, err := tea.NewProgram(viz.NewLiveModel(runID, feed.Frames(), speed), tea.WithAltScreen()).Run()
		return err
	}

	fmt.Println(viz.RunSummary(meta, viz.PositionErrors(res), chartWidth))
	fmt.Println()
	fmt.Print(viz.RunCharts(res, chartWidth))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]
	path := runID + ".csv"
	if len(args) > 1 {
		path = args[1]
	}

	st := storage.New(dataDir)
	if err := st.ExportCSV(runID, path); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tLEVEL\tSEED")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%d\n", name, cfg.Disturbance.Level, cfg.Disturbance.Seed)
	}
	return w.Flush()
}

func dumpConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
