package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const MetricsFile = "metrics.json"

// Row is one line of metrics.json. It marshals flat: exp, controller,
// run_id, then every metric by name. Non-finite metrics are written as
// null.
type Row struct {
	Exp        string
	Controller string
	RunID      string
	Metrics    map[string]float64
}

func (r Row) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Metrics)+3)
	for name, v := range r.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[name] = nil
			continue
		}
		out[name] = v
	}
	out["exp"] = r.Exp
	out["controller"] = r.Controller
	out["run_id"] = r.RunID
	return json.Marshal(out)
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Metrics = make(map[string]float64)
	for name, v := range raw {
		switch name {
		case "exp":
			r.Exp, _ = v.(string)
		case "controller":
			r.Controller, _ = v.(string)
		case "run_id":
			r.RunID, _ = v.(string)
		default:
			if v == nil {
				r.Metrics[name] = math.NaN()
				continue
			}
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("metric %s: not a number", name)
			}
			r.Metrics[name] = f
		}
	}
	return nil
}

// Suite runs cases concurrently. Each case builds its own plant,
// controller and noise generator.
type Suite struct {
	cfg      *config.Config
	registry *Registry
	store    *storage.Store
	logger   *zap.Logger
	limit    int
}

func NewSuite(cfg *config.Config, store *storage.Store, logger *zap.Logger) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		cfg:      cfg,
		registry: NewRegistry(),
		store:    store,
		logger:   logger,
		limit:    runtime.NumCPU(),
	}
}

func (s *Suite) SetLimit(n int) {
	if n > 0 {
		s.limit = n
	}
}

func (s *Suite) Registry() *Registry { return s.registry }

// Run executes cases and returns their rows in case order. The first
// failure cancels the remaining cases.
func (s *Suite) Run(ctx context.Context, cases []Case) ([]Row, error) {
	if err := s.store.Init(); err != nil {
		return nil, err
	}
	rows := make([]Row, len(cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, c := range cases {
		g.Go(func() error {
			row, err := s.runCase(ctx, c)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Suite) runCase(ctx context.Context, c Case) (Row, error) {
	log := s.logger.With(zap.String("case", c.Name), zap.String("controller", c.Controller))

	exp := New(s.cfg, c, s.registry)
	exp.SetLogger(log)
	if err := exp.Setup(); err != nil {
		return Row{}, err
	}

	log.Info("case started", zap.String("scenario", exp.Scenario().Name), zap.Float64("duration", exp.Scenario().Duration))
	res, err := exp.Run(ctx)
	if err != nil {
		return Row{}, err
	}

	cfg := exp.Config()
	id, err := s.store.Save(storage.RunMetadata{
		Case:             c.Name,
		Scenario:         exp.Scenario().Name,
		Controller:       c.Controller,
		Seed:             cfg.Disturbance.Seed,
		Dt:               cfg.Sim.Dt,
		Duration:         exp.Scenario().Duration,
		DisturbanceLevel: cfg.Disturbance.Level,
		Metrics:          res.Metrics,
	}, res)
	if err != nil {
		return Row{}, err
	}

	log.Info("case finished",
		zap.String("run_id", id),
		zap.Float64("rmse_pos", res.Metrics["rmse_pos"]),
		zap.Float64("max_pos_err", res.Metrics["max_pos_err"]),
	)
	return Row{Exp: c.Name, Controller: c.Controller, RunID: id, Metrics: res.Metrics}, nil
}

// WriteMetrics writes rows as an indented JSON array to dir/metrics.json.
func WriteMetrics(dir string, rows []Row) (string, error) {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, MetricsFile)
	return path, os.WriteFile(path, data, 0644)
}

func ReadMetrics(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MetricNames lists the metrics present in any row, sorted.
func MetricNames(rows []Row) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for name := range r.Metrics {
			seen[name] = true
		}
	}
	return sortedKeys(seen)
}
