package experiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/integrators"
	"github.com/san-kum/quadsim/internal/metrics"
	"github.com/san-kum/quadsim/internal/scenario"
)

// Registry resolves the names used by cases and the CLI. Lookups ignore
// case.
type Registry struct {
	scenarios   map[string]func(*config.Config) (scenario.Scenario, error)
	integrators map[string]func() dynamo.Integrator
	controllers map[string]func(*config.Config) (dynamo.Controller, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		scenarios:   make(map[string]func(*config.Config) (scenario.Scenario, error)),
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]func(*config.Config) (dynamo.Controller, error)),
	}

	for _, name := range scenario.Names() {
		r.scenarios[name] = func(cfg *config.Config) (scenario.Scenario, error) {
			return scenario.ByName(name, cfg)
		}
	}

	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	for _, kind := range control.Kinds() {
		r.controllers[string(kind)] = func(cfg *config.Config) (dynamo.Controller, error) {
			return control.New(kind, cfg)
		}
	}

	return r
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func (r *Registry) GetScenario(name string, cfg *config.Config) (scenario.Scenario, error) {
	fn, ok := r.scenarios[key(name)]
	if !ok {
		return scenario.Scenario{}, fmt.Errorf("%w: %q", scenario.ErrUnknownScenario, name)
	}
	return fn(cfg)
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[key(name)]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, cfg *config.Config) (dynamo.Controller, error) {
	fn, ok := r.controllers[key(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", control.ErrUnknownController, name)
	}
	return fn(cfg)
}

func (r *Registry) ListScenarios() []string   { return sortedKeys(r.scenarios) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns the metrics recorded for every case.
func (r *Registry) DefaultMetrics() []dynamo.Metric {
	return metrics.Default()
}
