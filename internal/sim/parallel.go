package sim

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/quadsim/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Factory builds a fresh simulator. Ensemble members never share a plant,
// controller or noise generator.
type Factory func() (*Simulator, error)

// Ensemble repeats one run over consecutive disturbance seeds.
type Ensemble struct {
	factory   Factory
	numRuns   int
	seedStart int64
	limit     int
}

func NewEnsemble(factory Factory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart, limit: runtime.NumCPU()}
}

// SetLimit caps the number of concurrent runs.
func (e *Ensemble) SetLimit(n int) {
	if n > 0 {
		e.limit = n
	}
}

// Run returns results in seed order. The first failure cancels the rest.
func (e *Ensemble) Run(ctx context.Context, x0 dynamo.State, ref dynamo.ReferenceFunc, cfg dynamo.Config) ([]*dynamo.Result, error) {
	if e.numRuns < 1 {
		return nil, fmt.Errorf("%w: ensemble needs at least one run, got %d", dynamo.ErrInvalidConfig, e.numRuns)
	}
	results := make([]*dynamo.Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			s, err := e.factory()
			if err != nil {
				return err
			}
			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(i)

			res, err := s.Run(ctx, x0, ref, cfgCopy)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
