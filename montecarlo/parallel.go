package montecarlo

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/bcdannyboy/cmdty/errs"
	"github.com/bcdannyboy/cmdty/random"
)

// progressEvery is how many paths a worker simulates between context checks
// and progress reports.
const progressEvery = 1024

// RunOption configures SimulateParallel.
type RunOption func(*runOptions)

type runOptions struct {
	progress func(delta int)
}

// WithProgress registers a callback receiving the number of paths completed
// since the previous call. It is invoked concurrently from every worker.
func WithProgress(fn func(delta int)) RunOption {
	return func(o *runOptions) {
		o.progress = fn
	}
}

// SimulateParallel splits numSims paths into contiguous blocks, one per
// worker. Each worker draws from its own generator, obtained from newNormals,
// and writes a disjoint set of simulation columns. The simulator's own
// generator is used only if newNormals returns it.
func (s *Simulator) SimulateParallel(ctx context.Context, numSims, workers int, newNormals func(worker int) random.NormalGenerator, opts ...RunOption) (*Results, error) {
	if numSims <= 0 {
		return nil, errs.Config("numSims", "must be positive, got %d", numSims)
	}
	if workers <= 0 {
		return nil, errs.Config("workers", "must be positive, got %d", workers)
	}
	if newNormals == nil {
		return nil, errs.Config("normals", "generator factory is nil")
	}
	if workers > numSims {
		workers = numSims
	}

	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	generators := make([]random.NormalGenerator, workers)
	dim := len(s.steps) * s.numFactors
	for w := range generators {
		g := newNormals(w)
		if g == nil || !g.MatchesDimensions(dim) {
			return nil, errs.Config("normals", "worker %d generator does not produce %d dimensional draws", w, dim)
		}
		generators[w] = g
	}

	res := newResults(s.periods, s.numFactors, numSims)
	block := (numSims + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := w*block, (w+1)*block
		if hi > numSims {
			hi = numSims
		}
		if lo >= hi {
			continue
		}

		normals := generators[w]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := s.newPather(res)
			done := 0
			for sim := lo; sim < hi; sim++ {
				if err := p.path(normals, sim); err != nil {
					return err
				}
				done++
				if done == progressEvery {
					if err := ctx.Err(); err != nil {
						return err
					}
					if o.progress != nil {
						o.progress(done)
					}
					done = 0
				}
			}
			if o.progress != nil && done > 0 {
				o.progress(done)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debugf("simulated %d paths on %d workers", numSims, workers)
	return res, nil
}
