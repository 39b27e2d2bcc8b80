// Package selfplay runs parallel self-play workers, each with its own
// traversal engine, and hands trained models between them using a
// two-barrier protocol: after every iteration all workers wait, one
// designated worker trains and publishes the new models, and after a
// second wait every worker reloads them.
package selfplay

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/deepcfr"
)

// trainer is the id of the worker that trains and publishes models.
const trainer = 0

// Params configure an Orchestrator.
type Params struct {
	NumWorkers        int
	Iterations        int
	GamesPerIteration int
	// TrainEpochs is passed to the advantage models after every iteration.
	TrainEpochs int
	// StrategyEpochs is passed to the strategy models after the last iteration.
	StrategyEpochs int
	// BarrierTimeout bounds each barrier wait. Zero waits indefinitely.
	BarrierTimeout time.Duration
	// Seed is the base seed for all games. If FixedSeed is set, every
	// game is started from Seed; otherwise each game gets a distinct seed.
	Seed      int64
	FixedSeed bool
}

// Worker is one self-play participant. Advantage models are trained after
// every iteration; strategy models only once, after the last iteration.
// Both are empty for workers with a purely tabular policy.
type Worker struct {
	Engine    *cfr.Engine
	Advantage []*deepcfr.Model
	Strategy  []*deepcfr.Model
}

func (w *Worker) models() []*deepcfr.Model {
	return append(append([]*deepcfr.Model(nil), w.Advantage...), w.Strategy...)
}

// WorkerFactory creates the worker with the given id.
type WorkerFactory func(id int) (*Worker, error)

// IterationResult summarizes one iteration over all workers.
type IterationResult struct {
	Iter   int
	Games  int
	MeanEV float64
	Stats  cfr.TraversalStats
}

// Orchestrator runs parallel self-play.
type Orchestrator struct {
	params    Params
	newWorker WorkerFactory
	board     *Board
	onIter    func(IterationResult)
}

func New(params Params, newWorker WorkerFactory) *Orchestrator {
	if params.NumWorkers < 1 {
		params.NumWorkers = 1
	}

	if params.GamesPerIteration < 1 {
		params.GamesPerIteration = 1
	}

	return &Orchestrator{
		params:    params,
		newWorker: newWorker,
		board:     NewBoard(),
	}
}

// OnIteration registers a callback invoked by the training worker at the
// end of every iteration.
func (o *Orchestrator) OnIteration(fn func(IterationResult)) {
	o.onIter = fn
}

// Board returns the shared model board.
func (o *Orchestrator) Board() *Board {
	return o.board
}

// seed returns the seed of the given game.
func (o *Orchestrator) seed(iter, worker, game int) int64 {
	if o.params.FixedSeed {
		return o.params.Seed
	}

	n := (iter*o.params.NumWorkers+worker)*o.params.GamesPerIteration + game
	return o.params.Seed + int64(n)
}

// traversalIter returns the engine iteration of the given game, so that the
// on player alternates between consecutive games of each worker.
func (o *Orchestrator) traversalIter(iter, game int) int {
	return iter*o.params.GamesPerIteration + game
}

type workerReport struct {
	evSum float64
	games int
	stats cfr.TraversalStats
}

// Run creates the workers and runs all iterations. The first error of any
// worker, including a barrier timeout, cancels the whole run.
func (o *Orchestrator) Run(ctx context.Context) error {
	workers := make([]*Worker, o.params.NumWorkers)
	for i := range workers {
		w, err := o.newWorker(i)
		if err != nil {
			return errors.Wrapf(err, "creating worker %d", i)
		}

		workers[i] = w
	}

	barrier := NewBarrier(len(workers), o.params.BarrierTimeout)
	reports := make([]workerReport, len(workers))
	g, ctx := errgroup.WithContext(ctx)
	for i, w := range workers {
		i, w := i, w
		g.Go(func() error {
			err := o.runWorker(ctx, i, w, barrier, reports)
			return errors.Wrapf(err, "worker %d", i)
		})
	}

	return g.Wait()
}

func (o *Orchestrator) runWorker(ctx context.Context, id int, w *Worker, barrier *Barrier, reports []workerReport) error {
	for iter := 0; iter < o.params.Iterations; iter++ {
		w.Engine.ResetStats()
		report := workerReport{}
		for game := 0; game < o.params.GamesPerIteration; game++ {
			ledger := cfr.NewLedger(o.seed(iter, id, game))
			ev, err := w.Engine.Play(ctx, ledger, o.traversalIter(iter, game))
			if err != nil {
				return err
			}

			report.evSum += ev
			report.games++
		}

		for _, m := range w.models() {
			if err := m.Flush(); err != nil {
				return err
			}
		}

		report.stats = w.Engine.Stats()
		reports[id] = report

		if err := barrier.Wait(ctx); err != nil {
			return errors.Wrapf(err, "iteration %d: waiting for sampling", iter)
		}

		if id == trainer {
			if err := o.train(ctx, w.Advantage, o.params.TrainEpochs); err != nil {
				return err
			}

			o.report(iter, reports)
		}

		if err := barrier.Wait(ctx); err != nil {
			return errors.Wrapf(err, "iteration %d: waiting for training", iter)
		}

		if id != trainer {
			o.reload(w.Advantage)
		}
	}

	if id == trainer {
		if err := o.train(ctx, w.Strategy, o.params.StrategyEpochs); err != nil {
			return err
		}
	}

	if err := barrier.Wait(ctx); err != nil {
		return errors.Wrap(err, "waiting for strategy training")
	}

	if id != trainer {
		o.reload(w.Strategy)
	}

	return nil
}

func (o *Orchestrator) train(ctx context.Context, models []*deepcfr.Model, epochs int) error {
	for _, m := range models {
		start := time.Now()
		p, err := m.Train(ctx, epochs)
		if err != nil {
			return err
		}

		if p != nil {
			o.board.Publish(m.Name(), p)
		}

		glog.V(1).Infof("Trained %s in %v", m.Name(), time.Since(start))
	}

	return nil
}

func (o *Orchestrator) reload(models []*deepcfr.Model) {
	for _, m := range models {
		if p, ok := o.board.Get(m.Name()); ok {
			m.SetPredictor(p)
		}
	}
}

func (o *Orchestrator) report(iter int, reports []workerReport) {
	result := IterationResult{Iter: iter, Stats: reports[0].stats}
	evSum := 0.0
	for i, r := range reports {
		if i > 0 {
			result.Stats.Add(r.stats)
		}

		evSum += r.evSum
		result.Games += r.games
	}

	if result.Games > 0 {
		result.MeanEV = evSum / float64(result.Games)
	}

	glog.V(1).Infof("Iteration %d: %d games, mean ev = %.4f, %v",
		iter, result.Games, result.MeanEV, result.Stats)
	if o.onIter != nil {
		o.onIter(result)
	}
}
