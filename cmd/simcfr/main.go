// Command simcfr computes approximate equilibrium strategies by running
// parallel MCCFR self-play against a game simulator.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/deepcfr"
	"github.com/timpalpant/go-simcfr/internal/appconfig"
	"github.com/timpalpant/go-simcfr/kuhn"
	"github.com/timpalpant/go-simcfr/ldbstore"
	"github.com/timpalpant/go-simcfr/pqstore"
	"github.com/timpalpant/go-simcfr/rdbstore"
	"github.com/timpalpant/go-simcfr/selfplay"
	"github.com/timpalpant/go-simcfr/simproc"
	"github.com/timpalpant/go-simcfr/vocab"
	"github.com/timpalpant/go-simcfr/warpoker"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	game := flag.String("game", "", "Game to solve: kuhn, warpoker or simproc")
	variant := flag.String("variant", "", "Policy variant: tabular or deep")
	workers := flag.Int("workers", 0, "Number of self-play workers")
	iterations := flag.Int("iter", 0, "Number of self-play iterations")
	outputDir := flag.String("output_dir", "", "Directory to save trained policies to")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		glog.Fatal(err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "game":
			cfg.Game = *game
		case "variant":
			cfg.Variant = *variant
		case "workers":
			cfg.SelfPlay.Workers = *workers
		case "iter":
			cfg.SelfPlay.Iterations = *iterations
		case "output_dir":
			cfg.OutputDir = *outputDir
		}
	})

	if err := cfg.Validate(); err != nil {
		glog.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		glog.Fatal(err)
	}

	glog.Infof("Solving %s with the %s variant: %d workers, %d iterations of %d games",
		cfg.Game, cfg.Variant, cfg.SelfPlay.Workers, cfg.SelfPlay.Iterations, cfg.SelfPlay.GamesPerIteration)
	if cfg.Variant == "deep" {
		err = runDeep(ctx, cfg)
	} else {
		err = runTabular(ctx, cfg)
	}

	if err != nil {
		glog.Fatal(err)
	}
}

func newSessionFactory(cfg *appconfig.AppConfig) cfr.SessionFactory {
	switch cfg.Game {
	case "warpoker":
		return warpoker.NewSession
	case "simproc":
		return simproc.NewFactory(simproc.Command{
			Path: cfg.Simulator.Path,
			Args: cfg.Simulator.Args,
		})
	}

	return kuhn.NewSession
}

func newEngine(cfg *appconfig.AppConfig, policy cfr.Policy) *cfr.Engine {
	engine := cfr.NewEngine(newSessionFactory(cfg), policy, cfg.NewSampler(), cfg.EngineParams())
	if cfg.Engine.Evaluation == "heuristic" {
		engine.SetEvaluator(warpoker.HandStrength{})
	}

	return engine
}

func newOrchestrator(cfg *appconfig.AppConfig, newWorker selfplay.WorkerFactory) (*selfplay.Orchestrator, *progressbar.ProgressBar) {
	o := selfplay.New(cfg.SelfPlayParams(), newWorker)
	bar := progressbar.Default(int64(cfg.SelfPlay.Iterations), "self-play")
	o.OnIteration(func(r selfplay.IterationResult) {
		bar.Add(1)
		glog.V(1).Infof("Iteration %d: mean ev %.4f over %d games (%v)", r.Iter, r.MeanEV, r.Games, r.Stats)
	})

	return o, bar
}

// openTablePolicy opens the policy table of worker id. Every worker
// trains its own table so that regret updates within a traversal are
// not interleaved with other workers' updates.
func openTablePolicy(cfg *appconfig.AppConfig, id int) (cfr.Policy, io.Closer, error) {
	discounts := cfg.DiscountParams()
	name := fmt.Sprintf("policy-%d", id)
	switch cfg.Store.Backend {
	case "leveldb":
		p, err := ldbstore.New(filepath.Join(cfg.Store.Path, name), nil, discounts)
		return p, p, err
	case "rocksdb":
		params := rdbstore.DefaultParams(filepath.Join(cfg.Store.Path, name))
		p, err := rdbstore.New(params, discounts)
		if err != nil {
			params.Close()
			return nil, nil, err
		}

		return p, closerFunc(func() error {
			defer params.Close()
			return p.Close()
		}), nil
	}

	return cfr.NewTablePolicy(discounts), nil, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func runTabular(ctx context.Context, cfg *appconfig.AppConfig) error {
	var mu sync.Mutex
	var tables []*cfr.TablePolicy
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				glog.Warningf("Error closing policy table: %v", err)
			}
		}
	}()

	o, bar := newOrchestrator(cfg, func(id int) (*selfplay.Worker, error) {
		policy, closer, err := openTablePolicy(cfg, id)
		if err != nil {
			return nil, errors.Wrapf(err, "opening policy table for worker %d", id)
		}

		mu.Lock()
		defer mu.Unlock()
		if closer != nil {
			closers = append(closers, closer)
		}

		if tp, ok := policy.(*cfr.TablePolicy); ok {
			tables = append(tables, tp)
		}

		return &selfplay.Worker{Engine: newEngine(cfg, policy)}, nil
	})

	if err := o.Run(ctx); err != nil {
		return err
	}
	bar.Finish()

	if len(tables) == 0 {
		return nil
	}

	merged := cfr.NewTablePolicy(cfg.DiscountParams())
	for _, tp := range tables {
		merged.Merge(tp)
	}

	path := filepath.Join(cfg.OutputDir, "policy.gob")
	glog.Infof("Saving policy (%d + %d entries) to %s", merged.NumEntries(0), merged.NumEntries(1), path)
	return saveTo(path, merged.MarshalTo)
}

func openSampleStore(cfg *appconfig.AppConfig) (deepcfr.SampleStore, error) {
	switch cfg.Store.Backend {
	case "leveldb":
		return ldbstore.NewSampleStore(filepath.Join(cfg.Store.Path, "samples"), nil, cfg.Store.MaxSamples)
	case "rocksdb":
		return rdbstore.NewSampleStore(rdbstore.DefaultParams(filepath.Join(cfg.Store.Path, "samples")), cfg.Store.MaxSamples)
	case "parquet":
		return pqstore.New(cfg.Store.Path)
	}

	if cfg.Store.Path == "" {
		return deepcfr.NewMemoryStore(cfg.Store.MaxSamples, cfg.SelfPlay.Workers), nil
	}

	f, err := os.Open(cfg.Store.Path)
	if os.IsNotExist(err) {
		return deepcfr.NewMemoryStore(cfg.Store.MaxSamples, cfg.SelfPlay.Workers), nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	glog.Infof("Loading samples from %s", cfg.Store.Path)
	return deepcfr.LoadMemoryStore(bufio.NewReader(f), cfg.Store.MaxSamples, cfg.SelfPlay.Workers)
}

func runDeep(ctx context.Context, cfg *appconfig.AppConfig) error {
	store, err := openSampleStore(cfg)
	if err != nil {
		return errors.Wrap(err, "opening sample store")
	}
	defer store.Close()

	// All workers share one registry, so token ids agree across models.
	registry := vocab.New()
	trainer := deepcfr.NewTabularTrainer(registry)
	var writeLock sync.Mutex
	o, bar := newOrchestrator(cfg, func(id int) (*selfplay.Worker, error) {
		var advantage, strategy [2]*deepcfr.Model
		for player := range advantage {
			advantage[player] = deepcfr.NewModel(fmt.Sprintf("advantage%d", player),
				trainer, store, &writeLock, cfg.Store.CacheSize)
			strategy[player] = deepcfr.NewModel(fmt.Sprintf("strategy%d", player),
				trainer, store, &writeLock, cfg.Store.CacheSize)
		}

		policy := deepcfr.NewPolicy(advantage, strategy)
		engine := newEngine(cfg, policy)
		if cfg.Engine.Evaluation == "model" {
			engine.SetEvaluator(deepcfr.NewValueEvaluator(policy))
		}

		return &selfplay.Worker{
			Engine:    engine,
			Advantage: advantage[:],
			Strategy:  strategy[:],
		}, nil
	})

	if err := o.Run(ctx); err != nil {
		return err
	}
	bar.Finish()

	if ms, ok := store.(*deepcfr.MemoryStore); ok && cfg.Store.Path != "" {
		glog.Infof("Saving samples to %s", cfg.Store.Path)
		if err := saveTo(cfg.Store.Path, ms.MarshalTo); err != nil {
			return err
		}
	}

	for _, name := range o.Board().Names() {
		p, _ := o.Board().Get(name)
		tp, ok := p.(*deepcfr.TabularPredictor)
		if !ok {
			continue
		}

		path := filepath.Join(cfg.OutputDir, name+".model")
		glog.Infof("Saving %s (%d infosets) to %s", name, tp.Len(), path)
		if err := saveTo(path, tp.MarshalTo); err != nil {
			return err
		}
	}

	return nil
}

func saveTo(path string, marshal func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := marshal(w); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	return f.Close()
}
