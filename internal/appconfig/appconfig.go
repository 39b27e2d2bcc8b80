// Package appconfig loads the configuration of the simcfr command from
// an optional YAML file and environment variables.
package appconfig

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/sampling"
	"github.com/timpalpant/go-simcfr/selfplay"
)

type AppConfig struct {
	// Game is one of "kuhn", "warpoker" or "simproc".
	Game      string          `yaml:"game" env:"SIMCFR_GAME" env-default:"kuhn"`
	Simulator SimulatorConfig `yaml:"simulator"`
	// Variant is "tabular" or "deep".
	Variant   string `yaml:"variant" env:"SIMCFR_VARIANT" env-default:"tabular"`
	OutputDir string `yaml:"output_dir" env:"SIMCFR_OUTPUT_DIR" env-default:"simcfr-out"`

	Engine   EngineConfig   `yaml:"engine"`
	Sampler  SamplerConfig  `yaml:"sampler"`
	SelfPlay SelfPlayConfig `yaml:"selfplay"`
	Store    StoreConfig    `yaml:"store"`
}

// SimulatorConfig is the external simulator launched when Game is "simproc".
type SimulatorConfig struct {
	Path string   `yaml:"path" env:"SIMCFR_SIMULATOR_PATH"`
	Args []string `yaml:"args" env:"SIMCFR_SIMULATOR_ARGS" env-separator:" "`
}

type EngineConfig struct {
	Exploration float64 `yaml:"exploration" env:"SIMCFR_EXPLORATION" env-default:"0"`
	DepthLimit  int     `yaml:"depth_limit" env:"SIMCFR_DEPTH_LIMIT" env-default:"0"`
	// Evaluation is "rollout", "heuristic" or "model".
	Evaluation          string `yaml:"evaluation" env:"SIMCFR_EVALUATION" env-default:"rollout"`
	ImportanceWeighting bool   `yaml:"importance_weighting" env:"SIMCFR_IMPORTANCE_WEIGHTING"`
	ReseedBranches      bool   `yaml:"reseed_branches" env:"SIMCFR_RESEED_BRANCHES"`
	MaxWaits            int    `yaml:"max_waits" env:"SIMCFR_MAX_WAITS" env-default:"1000"`

	CFRPlus         bool    `yaml:"cfr_plus" env:"SIMCFR_CFR_PLUS"`
	LinearWeighting bool    `yaml:"linear_weighting" env:"SIMCFR_LINEAR_WEIGHTING"`
	DiscountAlpha   float64 `yaml:"discount_alpha" env:"SIMCFR_DISCOUNT_ALPHA"`
	DiscountBeta    float64 `yaml:"discount_beta" env:"SIMCFR_DISCOUNT_BETA"`
	DiscountGamma   float64 `yaml:"discount_gamma" env:"SIMCFR_DISCOUNT_GAMMA"`
}

type SamplerConfig struct {
	// Kind is "external", "average", "branch", "robust" or "outcome".
	Kind        string  `yaml:"kind" env:"SIMCFR_SAMPLER" env-default:"external"`
	Exploration float64 `yaml:"exploration" env:"SIMCFR_SAMPLER_EXPLORATION" env-default:"0.05"`
	Bonus       float64 `yaml:"bonus" env:"SIMCFR_SAMPLER_BONUS" env-default:"1000"`
	Threshold   float64 `yaml:"threshold" env:"SIMCFR_SAMPLER_THRESHOLD" env-default:"1"`
	Bound       int     `yaml:"bound" env:"SIMCFR_SAMPLER_BOUND" env-default:"0"`
	Branches    int     `yaml:"branches" env:"SIMCFR_SAMPLER_BRANCHES" env-default:"2"`
}

type SelfPlayConfig struct {
	Workers           int           `yaml:"workers" env:"SIMCFR_WORKERS" env-default:"1"`
	Iterations        int           `yaml:"iterations" env:"SIMCFR_ITERATIONS" env-default:"100"`
	GamesPerIteration int           `yaml:"games_per_iteration" env:"SIMCFR_GAMES_PER_ITERATION" env-default:"100"`
	TrainEpochs       int           `yaml:"train_epochs" env:"SIMCFR_TRAIN_EPOCHS" env-default:"1"`
	StrategyEpochs    int           `yaml:"strategy_epochs" env:"SIMCFR_STRATEGY_EPOCHS" env-default:"1"`
	BarrierTimeout    time.Duration `yaml:"barrier_timeout" env:"SIMCFR_BARRIER_TIMEOUT" env-default:"10m"`
	Seed              int64         `yaml:"seed" env:"SIMCFR_SEED" env-default:"123"`
	FixedSeed         bool          `yaml:"fixed_seed" env:"SIMCFR_FIXED_SEED"`
}

type StoreConfig struct {
	// Backend is "memory", "leveldb", "rocksdb" or "parquet".
	Backend string `yaml:"backend" env:"SIMCFR_STORE" env-default:"memory"`
	// Path is the database or directory used by on-disk backends. For the
	// memory backend of the deep variant it optionally names a file that
	// samples are loaded from at startup and saved to when training ends.
	Path       string `yaml:"path" env:"SIMCFR_STORE_PATH"`
	MaxSamples int    `yaml:"max_samples" env:"SIMCFR_MAX_SAMPLES" env-default:"1000000"`
	CacheSize  int    `yaml:"cache_size" env:"SIMCFR_CACHE_SIZE" env-default:"10000"`
}

// Load reads the configuration file at path, if path is not empty, and
// then applies environment overrides and defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error
	if path == "" {
		err = cleanenv.ReadEnv(cfg)
	} else {
		err = cleanenv.ReadConfig(path, cfg)
	}

	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	return cfg, nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return errors.Errorf("invalid %s %q, expected one of %v", field, value, allowed)
}

// Validate checks that the enumerated fields have known values and that
// the chosen components can be combined.
func (c *AppConfig) Validate() error {
	if err := oneOf("game", c.Game, "kuhn", "warpoker", "simproc"); err != nil {
		return err
	}

	if err := oneOf("variant", c.Variant, "tabular", "deep"); err != nil {
		return err
	}

	if err := oneOf("evaluation", c.Engine.Evaluation, "rollout", "heuristic", "model"); err != nil {
		return err
	}

	if err := oneOf("sampler", c.Sampler.Kind, "external", "average", "branch", "robust", "outcome"); err != nil {
		return err
	}

	if err := oneOf("store backend", c.Store.Backend, "memory", "leveldb", "rocksdb", "parquet"); err != nil {
		return err
	}

	if c.Game == "simproc" && c.Simulator.Path == "" {
		return errors.New("simproc game requires a simulator path")
	}

	if c.Engine.Evaluation == "model" && c.Variant != "deep" {
		return errors.New("model evaluation requires the deep variant")
	}

	if c.Engine.Evaluation == "heuristic" && c.Game != "warpoker" {
		return errors.Errorf("no heuristic evaluator for game %q", c.Game)
	}

	if c.Variant == "tabular" && c.Store.Backend == "parquet" {
		return errors.New("parquet store only holds deep samples")
	}

	if c.Store.Backend != "memory" && c.Store.Path == "" {
		return errors.Errorf("%s store requires a path", c.Store.Backend)
	}

	if c.SelfPlay.Workers < 1 || c.SelfPlay.Iterations < 1 || c.SelfPlay.GamesPerIteration < 1 {
		return errors.New("workers, iterations and games per iteration must be positive")
	}

	return nil
}

// DiscountParams returns the regret discounting options.
func (c *AppConfig) DiscountParams() cfr.DiscountParams {
	return cfr.DiscountParams{
		UseRegretMatchingPlus: c.Engine.CFRPlus,
		LinearWeighting:       c.Engine.LinearWeighting,
		DiscountAlpha:         c.Engine.DiscountAlpha,
		DiscountBeta:          c.Engine.DiscountBeta,
		DiscountGamma:         c.Engine.DiscountGamma,
	}
}

// EngineParams returns the traversal engine options. Both heuristic and
// model evaluation end the traversal with an Evaluator.
func (c *AppConfig) EngineParams() cfr.Params {
	eval := cfr.EvaluateRollout
	if c.Engine.Evaluation != "rollout" {
		eval = cfr.EvaluateHeuristic
	}

	return cfr.Params{
		Exploration:         c.Engine.Exploration,
		DepthLimit:          c.Engine.DepthLimit,
		Evaluation:          eval,
		ImportanceWeighting: c.Engine.ImportanceWeighting,
		ReseedBranches:      c.Engine.ReseedBranches,
		MaxWaits:            c.Engine.MaxWaits,
		Discount:            c.DiscountParams(),
	}
}

// NewSampler returns a new sampler. Samplers own their random number
// generators, so each worker needs its own.
func (c *AppConfig) NewSampler() cfr.Sampler {
	switch c.Sampler.Kind {
	case "average":
		return sampling.NewAverageStrategySampler(sampling.AverageStrategyParams{
			Exploration: c.Sampler.Exploration,
			Bonus:       c.Sampler.Bonus,
			Threshold:   c.Sampler.Threshold,
			Bound:       c.Sampler.Bound,
		})
	case "branch":
		return sampling.NewBranchLimitSampler(c.Sampler.Branches)
	case "robust":
		return sampling.NewRobustSampler(c.Sampler.Branches)
	case "outcome":
		return sampling.NewOutcomeSampler(c.Sampler.Exploration)
	}

	return sampling.NewExternalSampler()
}

func (c *AppConfig) SelfPlayParams() selfplay.Params {
	return selfplay.Params{
		NumWorkers:        c.SelfPlay.Workers,
		Iterations:        c.SelfPlay.Iterations,
		GamesPerIteration: c.SelfPlay.GamesPerIteration,
		TrainEpochs:       c.SelfPlay.TrainEpochs,
		StrategyEpochs:    c.SelfPlay.StrategyEpochs,
		BarrierTimeout:    c.SelfPlay.BarrierTimeout,
		Seed:              c.SelfPlay.Seed,
		FixedSeed:         c.SelfPlay.FixedSeed,
	}
}
