package coach

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"azero/arena"
	"azero/corpus"
	"azero/evaluator"
	"azero/game"
	"azero/metrics"
	"azero/selfplay"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

const (
	checkpointName = "best.checkpoint.json"
	corpusName     = "corpus.parquet"
)

// Coach runs the model improvement cycle: self-play with the accepted
// evaluator, corpus growth under the retention policy, candidate training,
// and arena-gated promotion. The Coach exclusively owns the accepted snapshot
// and the corpus; workers only borrow read-only references.
type Coach struct {
	game   game.Game
	net    *evaluator.Network
	corpus *corpus.Corpus
	cfg    Config
	writer *metrics.Writer
	rng    *rand.Rand
}

func New(g game.Game, net *evaluator.Network, cfg Config) (*Coach, error) {
	cfg.Normalize()

	writer, err := metrics.NewWriter(cfg.CheckpointDir)
	if err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Coach{
		game:   g,
		net:    net,
		corpus: corpus.New(cfg.NumItersHistory, cfg.MaxlenOfQueue),
		cfg:    cfg,
		writer: writer,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Net returns the currently accepted evaluator snapshot.
func (c *Coach) Net() *evaluator.Network { return c.net }

// Corpus returns the training corpus.
func (c *Coach) Corpus() *corpus.Corpus { return c.corpus }

// Resume restores the accepted snapshot and the persisted corpus from the
// checkpoint directory, so an interrupted run continues where it stopped.
func (c *Coach) Resume() error {
	net, err := evaluator.Load(c.checkpointPath())
	if err != nil {
		return fmt.Errorf("resume evaluator: %w", err)
	}
	c.net = net
	if err := c.corpus.Load(c.corpusPath()); err != nil {
		return fmt.Errorf("resume corpus: %w", err)
	}
	log.Info().
		Int("version", c.net.Version()).
		Int("examples", c.corpus.Len()).
		Msg("resumed from checkpoint")
	return nil
}

// Learn runs iterations until the configured count is reached or the
// wall-clock budget elapses. The budget is checked between iterations only;
// an iteration in flight always completes.
func (c *Coach) Learn() error {
	if err := c.writer.WriteConfig(c.cfg); err != nil {
		log.Warn().Err(err).Msg("failed to snapshot run config")
	}

	start := time.Now()
	for iter := c.net.Version() + 1; iter <= c.cfg.NumIters; iter++ {
		if c.cfg.TimeIters > 0 && time.Since(start) >= c.cfg.TimeIters {
			log.Info().Dur("elapsed", time.Since(start)).Msg("wall-clock budget elapsed, stopping")
			break
		}
		log.Info().Int("iteration", iter).Msg("starting iteration")
		if err := c.runIteration(iter); err != nil {
			return fmt.Errorf("iteration %d: %w", iter, err)
		}
	}
	return nil
}

func (c *Coach) runIteration(iter int) error {
	iterStart := time.Now()
	collector := metrics.NewCollector()

	examples, err := c.selfPlay(iter, collector)
	if err != nil {
		// A broken episode means broken game logic or search; training on a
		// guessed outcome would poison every later iteration.
		return fmt.Errorf("self-play: %w", err)
	}
	selfPlayMetric := collector.Complete()

	c.corpus.Append(corpus.Batch{Iteration: iter, Examples: examples})
	if err := c.corpus.Save(c.corpusPath()); err != nil {
		// Disk trouble is recoverable: the in-memory corpus is intact, the
		// next iteration retries the write.
		log.Warn().Err(err).Msg("corpus persistence failed, continuing with in-memory corpus")
	}

	candidate, err := c.net.Train(c.corpus.All(), evaluator.Hyperparams{
		LearnRate: c.cfg.LearnRate,
		Momentum:  c.cfg.Momentum,
		Epochs:    c.cfg.Epochs,
		BatchSize: c.cfg.BatchSize,
	}, iter)
	if err != nil {
		return fmt.Errorf("train candidate: %w", err)
	}

	gate := arena.New(c.game,
		arena.WithSimulations(c.cfg.ArenaSims),
		arena.WithCpuct(c.cfg.Cpuct),
		arena.WithGoroutines(c.cfg.Goroutines),
		arena.WithMaxMoves(c.cfg.MaxMoves),
	)
	result, err := gate.Compare(candidate, c.net, c.cfg.ArenaCompare)
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}

	accepted := result.Accepted(c.cfg.UpdateThreshold)
	if accepted {
		c.net = candidate
		if err := c.net.Save(c.checkpointPath()); err != nil {
			return fmt.Errorf("checkpoint accepted candidate: %w", err)
		}
		log.Info().
			Int("iteration", iter).
			Float64("win_fraction", result.WinFraction()).
			Msg("candidate accepted")
	} else {
		// The candidate is discarded, but the self-play data it was trained
		// on stays in the corpus.
		log.Info().
			Int("iteration", iter).
			Float64("win_fraction", result.WinFraction()).
			Msg("candidate rejected, keeping incumbent")
	}

	if err := c.writer.AppendIteration(metrics.IterationRecord{
		Iteration:     iter,
		Episodes:      selfPlayMetric.Episodes,
		Examples:      selfPlayMetric.Examples,
		CorpusSize:    c.corpus.Len(),
		CorpusBatches: c.corpus.Batches(),
		FullSearches:  selfPlayMetric.FullSearches,
		FastSearches:  selfPlayMetric.FastSearches,
		CandidateWins: result.CandidateWins,
		IncumbentWins: result.IncumbentWins,
		Draws:         result.Draws,
		Accepted:      accepted,
		Duration:      time.Since(iterStart),
	}); err != nil {
		log.Warn().Err(err).Msg("failed to record iteration metrics")
	}
	return nil
}

// selfPlay runs the iteration's episodes on a fixed pool of workers. Each
// worker owns a runner seeded from the coach's random source; workers share
// nothing but read-only evaluator weights and report example batches back for
// the coach to commit.
func (c *Coach) selfPlay(iter int, collector metrics.Collector) ([]corpus.Example, error) {
	runnerCfg := selfplay.Config{
		Simulations:    c.cfg.NumMCTSSims,
		RatioFullMCTS:  c.cfg.RatioFullMCTS,
		ProbFullMCTS:   c.cfg.ProbFullMCTS,
		Cpuct:          c.cfg.Cpuct,
		DirichletAlpha: c.cfg.DirichletAlpha,
		TempThreshold:  c.cfg.TempThreshold,
		ForcedPlayouts: c.cfg.ForcedPlayouts,
		MaxMoves:       c.cfg.MaxMoves,
	}

	tasks := make(chan int, c.cfg.NumEps)
	for i := 0; i < c.cfg.NumEps; i++ {
		tasks <- i
	}
	close(tasks)

	type episodeResult struct {
		examples []corpus.Example
		err      error
	}
	results := make(chan episodeResult, c.cfg.NumEps)

	var wg sync.WaitGroup
	for w := 0; w < c.cfg.Goroutines; w++ {
		wg.Add(1)
		seed := c.rng.Uint64()
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			runner := selfplay.NewRunner(c.game, c.net, runnerCfg, rng, selfplay.WithCollector(collector))
			for range tasks {
				examples, err := runner.PlayEpisode(iter)
				results <- episodeResult{examples: examples, err: err}
			}
		}(seed)
	}
	wg.Wait()
	close(results)

	var all []corpus.Example
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		all = append(all, r.examples...)
		collector.AddEpisode()
		collector.AddExamples(len(r.examples))
	}
	return all, nil
}

func (c *Coach) checkpointPath() string {
	return filepath.Join(c.cfg.CheckpointDir, checkpointName)
}

func (c *Coach) corpusPath() string {
	return filepath.Join(c.cfg.CheckpointDir, corpusName)
}
