package selfplay

import (
	"fmt"

	"azero/corpus"
	"azero/game"
	"azero/metrics"
	"azero/searcher"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config carries the per-episode knobs of self-play.
type Config struct {
	// Simulations is the full search budget; a move gets it with probability
	// ProbFullMCTS, otherwise the reduced Simulations/RatioFullMCTS budget.
	Simulations    int
	RatioFullMCTS  int
	ProbFullMCTS   float64
	Cpuct          float64
	DirichletAlpha float64
	// TempThreshold is the move index at which action selection switches from
	// sampling the search distribution to taking its argmax.
	TempThreshold  int
	ForcedPlayouts bool
	// MaxMoves is the safety cap; exceeding it fails the episode.
	MaxMoves int
}

type Option func(*Runner)

func WithCollector(c metrics.Collector) Option {
	return func(r *Runner) {
		if c != nil {
			r.metrics = c
		}
	}
}

// Runner drives complete self-play games, one search per move, recording a
// training example at every move. A Runner is not safe for concurrent use;
// run one per worker.
type Runner struct {
	game    game.Game
	eval    searcher.Predictor
	cfg     Config
	rng     *rand.Rand
	metrics metrics.Collector
}

func NewRunner(g game.Game, eval searcher.Predictor, cfg Config, rng *rand.Rand, options ...Option) *Runner {
	if cfg.Simulations < 1 {
		cfg.Simulations = searcher.DefaultSimulations
	}
	if cfg.RatioFullMCTS < 1 {
		cfg.RatioFullMCTS = 1
	}
	if cfg.MaxMoves < 1 {
		cfg.MaxMoves = 10000
	}
	r := &Runner{
		game:    g,
		eval:    eval,
		cfg:     cfg,
		rng:     rng,
		metrics: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

type record struct {
	example corpus.Example
	player  int
}

// PlayEpisode plays one game from the initial state to termination and
// returns its examples with value targets back-filled from the final outcome,
// tagged with the given iteration. An episode that does not terminate within
// the move cap is a failure, not a truncation.
func (r *Runner) PlayEpisode(iteration int) ([]corpus.Example, error) {
	state := r.game.InitialState()
	var records []record

	for move := 0; move < r.cfg.MaxMoves; move++ {
		if outcome, terminal := r.game.Outcome(state); terminal {
			return backfill(records, outcome, state.Player()), nil
		}

		sims := r.cfg.Simulations
		full := r.rng.Float64() < r.cfg.ProbFullMCTS
		if full {
			r.metrics.AddFullSearch()
		} else {
			sims = max(1, sims/r.cfg.RatioFullMCTS)
			r.metrics.AddFastSearch()
		}

		options := []searcher.Option{
			searcher.WithSimulations(sims),
			searcher.WithCpuct(r.cfg.Cpuct),
			searcher.WithRand(r.rng),
		}
		// Fast searches are cheap throughput moves: no exploration noise, no
		// forced playouts, just the reduced budget.
		if full {
			options = append(options, searcher.WithRootNoise(r.cfg.DirichletAlpha))
			if r.cfg.ForcedPlayouts {
				options = append(options, searcher.WithForcedPlayouts())
			}
		}

		probs, _, err := searcher.New(r.game, r.eval, options...).Search(state)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", move, err)
		}

		records = append(records, record{
			example: corpus.Example{
				Encoding:  r.game.Encode(state),
				Policy:    probs,
				Iteration: iteration,
			},
			player: state.Player(),
		})

		var action game.Action
		if move < r.cfg.TempThreshold {
			action = game.Action(distuv.NewCategorical(probs, r.rng).Rand())
		} else {
			action = argmax(probs)
		}

		state, err = r.game.Apply(state, action)
		if err != nil {
			return nil, fmt.Errorf("move %d: search chose an illegal action: %w", move, err)
		}
	}

	return nil, fmt.Errorf("episode exceeded %d moves without terminating", r.cfg.MaxMoves)
}

// backfill assigns every example the final outcome, sign-adjusted to its
// acting player's perspective.
func backfill(records []record, outcome float64, terminalPlayer int) []corpus.Example {
	examples := make([]corpus.Example, len(records))
	for i, rec := range records {
		examples[i] = rec.example
		if rec.player == terminalPlayer {
			examples[i].Value = outcome
		} else {
			examples[i].Value = -outcome
		}
	}
	return examples
}

func argmax(probs []float64) game.Action {
	best := 0
	for a, p := range probs {
		if p > probs[best] {
			best = a
		}
	}
	return game.Action(best)
}
