package arena

import (
	"fmt"
	"sync"

	"azero/game"
	"azero/searcher"

	"github.com/rs/zerolog/log"
)

// Result tallies a comparison match from the candidate's perspective.
type Result struct {
	CandidateWins int
	IncumbentWins int
	Draws         int
}

// WinFraction is the candidate's share of decisive games; draws are excluded.
func (r Result) WinFraction() float64 {
	decisive := r.CandidateWins + r.IncumbentWins
	if decisive == 0 {
		return 0
	}
	return float64(r.CandidateWins) / float64(decisive)
}

// Accepted reports whether the candidate earned promotion: its fraction of
// decisive games must reach threshold. A match with no decisive games
// rejects; hitting the threshold exactly accepts.
func (r Result) Accepted(threshold float64) bool {
	if r.CandidateWins+r.IncumbentWins == 0 {
		return false
	}
	return r.WinFraction() >= threshold
}

type Option func(*Arena)

func WithSimulations(sims int) Option {
	return func(a *Arena) {
		if sims > 0 {
			a.sims = sims
		}
	}
}

func WithCpuct(c float64) Option {
	return func(a *Arena) {
		if c > 0 {
			a.cpuct = c
		}
	}
}

func WithGoroutines(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.goroutines = n
		}
	}
}

func WithMaxMoves(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.maxMoves = n
		}
	}
}

// Arena plays head-to-head matches between two evaluator snapshots using
// deterministic search: no root noise, argmax action selection, both sides at
// the same simulation budget. Which snapshot moves first alternates between
// games so neither side gets a seat advantage.
type Arena struct {
	game       game.Game
	sims       int
	cpuct      float64
	goroutines int
	maxMoves   int
}

func New(g game.Game, options ...Option) *Arena {
	a := &Arena{
		game:       g,
		sims:       searcher.DefaultSimulations,
		cpuct:      searcher.DefaultCpuct,
		goroutines: 1,
		maxMoves:   10000,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Compare plays the given number of games between candidate and incumbent and
// returns the tally. Games are independent and run on the configured number
// of workers.
func (a *Arena) Compare(candidate, incumbent searcher.Predictor, games int) (Result, error) {
	if games < 1 {
		return Result{}, fmt.Errorf("need at least one arena game, got %d", games)
	}

	tasks := make(chan int, games)
	for i := 0; i < games; i++ {
		tasks <- i
	}
	close(tasks)

	type outcome struct {
		winner int // +1 candidate, -1 incumbent, 0 draw
		err    error
	}
	results := make(chan outcome, games)

	var wg sync.WaitGroup
	for w := 0; w < a.goroutines; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				first, second := candidate, incumbent
				candidateFirst := i%2 == 0
				if !candidateFirst {
					first, second = incumbent, candidate
				}

				winner, err := a.playGame(first, second)
				if !candidateFirst {
					winner = -winner
				}
				results <- outcome{winner: winner, err: err}
			}
		}()
	}
	wg.Wait()
	close(results)

	var result Result
	for r := range results {
		if r.err != nil {
			return Result{}, r.err
		}
		switch {
		case r.winner > 0:
			result.CandidateWins++
		case r.winner < 0:
			result.IncumbentWins++
		default:
			result.Draws++
		}
	}

	log.Info().
		Int("candidate_wins", result.CandidateWins).
		Int("incumbent_wins", result.IncumbentWins).
		Int("draws", result.Draws).
		Msg("arena match complete")
	return result, nil
}

// playGame returns +1 if the first mover wins, -1 if the second does, and 0
// for a draw.
func (a *Arena) playGame(first, second searcher.Predictor) (int, error) {
	state := a.game.InitialState()

	for move := 0; move < a.maxMoves; move++ {
		outcome, terminal := a.game.Outcome(state)
		if terminal {
			// Outcome is from the side to move; Player is +1 for the first
			// mover, so this converts to the first mover's perspective.
			forFirst := outcome * float64(state.Player())
			switch {
			case forFirst > 0:
				return 1, nil
			case forFirst < 0:
				return -1, nil
			default:
				return 0, nil
			}
		}

		eval := first
		if state.Player() < 0 {
			eval = second
		}

		mcts := searcher.New(a.game, eval,
			searcher.WithSimulations(a.sims),
			searcher.WithCpuct(a.cpuct),
		)
		probs, _, err := mcts.Search(state)
		if err != nil {
			return 0, fmt.Errorf("arena move %d: %w", move, err)
		}

		best := 0
		for act, p := range probs {
			if p > probs[best] {
				best = act
			}
		}
		state, err = a.game.Apply(state, game.Action(best))
		if err != nil {
			return 0, fmt.Errorf("arena move %d: search chose an illegal action: %w", move, err)
		}
	}

	return 0, fmt.Errorf("arena game exceeded %d moves without terminating", a.maxMoves)
}
