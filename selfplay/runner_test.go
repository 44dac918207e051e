package selfplay

import (
	"math"
	"testing"

	"azero/game"
	"azero/metrics"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

type uniformPredictor struct{}

func (uniformPredictor) Predict(encoding []float64, legal []bool) ([]float64, float64, error) {
	policy := make([]float64, len(legal))
	for a := range policy {
		policy[a] = 1 / float64(len(policy))
	}
	return policy, 0, nil
}

func newTestRunner(g game.Game, cfg Config, seed uint64, options ...Option) *Runner {
	return NewRunner(g, uniformPredictor{}, cfg, rand.New(rand.NewSource(seed)), options...)
}

func TestPlayEpisodeBackfillsOutcomes(t *testing.T) {
	g := game.NewChips(6)
	runner := newTestRunner(g, Config{
		Simulations:    16,
		RatioFullMCTS:  4,
		ProbFullMCTS:   0.5,
		DirichletAlpha: 0.3,
		Cpuct:          1.0,
		TempThreshold:  4,
		MaxMoves:       50,
	}, 11)

	examples, err := runner.PlayEpisode(3)
	require.NoError(t, err)
	require.NotEmpty(t, examples)

	for i, ex := range examples {
		require.Equal(t, 3, ex.Iteration, "examples carry their iteration tag")
		require.Equal(t, 1.0, math.Abs(ex.Value),
			"chips has no draws: every value target is a decisive outcome")

		sum := 0.0
		for _, p := range ex.Policy {
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-9, "policy target %d should be a distribution", i)
	}

	for i := 1; i < len(examples); i++ {
		require.Equal(t, -examples[i-1].Value, examples[i].Value,
			"players alternate, so consecutive value targets alternate sign")
	}

	// Whoever takes the last chip wins, and the last example belongs to them.
	require.Equal(t, 1.0, examples[len(examples)-1].Value)
}

func TestPlayEpisodeDeterministicAfterTempThreshold(t *testing.T) {
	g := game.NewChips(9)
	cfg := Config{
		Simulations:   8,
		RatioFullMCTS: 1,
		ProbFullMCTS:  1,
		Cpuct:         1.0,
		TempThreshold: 0, // argmax from the first move
		MaxMoves:      50,
	}

	first, err := newTestRunner(g, cfg, 1).PlayEpisode(1)
	require.NoError(t, err)
	second, err := newTestRunner(g, cfg, 2).PlayEpisode(1)
	require.NoError(t, err)

	require.Equal(t, first, second,
		"with noise-free argmax play the episode does not depend on the seed")
}

func TestFastSearchesSkipRootNoise(t *testing.T) {
	g := game.NewChips(9)
	cfg := Config{
		Simulations:    16,
		RatioFullMCTS:  4,
		ProbFullMCTS:   0, // every search at the fast budget
		Cpuct:          1.0,
		DirichletAlpha: 0.3,
		TempThreshold:  0,
		MaxMoves:       50,
	}

	first, err := newTestRunner(g, cfg, 3).PlayEpisode(1)
	require.NoError(t, err)
	second, err := newTestRunner(g, cfg, 4).PlayEpisode(1)
	require.NoError(t, err)

	require.Equal(t, first, second,
		"fast searches carry no exploration noise, so the seed cannot matter")
}

func TestPlayEpisodeFailsOnMoveCap(t *testing.T) {
	g := game.NewChips(21)
	runner := newTestRunner(g, Config{
		Simulations:   4,
		RatioFullMCTS: 1,
		ProbFullMCTS:  1,
		Cpuct:         1.0,
		TempThreshold: 100,
		MaxMoves:      2, // 21 chips cannot be cleared in 2 moves
	}, 5)

	_, err := runner.PlayEpisode(1)
	require.ErrorContains(t, err, "exceeded")
}

func TestPlayEpisodeCountsSearches(t *testing.T) {
	g := game.NewChips(6)
	collector := metrics.NewCollector()
	runner := newTestRunner(g, Config{
		Simulations:   8,
		RatioFullMCTS: 2,
		ProbFullMCTS:  1, // every search at full budget
		Cpuct:         1.0,
		MaxMoves:      50,
	}, 9, WithCollector(collector))

	examples, err := runner.PlayEpisode(1)
	require.NoError(t, err)

	metric := collector.Complete()
	require.Equal(t, len(examples), metric.FullSearches, "one full search per recorded move")
	require.Zero(t, metric.FastSearches)
}
