package searcher

import (
	"errors"
	"math"
	"testing"

	"azero/game"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// stubPredictor returns a fixed policy and value for every state.
type stubPredictor struct {
	policy []float64
	value  float64
	err    error
}

func (p stubPredictor) Predict(encoding []float64, legal []bool) ([]float64, float64, error) {
	if p.err != nil {
		return nil, 0, p.err
	}
	out := make([]float64, len(p.policy))
	copy(out, p.policy)
	return out, p.value, nil
}

func TestSearchReturnsDistribution(t *testing.T) {
	g := game.NewChips(10)
	eval := stubPredictor{policy: []float64{0.2, 0.3, 0.5}}

	m := New(g, eval, WithSimulations(32))
	probs, _, err := m.Search(g.InitialState())
	require.NoError(t, err)

	sum := 0.0
	for _, p := range probs {
		require.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-9, "action probabilities should sum to 1")
}

func TestSearchAssignsZeroToIllegalActions(t *testing.T) {
	g := game.NewChips(2) // taking 3 chips is illegal
	eval := stubPredictor{policy: []float64{0.3, 0.3, 0.4}}

	m := New(g, eval, WithSimulations(32))
	probs, _, err := m.Search(g.InitialState())
	require.NoError(t, err)
	require.Zero(t, probs[2], "illegal action should carry no probability mass")
}

func TestSearchBudgetOneIsOneHotOnTopPrior(t *testing.T) {
	g := game.NewChips(10)
	eval := stubPredictor{policy: []float64{0.1, 0.7, 0.2}}

	m := New(g, eval, WithSimulations(1))
	probs, value, err := m.Search(g.InitialState())
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 0}, probs,
		"a single simulation only expands the root, so the target falls back to the top prior")
	require.Equal(t, 0.0, value, "root value is the evaluator's estimate")
}

func TestVisitCountsMonotonicInBudget(t *testing.T) {
	g := game.NewChips(10)
	eval := stubPredictor{policy: []float64{0.2, 0.3, 0.5}, value: 0.1}

	// Noise-free search is deterministic, so a larger budget replays the
	// smaller one's simulations before adding its own. The root's edges absorb
	// one visit per simulation after the expanding one, so the reported
	// distribution scales back to exact counts.
	visits := func(sims int) []int {
		probs, _, err := New(g, eval, WithSimulations(sims)).Search(g.InitialState())
		require.NoError(t, err)
		counts := make([]int, len(probs))
		total := 0
		for a, p := range probs {
			counts[a] = int(math.Round(p * float64(sims-1)))
			total += counts[a]
		}
		require.Equal(t, sims-1, total)
		return counts
	}

	small := visits(33)
	large := visits(129)
	for a := range small {
		require.GreaterOrEqual(t, large[a], small[a],
			"raising the budget must not take visits away from action %d", a)
	}
}

func TestSearchDeterministicWithoutNoise(t *testing.T) {
	g := game.NewChips(10)
	eval := stubPredictor{policy: []float64{0.2, 0.3, 0.5}, value: 0.1}

	first, v1, err := New(g, eval, WithSimulations(64)).Search(g.InitialState())
	require.NoError(t, err)
	second, v2, err := New(g, eval, WithSimulations(64)).Search(g.InitialState())
	require.NoError(t, err)

	require.Equal(t, first, second, "noise-free searches with identical inputs must agree")
	require.Equal(t, v1, v2)
}

func TestSearchReproducibleWithSeededNoise(t *testing.T) {
	g := game.NewChips(10)
	eval := stubPredictor{policy: []float64{0.2, 0.3, 0.5}}

	run := func(seed uint64) []float64 {
		m := New(g, eval,
			WithSimulations(32),
			WithRootNoise(0.2),
			WithRand(rand.New(rand.NewSource(seed))),
		)
		probs, _, err := m.Search(g.InitialState())
		require.NoError(t, err)
		return probs
	}

	require.Equal(t, run(7), run(7), "same seed, same noise, same search")
}

func TestSearchPrefersImmediateWin(t *testing.T) {
	g := game.NewChips(3) // taking all 3 chips wins on the spot
	eval := stubPredictor{policy: []float64{0.34, 0.33, 0.33}}

	m := New(g, eval, WithSimulations(100))
	probs, value, err := m.Search(g.InitialState())
	require.NoError(t, err)

	best := 0
	for a, p := range probs {
		if p > probs[best] {
			best = a
		}
	}
	require.Equal(t, 2, best, "terminal wins are backed up exactly and dominate selection")
	require.Greater(t, value, 0.0)
}

func TestSearchFromTerminalStateErrors(t *testing.T) {
	g := game.NewChips(1)
	state, err := g.Apply(g.InitialState(), 0)
	require.NoError(t, err)

	_, _, err = New(g, stubPredictor{policy: []float64{1, 0, 0}}).Search(state)
	require.Error(t, err)
}

func TestSearchFallsBackToUniformWhenPriorsMasked(t *testing.T) {
	g := game.NewChips(2)
	// All prior mass on the illegal third action.
	eval := stubPredictor{policy: []float64{0, 0, 1}}

	m := New(g, eval, WithSimulations(16))
	probs, _, err := m.Search(g.InitialState())
	require.NoError(t, err)

	require.Zero(t, probs[2])
	sum := probs[0] + probs[1]
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestSearchPropagatesEvaluatorFailure(t *testing.T) {
	g := game.NewChips(10)
	eval := stubPredictor{err: errors.New("malformed tensor")}

	_, _, err := New(g, eval, WithSimulations(8)).Search(g.InitialState())
	require.ErrorContains(t, err, "malformed tensor")
}

func TestForcedPlayoutsKeepPolicyWellFormed(t *testing.T) {
	g := game.NewChips(10)
	eval := stubPredictor{policy: []float64{0.9, 0.05, 0.05}}

	run := func() []float64 {
		m := New(g, eval, WithSimulations(200), WithForcedPlayouts())
		probs, _, err := m.Search(g.InitialState())
		require.NoError(t, err)
		return probs
	}

	probs := run()
	sum := 0.0
	for _, p := range probs {
		require.GreaterOrEqual(t, p, 0.0, "stripping forced visits must not go negative")
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-9)
	require.Equal(t, probs, run(), "forced playouts are deterministic without noise")
}
