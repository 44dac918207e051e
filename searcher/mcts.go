package searcher

import (
	"fmt"
	"math"
	"time"

	"azero/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// Predictor is the slice of the evaluator the search engine needs: a pure
// function from a canonically encoded state and its legal-action mask to
// prior action probabilities and a value estimate in [-1, 1].
type Predictor interface {
	Predict(encoding []float64, legal []bool) (policy []float64, value float64, err error)
}

const (
	DefaultSimulations = 1600
	DefaultCpuct       = 1.0

	// noiseEpsilon is the mixing weight for Dirichlet noise at the root:
	// P' = (1-eps)*P + eps*Dir(alpha).
	noiseEpsilon = 0.25

	// forcedK scales the forced-playout bound: an action is forced while
	// N(s,a) < sqrt(forcedK * P(s,a) * N(s)).
	forcedK = 2.0

	// unexploredBias keeps priors ordering selection before any edge of a
	// node has been visited.
	unexploredBias = 1e-8
)

type Option func(*MCTS)

func WithSimulations(sims int) Option {
	return func(m *MCTS) {
		if sims > 0 {
			m.sims = sims
		}
	}
}

func WithCpuct(c float64) Option {
	return func(m *MCTS) {
		if c > 0 {
			m.cpuct = c
		}
	}
}

// WithRootNoise mixes Dirichlet(alpha) noise into the root priors. Leave it
// off for deterministic evaluation-time search.
func WithRootNoise(alpha float64) Option {
	return func(m *MCTS) {
		if alpha > 0 {
			m.rootNoise = true
			m.alpha = alpha
		}
	}
}

// WithForcedPlayouts guarantees exploration of actions whose prior justifies
// more visits than selection has granted them. The extra visits are stripped
// again when the visit counts are converted into the reported policy.
func WithForcedPlayouts() Option {
	return func(m *MCTS) {
		m.forced = true
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(m *MCTS) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// MCTS is a PUCT-guided tree search over a statistics tree keyed by state
// fingerprint. The tree is transient: every Search call starts from empty
// statistics, so nothing leaks between moves or games. An MCTS value is not
// safe for concurrent use; run one per worker.
type MCTS struct {
	game      game.Game
	predict   Predictor
	sims      int
	cpuct     float64
	alpha     float64
	rootNoise bool
	forced    bool
	rng       *rand.Rand
	nodes     map[string]*node
}

func New(g game.Game, p Predictor, options ...Option) *MCTS {
	m := &MCTS{
		game:    g,
		predict: p,
		sims:    DefaultSimulations,
		cpuct:   DefaultCpuct,
		rng:     rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Search runs the configured number of simulations from root and returns the
// normalized visit-count distribution over the action space together with the
// root's mean backed-up value.
func (m *MCTS) Search(root game.State) ([]float64, float64, error) {
	if _, terminal := m.game.Outcome(root); terminal {
		return nil, 0, fmt.Errorf("search from terminal state %q", root.Fingerprint())
	}

	m.nodes = make(map[string]*node)

	// The first simulation expands the root; noise is mixed in once so every
	// later simulation sees the same perturbed priors.
	rootNode, value, err := m.expand(root)
	if err != nil {
		return nil, 0, err
	}
	if m.rootNoise {
		m.mixNoise(rootNode)
	}

	total := value
	for i := 1; i < m.sims; i++ {
		v, err := m.simulate(root, true)
		if err != nil {
			return nil, 0, err
		}
		total += v
	}

	return m.policyTarget(rootNode), total / float64(m.sims), nil
}

// simulate walks the tree from s, expands one leaf, and returns the leaf
// value from the perspective of the side to move at s.
func (m *MCTS) simulate(s game.State, isRoot bool) (float64, error) {
	if value, terminal := m.game.Outcome(s); terminal {
		// Exact outcome, not the evaluator's estimate.
		return value, nil
	}

	n, ok := m.nodes[s.Fingerprint()]
	if !ok {
		_, value, err := m.expand(s)
		return value, err
	}

	a, forced := m.selectAction(n, isRoot)
	next, err := m.game.Apply(s, game.Action(a))
	if err != nil {
		return 0, fmt.Errorf("search selected illegal action %d at %q: %w", a, s.Fingerprint(), err)
	}

	child, err := m.simulate(next, false)
	if err != nil {
		return 0, err
	}

	// Alternating-player perspective: the child's value is negated one ply up.
	v := -child
	n.edgeN[a]++
	n.edgeW[a] += v
	n.visits++
	if forced {
		n.forced[a]++
	}
	return v, nil
}

// selectAction picks the edge maximizing the PUCT score
// Q(s,a) + cpuct * P(s,a) * sqrt(N(s)) / (1 + N(s,a)), ties broken by the
// first legal action index.
func (m *MCTS) selectAction(n *node, isRoot bool) (int, bool) {
	if m.forced && isRoot {
		if a := m.forcedAction(n); a >= 0 {
			return a, true
		}
	}

	sqrtN := math.Sqrt(float64(n.visits))
	if n.visits == 0 {
		sqrtN = unexploredBias
	}

	best := -1
	bestScore := math.Inf(-1)
	for a := range n.priors {
		if !n.legal[a] {
			continue
		}
		score := n.q(a) + m.cpuct*n.priors[a]*sqrtN/(1+float64(n.edgeN[a]))
		if score > bestScore {
			bestScore = score
			best = a
		}
	}
	if best < 0 {
		panic("no legal action at expanded node")
	}
	return best, false
}

// forcedAction returns the first legal action still owed forced visits, or -1.
func (m *MCTS) forcedAction(n *node) int {
	for a := range n.priors {
		if !n.legal[a] || n.priors[a] <= 0 {
			continue
		}
		bound := math.Sqrt(forcedK * n.priors[a] * float64(n.visits))
		if float64(n.edgeN[a]) < bound {
			return a
		}
	}
	return -1
}

// expand queries the evaluator once, masks illegal actions out of the policy,
// and registers the new node.
func (m *MCTS) expand(s game.State) (*node, float64, error) {
	legal := m.game.LegalActions(s)
	anyLegal := false
	for _, ok := range legal {
		if ok {
			anyLegal = true
			break
		}
	}
	if !anyLegal {
		return nil, 0, fmt.Errorf("non-terminal state %q has no legal actions", s.Fingerprint())
	}

	policy, value, err := m.predict.Predict(m.game.Encode(s), legal)
	if err != nil {
		return nil, 0, fmt.Errorf("evaluator failed at %q: %w", s.Fingerprint(), err)
	}
	if len(policy) != len(legal) {
		return nil, 0, fmt.Errorf("evaluator returned %d priors for %d actions", len(policy), len(legal))
	}

	priors := make([]float64, len(policy))
	sum := 0.0
	for a, p := range policy {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, 0, fmt.Errorf("non-finite prior for action %d at %q", a, s.Fingerprint())
		}
		if legal[a] && p > 0 {
			priors[a] = p
			sum += p
		}
	}
	if sum > 0 {
		for a := range priors {
			priors[a] /= sum
		}
	} else {
		// The evaluator put all its mass on illegal actions. Keep searching
		// with uniform priors over the legal ones.
		log.Warn().Str("state", s.Fingerprint()).Msg("all legal actions were masked, falling back to uniform priors")
		count := 0
		for _, ok := range legal {
			if ok {
				count++
			}
		}
		for a, ok := range legal {
			if ok {
				priors[a] = 1 / float64(count)
			}
		}
	}

	n := newNode(legal, priors)
	m.nodes[s.Fingerprint()] = n
	return n, value, nil
}

// mixNoise perturbs the root priors with symmetric Dirichlet noise.
func (m *MCTS) mixNoise(n *node) {
	legal := make([]int, 0, len(n.legal))
	for a, ok := range n.legal {
		if ok {
			legal = append(legal, a)
		}
	}
	if len(legal) < 2 {
		return
	}

	alpha := make([]float64, len(legal))
	for i := range alpha {
		alpha[i] = m.alpha
	}
	noise := distmv.NewDirichlet(alpha, m.rng).Rand(nil)

	sum := 0.0
	for i, a := range legal {
		n.priors[a] = (1-noiseEpsilon)*n.priors[a] + noiseEpsilon*noise[i]
		sum += n.priors[a]
	}
	for _, a := range legal {
		n.priors[a] /= sum
	}
}

// policyTarget converts the root's visit counts into an action distribution.
// Forced visits are subtracted from every action except the raw-visit argmax
// so the target reflects genuine search preference.
func (m *MCTS) policyTarget(n *node) []float64 {
	counts := make([]float64, len(n.edgeN))
	total := 0
	best := -1
	for a, c := range n.edgeN {
		counts[a] = float64(c)
		total += c
		if best < 0 || c > n.edgeN[best] {
			best = a
		}
	}

	if total == 0 {
		// Budget too small to visit any edge: fall back to the top prior.
		top := -1
		for a, ok := range n.legal {
			if ok && (top < 0 || n.priors[a] > n.priors[top]) {
				top = a
			}
		}
		counts[top] = 1
		return counts
	}

	if m.forced {
		for a := range counts {
			if a == best {
				continue
			}
			counts[a] = math.Max(0, counts[a]-float64(n.forced[a]))
		}
	}

	sum := 0.0
	for _, c := range counts {
		sum += c
	}
	for a := range counts {
		counts[a] /= sum
	}
	return counts
}
