package game

// Action indexes into a game's fixed action space.
type Action int

// State is an immutable game position. Implementations must be safe to share
// across search branches: playing an action produces a new State and never
// mutates the receiver, since the same position may be reached through
// transpositions.
type State interface {
	// Player returns the side to move: +1 or -1.
	Player() int
	// Fingerprint identifies the state for search-tree lookup. States that
	// are equal must return the same fingerprint.
	Fingerprint() string
}

// Game bundles the rules of a two-player, alternating-move game. All methods
// must be pure functions of their inputs.
type Game interface {
	InitialState() State
	// ActionSpace returns the number of actions, fixed across all states.
	ActionSpace() int
	// LegalActions returns a mask of length ActionSpace marking the actions
	// playable in s.
	LegalActions(s State) []bool
	// Apply plays a on s and returns the successor state. Applying an illegal
	// action is an error.
	Apply(s State, a Action) (State, error)
	// Outcome reports whether s is terminal and, if so, its value in [-1, 1]
	// from the perspective of the side to move at s.
	Outcome(s State) (value float64, terminal bool)
	// Encode returns the canonical fixed-shape encoding of s, normalized to
	// the side to move, suitable as evaluator input.
	Encode(s State) []float64
}
