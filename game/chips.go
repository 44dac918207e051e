package game

import (
	"fmt"
	"strconv"
)

// Chips is a small resource-collection game used for smoke runs and tests:
// players alternate taking 1 to 3 chips from a shared pile, and whoever takes
// the last chip wins. Action i means "take i+1 chips".
type Chips struct {
	Pile int
}

func NewChips(pile int) *Chips {
	if pile < 1 {
		panic("pile must hold at least one chip")
	}
	return &Chips{Pile: pile}
}

type chipsState struct {
	remaining int
	player    int
}

func (s chipsState) Player() int { return s.player }

func (s chipsState) Fingerprint() string { return strconv.Itoa(s.remaining) }

func (g *Chips) InitialState() State {
	return chipsState{remaining: g.Pile, player: 1}
}

func (g *Chips) ActionSpace() int { return 3 }

func (g *Chips) LegalActions(s State) []bool {
	cs := s.(chipsState)
	mask := make([]bool, g.ActionSpace())
	for i := range mask {
		mask[i] = i+1 <= cs.remaining
	}
	return mask
}

func (g *Chips) Apply(s State, a Action) (State, error) {
	cs := s.(chipsState)
	take := int(a) + 1
	if a < 0 || int(a) >= g.ActionSpace() || take > cs.remaining {
		return nil, fmt.Errorf("illegal action %d with %d chips remaining", a, cs.remaining)
	}
	return chipsState{remaining: cs.remaining - take, player: -cs.player}, nil
}

func (g *Chips) Outcome(s State) (float64, bool) {
	cs := s.(chipsState)
	if cs.remaining > 0 {
		return 0, false
	}
	// The opponent took the last chip, so the side to move has lost.
	return -1, true
}

// Encode is a one-hot over the remaining pile size. The count alone
// determines the position, so the encoding is canonical for either side.
func (g *Chips) Encode(s State) []float64 {
	cs := s.(chipsState)
	enc := make([]float64, g.Pile+1)
	enc[cs.remaining] = 1
	return enc
}
