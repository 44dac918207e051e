package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChipsLegalActions(t *testing.T) {
	g := NewChips(10)

	t.Run("full pile allows every take", func(t *testing.T) {
		mask := g.LegalActions(g.InitialState())
		require.Equal(t, []bool{true, true, true}, mask)
	})

	t.Run("short pile masks oversized takes", func(t *testing.T) {
		state := g.InitialState()
		var err error
		// 10 -> 7 -> 4 -> 2
		for _, a := range []Action{2, 2, 1} {
			state, err = g.Apply(state, a)
			require.NoError(t, err)
		}
		mask := g.LegalActions(state)
		require.Equal(t, []bool{true, true, false}, mask, "cannot take 3 chips from a pile of 2")
	})
}

func TestChipsApply(t *testing.T) {
	g := NewChips(5)
	state := g.InitialState()

	next, err := g.Apply(state, 2)
	require.NoError(t, err)
	require.Equal(t, -1, next.Player(), "players alternate after each move")
	require.NotEqual(t, state.Fingerprint(), next.Fingerprint())

	_, err = g.Apply(next, 2)
	require.Error(t, err, "taking 3 chips from a pile of 2 is illegal")
}

func TestChipsOutcome(t *testing.T) {
	g := NewChips(3)
	state := g.InitialState()

	_, terminal := g.Outcome(state)
	require.False(t, terminal)

	state, err := g.Apply(state, 2) // take the whole pile
	require.NoError(t, err)

	value, terminal := g.Outcome(state)
	require.True(t, terminal)
	require.Equal(t, -1.0, value, "the side to move lost: the opponent took the last chip")
}

func TestChipsEncode(t *testing.T) {
	g := NewChips(4)
	enc := g.Encode(g.InitialState())
	require.Len(t, enc, 5)
	require.Equal(t, 1.0, enc[4], "encoding is one-hot on the remaining pile size")

	state, err := g.Apply(g.InitialState(), 1)
	require.NoError(t, err)
	enc = g.Encode(state)
	require.Equal(t, 1.0, enc[2])
}
