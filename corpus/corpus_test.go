package corpus

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeBatch(iteration, size int) Batch {
	examples := make([]Example, size)
	for i := range examples {
		examples[i] = Example{
			Encoding:  []float64{float64(iteration), float64(i)},
			Policy:    []float64{0.25, 0.75},
			Value:     1 - 2*float64(i%2),
			Iteration: iteration,
		}
	}
	return Batch{Iteration: iteration, Examples: examples}
}

func TestCorpusAppendAndAll(t *testing.T) {
	c := New(5, 1000)
	c.Append(makeBatch(1, 3))
	c.Append(makeBatch(2, 2))

	require.Equal(t, 5, c.Len())
	require.Equal(t, 2, c.Batches())

	all := c.All()
	require.Len(t, all, 5)
	require.Equal(t, 1, all[0].Iteration, "examples come back oldest batch first")
	require.Equal(t, 2, all[4].Iteration)
}

func TestCorpusEvictsBeyondHistoryWindow(t *testing.T) {
	c := New(2, 1000)
	c.Append(makeBatch(1, 2))
	c.Append(makeBatch(2, 2))
	c.Append(makeBatch(3, 2))

	require.Equal(t, 2, c.Batches(), "window keeps the two most recent iterations")
	require.Equal(t, 2, c.All()[0].Iteration, "the oldest batch is evicted wholesale")
}

func TestCorpusEvictsBeyondExampleCeiling(t *testing.T) {
	c := New(5, 10)
	c.Append(makeBatch(1, 6))
	c.Append(makeBatch(2, 6))

	require.Equal(t, 1, c.Batches(), "ceiling breach evicts the oldest iteration, not single examples")
	require.Equal(t, 6, c.Len())
	require.Equal(t, 2, c.All()[0].Iteration)
}

func TestCorpusKeepsOversizedNewestBatch(t *testing.T) {
	c := New(5, 10)
	c.Append(makeBatch(1, 20))
	require.Equal(t, 1, c.Batches(), "the newest batch survives even over the ceiling")
	require.Equal(t, 20, c.Len())

	c.Append(makeBatch(2, 5))
	require.Equal(t, 1, c.Batches())
	require.Equal(t, 5, c.Len(), "the oversized old batch goes first")
}

func TestCorpusSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.parquet")

	saved := New(5, 1000)
	saved.Append(makeBatch(1, 3))
	saved.Append(makeBatch(2, 4))
	require.NoError(t, saved.Save(path))

	loaded := New(5, 1000)
	require.NoError(t, loaded.Load(path))

	require.Equal(t, saved.Batches(), loaded.Batches())
	require.Equal(t, saved.Len(), loaded.Len())
	require.Equal(t, saved.All(), loaded.All(), "persistence must round-trip exactly")
}

func TestCorpusLoadAppliesRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.parquet")

	saved := New(5, 1000)
	saved.Append(makeBatch(1, 2))
	saved.Append(makeBatch(2, 2))
	saved.Append(makeBatch(3, 2))
	require.NoError(t, saved.Save(path))

	loaded := New(2, 1000)
	require.NoError(t, loaded.Load(path))
	require.Equal(t, 2, loaded.Batches(), "loading re-applies the receiver's retention limits")
	require.Equal(t, 2, loaded.All()[0].Iteration)
}

func TestCorpusLoadMissingFile(t *testing.T) {
	c := New(2, 1000)
	require.Error(t, c.Load(filepath.Join(t.TempDir(), "missing.parquet")))
}
