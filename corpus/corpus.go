package corpus

import (
	"github.com/rs/zerolog/log"
)

// Example is one self-play training example. Value is the final game outcome
// in [-1, 1] from the perspective of the side to move at the recorded
// position. Examples are immutable once created.
type Example struct {
	Encoding  []float64
	Policy    []float64
	Value     float64
	Iteration int
}

// Batch groups the examples produced by one self-play iteration. Eviction
// happens at batch granularity so a retained batch always preserves the
// statistical mix of its generation.
type Batch struct {
	Iteration int
	Examples  []Example
}

// Corpus is the rolling training window: at most maxBatches iteration batches
// are retained, subject also to a ceiling on the total example count. When
// either limit would be exceeded the oldest batch is evicted wholesale.
//
// A Corpus is not safe for concurrent use; the coordinator mutates it between
// iterations only.
type Corpus struct {
	batches     []Batch
	maxBatches  int
	maxExamples int
	total       int
}

func New(maxBatches, maxExamples int) *Corpus {
	if maxBatches < 1 {
		panic("corpus must retain at least one batch")
	}
	if maxExamples < 1 {
		panic("corpus example ceiling must be positive")
	}
	return &Corpus{maxBatches: maxBatches, maxExamples: maxExamples}
}

// Append commits one iteration's examples and applies the retention policy.
func (c *Corpus) Append(b Batch) {
	c.batches = append(c.batches, b)
	c.total += len(b.Examples)
	c.enforce()
}

func (c *Corpus) enforce() {
	// The newest batch is never evicted, even when it alone exceeds the
	// example ceiling.
	for len(c.batches) > 1 && (len(c.batches) > c.maxBatches || c.total > c.maxExamples) {
		oldest := c.batches[0]
		c.batches = c.batches[1:]
		c.total -= len(oldest.Examples)
		log.Info().
			Int("iteration", oldest.Iteration).
			Int("examples", len(oldest.Examples)).
			Msg("evicted oldest corpus batch")
	}
}

// All returns the retained examples, oldest batch first.
func (c *Corpus) All() []Example {
	all := make([]Example, 0, c.total)
	for _, b := range c.batches {
		all = append(all, b.Examples...)
	}
	return all
}

// Len returns the total number of retained examples.
func (c *Corpus) Len() int { return c.total }

// Batches returns the number of retained iteration batches.
func (c *Corpus) Batches() int { return len(c.batches) }
