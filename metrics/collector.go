package metrics

import (
	"sync/atomic"
	"time"
)

// SelfPlayMetric summarizes one iteration's self-play phase.
type SelfPlayMetric struct {
	Episodes     int
	Examples     int
	FullSearches int
	FastSearches int
	Duration     time.Duration
}

// Collector aggregates self-play counters across concurrent workers.
type Collector interface {
	AddEpisode()
	AddExamples(n int)
	AddFullSearch()
	AddFastSearch()
	Complete() SelfPlayMetric
}

type collector struct {
	start    time.Time
	episodes atomic.Int64
	examples atomic.Int64
	full     atomic.Int64
	fast     atomic.Int64
}

func NewCollector() Collector {
	return &collector{start: time.Now()}
}

func (c *collector) AddEpisode()       { c.episodes.Add(1) }
func (c *collector) AddExamples(n int) { c.examples.Add(int64(n)) }
func (c *collector) AddFullSearch()    { c.full.Add(1) }
func (c *collector) AddFastSearch()    { c.fast.Add(1) }

func (c *collector) Complete() SelfPlayMetric {
	return SelfPlayMetric{
		Episodes:     int(c.episodes.Load()),
		Examples:     int(c.examples.Load()),
		FullSearches: int(c.full.Load()),
		FastSearches: int(c.fast.Load()),
		Duration:     time.Since(c.start),
	}
}

type dummyCollector struct{}

// NewDummyCollector returns a no-op collector for callers that do not record
// self-play metrics.
func NewDummyCollector() Collector { return dummyCollector{} }

func (dummyCollector) AddEpisode()              {}
func (dummyCollector) AddExamples(int)          {}
func (dummyCollector) AddFullSearch()           {}
func (dummyCollector) AddFastSearch()           {}
func (dummyCollector) Complete() SelfPlayMetric { return SelfPlayMetric{} }
