package config

import (
	"math"
	"sync/atomic"
)

// SearchSettings serves the search defaults and can be updated while
// queries read it.
type SearchSettings struct {
	minSimilarity atomic.Uint64
	maxLimit      atomic.Int64
}

// NewSearchSettings creates settings holding s
func NewSearchSettings(s SearchConfig) *SearchSettings {
	ss := &SearchSettings{}
	ss.Update(s)
	return ss
}

// Update replaces the settings
func (s *SearchSettings) Update(c SearchConfig) {
	s.minSimilarity.Store(math.Float64bits(c.MinSimilarity))
	s.maxLimit.Store(int64(c.MaxLimit))
}

func (s *SearchSettings) DefaultMinSimilarity() float64 {
	return math.Float64frombits(s.minSimilarity.Load())
}

func (s *SearchSettings) MaxLimit() int { return int(s.maxLimit.Load()) }
