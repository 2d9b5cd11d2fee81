package relays

import (
	"sort"

	cmap "github.com/orcaman/concurrent-map"
)

// Ranker orders relay addresses best-first. The zap pipeline only consumes
// the ordering, how scores are produced is the implementation's business.
type Ranker interface {
	Rank(urls []string) []string
}

// Scoreboard is a Ranker backed by per-relay scores. Callers report
// positive or negative observations (connect succeeded, publish timed out)
// and Rank sorts by the accumulated score, ties kept in first-seen order.
type Scoreboard struct {
	scores cmap.ConcurrentMap
}

func NewScoreboard() *Scoreboard {
	return &Scoreboard{scores: cmap.New()}
}

func (s *Scoreboard) Report(url string, delta float64) {
	score := s.Score(url) + delta
	s.scores.Set(url, score)
}

func (s *Scoreboard) Score(url string) float64 {
	if v, ok := s.scores.Get(url); ok {
		return v.(float64)
	}
	return 0
}

func (s *Scoreboard) Rank(urls []string) []string {
	ranked := make([]string, len(urls))
	copy(ranked, urls)
	sort.SliceStable(ranked, func(i, j int) bool {
		return s.Score(ranked[i]) > s.Score(ranked[j])
	})
	return ranked
}
