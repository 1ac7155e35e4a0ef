package cache

import (
	"fmt"
	"time"
)

// Stats are the counters persisted alongside the entries.
type Stats struct {
	Hits      uint64    `json:"hits"`
	Misses    uint64    `json:"misses"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// HitRate formats hits/(hits+misses) as a percentage with two decimals.
// It returns "0%" until the first lookup.
func (s Stats) HitRate() string {
	total := s.Hits + s.Misses
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(s.Hits)/float64(total)*100)
}

// Ratio is the hit rate as a fraction in [0, 1].
func (s Stats) Ratio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Report is what Cache.Stats hands to callers.
type Report struct {
	Stats
	HitRate string `json:"hitRate"`
}

func newReport(s Stats) Report {
	return Report{Stats: s, HitRate: s.HitRate()}
}
