package cache

import (
	"math"
	"sort"
)

// pruneLocked evicts the oldest entries by write time once the cache holds
// more than MaxEntries. It removes floor(count*PruneFraction) entries, or
// enough to get back under the cap if that is more. Caller holds c.mu.
func (c *Cache[T]) pruneLocked() int {
	count := len(c.entries)
	if count <= c.opts.MaxEntries {
		return 0
	}
	n := int(math.Floor(float64(count) * c.opts.PruneFraction))
	if over := count - c.opts.MaxEntries; n < over {
		n = over
	}

	oldest := make([]*record[T], 0, count)
	for _, r := range c.entries {
		oldest = append(oldest, r)
	}
	sort.Slice(oldest, func(i, j int) bool {
		if oldest[i].Timestamp != oldest[j].Timestamp {
			return oldest[i].Timestamp < oldest[j].Timestamp
		}
		return oldest[i].seq < oldest[j].seq
	})
	for _, r := range oldest[:n] {
		delete(c.entries, r.key)
	}
	return n
}
