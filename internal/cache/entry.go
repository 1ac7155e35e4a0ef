package cache

import "time"

// Entry is one cached payload as it appears in a snapshot. Timestamp and
// Expires are Unix milliseconds.
type Entry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
	Expires   int64 `json:"expires"`
	Type      Kind  `json:"type"`
}

// Expired reports whether the entry is logically absent at now.
func (e Entry[T]) Expired(now time.Time) bool {
	return now.UnixMilli() >= e.Expires
}

// record is the in-memory form of an entry. seq orders entries written in
// the same millisecond.
type record[T any] struct {
	Entry[T]
	key string
	seq uint64
}

func newEntry[T any](data T, kind Kind, now time.Time, ttl time.Duration) Entry[T] {
	created := now.UnixMilli()
	return Entry[T]{
		Data:      data,
		Timestamp: created,
		Expires:   created + ttl.Milliseconds(),
		Type:      kind,
	}
}
