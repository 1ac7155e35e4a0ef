package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore records every snapshot it is handed.
type memStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
	fail  bool
}

var errDiskFull = errors.New("disk full")

func (s *memStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *memStore) Save(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errDiskFull
	}
	s.data = append([]byte(nil), b...)
	s.saves++
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// newTestCache returns a cache with timers disabled and a fake clock.
func newTestCache[T any](t *testing.T, clock *fakeClock, store Store) *Cache[T] {
	t.Helper()
	c := New[T](Options{
		SaveInterval:  -1,
		SweepInterval: -1,
		Store:         store,
		Clock:         clock,
		Logger:        nopLogger(),
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}
