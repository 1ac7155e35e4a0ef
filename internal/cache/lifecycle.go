package cache

import (
	"context"
	"time"
)

// maintenanceLoop runs the periodic save and the periodic sweep until Close.
// A non-positive interval leaves that ticker out.
func (c *Cache[T]) maintenanceLoop(saveEvery, sweepEvery time.Duration) {
	defer c.wg.Done()

	var saveC, sweepC <-chan time.Time
	if saveEvery > 0 {
		t := time.NewTicker(saveEvery)
		defer t.Stop()
		saveC = t.C
	}
	if sweepEvery > 0 {
		t := time.NewTicker(sweepEvery)
		defer t.Stop()
		sweepC = t.C
	}

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-saveC:
			c.persist("interval")
		case <-sweepC:
			c.Sweep()
		}
	}
}

// Close stops the maintenance loop and writes the final snapshot. Only the
// first call does any work; later calls return nil.
func (c *Cache[T]) Close() error {
	first := false
	c.closeOnce.Do(func() {
		first = true
		// No triggered save may start once the final one is pending.
		c.closed.Store(true)
		c.cancel()
		c.wg.Wait()

		c.closeErr = c.Save()
		if c.closeErr != nil {
			c.log.Error().Err(c.closeErr).Msg("final snapshot write failed")
			return
		}
		c.log.Info().Int("size", c.Stats().Size).Msg("cache closed")
	})
	if !first {
		return nil
	}
	return c.closeErr
}

// CloseOnDone closes the cache once ctx is done. The returned channel is
// closed after the final snapshot has been written.
func (c *Cache[T]) CloseOnDone(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
		case <-c.ctx.Done():
		}
		_ = c.Close()
	}()
	return done
}
