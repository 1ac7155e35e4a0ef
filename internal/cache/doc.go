// Package cache implements the response cache behind the APOD proxy.
//
// A Cache holds JSON-serializable payloads under string keys. Every entry
// carries a Kind that selects its time-to-live from a Policy; expired entries
// are dropped lazily on Get and eagerly by a periodic sweep. When the entry
// count passes MaxEntries the oldest fifth of the entries is pruned in one
// batch.
//
// The full state (entries and hit/miss statistics) is written to a Store as a
// single JSON snapshot: on a timer, after clears, after sweeps that removed
// something, and once on Close. A new Cache adopts the snapshot it finds, so a
// restarted process does not have to go back upstream.
package cache
