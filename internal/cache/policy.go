package cache

import "time"

// Kind tags an entry with the TTL policy it was stored under.
type Kind string

const (
	KindToday   Kind = "today"
	KindDate    Kind = "date"
	KindRange   Kind = "range"
	KindRandom  Kind = "random"
	KindDefault Kind = "default"
)

// DefaultTTL applies to any kind missing from a Policy.
const DefaultTTL = 24 * time.Hour

// Policy maps a Kind to the lifetime of entries stored under it.
type Policy map[Kind]time.Duration

// DefaultPolicy returns the TTL table used by the APOD proxy. Today's picture
// changes daily; published dates never change.
func DefaultPolicy() Policy {
	return Policy{
		KindToday:   time.Hour,
		KindDate:    30 * 24 * time.Hour,
		KindRange:   7 * 24 * time.Hour,
		KindRandom:  4 * time.Hour,
		KindDefault: DefaultTTL,
	}
}

// TTL returns the lifetime for kind. Unknown kinds fall back to the policy's
// KindDefault entry, then to DefaultTTL. Negative values are treated as zero.
func (p Policy) TTL(kind Kind) time.Duration {
	ttl, ok := p[kind]
	if !ok {
		ttl, ok = p[KindDefault]
		if !ok {
			ttl = DefaultTTL
		}
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}
