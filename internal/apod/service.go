package apod

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leonardcser/apod-cache/internal/cache"
	"github.com/leonardcser/apod-cache/internal/logger"
)

// Cache is the part of cache.Cache the service uses.
type Cache interface {
	Get(key string) (json.RawMessage, bool)
	Set(key string, payload json.RawMessage, kind cache.Kind)
	Has(key string) bool
	Delete(key string) bool
}

const archiveIndexKey = "apod:archive:index"

// ErrNoArchive is returned by Search when the service has no archive index.
var ErrNoArchive = errors.New("apod: archive search is not configured")

// Service answers picture requests from the cache, going upstream on a miss.
// Concurrent misses for the same key share one upstream call.
type Service struct {
	cache   Cache
	src     Source
	archive *Archive
	group   singleflight.Group

	now     func() time.Time
	randInt func(n int64) int64
}

// NewService wires a cache to an upstream source. archive may be nil, in
// which case Search fails with ErrNoArchive.
func NewService(c Cache, src Source, archive *Archive) *Service {
	return &Service{
		cache:   c,
		src:     src,
		archive: archive,
		now:     time.Now,
		randInt: rand.Int64N,
	}
}

func (s *Service) today() time.Time { return truncateDay(s.now()) }

func todayKey(day time.Time) string { return "apod:today:" + day.Format(DateLayout) }

// Today returns the latest picture. It is cached under the date the upstream
// reports, which trails the UTC date for a few hours each night, so
// yesterday's key is consulted too.
func (s *Service) Today(ctx context.Context) (*Picture, error) {
	day := s.today()
	key := todayKey(day)
	if prev := todayKey(day.AddDate(0, 0, -1)); !s.cache.Has(key) && s.cache.Has(prev) {
		key = prev
	}
	if v, ok := lookup[*Picture](s, key); ok {
		return v, nil
	}
	return shared(ctx, s, "apod:today", cache.KindToday, func(p *Picture) string {
		if p.Date == "" {
			return todayKey(day)
		}
		return "apod:today:" + p.Date
	}, s.src.Today)
}

func (s *Service) ByDate(ctx context.Context, date string) (*Picture, error) {
	if _, err := ParseDate(date, s.now()); err != nil {
		return nil, err
	}
	return cached(ctx, s, dateKey(date), cache.KindDate, func(ctx context.Context) (*Picture, error) {
		return s.src.ByDate(ctx, date)
	})
}

func (s *Service) Range(ctx context.Context, start, end string) ([]Picture, error) {
	if _, _, err := ParseRange(start, end, s.now()); err != nil {
		return nil, err
	}
	key := "apod:range:" + start + "-" + end
	return cached(ctx, s, key, cache.KindRange, func(ctx context.Context) ([]Picture, error) {
		return s.src.Range(ctx, start, end)
	})
}

// Random picks a day uniformly between FirstDate and today. A day already
// cached by ByDate is served from that entry.
func (s *Service) Random(ctx context.Context) (*Picture, error) {
	span := int64(s.today().Sub(FirstDate).Hours()/24) + 1
	date := FirstDate.AddDate(0, 0, int(s.randInt(span))).Format(DateLayout)

	if s.cache.Has(dateKey(date)) {
		return s.ByDate(ctx, date)
	}
	return cached(ctx, s, "apod:random:"+date, cache.KindRandom, func(ctx context.Context) (*Picture, error) {
		return s.src.ByDate(ctx, date)
	})
}

// Search matches query against archive titles. The index is fetched once
// and cached with the default TTL.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]ArchiveEntry, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	index, err := cached(ctx, s, archiveIndexKey, cache.KindDefault, s.archive.Index)
	if err != nil {
		return nil, err
	}
	return Filter(index, query, limit), nil
}

func dateKey(date string) string { return "apod:date:" + date }

// FetchTimeout bounds one shared upstream fetch. The fetch outlives the
// caller that started it so callers joining it are not cancelled with it.
const FetchTimeout = 2 * time.Minute

// cached serves key from the cache or fetches and stores it.
func cached[V any](ctx context.Context, s *Service, key string, kind cache.Kind, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := lookup[V](s, key); ok {
		return v, nil
	}
	return shared(ctx, s, key, kind, func(V) string { return key }, fetch)
}

func lookup[V any](s *Service, key string) (V, bool) {
	var v V
	raw, ok := s.cache.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Warnf("dropping undecodable cache entry %s", key)
		s.cache.Delete(key)
		return v, false
	}
	return v, true
}

// shared runs fetch once per flight across concurrent callers and stores the
// result under keyOf(result). Each caller stops waiting when its own ctx is
// done; the fetch carries on for the others.
func shared[V any](ctx context.Context, s *Service, flight string, kind cache.Kind, keyOf func(V) string, fetch func(context.Context) (V, error)) (V, error) {
	var zero V
	ch := s.group.DoChan(flight, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()

		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		s.cache.Set(keyOf(v), raw, kind)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			logger.Debugf("upstream fetch for %s failed: %v", flight, res.Err)
			return zero, res.Err
		}
		if res.Shared {
			logger.Debugf("upstream fetch for %s shared", flight)
		}
		return res.Val.(V), nil
	}
}
