package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"classattend/internal/attendance"
	"classattend/internal/metrics"
)

// Store is a read-through Redis cache over an attendance.Store. History and
// statistics are cached under a per-class generation; CommitBatch bumps the
// generation so older entries are never read again and simply expire.
// Redis trouble is logged and bypassed.
type Store struct {
	next   attendance.Store
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    zerolog.Logger
}

var _ attendance.Store = (*Store)(nil)

// New wraps next. A non-positive ttl defaults to ten minutes.
func New(next attendance.Store, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: "attendance:cache",
		log:    logger.With().Str("component", "attendance_cache").Logger(),
	}
}

func (s *Store) genKey(classID string) string {
	return s.prefix + ":gen:" + classID
}

func (s *Store) generation(ctx context.Context, classID string) (int64, error) {
	gen, err := s.client.Get(ctx, s.genKey(classID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (s *Store) key(classID string, gen int64, kind string, parts ...attendance.Date) string {
	k := s.prefix + ":" + classID + ":" + strconv.FormatInt(gen, 10) + ":" + kind
	for _, p := range parts {
		k += ":" + string(p)
	}
	return k
}

// lookup fills dst from the cache. It returns the key to populate on a
// miss, or "" when the cache must be bypassed.
func (s *Store) lookup(ctx context.Context, classID, kind string, dst any, parts ...attendance.Date) (hit bool, key string) {
	gen, err := s.generation(ctx, classID)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
		s.log.Warn().Err(err).Str("class_id", classID).Msg("cache generation lookup failed")
		return false, ""
	}
	key = s.key(classID, gen, kind, parts...)
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == redis.Nil:
		metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
		return false, key
	case err != nil:
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false, ""
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		return false, key
	}
	metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
	return true, key
}

func (s *Store) fill(ctx context.Context, key string, v any) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// FetchByClassAndDate always goes to the backing store.
func (s *Store) FetchByClassAndDate(ctx context.Context, classID string, date attendance.Date) ([]attendance.Record, error) {
	return s.next.FetchByClassAndDate(ctx, classID, date)
}

// FetchHistory implements attendance.Store.
func (s *Store) FetchHistory(ctx context.Context, classID string, since attendance.Date) ([]attendance.Record, error) {
	var records []attendance.Record
	hit, key := s.lookup(ctx, classID, "history", &records, since)
	if hit {
		return records, nil
	}
	records, err := s.next.FetchHistory(ctx, classID, since)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, key, records)
	return records, nil
}

// FetchStatistics implements attendance.Store.
func (s *Store) FetchStatistics(ctx context.Context, classID string, from, to attendance.Date) (attendance.Statistics, error) {
	var stats attendance.Statistics
	hit, key := s.lookup(ctx, classID, "stats", &stats, from, to)
	if hit {
		return stats, nil
	}
	stats, err := s.next.FetchStatistics(ctx, classID, from, to)
	if err != nil {
		return attendance.Statistics{}, err
	}
	s.fill(ctx, key, stats)
	return stats, nil
}

// CommitBatch delegates, then invalidates the class on success.
func (s *Store) CommitBatch(ctx context.Context, classID string, date attendance.Date, entries []attendance.Entry, recordedBy string) error {
	if err := s.next.CommitBatch(ctx, classID, date, entries, recordedBy); err != nil {
		return err
	}
	s.Invalidate(ctx, classID)
	return nil
}

// Invalidate retires every cached entry of a class.
func (s *Store) Invalidate(ctx context.Context, classID string) {
	if err := s.client.Incr(ctx, s.genKey(classID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("class_id", classID).Msg("cache invalidation failed")
	}
}
