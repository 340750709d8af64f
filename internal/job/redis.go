package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time check that RedisRepository implements Repository.
var _ Repository = (*RedisRepository)(nil)

const (
	redisKeyPrefix = "magichour:event:"
	redisIndexKey  = "magichour:events"
)

// RedisRepository implements Repository on top of Redis.
// Keys: magichour:event:<project id> => JSON(EventRecord)
// Sorted set for listing: magichour:events (score: received at, unix nanos)
// Index entries outlive their records; Save trims entries older than the TTL
// and List drops the ones whose record is gone.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisRepository wraps an existing client. A zero ttl keeps records forever.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl, now: time.Now}
}

// NewRedisRepositoryFromURL parses a redis:// URL and builds a repository.
func NewRedisRepositoryFromURL(rawURL string, ttl time.Duration) (*RedisRepository, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("job: parse redis url: %w", err)
	}
	return NewRedisRepository(redis.NewClient(opts), ttl), nil
}

func eventKey(projectID string) string { return redisKeyPrefix + projectID }

// Save stores ev and indexes it by receive time.
func (r *RedisRepository) Save(ctx context.Context, ev EventRecord) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("job: marshal event: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, eventKey(ev.ProjectID), b, r.ttl)
	pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(ev.ReceivedAt.UnixNano()), Member: ev.ProjectID})
	if r.ttl > 0 {
		cutoff := r.now().Add(-r.ttl).UnixNano()
		pipe.ZRemRangeByScore(ctx, redisIndexKey, "-inf", "("+strconv.FormatInt(cutoff, 10))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("job: save event: %w", err)
	}
	return nil
}

// Latest loads the record of a project.
func (r *RedisRepository) Latest(ctx context.Context, projectID string) (EventRecord, error) {
	val, err := r.client.Get(ctx, eventKey(projectID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return EventRecord{}, ErrEventNotFound
		}
		return EventRecord{}, fmt.Errorf("job: load event: %w", err)
	}
	var ev EventRecord
	if err := json.Unmarshal(val, &ev); err != nil {
		return EventRecord{}, fmt.Errorf("job: decode event: %w", err)
	}
	return ev, nil
}

// List returns all indexed records, most recent first. Index entries whose
// record has expired are skipped and removed.
func (r *RedisRepository) List(ctx context.Context) ([]EventRecord, error) {
	ids, err := r.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("job: list events: %w", err)
	}
	result := make([]EventRecord, 0, len(ids))
	var expired []any
	for _, id := range ids {
		ev, err := r.Latest(ctx, id)
		if errors.Is(err, ErrEventNotFound) {
			expired = append(expired, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	if len(expired) > 0 {
		if err := r.client.ZRem(ctx, redisIndexKey, expired...).Err(); err != nil {
			return nil, fmt.Errorf("job: prune event index: %w", err)
		}
	}
	return result, nil
}

// Delete removes the record and its index entry.
func (r *RedisRepository) Delete(ctx context.Context, projectID string) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, eventKey(projectID))
	pipe.ZRem(ctx, redisIndexKey, projectID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("job: delete event: %w", err)
	}
	if del.Val() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
