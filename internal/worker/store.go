package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aescanero/dago-rulekit/pkg/dsl"
)

// FactsKeyPrefix prefixes the Redis keys holding stored facts
const FactsKeyPrefix = "rulekit:facts:"

// ErrFactsNotFound is returned when no facts are stored for an id
var ErrFactsNotFound = errors.New("facts not found")

// FactsStore persists facts between passes
type FactsStore interface {
	Load(ctx context.Context, id string) (dsl.Facts, error)
	Save(ctx context.Context, id string, facts dsl.Facts) error
}

// Publisher publishes JSON events to a stream
type Publisher interface {
	Publish(ctx context.Context, stream string, event interface{}) error
}

// FactsKey returns the Redis key for an id
func FactsKey(id string) string {
	return FactsKeyPrefix + id
}

// RedisFactsStore implements FactsStore using Redis string keys holding JSON
type RedisFactsStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFactsStore creates a new Redis facts store. A zero ttl keeps facts forever.
func NewRedisFactsStore(client *redis.Client, ttl time.Duration) *RedisFactsStore {
	return &RedisFactsStore{
		client: client,
		ttl:    ttl,
	}
}

// Save saves facts
func (s *RedisFactsStore) Save(ctx context.Context, id string, facts dsl.Facts) error {
	data, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("failed to marshal facts: %w", err)
	}

	if err := s.client.Set(ctx, FactsKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save facts: %w", err)
	}

	return nil
}

// Load loads facts
func (s *RedisFactsStore) Load(ctx context.Context, id string) (dsl.Facts, error) {
	data, err := s.client.Get(ctx, FactsKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w for id %s", ErrFactsNotFound, id)
		}
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}

	var facts dsl.Facts
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal facts: %w", err)
	}

	return facts, nil
}

// RedisPublisher implements Publisher using Redis Streams
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish publishes an event to a stream under the "data" field
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
