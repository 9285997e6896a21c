package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink persists records to Redis. Each record lives under its own key
// and is tracked in a set for enumeration.
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	TTL      time.Duration // Time-to-live for records (0 means no expiration)
}

// NewRedisSink creates a Redis-backed record sink.
func NewRedisSink(config *RedisConfig) *RedisSink {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "convoflow:records:",
			TTL:    0,
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisSink{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

// Save writes the record and registers its key in the index set.
func (s *RedisSink) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := s.prefix + rec.ID
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store record in Redis: %w", err)
	}

	setKey := s.prefix + "set"
	if err := s.client.SAdd(ctx, setKey, key).Err(); err != nil {
		return fmt.Errorf("failed to index record key: %w", err)
	}

	return nil
}

// List retrieves all stored records. Keys that expired since indexing are
// pruned from the set as they are encountered.
func (s *RedisSink) List(ctx context.Context) ([]*Record, error) {
	setKey := s.prefix + "set"
	keys, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list record keys: %w", err)
	}

	records := make([]*Record, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				s.client.SRem(ctx, setKey, key)
				continue
			}
			return nil, fmt.Errorf("failed to get record: %w", err)
		}

		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, &rec)
	}

	return records, nil
}

// Count returns the number of indexed records.
func (s *RedisSink) Count(ctx context.Context) (int, error) {
	count, err := s.client.SCard(ctx, s.prefix+"set").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(count), nil
}

// Clear removes all records and the index set.
func (s *RedisSink) Clear(ctx context.Context) error {
	setKey := s.prefix + "set"
	keys, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list record keys: %w", err)
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete records: %w", err)
		}
	}

	if err := s.client.Del(ctx, setKey).Err(); err != nil {
		return fmt.Errorf("failed to delete record index: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// Ping checks if the Redis connection is alive.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
