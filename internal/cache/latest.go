package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"smart_office/internal/models"
)

const (
	latestKeyPrefix  = "sensor:latest:"
	DefaultLatestTTL = 24 * time.Hour
)

// LatestKey is the cache key holding a device's newest reading.
func LatestKey(deviceID string) string {
	return latestKeyPrefix + deviceID
}

// LatestStore keeps the newest normalized reading per device in Redis.
type LatestStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLatestStore(rdb *redis.Client, ttl time.Duration) *LatestStore {
	if ttl <= 0 {
		ttl = DefaultLatestTTL
	}
	return &LatestStore{rdb: rdb, ttl: ttl}
}

// Open builds a Redis client and pings it. The client is returned even when
// the ping fails; go-redis reconnects on later commands.
func Open(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return rdb, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *LatestStore) PutLatest(ctx context.Context, r models.LatestReading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal latest reading: %w", err)
	}
	if err := s.rdb.Set(ctx, LatestKey(r.DeviceID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache latest for %q: %w", r.DeviceID, err)
	}
	return nil
}

// GetLatest returns (nil, nil) on a cache miss.
func (s *LatestStore) GetLatest(ctx context.Context, deviceID string) (*models.LatestReading, error) {
	b, err := s.rdb.Get(ctx, LatestKey(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cached latest for %q: %w", deviceID, err)
	}
	var r models.LatestReading
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode cached latest for %q: %w", deviceID, err)
	}
	return &r, nil
}
