package persistence

import (
	"context"
	"fmt"
	"time"

	"insight_server/core/domain"
	"insight_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix = "insight:snapshot:"
	settingsKeyPrefix = "insight:settings:"
)

// RedisStore keeps snapshots and settings in Redis as JSON values.
type RedisStore struct {
	client      *redis.Client
	snapshotTTL time.Duration // 0 = no expiry
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, snapshotTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, snapshotTTL: snapshotTTL}
}

// Save stores the snapshot as the latest for its mailbox.
func (s *RedisStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	return s.setJSON(ctx, snapshotKeyPrefix+snapshot.MailboxID, snapshot, s.snapshotTTL)
}

// Latest loads the latest snapshot of a mailbox.
func (s *RedisStore) Latest(ctx context.Context, mailboxID string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := s.getJSON(ctx, snapshotKeyPrefix+mailboxID, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete removes the snapshot of a mailbox.
func (s *RedisStore) Delete(ctx context.Context, mailboxID string) error {
	return s.client.Del(ctx, snapshotKeyPrefix+mailboxID).Err()
}

// Get loads the stored settings of a mailbox.
func (s *RedisStore) Get(ctx context.Context, mailboxID string) (*domain.AnalysisSettings, error) {
	var settings domain.AnalysisSettings
	if err := s.getJSON(ctx, settingsKeyPrefix+mailboxID, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings stores settings without expiry.
func (s *RedisStore) SaveSettings(ctx context.Context, mailboxID string, settings *domain.AnalysisSettings) error {
	return s.setJSON(ctx, settingsKeyPrefix+mailboxID, settings, 0)
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Settings returns the SettingsRepository view of the store.
func (s *RedisStore) Settings() out.SettingsRepository {
	return redisSettings{s}
}

type redisSettings struct{ s *RedisStore }

func (r redisSettings) Get(ctx context.Context, mailboxID string) (*domain.AnalysisSettings, error) {
	return r.s.Get(ctx, mailboxID)
}

func (r redisSettings) Save(ctx context.Context, mailboxID string, settings *domain.AnalysisSettings) error {
	return r.s.SaveSettings(ctx, mailboxID, settings)
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return out.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

var _ out.SnapshotRepository = (*RedisStore)(nil)
