package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/m3rciful/releasebot/core/logger"
)

const redisKeyPrefix = "releasebot:conv:"

// DialRedis opens a client and checks the server answers.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

// RedisClient is the subset of *redis.Client the registry uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisRegistry stores conversations as JSON under one key per sender.
// Entries expire after ttl so abandoned dialogues do not pile up.
type RedisRegistry struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisRegistry wraps client. A ttl of zero keeps entries forever.
func NewRedisRegistry(client RedisClient, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

func (r *RedisRegistry) key(senderID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, senderID)
}

// Get loads the sender's conversation. A missing key is not an error. An
// entry that no longer decodes is deleted and reported as absent so the
// sender can start over.
func (r *RedisRegistry) Get(ctx context.Context, senderID int64) (Conversation, bool, error) {
	key := r.key(senderID)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Conversation{}, false, nil
	}
	if err != nil {
		return Conversation{}, false, fmt.Errorf("registry get %d: %w", senderID, err)
	}
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		logger.Warn(ctx, component, "registry.decode",
			slog.String("status", "dropped"),
			slog.Int64("sender_id", senderID),
			slog.String("err", err.Error()),
		)
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return Conversation{}, false, fmt.Errorf("registry drop %d: %w", senderID, err)
		}
		return Conversation{}, false, nil
	}
	return c, true, nil
}

// Set overwrites the sender's key and refreshes its expiry.
func (r *RedisRegistry) Set(ctx context.Context, senderID int64, c Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(senderID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("registry set %d: %w", senderID, err)
	}
	return nil
}

// Clear deletes the sender's key.
func (r *RedisRegistry) Clear(ctx context.Context, senderID int64) error {
	if err := r.client.Del(ctx, r.key(senderID)).Err(); err != nil {
		return fmt.Errorf("registry clear %d: %w", senderID, err)
	}
	return nil
}

// Ping checks the backing server.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
