package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tokenmart/storefront-sdk/pkg/types"
)

const userKeyPrefix = "storefront:user:"

// RedisConfig holds connection parameters for the user-record store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore persists user records in Redis, one JSON document per wallet.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the underlying connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetUser loads the record for a wallet. A wallet with no record yet gets
// a fresh empty record, not an error.
func (s *RedisStore) GetUser(ctx context.Context, wallet string) (*types.UserRecord, error) {
	data, err := s.client.Get(ctx, userKeyPrefix+wallet).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &types.UserRecord{Wallet: wallet}, nil
		}
		return nil, fmt.Errorf("failed to load user record: %w", err)
	}

	var record types.UserRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse user record: %w", err)
	}

	return &record, nil
}

// SaveUser writes the record for its wallet.
func (s *RedisStore) SaveUser(ctx context.Context, record *types.UserRecord) error {
	if record.Wallet == "" {
		return fmt.Errorf("user record has no wallet")
	}

	record.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal user record: %w", err)
	}

	if err := s.client.Set(ctx, userKeyPrefix+record.Wallet, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save user record: %w", err)
	}

	return nil
}
