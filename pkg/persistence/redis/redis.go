package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/persistence"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// Key layout in Redis. Listing uses an index set since Redis has no cheap
// prefix iteration.
const (
	keyPrefixSubmission  = "relay:submission:"
	keySetSubmissions    = "relay:submissions:index"
	keySchemaVersion     = "relay:metadata:schema_version"
	currentSchemaVersion = "v1"

	opTimeout = 5 * time.Second
)

// RedisSubmissionStore is a shared submission journal suitable for
// deployments where several processes track the same identity.
type RedisSubmissionStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ISubmissionStore = (*RedisSubmissionStore)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number
	DB int
	// KeyPrefix is an optional extra prefix for multi-tenant setups
	KeyPrefix string
}

// NewRedisSubmissionStore connects to Redis and verifies the connection.
func NewRedisSubmissionStore(cfg *RedisConfig, logger *zap.Logger) (*RedisSubmissionStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	store := &RedisSubmissionStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := store.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis submission journal initialized", "address", cfg.Address)

	return store, nil
}

func (r *RedisSubmissionStore) initSchema(ctx context.Context) error {
	key := r.keyPrefix + keySchemaVersion
	existing, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, key, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

func (r *RedisSubmissionStore) submissionKey(id string) string {
	return r.keyPrefix + keyPrefixSubmission + id
}

func (r *RedisSubmissionStore) indexKey() string {
	return r.keyPrefix + keySetSubmissions
}

// SaveSubmission persists a journal entry, overwriting any existing entry
// with the same transaction id.
func (r *RedisSubmissionStore) SaveSubmission(entry *types.SubmissionEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil SubmissionEntry")
	}
	if entry.TransactionID == "" {
		return fmt.Errorf("cannot save SubmissionEntry without a transaction id")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("submission store is closed")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal submission entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.submissionKey(entry.TransactionID), data, 0)
	pipe.SAdd(ctx, r.indexKey(), entry.TransactionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save submission %s: %w", entry.TransactionID, err)
	}
	return nil
}

// UpdateObservedState merges a freshly observed record into the stored entry.
func (r *RedisSubmissionStore) UpdateObservedState(id string, record *types.TransactionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot update from nil TransactionRecord")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("submission store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.submissionKey(id)).Bytes()
	if err == redis.Nil {
		return nil // unknown ids are ignored
	}
	if err != nil {
		return fmt.Errorf("failed to read submission %s: %w", id, err)
	}

	var entry types.SubmissionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return fmt.Errorf("failed to unmarshal submission %s: %w", id, err)
	}

	entry.State = record.State
	if record.RelayHash != "" {
		entry.RelayHash = record.RelayHash
	}
	if record.ChainTransactionHash != "" {
		entry.ChainTransactionHash = record.ChainTransactionHash
	}

	updated, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to marshal submission %s: %w", id, err)
	}
	if err := r.client.Set(ctx, r.submissionKey(id), updated, 0).Err(); err != nil {
		return fmt.Errorf("failed to update submission %s: %w", id, err)
	}
	return nil
}

// GetSubmission retrieves an entry by transaction id.
func (r *RedisSubmissionStore) GetSubmission(id string) (*types.SubmissionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("submission store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.submissionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read submission %s: %w", id, err)
	}

	var entry types.SubmissionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission %s: %w", id, err)
	}
	return &entry, nil
}

// ListSubmissions returns all entries ordered by submission time.
func (r *RedisSubmissionStore) ListSubmissions() ([]*types.SubmissionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("submission store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list submission ids: %w", err)
	}

	entries := make([]*types.SubmissionEntry, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, r.submissionKey(id)).Bytes()
		if err == redis.Nil {
			// index points at a deleted entry; self-heal
			r.client.SRem(ctx, r.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read submission %s: %w", id, err)
		}
		var entry types.SubmissionEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submission %s: %w", id, err)
		}
		entries = append(entries, &entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	return entries, nil
}

// DeleteSubmission removes an entry. Idempotent.
func (r *RedisSubmissionStore) DeleteSubmission(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("submission store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.submissionKey(id))
	pipe.SRem(ctx, r.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete submission %s: %w", id, err)
	}
	return nil
}

// Close closes the Redis connection. Idempotent.
func (r *RedisSubmissionStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

// HealthCheck pings the Redis server.
func (r *RedisSubmissionStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("submission store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
