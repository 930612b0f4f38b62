package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/persistence"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// Key prefixes for namespacing
const (
	keyPrefixSubmission  = "submission:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerSubmissionStore is a durable, disk-backed submission journal.
type BadgerSubmissionStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.ISubmissionStore = (*BadgerSubmissionStore)(nil)

// NewBadgerSubmissionStore opens (or creates) the journal at dataPath with
// SyncWrites enabled and starts a background garbage-collection goroutine.
func NewBadgerSubmissionStore(dataPath string, logger *zap.Logger) (*BadgerSubmissionStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	store := &BadgerSubmissionStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store.gcCancel = cancel
	store.gcWg.Add(1)
	go store.runGC(ctx)

	logger.Sugar().Infow("Badger submission journal initialized", "path", absPath)

	return store, nil
}

func (b *BadgerSubmissionStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existing string
		err = item.Value(func(val []byte) error {
			existing = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existing != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerSubmissionStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func submissionKey(id string) []byte {
	return []byte(keyPrefixSubmission + id)
}

// SaveSubmission persists a journal entry, overwriting any existing entry
// with the same transaction id.
func (b *BadgerSubmissionStore) SaveSubmission(entry *types.SubmissionEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil SubmissionEntry")
	}
	if entry.TransactionID == "" {
		return fmt.Errorf("cannot save SubmissionEntry without a transaction id")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("submission store is closed")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal submission entry: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(submissionKey(entry.TransactionID), data)
	})
}

// UpdateObservedState merges a freshly observed record into the stored entry.
func (b *BadgerSubmissionStore) UpdateObservedState(id string, record *types.TransactionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot update from nil TransactionRecord")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("submission store is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(submissionKey(id))
		if err == badgerdb.ErrKeyNotFound {
			return nil // unknown ids are ignored
		}
		if err != nil {
			return fmt.Errorf("failed to read submission %s: %w", id, err)
		}

		var entry types.SubmissionEntry
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
		if err != nil {
			return fmt.Errorf("failed to unmarshal submission %s: %w", id, err)
		}

		entry.State = record.State
		if record.RelayHash != "" {
			entry.RelayHash = record.RelayHash
		}
		if record.ChainTransactionHash != "" {
			entry.ChainTransactionHash = record.ChainTransactionHash
		}

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("failed to marshal submission %s: %w", id, err)
		}
		return txn.Set(submissionKey(id), data)
	})
}

// GetSubmission retrieves an entry by transaction id.
func (b *BadgerSubmissionStore) GetSubmission(id string) (*types.SubmissionEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("submission store is closed")
	}

	var entry *types.SubmissionEntry
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(submissionKey(id))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded types.SubmissionEntry
			if err := json.Unmarshal(val, &decoded); err != nil {
				return err
			}
			entry = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read submission %s: %w", id, err)
	}
	return entry, nil
}

// ListSubmissions returns all entries ordered by submission time.
func (b *BadgerSubmissionStore) ListSubmissions() ([]*types.SubmissionEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("submission store is closed")
	}

	entries := []*types.SubmissionEntry{}
	err := b.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefixSubmission)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry types.SubmissionEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				entries = append(entries, &entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	return entries, nil
}

// DeleteSubmission removes an entry. Idempotent.
func (b *BadgerSubmissionStore) DeleteSubmission(id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("submission store is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(submissionKey(id))
	})
}

// Close stops the GC goroutine and closes the database. Idempotent.
func (b *BadgerSubmissionStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	b.gcCancel()
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}

// HealthCheck verifies the database accepts reads.
func (b *BadgerSubmissionStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("submission store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err != nil && err != badgerdb.ErrKeyNotFound {
			return fmt.Errorf("badger health check failed: %w", err)
		}
		return nil
	})
}
