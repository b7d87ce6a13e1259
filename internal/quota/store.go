package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sentiq-platform/sentiq/internal/metrics"
)

// ErrNotFound is returned by Get for a never-seen identity key.
var ErrNotFound = errors.New("quota: record not found")

// Store is the keyed record store for quota state. Update runs fn inside an
// atomic read-modify-write for the given key: fn observes a consistent
// snapshot (nil for an absent record) and the record it returns is committed
// atomically relative to other updates of the same key. fn may be re-invoked
// on contention, so it must be side-effect-free beyond the record it returns.
// Updates for different keys never contend with each other.
type Store interface {
	Get(ctx context.Context, identityKey string) (*Record, error)
	Update(ctx context.Context, identityKey string, fn func(rec *Record) (*Record, error)) error
}

// txMaxRetries bounds optimistic-lock retries before the gate's failure
// policy takes over.
const txMaxRetries = 5

// RedisStore persists records as JSON strings under
// <collection>:<identity_key>, using WATCH-based optimistic transactions for
// per-key serialization.
type RedisStore struct {
	rdb        *redis.Client
	collection string
}

// NewRedisStore creates a store namespaced by collection.
func NewRedisStore(rdb *redis.Client, collection string) *RedisStore {
	return &RedisStore{rdb: rdb, collection: collection}
}

func (s *RedisStore) key(identityKey string) string {
	return s.collection + ":" + identityKey
}

// Get returns the current record, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, identityKey string) (*Record, error) {
	payload, err := s.rdb.Get(ctx, s.key(identityKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("quota store: get: %w", err)
	}
	rec := decodeRecord(identityKey, payload)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Update transactionally applies fn to the record stored under identityKey.
// On WATCH contention the whole read-modify-write is retried with fresh
// state, up to txMaxRetries times.
func (s *RedisStore) Update(ctx context.Context, identityKey string, fn func(rec *Record) (*Record, error)) error {
	key := s.key(identityKey)

	txn := func(tx *redis.Tx) error {
		var rec *Record
		payload, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			rec = nil
		case err != nil:
			return fmt.Errorf("reading record: %w", err)
		default:
			rec = decodeRecord(identityKey, payload)
		}

		next, err := fn(rec)
		if err != nil {
			return err
		}

		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < txMaxRetries; attempt++ {
		err = s.rdb.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			if err != nil {
				return fmt.Errorf("quota store: update %s: %w", identityKey, err)
			}
			return nil
		}
		metrics.QuotaTxRetries.Inc()
	}
	return fmt.Errorf("quota store: update %s: contention after %d attempts: %w", identityKey, txMaxRetries, err)
}

// decodeRecord tolerates malformed stored state: a record that cannot be
// parsed is treated as absent rather than failing the evaluation, which lets
// the schema evolve without migrations. Fields missing from valid JSON simply
// unmarshal to their defaults.
func decodeRecord(identityKey string, payload []byte) *Record {
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		slog.Warn("quota store: malformed record, treating as absent", "identity_key", identityKey, "error", err)
		return nil
	}
	if rec.IdentityKey == "" {
		rec.IdentityKey = identityKey
	}
	return &rec
}
