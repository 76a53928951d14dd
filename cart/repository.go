package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/models"
)

const maxUpdateRetries = 3

var ErrConcurrentUpdate = errors.New("cart was modified concurrently")

var _ Repository = (*repository)(nil)

// Repository keeps one cart per browsing session. A cart lives as long as its
// session key; every write slides the expiry forward.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*Store, error)
	Update(ctx context.Context, sessionID string, fn func(store *Store) error) (*Store, error)
	Delete(ctx context.Context, sessionID string) error
}

type repository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) Repository {
	return &repository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *repository) Get(ctx context.Context, sessionID string) (*Store, error) {
	store, err := load(ctx, r.client, sessionKey(sessionID))
	if err != nil {
		r.logger.Error("Failed to load cart", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return store, nil
}

// Update applies fn to the session cart inside a WATCH transaction and
// retries when another request changed the cart in between.
func (r *repository) Update(ctx context.Context, sessionID string, fn func(store *Store) error) (*Store, error) {
	key := sessionKey(sessionID)
	var store *Store

	txf := func(tx *redis.Tx) error {
		var err error
		store, err = load(ctx, tx, key)
		if err != nil {
			return err
		}
		if err = fn(store); err != nil {
			return err
		}

		payload, err := encode(store)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if store.IsEmpty() {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxUpdateRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return store, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		r.logger.Warn("Cart update conflicted, retrying", zap.String("session_id", sessionID), zap.Int("attempt", attempt))
	}

	return nil, ErrConcurrentUpdate
}

func (r *repository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		r.logger.Error("Failed to delete cart", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, client getter, key string) (*Store, error) {
	payload, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	return decode(payload)
}

func encode(store *Store) ([]byte, error) {
	return json.Marshal(store.Items())
}

func decode(payload []byte) (*Store, error) {
	var items []models.LineItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return NewStore(items...), nil
}
