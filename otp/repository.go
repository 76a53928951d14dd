package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ Repository = (*repository)(nil)

type Repository interface {
	Save(ctx context.Context, subject string, code *Code, ttl time.Duration) error
	// Get returns nil when no live code exists for subject.
	Get(ctx context.Context, subject string) (*Code, error)
	IncrementAttempts(ctx context.Context, subject string) (int, error)
	Delete(ctx context.Context, subject string) error
}

type repository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRepository(client *redis.Client, logger *zap.Logger) Repository {
	return &repository{
		client: client,
		logger: logger,
	}
}

func key(subject string) string {
	return fmt.Sprintf("otp:%s", subject)
}

func (r *repository) Save(ctx context.Context, subject string, code *Code, ttl time.Duration) error {
	k := key(subject)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, "code", code.Value, "attempts", code.Attempts)
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save otp", zap.String("subject", subject), zap.Error(err))
	}
	return err
}

func (r *repository) Get(ctx context.Context, subject string) (*Code, error) {
	fields, err := r.client.HGetAll(ctx, key(subject)).Result()
	if err != nil {
		r.logger.Error("Failed to get otp", zap.String("subject", subject), zap.Error(err))
		return nil, err
	}
	value, ok := fields["code"]
	if !ok {
		return nil, nil
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("corrupt attempt counter for %s: %w", subject, err)
	}
	return &Code{Value: value, Attempts: attempts}, nil
}

// IncrementAttempts bumps the counter in place so the key keeps its expiry.
func (r *repository) IncrementAttempts(ctx context.Context, subject string) (int, error) {
	n, err := r.client.HIncrBy(ctx, key(subject), "attempts", 1).Result()
	if err != nil {
		r.logger.Error("Failed to increment otp attempts", zap.String("subject", subject), zap.Error(err))
		return 0, err
	}
	return int(n), nil
}

func (r *repository) Delete(ctx context.Context, subject string) error {
	if err := r.client.Del(ctx, key(subject)).Err(); err != nil {
		r.logger.Error("Failed to delete otp", zap.String("subject", subject), zap.Error(err))
		return err
	}
	return nil
}
