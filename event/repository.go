package event

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/driver"
	"github.com/bishal-dd/monument-fees-prototype/models"
)

var ErrNotFound = errors.New("event not found")

var _ Repository = (*repository)(nil)

type Repository interface {
	// Create records the event and reports false when it was already known.
	Create(ctx context.Context, tx pgx.Tx, event *models.Event) (bool, error)
	GetByID(ctx context.Context, tx pgx.Tx, id string) (*models.Event, error)
	MarkAsProcessed(ctx context.Context, tx pgx.Tx, id string) error
}

type repository struct {
	conn   driver.PostgresPool
	logger *zap.Logger
}

func NewRepository(conn driver.PostgresPool, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		logger: logger,
	}
}

func (r *repository) Create(ctx context.Context, tx pgx.Tx, event *models.Event) (bool, error) {
	tag, err := driver.WithTx(r.conn, tx).Exec(ctx, `
		INSERT INTO events (id, type, processed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		event.ID, string(event.Type), event.Processed, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create event", zap.String("event_id", event.ID), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) GetByID(ctx context.Context, tx pgx.Tx, id string) (*models.Event, error) {
	var event models.Event
	var eventType string
	err := driver.WithTx(r.conn, tx).QueryRow(ctx,
		`SELECT id, type, processed, created_at, updated_at FROM events WHERE id = $1`, id,
	).Scan(&event.ID, &eventType, &event.Processed, &event.CreatedAt, &event.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get event", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}
	event.Type = stripe.EventType(eventType)
	return &event, nil
}

func (r *repository) MarkAsProcessed(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := driver.WithTx(r.conn, tx).Exec(ctx,
		`UPDATE events SET processed = TRUE, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		r.logger.Error("Failed to mark event processed", zap.String("event_id", id), zap.Error(err))
	}
	return err
}
