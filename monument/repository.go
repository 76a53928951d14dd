package monument

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/driver"
	"github.com/bishal-dd/monument-fees-prototype/models"
)

const cacheTTL = 30 * time.Minute

var ErrNotFound = errors.New("monument not found")

var _ Repository = (*repository)(nil)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, monument *models.Monument) error
	GetByID(ctx context.Context, tx pgx.Tx, id int64) (*models.Monument, error)
	Update(ctx context.Context, tx pgx.Tx, monument *models.Monument) error
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	List(ctx context.Context, tx pgx.Tx, limit, offset uint64) ([]*models.Monument, error)
	ListByDzongkhag(ctx context.Context, tx pgx.Tx, dzongkhagID int64) ([]*models.Monument, error)
	Search(ctx context.Context, tx pgx.Tx, query string) ([]*models.Monument, error)
	ListDzongkhags(ctx context.Context, tx pgx.Tx) ([]*models.Dzongkhag, error)
}

type repository struct {
	conn   driver.PostgresPool
	cache  *driver.Cache
	logger *zap.Logger
}

func NewRepository(conn driver.PostgresPool, cache *driver.Cache, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		cache:  cache,
		logger: logger,
	}
}

const monumentColumns = `id, dzongkhag_id, name, location, price, status, featured, created_at, updated_at`

func scanMonument(row pgx.Row) (*models.Monument, error) {
	var m models.Monument
	err := row.Scan(&m.ID, &m.DzongkhagID, &m.Name, &m.Location, &m.Price, &m.Status, &m.Featured, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMonuments(rows pgx.Rows) ([]*models.Monument, error) {
	defer rows.Close()
	monuments := make([]*models.Monument, 0)
	for rows.Next() {
		m, err := scanMonument(rows)
		if err != nil {
			return nil, err
		}
		monuments = append(monuments, m)
	}
	return monuments, rows.Err()
}

func (r *repository) Create(ctx context.Context, tx pgx.Tx, monument *models.Monument) error {
	row := driver.WithTx(r.conn, tx).QueryRow(ctx, `
		INSERT INTO monuments (dzongkhag_id, name, location, price, status, featured)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		monument.DzongkhagID, monument.Name, monument.Location, monument.Price, string(monument.Status), monument.Featured)
	if err := row.Scan(&monument.ID, &monument.CreatedAt, &monument.UpdatedAt); err != nil {
		r.logger.Error("Failed to create monument", zap.Error(err))
		return err
	}

	r.invalidateDzongkhagCache(ctx, tx, monument.DzongkhagID)
	return nil
}

func (r *repository) GetByID(ctx context.Context, tx pgx.Tx, id int64) (*models.Monument, error) {
	cacheKey := fmt.Sprintf("monument:%d", id)
	var monument models.Monument

	found, err := r.cache.Get(ctx, cacheKey, &monument)
	if err != nil {
		r.logger.Warn("Failed to get monument from cache", zap.Error(err))
	}
	if found {
		return &monument, nil
	}

	m, err := scanMonument(driver.WithTx(r.conn, tx).QueryRow(ctx,
		`SELECT `+monumentColumns+` FROM monuments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get monument", zap.Int64("monument_id", id), zap.Error(err))
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, m, cacheTTL); err != nil {
		r.logger.Warn("Failed to cache monument", zap.Error(err))
	}

	return m, nil
}

func (r *repository) Update(ctx context.Context, tx pgx.Tx, monument *models.Monument) error {
	var previousDzongkhag int64
	row := driver.WithTx(r.conn, tx).QueryRow(ctx, `
		UPDATE monuments m
		SET dzongkhag_id = $2, name = $3, location = $4, price = $5, status = $6, featured = $7, updated_at = NOW()
		FROM monuments old
		WHERE m.id = $1 AND old.id = m.id
		RETURNING old.dzongkhag_id, m.created_at, m.updated_at`,
		monument.ID, monument.DzongkhagID, monument.Name, monument.Location, monument.Price, string(monument.Status), monument.Featured)
	err := row.Scan(&previousDzongkhag, &monument.CreatedAt, &monument.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to update monument", zap.Int64("monument_id", monument.ID), zap.Error(err))
		return err
	}

	r.invalidateMonumentCache(ctx, tx, monument.ID)
	r.invalidateDzongkhagCache(ctx, tx, previousDzongkhag)
	if previousDzongkhag != monument.DzongkhagID {
		r.invalidateDzongkhagCache(ctx, tx, monument.DzongkhagID)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	var dzongkhagID int64
	err := driver.WithTx(r.conn, tx).QueryRow(ctx,
		`DELETE FROM monuments WHERE id = $1 RETURNING dzongkhag_id`, id).Scan(&dzongkhagID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to delete monument", zap.Int64("monument_id", id), zap.Error(err))
		return err
	}

	r.invalidateMonumentCache(ctx, tx, id)
	r.invalidateDzongkhagCache(ctx, tx, dzongkhagID)
	return nil
}

func (r *repository) List(ctx context.Context, tx pgx.Tx, limit, offset uint64) ([]*models.Monument, error) {
	query := `SELECT ` + monumentColumns + ` FROM monuments ORDER BY id OFFSET $1`
	args := []any{int64(offset)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, int64(limit))
	}

	rows, err := driver.WithTx(r.conn, tx).Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list monuments", zap.Error(err))
		return nil, err
	}
	return collectMonuments(rows)
}

func (r *repository) ListByDzongkhag(ctx context.Context, tx pgx.Tx, dzongkhagID int64) ([]*models.Monument, error) {
	cacheKey := fmt.Sprintf("monuments:dzongkhag:%d", dzongkhagID)
	var monuments []*models.Monument

	found, err := r.cache.Get(ctx, cacheKey, &monuments)
	if err != nil {
		r.logger.Warn("Failed to get dzongkhag monuments from cache", zap.Error(err))
	}
	if found {
		return monuments, nil
	}

	rows, err := driver.WithTx(r.conn, tx).Query(ctx,
		`SELECT `+monumentColumns+` FROM monuments WHERE dzongkhag_id = $1 AND status = 'active' ORDER BY id`, dzongkhagID)
	if err != nil {
		r.logger.Error("Failed to list dzongkhag monuments", zap.Int64("dzongkhag_id", dzongkhagID), zap.Error(err))
		return nil, err
	}
	if monuments, err = collectMonuments(rows); err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, monuments, cacheTTL); err != nil {
		r.logger.Warn("Failed to cache dzongkhag monuments", zap.Error(err))
	}

	return monuments, nil
}

// Search matches query against monument names and locations, ignoring case.
func (r *repository) Search(ctx context.Context, tx pgx.Tx, query string) ([]*models.Monument, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := driver.WithTx(r.conn, tx).Query(ctx,
		`SELECT `+monumentColumns+` FROM monuments WHERE name ILIKE $1 OR location ILIKE $1 ORDER BY id`, pattern)
	if err != nil {
		r.logger.Error("Failed to search monuments", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	return collectMonuments(rows)
}

func (r *repository) ListDzongkhags(ctx context.Context, tx pgx.Tx) ([]*models.Dzongkhag, error) {
	const cacheKey = "dzongkhags"
	var dzongkhags []*models.Dzongkhag

	found, err := r.cache.Get(ctx, cacheKey, &dzongkhags)
	if err != nil {
		r.logger.Warn("Failed to get dzongkhags from cache", zap.Error(err))
	}
	if found {
		return dzongkhags, nil
	}

	rows, err := driver.WithTx(r.conn, tx).Query(ctx, `SELECT id, name FROM dzongkhags ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list dzongkhags", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	dzongkhags = make([]*models.Dzongkhag, 0)
	for rows.Next() {
		var d models.Dzongkhag
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		dzongkhags = append(dzongkhags, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, dzongkhags, cacheTTL); err != nil {
		r.logger.Warn("Failed to cache dzongkhags", zap.Error(err))
	}

	return dzongkhags, nil
}

func (r *repository) invalidateMonumentCache(ctx context.Context, tx pgx.Tx, id int64) {
	driver.AfterCommit(tx, func() {
		if err := r.cache.Delete(ctx, fmt.Sprintf("monument:%d", id)); err != nil {
			r.logger.Warn("Failed to invalidate monument cache", zap.Error(err))
		}
	})
}

func (r *repository) invalidateDzongkhagCache(ctx context.Context, tx pgx.Tx, dzongkhagID int64) {
	driver.AfterCommit(tx, func() {
		if err := r.cache.Delete(ctx, fmt.Sprintf("monuments:dzongkhag:%d", dzongkhagID)); err != nil {
			r.logger.Warn("Failed to invalidate dzongkhag cache", zap.Error(err))
		}
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
