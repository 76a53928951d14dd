package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/driver"
	"github.com/bishal-dd/monument-fees-prototype/models"
	"github.com/bishal-dd/monument-fees-prototype/models/enum"
)

const cacheTTL = 30 * time.Minute

var (
	ErrNotFound          = errors.New("booking not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketAlreadyUsed = errors.New("ticket already used")
)

var _ Repository = (*repository)(nil)

type Repository interface {
	CreateBooking(ctx context.Context, tx pgx.Tx, booking *models.Booking) error
	GetBooking(ctx context.Context, tx pgx.Tx, id string) (*models.Booking, error)
	GetBookingByCode(ctx context.Context, tx pgx.Tx, code string) (*models.Booking, error)
	GetBookingByPaymentIntentID(ctx context.Context, tx pgx.Tx, paymentIntentID string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, tx pgx.Tx, id string, status enum.BookingStatus, updatedAt time.Time) error
	MarkBookingPaid(ctx context.Context, tx pgx.Tx, id string, paidAt, validUntil time.Time) error
	SetPaymentIntent(ctx context.Context, tx pgx.Tx, id, paymentIntentID string) error
	ListBookings(ctx context.Context, tx pgx.Tx, customerID string, limit, offset uint64) ([]*models.Booking, error)

	MarkTicketUsed(ctx context.Context, tx pgx.Tx, bookingID string, ticketID int64, usedAt time.Time) error

	Totals(ctx context.Context, tx pgx.Tx, from, to time.Time) (*models.Totals, error)
	RevenueByMonument(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]models.MonumentRevenue, error)
	RevenueByMonth(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]models.MonthlyRevenue, error)
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

const bookingColumns = `id::text, code, customer_id, customer_name, email, bank, account_last4, status, currency,
	total_amount, payment_intent_id, security_hash, valid_until, paid_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.Code, &b.CustomerID, &b.CustomerName, &b.Email, &b.Bank, &b.AccountLast4, &b.Status,
		&b.Currency, &b.TotalAmount, &b.PaymentIntentID, &b.SecurityHash, &b.ValidUntil, &b.PaidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) CreateBooking(ctx context.Context, tx pgx.Tx, booking *models.Booking) error {
	q := driver.WithTx(r.conn, tx)

	err := q.QueryRow(ctx, `
		INSERT INTO bookings (id, code, customer_id, customer_name, email, bank, account_last4, status, currency,
			total_amount, payment_intent_id, security_hash, valid_until)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		booking.ID, booking.Code, booking.CustomerID, booking.CustomerName, booking.Email, string(booking.Bank),
		booking.AccountLast4, string(booking.Status), string(booking.Currency), booking.TotalAmount,
		booking.PaymentIntentID, booking.SecurityHash, booking.ValidUntil,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create booking", zap.String("booking_id", booking.ID), zap.Error(err))
		return err
	}

	for i := range booking.Tickets {
		ticket := &booking.Tickets[i]
		ticket.BookingID = booking.ID
		err = q.QueryRow(ctx, `
			INSERT INTO tickets (booking_id, monument_id, monument_name, adult_quantity, kid_quantity, adult_price, kid_price)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			booking.ID, ticket.MonumentID, ticket.MonumentName, ticket.AdultQuantity, ticket.KidQuantity,
			ticket.AdultPrice, ticket.KidPrice,
		).Scan(&ticket.ID)
		if err != nil {
			r.logger.Error("Failed to create ticket", zap.String("booking_id", booking.ID),
				zap.Int64("monument_id", ticket.MonumentID), zap.Error(err))
			return fmt.Errorf("failed to create ticket for monument %d: %w", ticket.MonumentID, err)
		}
	}

	return nil
}

func (r *repository) GetBooking(ctx context.Context, tx pgx.Tx, id string) (*models.Booking, error) {
	cacheKey := fmt.Sprintf("booking:%s", id)

	// inside a transaction the cache could hold a stale row
	if tx == nil {
		var booking models.Booking
		found, err := r.cache.Get(ctx, cacheKey, &booking)
		if err != nil {
			r.logger.Warn("Failed to get booking from cache", zap.Error(err))
		}
		if found {
			return &booking, nil
		}
	}

	booking, err := r.getBookingWhere(ctx, tx, `id = $1::uuid`, id)
	if err != nil {
		return nil, err
	}

	if tx == nil {
		if err := r.cache.Set(ctx, cacheKey, booking, cacheTTL); err != nil {
			r.logger.Warn("Failed to cache booking", zap.Error(err))
		}
	}

	return booking, nil
}

// GetBookingByCode matches the code the customer shows at the gate,
// ignoring case.
func (r *repository) GetBookingByCode(ctx context.Context, tx pgx.Tx, code string) (*models.Booking, error) {
	return r.getBookingWhere(ctx, tx, `code = upper($1)`, code)
}

func (r *repository) GetBookingByPaymentIntentID(ctx context.Context, tx pgx.Tx, paymentIntentID string) (*models.Booking, error) {
	if paymentIntentID == "" {
		return nil, ErrNotFound
	}
	return r.getBookingWhere(ctx, tx, `payment_intent_id = $1`, paymentIntentID)
}

func (r *repository) getBookingWhere(ctx context.Context, tx pgx.Tx, where string, arg any) (*models.Booking, error) {
	q := driver.WithTx(r.conn, tx)

	booking, err := scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get booking", zap.Any("key", arg), zap.Error(err))
		return nil, err
	}

	if booking.Tickets, err = r.listTickets(ctx, q, booking.ID); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *repository) listTickets(ctx context.Context, q driver.Querier, bookingID string) ([]models.Ticket, error) {
	rows, err := q.Query(ctx, `
		SELECT id, booking_id::text, monument_id, monument_name, adult_quantity, kid_quantity, adult_price, kid_price, used_at
		FROM tickets WHERE booking_id = $1::uuid ORDER BY id`, bookingID)
	if err != nil {
		r.logger.Error("Failed to list tickets", zap.String("booking_id", bookingID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tickets := make([]models.Ticket, 0)
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.BookingID, &t.MonumentID, &t.MonumentName, &t.AdultQuantity, &t.KidQuantity,
			&t.AdultPrice, &t.KidPrice, &t.UsedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *repository) UpdateBookingStatus(ctx context.Context, tx pgx.Tx, id string, status enum.BookingStatus, updatedAt time.Time) error {
	tag, err := driver.WithTx(r.conn, tx).Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1::uuid`,
		id, string(status), updatedAt)
	if err != nil {
		r.logger.Error("Failed to update booking status", zap.String("booking_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	r.invalidateBookingCache(ctx, tx, id)
	return nil
}

// MarkBookingPaid moves the booking to paid and restarts its validity window
// at paidAt.
func (r *repository) MarkBookingPaid(ctx context.Context, tx pgx.Tx, id string, paidAt, validUntil time.Time) error {
	tag, err := driver.WithTx(r.conn, tx).Exec(ctx, `
		UPDATE bookings
		SET status = 'paid',
			paid_at = $2,
			valid_until = $3,
			updated_at = $2
		WHERE id = $1::uuid`,
		id, paidAt, validUntil)
	if err != nil {
		r.logger.Error("Failed to mark booking paid", zap.String("booking_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	r.invalidateBookingCache(ctx, tx, id)
	return nil
}

func (r *repository) SetPaymentIntent(ctx context.Context, tx pgx.Tx, id, paymentIntentID string) error {
	tag, err := driver.WithTx(r.conn, tx).Exec(ctx,
		`UPDATE bookings SET payment_intent_id = $2, updated_at = NOW() WHERE id = $1::uuid`, id, paymentIntentID)
	if err != nil {
		r.logger.Error("Failed to set payment intent", zap.String("booking_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	r.invalidateBookingCache(ctx, tx, id)
	return nil
}

func (r *repository) ListBookings(ctx context.Context, tx pgx.Tx, customerID string, limit, offset uint64) ([]*models.Booking, error) {
	q := driver.WithTx(r.conn, tx)

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC OFFSET $2`
	args := []any{customerID, int64(offset)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, int64(limit))
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list bookings", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}
	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, booking := range bookings {
		if booking.Tickets, err = r.listTickets(ctx, q, booking.ID); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// MarkTicketUsed stamps usedAt on an unused ticket of the booking.
func (r *repository) MarkTicketUsed(ctx context.Context, tx pgx.Tx, bookingID string, ticketID int64, usedAt time.Time) error {
	q := driver.WithTx(r.conn, tx)

	tag, err := q.Exec(ctx,
		`UPDATE tickets SET used_at = $3 WHERE id = $1 AND booking_id = $2::uuid AND used_at IS NULL`,
		ticketID, bookingID, usedAt)
	if err != nil {
		r.logger.Error("Failed to mark ticket used", zap.Int64("ticket_id", ticketID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		var used bool
		err = q.QueryRow(ctx, `SELECT used_at IS NOT NULL FROM tickets WHERE id = $1 AND booking_id = $2::uuid`,
			ticketID, bookingID).Scan(&used)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTicketNotFound
		}
		if err != nil {
			return err
		}
		return ErrTicketAlreadyUsed
	}

	r.invalidateBookingCache(ctx, tx, bookingID)
	return nil
}

// invalidateBookingCache drops the cached booking once tx has committed, so a
// concurrent reader cannot cache the row that is being replaced.
func (r *repository) invalidateBookingCache(ctx context.Context, tx pgx.Tx, id string) {
	driver.AfterCommit(tx, func() {
		if err := r.cache.Delete(ctx, fmt.Sprintf("booking:%s", id)); err != nil {
			r.logger.Warn("Failed to invalidate booking cache", zap.String("booking_id", id), zap.Error(err))
		}
	})
}
