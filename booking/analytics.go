package booking

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/driver"
	"github.com/bishal-dd/monument-fees-prototype/models"
)

// Analytics only count paid bookings, bucketed by the time they were paid.

const ticketRevenue = `t.adult_price * t.adult_quantity + t.kid_price * t.kid_quantity`

func (r *repository) Totals(ctx context.Context, tx pgx.Tx, from, to time.Time) (*models.Totals, error) {
	var totals models.Totals
	err := driver.WithTx(r.conn, tx).QueryRow(ctx, `
		SELECT COALESCE(SUM(`+ticketRevenue+`), 0),
			COUNT(DISTINCT b.id),
			COALESCE(SUM(t.adult_quantity), 0),
			COALESCE(SUM(t.kid_quantity), 0)
		FROM bookings b
		JOIN tickets t ON t.booking_id = b.id
		WHERE b.status = 'paid' AND b.paid_at >= $1 AND b.paid_at < $2`,
		from, to,
	).Scan(&totals.Revenue, &totals.Bookings, &totals.AdultVisitors, &totals.KidVisitors)
	if err != nil {
		r.logger.Error("Failed to compute booking totals", zap.Error(err))
		return nil, err
	}
	return &totals, nil
}

func (r *repository) RevenueByMonument(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]models.MonumentRevenue, error) {
	rows, err := driver.WithTx(r.conn, tx).Query(ctx, `
		SELECT t.monument_id,
			MAX(t.monument_name),
			SUM(`+ticketRevenue+`) AS revenue,
			COUNT(DISTINCT b.id),
			SUM(t.adult_quantity + t.kid_quantity)
		FROM bookings b
		JOIN tickets t ON t.booking_id = b.id
		WHERE b.status = 'paid' AND b.paid_at >= $1 AND b.paid_at < $2
		GROUP BY t.monument_id
		ORDER BY revenue DESC, t.monument_id`,
		from, to)
	if err != nil {
		r.logger.Error("Failed to compute revenue by monument", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := make([]models.MonumentRevenue, 0)
	for rows.Next() {
		var m models.MonumentRevenue
		if err := rows.Scan(&m.MonumentID, &m.MonumentName, &m.Revenue, &m.Bookings, &m.Visitors); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *repository) RevenueByMonth(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]models.MonthlyRevenue, error) {
	rows, err := driver.WithTx(r.conn, tx).Query(ctx, `
		SELECT date_trunc('month', b.paid_at) AS month,
			SUM(`+ticketRevenue+`),
			COUNT(DISTINCT b.id),
			SUM(t.adult_quantity + t.kid_quantity)
		FROM bookings b
		JOIN tickets t ON t.booking_id = b.id
		WHERE b.status = 'paid' AND b.paid_at >= $1 AND b.paid_at < $2
		GROUP BY month
		ORDER BY month`,
		from, to)
	if err != nil {
		r.logger.Error("Failed to compute revenue by month", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := make([]models.MonthlyRevenue, 0)
	for rows.Next() {
		var m models.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue, &m.Bookings, &m.Visitors); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
