package monumentfees

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/models"
	"github.com/bishal-dd/monument-fees-prototype/models/enum"
)

const defaultDashboardRange = 365 * 24 * time.Hour

// LookupBooking finds a booking by the code on its receipt, ignoring case.
func (s *service) LookupBooking(ctx context.Context, code string) (*models.BookingDetails, error) {
	bookingModel, err := s.booking.GetBookingByCode(ctx, nil, normalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &models.BookingDetails{
		Booking:     bookingModel,
		UsageStatus: bookingModel.UsageStatus(s.now()),
	}, nil
}

// MarkTicketUsed admits the visitors on one ticket of a paid, unexpired
// booking. Each ticket is admitted once.
func (s *service) MarkTicketUsed(ctx context.Context, code string, ticketID int64) (*models.BookingDetails, error) {
	now := s.now()

	var details *models.BookingDetails
	err := s.transactionManager.ExecuteSerializableTransaction(ctx, func(tx pgx.Tx) error {
		bookingModel, err := s.booking.GetBookingByCode(ctx, tx, normalizeCode(code))
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}
		if bookingModel.Status != enum.BookingStatusPaid {
			return ErrBookingNotPaid
		}
		if bookingModel.Expired(now) {
			return ErrBookingExpired
		}

		if err = s.booking.MarkTicketUsed(ctx, tx, bookingModel.ID, ticketID, now); err != nil {
			return err
		}
		if ticket, ok := bookingModel.Ticket(ticketID); ok {
			ticket.UsedAt = &now
		}

		details = &models.BookingDetails{
			Booking:     bookingModel,
			UsageStatus: bookingModel.UsageStatus(now),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e := bookingEvent(models.BookingEventTicketUse, details.Booking, now)
	e.TicketID = ticketID
	s.publish(e)

	s.logger.Info("Ticket used",
		zap.String("booking_id", details.ID),
		zap.Int64("ticket_id", ticketID),
		zap.String("usage_status", string(details.UsageStatus)))

	return details, nil
}

// Dashboard aggregates paid bookings in [from, to). A zero to means now and a
// zero from means one year before to.
func (s *service) Dashboard(ctx context.Context, from, to time.Time) (*models.Dashboard, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-defaultDashboardRange)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: %s is not before %s", ErrInvalidRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	totals, err := s.booking.Totals(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}
	byMonument, err := s.booking.RevenueByMonument(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get revenue by monument: %w", err)
	}
	byMonth, err := s.booking.RevenueByMonth(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get revenue by month: %w", err)
	}

	return &models.Dashboard{
		From:       from,
		To:         to,
		Totals:     *totals,
		ByMonument: byMonument,
		ByMonth:    byMonth,
	}, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
