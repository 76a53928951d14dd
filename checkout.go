package monumentfees

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/models"
	"github.com/bishal-dd/monument-fees-prototype/models/enum"
	"github.com/bishal-dd/monument-fees-prototype/otp"
	"github.com/bishal-dd/monument-fees-prototype/payment"
)

const codeAttempts = 3

var ErrPaymentFailed = errors.New("payment could not be completed")

// CheckoutRequest carries the checkout form. CustomerID is never read from
// the body; the HTTP layer fills it from the upstream identity header.
type CheckoutRequest struct {
	CustomerID    string    `json:"-"`
	CustomerName  string    `json:"customer_name" binding:"required"`
	Email         string    `json:"email" binding:"required,email"`
	Bank          enum.Bank `json:"bank" binding:"required"`
	AccountNumber string    `json:"account_number" binding:"required"`
}

type CheckoutResult struct {
	Booking      *models.Booking  `json:"booking"`
	Payment      *payment.Payment `json:"payment"`
	OTPExpiresIn int              `json:"otp_expires_in"`
}

// Checkout turns the session cart into a pending booking, opens a payment
// for it and sends a verification code. The cart is kept until the code is
// verified.
func (s *service) Checkout(ctx context.Context, sessionID string, req CheckoutRequest) (*CheckoutResult, error) {
	store, err := s.cart.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if store.IsEmpty() {
		return nil, ErrEmptyCart
	}

	bookingModel := &models.Booking{
		ID:           uuid.NewString(),
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Bank:         req.Bank,
		AccountLast4: lastFour(req.AccountNumber),
		Status:       enum.BookingStatusPending,
		Currency:     s.options.Currency,
		TotalAmount:  store.Total(),
		// restarted from the payment time by setStatus
		ValidUntil: s.now().Add(s.options.TicketValidity),
	}
	for _, item := range store.Items() {
		bookingModel.Tickets = append(bookingModel.Tickets, models.TicketFromLineItem(item))
	}
	if err = bookingModel.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckout, err)
	}

	if err = s.createBooking(ctx, bookingModel); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePayment(ctx, payment.Request{
		Reference:   bookingModel.ID,
		Amount:      bookingModel.TotalAmount,
		Currency:    bookingModel.Currency,
		Email:       bookingModel.Email,
		Description: "Monument entry tickets " + bookingModel.Code,
	})
	if err != nil {
		s.failBooking(ctx, bookingModel, enum.BookingStatusFailed)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	if err = s.booking.SetPaymentIntent(ctx, nil, bookingModel.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("failed to attach payment: %w", err)
	}
	bookingModel.PaymentIntentID = intent.ID

	s.publish(bookingEvent(models.BookingEventCreated, bookingModel, s.now()))
	if err = s.issueOTP(ctx, bookingModel); err != nil {
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", bookingModel.ID),
		zap.String("code", bookingModel.Code),
		zap.String("total", bookingModel.TotalAmount.String()))

	return &CheckoutResult{
		Booking:      bookingModel,
		Payment:      intent,
		OTPExpiresIn: int(s.otp.TTL().Seconds()),
	}, nil
}

// createBooking stores the booking under a fresh code, drawing a new one when
// the code is already taken.
func (s *service) createBooking(ctx context.Context, bookingModel *models.Booking) error {
	for attempt := 1; ; attempt++ {
		code, err := newBookingCode(s.random)
		if err != nil {
			return fmt.Errorf("failed to generate booking code: %w", err)
		}
		bookingModel.Code = code
		bookingModel.SecurityHash = securityHash(s.options.SecuritySecret, bookingModel.ID, code)

		err = s.transactionManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
			return s.booking.CreateBooking(ctx, tx, bookingModel)
		})
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) || attempt == codeAttempts {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		s.logger.Warn("Booking code collision, retrying", zap.String("code", code))
	}
}

// VerifyOTP confirms a pending booking with the code sent at checkout. On
// success the payment is confirmed, the booking is paid and the session cart
// is cleared. Running out of attempts cancels the booking.
func (s *service) VerifyOTP(ctx context.Context, sessionID, bookingID, code string) (*models.Booking, error) {
	bookingModel, err := s.booking.GetBooking(ctx, nil, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if bookingModel.Status != enum.BookingStatusPending {
		return nil, ErrBookingNotPending
	}

	if err = s.otp.Verify(ctx, bookingID, code); err != nil {
		if errors.Is(err, otp.ErrTooManyAttempts) {
			s.logger.Warn("Verification attempts exhausted", zap.String("booking_id", bookingID))
			s.cancelPayment(ctx, bookingModel)
			s.failBooking(ctx, bookingModel, enum.BookingStatusCancelled)
		}
		return nil, err
	}

	if bookingModel.PaymentIntentID != "" {
		if _, err = s.gateway.ConfirmPayment(ctx, bookingModel.PaymentIntentID); err != nil {
			s.failBooking(ctx, bookingModel, enum.BookingStatusFailed)
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
	}

	paid, err := s.transition(ctx, bookingID, enum.BookingStatusPaid)
	if err != nil {
		return nil, err
	}

	if err = s.cart.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to clear cart after payment", zap.String("session_id", sessionID), zap.Error(err))
	}

	s.publish(bookingEvent(models.BookingEventConfirmed, paid, s.now()))
	s.logger.Info("Booking paid", zap.String("booking_id", paid.ID), zap.String("code", paid.Code))

	return paid, nil
}

func (s *service) ResendOTP(ctx context.Context, bookingID string) error {
	bookingModel, err := s.booking.GetBooking(ctx, nil, bookingID)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if bookingModel.Status != enum.BookingStatusPending {
		return ErrBookingNotPending
	}
	return s.issueOTP(ctx, bookingModel)
}

func (s *service) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.booking.GetBooking(ctx, nil, bookingID)
}

func (s *service) GetReceipt(ctx context.Context, bookingID string) (*models.Receipt, error) {
	bookingModel, err := s.booking.GetBooking(ctx, nil, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if bookingModel.Status != enum.BookingStatusPaid {
		return nil, ErrBookingNotPaid
	}
	return models.NewReceipt(bookingModel), nil
}

func (s *service) ListBookings(ctx context.Context, customerID string, limit, offset uint64) ([]*models.Booking, error) {
	return s.booking.ListBookings(ctx, nil, customerID, limit, offset)
}

func (s *service) issueOTP(ctx context.Context, bookingModel *models.Booking) error {
	value, err := s.otp.Issue(ctx, bookingModel.ID)
	if err != nil {
		return fmt.Errorf("failed to issue verification code: %w", err)
	}

	e := bookingEvent(models.BookingEventOTPIssued, bookingModel, s.now())
	e.OTP = value
	s.publish(e)
	return nil
}

// transition moves a booking to status inside a transaction and returns the
// stored result. A booking already in status is returned unchanged.
func (s *service) transition(ctx context.Context, bookingID string, status enum.BookingStatus) (*models.Booking, error) {
	var updated *models.Booking
	err := s.transactionManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		bookingModel, err := s.booking.GetBooking(ctx, tx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}
		if bookingModel.Status == status {
			updated = bookingModel
			return nil
		}
		if !bookingModel.AllowChangeStatus(status) {
			return fmt.Errorf("%w: cannot move from %s to %s", ErrBookingNotPending, bookingModel.Status, status)
		}

		if err = s.setStatus(ctx, tx, bookingModel, status); err != nil {
			return err
		}
		updated = bookingModel
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// setStatus stores status for bookingModel and mirrors it on the model.
// Payment starts the ticket validity window.
func (s *service) setStatus(ctx context.Context, tx pgx.Tx, bookingModel *models.Booking, status enum.BookingStatus) error {
	now := s.now()
	if status == enum.BookingStatusPaid {
		validUntil := now.Add(s.options.TicketValidity)
		if err := s.booking.MarkBookingPaid(ctx, tx, bookingModel.ID, now, validUntil); err != nil {
			return fmt.Errorf("failed to mark booking paid: %w", err)
		}
		bookingModel.PaidAt = &now
		bookingModel.ValidUntil = validUntil
	} else if err := s.booking.UpdateBookingStatus(ctx, tx, bookingModel.ID, status, now); err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	bookingModel.Status = status
	bookingModel.UpdatedAt = now
	return nil
}

func (s *service) failBooking(ctx context.Context, bookingModel *models.Booking, status enum.BookingStatus) {
	updated, err := s.transition(ctx, bookingModel.ID, status)
	if err != nil {
		s.logger.Error("Failed to close booking",
			zap.String("booking_id", bookingModel.ID),
			zap.String("status", string(status)),
			zap.Error(err))
		return
	}
	s.publish(bookingEvent(models.BookingEventStatus, updated, s.now()))
}

func (s *service) cancelPayment(ctx context.Context, bookingModel *models.Booking) {
	if bookingModel.PaymentIntentID == "" {
		return
	}
	if err := s.gateway.CancelPayment(ctx, bookingModel.PaymentIntentID); err != nil {
		s.logger.Warn("Failed to cancel payment",
			zap.String("booking_id", bookingModel.ID),
			zap.String("payment_intent_id", bookingModel.PaymentIntentID),
			zap.Error(err))
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
