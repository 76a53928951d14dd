package monumentfees

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/booking"
	"github.com/bishal-dd/monument-fees-prototype/models"
	"github.com/bishal-dd/monument-fees-prototype/models/enum"
)

const paymentEventSubject = "payment.service.event.>"

// EventHandler applies a payment event inside tx and returns the booking it
// changed, or nil when nothing changed.
type EventHandler func(ctx context.Context, tx pgx.Tx, event *stripe.Event) (*models.Booking, error)

type EventManager struct {
	natsConn     *nats.Conn
	subscription *nats.Subscription
	handlers     map[stripe.EventType]EventHandler
	publisher    func(subject string, data []byte) error
	logger       *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	em := &EventManager{
		natsConn: natsConn,
		handlers: make(map[stripe.EventType]EventHandler),
		logger:   logger,
	}
	if natsConn != nil {
		em.publisher = natsConn.Publish
	}
	return em
}

func (em *EventManager) RegisterHandler(eventType stripe.EventType, handler EventHandler) {
	em.handlers[eventType] = handler
}

func (em *EventManager) GetHandler(eventType stripe.EventType) (EventHandler, bool) {
	handler, exists := em.handlers[eventType]
	return handler, exists
}

func (em *EventManager) SubscribeToEvents(wp *WorkerPool) error {
	sub, err := em.natsConn.Subscribe(paymentEventSubject, func(msg *nats.Msg) {
		var event stripe.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			em.logger.Error("Failed to unmarshal event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}

		wp.Submit(context.Background(), &event)
	})
	if err != nil {
		return err
	}
	em.subscription = sub
	return nil
}

func (em *EventManager) Unsubscribe() {
	if em.subscription == nil {
		return
	}
	if err := em.subscription.Drain(); err != nil {
		em.logger.Warn("Failed to drain payment event subscription", zap.Error(err))
	}
	em.subscription = nil
}

// Publish sends a booking event on the subject named by its type.
func (em *EventManager) Publish(event *models.BookingEvent) error {
	if em.publisher == nil {
		em.logger.Debug("No event publisher configured", zap.String("type", string(event.Type)))
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}
	if err = em.publisher(string(event.Type), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func bookingEvent(eventType models.BookingEventType, b *models.Booking, now time.Time) *models.BookingEvent {
	return &models.BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		Code:       b.Code,
		CustomerID: b.CustomerID,
		Email:      b.Email,
		Status:     b.Status,
		OccurredAt: now,
	}
}

// publish never fails the caller: the booking is already stored.
func (s *service) publish(event *models.BookingEvent) {
	if err := s.eventManager.Publish(event); err != nil {
		s.logger.Error("Failed to publish booking event",
			zap.String("type", string(event.Type)),
			zap.String("booking_id", event.BookingID),
			zap.Error(err))
	}
}

func (s *service) registerEventHandlers() {
	eventHandlers := map[stripe.EventType]EventHandler{
		stripe.EventTypePaymentIntentSucceeded:     s.handlePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed: s.handlePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:      s.handlePaymentIntentCanceled,

		stripe.EventTypeChargeRefunded: s.handleChargeRefunded,
	}

	for eventType, handler := range eventHandlers {
		s.eventManager.RegisterHandler(eventType, handler)
	}
}

func (s *service) handlePaymentIntentSucceeded(ctx context.Context, tx pgx.Tx, event *stripe.Event) (*models.Booking, error) {
	return s.applyPaymentIntentEvent(ctx, tx, event, enum.BookingStatusPaid)
}

func (s *service) handlePaymentIntentPaymentFailed(ctx context.Context, tx pgx.Tx, event *stripe.Event) (*models.Booking, error) {
	return s.applyPaymentIntentEvent(ctx, tx, event, enum.BookingStatusFailed)
}

func (s *service) handlePaymentIntentCanceled(ctx context.Context, tx pgx.Tx, event *stripe.Event) (*models.Booking, error) {
	return s.applyPaymentIntentEvent(ctx, tx, event, enum.BookingStatusCancelled)
}

func (s *service) handleChargeRefunded(ctx context.Context, tx pgx.Tx, event *stripe.Event) (*models.Booking, error) {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal charge: %w", err)
	}
	if !charge.Refunded {
		s.logger.Info("Ignoring partial refund", zap.String("charge_id", charge.ID))
		return nil, nil
	}
	if charge.PaymentIntent == nil {
		s.logger.Warn("Refunded charge has no payment intent", zap.String("charge_id", charge.ID))
		return nil, nil
	}
	return s.applyPaymentStatus(ctx, tx, charge.PaymentIntent.ID, enum.BookingStatusRefunded)
}

func (s *service) applyPaymentIntentEvent(ctx context.Context, tx pgx.Tx, event *stripe.Event, status enum.BookingStatus) (*models.Booking, error) {
	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	return s.applyPaymentStatus(ctx, tx, paymentIntent.ID, status)
}

// applyPaymentStatus moves the booking behind a payment intent to status.
// Repeated and out-of-order events leave the booking as it is.
func (s *service) applyPaymentStatus(ctx context.Context, tx pgx.Tx, paymentIntentID string, status enum.BookingStatus) (*models.Booking, error) {
	bookingModel, err := s.booking.GetBookingByPaymentIntentID(ctx, tx, paymentIntentID)
	if errors.Is(err, booking.ErrNotFound) {
		s.logger.Warn("No booking for payment intent", zap.String("payment_intent_id", paymentIntentID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking for payment intent %s: %w", paymentIntentID, err)
	}

	if bookingModel.Status == status {
		return nil, nil
	}
	if !bookingModel.AllowChangeStatus(status) {
		s.logger.Warn("Ignoring payment status change",
			zap.String("booking_id", bookingModel.ID),
			zap.String("from", string(bookingModel.Status)),
			zap.String("to", string(status)))
		return nil, nil
	}

	if err = s.setStatus(ctx, tx, bookingModel, status); err != nil {
		return nil, err
	}

	s.logger.Info("Booking status updated",
		zap.String("booking_id", bookingModel.ID),
		zap.String("status", string(status)))
	return bookingModel, nil
}

// ProcessEvent records a payment event and applies it once. Event types with
// no handler are ignored.
func (s *service) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	handler, exists := s.eventManager.GetHandler(event.Type)
	if !exists {
		s.logger.Debug("No handler registered for event", zap.String("event_type", string(event.Type)))
		return nil
	}

	var changed *models.Booking
	err := s.transactionManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		now := s.now()
		created, err := s.event.Create(ctx, tx, &models.Event{
			ID:        event.ID,
			Type:      event.Type,
			Processed: false,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to record event: %w", err)
		}
		if !created {
			stored, err := s.event.GetByID(ctx, tx, event.ID)
			if err != nil {
				return fmt.Errorf("failed to get event: %w", err)
			}
			if stored.Processed {
				s.logger.Info("Event already processed", zap.String("event_id", event.ID))
				return nil
			}
		}

		if changed, err = handler(ctx, tx, event); err != nil {
			return err
		}
		return s.event.MarkAsProcessed(ctx, tx, event.ID)
	})
	if err != nil {
		s.logger.Error("Failed to process event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}

	if changed != nil {
		s.publish(bookingEvent(models.BookingEventStatus, changed, s.now()))
	}
	s.logger.Info("Stripe event processed", zap.String("event_id", event.ID))
	return nil
}
