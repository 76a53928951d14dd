package models

import (
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/bishal-dd/monument-fees-prototype/models/enum"
)

// Event records a payment gateway event so it is handled at most once.
type Event struct {
	ID        string           `json:"id"`
	Type      stripe.EventType `json:"type"`
	Processed bool             `json:"processed"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// BookingEventType doubles as the NATS subject a BookingEvent is published on.
type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "booking.created"
	BookingEventOTPIssued BookingEventType = "booking.otp.issued"
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventStatus    BookingEventType = "booking.status"
	BookingEventTicketUse BookingEventType = "ticket.used"
)

// BookingEvent is the payload published for downstream consumers
// (notification delivery, reporting).
type BookingEvent struct {
	Type       BookingEventType   `json:"type"`
	BookingID  string             `json:"booking_id"`
	Code       string             `json:"code"`
	CustomerID string             `json:"customer_id,omitempty"`
	Email      string             `json:"email,omitempty"`
	Status     enum.BookingStatus `json:"status"`
	TicketID   int64              `json:"ticket_id,omitempty"`
	OTP        string             `json:"otp,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}
