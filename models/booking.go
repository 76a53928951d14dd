package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"

	"github.com/bishal-dd/monument-fees-prototype/models/enum"
)

// Booking is a checked-out cart: one purchase holding a ticket per monument.
type Booking struct {
	ID              string             `json:"id"`
	Code            string             `json:"code"`
	CustomerID      string             `json:"customer_id"`
	CustomerName    string             `json:"customer_name"`
	Email           string             `json:"email"`
	Bank            enum.Bank          `json:"bank"`
	AccountLast4    string             `json:"account_last4"`
	Status          enum.BookingStatus `json:"status"`
	Currency        stripe.Currency    `json:"currency"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	PaymentIntentID string             `json:"payment_intent_id,omitempty"`
	SecurityHash    string             `json:"security_hash"`
	Tickets         []Ticket           `json:"tickets"`
	ValidUntil      time.Time          `json:"valid_until"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Ticket admits the booked adults and kids to one monument, once.
type Ticket struct {
	ID            int64           `json:"id"`
	BookingID     string          `json:"booking_id"`
	MonumentID    int64           `json:"monument_id"`
	MonumentName  string          `json:"monument_name"`
	AdultQuantity int             `json:"adult_quantity"`
	KidQuantity   int             `json:"kid_quantity"`
	AdultPrice    decimal.Decimal `json:"adult_price"`
	KidPrice      decimal.Decimal `json:"kid_price"`
	UsedAt        *time.Time      `json:"used_at,omitempty"`
}

// TicketFromLineItem freezes a cart line into a ticket.
func TicketFromLineItem(item LineItem) Ticket {
	return Ticket{
		MonumentID:    item.MonumentID,
		MonumentName:  item.MonumentName,
		AdultQuantity: item.AdultQuantity,
		KidQuantity:   item.KidQuantity,
		AdultPrice:    item.Price,
		KidPrice:      KidPrice(item.Price),
	}
}

func (t Ticket) IsUsed() bool {
	return t.UsedAt != nil
}

func (t Ticket) Total() decimal.Decimal {
	adults := t.AdultPrice.Mul(decimal.NewFromInt(int64(t.AdultQuantity)))
	kids := t.KidPrice.Mul(decimal.NewFromInt(int64(t.KidQuantity)))
	return adults.Add(kids)
}

func (b *Booking) Validate() error {
	if strings.TrimSpace(b.CustomerName) == "" {
		return errors.New("customer name is required")
	}
	if !strings.Contains(b.Email, "@") {
		return errors.New("a valid email is required")
	}
	if !b.Bank.Valid() {
		return errors.New("unsupported bank")
	}
	if len(b.Tickets) == 0 {
		return errors.New("booking has no tickets")
	}
	return nil
}

// AllowChangeStatus reports whether the payment state may move to status.
func (b *Booking) AllowChangeStatus(status enum.BookingStatus) bool {
	switch b.Status {
	case enum.BookingStatusPending:
		return status == enum.BookingStatusPaid ||
			status == enum.BookingStatusFailed ||
			status == enum.BookingStatusCancelled
	case enum.BookingStatusPaid:
		return status == enum.BookingStatusRefunded
	}
	return false
}

// Expired reports whether the tickets are past their validity at now.
func (b *Booking) Expired(now time.Time) bool {
	return !b.ValidUntil.IsZero() && now.After(b.ValidUntil)
}

// UsageStatus derives the gate status from the tickets; it is never stored.
func (b *Booking) UsageStatus(now time.Time) enum.UsageStatus {
	if b.Expired(now) {
		return enum.UsageStatusExpired
	}
	used := 0
	for _, t := range b.Tickets {
		if t.IsUsed() {
			used++
		}
	}
	switch {
	case used > 0 && used == len(b.Tickets):
		return enum.UsageStatusUsed
	case used > 0:
		return enum.UsageStatusPartiallyUsed
	}
	return enum.UsageStatusActive
}

func (b *Booking) Ticket(ticketID int64) (*Ticket, bool) {
	for i := range b.Tickets {
		if b.Tickets[i].ID == ticketID {
			return &b.Tickets[i], true
		}
	}
	return nil, false
}

func (b *Booking) Visitors() (adults, kids int) {
	for _, t := range b.Tickets {
		adults += t.AdultQuantity
		kids += t.KidQuantity
	}
	return adults, kids
}

// BookingDetails is the staff view of a booking.
type BookingDetails struct {
	*Booking
	UsageStatus enum.UsageStatus `json:"usage_status"`
}
