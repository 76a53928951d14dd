// Package monumentfees books monument entry tickets: a session cart fed by
// the booking form, checkout into a pending booking, OTP confirmation,
// receipts, gate verification by staff and admin analytics.
package monumentfees

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/bishal-dd/monument-fees-prototype/booking"
	"github.com/bishal-dd/monument-fees-prototype/cart"
	"github.com/bishal-dd/monument-fees-prototype/driver"
	"github.com/bishal-dd/monument-fees-prototype/event"
	"github.com/bishal-dd/monument-fees-prototype/models"
	"github.com/bishal-dd/monument-fees-prototype/monument"
	"github.com/bishal-dd/monument-fees-prototype/otp"
	"github.com/bishal-dd/monument-fees-prototype/payment"
)

var (
	ErrEmptySelection      = errors.New("select at least one adult or kid ticket")
	ErrInvalidQuantity     = errors.New("quantity must not be negative")
	ErrMonumentUnavailable = errors.New("monument is not open for booking")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidCheckout     = errors.New("invalid checkout details")
	ErrInvalidMonument     = errors.New("invalid monument")
	ErrBookingNotPending   = errors.New("booking is not awaiting confirmation")
	ErrBookingNotPaid      = errors.New("booking is not paid")
	ErrBookingExpired      = errors.New("booking has expired")
	ErrInvalidRange        = errors.New("invalid date range")
)

const (
	DefaultCurrency       = stripe.Currency("btn")
	DefaultTicketValidity = 30 * 24 * time.Hour
	defaultWorkers        = 10
)

type Service interface {
	ListDzongkhags(ctx context.Context) ([]*models.Dzongkhag, error)
	ListMonuments(ctx context.Context, filter MonumentFilter) ([]*models.Monument, error)
	GetMonument(ctx context.Context, id int64) (*models.Monument, error)
	CreateMonument(ctx context.Context, monument *models.Monument) error
	UpdateMonument(ctx context.Context, monument *models.Monument) error
	DeleteMonument(ctx context.Context, id int64) error

	GetCart(ctx context.Context, sessionID string) (*models.CartView, error)
	AddToCart(ctx context.Context, sessionID string, monumentID int64, adults, kids int) (*models.CartView, error)
	UpdateAdultQuantity(ctx context.Context, sessionID string, monumentID int64, quantity int) (*models.CartView, error)
	UpdateKidQuantity(ctx context.Context, sessionID string, monumentID int64, quantity int) (*models.CartView, error)
	UpdateQuantities(ctx context.Context, sessionID string, monumentID int64, adults, kids int) (*models.CartView, error)
	RemoveFromCart(ctx context.Context, sessionID string, monumentID int64) (*models.CartView, error)
	ClearCart(ctx context.Context, sessionID string) error

	Checkout(ctx context.Context, sessionID string, req CheckoutRequest) (*CheckoutResult, error)
	VerifyOTP(ctx context.Context, sessionID, bookingID, code string) (*models.Booking, error)
	ResendOTP(ctx context.Context, bookingID string) error
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	GetReceipt(ctx context.Context, bookingID string) (*models.Receipt, error)
	ListBookings(ctx context.Context, customerID string, limit, offset uint64) ([]*models.Booking, error)

	LookupBooking(ctx context.Context, code string) (*models.BookingDetails, error)
	MarkTicketUsed(ctx context.Context, code string, ticketID int64) (*models.BookingDetails, error)

	Dashboard(ctx context.Context, from, to time.Time) (*models.Dashboard, error)

	Shutdown()
}

// Options tunes the service; zero values fall back to the defaults.
type Options struct {
	Currency       stripe.Currency
	TicketValidity time.Duration
	SecuritySecret string
	Workers        int
}

type service struct {
	monument monument.Repository
	cart     cart.Repository
	booking  booking.Repository
	event    event.Repository

	transactionManager driver.Transactor
	eventManager       *EventManager
	workerPool         *WorkerPool
	otp                *otp.Service
	gateway            payment.Gateway

	options Options
	now     func() time.Time
	random  io.Reader
	logger  *zap.Logger
}

func NewService(
	monument monument.Repository, cart cart.Repository, booking booking.Repository, event event.Repository,
	tm driver.Transactor, otpService *otp.Service, gateway payment.Gateway,
	natsConn *nats.Conn, options Options,
	logger *zap.Logger) (Service, error) {
	if options.Currency == "" {
		options.Currency = DefaultCurrency
	}
	if options.TicketValidity <= 0 {
		options.TicketValidity = DefaultTicketValidity
	}
	if options.Workers <= 0 {
		options.Workers = defaultWorkers
	}

	s := &service{
		monument:           monument,
		cart:               cart,
		booking:            booking,
		event:              event,
		transactionManager: tm,
		otp:                otpService,
		gateway:            gateway,
		options:            options,
		now:                time.Now,
		random:             rand.Reader,
		logger:             logger,
	}
	s.eventManager = NewEventManager(natsConn, logger)
	s.workerPool = NewWorkerPool(options.Workers, s, logger)
	s.registerEventHandlers()

	if natsConn != nil {
		if err := s.eventManager.SubscribeToEvents(s.workerPool); err != nil {
			s.workerPool.Shutdown()
			return nil, fmt.Errorf("failed to subscribe to payment events: %w", err)
		}
	}

	return s, nil
}

func (s *service) Shutdown() {
	s.eventManager.Unsubscribe()
	s.workerPool.Shutdown()
}

// MonumentFilter selects monuments by district or by a free-text query.
// DzongkhagID takes precedence over Query.
type MonumentFilter struct {
	DzongkhagID int64
	Query       string
	Limit       uint64
	Offset      uint64
}

func (s *service) ListDzongkhags(ctx context.Context) ([]*models.Dzongkhag, error) {
	return s.monument.ListDzongkhags(ctx, nil)
}

func (s *service) ListMonuments(ctx context.Context, filter MonumentFilter) ([]*models.Monument, error) {
	switch {
	case filter.DzongkhagID > 0:
		return s.monument.ListByDzongkhag(ctx, nil, filter.DzongkhagID)
	case strings.TrimSpace(filter.Query) != "":
		return s.monument.Search(ctx, nil, filter.Query)
	}
	return s.monument.List(ctx, nil, filter.Limit, filter.Offset)
}

func (s *service) GetMonument(ctx context.Context, id int64) (*models.Monument, error) {
	return s.monument.GetByID(ctx, nil, id)
}

func (s *service) CreateMonument(ctx context.Context, m *models.Monument) error {
	if err := validateMonument(m); err != nil {
		return err
	}
	return s.monument.Create(ctx, nil, m)
}

func (s *service) UpdateMonument(ctx context.Context, m *models.Monument) error {
	if err := validateMonument(m); err != nil {
		return err
	}
	return s.monument.Update(ctx, nil, m)
}

func (s *service) DeleteMonument(ctx context.Context, id int64) error {
	return s.monument.Delete(ctx, nil, id)
}

func (s *service) GetCart(ctx context.Context, sessionID string) (*models.CartView, error) {
	store, err := s.cart.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cartView(sessionID, store), nil
}

// AddToCart is the booking form's producer: it prices the selection from the
// catalog and merges it into the session cart.
func (s *service) AddToCart(ctx context.Context, sessionID string, monumentID int64, adults, kids int) (*models.CartView, error) {
	if adults < 0 || kids < 0 {
		return nil, ErrInvalidQuantity
	}
	if adults+kids == 0 {
		return nil, ErrEmptySelection
	}

	monumentModel, err := s.monument.GetByID(ctx, nil, monumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get monument %d: %w", monumentID, err)
	}
	if !monumentModel.Bookable() {
		return nil, ErrMonumentUnavailable
	}

	item := models.NewLineItem(monumentModel, adults, kids)
	return s.updateCart(ctx, sessionID, func(store *cart.Store) {
		store.AddToCart(item)
	})
}

func (s *service) UpdateAdultQuantity(ctx context.Context, sessionID string, monumentID int64, quantity int) (*models.CartView, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return s.updateCart(ctx, sessionID, func(store *cart.Store) {
		store.UpdateAdultQuantity(monumentID, quantity)
	})
}

func (s *service) UpdateKidQuantity(ctx context.Context, sessionID string, monumentID int64, quantity int) (*models.CartView, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return s.updateCart(ctx, sessionID, func(store *cart.Store) {
		store.UpdateKidQuantity(monumentID, quantity)
	})
}

// UpdateQuantities sets both counts of a selection in one cart write. Setting
// both to zero removes the selection.
func (s *service) UpdateQuantities(ctx context.Context, sessionID string, monumentID int64, adults, kids int) (*models.CartView, error) {
	if adults < 0 || kids < 0 {
		return nil, ErrInvalidQuantity
	}
	return s.updateCart(ctx, sessionID, func(store *cart.Store) {
		// the larger count goes first so the entry is not dropped halfway
		if adults >= kids {
			store.UpdateAdultQuantity(monumentID, adults)
			store.UpdateKidQuantity(monumentID, kids)
			return
		}
		store.UpdateKidQuantity(monumentID, kids)
		store.UpdateAdultQuantity(monumentID, adults)
	})
}

func (s *service) RemoveFromCart(ctx context.Context, sessionID string, monumentID int64) (*models.CartView, error) {
	return s.updateCart(ctx, sessionID, func(store *cart.Store) {
		store.RemoveFromCart(monumentID)
	})
}

func (s *service) ClearCart(ctx context.Context, sessionID string) error {
	if err := s.cart.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *service) updateCart(ctx context.Context, sessionID string, mutate func(store *cart.Store)) (*models.CartView, error) {
	store, err := s.cart.Update(ctx, sessionID, func(store *cart.Store) error {
		mutate(store)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	return cartView(sessionID, store), nil
}

func cartView(sessionID string, store *cart.Store) *models.CartView {
	return &models.CartView{
		SessionID: sessionID,
		Items:     store.Items(),
		Total:     store.Total(),
	}
}

func validateMonument(m *models.Monument) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: monument name is required", ErrInvalidMonument)
	}
	if m.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidMonument)
	}
	if m.DzongkhagID <= 0 {
		return fmt.Errorf("%w: dzongkhag is required", ErrInvalidMonument)
	}
	return nil
}
