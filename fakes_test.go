package monumentfees

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bishal-dd/monument-fees-prototype/booking"
	"github.com/bishal-dd/monument-fees-prototype/cart"
	"github.com/bishal-dd/monument-fees-prototype/models"
	"github.com/bishal-dd/monument-fees-prototype/models/enum"
	"github.com/bishal-dd/monument-fees-prototype/monument"
	"github.com/bishal-dd/monument-fees-prototype/otp"
	"github.com/bishal-dd/monument-fees-prototype/payment"
)

type fakeTransactor struct{}

func (fakeTransactor) ExecuteTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (fakeTransactor) ExecuteSerializableTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeMonuments struct {
	monument.Repository
	mu        sync.Mutex
	monuments map[int64]*models.Monument
}

func newFakeMonuments(monuments ...*models.Monument) *fakeMonuments {
	f := &fakeMonuments{monuments: make(map[int64]*models.Monument)}
	for _, m := range monuments {
		f.monuments[m.ID] = m
	}
	return f
}

func (f *fakeMonuments) GetByID(_ context.Context, _ pgx.Tx, id int64) (*models.Monument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.monuments[id]
	if !ok {
		return nil, monument.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMonuments) Create(_ context.Context, _ pgx.Tx, m *models.Monument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = int64(len(f.monuments) + 100)
	copied := *m
	f.monuments[m.ID] = &copied
	return nil
}

type fakeCarts struct {
	mu      sync.Mutex
	stores  map[string]*cart.Store
	updates int
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{stores: make(map[string]*cart.Store)}
}

func (f *fakeCarts) Get(_ context.Context, sessionID string) (*cart.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if store, ok := f.stores[sessionID]; ok {
		return cart.NewStore(store.Items()...), nil
	}
	return cart.NewStore(), nil
}

func (f *fakeCarts) Update(_ context.Context, sessionID string, fn func(store *cart.Store) error) (*cart.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	store, ok := f.stores[sessionID]
	if !ok {
		store = cart.NewStore()
	}
	if err := fn(store); err != nil {
		return nil, err
	}
	if store.IsEmpty() {
		delete(f.stores, sessionID)
	} else {
		f.stores[sessionID] = store
	}
	return store, nil
}

func (f *fakeCarts) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stores, sessionID)
	return nil
}

type fakeBookings struct {
	booking.Repository
	mu           sync.Mutex
	bookings     map[string]*models.Booking
	nextTicketID int64
	failCodes    int
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{bookings: make(map[string]*models.Booking)}
}

func copyBooking(b *models.Booking) *models.Booking {
	copied := *b
	copied.Tickets = append([]models.Ticket(nil), b.Tickets...)
	return &copied
}

func (f *fakeBookings) CreateBooking(_ context.Context, _ pgx.Tx, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCodes > 0 {
		f.failCodes--
		return errUniqueViolation
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	for i := range b.Tickets {
		f.nextTicketID++
		b.Tickets[i].ID = f.nextTicketID
		b.Tickets[i].BookingID = b.ID
	}
	f.bookings[b.ID] = copyBooking(b)
	return nil
}

func (f *fakeBookings) get(match func(b *models.Booking) bool) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if match(b) {
			return copyBooking(b), nil
		}
	}
	return nil, booking.ErrNotFound
}

func (f *fakeBookings) GetBooking(_ context.Context, _ pgx.Tx, id string) (*models.Booking, error) {
	return f.get(func(b *models.Booking) bool { return b.ID == id })
}

func (f *fakeBookings) GetBookingByCode(_ context.Context, _ pgx.Tx, code string) (*models.Booking, error) {
	return f.get(func(b *models.Booking) bool { return b.Code == strings.ToUpper(code) })
}

func (f *fakeBookings) GetBookingByPaymentIntentID(_ context.Context, _ pgx.Tx, id string) (*models.Booking, error) {
	return f.get(func(b *models.Booking) bool { return b.PaymentIntentID == id })
}

func (f *fakeBookings) UpdateBookingStatus(_ context.Context, _ pgx.Tx, id string, status enum.BookingStatus, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = updatedAt
	return nil
}

func (f *fakeBookings) MarkBookingPaid(_ context.Context, _ pgx.Tx, id string, paidAt, validUntil time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	b.Status = enum.BookingStatusPaid
	b.PaidAt = &paidAt
	b.ValidUntil = validUntil
	b.UpdatedAt = paidAt
	return nil
}

func (f *fakeBookings) SetPaymentIntent(_ context.Context, _ pgx.Tx, id, paymentIntentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	b.PaymentIntentID = paymentIntentID
	return nil
}

func (f *fakeBookings) ListBookings(_ context.Context, _ pgx.Tx, customerID string, limit, offset uint64) ([]*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Booking
	for _, b := range f.bookings {
		if b.CustomerID == customerID {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= uint64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < uint64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBookings) MarkTicketUsed(_ context.Context, _ pgx.Tx, bookingID string, ticketID int64, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return booking.ErrNotFound
	}
	ticket, ok := b.Ticket(ticketID)
	if !ok {
		return booking.ErrTicketNotFound
	}
	if ticket.IsUsed() {
		return booking.ErrTicketAlreadyUsed
	}
	ticket.UsedAt = &usedAt
	return nil
}

func (f *fakeBookings) setValidUntil(id string, validUntil time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[id].ValidUntil = validUntil
}

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]*models.Event
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: make(map[string]*models.Event)}
}

func (f *fakeEvents) Create(_ context.Context, _ pgx.Tx, event *models.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.ID]; ok {
		return false, nil
	}
	copied := *event
	f.events[event.ID] = &copied
	return true, nil
}

func (f *fakeEvents) GetByID(_ context.Context, _ pgx.Tx, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, errors.New("event not found")
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEvents) MarkAsProcessed(_ context.Context, _ pgx.Tx, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[id].Processed = true
	return nil
}

type fakeGateway struct {
	mu         sync.Mutex
	created    []payment.Request
	confirmed  []string
	cancelled  []string
	createErr  error
	confirmErr error
}

func (g *fakeGateway) CreatePayment(_ context.Context, req payment.Request) (*payment.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	return &payment.Payment{ID: "pi_" + req.Reference, ClientSecret: "secret_" + req.Reference}, nil
}

func (g *fakeGateway) ConfirmPayment(_ context.Context, paymentID string) (*payment.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.confirmErr != nil {
		return nil, g.confirmErr
	}
	g.confirmed = append(g.confirmed, paymentID)
	return &payment.Payment{ID: paymentID, Status: "succeeded"}, nil
}

func (g *fakeGateway) CancelPayment(_ context.Context, paymentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, paymentID)
	return nil
}

type fakeCodes struct {
	mu    sync.Mutex
	codes map[string]*otp.Code
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{codes: make(map[string]*otp.Code)}
}

func (f *fakeCodes) Save(_ context.Context, subject string, code *otp.Code, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *code
	f.codes[subject] = &copied
	return nil
}

func (f *fakeCodes) Get(_ context.Context, subject string) (*otp.Code, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[subject]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCodes) IncrementAttempts(_ context.Context, subject string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[subject]
	if !ok {
		c = &otp.Code{}
		f.codes[subject] = c
	}
	c.Attempts++
	return c.Attempts, nil
}

func (f *fakeCodes) Delete(_ context.Context, subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, subject)
	return nil
}

type published struct {
	mu     sync.Mutex
	events []*models.BookingEvent
}

func (p *published) record(event *models.BookingEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *published) ofType(eventType models.BookingEventType) []*models.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.BookingEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// lastOTP returns the code most recently issued for bookingID.
func (p *published) lastOTP(bookingID string) string {
	events := p.ofType(models.BookingEventOTPIssued)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].BookingID == bookingID {
			return events[i].OTP
		}
	}
	return ""
}
