package enum

// BookingStatus is the payment state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // created at checkout, waiting for OTP confirmation
	BookingStatusPaid      BookingStatus = "paid"      // payment confirmed, tickets valid
	BookingStatusFailed    BookingStatus = "failed"    // payment rejected by the gateway
	BookingStatusCancelled BookingStatus = "cancelled" // payment intent cancelled
	BookingStatusRefunded  BookingStatus = "refunded"  // charge refunded
)

// IsFinal reports whether no further payment transition is allowed.
func (s BookingStatus) IsFinal() bool {
	switch s {
	case BookingStatusFailed, BookingStatusCancelled, BookingStatusRefunded:
		return true
	}
	return false
}
