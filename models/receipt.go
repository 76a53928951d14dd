package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiptLine struct {
	Monument      string          `json:"monument"`
	AdultQuantity int             `json:"adult_quantity"`
	KidQuantity   int             `json:"kid_quantity"`
	AdultPrice    decimal.Decimal `json:"adult_price"`
	KidPrice      decimal.Decimal `json:"kid_price"`
	Total         decimal.Decimal `json:"total"`
}

// Receipt is the printable proof of purchase for a paid booking.
type Receipt struct {
	BookingID    string          `json:"booking_id"`
	Code         string          `json:"code"`
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	PurchaseDate time.Time       `json:"purchase_date"`
	ValidUntil   time.Time       `json:"valid_until"`
	Lines        []ReceiptLine   `json:"lines"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	SecurityHash string          `json:"security_hash"`
}

func NewReceipt(b *Booking) *Receipt {
	purchased := b.CreatedAt
	if b.PaidAt != nil {
		purchased = *b.PaidAt
	}
	r := &Receipt{
		BookingID:    b.ID,
		Code:         b.Code,
		CustomerName: b.CustomerName,
		Email:        b.Email,
		PurchaseDate: purchased,
		ValidUntil:   b.ValidUntil,
		Lines:        make([]ReceiptLine, 0, len(b.Tickets)),
		TotalAmount:  decimal.Zero,
		SecurityHash: b.SecurityHash,
	}
	for _, t := range b.Tickets {
		line := ReceiptLine{
			Monument:      t.MonumentName,
			AdultQuantity: t.AdultQuantity,
			KidQuantity:   t.KidQuantity,
			AdultPrice:    t.AdultPrice,
			KidPrice:      t.KidPrice,
			Total:         t.Total(),
		}
		r.Lines = append(r.Lines, line)
		r.TotalAmount = r.TotalAmount.Add(line.Total)
	}
	return r
}
