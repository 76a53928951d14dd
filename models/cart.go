package models

import (
	"github.com/shopspring/decimal"
)

// KidDiscount is the fraction of the adult price charged for a child ticket.
var KidDiscount = decimal.NewFromFloat(0.5)

// KidPrice returns the child ticket price for an adult price.
func KidPrice(price decimal.Decimal) decimal.Decimal {
	return price.Mul(KidDiscount)
}

// LineItem is one row of a cart: a monument and the tickets selected for it.
type LineItem struct {
	MonumentID    int64           `json:"monument_id"`
	MonumentName  string          `json:"monument_name"`
	Price         decimal.Decimal `json:"price"`
	AdultQuantity int             `json:"adult_quantity"`
	KidQuantity   int             `json:"kid_quantity"`
	AdultTotal    decimal.Decimal `json:"adult_total"`
	KidTotal      decimal.Decimal `json:"kid_total"`
}

// NewLineItem builds a line item for a monument with its totals computed.
func NewLineItem(monument *Monument, adults, kids int) LineItem {
	item := LineItem{
		MonumentID:    monument.ID,
		MonumentName:  monument.Name,
		Price:         monument.Price,
		AdultQuantity: adults,
		KidQuantity:   kids,
	}
	item.Recompute()
	return item
}

// Recompute derives both totals from the quantities and the unit price.
func (li *LineItem) Recompute() {
	li.AdultTotal = li.Price.Mul(decimal.NewFromInt(int64(li.AdultQuantity)))
	li.KidTotal = KidPrice(li.Price).Mul(decimal.NewFromInt(int64(li.KidQuantity)))
}

func (li LineItem) Quantity() int {
	return li.AdultQuantity + li.KidQuantity
}

func (li LineItem) Total() decimal.Decimal {
	return li.AdultTotal.Add(li.KidTotal)
}

// CartView is the read model handed to callers rendering a cart.
type CartView struct {
	SessionID string          `json:"session_id"`
	Items     []LineItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
}
