package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bishal-dd/monument-fees-prototype/models/enum"
)

// Dzongkhag is a district used to group monuments.
type Dzongkhag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Monument is a bookable site with its adult ticket price.
type Monument struct {
	ID          int64               `json:"id"`
	DzongkhagID int64               `json:"dzongkhag_id"`
	Name        string              `json:"name"`
	Location    string              `json:"location"`
	Price       decimal.Decimal     `json:"price"`
	Status      enum.MonumentStatus `json:"status"`
	Featured    bool                `json:"featured"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (m *Monument) Bookable() bool {
	return m.Status == enum.MonumentStatusActive
}
