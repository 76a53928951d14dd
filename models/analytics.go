package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MonumentRevenue struct {
	MonumentID   int64           `json:"monument_id"`
	MonumentName string          `json:"monument_name"`
	Revenue      decimal.Decimal `json:"revenue"`
	Bookings     int64           `json:"bookings"`
	Visitors     int64           `json:"visitors"`
}

type MonthlyRevenue struct {
	Month    time.Time       `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Bookings int64           `json:"bookings"`
	Visitors int64           `json:"visitors"`
}

// Totals aggregates paid bookings over a period.
type Totals struct {
	Revenue       decimal.Decimal `json:"revenue"`
	Bookings      int64           `json:"bookings"`
	AdultVisitors int64           `json:"adult_visitors"`
	KidVisitors   int64           `json:"kid_visitors"`
}

func (t Totals) Visitors() int64 {
	return t.AdultVisitors + t.KidVisitors
}

// Dashboard is the admin analytics read model.
type Dashboard struct {
	From       time.Time         `json:"from"`
	To         time.Time         `json:"to"`
	Totals     Totals            `json:"totals"`
	ByMonument []MonumentRevenue `json:"by_monument"`
	ByMonth    []MonthlyRevenue  `json:"by_month"`
}
