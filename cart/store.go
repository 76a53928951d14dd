package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bishal-dd/monument-fees-prototype/models"
)

// Store is an ordered set of line items keyed by monument id.
//
// Every mutation swaps in a new backing slice, so a slice returned by Items
// is never modified afterwards. Quantities are clamped to zero and an entry
// whose adult and kid quantities add up to zero is dropped.
type Store struct {
	mu    sync.RWMutex
	items []models.LineItem
}

// NewStore returns a store holding items, merged in order.
func NewStore(items ...models.LineItem) *Store {
	s := &Store{}
	for _, item := range items {
		s.AddToCart(item)
	}
	return s
}

// AddToCart merges item into the entry with the same monument id, or appends
// it. Totals are recomputed from the merged quantities and the price the
// entry was first added with.
func (s *Store) AddToCart(item models.LineItem) {
	item.AdultQuantity = clamp(item.AdultQuantity)
	item.KidQuantity = clamp(item.KidQuantity)

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOf(item.MonumentID)
	if index < 0 {
		if item.Quantity() == 0 {
			return
		}
		item.Recompute()
		next := make([]models.LineItem, len(s.items), len(s.items)+1)
		copy(next, s.items)
		s.items = append(next, item)
		return
	}

	next := s.clone()
	existing := &next[index]
	existing.AdultQuantity += item.AdultQuantity
	existing.KidQuantity += item.KidQuantity
	existing.Recompute()
	s.items = next
}

// RemoveFromCart drops the entry for monumentID; absent ids are ignored.
func (s *Store) RemoveFromCart(monumentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(monumentID) < 0 {
		return
	}
	next := make([]models.LineItem, 0, len(s.items)-1)
	for _, item := range s.items {
		if item.MonumentID != monumentID {
			next = append(next, item)
		}
	}
	s.items = next
}

// UpdateAdultQuantity sets the adult count of an entry.
func (s *Store) UpdateAdultQuantity(monumentID int64, quantity int) {
	s.update(monumentID, func(item *models.LineItem) {
		item.AdultQuantity = clamp(quantity)
	})
}

// UpdateKidQuantity sets the kid count of an entry.
func (s *Store) UpdateKidQuantity(monumentID int64, quantity int) {
	s.update(monumentID, func(item *models.LineItem) {
		item.KidQuantity = clamp(quantity)
	})
}

// UpdateQuantity is the single-quantity form of UpdateAdultQuantity, for
// entries that carry no kid tickets.
func (s *Store) UpdateQuantity(monumentID int64, quantity int) {
	s.UpdateAdultQuantity(monumentID, quantity)
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Items returns the entries in first-added order.
func (s *Store) Items() []models.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Item returns the entry for monumentID.
func (s *Store) Item(monumentID int64) (models.LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(monumentID); i >= 0 {
		return s.items[i], true
	}
	return models.LineItem{}, false
}

// Total sums every entry's adult and kid totals.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.Total())
	}
	return total
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

func (s *Store) update(monumentID int64, set func(item *models.LineItem)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOf(monumentID)
	if index < 0 {
		return
	}

	next := s.clone()
	item := &next[index]
	set(item)
	item.Recompute()
	if item.Quantity() <= 0 {
		next = append(next[:index], next[index+1:]...)
	}
	s.items = next
}

func (s *Store) indexOf(monumentID int64) int {
	for i, item := range s.items {
		if item.MonumentID == monumentID {
			return i
		}
	}
	return -1
}

func (s *Store) clone() []models.LineItem {
	next := make([]models.LineItem, len(s.items))
	copy(next, s.items)
	return next
}

func clamp(quantity int) int {
	if quantity < 0 {
		return 0
	}
	return quantity
}
