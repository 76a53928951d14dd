package cart

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bishal-dd/monument-fees-prototype/models"
)

func monument(id int64, name string, price int64) *models.Monument {
	return &models.Monument{ID: id, Name: name, Price: decimal.NewFromInt(price)}
}

var (
	punakha   = monument(7, "Punakha Dzong", 600)
	tashichho = monument(1, "Tashichho Dzong", 500)
	chorten   = monument(2, "Memorial Chorten", 300)
)

func assertTotal(t *testing.T, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("total = %s, want %d", got, want)
	}
}

func assertConsistent(t *testing.T, s *Store) {
	t.Helper()
	for _, item := range s.Items() {
		adult := item.Price.Mul(decimal.NewFromInt(int64(item.AdultQuantity)))
		kid := item.Price.Mul(decimal.NewFromFloat(0.5)).Mul(decimal.NewFromInt(int64(item.KidQuantity)))
		if !item.AdultTotal.Equal(adult) {
			t.Errorf("monument %d: adult total %s, want %s", item.MonumentID, item.AdultTotal, adult)
		}
		if !item.KidTotal.Equal(kid) {
			t.Errorf("monument %d: kid total %s, want %s", item.MonumentID, item.KidTotal, kid)
		}
		if item.Quantity() <= 0 {
			t.Errorf("monument %d kept with zero quantity", item.MonumentID)
		}
	}
}

func TestPunakhaScenario(t *testing.T) {
	s := NewStore()
	s.AddToCart(models.NewLineItem(punakha, 2, 1))

	item, ok := s.Item(7)
	if !ok {
		t.Fatal("item not added")
	}
	assertTotal(t, item.AdultTotal, 1200)
	assertTotal(t, item.KidTotal, 300)
	assertTotal(t, s.Total(), 1500)

	s.UpdateKidQuantity(7, 0)
	item, ok = s.Item(7)
	if !ok {
		t.Fatal("item removed while adults remain")
	}
	assertTotal(t, item.KidTotal, 0)
	assertTotal(t, s.Total(), 1200)

	s.UpdateAdultQuantity(7, 0)
	if !s.IsEmpty() {
		t.Fatalf("cart has %d items, want empty", s.Len())
	}
	assertTotal(t, s.Total(), 0)
}

func TestAddToCartMerges(t *testing.T) {
	s := NewStore()
	s.AddToCart(models.NewLineItem(tashichho, 1, 0))
	s.AddToCart(models.NewLineItem(chorten, 2, 2))
	s.AddToCart(models.NewLineItem(tashichho, 2, 3))

	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].MonumentID != tashichho.ID || items[1].MonumentID != chorten.ID {
		t.Fatalf("order changed: %d, %d", items[0].MonumentID, items[1].MonumentID)
	}
	if items[0].AdultQuantity != 3 || items[0].KidQuantity != 3 {
		t.Fatalf("merged quantities = %d/%d, want 3/3", items[0].AdultQuantity, items[0].KidQuantity)
	}
	assertTotal(t, items[0].AdultTotal, 1500)
	assertTotal(t, items[0].KidTotal, 750)
	assertTotal(t, s.Total(), 1500+750+600+300)
	assertConsistent(t, s)
}

func TestAddToCartRecomputesCallerTotals(t *testing.T) {
	s := NewStore()
	item := models.NewLineItem(punakha, 1, 1)
	item.AdultTotal = decimal.NewFromInt(99999)
	s.AddToCart(item)

	assertTotal(t, s.Total(), 900)
	assertConsistent(t, s)
}

func TestAddToCartKeepsFirstPrice(t *testing.T) {
	s := NewStore()
	s.AddToCart(models.NewLineItem(punakha, 1, 0))
	s.AddToCart(models.NewLineItem(monument(7, "Punakha Dzong", 800), 1, 0))

	assertTotal(t, s.Total(), 1200)
}

func TestAddToCartIgnoresEmptyItems(t *testing.T) {
	s := NewStore()
	s.AddToCart(models.NewLineItem(punakha, 0, 0))
	s.AddToCart(models.NewLineItem(chorten, -3, 0))
	if !s.IsEmpty() {
		t.Fatalf("cart has %d items, want empty", s.Len())
	}
}

func TestUniqueness(t *testing.T) {
	s := NewStore()
	ids := []int64{1, 2, 1, 3, 2, 1, 7, 7}
	for _, id := range ids {
		s.AddToCart(models.NewLineItem(monument(id, "m", 100), 1, 1))
	}

	seen := make(map[int64]bool)
	for _, item := range s.Items() {
		if seen[item.MonumentID] {
			t.Fatalf("monument %d appears twice", item.MonumentID)
		}
		seen[item.MonumentID] = true
	}
	if len(seen) != 4 {
		t.Fatalf("got %d entries, want 4", len(seen))
	}
	item, _ := s.Item(1)
	if item.AdultQuantity != 3 || item.KidQuantity != 3 {
		t.Fatalf("monument 1 quantities = %d/%d, want 3/3", item.AdultQuantity, item.KidQuantity)
	}
}

func TestRemoveFromCart(t *testing.T) {
	s := NewStore(
		models.NewLineItem(tashichho, 1, 0),
		models.NewLineItem(chorten, 1, 0),
		models.NewLineItem(punakha, 1, 0),
	)

	s.RemoveFromCart(chorten.ID)
	items := s.Items()
	if len(items) != 2 || items[0].MonumentID != tashichho.ID || items[1].MonumentID != punakha.ID {
		t.Fatalf("unexpected items after remove: %+v", items)
	}

	before := s.Items()
	s.RemoveFromCart(42)
	after := s.Items()
	if len(before) != len(after) {
		t.Fatalf("removing an absent id changed the cart: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].MonumentID != after[i].MonumentID {
			t.Fatalf("removing an absent id reordered the cart")
		}
	}
}

func TestUpdateQuantities(t *testing.T) {
	tests := []struct {
		name       string
		adults     int
		kids       int
		update     func(s *Store)
		wantAdults int
		wantKids   int
		wantTotal  int64
		wantGone   bool
	}{
		{
			name: "adult increase", adults: 1, kids: 0,
			update:     func(s *Store) { s.UpdateAdultQuantity(7, 4) },
			wantAdults: 4, wantTotal: 2400,
		},
		{
			name: "kid increase", adults: 1, kids: 0,
			update:     func(s *Store) { s.UpdateKidQuantity(7, 2) },
			wantAdults: 1, wantKids: 2, wantTotal: 1200,
		},
		{
			name: "kids only remain", adults: 2, kids: 2,
			update:     func(s *Store) { s.UpdateAdultQuantity(7, 0) },
			wantKids: 2, wantTotal: 600,
		},
		{
			name: "negative clamps to zero and removes", adults: 1, kids: 0,
			update:   func(s *Store) { s.UpdateAdultQuantity(7, -5) },
			wantGone: true,
		},
		{
			name: "simple quantity update", adults: 3, kids: 0,
			update:     func(s *Store) { s.UpdateQuantity(7, 1) },
			wantAdults: 1, wantTotal: 600,
		},
		{
			name: "simple quantity to zero removes", adults: 3, kids: 0,
			update:   func(s *Store) { s.UpdateQuantity(7, 0) },
			wantGone: true,
		},
		{
			name: "unknown id is a no-op", adults: 1, kids: 1,
			update:     func(s *Store) { s.UpdateAdultQuantity(99, 10) },
			wantAdults: 1, wantKids: 1, wantTotal: 900,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(models.NewLineItem(punakha, tt.adults, tt.kids))
			tt.update(s)

			item, ok := s.Item(7)
			if tt.wantGone {
				if ok {
					t.Fatalf("entry kept: %+v", item)
				}
				return
			}
			if !ok {
				t.Fatal("entry removed")
			}
			if item.AdultQuantity != tt.wantAdults || item.KidQuantity != tt.wantKids {
				t.Fatalf("quantities = %d/%d, want %d/%d", item.AdultQuantity, item.KidQuantity, tt.wantAdults, tt.wantKids)
			}
			assertTotal(t, s.Total(), tt.wantTotal)
			assertConsistent(t, s)
		})
	}
}

func TestUpdateKeepsPosition(t *testing.T) {
	s := NewStore(
		models.NewLineItem(tashichho, 1, 0),
		models.NewLineItem(chorten, 1, 0),
		models.NewLineItem(punakha, 1, 0),
	)
	s.UpdateKidQuantity(chorten.ID, 5)
	s.AddToCart(models.NewLineItem(tashichho, 1, 0))

	items := s.Items()
	want := []int64{tashichho.ID, chorten.ID, punakha.ID}
	for i, id := range want {
		if items[i].MonumentID != id {
			t.Fatalf("position %d = %d, want %d", i, items[i].MonumentID, id)
		}
	}
}

func TestSnapshotsAreStable(t *testing.T) {
	s := NewStore(models.NewLineItem(punakha, 2, 1))
	snapshot := s.Items()

	s.UpdateAdultQuantity(7, 5)
	s.AddToCart(models.NewLineItem(chorten, 1, 0))
	s.ClearCart()

	if len(snapshot) != 1 || snapshot[0].AdultQuantity != 2 {
		t.Fatalf("snapshot mutated: %+v", snapshot)
	}
	assertTotal(t, snapshot[0].Total(), 1500)
}

func TestClearCart(t *testing.T) {
	s := NewStore(models.NewLineItem(punakha, 2, 1), models.NewLineItem(chorten, 1, 0))
	s.ClearCart()
	if !s.IsEmpty() || len(s.Items()) != 0 {
		t.Fatalf("cart not cleared")
	}
	assertTotal(t, s.Total(), 0)

	s.ClearCart()
	s.AddToCart(models.NewLineItem(chorten, 1, 0))
	if s.Len() != 1 {
		t.Fatalf("len = %d after re-adding, want 1", s.Len())
	}
}
