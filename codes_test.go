package monumentfees

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

func TestNewBookingCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := newBookingCode(rand.Reader)
		if err != nil {
			t.Fatalf("newBookingCode: %v", err)
		}
		if len(code) != bookingCodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		if strings.Trim(code, bookingCodeAlphabet) != "" {
			t.Fatalf("code %q has characters outside the alphabet", code)
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Fatalf("only %d distinct codes out of 200", len(seen))
	}
}

func TestSecurityHash(t *testing.T) {
	a := securityHash("secret", "booking-1", "ABCD1234")
	if len(a) != securityHashLength || strings.ToUpper(a) != a {
		t.Fatalf("hash %q is not %d upper-case characters", a, securityHashLength)
	}
	if a != securityHash("secret", "booking-1", "ABCD1234") {
		t.Fatal("hash is not deterministic")
	}
	if a == securityHash("other", "booking-1", "ABCD1234") {
		t.Fatal("hash ignores the secret")
	}
	if a == securityHash("secret", "booking-1", "ABCD1235") {
		t.Fatal("hash ignores the code")
	}
}

func TestLastFour(t *testing.T) {
	tests := map[string]string{
		"2000-1234-5678": "5678",
		"12":             "12",
		"":               "",
		"acct 98 7654":   "7654",
	}
	for in, want := range tests {
		if got := lastFour(in); got != want {
			t.Errorf("lastFour(%q) = %q, want %q", in, got, want)
		}
	}
}

type countingProcessor struct {
	mu  sync.Mutex
	ids []string
}

func (p *countingProcessor) ProcessEvent(_ context.Context, event *stripe.Event) error {
	time.Sleep(time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, event.ID)
	return nil
}

func TestWorkerPoolDrainsOnShutdown(t *testing.T) {
	processor := &countingProcessor{}
	wp := NewWorkerPool(3, processor, zap.NewNop())

	for i := 0; i < 20; i++ {
		if !wp.Submit(context.Background(), &stripe.Event{ID: "evt"}) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	wp.Shutdown()

	if len(processor.ids) != 20 {
		t.Fatalf("processed %d events, want 20", len(processor.ids))
	}
	if wp.Submit(context.Background(), &stripe.Event{ID: "late"}) {
		t.Fatal("submit accepted after shutdown")
	}
	wp.Shutdown()
}
