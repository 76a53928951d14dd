// Package payment creates and cancels the gateway payments behind bookings.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"
)

type Request struct {
	// Reference ties the payment back to a booking and doubles as the
	// idempotency key.
	Reference   string
	Amount      decimal.Decimal
	Currency    stripe.Currency
	Email       string
	Description string
}

type Payment struct {
	ID           string                     `json:"id"`
	ClientSecret string                     `json:"client_secret"`
	Status       stripe.PaymentIntentStatus `json:"status"`
}

type Gateway interface {
	CreatePayment(ctx context.Context, req Request) (*Payment, error)
	ConfirmPayment(ctx context.Context, paymentID string) (*Payment, error)
	CancelPayment(ctx context.Context, paymentID string) error
}

// MinorUnits converts an amount to the integer minor units Stripe expects.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

var _ Gateway = (*StripeGateway)(nil)

type StripeGateway struct {
	api    *client.API
	logger *zap.Logger
}

func NewStripeGateway(secretKey string, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		api:    client.New(secretKey, nil),
		logger: logger,
	}
}

func (g *StripeGateway) CreatePayment(ctx context.Context, req Request) (*Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(MinorUnits(req.Amount)),
		Currency:     stripe.String(string(req.Currency)),
		ReceiptEmail: stripe.String(req.Email),
		Description:  stripe.String(req.Description),
	}
	params.IdempotencyKey = stripe.String(req.Reference)
	params.AddMetadata("booking_id", req.Reference)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Error("Failed to create payment intent", zap.String("reference", req.Reference), zap.Error(err))
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &Payment{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}, nil
}

func (g *StripeGateway) ConfirmPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	intent, err := g.api.PaymentIntents.Confirm(paymentID, &stripe.PaymentIntentConfirmParams{})
	if err != nil {
		g.logger.Error("Failed to confirm payment intent", zap.String("payment_intent_id", paymentID), zap.Error(err))
		return nil, fmt.Errorf("failed to confirm payment intent: %w", err)
	}

	return &Payment{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}, nil
}

func (g *StripeGateway) CancelPayment(ctx context.Context, paymentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := g.api.PaymentIntents.Cancel(paymentID, &stripe.PaymentIntentCancelParams{}); err != nil {
		g.logger.Error("Failed to cancel payment intent", zap.String("payment_intent_id", paymentID), zap.Error(err))
		return fmt.Errorf("failed to cancel payment intent: %w", err)
	}
	return nil
}
