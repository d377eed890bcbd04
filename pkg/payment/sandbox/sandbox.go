// Package sandbox is an offline payment provider for development and
// tests. It opens orders locally and accepts a payment when its signature
// is the HMAC-SHA256 of "order_id|payment_id" under the sandbox secret,
// the same scheme Razorpay checkout uses.
package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/doodlesbykumbi/saasgate/pkg/payment"
)

// Name is the registry key of the provider.
const Name = "sandbox"

var (
	ErrSignatureMismatch = errors.New("payment signature verification failed")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrUnknownPayment    = errors.New("payment id is required")
)

// Ensure Provider implements payment.Provider
var _ payment.Provider = (*Provider)(nil)

// Provider is the sandbox gateway. It keeps no state.
type Provider struct {
	secret []byte
}

// New creates a sandbox provider signing with secret.
func New(secret string) *Provider {
	return &Provider{secret: []byte(secret)}
}

func (p *Provider) Name() string {
	return Name
}

// Sign returns the signature checkout would hand the client for a payment.
func (p *Provider) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewPaymentID returns a fresh sandbox payment ID.
func NewPaymentID() string {
	return "pay_" + ulid.Make().String()
}

func (p *Provider) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.AmountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	id := "order_" + ulid.Make().String()
	notes := map[string]any{}
	for k, v := range req.Notes {
		notes[k] = v
	}
	return &payment.Order{
		ID:          id,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Raw: map[string]any{
			"id":       id,
			"entity":   "order",
			"amount":   req.AmountMinor,
			"currency": req.Currency,
			"receipt":  req.Receipt,
			"status":   "created",
			"notes":    notes,
		},
	}, nil
}

func (p *Provider) VerifyPayment(ctx context.Context, proof payment.Proof) error {
	want, err := hex.DecodeString(p.Sign(proof.OrderID, proof.PaymentID))
	if err != nil {
		return err
	}
	got, err := hex.DecodeString(proof.Signature)
	if err != nil || !hmac.Equal(want, got) {
		return ErrSignatureMismatch
	}
	return nil
}

func (p *Provider) CapturePayment(ctx context.Context, paymentID string, amountMinor int64, currency string) (map[string]any, error) {
	if paymentID == "" {
		return nil, ErrUnknownPayment
	}
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	return map[string]any{
		"id":       paymentID,
		"entity":   "payment",
		"amount":   amountMinor,
		"currency": currency,
		"status":   "captured",
		"captured": true,
	}, nil
}

func (p *Provider) RefundPayment(ctx context.Context, paymentID string, amountMinor int64, reason string) (*payment.Refund, error) {
	if paymentID == "" {
		return nil, ErrUnknownPayment
	}
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		reason = "requested_by_customer"
	}
	id := "rfnd_" + ulid.Make().String()
	return &payment.Refund{
		ID: id,
		Raw: map[string]any{
			"id":         id,
			"entity":     "refund",
			"payment_id": paymentID,
			"amount":     amountMinor,
			"status":     "processed",
			"notes":      map[string]any{"reason": reason},
		},
	}, nil
}
