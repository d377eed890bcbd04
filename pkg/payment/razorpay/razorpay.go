// Package razorpay adapts the Razorpay Go SDK to payment.Provider.
package razorpay

import (
	"context"
	"errors"
	"fmt"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/doodlesbykumbi/saasgate/pkg/payment"
)

// Name is the registry key of the provider.
const Name = "razorpay"

const defaultRefundReason = "requested_by_customer"

// ErrSignatureMismatch is returned when a payment signature does not verify.
var ErrSignatureMismatch = errors.New("payment signature verification failed")

// Ensure Provider implements payment.Provider
var _ payment.Provider = (*Provider)(nil)

// orderAPI is the part of the SDK's order resource the provider uses.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// paymentAPI is the part of the SDK's payment resource the provider uses.
type paymentAPI interface {
	Capture(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Provider talks to Razorpay.
type Provider struct {
	orders    orderAPI
	payments  paymentAPI
	keySecret string
}

// New creates a provider authenticated with the API key pair.
func New(keyID, keySecret string) *Provider {
	client := rzp.NewClient(keyID, keySecret)
	return &Provider{
		orders:    client.Order,
		payments:  client.Payment,
		keySecret: keySecret,
	}
}

func (p *Provider) Name() string {
	return Name
}

// CreateOrder opens an order. Razorpay expects amounts in paise.
func (p *Provider) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	notes := map[string]interface{}{}
	for k, v := range req.Notes {
		notes[k] = v
	}
	raw, err := p.orders.Create(map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return nil, err
	}

	id, _ := raw["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay: order response has no id")
	}
	order := &payment.Order{
		ID:          id,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Raw:         raw,
	}
	if amount, ok := raw["amount"].(float64); ok {
		order.AmountMinor = int64(amount)
	}
	if currency, ok := raw["currency"].(string); ok && currency != "" {
		order.Currency = currency
	}
	return order, nil
}

// VerifyPayment checks the checkout signature with the key secret.
func (p *Provider) VerifyPayment(ctx context.Context, proof payment.Proof) error {
	attributes := map[string]interface{}{
		"razorpay_order_id":   proof.OrderID,
		"razorpay_payment_id": proof.PaymentID,
	}
	if !utils.VerifyPaymentSignature(attributes, proof.Signature, p.keySecret) {
		return ErrSignatureMismatch
	}
	return nil
}

// CapturePayment captures an authorized payment.
func (p *Provider) CapturePayment(ctx context.Context, paymentID string, amountMinor int64, currency string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.payments.Capture(paymentID, int(amountMinor), map[string]interface{}{
		"currency": currency,
	}, nil)
}

// RefundPayment refunds a captured payment.
func (p *Provider) RefundPayment(ctx context.Context, paymentID string, amountMinor int64, reason string) (*payment.Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = defaultRefundReason
	}
	raw, err := p.payments.Refund(paymentID, int(amountMinor), map[string]interface{}{
		"notes": map[string]interface{}{"reason": reason},
	}, nil)
	if err != nil {
		return nil, err
	}
	id, _ := raw["id"].(string)
	return &payment.Refund{ID: id, Raw: raw}, nil
}
