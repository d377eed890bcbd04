package payment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Provider is an external payment gateway.
type Provider interface {
	// Name returns the key the provider is registered under (e.g. "razorpay").
	Name() string

	// CreateOrder opens an order for the amount in minor units.
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// VerifyPayment checks the proof a client returned after paying.
	// A nil error means the payment is genuine.
	VerifyPayment(ctx context.Context, proof Proof) error

	// CapturePayment captures an authorized payment and returns the
	// provider's payload.
	CapturePayment(ctx context.Context, paymentID string, amountMinor int64, currency string) (map[string]any, error)

	// RefundPayment refunds a captured payment.
	RefundPayment(ctx context.Context, paymentID string, amountMinor int64, reason string) (*Refund, error)
}

// OrderRequest describes an order to open.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]any
}

// Order is an order as opened by the provider.
type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Raw         map[string]any
}

// Proof is what the client receives from the provider's checkout and sends
// back for verification.
type Proof struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// Refund is a refund as recorded by the provider.
type Refund struct {
	ID  string
	Raw map[string]any
}

// MaxAmount is the largest amount, in major units, a payment may carry.
const MaxAmount = 1e12

// MinorUnits converts a decimal amount to the smallest currency unit,
// rounding to the nearest unit. Amounts outside [0, MaxAmount] must be
// rejected with CheckAmount first.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CheckAmount returns ErrAmountOutOfRange unless 0 < amount <= MaxAmount.
func CheckAmount(amount float64) error {
	if !(amount > 0 && amount <= MaxAmount) {
		return fmt.Errorf("%w: %v", ErrAmountOutOfRange, amount)
	}
	return nil
}

// Registry holds the providers the service can route to.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, replacing any provider of the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Lookup is Get returning ErrUnsupportedProvider for unknown names.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
