package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/metrics"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// Operation names used in metrics and audit events.
const (
	OpCreate  = "create"
	OpVerify  = "verify"
	OpCapture = "capture"
	OpRefund  = "refund"
)

// DefaultListLimit is used when a list request gives no limit.
const DefaultListLimit = 100

// Result is the outcome of a state-changing operation on an existing
// payment. Failures the client can act on are reported here rather than as
// errors.
type Result struct {
	Success   bool   `json:"success"`
	Status    string `json:"status,omitempty"`
	PaymentID uint   `json:"payment_id,omitempty"`
	RefundID  string `json:"refund_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Options configures a Service.
type Options struct {
	DefaultProvider string
	DefaultCurrency string
	Audit           *audit.Logger
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// Service opens payments with providers and drives their lifecycle.
type Service struct {
	payments        store.PaymentsStore
	providers       *Registry
	defaultProvider string
	defaultCurrency string
	audit           *audit.Logger
	metrics         *metrics.Metrics
	logger          *slog.Logger
	now             func() time.Time
}

// NewService creates a Service.
func NewService(payments store.PaymentsStore, providers *Registry, opts Options) *Service {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "INR"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		payments:        payments,
		providers:       providers,
		defaultProvider: opts.DefaultProvider,
		defaultCurrency: opts.DefaultCurrency,
		audit:           opts.Audit,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		now:             time.Now,
	}
}

// Providers returns the provider registry.
func (s *Service) Providers() *Registry {
	return s.providers
}

// CreatePayment opens an order with the provider and records a pending
// payment. An empty provider selects the default one. Nothing is stored if
// the provider refuses the order.
func (s *Service) CreatePayment(ctx context.Context, userID uint, amount float64, currency, provider string, metadata map[string]any) (*model.Payment, error) {
	if provider == "" {
		provider = s.defaultProvider
	}
	if currency == "" {
		currency = s.defaultCurrency
	}
	if err := CheckAmount(amount); err != nil {
		return nil, err
	}
	p, err := s.providers.Lookup(provider)
	if err != nil {
		return nil, err
	}

	order, err := p.CreateOrder(ctx, OrderRequest{
		AmountMinor: MinorUnits(amount),
		Currency:    currency,
		Receipt:     fmt.Sprintf("order_%d_%d", userID, s.now().Unix()),
		Notes:       metadata,
	})
	if err != nil {
		s.record(userID, 0, provider, OpCreate, "", err.Error())
		s.logger.WarnContext(ctx, "order creation failed", "provider", provider, "user_id", userID, "error", err)
		return nil, &ProviderError{Op: "create order", Err: err}
	}

	payment := &model.Payment{
		UserID:          userID,
		Amount:          amount,
		Currency:        currency,
		Status:          model.PaymentPending,
		Provider:        provider,
		ProviderOrderID: order.ID,
		ProviderData:    order.Raw,
		Metadata:        metadata,
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("store payment: %w", err)
	}
	s.record(userID, payment.ID, provider, OpCreate, string(payment.Status), "")
	return payment, nil
}

// VerifyPayment checks the client's proof for a pending payment. A genuine
// proof completes the payment, a rejected one fails it. Either way the
// transition only applies if the payment is still pending when written.
func (s *Service) VerifyPayment(ctx context.Context, paymentID uint, proof Proof) (Result, error) {
	payment, p, res, err := s.load(ctx, paymentID)
	if p == nil {
		return res, err
	}
	if !payment.Status.CanTransition(model.PaymentCompleted) {
		return s.fail(payment, OpVerify, "Payment is not pending"), nil
	}
	if proof.OrderID != payment.ProviderOrderID {
		return s.reject(ctx, payment, "Order ID does not match payment")
	}
	if verr := p.VerifyPayment(ctx, proof); verr != nil {
		return s.reject(ctx, payment, verr.Error())
	}

	payment.Status = model.PaymentCompleted
	payment.ProviderPaymentID = proof.PaymentID
	payment.ProviderData = merge(payment.ProviderData, map[string]any{
		"order_id":   proof.OrderID,
		"payment_id": proof.PaymentID,
		"signature":  proof.Signature,
	})
	if err := s.payments.UpdatePayment(ctx, payment, model.PaymentPending); err != nil {
		return s.updateFailed(payment, OpVerify, err)
	}
	s.record(payment.UserID, payment.ID, payment.Provider, OpVerify, string(payment.Status), "")
	return Result{Success: true, Status: string(payment.Status), PaymentID: payment.ID}, nil
}

// CapturePayment captures a completed payment. A zero amount captures the
// full payment amount. The provider payload is kept under "capture".
func (s *Service) CapturePayment(ctx context.Context, paymentID uint, amount float64) (Result, error) {
	payment, p, res, err := s.load(ctx, paymentID)
	if p == nil {
		return res, err
	}
	if payment.Status != model.PaymentCompleted {
		return s.fail(payment, OpCapture, "Payment not completed"), nil
	}
	if amount <= 0 {
		amount = payment.Amount
	}
	if CheckAmount(amount) != nil || MinorUnits(amount) > MinorUnits(payment.Amount) {
		return s.fail(payment, OpCapture, "Capture amount exceeds payment amount"), nil
	}

	raw, cerr := p.CapturePayment(ctx, payment.ProviderPaymentID, MinorUnits(amount), payment.Currency)
	if cerr != nil {
		return s.fail(payment, OpCapture, cerr.Error()), nil
	}

	payment.ProviderData = merge(payment.ProviderData, map[string]any{"capture": raw})
	if err := s.payments.UpdatePayment(ctx, payment, model.PaymentCompleted); err != nil {
		return s.updateFailed(payment, OpCapture, err)
	}
	s.record(payment.UserID, payment.ID, payment.Provider, OpCapture, string(payment.Status), "")
	return Result{Success: true, Status: string(payment.Status), PaymentID: payment.ID}, nil
}

// RefundPayment refunds a completed payment. A zero amount refunds the
// full payment amount. On provider failure the status is left as is.
func (s *Service) RefundPayment(ctx context.Context, paymentID uint, amount float64, reason string) (Result, error) {
	payment, p, res, err := s.load(ctx, paymentID)
	if p == nil {
		return res, err
	}
	if !payment.Status.CanTransition(model.PaymentRefunded) {
		return s.fail(payment, OpRefund, "Payment not completed"), nil
	}
	if amount <= 0 {
		amount = payment.Amount
	}
	if CheckAmount(amount) != nil || MinorUnits(amount) > MinorUnits(payment.Amount) {
		return s.fail(payment, OpRefund, "Refund amount exceeds payment amount"), nil
	}

	refund, rerr := p.RefundPayment(ctx, payment.ProviderPaymentID, MinorUnits(amount), reason)
	if rerr != nil {
		return s.fail(payment, OpRefund, rerr.Error()), nil
	}

	payment.Status = model.PaymentRefunded
	payment.ProviderData = merge(payment.ProviderData, map[string]any{"refund": refund.Raw})
	if err := s.payments.UpdatePayment(ctx, payment, model.PaymentCompleted); err != nil {
		return s.updateFailed(payment, OpRefund, err)
	}
	s.record(payment.UserID, payment.ID, payment.Provider, OpRefund, string(payment.Status), "")
	return Result{Success: true, Status: string(payment.Status), PaymentID: payment.ID, RefundID: refund.ID}, nil
}

// GetPayment returns a payment by ID, or store.ErrNotFound.
func (s *Service) GetPayment(ctx context.Context, id uint) (*model.Payment, error) {
	return s.payments.FetchPayment(ctx, id)
}

// ListPayments pages through payments. A zero userID lists all users.
func (s *Service) ListPayments(ctx context.Context, userID uint, skip, limit int) ([]model.Payment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if skip < 0 {
		skip = 0
	}
	return s.payments.ListPayments(ctx, userID, skip, limit)
}

// load fetches a payment and its provider. When the provider is nil the
// returned Result or error is what the caller should return.
func (s *Service) load(ctx context.Context, id uint) (*model.Payment, Provider, Result, error) {
	payment, err := s.payments.FetchPayment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, Result{Error: "Payment not found"}, nil
	}
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("fetch payment: %w", err)
	}
	p, ok := s.providers.Get(payment.Provider)
	if !ok {
		return payment, nil, Result{PaymentID: payment.ID, Status: string(payment.Status), Error: "Provider not found"}, nil
	}
	return payment, p, Result{}, nil
}

// reject fails a pending payment whose proof did not check out.
func (s *Service) reject(ctx context.Context, payment *model.Payment, msg string) (Result, error) {
	payment.Status = model.PaymentFailed
	if err := s.payments.UpdatePayment(ctx, payment, model.PaymentPending); err != nil {
		return s.updateFailed(payment, OpVerify, err)
	}
	s.record(payment.UserID, payment.ID, payment.Provider, OpVerify, string(payment.Status), msg)
	return Result{Success: false, Status: string(payment.Status), PaymentID: payment.ID, Error: msg}, nil
}

func (s *Service) fail(payment *model.Payment, op, msg string) Result {
	s.record(payment.UserID, payment.ID, payment.Provider, op, string(payment.Status), msg)
	return Result{Success: false, Status: string(payment.Status), PaymentID: payment.ID, Error: msg}
}

// updateFailed turns a lost conditional update into a structured failure.
func (s *Service) updateFailed(payment *model.Payment, op string, err error) (Result, error) {
	if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
		const msg = "Payment was modified concurrently"
		s.logger.Warn("payment changed concurrently", "payment_id", payment.ID, "operation", op)
		s.record(payment.UserID, payment.ID, payment.Provider, op, "", msg)
		return Result{Success: false, PaymentID: payment.ID, Error: msg}, nil
	}
	return Result{}, fmt.Errorf("update payment: %w", err)
}

func (s *Service) record(userID, paymentID uint, provider, op, status, errMsg string) {
	s.metrics.Payment(provider, op, errMsg == "")
	s.audit.Log(audit.PaymentEvent{
		UserID:       userID,
		PaymentID:    paymentID,
		Provider:     provider,
		Operation:    op,
		Status:       status,
		Success:      errMsg == "",
		ErrorMessage: errMsg,
	})
}

func merge(dst map[string]any, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
