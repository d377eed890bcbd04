package payment_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/db/dbtest"
	"github.com/doodlesbykumbi/saasgate/pkg/logging"
	"github.com/doodlesbykumbi/saasgate/pkg/metrics"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/payment"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/saasgate/pkg/server/store/gorm"
)

// fakeProvider records calls and fails on demand.
type fakeProvider struct {
	orderErr   error
	verifyErr  error
	captureErr error
	refundErr  error

	lastOrder        payment.OrderRequest
	lastRefundAmount int64
	lastRefundReason string
	orders           int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	f.lastOrder = req
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders++
	return &payment.Order{
		ID:          "order_fake",
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Raw:         map[string]any{"id": "order_fake", "status": "created"},
	}, nil
}

func (f *fakeProvider) VerifyPayment(ctx context.Context, proof payment.Proof) error {
	return f.verifyErr
}

func (f *fakeProvider) CapturePayment(ctx context.Context, paymentID string, amountMinor int64, currency string) (map[string]any, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return map[string]any{"id": paymentID, "status": "captured"}, nil
}

func (f *fakeProvider) RefundPayment(ctx context.Context, paymentID string, amountMinor int64, reason string) (*payment.Refund, error) {
	f.lastRefundAmount = amountMinor
	f.lastRefundReason = reason
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &payment.Refund{ID: "rfnd_fake", Raw: map[string]any{"id": "rfnd_fake"}}, nil
}

type fixture struct {
	svc      *payment.Service
	provider *fakeProvider
	payments *gormstore.PaymentsStore
	auditBuf *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := &fakeProvider{}
	registry := payment.NewRegistry()
	registry.Register(provider)

	payments := gormstore.NewPaymentsStore(dbtest.New(t))
	buf := &bytes.Buffer{}
	svc := payment.NewService(payments, registry, payment.Options{
		DefaultProvider: "fake",
		Audit:           audit.NewLogger().SetWriter(buf),
		Metrics:         metrics.New(),
		Logger:          logging.Discard(),
	})
	return &fixture{svc: svc, provider: provider, payments: payments, auditBuf: buf}
}

func (f *fixture) pending(t *testing.T) *model.Payment {
	t.Helper()
	p, err := f.svc.CreatePayment(context.Background(), 1, 100, "", "", nil)
	require.NoError(t, err)
	return p
}

func (f *fixture) completed(t *testing.T) *model.Payment {
	t.Helper()
	p := f.pending(t)
	res, err := f.svc.VerifyPayment(context.Background(), p.ID, payment.Proof{
		OrderID: p.ProviderOrderID, PaymentID: "pay_1", Signature: "sig",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	return p
}

func (f *fixture) status(t *testing.T, id uint) model.PaymentStatus {
	t.Helper()
	p, err := f.payments.FetchPayment(context.Background(), id)
	require.NoError(t, err)
	return p.Status
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(10050), payment.MinorUnits(100.5))
	assert.Equal(t, int64(1999), payment.MinorUnits(19.99))
	assert.Equal(t, int64(30), payment.MinorUnits(0.3))
	assert.Equal(t, int64(0), payment.MinorUnits(0))
}

func TestCheckAmount(t *testing.T) {
	assert.NoError(t, payment.CheckAmount(0.01))
	assert.NoError(t, payment.CheckAmount(payment.MaxAmount))
	for _, amount := range []float64{0, -1, payment.MaxAmount * 10, 1e20} {
		assert.ErrorIs(t, payment.CheckAmount(amount), payment.ErrAmountOutOfRange, "%v", amount)
	}
}

func TestCreatePayment_AmountOutOfRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreatePayment(context.Background(), 1, 1e20, "", "", nil)
	assert.ErrorIs(t, err, payment.ErrAmountOutOfRange)
	assert.Equal(t, 0, f.provider.orders)
	assert.Zero(t, f.provider.lastOrder.AmountMinor)
}

func TestCreatePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreatePayment(ctx, 7, 19.99, "usd", "", map[string]any{"plan": "pro"})
	require.NoError(t, err)

	assert.NotZero(t, p.ID)
	assert.Equal(t, model.PaymentPending, p.Status)
	assert.Equal(t, "fake", p.Provider)
	assert.Equal(t, "order_fake", p.ProviderOrderID)
	assert.Equal(t, int64(1999), f.provider.lastOrder.AmountMinor)
	assert.Regexp(t, `^order_7_\d+$`, f.provider.lastOrder.Receipt)
	assert.Equal(t, "pro", f.provider.lastOrder.Notes["plan"])

	stored, err := f.svc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "created", stored.ProviderData["status"])
	assert.Equal(t, "pro", stored.Metadata["plan"])
	assert.Contains(t, f.auditBuf.String(), "payment")
}

func TestCreatePayment_DefaultCurrency(t *testing.T) {
	f := newFixture(t)
	p := f.pending(t)
	assert.Equal(t, "INR", p.Currency)
}

func TestCreatePayment_UnsupportedProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePayment(context.Background(), 1, 10, "", "stripe", nil)
	assert.ErrorIs(t, err, payment.ErrUnsupportedProvider)
}

func TestCreatePayment_ProviderFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.provider.orderErr = errors.New("gateway down")

	_, err := f.svc.CreatePayment(context.Background(), 1, 10, "", "", nil)
	var perr *payment.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Failed to create order: gateway down", err.Error())

	list, err := f.svc.ListPayments(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("success completes", func(t *testing.T) {
		f := newFixture(t)
		p := f.pending(t)

		res, err := f.svc.VerifyPayment(ctx, p.ID, payment.Proof{
			OrderID: "order_fake", PaymentID: "pay_1", Signature: "sig",
		})
		require.NoError(t, err)
		assert.Equal(t, payment.Result{Success: true, Status: "completed", PaymentID: p.ID}, res)

		stored, err := f.svc.GetPayment(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentCompleted, stored.Status)
		assert.Equal(t, "pay_1", stored.ProviderPaymentID)
		assert.Equal(t, "sig", stored.ProviderData["signature"])
		assert.Equal(t, "created", stored.ProviderData["status"])
	})

	t.Run("rejection fails and never reverts", func(t *testing.T) {
		f := newFixture(t)
		p := f.pending(t)
		f.provider.verifyErr = errors.New("signature mismatch")

		res, err := f.svc.VerifyPayment(ctx, p.ID, payment.Proof{
			OrderID: "order_fake", PaymentID: "pay_1", Signature: "bad",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "failed", res.Status)
		assert.Equal(t, "signature mismatch", res.Error)
		assert.Equal(t, model.PaymentFailed, f.status(t, p.ID))

		f.provider.verifyErr = nil
		res, err = f.svc.VerifyPayment(ctx, p.ID, payment.Proof{
			OrderID: "order_fake", PaymentID: "pay_1", Signature: "good",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Payment is not pending", res.Error)
		assert.Equal(t, model.PaymentFailed, f.status(t, p.ID))
	})

	t.Run("order mismatch fails the payment", func(t *testing.T) {
		f := newFixture(t)
		p := f.pending(t)

		res, err := f.svc.VerifyPayment(ctx, p.ID, payment.Proof{
			OrderID: "order_other", PaymentID: "pay_1", Signature: "sig",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "failed", res.Status)
		assert.Equal(t, "Order ID does not match payment", res.Error)
		assert.Equal(t, model.PaymentFailed, f.status(t, p.ID))
	})

	t.Run("missing payment", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.VerifyPayment(ctx, 404, payment.Proof{})
		require.NoError(t, err)
		assert.Equal(t, payment.Result{Error: "Payment not found"}, res)
	})

	t.Run("provider no longer registered", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.payments.CreatePayment(ctx, &model.Payment{
			UserID: 1, Amount: 5, Currency: "INR", Status: model.PaymentPending, Provider: "gone",
		}))

		list, err := f.svc.ListPayments(ctx, 1, 0, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)

		res, err := f.svc.VerifyPayment(ctx, list[0].ID, payment.Proof{})
		require.NoError(t, err)
		assert.Equal(t, "Provider not found", res.Error)
	})
}

func TestCapturePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("pending cannot be captured", func(t *testing.T) {
		f := newFixture(t)
		p := f.pending(t)
		res, err := f.svc.CapturePayment(ctx, p.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, "Payment not completed", res.Error)
	})

	t.Run("completed captures without status change", func(t *testing.T) {
		f := newFixture(t)
		p := f.completed(t)
		res, err := f.svc.CapturePayment(ctx, p.ID, 0)
		require.NoError(t, err)
		assert.True(t, res.Success)

		stored, err := f.svc.GetPayment(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentCompleted, stored.Status)
		capture, ok := stored.ProviderData["capture"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "captured", capture["status"])
	})

	t.Run("amount above payment", func(t *testing.T) {
		f := newFixture(t)
		p := f.completed(t)
		for _, amount := range []float64{100.01, 1e20} {
			res, err := f.svc.CapturePayment(ctx, p.ID, amount)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, "Capture amount exceeds payment amount", res.Error)
		}
		assert.Equal(t, model.PaymentCompleted, f.status(t, p.ID))
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newFixture(t)
		p := f.completed(t)
		f.provider.captureErr = errors.New("already captured")
		res, err := f.svc.CapturePayment(ctx, p.ID, 0)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "already captured", res.Error)
	})
}

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("pending and failed cannot be refunded", func(t *testing.T) {
		f := newFixture(t)
		pending := f.pending(t)

		res, err := f.svc.RefundPayment(ctx, pending.ID, 10, "")
		require.NoError(t, err)
		assert.Equal(t, "Payment not completed", res.Error)
		assert.Equal(t, model.PaymentPending, f.status(t, pending.ID))

		failed := f.pending(t)
		f.provider.verifyErr = errors.New("nope")
		_, err = f.svc.VerifyPayment(ctx, failed.ID, payment.Proof{OrderID: "order_fake"})
		require.NoError(t, err)

		res, err = f.svc.RefundPayment(ctx, failed.ID, 10, "")
		require.NoError(t, err)
		assert.Equal(t, "Payment not completed", res.Error)
		assert.Equal(t, model.PaymentFailed, f.status(t, failed.ID))
	})

	t.Run("completed refunds", func(t *testing.T) {
		f := newFixture(t)
		p := f.completed(t)

		res, err := f.svc.RefundPayment(ctx, p.ID, 25.5, "duplicate")
		require.NoError(t, err)
		assert.Equal(t, payment.Result{Success: true, Status: "refunded", PaymentID: p.ID, RefundID: "rfnd_fake"}, res)
		assert.Equal(t, int64(2550), f.provider.lastRefundAmount)
		assert.Equal(t, "duplicate", f.provider.lastRefundReason)
		assert.Equal(t, model.PaymentRefunded, f.status(t, p.ID))

		res, err = f.svc.RefundPayment(ctx, p.ID, 1, "")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("zero amount refunds in full", func(t *testing.T) {
		f := newFixture(t)
		p := f.completed(t)
		_, err := f.svc.RefundPayment(ctx, p.ID, 0, "")
		require.NoError(t, err)
		assert.Equal(t, int64(10000), f.provider.lastRefundAmount)
	})

	t.Run("amount above payment", func(t *testing.T) {
		f := newFixture(t)
		p := f.completed(t)
		res, err := f.svc.RefundPayment(ctx, p.ID, 100.01, "")
		require.NoError(t, err)
		assert.Equal(t, "Refund amount exceeds payment amount", res.Error)
		assert.Equal(t, model.PaymentCompleted, f.status(t, p.ID))
	})

	t.Run("amount too large for minor units", func(t *testing.T) {
		f := newFixture(t)
		p := f.completed(t)

		res, err := f.svc.RefundPayment(ctx, p.ID, 1e20, "")
		require.NoError(t, err)
		assert.Equal(t, "Refund amount exceeds payment amount", res.Error)
		assert.Zero(t, f.provider.lastRefundAmount)
		assert.Equal(t, model.PaymentCompleted, f.status(t, p.ID))
	})

	t.Run("provider failure leaves status", func(t *testing.T) {
		f := newFixture(t)
		p := f.completed(t)
		f.provider.refundErr = errors.New("insufficient balance")
		res, err := f.svc.RefundPayment(ctx, p.ID, 0, "")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "insufficient balance", res.Error)
		assert.Equal(t, model.PaymentCompleted, f.status(t, p.ID))
	})
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, uid := range []uint{1, 1, 2} {
		_, err := f.svc.CreatePayment(ctx, uid, 10, "", "", nil)
		require.NoError(t, err)
	}

	mine, err := f.svc.ListPayments(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := f.svc.ListPayments(ctx, 0, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := f.svc.ListPayments(ctx, 0, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	_, err = f.svc.GetPayment(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// racingStore loses every conditional update, as if another request had
// already moved the payment on.
type racingStore struct {
	store.PaymentsStore
}

func (racingStore) UpdatePayment(context.Context, *model.Payment, model.PaymentStatus) error {
	return store.ErrConflict
}

func TestVerifyPayment_LostRace(t *testing.T) {
	f := newFixture(t)
	p := f.pending(t)

	registry := payment.NewRegistry()
	registry.Register(f.provider)
	svc := payment.NewService(racingStore{f.payments}, registry, payment.Options{Logger: logging.Discard()})

	res, err := svc.VerifyPayment(context.Background(), p.ID, payment.Proof{OrderID: "order_fake", PaymentID: "pay_1"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Payment was modified concurrently", res.Error)
	assert.Equal(t, model.PaymentPending, f.status(t, p.ID))
}

func TestRegistry(t *testing.T) {
	r := payment.NewRegistry()
	r.Register(&fakeProvider{})

	p, ok := r.Get("fake")
	assert.True(t, ok)
	assert.Equal(t, "fake", p.Name())

	_, err := r.Lookup("stripe")
	assert.ErrorIs(t, err, payment.ErrUnsupportedProvider)
	assert.Contains(t, err.Error(), "stripe")
	assert.Equal(t, []string{"fake"}, r.Names())
}
