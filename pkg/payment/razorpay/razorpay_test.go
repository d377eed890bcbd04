package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/saasgate/pkg/payment"
)

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	args := m.Called(data, extraHeaders)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) Capture(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	args := m.Called(paymentID, amount, data, extraHeaders)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *mockPayments) Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	args := m.Called(paymentID, amount, data, extraHeaders)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func newTestProvider() (*Provider, *mockOrders, *mockPayments) {
	orders := &mockOrders{}
	payments := &mockPayments{}
	return &Provider{orders: orders, payments: payments, keySecret: "rzp_secret"}, orders, payments
}

func TestNew(t *testing.T) {
	p := New("rzp_test_key", "rzp_secret")
	assert.Equal(t, "razorpay", p.Name())
	assert.NotNil(t, p.orders)
	assert.NotNil(t, p.payments)
}

func TestCreateOrder(t *testing.T) {
	p, orders, _ := newTestProvider()

	orders.On("Create", map[string]interface{}{
		"amount":   int64(50000),
		"currency": "INR",
		"receipt":  "order_1_1700000000",
		"notes":    map[string]interface{}{"plan": "pro"},
	}, map[string]string(nil)).Return(map[string]interface{}{
		"id":       "order_ABC",
		"amount":   float64(50000),
		"currency": "INR",
		"status":   "created",
	}, nil)

	order, err := p.CreateOrder(context.Background(), payment.OrderRequest{
		AmountMinor: 50000,
		Currency:    "INR",
		Receipt:     "order_1_1700000000",
		Notes:       map[string]any{"plan": "pro"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_ABC", order.ID)
	assert.Equal(t, int64(50000), order.AmountMinor)
	assert.Equal(t, "created", order.Raw["status"])
	orders.AssertExpectations(t)
}

func TestCreateOrder_Errors(t *testing.T) {
	t.Run("sdk error", func(t *testing.T) {
		p, orders, _ := newTestProvider()
		orders.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("BAD_REQUEST_ERROR"))
		_, err := p.CreateOrder(context.Background(), payment.OrderRequest{AmountMinor: 1, Currency: "INR"})
		assert.EqualError(t, err, "BAD_REQUEST_ERROR")
	})

	t.Run("response without id", func(t *testing.T) {
		p, orders, _ := newTestProvider()
		orders.On("Create", mock.Anything, mock.Anything).Return(map[string]interface{}{}, nil)
		_, err := p.CreateOrder(context.Background(), payment.OrderRequest{AmountMinor: 1, Currency: "INR"})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		p, orders, _ := newTestProvider()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.CreateOrder(ctx, payment.OrderRequest{})
		assert.ErrorIs(t, err, context.Canceled)
		orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPayment(t *testing.T) {
	p, _, _ := newTestProvider()
	ctx := context.Background()

	err := p.VerifyPayment(ctx, payment.Proof{
		OrderID:   "order_ABC",
		PaymentID: "pay_XYZ",
		Signature: sign("order_ABC", "pay_XYZ", "rzp_secret"),
	})
	assert.NoError(t, err)

	err = p.VerifyPayment(ctx, payment.Proof{
		OrderID:   "order_ABC",
		PaymentID: "pay_XYZ",
		Signature: sign("order_ABC", "pay_XYZ", "other_secret"),
	})
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestCapturePayment(t *testing.T) {
	p, _, payments := newTestProvider()
	payments.On("Capture", "pay_XYZ", 50000, map[string]interface{}{"currency": "INR"}, map[string]string(nil)).
		Return(map[string]interface{}{"id": "pay_XYZ", "status": "captured"}, nil)

	raw, err := p.CapturePayment(context.Background(), "pay_XYZ", 50000, "INR")
	require.NoError(t, err)
	assert.Equal(t, "captured", raw["status"])
	payments.AssertExpectations(t)
}

func TestRefundPayment(t *testing.T) {
	t.Run("default reason", func(t *testing.T) {
		p, _, payments := newTestProvider()
		payments.On("Refund", "pay_XYZ", 2500, map[string]interface{}{
			"notes": map[string]interface{}{"reason": "requested_by_customer"},
		}, map[string]string(nil)).Return(map[string]interface{}{"id": "rfnd_1"}, nil)

		refund, err := p.RefundPayment(context.Background(), "pay_XYZ", 2500, "")
		require.NoError(t, err)
		assert.Equal(t, "rfnd_1", refund.ID)
		payments.AssertExpectations(t)
	})

	t.Run("given reason", func(t *testing.T) {
		p, _, payments := newTestProvider()
		payments.On("Refund", "pay_XYZ", 2500, map[string]interface{}{
			"notes": map[string]interface{}{"reason": "duplicate"},
		}, map[string]string(nil)).Return(map[string]interface{}{"id": "rfnd_2"}, nil)

		refund, err := p.RefundPayment(context.Background(), "pay_XYZ", 2500, "duplicate")
		require.NoError(t, err)
		assert.Equal(t, "rfnd_2", refund.ID)
	})

	t.Run("sdk error", func(t *testing.T) {
		p, _, payments := newTestProvider()
		payments.On("Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("refund not allowed"))

		_, err := p.RefundPayment(context.Background(), "pay_XYZ", 2500, "")
		assert.EqualError(t, err, "refund not allowed")
	})
}
