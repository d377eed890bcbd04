package store

import (
	"context"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
)

// PaymentsStore abstracts payment storage operations
type PaymentsStore interface {
	// CreatePayment inserts a payment.
	CreatePayment(ctx context.Context, payment *model.Payment) error

	// FetchPayment retrieves a payment by ID.
	// Returns ErrNotFound if it doesn't exist.
	FetchPayment(ctx context.Context, id uint) (*model.Payment, error)

	// ListPayments returns payments ordered by ID. A zero userID lists
	// every user's payments.
	ListPayments(ctx context.Context, userID uint, offset, limit int) ([]model.Payment, error)

	// UpdatePayment writes the payment's mutable columns only if the row is
	// still in status from, refreshing updated_at. Returns ErrConflict if
	// the row has moved on and ErrNotFound if it doesn't exist.
	UpdatePayment(ctx context.Context, payment *model.Payment, from model.PaymentStatus) error
}
