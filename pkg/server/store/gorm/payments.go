package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// Ensure PaymentsStore implements store.PaymentsStore
var _ store.PaymentsStore = (*PaymentsStore)(nil)

// PaymentsStore implements store.PaymentsStore using GORM
type PaymentsStore struct {
	db *gorm.DB
}

// NewPaymentsStore creates a new PaymentsStore
func NewPaymentsStore(db *gorm.DB) *PaymentsStore {
	return &PaymentsStore{db: db}
}

// CreatePayment inserts a payment
func (s *PaymentsStore) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return translate(s.db.WithContext(ctx).Create(payment).Error)
}

// FetchPayment retrieves a payment by ID
func (s *PaymentsStore) FetchPayment(ctx context.Context, id uint) (*model.Payment, error) {
	var payment model.Payment
	if err := s.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// ListPayments returns a page of payments, optionally for one user
func (s *PaymentsStore) ListPayments(ctx context.Context, userID uint, offset, limit int) ([]model.Payment, error) {
	var payments []model.Payment
	q := s.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Find(&payments).Error
	return payments, err
}

// UpdatePayment performs a conditional update on the payment's status
func (s *PaymentsStore) UpdatePayment(ctx context.Context, payment *model.Payment, from model.PaymentStatus) error {
	payment.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", payment.ID, from).
		Updates(map[string]interface{}{
			"status":              payment.Status,
			"provider_payment_id": payment.ProviderPaymentID,
			"provider_data":       payment.ProviderData,
			"updated_at":          payment.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current model.Payment
	err := s.db.WithContext(ctx).Select("id").First(&current, payment.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrConflict
}
