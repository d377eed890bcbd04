package model

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentCompleted, PaymentFailed},
	PaymentCompleted: {PaymentRefunded},
}

// CanTransition reports whether a payment may move from s to next.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment is a payment opened with an external provider.
type Payment struct {
	ID                uint          `gorm:"primaryKey"`
	UserID            uint          `gorm:"index;not null"`
	Amount            float64       `gorm:"not null"`
	Currency          string        `gorm:"size:3;not null;default:INR"`
	Status            PaymentStatus `gorm:"size:20;not null;default:pending"`
	Provider          string        `gorm:"size:50;not null"`
	ProviderOrderID   string        `gorm:"size:100;index"`
	ProviderPaymentID string        `gorm:"size:100"`
	ProviderData      datatypes.JSONMap
	Metadata          datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Payment) TableName() string {
	return "payments"
}
