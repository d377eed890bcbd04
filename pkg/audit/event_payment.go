package audit

import (
	"fmt"
	"strconv"
)

// PaymentEvent represents a payment operation against a provider
type PaymentEvent struct {
	UserID       uint
	PaymentID    uint
	Provider     string
	Operation    string // "create", "verify", "capture" or "refund"
	Status       string
	Success      bool
	ErrorMessage string
}

func (e PaymentEvent) MessageID() string {
	return "payment"
}

func (e PaymentEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("user %d: %s of payment %d via %s succeeded", e.UserID, e.Operation, e.PaymentID, e.Provider)
	}
	msg := fmt.Sprintf("user %d: %s of payment %d via %s failed", e.UserID, e.Operation, e.PaymentID, e.Provider)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e PaymentEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e PaymentEvent) Facility() int {
	return FacilityLocal0
}

func (e PaymentEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": strconv.FormatUint(uint64(e.UserID), 10),
		},
		SDIDPayment: {
			"id":       strconv.FormatUint(uint64(e.PaymentID), 10),
			"provider": e.Provider,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result(e.Success),
		},
	}
	if e.Status != "" {
		sd[SDIDPayment]["status"] = e.Status
	}
	return sd
}
