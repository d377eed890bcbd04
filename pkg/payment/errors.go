package payment

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned when a payment names a provider that
// is not registered.
var ErrUnsupportedProvider = errors.New("provider not supported")

// ErrAmountOutOfRange is returned for amounts that are not positive or do
// not fit in minor units.
var ErrAmountOutOfRange = errors.New("amount out of range")

// ProviderError wraps a failure reported by a provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("Failed to %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
