package integration

import (
	"encoding/json"
	"fmt"

	"github.com/doodlesbykumbi/saasgate/pkg/payment/sandbox"
)

// iVerifyPaymentWithGenuineSignature posts the proof a sandbox checkout
// would return for the remembered payment. The payment's order ID must have
// been remembered as "<name>_order".
func (s *StepsContext) iVerifyPaymentWithGenuineSignature(name string) error {
	orderID := s.vars[name+"_order"]
	paymentID := sandbox.NewPaymentID()
	return s.verify(name, orderID, paymentID, sandbox.New(s.tc.SandboxSecret).Sign(orderID, paymentID))
}

func (s *StepsContext) iVerifyPaymentWithSignature(name, signature string) error {
	return s.verify(name, s.vars[name+"_order"], sandbox.NewPaymentID(), signature)
}

func (s *StepsContext) verify(name, orderID, paymentID, signature string) error {
	id, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("payment %q was not remembered", name)
	}
	body, _ := json.Marshal(map[string]string{
		"order_id":   orderID,
		"payment_id": paymentID,
		"signature":  signature,
	})
	return s.request("POST", "/api/v1/payments/"+id+"/verify", body)
}

func (s *StepsContext) thePaymentShouldHaveStatus(name, expected string) error {
	var status string
	err := s.tc.RawDB.QueryRow(`SELECT status FROM payments WHERE id = $1`, s.vars[name]).Scan(&status)
	if err != nil {
		return fmt.Errorf("payment %s: %w", name, err)
	}
	if status != expected {
		return fmt.Errorf("expected payment %s to be %q, got %q", name, expected, status)
	}
	return nil
}
