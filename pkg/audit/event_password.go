package audit

import "fmt"

// PasswordEvent represents a password change or reset
type PasswordEvent struct {
	Email        string
	ClientIP     string
	Operation    string // "change" or "reset"
	Success      bool
	ErrorMessage string
}

func (e PasswordEvent) MessageID() string {
	return "password"
}

func (e PasswordEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s successfully completed password %s", e.Email, e.Operation)
	}
	msg := fmt.Sprintf("%s failed password %s", e.Email, e.Operation)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e PasswordEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e PasswordEvent) Facility() int {
	return FacilityAuthPriv
}

func (e PasswordEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Email,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "password-" + e.Operation,
			"result":    result(e.Success),
		},
	}
}
