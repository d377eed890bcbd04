// Package audit provides the audit trail for saasgate.
//
// Security-relevant operations emit events that are written as RFC5424
// syslog lines and, when a Store is attached, persisted to audit_messages.
//
// # Event Types
//
//   - AuthenticateEvent (authn): login attempts
//   - CheckEvent (check): permission checks made by the guard
//   - RBACEvent (rbac): role, permission and assignment changes
//   - PasswordEvent (password): password changes and resets
//   - PaymentEvent (payment): payment create, verify, capture and refund
//
// # Usage
//
//	logger := audit.NewLogger().SetStore(audit.NewStore(db))
//	logger.Log(audit.CheckEvent{User: "a@example.com", Permission: "users:read"})
//
// A nil *Logger is valid and discards events.
package audit
