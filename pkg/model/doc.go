// Package model defines the database models for saasgate.
//
// These are GORM models. The schema itself is owned by the SQL migrations
// under db/migrations; the struct tags here must stay in step with them.
//
// # Core Models
//
//   - User: an account that can authenticate
//   - Role: a named group of permissions
//   - Permission: a persisted registry entry
//   - Payment: a provider-backed payment and its lifecycle
//   - AuditMessage: a persisted audit event
//
// # Database Schema
//
//   - users: accounts with bcrypt password hashes
//   - roles: role names, unique
//   - permissions: permission names, unique
//   - role_permissions: role to permission grants
//   - user_roles: user to role assignments
//   - payments: payment rows with provider data
//   - audit_messages: audit trail
//
// Both join tables cascade when either side is deleted.
package model
