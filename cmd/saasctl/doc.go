// Command saasctl runs the saasgate API server: user authentication, role
// based access control and payments for a multi-tenant SaaS backend.
//
// # Quick Start
//
//	# Create the schema
//	saasctl db migrate
//
//	# Create the permission catalogue, the Super Admin role and the first
//	# superuser
//	saasctl seed
//
//	# Start the server (migrates and seeds by default)
//	saasctl server
//
// # Administration
//
//	saasctl user create alice@example.com --role Support
//	saasctl user reset-password alice@example.com
//	saasctl permission list
//	saasctl configuration show --output json
//	saasctl wait --port 8000
//
// # Policy
//
// Roles and memberships can be kept in a YAML file and applied with
// policy load. Statements run in order; --dry-run reports the changes
// without writing them.
//
//	- !role
//	  name: Support
//	  permissions: [users:read, reports:view]
//	- !grant
//	  role: Support
//	  members: [alice@example.com]
//	- !delete Legacy
//
//	saasctl policy load rbac.yml
//	saasctl policy watch rbac.yml
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - SECRET_KEY: HMAC key for access, verify and reset tokens
//   - FIRST_SUPERUSER_EMAIL, FIRST_SUPERUSER_PASSWORD: account created by seed
//   - RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET: Razorpay credentials
//   - PAYMENT_SANDBOX_SECRET: enables the sandbox payment provider
//   - REDIS_URL: enables token revocation on logout
//   - LOG_LEVEL, LOG_FORMAT: debug|info|warn|error, text|json
//   - PORT, BIND_ADDRESS: listen address (default 0.0.0.0:8000)
//
// See pkg/config for the full list and the config file layout.
package main
