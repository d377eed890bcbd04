// Package policy parses and loads declarative RBAC policy files.
//
// A policy file is a YAML sequence of tagged statements describing roles
// and who holds them. Loading a policy applies the statements in order
// through the regular stores, so the result is the same as making the
// equivalent RBAC API calls.
//
// # Policy Format
//
// Statements are:
//
//   - !role: Declares a role with its description and permissions
//   - !grant: Assigns a role to one or more users by email
//   - !revoke: Unassigns a role from one or more users
//   - !delete: Removes a role
//
// # Example Policy
//
//   - !role
//     name: Support
//     description: Customer support
//     permissions: [users:read, reports:view]
//   - !grant
//     role: Support
//     members: [alice@example.com, bob@example.com]
//   - !delete Legacy
//
// A role statement whose permissions key is absent leaves an existing
// role's permissions alone. When present, even as an empty list, it
// replaces them.
//
// # Loading Policies
//
//	statements, err := policy.Parse(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := policy.NewLoader(stores).Load(ctx, statements)
//
// Loading stops at the first failing statement. Earlier statements stay
// applied; use WithDryRun to check a file against the database first.
package policy
