// Package db holds the SQL migrations for saasgate.
//
// The migrations are embedded so that production builds (tag
// embed_migrations) do not depend on the working directory.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
