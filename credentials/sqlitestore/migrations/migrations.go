package migrations

import "embed"

// Migrations holds the schema for the credential database, applied by golang-migrate.
//
//go:embed *.sql
var Migrations embed.FS
