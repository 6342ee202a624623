// Package db embeds the SQL schema migrations so the server and the
// integration tests apply the same files.
package db

import "embed"

// MigrationsDir is the directory inside Migrations holding the
// NNNN_name.up.sql / NNNN_name.down.sql pairs.
const MigrationsDir = "migrations"

// Migrations holds the schema migrations in golang-migrate's file layout.
//
//go:embed migrations/*.sql
var Migrations embed.FS
