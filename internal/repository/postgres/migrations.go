package postgres

import "embed"

// Migrations holds the goose migrations for the postgres state backend.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
