// Package db хранит SQL-миграции схемы, встроенные в бинарник.
package db

import "embed"

// Migrations содержит каталог migrations с файлами golang-migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir — каталог внутри Migrations.
const MigrationsDir = "migrations"
