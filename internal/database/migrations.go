// Package database содержит схему БД сервиса.
package database

import "embed"

// MigrationsFS встроенные SQL миграции для golang-migrate (iofs).
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsPath каталог миграций внутри MigrationsFS.
const MigrationsPath = "migrations"
