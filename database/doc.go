// Package database provides a GORM connection wrapper with retrying
// connects, pool configuration, transactions, auto-migration and error
// translation to errors.AppError.
//
// Postgres is the production driver; sqlite serves local runs and tests.
//
//	db, err := database.New(ctx, database.Config{Driver: "sqlite", DSN: "flow.db"}, log)
//	err = db.AutoMigrate(repository.Models()...)
//
// The query subpackage parses list parameters from HTTP requests and
// applies them to GORM queries; testutil opens migrated in-memory databases.
package database
