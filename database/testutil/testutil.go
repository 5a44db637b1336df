// Package testutil opens migrated in-memory databases for tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode"

	"github.com/kbukum/flowengine/database"
	"github.com/kbukum/flowengine/logger"
)

var seq atomic.Int64

// Config returns a sqlite configuration for a private in-memory database.
// Each call names a distinct database so parallel tests never share rows.
func Config(name string) database.Config {
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
	return database.Config{
		Enabled:         true,
		Driver:          database.DriverSQLite,
		DSN:             fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1)),
		ConnectAttempts: 1,
		Pool:            database.PoolConfig{MaxLifetime: 24 * time.Hour, MaxIdleTime: 24 * time.Hour},
		LogLevel:        "silent",
	}
}

// Open returns a migrated in-memory database that is closed when the test ends.
func Open(t testing.TB, models ...any) *database.DB {
	t.Helper()

	db, err := database.New(context.Background(), Config(t.Name()), logger.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("auto-migrate: %v", err)
		}
	}
	return db
}
