// Package storetest opens throwaway in-memory stores for package tests.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"ms-invoicing/internal/config"
	"ms-invoicing/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// New returns a migrated in-memory SQLite store that is closed with the test.
func New(t testing.TB, deny ...string) *store.Store {
	t.Helper()

	db, err := store.Open(context.Background(), config.DatabaseConfig{
		Driver: store.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rules, err := store.ParseRules(deny)
	require.NoError(t, err)

	return store.New(db, rules)
}
