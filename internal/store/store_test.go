package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/allowance/internal/database"
	"github.com/dukerupert/allowance/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFamily creates one parent and one kid.
func seedFamily(t *testing.T, db *sql.DB) (parent, kid *model.User) {
	t.Helper()
	ctx := context.Background()
	users := NewUserStore(db)

	parent, err := users.Create(ctx, "Mom", model.RoleParent)
	require.NoError(t, err)
	kid, err = users.Create(ctx, "Alice", model.RoleKid)
	require.NoError(t, err)
	return parent, kid
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
