package verification

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-escrow-backend/internal/repository/sqlstore"
)

func TestRepositoryGate(t *testing.T) {
	ctx := context.Background()
	store, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "identities.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Identities().SetVerified(ctx, "alice", true, time.Now()))
	require.NoError(t, store.Identities().SetVerified(ctx, "bob", false, time.Now()))
	g := NewRepositoryGate(store.Identities())

	ok, err := g.IsAuthorized(ctx, " ALICE")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.IsAuthorized(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.IsAuthorized(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, ok)
}
