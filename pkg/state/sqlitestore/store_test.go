package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	opts "github.com/goliatone/go-sysoptions"
	"github.com/goliatone/go-sysoptions/internal/storetest"
	"github.com/goliatone/go-sysoptions/pkg/state/sqlitestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) opts.Store {
		store, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "options.db"))
		require.NoError(t, err)
		return store
	})
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "options.db")

	store, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "planner.slice_target", opts.IntValue("planner.slice_target", opts.ScopeSystem, 20)))
	require.NoError(t, store.Close())

	reopened, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "planner.slice_target")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(20), got.AsInt())
	assert.Equal(t, opts.ScopeSystem, got.Scope())
}

func TestStoreRejectsSecondOwner(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "options.db")

	owner, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	defer owner.Close()

	_, err = sqlitestore.Open(ctx, path)
	require.ErrorIs(t, err, sqlitestore.ErrLocked)
}

func TestStoreRequiresPath(t *testing.T) {
	_, err := sqlitestore.Open(context.Background(), " ")
	require.Error(t, err)
}
