package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/storefront/internal/storefront/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "storefront.db")
	s, err := NewStore(fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s, path
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Get(ctx, store.AccessTokenKey)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, store.AccessTokenKey, "first"))
	require.NoError(t, s.Set(ctx, store.AccessTokenKey, "second"))

	v, err := s.Get(ctx, store.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "second", v)

	require.NoError(t, s.Delete(ctx, store.AccessTokenKey))
	require.NoError(t, s.Delete(ctx, store.AccessTokenKey))

	_, err = s.Get(ctx, store.AccessTokenKey)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Ping(ctx))
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, path := newTestStore(t)
	require.NoError(t, s.Set(ctx, store.AccessTokenKey, "durable"))
	require.NoError(t, s.Close())

	reopened, err := NewStore("file:" + path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.ApplyMigrations())

	v, err := reopened.Get(ctx, store.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "durable", v)
}
