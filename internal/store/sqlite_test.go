package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteGetMiss(t *testing.T) {
	s := newTestSQLite(t)

	entry, err := s.Get(context.Background(), "v6_loc_nowhere")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSQLitePutGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	payload := []byte(`{"zipcode":"84770"}`)
	meta := []byte(`{"source":"API"}`)
	require.NoError(t, s.Put(ctx, "v6_loc_84770", payload, meta))

	entry, err := s.Get(ctx, "v6_loc_84770")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "v6_loc_84770", entry.Key)
	assert.Equal(t, payload, entry.Payload)
	assert.Equal(t, meta, entry.Metadata)
	assert.False(t, entry.UpdatedAt.IsZero())
}

func TestSQLitePutUpsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "v6_loc_84770", []byte(`{"v":1}`), nil))
	require.NoError(t, s.Put(ctx, "v6_loc_84770", []byte(`{"v":2}`), []byte(`{"source":"AI"}`)))

	entry, err := s.Get(ctx, "v6_loc_84770")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte(`{"v":2}`), entry.Payload)
	assert.Equal(t, []byte(`{"source":"AI"}`), entry.Metadata)
}

func TestSQLiteNilMetadata(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "v6_loc_10001", []byte(`{}`), nil))

	entry, err := s.Get(ctx, "v6_loc_10001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Nil(t, entry.Metadata)
}
