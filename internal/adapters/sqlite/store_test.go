package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{
		DBPath: filepath.Join(t.TempDir(), "ledger.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("requires a logger", func(t *testing.T) {
		_, err := NewStore(Config{DBPath: "x.db"})
		assert.Error(t, err)
	})

	t.Run("creates the data directory", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(Config{
			DBPath: filepath.Join(dir, "nested", "deeper", "ledger.db"),
			Logger: &mockLogger{},
		})
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("empty store loads nil", func(t *testing.T) {
		payload, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, payload)
	})

	t.Run("round trip", func(t *testing.T) {
		state := []byte(`[{"assetAddress":"X","status":"active"}]`)
		require.NoError(t, store.Save(ctx, state))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, state, loaded)
	})

	t.Run("save replaces the previous snapshot", func(t *testing.T) {
		first := []byte(`["first"]`)
		second := []byte(`["second"]`)
		require.NoError(t, store.Save(ctx, first))
		require.NoError(t, store.Save(ctx, second))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, second, loaded)
	})
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewStore(Config{DBPath: dbPath, Logger: &mockLogger{}})
	require.NoError(t, err)
	state := []byte(`[{"assetAddress":"X"}]`)
	require.NoError(t, store.Save(ctx, state))
	require.NoError(t, store.Close())

	reopened, err := NewStore(Config{DBPath: dbPath, Logger: &mockLogger{}})
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}
