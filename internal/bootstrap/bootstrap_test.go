package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audiobook-skill/internal/config"
	"github.com/maauso/audiobook-skill/internal/storage"
)

func testConfig(t *testing.T, store string) *config.Config {
	t.Helper()
	return &config.Config{
		ABSServerURL:   "https://abs.example.com/",
		ABSAPIKey:      "key",
		AttributeStore: store,
		DataDir:        t.TempDir(),
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDependencies_Stores(t *testing.T) {
	tests := []struct {
		store string
		check func(t *testing.T, s storage.AttributeStore)
	}{
		{config.StoreMemory, func(t *testing.T, s storage.AttributeStore) {
			_, ok := s.(*storage.MemoryStorage)
			assert.True(t, ok)
		}},
		{config.StoreLocal, func(t *testing.T, s storage.AttributeStore) {
			_, ok := s.(*storage.LocalStorage)
			assert.True(t, ok)
		}},
		{config.StoreBadger, func(t *testing.T, s storage.AttributeStore) {
			_, ok := s.(*storage.BadgerStorage)
			assert.True(t, ok)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			deps, err := NewDependencies(t.Context(), testConfig(t, tt.store), discardLogger())
			require.NoError(t, err)
			t.Cleanup(func() { _ = deps.Close() })

			require.NotNil(t, deps.Skill)
			tt.check(t, deps.Store)
		})
	}
}

func TestNewDependencies_InvalidStore(t *testing.T) {
	_, err := NewDependencies(t.Context(), testConfig(t, "redis"), discardLogger())
	assert.ErrorIs(t, err, config.ErrInvalidAttributeStore)
}

func TestNewDependencies_RateLimit(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		deps, err := NewDependencies(t.Context(), testConfig(t, config.StoreMemory), discardLogger())
		require.NoError(t, err)
		defer deps.Close()

		require.NotNil(t, deps.Limiter)
		assert.True(t, deps.Limiter.Allow("device"))
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig(t, config.StoreMemory)
		cfg.RateLimitRPS = 0

		deps, err := NewDependencies(t.Context(), cfg, discardLogger())
		require.NoError(t, err)
		defer deps.Close()

		assert.Nil(t, deps.Limiter)
	})
}

func TestDependencies_CloseIsIdempotent(t *testing.T) {
	deps, err := NewDependencies(t.Context(), testConfig(t, config.StoreBadger), discardLogger())
	require.NoError(t, err)

	require.NoError(t, deps.Close())
	assert.NoError(t, deps.Close())
}
