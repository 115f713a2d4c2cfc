package contextstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/contextmem"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	snap := contextmem.Snapshot{Summary: "they covered API design", Hash: "abc", UpdatedAt: time.Now()}
	require.NoError(t, store.Save(context.Background(), snap))

	got, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap.Summary, got.Summary)
	require.Equal(t, snap.Hash, got.Hash)
}
