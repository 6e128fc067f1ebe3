package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	principal := &domain.Principal{SubjectID: "customer-7", Role: "customer"}
	require.NoError(t, cache.Set(ctx, "verify:abc", principal, time.Minute))

	got, err := cache.Get(ctx, "verify:abc")
	require.NoError(t, err)
	assert.Equal(t, principal, got)

	missing, err := cache.Get(ctx, "verify:missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	require.NoError(t, cache.Set(ctx, "verify:short", &domain.Principal{SubjectID: "x"}, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	got, err := cache.Get(ctx, "verify:short")
	require.NoError(t, err)
	assert.Nil(t, got)
}
