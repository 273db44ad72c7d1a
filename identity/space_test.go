package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
)

func TestDerive_IsDeterministic(t *testing.T) {
	a := NewSpace("test", store.NewMemoryBackend())
	b := NewSpace("test", store.NewMemoryBackend())
	other := NewSpace("other", store.NewMemoryBackend())

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), other.ID())
	assert.Equal(t, a.DeriveID("shop"), b.DeriveID("shop"))
	assert.NotEqual(t, a.DeriveID("shop"), a.DeriveID("shop2"))
	assert.NotEqual(t, a.DeriveID("shop"), other.DeriveID("shop"))
}

func TestSpace_Claim(t *testing.T) {
	ctx := context.Background()
	s := NewSpace("test", store.NewMemoryBackend())

	exists, err := s.Exists(ctx, "shop")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = s.Lookup(ctx, "shop")
	assert.ErrorIs(t, err, types.ErrRegistryDoesNotExist)

	id, err := s.Claim(ctx, "shop", "cap-1")
	require.NoError(t, err)
	assert.Equal(t, s.DeriveID("shop"), id)

	exists, err = s.Exists(ctx, "shop")
	require.NoError(t, err)
	assert.True(t, exists)

	c, err := s.Lookup(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, store.Claim{ID: id, AdminCapID: "cap-1"}, c)

	_, err = s.Claim(ctx, "shop", "cap-2")
	assert.ErrorIs(t, err, types.ErrNameAlreadyClaimed)
}

func TestSpace_ClaimsAreSharedThroughTheBackend(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()

	_, err := NewSpace("prod", backend).Claim(ctx, "shop", "cap-1")
	require.NoError(t, err)

	// a restarted process opens the same space on the same backend
	_, err = NewSpace("prod", backend).Claim(ctx, "shop", "cap-2")
	assert.ErrorIs(t, err, types.ErrNameAlreadyClaimed)

	_, err = NewSpace("staging", backend).Claim(ctx, "shop", "cap-3")
	require.NoError(t, err)
}

func TestSpace_LookupRejectsForeignIdentity(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	s := NewSpace("test", backend)
	require.NoError(t, backend.Claims(s.ID()).Claim(ctx, "shop", store.Claim{ID: types.MustHexToAddress("0x1")}))

	_, err := s.Lookup(ctx, "shop")
	assert.ErrorIs(t, err, types.ErrStoreError)
}

func TestSpace_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	s := NewSpace("test", store.NewMemoryBackend())

	const goroutines = 64
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Claim(ctx, "contended", "cap")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
				return
			}
			assert.ErrorIs(t, err, types.ErrNameAlreadyClaimed)
			losers++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one claim must win")
	assert.Equal(t, goroutines-1, losers)
}
