// Package identity derives reproducible, collision-checked identities for
// named registries.
package identity

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
)

// Derive returns keccak256(parent || name). The same parent and name always
// produce the same identity.
func Derive(parent types.Address, name string) types.Address {
	return types.Address(crypto.Keccak256Hash(parent[:], []byte(name)))
}

// RootID is the identity of a space seeded with the given namespace.
func RootID(namespace string) types.Address {
	return Derive(types.Address{}, "paymentkit/space/"+namespace)
}

// Space hands out derived identities. A name can be claimed exactly once;
// claims are never released. Claims live in the backend, so every Space
// with the same namespace on the same backend shares them.
type Space struct {
	id     types.Address
	claims store.ClaimStore
}

// NewSpace opens the identity space for namespace on backend.
func NewSpace(namespace string, backend store.Backend) *Space {
	id := RootID(namespace)
	return &Space{
		id:     id,
		claims: backend.Claims(id),
	}
}

func (s *Space) ID() types.Address {
	return s.id
}

// DeriveID returns the identity name has, or would have, in this space.
func (s *Space) DeriveID(name string) types.Address {
	return Derive(s.id, name)
}

// Exists reports whether name has been claimed.
func (s *Space) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Lookup(ctx, name)
	if errors.Is(err, types.ErrRegistryDoesNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Claim atomically checks that name is free and marks it as taken by the
// admin capability adminCapID, returning the derived identity.
func (s *Space) Claim(ctx context.Context, name, adminCapID string) (types.Address, error) {
	id := Derive(s.id, name)
	err := s.claims.Claim(ctx, name, store.Claim{ID: id, AdminCapID: adminCapID})
	if errors.Is(err, store.ErrNameClaimed) {
		return types.Address{}, types.NewError(types.ErrNameAlreadyClaimed, "name %q is already claimed", name)
	}
	if err != nil {
		return types.Address{}, types.WrapError(types.ErrStoreError, err, "claim name %q", name)
	}
	return id, nil
}

// Lookup returns the claim stored for name.
func (s *Space) Lookup(ctx context.Context, name string) (store.Claim, error) {
	c, err := s.claims.Get(ctx, name)
	if errors.Is(err, store.ErrClaimNotFound) {
		return store.Claim{}, types.NewError(types.ErrRegistryDoesNotExist, "name %q is not claimed", name)
	}
	if err != nil {
		return store.Claim{}, types.WrapError(types.ErrStoreError, err, "read claim %q", name)
	}
	if c.ID != s.DeriveID(name) {
		return store.Claim{}, types.NewError(types.ErrStoreError, "claim %q holds foreign identity %s", name, c.ID.Hex())
	}
	return c, nil
}
