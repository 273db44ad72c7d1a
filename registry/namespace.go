// Package registry implements payment registries: duplicate-checked payment
// records, optional custody of received value and admin-controlled policy.
package registry

import (
	"context"

	"github.com/vitwit/paymentkit/identity"
	"github.com/vitwit/paymentkit/metrics"
	"github.com/vitwit/paymentkit/types"
	"github.com/vitwit/paymentkit/utils"
)

// Namespace is the identity space registries are created in. Names are
// claimed at most once per namespace and backend, and never released.
type Namespace struct {
	space *identity.Space
	env   Env
}

func NewNamespace(name string, env Env) (*Namespace, error) {
	env, err := env.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Namespace{
		space: identity.NewSpace(name, env.Backend),
		env:   env,
	}, nil
}

// ID is the root identity every registry id is derived from.
func (n *Namespace) ID() types.Address {
	return n.space.ID()
}

// Exists reports whether name has been claimed.
func (n *Namespace) Exists(ctx context.Context, name string) (bool, error) {
	return n.space.Exists(ctx, name)
}

// DeriveID returns the identity a registry called name has or would have.
func (n *Namespace) DeriveID(name string) types.Address {
	return n.space.DeriveID(name)
}

// CreateRegistry claims name and returns an empty registry with its only
// admin capability.
func (n *Namespace) CreateRegistry(ctx context.Context, name string) (*Registry, *AdminCap, error) {
	if err := utils.ValidateName(name); err != nil {
		n.env.Logger.Debug("registry name rejected", map[string]any{"name": name, "error": err})
		return nil, nil, err
	}

	adminCap := newAdminCap(n.space.DeriveID(name))
	id, err := n.space.Claim(ctx, name, adminCap.id)
	if err != nil {
		n.env.Logger.Debug("registry name not claimed", map[string]any{"name": name, "error": err})
		return nil, nil, err
	}

	reg := n.open(id, name, adminCap.id)
	n.env.Metrics.IncCounter(metrics.EventRegistryCreated, nil)
	n.env.Logger.Info("registry created", map[string]any{
		"name":       name,
		"registry":   id.Hex(),
		"adminCapId": adminCap.id,
	})
	return reg, adminCap, nil
}

// OpenRegistry returns a handle to a registry created earlier on the same
// backend, possibly by another process. Its records, custody and config
// are the ones that registry persisted.
func (n *Namespace) OpenRegistry(ctx context.Context, name string) (*Registry, error) {
	c, err := n.space.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	return n.open(c.ID, name, c.AdminCapID), nil
}

// RecoverAdminCap rebuilds the admin capability of name from its id, for
// holders that kept the id across a restart.
func (n *Namespace) RecoverAdminCap(ctx context.Context, name, adminCapID string) (*AdminCap, error) {
	c, err := n.space.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if adminCapID == "" || c.AdminCapID != adminCapID {
		n.env.Logger.Warn("admin capability recovery refused", map[string]any{"name": name})
		return nil, types.NewError(types.ErrUnauthorizedAdmin, "capability id does not match registry %q", name)
	}
	return &AdminCap{id: c.AdminCapID, registryID: c.ID}, nil
}

func (n *Namespace) open(id types.Address, name, adminCapID string) *Registry {
	return &Registry{
		id:         id,
		name:       name,
		adminCapID: adminCapID,
		config:     n.env.Backend.Config(id),
		custody:    n.env.Backend.Custody(id),
		records:    n.env.Backend.Records(id),
		env:        n.env,
	}
}
