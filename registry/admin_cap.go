package registry

import (
	"github.com/google/uuid"

	"github.com/vitwit/paymentkit/types"
)

// AdminCap authorizes configuration changes and withdrawals on exactly one
// registry. It can only be minted by CreateRegistry; holding the pointer is
// the credential.
type AdminCap struct {
	id         string
	registryID types.Address
	owner      types.Address
}

func newAdminCap(registryID types.Address) *AdminCap {
	return &AdminCap{
		id:         uuid.NewString(),
		registryID: registryID,
	}
}

func (c *AdminCap) ID() string {
	return c.id
}

// RegistryID is the registry this capability administers.
func (c *AdminCap) RegistryID() types.Address {
	return c.registryID
}

// Owner is informational; authorization only looks at the registry binding.
func (c *AdminCap) Owner() types.Address {
	return c.owner
}

// TransferTo hands the capability to a new owner.
func (c *AdminCap) TransferTo(owner types.Address) {
	c.owner = owner
}
