// Package settlement routes payouts to the transferer that handles each
// asset type.
package settlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vitwit/paymentkit/clients"
	"github.com/vitwit/paymentkit/types"
)

// SettlementService is a Transferer that dispatches on the coin's asset type.
type SettlementService struct {
	mu      sync.RWMutex
	routes  map[types.AssetType]clients.Transferer
	timeout time.Duration
}

var _ clients.Transferer = (*SettlementService)(nil)

// NewSettlementService creates a service. A positive timeout bounds every
// transfer it dispatches.
func NewSettlementService(timeout time.Duration) *SettlementService {
	return &SettlementService{
		routes:  make(map[types.AssetType]clients.Transferer),
		timeout: timeout,
	}
}

// AddTransferer routes asset to t, replacing any previous route.
func (s *SettlementService) AddTransferer(asset types.AssetType, t clients.Transferer) error {
	if asset == "" {
		return types.NewError(types.ErrConfigError, "asset type is required")
	}
	if t == nil {
		return types.NewError(types.ErrConfigError, "no transferer for asset %s", asset)
	}

	s.mu.Lock()
	s.routes[asset] = t
	s.mu.Unlock()
	return nil
}

// Transfer settles coin through the transferer registered for its asset.
func (s *SettlementService) Transfer(ctx context.Context, coin types.Coin, to types.Address) error {
	s.mu.RLock()
	t, ok := s.routes[coin.Asset]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no route for %s: %w", coin.Asset, clients.ErrUnsupportedAsset)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return t.Transfer(ctx, coin, to)
}

// Timeout is the per-transfer bound, zero when unbounded.
func (s *SettlementService) Timeout() time.Duration {
	return s.timeout
}

// GetSupportedAssets returns the routed asset types, sorted.
func (s *SettlementService) GetSupportedAssets() []types.AssetType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assets := make([]types.AssetType, 0, len(s.routes))
	for asset := range s.routes {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}

// IsAssetSupported checks if an asset has a route.
func (s *SettlementService) IsAssetSupported(asset types.AssetType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.routes[asset]
	return ok
}

// Close closes every routed transferer that holds a connection. A
// transferer routed under several assets is closed once.
func (s *SettlementService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed := make(map[clients.Transferer]bool)
	for _, t := range s.routes {
		c, ok := t.(interface{ Close() })
		if !ok || closed[t] {
			continue
		}
		closed[t] = true
		c.Close()
	}
}
