package store

import (
	"context"
	"math/bits"
	"sync"

	"github.com/vitwit/paymentkit/configstore"
	"github.com/vitwit/paymentkit/types"
)

// MemoryBackend keeps all state in process memory. Share one MemoryBackend
// between namespaces to give them a common view, as a shared Redis would.
type MemoryBackend struct {
	mu      sync.Mutex
	claims  map[types.Address]*MemoryClaims
	records map[types.Address]*MemoryStore
	custody map[types.Address]*MemoryCustody
	config  map[types.Address]*MemoryConfig
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		claims:  make(map[types.Address]*MemoryClaims),
		records: make(map[types.Address]*MemoryStore),
		custody: make(map[types.Address]*MemoryCustody),
		config:  make(map[types.Address]*MemoryConfig),
	}
}

func open[T any](mu *sync.Mutex, m map[types.Address]*T, id types.Address, create func() *T) *T {
	mu.Lock()
	defer mu.Unlock()
	s, ok := m[id]
	if !ok {
		s = create()
		m[id] = s
	}
	return s
}

func (b *MemoryBackend) Claims(space types.Address) ClaimStore {
	return open(&b.mu, b.claims, space, NewMemoryClaims)
}

func (b *MemoryBackend) Records(registry types.Address) RecordStore {
	return open(&b.mu, b.records, registry, NewMemoryStore)
}

func (b *MemoryBackend) Custody(registry types.Address) CustodyStore {
	return open(&b.mu, b.custody, registry, NewMemoryCustody)
}

func (b *MemoryBackend) Config(registry types.Address) ConfigStore {
	return open(&b.mu, b.config, registry, NewMemoryConfig)
}

// MemoryClaims is a map-backed ClaimStore.
type MemoryClaims struct {
	mu     sync.Mutex
	claims map[string]Claim
}

var _ ClaimStore = (*MemoryClaims)(nil)

func NewMemoryClaims() *MemoryClaims {
	return &MemoryClaims{claims: make(map[string]Claim)}
}

func (s *MemoryClaims) Claim(_ context.Context, name string, c Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[name]; ok {
		return ErrNameClaimed
	}
	s.claims[name] = c
	return nil
}

func (s *MemoryClaims) Get(_ context.Context, name string) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[name]
	if !ok {
		return Claim{}, ErrClaimNotFound
	}
	return c, nil
}

func (s *MemoryClaims) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

// MemoryStore is a map-backed RecordStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[types.PaymentKey]types.PaymentRecord
}

var _ RecordStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[types.PaymentKey]types.PaymentRecord)}
}

func (s *MemoryStore) Insert(_ context.Context, key types.PaymentKey, rec types.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return ErrRecordExists
	}
	s.records[key] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key types.PaymentKey) (types.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return types.PaymentRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, key types.PaymentKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return ErrRecordNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// MemoryCustody is a map-backed CustodyStore.
type MemoryCustody struct {
	mu       sync.RWMutex
	balances map[types.AssetType]uint64
}

var _ CustodyStore = (*MemoryCustody)(nil)

func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{balances: make(map[types.AssetType]uint64)}
}

func (s *MemoryCustody) Credit(_ context.Context, asset types.AssetType, amount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, carry := bits.Add64(s.balances[asset], amount, 0)
	if carry != 0 {
		return 0, ErrBalanceOverflow
	}
	s.balances[asset] = sum
	return sum, nil
}

func (s *MemoryCustody) Balance(_ context.Context, asset types.AssetType) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.balances[asset]
	if !ok {
		return 0, ErrBalanceNotFound
	}
	return v, nil
}

func (s *MemoryCustody) Drain(_ context.Context, asset types.AssetType) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.balances[asset]
	if !ok {
		return 0, ErrBalanceNotFound
	}
	delete(s.balances, asset)
	return v, nil
}

// MemoryConfig guards a configstore.Store for concurrent use.
type MemoryConfig struct {
	mu     sync.RWMutex
	values *configstore.Store
}

var _ ConfigStore = (*MemoryConfig)(nil)

func NewMemoryConfig() *MemoryConfig {
	return &MemoryConfig{values: configstore.New()}
}

func (s *MemoryConfig) Upsert(_ context.Context, key string, value types.ConfigValue) error {
	s.mu.Lock()
	s.values.Upsert(key, value)
	s.mu.Unlock()
	return nil
}

func (s *MemoryConfig) Get(_ context.Context, key string) (types.ConfigValue, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values.Get(key)
	return v, ok, nil
}

func (s *MemoryConfig) Remove(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values.Remove(key)
	return ok, nil
}

func (s *MemoryConfig) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Keys(), nil
}
