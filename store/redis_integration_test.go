//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/vitwit/paymentkit/store"
	"github.com/vitwit/paymentkit/types"
)

type RedisStoreSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *redis.Client
	backend   *store.RedisBackend
	store     store.RecordStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	client, err := store.DialRedis(ctx, url)
	s.Require().NoError(err)
	s.client = client
	s.backend = store.NewRedisBackend(client, "test")
	s.store = s.backend.Records(types.MustHexToAddress("0x1"))
}

func (s *RedisStoreSuite) TearDownSuite() {
	ctx := context.Background()
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(ctx)
	}
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func key(nonce string) types.PaymentKey {
	return types.NewPaymentKey("SUI", nonce, 100, types.MustHexToAddress("0xbeef"))
}

func (s *RedisStoreSuite) TestLifecycle() {
	ctx := context.Background()

	_, err := s.store.Get(ctx, key("a"))
	s.ErrorIs(err, store.ErrRecordNotFound)

	s.Require().NoError(s.store.Insert(ctx, key("a"), types.PaymentRecord{EpochAtTimeOfRecord: 12}))
	s.ErrorIs(s.store.Insert(ctx, key("a"), types.PaymentRecord{EpochAtTimeOfRecord: 13}), store.ErrRecordExists)

	rec, err := s.store.Get(ctx, key("a"))
	s.Require().NoError(err)
	s.Equal(uint64(12), rec.EpochAtTimeOfRecord)

	s.Require().NoError(s.store.Delete(ctx, key("a")))
	s.ErrorIs(s.store.Delete(ctx, key("a")), store.ErrRecordNotFound)
}

func (s *RedisStoreSuite) TestRegistriesDoNotCollide() {
	ctx := context.Background()
	other := s.backend.Records(types.MustHexToAddress("0x2"))

	s.Require().NoError(s.store.Insert(ctx, key("shared"), types.PaymentRecord{}))
	s.Require().NoError(other.Insert(ctx, key("shared"), types.PaymentRecord{}))
}

func (s *RedisStoreSuite) TestConcurrentInsertSingleWinner() {
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.store.Insert(ctx, key("race"), types.PaymentRecord{}) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

func (s *RedisStoreSuite) TestClaims() {
	ctx := context.Background()
	claims := s.backend.Claims(types.MustHexToAddress("0xaa"))
	c := store.Claim{ID: types.MustHexToAddress("0x5"), AdminCapID: "cap"}

	_, err := claims.Get(ctx, "shop")
	s.ErrorIs(err, store.ErrClaimNotFound)

	s.Require().NoError(claims.Claim(ctx, "shop", c))
	s.ErrorIs(claims.Claim(ctx, "shop", store.Claim{AdminCapID: "other"}), store.ErrNameClaimed)

	// a second backend on the same server sees the claim
	got, err := store.NewRedisBackend(s.client, "test").Claims(types.MustHexToAddress("0xaa")).Get(ctx, "shop")
	s.Require().NoError(err)
	s.Equal(c, got)

	_, err = s.backend.Claims(types.MustHexToAddress("0xbb")).Get(ctx, "shop")
	s.ErrorIs(err, store.ErrClaimNotFound)
}

func (s *RedisStoreSuite) TestCustody() {
	ctx := context.Background()
	custody := s.backend.Custody(types.MustHexToAddress("0x1"))

	_, err := custody.Balance(ctx, "SUI")
	s.ErrorIs(err, store.ErrBalanceNotFound)

	balance, err := custody.Credit(ctx, "SUI", ^uint64(0)-1)
	s.Require().NoError(err)
	s.Equal(^uint64(0)-1, balance)

	_, err = custody.Credit(ctx, "SUI", 2)
	s.ErrorIs(err, store.ErrBalanceOverflow)

	balance, err = custody.Credit(ctx, "SUI", 1)
	s.Require().NoError(err)
	s.Equal(^uint64(0), balance)

	drained, err := custody.Drain(ctx, "SUI")
	s.Require().NoError(err)
	s.Equal(^uint64(0), drained)
	_, err = custody.Drain(ctx, "SUI")
	s.ErrorIs(err, store.ErrBalanceNotFound)
}

func (s *RedisStoreSuite) TestConcurrentCredits() {
	ctx := context.Background()
	custody := s.backend.Custody(types.MustHexToAddress("0x1"))

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := custody.Credit(ctx, "SUI", 5)
			s.NoError(err)
		}()
	}
	wg.Wait()

	balance, err := custody.Balance(ctx, "SUI")
	s.Require().NoError(err)
	s.Equal(uint64(goroutines*5), balance)
}

func (s *RedisStoreSuite) TestConfig() {
	ctx := context.Background()
	config := s.backend.Config(types.MustHexToAddress("0x1"))

	s.Require().NoError(config.Upsert(ctx, "epoch_expiration_duration", types.U64Value(7)))
	s.Require().NoError(config.Upsert(ctx, "registry_managed_funds", types.BoolValue(true)))
	s.Require().NoError(config.Upsert(ctx, "epoch_expiration_duration", types.U64Value(9)))

	keys, err := config.Keys(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"registry_managed_funds", "epoch_expiration_duration"}, keys)

	v, ok, err := config.Get(ctx, "epoch_expiration_duration")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.True(v.Equal(types.U64Value(9)))

	removed, err := config.Remove(ctx, "registry_managed_funds")
	s.Require().NoError(err)
	s.True(removed)
	removed, err = config.Remove(ctx, "registry_managed_funds")
	s.Require().NoError(err)
	s.False(removed)

	_, ok, err = config.Get(ctx, "registry_managed_funds")
	s.Require().NoError(err)
	s.False(ok)
}
