package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/vitwit/paymentkit/types"
)

// DefaultKeyPrefix namespaces every key written by the Redis stores.
const DefaultKeyPrefix = "paymentkit"

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 16

var ErrTxContention = errors.New("redis transaction kept conflicting")

// RedisBackend keeps all state in Redis so that several processes, or a
// restarted one, share claims, records, custody and config.
//
// Keys of one registry share the {<registry>} hash tag, so multi-key
// scripts stay on one cluster slot:
//
//	<prefix>:space:<space>:name:<name>        claim (JSON)
//	<prefix>:{<registry>}:record:<digest>     record epoch
//	<prefix>:{<registry>}:custody             hash asset -> balance
//	<prefix>:{<registry>}:config              hash key -> value (JSON)
//	<prefix>:{<registry>}:config:order        zset key -> write sequence
//	<prefix>:{<registry>}:config:seq          write sequence counter
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) registryKey(id types.Address) string {
	return b.prefix + ":{" + id.Hex() + "}"
}

func (b *RedisBackend) Claims(space types.Address) ClaimStore {
	return &RedisClaims{client: b.client, base: b.prefix + ":space:" + space.Hex() + ":name:"}
}

func (b *RedisBackend) Records(registry types.Address) RecordStore {
	return NewRedisStore(b.client, b.prefix, registry)
}

func (b *RedisBackend) Custody(registry types.Address) CustodyStore {
	return &RedisCustody{client: b.client, key: b.registryKey(registry) + ":custody"}
}

func (b *RedisBackend) Config(registry types.Address) ConfigStore {
	base := b.registryKey(registry) + ":config"
	return &RedisConfig{client: b.client, values: base, order: base + ":order", seq: base + ":seq"}
}

// RedisClaims stores one key per claimed name, written with SETNX.
type RedisClaims struct {
	client redis.UniversalClient
	base   string
}

func (s *RedisClaims) Claim(ctx context.Context, name string, c Claim) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode claim: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.base+name, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrNameClaimed
	}
	return nil
}

func (s *RedisClaims) Get(ctx context.Context, name string) (Claim, error) {
	raw, err := s.client.Get(ctx, s.base+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return Claim{}, ErrClaimNotFound
	}
	if err != nil {
		return Claim{}, fmt.Errorf("redis get: %w", err)
	}
	var c Claim
	if err := json.Unmarshal(raw, &c); err != nil {
		return Claim{}, fmt.Errorf("corrupt claim for %q: %w", name, err)
	}
	return c, nil
}

// RedisStore keeps records as plain keys holding the record epoch.
type RedisStore struct {
	client redis.UniversalClient
	base   string
}

var _ RecordStore = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, prefix string, registryID types.Address) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		base:   prefix + ":{" + registryID.Hex() + "}:record:",
	}
}

func (s *RedisStore) keyFor(key types.PaymentKey) string {
	digest := key.Digest()
	return s.base + hex.EncodeToString(digest[:])
}

// Insert uses SETNX so concurrent writers on any process race on one key.
func (s *RedisStore) Insert(ctx context.Context, key types.PaymentKey, rec types.PaymentRecord) error {
	ok, err := s.client.SetNX(ctx, s.keyFor(key), strconv.FormatUint(rec.EpochAtTimeOfRecord, 10), 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrRecordExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key types.PaymentKey) (types.PaymentRecord, error) {
	raw, err := s.client.Get(ctx, s.keyFor(key)).Result()
	if errors.Is(err, redis.Nil) {
		return types.PaymentRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return types.PaymentRecord{}, fmt.Errorf("redis get: %w", err)
	}
	epoch, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return types.PaymentRecord{}, fmt.Errorf("corrupt record epoch %q: %w", raw, err)
	}
	return types.PaymentRecord{EpochAtTimeOfRecord: epoch}, nil
}

func (s *RedisStore) Delete(ctx context.Context, key types.PaymentKey) error {
	n, err := s.client.Del(ctx, s.keyFor(key)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// RedisCustody keeps balances as decimal strings in one hash. Credits are
// optimistic WATCH/MULTI transactions so u64 overflow is checked exactly.
type RedisCustody struct {
	client redis.UniversalClient
	key    string
}

var drainScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], ARGV[1])
if v then
	redis.call('HDEL', KEYS[1], ARGV[1])
end
return v
`)

func (s *RedisCustody) Credit(ctx context.Context, asset types.AssetType, amount uint64) (uint64, error) {
	var balance uint64
	credit := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, s.key, string(asset)).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sum, carry := bits.Add64(current, amount, 0)
		if carry != 0 {
			return ErrBalanceOverflow
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, string(asset), strconv.FormatUint(sum, 10))
			return nil
		})
		if err != nil {
			return err
		}
		balance = sum
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, credit, s.key)
		switch {
		case err == nil:
			return balance, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrBalanceOverflow):
			return 0, err
		default:
			return 0, fmt.Errorf("redis credit %s: %w", asset, err)
		}
	}
	return 0, fmt.Errorf("redis credit %s: %w", asset, ErrTxContention)
}

func (s *RedisCustody) Balance(ctx context.Context, asset types.AssetType) (uint64, error) {
	v, err := s.client.HGet(ctx, s.key, string(asset)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrBalanceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis hget: %w", err)
	}
	return v, nil
}

func (s *RedisCustody) Drain(ctx context.Context, asset types.AssetType) (uint64, error) {
	raw, err := drainScript.Run(ctx, s.client, []string{s.key}, string(asset)).Text()
	if errors.Is(err, redis.Nil) {
		return 0, ErrBalanceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis drain: %w", err)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt balance %q: %w", raw, err)
	}
	return v, nil
}

// RedisConfig keeps values in a hash and write order in a sorted set
// scored by a per-registry counter.
type RedisConfig struct {
	client redis.UniversalClient
	values string
	order  string
	seq    string
}

var upsertScript = redis.NewScript(`
local seq = redis.call('INCR', KEYS[3])
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return seq
`)

var removeScript = redis.NewScript(`
local n = redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return n
`)

func (s *RedisConfig) Upsert(ctx context.Context, key string, value types.ConfigValue) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode config %q: %w", key, err)
	}
	if err := upsertScript.Run(ctx, s.client, []string{s.values, s.order, s.seq}, key, raw).Err(); err != nil {
		return fmt.Errorf("redis config upsert: %w", err)
	}
	return nil
}

func (s *RedisConfig) Get(ctx context.Context, key string) (types.ConfigValue, bool, error) {
	raw, err := s.client.HGet(ctx, s.values, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.ConfigValue{}, false, nil
	}
	if err != nil {
		return types.ConfigValue{}, false, fmt.Errorf("redis hget: %w", err)
	}
	var v types.ConfigValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return types.ConfigValue{}, false, fmt.Errorf("corrupt config %q: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisConfig) Remove(ctx context.Context, key string) (bool, error) {
	n, err := removeScript.Run(ctx, s.client, []string{s.values, s.order}, key).Int64()
	if err != nil {
		return false, fmt.Errorf("redis config remove: %w", err)
	}
	return n > 0, nil
}

func (s *RedisConfig) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.ZRange(ctx, s.order, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange: %w", err)
	}
	return keys, nil
}

// DialRedis parses a redis:// URL, connects and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
