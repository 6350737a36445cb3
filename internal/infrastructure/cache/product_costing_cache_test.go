package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/erp/costing/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCosting(method strategy.CostMethod) *inventory.ProductCosting {
	return &inventory.ProductCosting{
		TenantID:     uuid.New(),
		ProductID:    uuid.New(),
		CostMethod:   method,
		StandardCost: decimal.RequireFromString("12.5"),
		UpdatedAt:    time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
}

// unreachableRedis returns a client whose commands fail fast with a connection error
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestInMemoryProductCostingCache_GetSetDelete(t *testing.T) {
	c := NewInMemoryProductCostingCache()
	defer c.Close()
	ctx := context.Background()
	pc := newTestCosting(strategy.CostMethodFIFO)

	got, err := c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, pc, time.Minute))
	got, err = c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, strategy.CostMethodFIFO, got.CostMethod)

	// another tenant never sees the entry
	got, err = c.Get(ctx, uuid.New(), pc.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Delete(ctx, pc.TenantID, pc.ProductID))
	got, err = c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)

	hits, misses := c.GetStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(3), misses)
}

func TestInMemoryProductCostingCache_StoresCopy(t *testing.T) {
	c := NewInMemoryProductCostingCache()
	defer c.Close()
	ctx := context.Background()
	pc := newTestCosting(strategy.CostMethodFIFO)

	require.NoError(t, c.Set(ctx, pc, time.Minute))
	pc.CostMethod = strategy.CostMethodLIFO

	got, err := c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	assert.Equal(t, strategy.CostMethodFIFO, got.CostMethod)
}

func TestInMemoryProductCostingCache_Expiry(t *testing.T) {
	c := NewInMemoryProductCostingCache()
	defer c.Close()
	ctx := context.Background()
	short := newTestCosting(strategy.CostMethodFIFO)
	long := newTestCosting(strategy.CostMethodWeightedAverage)

	require.NoError(t, c.Set(ctx, short, 10*time.Millisecond))
	require.NoError(t, c.Set(ctx, long, time.Hour))
	time.Sleep(20 * time.Millisecond)

	c.sweep()
	assert.Equal(t, 1, c.Count())

	got, err := c.Get(ctx, short.TenantID, short.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryProductCostingCache_DefaultTTLAndNil(t *testing.T) {
	c := NewInMemoryProductCostingCache(WithInMemoryConfig(CacheConfig{L1TTL: 10 * time.Millisecond}))
	defer c.Close()
	ctx := context.Background()
	pc := newTestCosting(strategy.CostMethodFIFO)

	require.NoError(t, c.Set(ctx, nil, time.Minute))
	assert.Equal(t, 0, c.Count())

	require.NoError(t, c.Set(ctx, pc, 0))
	time.Sleep(20 * time.Millisecond)
	got, err := c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryProductCostingCache_InvalidateAllAndClose(t *testing.T) {
	c := NewInMemoryProductCostingCache()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, newTestCosting(strategy.CostMethodFIFO), time.Minute))
	}
	assert.Equal(t, 3, c.Count())

	c.InvalidateAll()
	assert.Equal(t, 0, c.Count())

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestRedisProductCostingCache_Unreachable(t *testing.T) {
	c := NewRedisProductCostingCache(unreachableRedis(t), DefaultCacheConfig(), zaptest.NewLogger(t))
	ctx := context.Background()
	pc := newTestCosting(strategy.CostMethodFIFO)

	_, err := c.Get(ctx, pc.TenantID, pc.ProductID)
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, pc, time.Minute))
	assert.Error(t, c.Delete(ctx, pc.TenantID, pc.ProductID))
	assert.NoError(t, c.Set(ctx, nil, time.Minute))
	assert.NoError(t, c.Close())
}

func TestTieredProductCostingCache_L1Only(t *testing.T) {
	c := NewTieredProductCostingCache(NewInMemoryProductCostingCache())
	defer c.Close()
	ctx := context.Background()
	pc := newTestCosting(strategy.CostMethodStandard)

	got, err := c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, pc, time.Minute))
	got, err = c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.StandardCost))

	require.NoError(t, c.Delete(ctx, pc.TenantID, pc.ProductID))
	got, err = c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.L1Hits)
	assert.Equal(t, int64(2), stats.L1Misses)
	assert.Zero(t, stats.L2Hits+stats.L2Misses)
}

func TestTieredProductCostingCache_L2OutageDegradesToMiss(t *testing.T) {
	client := unreachableRedis(t)
	logger := zaptest.NewLogger(t)
	c := NewTieredProductCostingCache(NewInMemoryProductCostingCache(),
		WithTieredLogger(logger),
		WithL2(NewRedisProductCostingCache(client, DefaultCacheConfig(), logger)),
		WithInvalidator(NewRedisCostingInvalidator(client, WithInvalidatorLogger(logger))),
	)
	defer c.Close()
	ctx := context.Background()
	pc := newTestCosting(strategy.CostMethodFIFO)

	got, err := c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int64(1), c.GetStats().L2Misses)

	// L1 still serves after a failed L2 write
	require.NoError(t, c.Set(ctx, pc, time.Minute))
	got, err = c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	require.NotNil(t, got)

	// a failed broadcast still drops the local copy
	require.NoError(t, c.Delete(ctx, pc.TenantID, pc.ProductID))
	got, err = c.Get(ctx, pc.TenantID, pc.ProductID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

type stubInvalidator struct {
	mu        sync.Mutex
	published []InvalidationMessage
}

func (s *stubInvalidator) Publish(_ context.Context, msg InvalidationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, msg)
	return nil
}

func (s *stubInvalidator) Subscribe(ctx context.Context, _ func(InvalidationMessage)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubInvalidator) Close() error { return nil }

func TestTieredProductCostingCache_Invalidation(t *testing.T) {
	inv := &stubInvalidator{}
	l1 := NewInMemoryProductCostingCache()
	c := NewTieredProductCostingCache(l1, WithInvalidator(inv))
	defer c.Close()
	ctx := context.Background()
	a := newTestCosting(strategy.CostMethodFIFO)
	b := newTestCosting(strategy.CostMethodLIFO)

	require.NoError(t, c.Set(ctx, a, time.Minute))
	require.NoError(t, c.Set(ctx, b, time.Minute))

	require.NoError(t, c.Delete(ctx, a.TenantID, a.ProductID))
	require.Len(t, inv.published, 1)
	assert.Equal(t, InvalidationActionUpdated, inv.published[0].Action)
	assert.Equal(t, a.ProductID, inv.published[0].ProductID)

	// a remote update drops only the named entry
	require.NoError(t, c.Set(ctx, a, time.Minute))
	c.handleInvalidation(InvalidationMessage{Action: InvalidationActionUpdated, TenantID: a.TenantID, ProductID: a.ProductID})
	assert.Equal(t, 1, l1.Count())

	c.handleInvalidation(InvalidationMessage{Action: InvalidationActionInvalidateAll})
	assert.Equal(t, 0, l1.Count())

	c.handleInvalidation(InvalidationMessage{Action: "bogus"})
}

func TestTieredProductCostingCache_SubscriptionWithoutInvalidator(t *testing.T) {
	c := NewTieredProductCostingCache(NewInMemoryProductCostingCache())
	defer c.Close()
	assert.NoError(t, c.StartInvalidationSubscription(context.Background()))
}

func TestRedisCostingInvalidator_Unreachable(t *testing.T) {
	inv := NewRedisCostingInvalidator(unreachableRedis(t), WithInvalidatorChannel("test:invalidate"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, inv.Publish(ctx, InvalidationMessage{Action: InvalidationActionInvalidateAll}))
	assert.Error(t, inv.Subscribe(ctx, func(InvalidationMessage) {}))
	assert.NoError(t, inv.Close())
}

type fakeProductCostingRepo struct {
	mu    sync.Mutex
	rows  map[string]inventory.ProductCosting
	reads int
	err   error
}

func newFakeProductCostingRepo() *fakeProductCostingRepo {
	return &fakeProductCostingRepo{rows: make(map[string]inventory.ProductCosting)}
}

func (r *fakeProductCostingRepo) FindByProduct(_ context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCosting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	pc, ok := r.rows[productKey(tenantID, productID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &pc, nil
}

func (r *fakeProductCostingRepo) Save(_ context.Context, pc *inventory.ProductCosting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows[productKey(pc.TenantID, pc.ProductID)] = *pc
	return nil
}

func TestCachedProductCostingRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("second read is served from cache", func(t *testing.T) {
		repo := newFakeProductCostingRepo()
		c := NewTieredProductCostingCache(NewInMemoryProductCostingCache())
		defer c.Close()
		cached := NewCachedProductCostingRepository(repo, c, zaptest.NewLogger(t))
		pc := newTestCosting(strategy.CostMethodFIFO)
		require.NoError(t, repo.Save(ctx, pc))

		for i := 0; i < 3; i++ {
			got, err := cached.FindByProduct(ctx, pc.TenantID, pc.ProductID)
			require.NoError(t, err)
			assert.Equal(t, strategy.CostMethodFIFO, got.CostMethod)
		}
		assert.Equal(t, 1, repo.reads)
	})

	t.Run("misses are not cached", func(t *testing.T) {
		repo := newFakeProductCostingRepo()
		c := NewTieredProductCostingCache(NewInMemoryProductCostingCache())
		defer c.Close()
		cached := NewCachedProductCostingRepository(repo, c, nil)
		pc := newTestCosting(strategy.CostMethodFIFO)

		_, err := cached.FindByProduct(ctx, pc.TenantID, pc.ProductID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		require.NoError(t, repo.Save(ctx, pc))
		got, err := cached.FindByProduct(ctx, pc.TenantID, pc.ProductID)
		require.NoError(t, err)
		assert.Equal(t, pc.ProductID, got.ProductID)
	})

	t.Run("save invalidates so the new method is read back", func(t *testing.T) {
		repo := newFakeProductCostingRepo()
		inv := &stubInvalidator{}
		c := NewTieredProductCostingCache(NewInMemoryProductCostingCache(), WithInvalidator(inv))
		defer c.Close()
		cached := NewCachedProductCostingRepository(repo, c, nil)
		pc := newTestCosting(strategy.CostMethodFIFO)

		require.NoError(t, cached.Save(ctx, pc))
		_, err := cached.FindByProduct(ctx, pc.TenantID, pc.ProductID)
		require.NoError(t, err)

		updated := *pc
		updated.CostMethod = strategy.CostMethodWeightedAverage
		require.NoError(t, cached.Save(ctx, &updated))

		got, err := cached.FindByProduct(ctx, pc.TenantID, pc.ProductID)
		require.NoError(t, err)
		assert.Equal(t, strategy.CostMethodWeightedAverage, got.CostMethod)
		assert.Len(t, inv.published, 2)
	})

	t.Run("failed save leaves cache untouched", func(t *testing.T) {
		repo := newFakeProductCostingRepo()
		inv := &stubInvalidator{}
		c := NewTieredProductCostingCache(NewInMemoryProductCostingCache(), WithInvalidator(inv))
		defer c.Close()
		cached := NewCachedProductCostingRepository(repo, c, nil)
		repo.err = errors.New("boom")

		assert.Error(t, cached.Save(ctx, newTestCosting(strategy.CostMethodFIFO)))
		assert.Empty(t, inv.published)
	})
}

func TestFactory_RedisDisabled(t *testing.T) {
	f := NewFactory(config.RedisConfig{Enabled: false}, WithLogger(zaptest.NewLogger(t)))
	defer f.Close()

	store, err := f.CreateIdempotencyStore()
	require.NoError(t, err)
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	_ = store.Close()

	c, err := f.CreateProductCostingCache(DefaultCacheConfig(), true)
	require.NoError(t, err)
	assert.Nil(t, c.l2)
	assert.Nil(t, c.invalidator)
	_ = c.Close()

	assert.NoError(t, f.Ping(context.Background()))
}

func TestFactory_RedisUnreachable(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("falls back to in-memory", func(t *testing.T) {
		f := NewFactory(cfg, WithLogger(zaptest.NewLogger(t)))
		defer f.Close()

		store, err := f.CreateIdempotencyStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		_ = store.Close()

		c, err := f.CreateProductCostingCache(DefaultCacheConfig(), true)
		require.NoError(t, err)
		assert.Nil(t, c.l2)
		_ = c.Close()
	})

	t.Run("ping reports the outage", func(t *testing.T) {
		f := NewFactory(cfg)
		defer f.Close()
		assert.Error(t, f.Ping(context.Background()))
	})

	t.Run("fails without fallback", func(t *testing.T) {
		f := NewFactory(cfg, WithInMemoryFallback(false))
		defer f.Close()

		_, err := f.CreateIdempotencyStore()
		assert.Error(t, err)

		_, err = f.CreateProductCostingCache(DefaultCacheConfig(), true)
		assert.Error(t, err)
	})
}
