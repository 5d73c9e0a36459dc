package kv

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
	pkgredis "github.com/angelmondragon/marketplace-cart/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSQLStore(t *testing.T) (*SQLStore, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.KVEntry{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewSQLStore(db), db
}

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(pkgredis.NewFromRaw(client)), mr
}

// contract runs the behaviour every backend must share.
func contract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "@GoMarketplace:products")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "@GoMarketplace:products", `[{"id":"p1"}]`))
	got, err := store.Get(ctx, "@GoMarketplace:products")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"p1"}]`, got)

	require.NoError(t, store.Set(ctx, "@GoMarketplace:products", `[]`))
	got, err = store.Get(ctx, "@GoMarketplace:products")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got, "set must overwrite")

	require.NoError(t, store.Set(ctx, "other", "x"))
	got, err = store.Get(ctx, "@GoMarketplace:products")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got, "keys must be independent")

	assert.NoError(t, Ping(ctx, store))
}

func TestMemoryContract(t *testing.T) {
	contract(t, NewMemory())
}

func TestSQLStoreContract(t *testing.T) {
	store, _ := setupSQLStore(t)
	contract(t, store)
}

func TestRedisStoreContract(t *testing.T) {
	store, _ := setupRedisStore(t)
	contract(t, store)
}

func TestSQLStoreKeepsSingleRowPerKey(t *testing.T) {
	store, db := setupSQLStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "1"))
	require.NoError(t, store.Set(ctx, "k", "2"))

	var count int64
	require.NoError(t, db.Model(&models.KVEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var entry models.KVEntry
	require.NoError(t, db.Where("entry_key = ?", "k").Take(&entry).Error)
	assert.Equal(t, "2", entry.Value)
	assert.WithinDuration(t, time.Now(), entry.UpdatedAt, time.Minute)
}

func TestRedisStoreNamespacesKeysWithoutTTL(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "@GoMarketplace:products", "[]"))

	stored, err := mr.Get("mc:kv:@GoMarketplace:products")
	require.NoError(t, err)
	assert.Equal(t, "[]", stored)
	assert.Equal(t, time.Duration(0), mr.TTL("mc:kv:@GoMarketplace:products"))
}

func TestRedisStoreSurfacesConnectionErrors(t *testing.T) {
	store, mr := setupRedisStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "redis get failed")
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()
	assert.ErrorIs(t, m.Set(ctx, "k", "v"), context.Canceled)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
