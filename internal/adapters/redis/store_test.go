package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/chaptree/internal/adapters/redis"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)

	store := redis.NewFromClient(client)
	ports.RunDocumentStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	clock := time.Now()
	store := redis.NewFromClient(client,
		redis.WithTTL(1*time.Second),
		redis.WithClock(func() time.Time { return clock }),
	)
	ctx := context.Background()
	doc := domain.NewDocument("doc-ttl", domain.NewDefaultForest("r"))

	require.NoError(t, store.Save(ctx, doc))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "doc-ttl")

	mr.FastForward(2 * time.Second)
	clock = clock.Add(2 * time.Second)

	_, err = store.Load(ctx, "doc-ttl")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Save(ctx, domain.NewDocument("index", domain.NewDefaultForest("r")))
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:doc:index"), "Expected document key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"index"}, list)

	loaded, err := store.Load(ctx, "index")
	require.NoError(t, err)
	assert.Equal(t, "r", loaded.Forest.Root(0).ID())
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, mr.Set(redis.DefaultPrefix+"doc:bad", `{"id":"bad","forest":[{"id":"x","children":[{"id":"x"}]}]}`))

	_, err := store.Load(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
}
