package cache

import (
	"context"
	"testing"
	"time"

	"SchoolLink/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	TenantId string `json:"tenant_id"`
	Id       string `json:"id"`
}

func setup(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = redis.Close()
		redis.SetClient(nil)
	})
	return mr
}

func TestRedisListCache_TenantScopedKeys(t *testing.T) {
	mr := setup(t)
	c := NewRedisListCache(10 * time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "t1", "list::50:0", []item{{TenantId: "t1", Id: "a"}}))
	require.NoError(t, c.Set(ctx, "t2", "list::50:0", []item{{TenantId: "t2", Id: "b"}}))
	assert.True(t, mr.Exists("schoollink:notify:t1:list::50:0"))

	var got []item
	hit, err := c.Get(ctx, "t1", "list::50:0", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []item{{TenantId: "t1", Id: "a"}}, got)

	require.NoError(t, c.Clear(ctx, "t1"))
	hit, err = c.Get(ctx, "t1", "list::50:0", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	// 清理一所学校不影响其他学校
	hit, err = c.Get(ctx, "t2", "list::50:0", &got)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestRedisListCache_Expires(t *testing.T) {
	mr := setup(t)
	c := NewRedisListCache(5 * time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "t1", "status:n1", map[string]int{"total": 3}))
	mr.FastForward(6 * time.Second)

	var got map[string]int
	hit, err := c.Get(ctx, "t1", "status:n1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisListCache_CorruptValueIsMiss(t *testing.T) {
	mr := setup(t)
	c := NewRedisListCache(time.Minute)
	require.NoError(t, mr.Set("schoollink:notify:t1:list::50:0", "{not json"))

	var got []item
	hit, err := c.Get(context.Background(), "t1", "list::50:0", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists("schoollink:notify:t1:list::50:0"))
}

func TestRedisListCache_Disconnected(t *testing.T) {
	redis.SetClient(nil)
	c := NewRedisListCache(time.Minute)
	var got []item
	hit, err := c.Get(context.Background(), "t1", "x", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Set(context.Background(), "t1", "x", got))
	assert.NoError(t, c.Clear(context.Background(), "t1"))
}
