package cache_test

import (
	"context"
	"strconv"
	"testing"

	"school-im/config"
	"school-im/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	c, err := cache.New(config.RedisConfig{Host: s.Host(), Port: port}, config.ChatConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

func TestUnreadCounter_IncrAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, found, err := c.GetUnread(ctx, 4, "r1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.IncrUnread(ctx, 4, "r1"))
	require.NoError(t, c.IncrUnread(ctx, 4, "r1"))

	count, found, err := c.GetUnread(ctx, 4, "r1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), count)
}

// 递减到0时删除键，绝不出现负计数；对不存在的键递减是空操作
func TestUnreadCounter_DecrFloorsAtZero(t *testing.T) {
	c, s := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.IncrUnread(ctx, 4, "r1"))
	require.NoError(t, c.IncrUnread(ctx, 4, "r1"))

	require.NoError(t, c.DecrUnread(ctx, 4, "r1"))
	count, found, err := c.GetUnread(ctx, 4, "r1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), count)

	require.NoError(t, c.DecrUnread(ctx, 4, "r1"))
	_, found, err = c.GetUnread(ctx, 4, "r1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, s.Exists("unread:4:r1"))

	// 键已删除，再次递减不得创建负计数键
	require.NoError(t, c.DecrUnread(ctx, 4, "r1"))
	assert.False(t, s.Exists("unread:4:r1"))
}

func TestUnreadCounter_Aggregates(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.IncrUnread(ctx, 4, "r1"))
	require.NoError(t, c.IncrUnread(ctx, 4, "r1"))
	require.NoError(t, c.IncrUnread(ctx, 4, "r2"))
	require.NoError(t, c.IncrUnread(ctx, 9, "r1"))

	total, err := c.SumUnread(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	rooms, err := c.UnreadRoomIDs(ctx, 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2"}, rooms)

	entries, err := c.AllUnreadEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestUnreadCounter_SetAndClear(t *testing.T) {
	c, s := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetUnread(ctx, 4, "r1", 7))
	count, found, err := c.GetUnread(ctx, 4, "r1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(7), count)

	// 写入0等价于删除
	require.NoError(t, c.SetUnread(ctx, 4, "r1", 0))
	assert.False(t, s.Exists("unread:4:r1"))

	require.NoError(t, c.SetUnread(ctx, 4, "r1", 2))
	require.NoError(t, c.ClearUnread(ctx, 4, "r1"))
	assert.False(t, s.Exists("unread:4:r1"))
}
