package service_test

import (
	"context"
	"testing"

	"school-im/internal/repository"
	"school-im/internal/service"
	"school-im/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReconciler_RunOnce_RepairsDrift(t *testing.T) {
	c := new(MockChatCache)
	messages := new(MockMessageStore)

	messages.On("AllUnreadCounts").Return([]repository.UnreadAggregate{
		{UserID: 4, RoomID: "r1", Count: 3},
		{UserID: 1, RoomID: "r2", Count: 2},
	}, nil)
	c.On("AllUnreadEntries", mock.Anything).Return([]cache.UnreadEntry{
		{UserID: 4, RoomID: "r1"},
		{UserID: 1, RoomID: "r2"},
	}, nil)

	// r1 偏差：缓存5，数据库3
	c.On("GetUnread", mock.Anything, uint(4), "r1").Return(int64(5), true, nil)
	c.On("SetUnread", mock.Anything, uint(4), "r1", int64(3)).Return(nil)

	// r2 一致：不写回
	c.On("GetUnread", mock.Anything, uint(1), "r2").Return(int64(2), true, nil)

	r := service.NewReconciler(c, messages, "*/10 * * * *")
	err := r.RunOnce(context.Background())
	require.NoError(t, err)

	c.AssertCalled(t, "SetUnread", mock.Anything, uint(4), "r1", int64(3))
	c.AssertNotCalled(t, "SetUnread", mock.Anything, uint(1), "r2", mock.Anything)
}

// TTL过期丢失的键由对账按数据库重建，聚合未读不会长期漏报
func TestReconciler_RunOnce_RebuildsExpiredKeys(t *testing.T) {
	c := new(MockChatCache)
	messages := new(MockMessageStore)

	messages.On("AllUnreadCounts").Return([]repository.UnreadAggregate{
		{UserID: 4, RoomID: "r1", Count: 3},
	}, nil)
	c.On("AllUnreadEntries", mock.Anything).Return([]cache.UnreadEntry{}, nil)
	c.On("SetUnread", mock.Anything, uint(4), "r1", int64(3)).Return(nil)

	r := service.NewReconciler(c, messages, "*/10 * * * *")
	err := r.RunOnce(context.Background())
	require.NoError(t, err)

	c.AssertCalled(t, "SetUnread", mock.Anything, uint(4), "r1", int64(3))
}

// 数据库已无未读的残留键被清零删除
func TestReconciler_RunOnce_ClearsStaleKeys(t *testing.T) {
	c := new(MockChatCache)
	messages := new(MockMessageStore)

	messages.On("AllUnreadCounts").Return([]repository.UnreadAggregate{}, nil)
	c.On("AllUnreadEntries", mock.Anything).Return([]cache.UnreadEntry{
		{UserID: 4, RoomID: "r1"},
	}, nil)
	c.On("SetUnread", mock.Anything, uint(4), "r1", int64(0)).Return(nil)

	r := service.NewReconciler(c, messages, "*/10 * * * *")
	err := r.RunOnce(context.Background())
	require.NoError(t, err)

	c.AssertCalled(t, "SetUnread", mock.Anything, uint(4), "r1", int64(0))
}

func TestReconciler_Start_InvalidCron(t *testing.T) {
	c := new(MockChatCache)
	messages := new(MockMessageStore)

	r := service.NewReconciler(c, messages, "not a cron")
	_, err := r.Start(context.Background())
	assert.Error(t, err)
}
