package service_test

import (
	"context"
	"time"

	"school-im/internal/model"
	"school-im/internal/repository"
	"school-im/pkg/cache"

	"github.com/stretchr/testify/mock"
)

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Create(message *model.ChatMessage) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockMessageStore) GetByID(id uint) (*model.ChatMessage, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatMessage), args.Error(1)
}

func (m *MockMessageStore) GetRoomMessages(roomID string, limit, offset int) ([]*model.ChatMessage, error) {
	args := m.Called(roomID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ChatMessage), args.Error(1)
}

func (m *MockMessageStore) MarkAsRead(messageID uint) error {
	args := m.Called(messageID)
	return args.Error(0)
}

func (m *MockMessageStore) MarkRoomRead(roomID string, readerID uint) error {
	args := m.Called(roomID, readerID)
	return args.Error(0)
}

func (m *MockMessageStore) CountUnread(roomID string, userID uint) (int64, error) {
	args := m.Called(roomID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageStore) CountUnreadTotal(userID uint) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageStore) UnreadRoomIDs(userID uint) ([]string, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMessageStore) AllUnreadCounts() ([]repository.UnreadAggregate, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.UnreadAggregate), args.Error(1)
}

func (m *MockMessageStore) SoftDelete(messageID uint) error {
	args := m.Called(messageID)
	return args.Error(0)
}

func (m *MockMessageStore) HardDelete(messageID uint) error {
	args := m.Called(messageID)
	return args.Error(0)
}

type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) GetByRoomID(roomID string) (*model.ChatRoom, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatRoom), args.Error(1)
}

func (m *MockRoomStore) ListUserRooms(userID uint) ([]*model.ChatRoom, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ChatRoom), args.Error(1)
}

func (m *MockRoomStore) IsMember(roomID string, userID uint) (bool, error) {
	args := m.Called(roomID, userID)
	return args.Bool(0), args.Error(1)
}

type MockRoomCreator struct {
	mock.Mock
}

func (m *MockRoomCreator) GetByName(name string) (*model.ChatRoom, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatRoom), args.Error(1)
}

func (m *MockRoomCreator) GetOrCreate(room *model.ChatRoom) (*model.ChatRoom, error) {
	args := m.Called(room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatRoom), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(id uint) (*model.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(a, b *model.User) (*model.ChatRoom, error) {
	args := m.Called(a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatRoom), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(a, b *model.User) (*model.User, *model.User, error) {
	args := m.Called(a, b)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.User), args.Get(1).(*model.User), args.Error(2)
}

type MockRelationshipStore struct {
	mock.Mock
}

func (m *MockRelationshipStore) GetStudent(id uint) (*model.Student, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockRelationshipStore) StudentsOfParent(parentID uint) ([]uint, error) {
	args := m.Called(parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockRelationshipStore) IsGuardian(parentID, studentID uint) (bool, error) {
	args := m.Called(parentID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRelationshipStore) TeachesStudent(teacherID, studentID uint) (bool, error) {
	args := m.Called(teacherID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRelationshipStore) RosterForStudent(studentID uint) ([]uint, error) {
	args := m.Called(studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockRelationshipStore) SharedStudents(parentID, teacherID uint) ([]uint, error) {
	args := m.Called(parentID, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

type MockChatCache struct {
	mock.Mock
}

func (m *MockChatCache) PushRecent(ctx context.Context, msg *model.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatCache) GetRecent(ctx context.Context, roomID string) (cache.RecentLookup, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(cache.RecentLookup), args.Error(1)
}

func (m *MockChatCache) PrimeRecent(ctx context.Context, roomID string, messages []*model.ChatMessage) error {
	args := m.Called(ctx, roomID, messages)
	return args.Error(0)
}

func (m *MockChatCache) RemoveRecent(ctx context.Context, roomID string, messageID uint) error {
	args := m.Called(ctx, roomID, messageID)
	return args.Error(0)
}

func (m *MockChatCache) IncrUnread(ctx context.Context, userID uint, roomID string) error {
	args := m.Called(ctx, userID, roomID)
	return args.Error(0)
}

func (m *MockChatCache) DecrUnread(ctx context.Context, userID uint, roomID string) error {
	args := m.Called(ctx, userID, roomID)
	return args.Error(0)
}

func (m *MockChatCache) GetUnread(ctx context.Context, userID uint, roomID string) (int64, bool, error) {
	args := m.Called(ctx, userID, roomID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockChatCache) SetUnread(ctx context.Context, userID uint, roomID string, count int64) error {
	args := m.Called(ctx, userID, roomID, count)
	return args.Error(0)
}

func (m *MockChatCache) ClearUnread(ctx context.Context, userID uint, roomID string) error {
	args := m.Called(ctx, userID, roomID)
	return args.Error(0)
}

func (m *MockChatCache) SumUnread(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatCache) UnreadRoomIDs(ctx context.Context, userID uint) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockChatCache) IsOnline(ctx context.Context, userID uint) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatCache) LastSeen(ctx context.Context, userID uint) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockChatCache) SetOnline(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockChatCache) SetOffline(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockChatCache) AllUnreadEntries(ctx context.Context) ([]cache.UnreadEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cache.UnreadEntry), args.Error(1)
}
