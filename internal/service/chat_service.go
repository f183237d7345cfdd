package service

import (
	"context"
	"strconv"
	"time"

	"school-im/internal/broker"
	"school-im/internal/model"
	"school-im/pkg/cache"
	"school-im/pkg/logger"
	"school-im/pkg/metrics"
)

// MessageStore 消息持久化依赖
type MessageStore interface {
	Create(message *model.ChatMessage) error
	GetByID(id uint) (*model.ChatMessage, error)
	GetRoomMessages(roomID string, limit, offset int) ([]*model.ChatMessage, error)
	MarkAsRead(messageID uint) error
	MarkRoomRead(roomID string, readerID uint) error
	CountUnread(roomID string, userID uint) (int64, error)
	CountUnreadTotal(userID uint) (int64, error)
	UnreadRoomIDs(userID uint) ([]string, error)
	SoftDelete(messageID uint) error
	HardDelete(messageID uint) error
}

// RoomStore 聊天室持久化依赖
type RoomStore interface {
	GetByRoomID(roomID string) (*model.ChatRoom, error)
	ListUserRooms(userID uint) ([]*model.ChatRoom, error)
	IsMember(roomID string, userID uint) (bool, error)
}

// UserStore 用户查询依赖
type UserStore interface {
	GetByID(id uint) (*model.User, error)
}

// Resolver 聊天室解析依赖
type Resolver interface {
	Resolve(a, b *model.User) (*model.ChatRoom, error)
}

// ChatCache 缓存层依赖
// 所有方法均为尽力而为：失败时退回数据库，不阻断主流程
type ChatCache interface {
	PushRecent(ctx context.Context, msg *model.ChatMessage) error
	GetRecent(ctx context.Context, roomID string) (cache.RecentLookup, error)
	PrimeRecent(ctx context.Context, roomID string, messages []*model.ChatMessage) error
	RemoveRecent(ctx context.Context, roomID string, messageID uint) error
	IncrUnread(ctx context.Context, userID uint, roomID string) error
	DecrUnread(ctx context.Context, userID uint, roomID string) error
	GetUnread(ctx context.Context, userID uint, roomID string) (int64, bool, error)
	SetUnread(ctx context.Context, userID uint, roomID string, count int64) error
	ClearUnread(ctx context.Context, userID uint, roomID string) error
	SumUnread(ctx context.Context, userID uint) (int64, error)
	UnreadRoomIDs(ctx context.Context, userID uint) ([]string, error)
	IsOnline(ctx context.Context, userID uint) (bool, error)
	LastSeen(ctx context.Context, userID uint) (*time.Time, error)
	SetOnline(ctx context.Context, userID uint) error
	SetOffline(ctx context.Context, userID uint) error
}

// RelationshipStore 学生关系查询依赖
type RelationshipStore interface {
	GetStudent(id uint) (*model.Student, error)
	IsGuardian(parentID, studentID uint) (bool, error)
	TeachesStudent(teacherID, studentID uint) (bool, error)
	RosterForStudent(studentID uint) ([]uint, error)
	StudentsOfParent(parentID uint) ([]uint, error)
}

// ChatService 聊天服务
// 消息管线：校验 -> 落库 -> 缓存 -> 事件广播
// 落库是唯一的真实提交点，其后的缓存与广播失败不回滚
type ChatService struct {
	messageRepo MessageStore
	roomRepo    RoomStore
	userRepo    UserStore
	studentRepo RelationshipStore
	resolver    Resolver
	cache       ChatCache
	broker      *broker.Broker
	recentLimit int
}

// NewChatService 创建ChatService实例
func NewChatService(
	messageRepo MessageStore,
	roomRepo RoomStore,
	userRepo UserStore,
	studentRepo RelationshipStore,
	resolver Resolver,
	chatCache ChatCache,
	b *broker.Broker,
	recentLimit int,
) *ChatService {
	if recentLimit <= 0 {
		recentLimit = 50
	}
	return &ChatService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		userRepo:    userRepo,
		studentRepo: studentRepo,
		resolver:    resolver,
		cache:       chatCache,
		broker:      b,
		recentLimit: recentLimit,
	}
}

// SendMessage 发送消息
// 接收者由ID指定，聊天室按需创建（含家校关系校验）
// studentContextIDStr 可选，给出时要求双方与该学生均有关联
func (s *ChatService) SendMessage(ctx context.Context, senderID uint, recipientIDStr, studentContextIDStr, subject, body, imageURL string) (*model.ChatMessage, error) {
	recipientID, err := strconv.ParseUint(recipientIDStr, 10, 32)
	if err != nil {
		return nil, ErrInvalidArgument
	}
	if senderID == uint(recipientID) {
		return nil, ErrInvalidArgument
	}
	if body == "" {
		return nil, ErrInvalidArgument
	}

	sender, err := s.userRepo.GetByID(senderID)
	if err != nil {
		return nil, ErrNotFound
	}
	recipient, err := s.userRepo.GetByID(uint(recipientID))
	if err != nil {
		return nil, ErrNotFound
	}

	if studentContextIDStr != "" {
		if err := s.verifyStudentContext(sender, recipient, studentContextIDStr); err != nil {
			return nil, err
		}
	}

	room, err := s.resolver.Resolve(sender, recipient)
	if err != nil {
		return nil, err
	}

	message := &model.ChatMessage{
		TenantID:   sender.TenantID,
		RoomID:     room.RoomID,
		SenderID:   sender.ID,
		SenderType: senderTypeFor(sender),
		Subject:    subject,
		Body:       body,
		ImageURL:   imageURL,
		IsRead:     false,
		State:      model.MessageStateActive,
	}

	// 先落库，数据库写入成功后消息即视为已提交
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	// 缓存更新为尽力而为
	if err := s.cache.PushRecent(ctx, message); err != nil {
		logger.Warnf("写入最近消息缓存失败 room=%s: %v", room.RoomID, err)
	}
	for _, pid := range room.ParticipantIDs() {
		if pid == sender.ID {
			continue
		}
		if err := s.cache.IncrUnread(ctx, pid, room.RoomID); err != nil {
			logger.Warnf("递增未读计数失败 user=%d room=%s: %v", pid, room.RoomID, err)
		}
	}

	// 广播不阻塞：慢订阅者丢消息而不是拖慢发送方
	s.broker.Publish(broker.TopicMessageAdded, broker.MessageAddedEvent{
		Message:      message,
		RoomID:       room.RoomID,
		Participants: room.ParticipantIDs(),
	})

	return message, nil
}

// GetOrCreateRoom 解析当前用户与对方之间的聊天室
func (s *ChatService) GetOrCreateRoom(userID uint, otherIDStr string) (*model.ChatRoom, error) {
	otherID, err := strconv.ParseUint(otherIDStr, 10, 32)
	if err != nil {
		return nil, ErrInvalidArgument
	}
	if userID == uint(otherID) {
		return nil, ErrInvalidArgument
	}
	me, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	other, err := s.userRepo.GetByID(uint(otherID))
	if err != nil {
		return nil, ErrNotFound
	}
	return s.resolver.Resolve(me, other)
}

// GetHistory 获取聊天室消息历史（新消息在前）
// 首页请求走缓存，未命中时回源数据库并异步重建缓存窗口
func (s *ChatService) GetHistory(ctx context.Context, userID uint, roomID string, limit, offset int) ([]*model.ChatMessage, error) {
	room, err := s.requireMemberRoom(roomID, userID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	if offset == 0 && limit <= s.recentLimit {
		lookup, err := s.cache.GetRecent(ctx, room.RoomID)
		if err == nil && lookup.Found {
			metrics.RecentCacheHits.Inc()
			if len(lookup.Messages) > limit {
				return lookup.Messages[:limit], nil
			}
			return lookup.Messages, nil
		}
		metrics.RecentCacheMisses.Inc()

		// 按完整缓存窗口回源，便于重建缓存
		messages, err := s.messageRepo.GetRoomMessages(room.RoomID, s.recentLimit, 0)
		if err != nil {
			return nil, err
		}
		go func(roomID string, msgs []*model.ChatMessage) {
			primeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.cache.PrimeRecent(primeCtx, roomID, msgs); err != nil {
				logger.Warnf("重建最近消息缓存失败 room=%s: %v", roomID, err)
			}
		}(room.RoomID, messages)

		if len(messages) > limit {
			return messages[:limit], nil
		}
		return messages, nil
	}

	return s.messageRepo.GetRoomMessages(room.RoomID, limit, offset)
}

// MarkRoomRead 将聊天室内他人发送的未读消息全部标记已读
func (s *ChatService) MarkRoomRead(ctx context.Context, userID uint, roomID string) error {
	if _, err := s.requireMemberRoom(roomID, userID); err != nil {
		return err
	}
	if err := s.messageRepo.MarkRoomRead(roomID, userID); err != nil {
		return err
	}
	if err := s.cache.ClearUnread(ctx, userID, roomID); err != nil {
		logger.Warnf("清除未读计数失败 user=%d room=%s: %v", userID, roomID, err)
	}
	return nil
}

// MarkMessageRead 标记单条消息为已读
// 发送者对自己消息的操作为空操作；重复标记为幂等
func (s *ChatService) MarkMessageRead(ctx context.Context, userID uint, messageIDStr string) error {
	messageID, err := strconv.ParseUint(messageIDStr, 10, 32)
	if err != nil {
		return ErrInvalidArgument
	}
	message, err := s.messageRepo.GetByID(uint(messageID))
	if err != nil {
		return err
	}
	if message == nil {
		return ErrNotFound
	}
	// 已删除的消息对读操作不可见，计数在删除时已回退
	if message.State != model.MessageStateActive {
		return ErrNotFound
	}
	if message.SenderID == userID {
		return nil
	}
	member, err := s.roomRepo.IsMember(message.RoomID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotFound
	}
	if message.IsRead {
		return nil
	}
	if err := s.messageRepo.MarkAsRead(message.ID); err != nil {
		return err
	}
	if err := s.cache.DecrUnread(ctx, userID, message.RoomID); err != nil {
		logger.Warnf("递减未读计数失败 user=%d room=%s: %v", userID, message.RoomID, err)
	}
	return nil
}

// DeleteMessage 软删除消息（仅发送者本人）
// 软删除后消息从历史与缓存中消失，未读的消息同步回退接收方计数
func (s *ChatService) DeleteMessage(ctx context.Context, userID uint, messageIDStr string) error {
	message, err := s.loadMessage(messageIDStr)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return ErrForbidden
	}
	if err := message.SoftDelete(); err != nil {
		return err
	}
	if err := s.messageRepo.SoftDelete(message.ID); err != nil {
		return err
	}
	s.evictDeleted(ctx, message)
	return nil
}

// PurgeMessage 硬删除消息（仅发送者本人）
// 行在数据库中被移除，不可恢复
func (s *ChatService) PurgeMessage(ctx context.Context, userID uint, messageIDStr string) error {
	message, err := s.loadMessage(messageIDStr)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return ErrForbidden
	}
	if err := s.messageRepo.HardDelete(message.ID); err != nil {
		return err
	}
	if message.State == model.MessageStateActive {
		s.evictDeleted(ctx, message)
	}
	return nil
}

func (s *ChatService) loadMessage(messageIDStr string) (*model.ChatMessage, error) {
	messageID, err := strconv.ParseUint(messageIDStr, 10, 32)
	if err != nil {
		return nil, ErrInvalidArgument
	}
	message, err := s.messageRepo.GetByID(uint(messageID))
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrNotFound
	}
	return message, nil
}

// evictDeleted 消息删除后的缓存收敛：移出最近消息窗口，未读消息回退计数
func (s *ChatService) evictDeleted(ctx context.Context, message *model.ChatMessage) {
	if err := s.cache.RemoveRecent(ctx, message.RoomID, message.ID); err != nil {
		logger.Warnf("移除缓存消息失败 room=%s msg=%d: %v", message.RoomID, message.ID, err)
	}
	if message.IsRead {
		return
	}
	room, err := s.roomRepo.GetByRoomID(message.RoomID)
	if err != nil || room == nil {
		return
	}
	for _, pid := range room.ParticipantIDs() {
		if pid == message.SenderID {
			continue
		}
		if err := s.cache.DecrUnread(ctx, pid, message.RoomID); err != nil {
			logger.Warnf("回退未读计数失败 user=%d room=%s: %v", pid, message.RoomID, err)
		}
	}
}

// GetUserRooms 获取用户参与且有消息往来的聊天室列表
func (s *ChatService) GetUserRooms(userID uint) ([]*model.ChatRoom, error) {
	return s.roomRepo.ListUserRooms(userID)
}

// GetUnreadCount 获取用户全部未读消息数（优先缓存，失败时回源数据库）
func (s *ChatService) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.cache.SumUnread(ctx, userID)
	if err == nil {
		return count, nil
	}
	logger.Warnf("读取未读计数缓存失败 user=%d: %v", userID, err)
	return s.messageRepo.CountUnreadTotal(userID)
}

// GetRoomUnreadCount 获取用户在某聊天室的未读消息数
func (s *ChatService) GetRoomUnreadCount(ctx context.Context, userID uint, roomID string) (int64, error) {
	if _, err := s.requireMemberRoom(roomID, userID); err != nil {
		return 0, err
	}
	count, found, err := s.cache.GetUnread(ctx, userID, roomID)
	if err == nil && found {
		return count, nil
	}
	dbCount, err := s.messageRepo.CountUnread(roomID, userID)
	if err != nil {
		return 0, err
	}
	if cacheErr := s.cache.SetUnread(ctx, userID, roomID, dbCount); cacheErr != nil {
		logger.Warnf("回填未读计数失败 user=%d room=%s: %v", userID, roomID, cacheErr)
	}
	return dbCount, nil
}

// GetUnreadRoomIDs 获取存在未读消息的聊天室ID列表
func (s *ChatService) GetUnreadRoomIDs(ctx context.Context, userID uint) ([]string, error) {
	ids, err := s.cache.UnreadRoomIDs(ctx, userID)
	if err == nil {
		return ids, nil
	}
	logger.Warnf("读取未读聊天室缓存失败 user=%d: %v", userID, err)
	return s.messageRepo.UnreadRoomIDs(userID)
}

// GetPresence 查询用户在线状态
func (s *ChatService) GetPresence(ctx context.Context, userID uint) (online bool, lastSeen *time.Time, err error) {
	online, err = s.cache.IsOnline(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	lastSeen, err = s.cache.LastSeen(ctx, userID)
	if err != nil {
		return online, nil, nil
	}
	return online, lastSeen, nil
}

// Heartbeat 在线心跳，刷新在线状态TTL
func (s *ChatService) Heartbeat(ctx context.Context, userID uint) error {
	return s.cache.SetOnline(ctx, userID)
}

// Disconnect 用户下线，写入离线状态与最近在线时间
func (s *ChatService) Disconnect(ctx context.Context, userID uint) error {
	return s.cache.SetOffline(ctx, userID)
}

// RecipientsForStudent 学生名册查询：该学生的任课教师列表
// 家长须为该学生的监护人；教师与管理员可直接查询
func (s *ChatService) RecipientsForStudent(userID uint, studentIDStr string) ([]*model.User, error) {
	studentID, err := strconv.ParseUint(studentIDStr, 10, 32)
	if err != nil {
		return nil, ErrInvalidArgument
	}
	requester, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	student, err := s.studentRepo.GetStudent(uint(studentID))
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrNotFound
	}
	if requester.Role == model.RoleParent {
		guardian, err := s.studentRepo.IsGuardian(requester.ID, uint(studentID))
		if err != nil {
			return nil, err
		}
		if !guardian {
			return nil, ErrForbidden
		}
	}
	teacherIDs, err := s.studentRepo.RosterForStudent(uint(studentID))
	if err != nil {
		return nil, err
	}
	teachers := make([]*model.User, 0, len(teacherIDs))
	for _, tid := range teacherIDs {
		teacher, err := s.userRepo.GetByID(tid)
		if err != nil {
			continue
		}
		teachers = append(teachers, teacher)
	}
	return teachers, nil
}

// MyStudents 家长查询自己监护的学生列表
// 用于客户端发消息时选择学生上下文
func (s *ChatService) MyStudents(userID uint) ([]*model.Student, error) {
	requester, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	if requester.Role != model.RoleParent {
		return nil, ErrForbidden
	}
	studentIDs, err := s.studentRepo.StudentsOfParent(requester.ID)
	if err != nil {
		return nil, err
	}
	students := make([]*model.Student, 0, len(studentIDs))
	for _, sid := range studentIDs {
		student, err := s.studentRepo.GetStudent(sid)
		if err != nil || student == nil {
			continue
		}
		students = append(students, student)
	}
	return students, nil
}

// SubscribeTyping 订阅聊天室输入状态（需为成员）
func (s *ChatService) SubscribeTyping(userID uint, roomID string) (*broker.Subscription, error) {
	if _, err := s.requireMemberRoom(roomID, userID); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(broker.TypingTopic(roomID)), nil
}

// PublishTyping 广播输入状态（需为成员，纯瞬态，不落库）
func (s *ChatService) PublishTyping(userID uint, roomID string, isTyping bool) error {
	if _, err := s.requireMemberRoom(roomID, userID); err != nil {
		return err
	}
	s.broker.Publish(broker.TypingTopic(roomID), broker.TypingEvent{
		RoomID:   roomID,
		UserID:   userID,
		IsTyping: isTyping,
	})
	return nil
}

// requireMemberRoom 加载聊天室并校验成员身份
// 非成员统一返回 ErrNotFound，不向外暴露聊天室是否存在
func (s *ChatService) requireMemberRoom(roomID string, userID uint) (*model.ChatRoom, error) {
	room, err := s.roomRepo.GetByRoomID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrNotFound
	}
	if !room.HasParticipant(userID) {
		return nil, ErrNotFound
	}
	return room, nil
}

// verifyStudentContext 校验消息所关联的学生与会话双方的关系
// 家长需是该学生的监护人，教师需任教该学生所在班级
func (s *ChatService) verifyStudentContext(sender, recipient *model.User, studentIDStr string) error {
	studentID, err := strconv.ParseUint(studentIDStr, 10, 32)
	if err != nil {
		return ErrInvalidArgument
	}
	parent, teacher, err := splitRoles(sender, recipient)
	if err != nil {
		return err
	}
	guardian, err := s.studentRepo.IsGuardian(parent.ID, uint(studentID))
	if err != nil {
		return err
	}
	if !guardian {
		return ErrInvalidRelationship
	}
	teaches, err := s.studentRepo.TeachesStudent(teacher.ID, uint(studentID))
	if err != nil {
		return err
	}
	if !teaches {
		return ErrInvalidRelationship
	}
	return nil
}
