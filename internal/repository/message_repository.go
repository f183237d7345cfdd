package repository

import (
	"errors"

	"school-im/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息数据仓储
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建消息并刷新所属聊天室的更新时间（单事务）
func (r *MessageRepository) Create(message *model.ChatMessage) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&model.ChatRoom{}).
			Where("room_id = ?", message.RoomID).
			Update("updated_at", message.CreatedAt).Error
	})
}

// GetByID 根据ID获取消息
// 未找到返回 (nil, nil)
func (r *MessageRepository) GetByID(id uint) (*model.ChatMessage, error) {
	var message model.ChatMessage
	err := r.db.First(&message, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// GetRoomMessages 获取聊天室消息历史（新→旧，排除已删除）
func (r *MessageRepository) GetRoomMessages(roomID string, limit, offset int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	err := r.db.
		Where("room_id = ? AND state = ?", roomID, model.MessageStateActive).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

// MarkAsRead 标记单条消息为已读
func (r *MessageRepository) MarkAsRead(messageID uint) error {
	return r.db.Model(&model.ChatMessage{}).
		Where("id = ?", messageID).
		Update("is_read", true).Error
}

// MarkRoomRead 将聊天室内非本人发送的未读消息批量置为已读
// 单条UPDATE语句，数据库侧原子
func (r *MessageRepository) MarkRoomRead(roomID string, readerID uint) error {
	return r.db.Model(&model.ChatMessage{}).
		Where("room_id = ? AND sender_id <> ? AND is_read = ? AND state = ?",
			roomID, readerID, false, model.MessageStateActive).
		Update("is_read", true).Error
}

// CountUnread 统计聊天室内某用户的未读消息数
// 未读定义：未删除、非本人发送、is_read=false
func (r *MessageRepository) CountUnread(roomID string, userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatMessage{}).
		Where("room_id = ? AND sender_id <> ? AND is_read = ? AND state = ?",
			roomID, userID, false, model.MessageStateActive).
		Count(&count).Error
	return count, err
}

// CountUnreadTotal 统计用户在所有参与聊天室的未读消息总数
func (r *MessageRepository) CountUnreadTotal(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatMessage{}).
		Where("sender_id <> ? AND is_read = ? AND state = ?", userID, false, model.MessageStateActive).
		Where("room_id IN (SELECT room_id FROM chat_room_member WHERE user_id = ?)", userID).
		Count(&count).Error
	return count, err
}

// UnreadRoomIDs 返回用户存在未读消息的聊天室ID列表
func (r *MessageRepository) UnreadRoomIDs(userID uint) ([]string, error) {
	var roomIDs []string
	err := r.db.Model(&model.ChatMessage{}).
		Distinct("room_id").
		Where("sender_id <> ? AND is_read = ? AND state = ?", userID, false, model.MessageStateActive).
		Where("room_id IN (SELECT room_id FROM chat_room_member WHERE user_id = ?)", userID).
		Pluck("room_id", &roomIDs).Error
	return roomIDs, err
}

// UnreadAggregate 按(用户,聊天室)聚合的未读计数，对账任务回源使用
type UnreadAggregate struct {
	UserID uint
	RoomID string
	Count  int64
}

// AllUnreadCounts 全量推导每个成员在每个聊天室的未读消息数
// 成员自己发送的消息不计入
func (r *MessageRepository) AllUnreadCounts() ([]UnreadAggregate, error) {
	var rows []UnreadAggregate
	err := r.db.Model(&model.ChatMessage{}).
		Select("chat_room_member.user_id AS user_id, chat_message.room_id AS room_id, COUNT(*) AS count").
		Joins("JOIN chat_room_member ON chat_room_member.room_id = chat_message.room_id AND chat_room_member.user_id <> chat_message.sender_id").
		Where("chat_message.is_read = ? AND chat_message.state = ?", false, model.MessageStateActive).
		Group("chat_room_member.user_id, chat_message.room_id").
		Scan(&rows).Error
	return rows, err
}

// SoftDelete 软删除：active -> soft_deleted
func (r *MessageRepository) SoftDelete(messageID uint) error {
	return r.db.Model(&model.ChatMessage{}).
		Where("id = ? AND state = ?", messageID, model.MessageStateActive).
		Update("state", model.MessageStateSoftDeleted).Error
}

// HardDelete 硬删除：整行移除
func (r *MessageRepository) HardDelete(messageID uint) error {
	return r.db.Delete(&model.ChatMessage{}, messageID).Error
}
