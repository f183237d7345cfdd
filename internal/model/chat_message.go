package model

import (
	"errors"
	"time"
)

// MessageState 消息删除状态机
// active -> soft_deleted -> (硬删除时整行移除)
// 软删除后消息从历史查询与缓存中消失，但行仍保留
type MessageState string

const (
	MessageStateActive      MessageState = "active"
	MessageStateSoftDeleted MessageState = "soft_deleted"
)

// ErrAlreadyDeleted 重复删除已软删除的消息
var ErrAlreadyDeleted = errors.New("message already deleted")

// 发送者身份（与用户角色对应）
const (
	SenderTypeParent  = "parent"
	SenderTypeTeacher = "teacher"
)

// ChatMessage 聊天消息模型
// IsRead 仅由接收方的已读操作翻转，发送方不可变更
// State 为 soft_deleted 时不计入历史与未读数

type ChatMessage struct {
	ID         uint         `gorm:"primaryKey"`
	TenantID   uint         `gorm:"not null;index;comment:租户(学校)ID"`
	RoomID     string       `gorm:"type:varchar(36);not null;index:idx_room_created;comment:聊天室UUID"`
	SenderID   uint         `gorm:"not null;index;comment:发送者用户ID"`
	SenderType string       `gorm:"type:varchar(32);not null;comment:发送者身份(parent/teacher)"`
	Subject    string       `gorm:"type:varchar(255);comment:主题(可选)"`
	Body       string       `gorm:"column:message;type:text;not null;comment:消息正文"`
	ImageURL   string       `gorm:"type:varchar(255);comment:附件图片URL(可选)"`
	IsRead     bool         `gorm:"default:false;comment:是否已读"`
	State      MessageState `gorm:"type:varchar(32);not null;default:'active';comment:删除状态"`
	CreatedAt  time.Time    `gorm:"index:idx_room_created;comment:创建时间"`
	UpdatedAt  time.Time    `gorm:"comment:更新时间"`
}

func (ChatMessage) TableName() string { return "chat_message" }

// SoftDelete 执行 active -> soft_deleted 状态迁移
func (m *ChatMessage) SoftDelete() error {
	if m.State != MessageStateActive {
		return ErrAlreadyDeleted
	}
	m.State = MessageStateSoftDeleted
	return nil
}

// Visible 消息是否对历史查询可见
func (m *ChatMessage) Visible() bool {
	return m.State == MessageStateActive
}
