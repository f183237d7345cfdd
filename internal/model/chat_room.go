package model

import (
	"time"
)

// 会话类型
// 目前仅支持单聊（家长-教师），保留扩展空间
const (
	RoomTypeDirect = "direct"
)

// ChatRoom 聊天室模型
// RoomID 为创建时生成的UUID，对外作为不透明标识
// Name 由参与者ID集合规范化推导（排序去重后拼接），唯一索引
// 同一对参与者至多存在一个聊天室，Name 即幂等键

type ChatRoom struct {
	RoomID    string           `gorm:"type:varchar(36);primaryKey;comment:聊天室UUID"`
	TenantID  uint             `gorm:"not null;index;comment:租户(学校)ID"`
	Name      string           `gorm:"type:varchar(128);not null;uniqueIndex;comment:规范化名称(幂等键)"`
	Type      string           `gorm:"type:varchar(32);not null;default:'direct';comment:会话类型"`
	Members   []ChatRoomMember `gorm:"foreignKey:RoomID;references:RoomID"`
	CreatedAt time.Time        `gorm:"comment:创建时间"`
	UpdatedAt time.Time        `gorm:"comment:更新时间"`
}

func (ChatRoom) TableName() string { return "chat_room" }

// ParticipantIDs 返回按加入顺序排列的参与者ID列表
func (r *ChatRoom) ParticipantIDs() []uint {
	ids := make([]uint, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// HasParticipant 判断用户是否为聊天室参与者
func (r *ChatRoom) HasParticipant(userID uint) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// ChatRoomMember 聊天室成员
// Position 记录成员在规范化参与者列表中的次序

type ChatRoomMember struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_room_member;comment:聊天室UUID"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_room_member;index;comment:成员用户ID"`
	Position  int       `gorm:"not null;default:0;comment:参与者次序"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (ChatRoomMember) TableName() string { return "chat_room_member" }
