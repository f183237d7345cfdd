package service

import (
	"fmt"

	"school-im/internal/model"

	"github.com/google/uuid"
)

// RoomName 由参与者ID推导聊天室规范化名称
// 数值排序保证参数顺序无关，同一对用户恒得同一名称
func RoomName(parentID, teacherID uint) string {
	lo, hi := parentID, teacherID
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("teacher-parent-%d-%d", lo, hi)
}

// RoomCreator 聊天室查找与幂等创建依赖
type RoomCreator interface {
	GetByName(name string) (*model.ChatRoom, error)
	GetOrCreate(room *model.ChatRoom) (*model.ChatRoom, error)
}

// RoomResolver 聊天室解析器
// 负责"查找或创建"：名称唯一索引保证并发创建收敛到同一行
type RoomResolver struct {
	roomRepo RoomCreator
	verifier RelationshipVerifier
}

// NewRoomResolver 创建RoomResolver实例
func NewRoomResolver(roomRepo RoomCreator, verifier RelationshipVerifier) *RoomResolver {
	return &RoomResolver{roomRepo: roomRepo, verifier: verifier}
}

// Resolve 解析两名用户之间的聊天室，不存在则创建
// 创建前校验家校关系；已存在的聊天室直接返回，不重复校验
func (rr *RoomResolver) Resolve(a, b *model.User) (*model.ChatRoom, error) {
	name := RoomName(a.ID, b.ID)
	room, err := rr.roomRepo.GetByName(name)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}

	parent, teacher, err := rr.verifier.Verify(a, b)
	if err != nil {
		return nil, err
	}

	// 成员次序与名称中的ID次序一致
	lo, hi := parent.ID, teacher.ID
	if lo > hi {
		lo, hi = hi, lo
	}
	room = &model.ChatRoom{
		RoomID:   uuid.NewString(),
		TenantID: parent.TenantID,
		Name:     name,
		Type:     model.RoomTypeDirect,
		Members: []model.ChatRoomMember{
			{UserID: lo, Position: 0},
			{UserID: hi, Position: 1},
		},
	}
	return rr.roomRepo.GetOrCreate(room)
}
