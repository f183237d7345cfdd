package repository

import (
	"errors"

	"school-im/internal/model"

	"gorm.io/gorm"
)

// RoomRepository 聊天室数据仓储
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建RoomRepository实例
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// GetByName 按规范化名称查找聊天室（含成员）
// 未找到返回 (nil, nil)
func (r *RoomRepository) GetByName(name string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("name = ?", name).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// GetByRoomID 按UUID查找聊天室（含成员）
// 未找到返回 (nil, nil)
func (r *RoomRepository) GetByRoomID(roomID string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("room_id = ?", roomID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// Create 创建聊天室及成员（单事务）
// name 唯一索引冲突时返回 gorm.ErrDuplicatedKey，由调用方重查
func (r *RoomRepository) Create(room *model.ChatRoom) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(room).Error
	})
}

// GetOrCreate 幂等获取或创建聊天室
// 先查后插，并发插入撞唯一索引时按名称重查而非报错
func (r *RoomRepository) GetOrCreate(room *model.ChatRoom) (*model.ChatRoom, error) {
	existing, err := r.GetByName(room.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := r.Create(room); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发创建：另一调用已插入同名聊天室
			winner, ferr := r.GetByName(room.Name)
			if ferr != nil {
				return nil, ferr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}
	return room, nil
}

// ListUserRooms 返回用户参与且至少存在一条未删除消息的聊天室
func (r *RoomRepository) ListUserRooms(userID uint) ([]*model.ChatRoom, error) {
	var rooms []*model.ChatRoom
	err := r.db.
		Joins("JOIN chat_room_member m ON m.room_id = chat_room.room_id").
		Where("m.user_id = ?", userID).
		Where("EXISTS (SELECT 1 FROM chat_message msg WHERE msg.room_id = chat_room.room_id AND msg.state = ?)",
			model.MessageStateActive).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("chat_room.updated_at DESC").
		Find(&rooms).Error
	return rooms, err
}

// IsMember 判断用户是否为聊天室成员
func (r *RoomRepository) IsMember(roomID string, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.ChatRoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}
