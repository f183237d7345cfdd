package model

import (
	"time"

	"gorm.io/gorm"
)

// 用户角色
// parent-家长 teacher-教师 admin-管理员
const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User 用户模型（家长/教师/管理员共用一张表）
// 索引与唯一约束：用户名唯一、邮箱唯一
// 说明：密码仅存储哈希（PasswordHash），不存储明文
// TenantID 用于多租户（学校）隔离
// LastSeen 用于最近在线时间

type User struct {
	ID           uint           `gorm:"primaryKey"`
	TenantID     uint           `gorm:"not null;index;comment:租户(学校)ID"`
	Username     string         `gorm:"type:varchar(64);not null;uniqueIndex;comment:用户名"`
	Email        string         `gorm:"type:varchar(128);uniqueIndex;comment:邮箱"`
	PasswordHash string         `gorm:"type:varchar(255);not null;comment:密码哈希"`
	Nickname     string         `gorm:"type:varchar(64);comment:昵称"`
	Role         string         `gorm:"type:varchar(32);not null;default:'parent';comment:角色"`
	Status       string         `gorm:"type:varchar(32);default:'offline';comment:状态"`
	LastSeen     time.Time      `gorm:"comment:最近在线时间"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName 指定表名（全局配置使用单数表名）
func (User) TableName() string { return "user" }
