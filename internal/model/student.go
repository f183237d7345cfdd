package model

import (
	"time"

	"gorm.io/gorm"
)

// Student 学生模型
// 学生不直接登录系统，仅作为家长与教师沟通的上下文

type Student struct {
	ID        uint           `gorm:"primaryKey"`
	TenantID  uint           `gorm:"not null;index;comment:租户(学校)ID"`
	FullName  string         `gorm:"type:varchar(128);not null;comment:学生姓名"`
	ClassName string         `gorm:"type:varchar(64);comment:班级"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Student) TableName() string { return "student" }

// Guardianship 监护关系（家长-学生）
// 家长只能就其监护的学生联系教师

type Guardianship struct {
	ID        uint      `gorm:"primaryKey"`
	ParentID  uint      `gorm:"not null;uniqueIndex:uk_guardian;comment:家长用户ID"`
	StudentID uint      `gorm:"not null;uniqueIndex:uk_guardian;index;comment:学生ID"`
	Relation  string    `gorm:"type:varchar(32);default:'guardian';comment:关系(父/母/监护人)"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

func (Guardianship) TableName() string { return "guardianship" }

// TeachingAssignment 授课关系（教师-学生）
// 即学生的教师名册，决定某学生可联系哪些教师

type TeachingAssignment struct {
	ID        uint      `gorm:"primaryKey"`
	TeacherID uint      `gorm:"not null;uniqueIndex:uk_teaching;comment:教师用户ID"`
	StudentID uint      `gorm:"not null;uniqueIndex:uk_teaching;index;comment:学生ID"`
	Subject   string    `gorm:"type:varchar(64);uniqueIndex:uk_teaching;comment:科目"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

func (TeachingAssignment) TableName() string { return "teaching_assignment" }
