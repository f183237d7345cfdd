package repository

import (
	"school-im/internal/model"

	"gorm.io/gorm"
)

// StudentRepository 学生与关系数据仓储
// 覆盖监护关系（家长-学生）与授课关系（教师-学生）两类查询
type StudentRepository struct {
	db *gorm.DB
}

// NewStudentRepository 创建StudentRepository实例
func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) GetStudent(id uint) (*model.Student, error) {
	var s model.Student
	if err := r.db.First(&s, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// IsGuardian 判断家长是否为学生的监护人
func (r *StudentRepository) IsGuardian(parentID, studentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Guardianship{}).
		Where("parent_id = ? AND student_id = ?", parentID, studentID).
		Count(&count).Error
	return count > 0, err
}

// TeachesStudent 判断教师是否教授该学生
func (r *StudentRepository) TeachesStudent(teacherID, studentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.TeachingAssignment{}).
		Where("teacher_id = ? AND student_id = ?", teacherID, studentID).
		Count(&count).Error
	return count > 0, err
}

// SharedStudents 查询家长与教师之间的共同学生ID
// 即：家长监护且教师授课的学生，存在至少一个则双方可以建立会话
func (r *StudentRepository) SharedStudents(parentID, teacherID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Guardianship{}).
		Distinct("guardianship.student_id").
		Joins("JOIN teaching_assignment ON teaching_assignment.student_id = guardianship.student_id").
		Where("guardianship.parent_id = ? AND teaching_assignment.teacher_id = ?", parentID, teacherID).
		Pluck("guardianship.student_id", &ids).Error
	return ids, err
}

// RosterForStudent 查询学生的任课教师ID列表
func (r *StudentRepository) RosterForStudent(studentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.TeachingAssignment{}).
		Distinct("teacher_id").
		Where("student_id = ?", studentID).
		Pluck("teacher_id", &ids).Error
	return ids, err
}

// StudentsOfParent 查询家长监护的学生ID列表
func (r *StudentRepository) StudentsOfParent(parentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Guardianship{}).
		Where("parent_id = ?", parentID).
		Pluck("student_id", &ids).Error
	return ids, err
}
