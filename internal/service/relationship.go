package service

import (
	"fmt"

	"school-im/internal/model"
)

// RelationshipVerifier 家校关系校验
// 家长与教师之间存在至少一个共同学生（家长监护且教师授课）时才允许建立会话
type RelationshipVerifier interface {
	// Verify 校验双方可以对话，并返回(家长, 教师)的角色归位结果
	Verify(a, b *model.User) (parent, teacher *model.User, err error)
}

// SharedStudentFinder 共同学生查询依赖
type SharedStudentFinder interface {
	SharedStudents(parentID, teacherID uint) ([]uint, error)
}

// repoRelationshipVerifier 基于学生关系表的校验实现
type repoRelationshipVerifier struct {
	studentRepo SharedStudentFinder
}

// NewRelationshipVerifier 创建RelationshipVerifier实例
func NewRelationshipVerifier(studentRepo SharedStudentFinder) RelationshipVerifier {
	return &repoRelationshipVerifier{studentRepo: studentRepo}
}

func (v *repoRelationshipVerifier) Verify(a, b *model.User) (*model.User, *model.User, error) {
	parent, teacher, err := splitRoles(a, b)
	if err != nil {
		return nil, nil, err
	}
	if parent.TenantID != teacher.TenantID {
		return nil, nil, ErrInvalidRelationship
	}
	shared, err := v.studentRepo.SharedStudents(parent.ID, teacher.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询共同学生失败: %w", err)
	}
	if len(shared) == 0 {
		return nil, nil, ErrInvalidRelationship
	}
	return parent, teacher, nil
}

// splitRoles 将两名用户归位为(家长, 教师)
// 双方角色相同或含其他角色时视为非法会话组合
func splitRoles(a, b *model.User) (*model.User, *model.User, error) {
	switch {
	case a.Role == model.RoleParent && b.Role == model.RoleTeacher:
		return a, b, nil
	case a.Role == model.RoleTeacher && b.Role == model.RoleParent:
		return b, a, nil
	default:
		return nil, nil, ErrInvalidRelationship
	}
}

// senderTypeFor 根据用户角色得到消息发送者身份
func senderTypeFor(u *model.User) string {
	if u.Role == model.RoleTeacher {
		return model.SenderTypeTeacher
	}
	return model.SenderTypeParent
}
