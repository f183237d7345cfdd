package main

import (
	"fmt"
	"log"
	"time"

	"school-im/config"
	"school-im/internal/model"
	dbPkg "school-im/pkg/db"
	"school-im/pkg/password"
)

// 演示数据种子工具
// 创建一个租户下的家长/教师/管理员账号、学生及其监护与授课关系
// 密码统一为 demo123456
func main() {
	cfg := config.LoadConfig()

	if _, err := dbPkg.InitDB(cfg.Database); err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	defer dbPkg.CloseDB()

	if err := dbPkg.AutoMigrate(
		&model.User{},
		&model.Student{},
		&model.Guardianship{},
		&model.TeachingAssignment{},
		&model.ChatRoom{},
		&model.ChatRoomMember{},
		&model.ChatMessage{},
	); err != nil {
		log.Fatalf("自动迁移失败: %v", err)
	}

	db := dbPkg.GetDB()
	hash, err := password.Hash("demo123456")
	if err != nil {
		log.Fatalf("密码哈希失败: %v", err)
	}

	const tenantID = 1

	users := []*model.User{
		{TenantID: tenantID, Username: "parent_zhang", Email: "parent.zhang@example.com", PasswordHash: hash, Nickname: "张家长", Role: model.RoleParent, Status: "offline", LastSeen: time.Now()},
		{TenantID: tenantID, Username: "teacher_li", Email: "teacher.li@example.com", PasswordHash: hash, Nickname: "李老师", Role: model.RoleTeacher, Status: "offline", LastSeen: time.Now()},
		{TenantID: tenantID, Username: "teacher_wang", Email: "teacher.wang@example.com", PasswordHash: hash, Nickname: "王老师", Role: model.RoleTeacher, Status: "offline", LastSeen: time.Now()},
		{TenantID: tenantID, Username: "admin", Email: "admin@example.com", PasswordHash: hash, Nickname: "管理员", Role: model.RoleAdmin, Status: "offline", LastSeen: time.Now()},
	}
	for _, u := range users {
		if err := db.Where("username = ?", u.Username).FirstOrCreate(u).Error; err != nil {
			log.Fatalf("创建用户 %s 失败: %v", u.Username, err)
		}
		fmt.Printf("用户 %s (id=%d role=%s)\n", u.Username, u.ID, u.Role)
	}

	student := &model.Student{TenantID: tenantID, FullName: "张小明", ClassName: "三年级3班"}
	if err := db.Where("tenant_id = ? AND full_name = ?", tenantID, student.FullName).FirstOrCreate(student).Error; err != nil {
		log.Fatalf("创建学生失败: %v", err)
	}
	fmt.Printf("学生 %s (id=%d)\n", student.FullName, student.ID)

	guardianship := &model.Guardianship{ParentID: users[0].ID, StudentID: student.ID}
	if err := db.Where("parent_id = ? AND student_id = ?", guardianship.ParentID, guardianship.StudentID).
		FirstOrCreate(guardianship).Error; err != nil {
		log.Fatalf("创建监护关系失败: %v", err)
	}

	assignments := []*model.TeachingAssignment{
		{TeacherID: users[1].ID, StudentID: student.ID, Subject: "数学"},
		{TeacherID: users[2].ID, StudentID: student.ID, Subject: "语文"},
	}
	for _, a := range assignments {
		if err := db.Where("teacher_id = ? AND student_id = ? AND subject = ?", a.TeacherID, a.StudentID, a.Subject).
			FirstOrCreate(a).Error; err != nil {
			log.Fatalf("创建授课关系失败: %v", err)
		}
	}

	fmt.Println("\n种子数据写入完成，所有账号密码均为 demo123456")
}
