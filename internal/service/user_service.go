package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"school-im/internal/model"
	"school-im/internal/repository"
	"school-im/pkg/jwt"
	"school-im/pkg/password"
)

type UserService struct {
	repo       *repository.UserRepository
	jwtService *jwt.JWTService
}

func NewUserService(repo *repository.UserRepository, jwtService *jwt.JWTService) *UserService {
	return &UserService{repo: repo, jwtService: jwtService}
}

// Register 注册
// 角色仅允许 parent/teacher，管理员账号由运维脚本直接写库
func (s *UserService) Register(tenantID uint, username, email, plainPassword, role string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || plainPassword == "" {
		return nil, "", errors.New("username and password are required")
	}
	if role != model.RoleParent && role != model.RoleTeacher {
		return nil, "", errors.New("invalid role")
	}
	if tenantID == 0 {
		return nil, "", errors.New("tenant is required")
	}
	// 密码哈希
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		TenantID:     tenantID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       "offline",
		LastSeen:     time.Now(),
	}
	if err := s.repo.Create(user); err != nil {
		return nil, "", err
	}
	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login 登录
func (s *UserService) Login(identifier, plainPassword string) (*model.User, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || plainPassword == "" {
		return nil, "", errors.New("identifier and password are required")
	}
	u, err := s.repo.GetByUsernameOrEmail(identifier)
	if err != nil {
		return nil, "", err
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, "", errors.New("invalid credentials")
	}
	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// GetByID 查询用户
func (s *UserService) GetByID(id uint) (*model.User, error) {
	return s.repo.GetByID(id)
}

// issueToken 签发 token，携带用户名/角色/租户声明
func (s *UserService) issueToken(u *model.User) (string, error) {
	return s.jwtService.GenerateToken(
		// 使用用户ID作为 subject
		fmt.Sprintf("%d", u.ID),
		map[string]interface{}{
			"username":  u.Username,
			"role":      u.Role,
			"tenant_id": u.TenantID,
		},
	)
}
