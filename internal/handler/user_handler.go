package handler

import (
	"context"
	"strconv"

	"school-im/internal/service"
	"school-im/pkg/jwt"
	"school-im/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service     *service.UserService
	chatService *service.ChatService
}

func NewUserHandler(s *service.UserService, chatService *service.ChatService) *UserHandler {
	return &UserHandler{service: s, chatService: chatService}
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		TenantID uint   `json:"tenant_id" binding:"required"`
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.Register(r.TenantID, r.Username, r.Email, r.Password, r.Role)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "注册成功", &response.RegisterResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
		Password        string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.Login(r.UsernameOrEmail, r.Password)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "登录成功", &response.LoginResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// GetProfile 获取当前用户资料（需要JWT认证）
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	user, err := h.service.GetByID(userID)
	if err != nil {
		response.NotFound(c, "用户不存在")
		return
	}
	response.Success(c, response.FilterUserInfo(user))
}

// GetPresence 查询指定用户在线状态（需要JWT认证）
func (h *UserHandler) GetPresence(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user_id")
		return
	}

	online, lastSeen, err := h.chatService.GetPresence(contextOf(c), uint(targetID))
	if err != nil {
		response.InternalError(c, "查询在线状态失败")
		return
	}
	response.Success(c, response.NewPresenceResponse(uint(targetID), online, lastSeen))
}

// contextOf 取请求上下文
func contextOf(c *gin.Context) context.Context {
	return c.Request.Context()
}
