package response

import (
	"net/http"
	"time"

	"school-im/internal/model"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 状态码：0表示成功，其他表示错误
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithDetails 带错误详情的错误响应
func ErrorWithDetails(c *gin.Context, code int, message string, err error) {
	response := Response{
		Code:    code,
		Message: message,
	}

	// 在开发环境下显示错误详情
	if gin.Mode() == gin.DebugMode && err != nil {
		response.Error = err.Error()
	}

	c.JSON(http.StatusOK, response)
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, message)
}

// Forbidden 403错误
func Forbidden(c *gin.Context, message string) {
	Error(c, 403, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	Error(c, 404, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	Error(c, 500, message)
}

// UserInfo 用户信息（隐藏敏感字段）
type UserInfo struct {
	ID        uint   `json:"id"`
	TenantID  uint   `json:"tenant_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	LastSeen  string `json:"last_seen"`
	CreatedAt string `json:"created_at"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}

	return &UserInfo{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Username:  user.Username,
		Email:     user.Email,
		Nickname:  user.Nickname,
		Role:      user.Role,
		Status:    user.Status,
		LastSeen:  user.LastSeen.Format("2006-01-02 15:04:05"),
		CreatedAt: user.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// LoginResponse 登录响应
type LoginResponse struct {
	User        *UserInfo `json:"user"`
	AccessToken string    `json:"access_token"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	User        *UserInfo `json:"user"`
	AccessToken string    `json:"access_token"`
}

// MessageResponse 消息响应
type MessageResponse struct {
	ID         uint   `json:"id"`
	RoomID     string `json:"room_id"`
	SenderID   uint   `json:"sender_id"`
	SenderType string `json:"sender_type"`
	Subject    string `json:"subject,omitempty"`
	Message    string `json:"message"`
	ImageURL   string `json:"image_url,omitempty"`
	IsRead     bool   `json:"is_read"`
	CreatedAt  string `json:"created_at"`
}

// FilterMessageInfo 过滤消息信息
func FilterMessageInfo(message *model.ChatMessage) *MessageResponse {
	if message == nil {
		return nil
	}

	return &MessageResponse{
		ID:         message.ID,
		RoomID:     message.RoomID,
		SenderID:   message.SenderID,
		SenderType: message.SenderType,
		Subject:    message.Subject,
		Message:    message.Body,
		ImageURL:   message.ImageURL,
		IsRead:     message.IsRead,
		CreatedAt:  message.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// FilterMessageList 批量过滤消息
func FilterMessageList(messages []*model.ChatMessage) []*MessageResponse {
	out := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, FilterMessageInfo(m))
	}
	return out
}

// RoomResponse 聊天室响应
type RoomResponse struct {
	RoomID       string `json:"room_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Participants []uint `json:"participants"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// FilterRoomInfo 过滤聊天室信息
func FilterRoomInfo(room *model.ChatRoom) *RoomResponse {
	if room == nil {
		return nil
	}

	return &RoomResponse{
		RoomID:       room.RoomID,
		Name:         room.Name,
		Type:         room.Type,
		Participants: room.ParticipantIDs(),
		CreatedAt:    room.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:    room.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// FilterRoomList 批量过滤聊天室
func FilterRoomList(rooms []*model.ChatRoom) []*RoomResponse {
	out := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, FilterRoomInfo(r))
	}
	return out
}

// PresenceResponse 在线状态响应
type PresenceResponse struct {
	UserID   uint   `json:"user_id"`
	Online   bool   `json:"online"`
	LastSeen string `json:"last_seen,omitempty"`
}

// NewPresenceResponse 构建在线状态响应，lastSeen 为空表示未知
func NewPresenceResponse(userID uint, online bool, lastSeen *time.Time) *PresenceResponse {
	resp := &PresenceResponse{
		UserID: userID,
		Online: online,
	}
	if lastSeen != nil {
		resp.LastSeen = lastSeen.Format("2006-01-02 15:04:05")
	}
	return resp
}

// RecipientResponse 候选收件人（学生名册中的教师）
type RecipientResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Subject  string `json:"subject,omitempty"`
}

// StudentResponse 学生信息
type StudentResponse struct {
	StudentID uint   `json:"student_id"`
	FullName  string `json:"full_name"`
	ClassName string `json:"class_name"`
}
