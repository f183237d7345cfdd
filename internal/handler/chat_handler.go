package handler

import (
	"errors"
	"strconv"

	"school-im/internal/model"
	"school-im/internal/service"
	"school-im/pkg/jwt"
	"school-im/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler 创建ChatHandler实例
func NewChatHandler(s *service.ChatService) *ChatHandler {
	return &ChatHandler{service: s}
}

// respondError 将业务错误映射到响应状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInvalidRelationship):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, model.ErrAlreadyDeleted):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, "操作失败")
	}
}

// SendMessage 发送消息
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)

	type req struct {
		RecipientID string `json:"recipient_id" binding:"required"`
		StudentID   string `json:"student_id"`
		Subject     string `json:"subject"`
		Message     string `json:"message" binding:"required"`
		ImageURL    string `json:"image_url"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	message, err := h.service.SendMessage(contextOf(c), userID, r.RecipientID, r.StudentID, r.Subject, r.Message, r.ImageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "消息发送成功", response.FilterMessageInfo(message))
}

// GetHistory 获取聊天室消息历史
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	roomID := c.Param("room_id")
	if roomID == "" {
		response.BadRequest(c, "room_id is required")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	messages, err := h.service.GetHistory(contextOf(c), userID, roomID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, response.FilterMessageList(messages))
}

// GetRooms 获取当前用户的聊天室列表
func (h *ChatHandler) GetRooms(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)

	rooms, err := h.service.GetUserRooms(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, response.FilterRoomList(rooms))
}

// ResolveRoom 解析与对方用户的聊天室（不存在则创建）
func (h *ChatHandler) ResolveRoom(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)

	type req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.service.GetOrCreateRoom(userID, r.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, response.FilterRoomInfo(room))
}

// MarkRoomRead 标记聊天室全部消息已读
func (h *ChatHandler) MarkRoomRead(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	roomID := c.Param("room_id")
	if roomID == "" {
		response.BadRequest(c, "room_id is required")
		return
	}

	if err := h.service.MarkRoomRead(contextOf(c), userID, roomID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已全部标记已读", nil)
}

// MarkMessageRead 标记单条消息已读
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	messageID := c.Param("message_id")
	if messageID == "" {
		response.BadRequest(c, "message_id is required")
		return
	}

	if err := h.service.MarkMessageRead(contextOf(c), userID, messageID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "消息已标记为已读", nil)
}

// DeleteMessage 删除消息
// 软删除与硬删除都只允许发送者本人；hard=true 时直接移除数据行
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	messageID := c.Param("message_id")
	if messageID == "" {
		response.BadRequest(c, "message_id is required")
		return
	}

	var err error
	if c.Query("hard") == "true" {
		err = h.service.PurgeMessage(contextOf(c), userID, messageID)
	} else {
		err = h.service.DeleteMessage(contextOf(c), userID, messageID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "消息删除成功", nil)
}

// GetUnreadCount 获取全部未读消息数
func (h *ChatHandler) GetUnreadCount(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)

	count, err := h.service.GetUnreadCount(contextOf(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"unread_count": count})
}

// GetRoomUnreadCount 获取某聊天室的未读消息数
func (h *ChatHandler) GetRoomUnreadCount(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	roomID := c.Param("room_id")
	if roomID == "" {
		response.BadRequest(c, "room_id is required")
		return
	}

	count, err := h.service.GetRoomUnreadCount(contextOf(c), userID, roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"room_id": roomID, "unread_count": count})
}

// GetUnreadRooms 获取存在未读消息的聊天室ID列表
func (h *ChatHandler) GetUnreadRooms(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)

	ids, err := h.service.GetUnreadRoomIDs(contextOf(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	response.Success(c, gin.H{"room_ids": ids})
}

// GetRecipients 查询学生的任课教师（候选收件人）
func (h *ChatHandler) GetRecipients(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)
	studentID := c.Param("student_id")
	if studentID == "" {
		response.BadRequest(c, "student_id is required")
		return
	}

	teachers, err := h.service.RecipientsForStudent(userID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]*response.RecipientResponse, 0, len(teachers))
	for _, t := range teachers {
		out = append(out, &response.RecipientResponse{
			UserID:   t.ID,
			Username: t.Username,
			Nickname: t.Nickname,
		})
	}
	response.Success(c, out)
}

// GetMyStudents 家长查询自己监护的学生
func (h *ChatHandler) GetMyStudents(c *gin.Context) {
	userID := jwt.GetUserIDUint(c)

	students, err := h.service.MyStudents(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]*response.StudentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, &response.StudentResponse{
			StudentID: s.ID,
			FullName:  s.FullName,
			ClassName: s.ClassName,
		})
	}
	response.Success(c, out)
}
