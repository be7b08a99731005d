package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/beacon-feed/pkg/response"
)

// ListNotifications 查询通知列表
// @Summary 查询通知列表
// @Tags 通知
// @Param user_id path string true "接收者ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response
// @Router /api/v1/users/{user_id}/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	userID := c.Param("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	list, err := h.notifier.List(c.Request.Context(), userID, (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// MarkNotificationRead 标记单条通知已读
// @Summary 标记通知已读
// @Tags 通知
// @Param user_id path string true "接收者ID"
// @Param notification_id path string true "通知ID"
// @Success 200 {object} response.Response
// @Router /api/v1/users/{user_id}/notifications/{notification_id}/read [post]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	err := h.notifier.MarkRead(c.Request.Context(), c.Param("user_id"), c.Param("notification_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// UnreadCount 查询未读数
// @Summary 查询未读通知数
// @Tags 通知
// @Param user_id path string true "接收者ID"
// @Success 200 {object} response.Response
// @Router /api/v1/users/{user_id}/notifications/unread-count [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	cnt, err := h.notifier.CountUnread(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"count": cnt})
}
