/**
 * 接口层:站内通知接口
 * @author: sun977
 * @date: 2026.03.18
 * @description: 站内通知接口处理器
 * @func:
 * 	1.List 分页查询通知
 * 	2.MarkRead 标记已读
 * 	3.Delete 删除通知
 */
package notification

import (
	"strconv"

	"astronhub/internal/app/hub/middleware"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/response"
	notifsvc "astronhub/internal/service/notification"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 站内通知接口处理器
type NotificationHandler struct {
	notificationService *notifsvc.NotificationService
}

// NewNotificationHandler 创建站内通知处理器实例
func NewNotificationHandler(notificationService *notifsvc.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List 分页查询通知
// GET /api/v1/notification?unread=true&page=1&page_size=20
func (h *NotificationHandler) List(c *gin.Context) {
	onlyUnread := c.Query("unread") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	notifications, total, err := h.notificationService.List(
		c.Request.Context(), middleware.GetUID(c), onlyUnread, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":  notifications,
		"total": total,
	})
}

// MarkRead 标记通知已读，ids为空表示全部标记
// POST /api/v1/notification/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req model.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	affected, err := h.notificationService.MarkRead(c.Request.Context(), middleware.GetUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"affected": affected})
}

// Delete 删除通知
// POST /api/v1/notification/delete
func (h *NotificationHandler) Delete(c *gin.Context) {
	var req model.DeleteNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	affected, err := h.notificationService.Delete(c.Request.Context(), middleware.GetUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"affected": affected})
}
