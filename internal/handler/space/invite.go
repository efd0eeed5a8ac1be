/**
 * 接口层:空间邀请接口
 * @author: sun977
 * @date: 2026.03.18
 * @description: 空间邀请接口处理器
 * @func:
 * 	1.Create 发起邀请
 * 	2.Accept 接受邀请
 * 	3.Refuse 拒绝邀请
 * 	4.List 查询我的邀请
 */
package space

import (
	"strconv"

	"astronhub/internal/app/hub/middleware"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/response"
	spacesvc "astronhub/internal/service/space"

	"github.com/gin-gonic/gin"
)

// InviteHandler 空间邀请接口处理器
type InviteHandler struct {
	inviteService *spacesvc.InviteService
}

// NewInviteHandler 创建空间邀请处理器实例
func NewInviteHandler(inviteService *spacesvc.InviteService) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
	}
}

// Create 发起空间邀请
// POST /api/v1/space/invite
func (h *InviteHandler) Create(c *gin.Context) {
	var req model.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	record, err := h.inviteService.CreateInvite(c.Request.Context(), middleware.GetUID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, record)
}

// Accept 接受空间邀请
// POST /api/v1/space/invite/accept
func (h *InviteHandler) Accept(c *gin.Context) {
	var req model.AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	if err := h.inviteService.AcceptInvite(c.Request.Context(), middleware.GetUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// Refuse 拒绝空间邀请
// POST /api/v1/space/invite/refuse
func (h *InviteHandler) Refuse(c *gin.Context) {
	var req model.RefuseInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	if err := h.inviteService.RefuseInvite(c.Request.Context(), middleware.GetUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// List 查询我收到的邀请
// GET /api/v1/space/invite?status=0
func (h *InviteHandler) List(c *gin.Context) {
	var status *model.InviteStatus
	if raw := c.Query("status"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.ErrorWithCode(c, errcode.CodeInvalidParam, "invalid status")
			return
		}
		s := model.InviteStatus(v)
		status = &s
	}

	records, err := h.inviteService.ListInvites(c.Request.Context(), middleware.GetUID(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, records)
}
