/**
 * 接口层:空间管理接口
 * @author: sun977
 * @date: 2026.03.18
 * @description: 空间管理接口处理器
 * @func:
 * 	1.Create 创建空间
 * 	2.Transfer 所有权转移
 * 	3.JoinEnterprise 加入企业
 */
package space

import (
	"astronhub/internal/app/hub/middleware"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/response"
	spacesvc "astronhub/internal/service/space"

	"github.com/gin-gonic/gin"
)

// SpaceHandler 空间管理接口处理器
type SpaceHandler struct {
	spaceService *spacesvc.SpaceService
}

// NewSpaceHandler 创建空间管理处理器实例
func NewSpaceHandler(spaceService *spacesvc.SpaceService) *SpaceHandler {
	return &SpaceHandler{
		spaceService: spaceService,
	}
}

// Create 创建空间
// POST /api/v1/space
func (h *SpaceHandler) Create(c *gin.Context) {
	var req model.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	uid := middleware.GetUID(c)
	sp, err := h.spaceService.CreateSpace(c.Request.Context(), uid, req.Name, req.Description, req.Type)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, sp)
}

// Transfer 转移空间所有权
// POST /api/v1/space/transfer
func (h *SpaceHandler) Transfer(c *gin.Context) {
	var req model.TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	if err := h.spaceService.TransferOwnership(c.Request.Context(), middleware.GetUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// JoinEnterprise 加入企业
// POST /api/v1/enterprise/join
func (h *SpaceHandler) JoinEnterprise(c *gin.Context) {
	var req model.JoinEnterpriseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	if err := h.spaceService.JoinEnterprise(c.Request.Context(), middleware.GetUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
