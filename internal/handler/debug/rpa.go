/**
 * 接口层:RPA调试会话接口
 * @author: sun977
 * @date: 2026.03.18
 * @description: RPA调试会话接口处理器，创建后由轮询调度器异步推进状态
 * @func:
 * 	1.Start 创建调试会话
 * 	2.Status 查询会话状态
 * 	3.Cancel 取消会话
 */
package debug

import (
	"astronhub/internal/app/hub/middleware"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/response"
	"astronhub/internal/service/relay"

	"github.com/gin-gonic/gin"
)

// RpaDebugHandler RPA调试会话接口处理器
type RpaDebugHandler struct {
	debugService *relay.DebugService
}

// NewRpaDebugHandler 创建RPA调试会话处理器实例
func NewRpaDebugHandler(debugService *relay.DebugService) *RpaDebugHandler {
	return &RpaDebugHandler{
		debugService: debugService,
	}
}

// Start 创建RPA调试会话
// POST /api/v1/debug/rpa/start
// 返回会话ID，之后轮询Status接口获取执行进度
func (h *RpaDebugHandler) Start(c *gin.Context) {
	var req model.RpaStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}
	req.APIToken = c.GetHeader("X-Rpa-Token")

	uid := middleware.GetUID(c)
	sessionID, err := h.debugService.StartSession(c.Request.Context(), uid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"session_id": sessionID})
}

// Status 查询调试会话状态
// GET /api/v1/debug/rpa/:sessionId
func (h *RpaDebugHandler) Status(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, "sessionId is required")
		return
	}

	view, err := h.debugService.GetSession(sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, view)
}

// Cancel 取消调试会话
// POST /api/v1/debug/rpa/:sessionId/cancel
func (h *RpaDebugHandler) Cancel(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, "sessionId is required")
		return
	}

	if err := h.debugService.CancelSession(middleware.GetUID(c), sessionID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
