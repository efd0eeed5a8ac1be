/**
 * 接口层:工作流对话调试接口
 * @author: sun977
 * @date: 2026.03.18
 * @description: 工作流调试对话接口处理器
 * @func:
 * 	1.Chat 发起调试对话(SSE)
 * 	2.Resume 中断恢复续跑(SSE)
 * 	3.Stop 停止指定会话的流
 */
package chat

import (
	"astronhub/internal/app/hub/middleware"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/response"
	chatsvc "astronhub/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// WorkflowChatHandler 工作流对话调试接口处理器
type WorkflowChatHandler struct {
	workflowService *chatsvc.WorkflowChatService
}

// NewWorkflowChatHandler 创建工作流对话调试处理器实例
func NewWorkflowChatHandler(workflowService *chatsvc.WorkflowChatService) *WorkflowChatHandler {
	return &WorkflowChatHandler{
		workflowService: workflowService,
	}
}

// Chat 发起工作流调试对话
// POST /api/v1/chat/workflow
// 响应为SSE事件流，每条事件为StreamEvent，finished=true的事件是最后一条
func (h *WorkflowChatHandler) Chat(c *gin.Context) {
	var req model.WorkflowChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	uid := middleware.GetUID(c)
	sid, em, err := h.workflowService.StreamChat(c.Request.Context(), uid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	streamToClient(c, sid, em)
}

// Resume 恢复中断的工作流会话
// POST /api/v1/chat/workflow/resume
func (h *WorkflowChatHandler) Resume(c *gin.Context) {
	var req model.WorkflowResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	uid := middleware.GetUID(c)
	sid, em, err := h.workflowService.StreamResume(c.Request.Context(), uid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	streamToClient(c, sid, em)
}

// Stop 停止指定会话的流
// POST /api/v1/chat/workflow/stop/:sid
func (h *WorkflowChatHandler) Stop(c *gin.Context) {
	sid := c.Param("sid")
	if sid == "" {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, "sid is required")
		return
	}

	h.workflowService.StopStream(c.Request.Context(), middleware.GetUID(c), sid)
	response.Success(c, nil)
}
