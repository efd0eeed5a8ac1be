/**
 * 接口层:大模型对话接口
 * @author: sun977
 * @date: 2026.03.18
 * @description: 大模型对话接口处理器
 * @func:
 * 	1.Chat 发起大模型对话(SSE)
 * 	2.Stop 停止指定会话的流
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

// SparkChatHandler 大模型对话接口处理器
type SparkChatHandler struct {
	sparkService *chatsvc.SparkChatService
}

// NewSparkChatHandler 创建大模型对话处理器实例
func NewSparkChatHandler(sparkService *chatsvc.SparkChatService) *SparkChatHandler {
	return &SparkChatHandler{
		sparkService: sparkService,
	}
}

// Chat 发起大模型对话
// POST /api/v1/chat/spark
// 上游为WebSocket流，下游统一转成SSE事件流
func (h *SparkChatHandler) Chat(c *gin.Context) {
	var req model.SparkChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	uid := middleware.GetUID(c)
	sid, em, err := h.sparkService.StreamChat(c.Request.Context(), uid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	streamToClient(c, sid, em)
}

// Stop 停止指定会话的流
// POST /api/v1/chat/spark/stop/:sid
func (h *SparkChatHandler) Stop(c *gin.Context) {
	sid := c.Param("sid")
	if sid == "" {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, "sid is required")
		return
	}

	h.sparkService.StopStream(c.Request.Context(), middleware.GetUID(c), sid)
	response.Success(c, nil)
}
