/**
 * 接口层:提示词增强接口
 * @author: sun977
 * @date: 2026.03.18
 * @description: 提示词增强/AI生成接口处理器
 * @func:
 * 	1.Enhance 增强已有提示词(SSE)
 * 	2.AIGenerate AI生成提示词(SSE)
 * 	3.AICode AI生成代码(SSE)
 * 	4.Stop 停止生成流
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

// PromptHandler 提示词增强接口处理器
type PromptHandler struct {
	promptService *chatsvc.PromptService
}

// NewPromptHandler 创建提示词增强处理器实例
func NewPromptHandler(promptService *chatsvc.PromptService) *PromptHandler {
	return &PromptHandler{
		promptService: promptService,
	}
}

// Enhance 增强已有提示词
// POST /api/v1/prompt/enhance
func (h *PromptHandler) Enhance(c *gin.Context) {
	var req model.PromptEnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	uid := middleware.GetUID(c)
	sid, em, err := h.promptService.EnhancePrompt(c.Request.Context(), uid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	streamToClient(c, sid, em)
}

// AIGenerate AI生成提示词
// POST /api/v1/prompt/ai-generate
func (h *PromptHandler) AIGenerate(c *gin.Context) {
	var req model.PromptGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	uid := middleware.GetUID(c)
	sid, em, err := h.promptService.GeneratePrompt(c.Request.Context(), uid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	streamToClient(c, sid, em)
}

// AICode AI生成代码
// POST /api/v1/prompt/ai-code
func (h *PromptHandler) AICode(c *gin.Context) {
	var req model.PromptGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, err.Error())
		return
	}

	uid := middleware.GetUID(c)
	sid, em, err := h.promptService.GenerateCode(c.Request.Context(), uid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	streamToClient(c, sid, em)
}

// Stop 停止生成流
// POST /api/v1/prompt/stop/:sid
func (h *PromptHandler) Stop(c *gin.Context) {
	sid := c.Param("sid")
	if sid == "" {
		response.ErrorWithCode(c, errcode.CodeInvalidParam, "sid is required")
		return
	}

	h.promptService.StopStream(c.Request.Context(), middleware.GetUID(c), sid)
	response.Success(c, nil)
}
