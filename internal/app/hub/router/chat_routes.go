/**
 * 路由:对话与提示词路由
 * @author: sun977
 * @date: 2026.03.18
 * @description: 工作流对话/大模型对话/提示词增强相关路由，均为SSE下行
 * @func:
 */

package router

import (
	"github.com/gin-gonic/gin"
)

// setupChatRoutes 设置对话与提示词路由(需要JWT认证)
func (r *Router) setupChatRoutes(v1 *gin.RouterGroup) {
	// 工作流对话调试
	chat := v1.Group("/chat")
	chat.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		// 发起工作流对话(SSE下行)
		chat.POST("/workflow", r.workflowChatHandler.Chat)
		// 恢复被中断节点的工作流对话(SSE下行)
		chat.POST("/workflow/resume", r.workflowChatHandler.Resume)
		// 停止工作流对话流
		chat.POST("/workflow/stop/:sid", r.workflowChatHandler.Stop)
		// 发起大模型对话(上游WebSocket,下行SSE)
		chat.POST("/spark", r.sparkChatHandler.Chat)
		// 停止大模型对话流
		chat.POST("/spark/stop/:sid", r.sparkChatHandler.Stop)
	}

	// 提示词增强
	prompt := v1.Group("/prompt")
	prompt.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		// 增强已有提示词(SSE下行)
		prompt.POST("/enhance", r.promptHandler.Enhance)
		// AI生成提示词(SSE下行)
		prompt.POST("/ai-generate", r.promptHandler.AIGenerate)
		// AI生成代码(SSE下行)
		prompt.POST("/ai-code", r.promptHandler.AICode)
		// 停止生成流
		prompt.POST("/stop/:sid", r.promptHandler.Stop)
	}
}
