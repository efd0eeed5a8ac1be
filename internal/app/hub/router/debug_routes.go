/**
 * 路由:RPA调试会话路由
 * @author: sun977
 * @date: 2026.03.18
 * @description: RPA调试会话路由，创建后由轮询调度器异步推进，前端轮询状态接口
 * @func:
 */

package router

import (
	"github.com/gin-gonic/gin"
)

// setupDebugRoutes 设置RPA调试会话路由(需要JWT认证)
func (r *Router) setupDebugRoutes(v1 *gin.RouterGroup) {
	debug := v1.Group("/debug")
	debug.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		// 创建RPA调试会话
		debug.POST("/rpa/start", r.rpaDebugHandler.Start)
		// 查询调试会话状态
		debug.GET("/rpa/:sessionId", r.rpaDebugHandler.Status)
		// 取消调试会话
		debug.POST("/rpa/:sessionId/cancel", r.rpaDebugHandler.Cancel)
	}
}
