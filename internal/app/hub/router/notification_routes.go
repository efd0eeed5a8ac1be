/**
 * 路由:站内通知路由
 * @author: sun977
 * @date: 2026.03.18
 * @description: 站内通知查询/已读/删除路由
 * @func:
 */

package router

import (
	"github.com/gin-gonic/gin"
)

// setupNotificationRoutes 设置站内通知路由(需要JWT认证)
func (r *Router) setupNotificationRoutes(v1 *gin.RouterGroup) {
	notification := v1.Group("/notification")
	notification.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		// 分页查询通知
		notification.GET("", r.notificationHandler.List)
		// 标记已读(ids为空表示全部标记)
		notification.POST("/read", r.notificationHandler.MarkRead)
		// 删除通知
		notification.POST("/delete", r.notificationHandler.Delete)
	}
}
