/**
 * 路由:空间与邀请路由
 * @author: sun977
 * @date: 2026.03.18
 * @description: 空间管理/空间邀请/企业加入相关路由
 * @func:
 */

package router

import (
	"github.com/gin-gonic/gin"
)

// setupSpaceRoutes 设置空间与邀请路由(需要JWT认证)
func (r *Router) setupSpaceRoutes(v1 *gin.RouterGroup) {
	space := v1.Group("/space")
	space.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		// 创建空间
		space.POST("", r.spaceHandler.Create)
		// 转移空间所有权
		space.POST("/transfer", r.spaceHandler.Transfer)
		// 发起空间邀请
		space.POST("/invite", r.inviteHandler.Create)
		// 查询我收到的邀请
		space.GET("/invite", r.inviteHandler.List)
		// 接受空间邀请
		space.POST("/invite/accept", r.inviteHandler.Accept)
		// 拒绝空间邀请
		space.POST("/invite/refuse", r.inviteHandler.Refuse)
	}

	enterprise := v1.Group("/enterprise")
	enterprise.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		// 加入企业
		enterprise.POST("/join", r.spaceHandler.JoinEnterprise)
	}
}
