/**
 * 中间件:日志相关中间件
 * @author: sun977
 * @date: 2026.03.18
 * @description: 定义日志中间件
 * @func:
 *   - GinLoggingMiddleware Gin日志中间件[同时把客户端IP存储到Gin上下文和标准上下文,供后续使用]
 */
package middleware

import (
	"context"
	"time"

	"astronhub/internal/pkg/logger"
	"astronhub/internal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GinLoggingMiddleware Gin日志中间件
// 记录所有HTTP请求的访问日志，并把客户端IP下沉到标准上下文
// 使用方式: router.Use(middlewareManager.GinLoggingMiddleware())
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	logging := &m.securityConfig.Logging

	return func(c *gin.Context) {
		if !logging.EnableRequestLog || shouldSkipPath(c.Request.URL.Path, logging.SkipPaths) {
			c.Next()
			return
		}

		start := time.Now()
		clientIP := utils.GetClientIP(c)
		requestID := c.GetHeader("X-Request-ID")

		// 存储到Gin上下文
		c.Set("client_ip", clientIP)

		// 存储到标准上下文，service层用标准上下文取IP
		ctx := context.WithValue(c.Request.Context(), utils.ContextKeyClientIP, clientIP)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start)
		logger.LogAccessRequest(c, start, requestID, GetUID(c))

		// 慢请求告警
		if logging.SlowRequestThreshold > 0 && duration > logging.SlowRequestThreshold {
			logger.LogSystemEvent("http", "slow_request",
				"request exceeded slow threshold", logrus.WarnLevel,
				map[string]interface{}{
					"path":        c.Request.URL.Path,
					"method":      c.Request.Method,
					"duration_ms": duration.Milliseconds(),
					"request_id":  requestID,
				})
		}
	}
}

// shouldSkipPath 检查路径是否在跳过列表中
func shouldSkipPath(path string, skipPaths []string) bool {
	for _, p := range skipPaths {
		if path == p {
			return true
		}
	}
	return false
}
