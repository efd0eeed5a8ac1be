/**
 * 中间件:认证相关中间件
 * @author: sun977
 * @date: 2026.03.18
 * @description: 定义认证相关中间件
 * @func:
 *   - GinJWTAuthMiddleware: Gin JWT认证中间件，验证通过后把uid等信息写入Gin上下文
 *   - GetUID: 从Gin上下文取当前用户ID
 */
package middleware

import (
	"net/http"

	"astronhub/internal/pkg/auth"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/logger"
	"astronhub/internal/pkg/response"
	"astronhub/internal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// GinJWTAuthMiddleware Gin JWT认证中间件
// 验证请求头中的JWT令牌，并将用户信息存储到Gin上下文中
// 使用方式: router.Use(middlewareManager.GinJWTAuthMiddleware())
func (m *MiddlewareManager) GinJWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过无需认证的路径
		if m.shouldSkipAuth(c.Request.URL.Path) {
			c.Next()
			return
		}

		clientIP := utils.GetClientIP(c)
		requestID := c.GetHeader("X-Request-ID")

		token := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			c.JSON(http.StatusUnauthorized, response.Envelope{
				Code:      errcode.CodeUnauthorized,
				Message:   "missing or invalid authorization header",
				Timestamp: logger.NowFormatted(),
			})
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(token)
		if err != nil {
			logger.LogError(err, requestID, "", clientIP, c.Request.URL.Path, c.Request.Method, map[string]interface{}{
				"operation": "token_validation",
				"func_name": "middleware.auth.GinJWTAuthMiddleware",
			})
			c.JSON(http.StatusUnauthorized, response.Envelope{
				Code:      errcode.CodeUnauthorized,
				Message:   "invalid or expired token",
				Timestamp: logger.NowFormatted(),
			})
			c.Abort()
			return
		}

		// 用户信息写入Gin上下文，供handler层取用
		c.Set("uid", claims.UID)
		c.Set("username", claims.Username)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// shouldSkipAuth 检查路径是否跳过认证
func (m *MiddlewareManager) shouldSkipAuth(path string) bool {
	for _, skipPath := range m.securityConfig.Auth.SkipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}

// GetUID 从Gin上下文取当前用户ID，未认证时返回空串
func GetUID(c *gin.Context) string {
	if v, ok := c.Get("uid"); ok {
		if uid, ok := v.(string); ok {
			return uid
		}
	}
	return ""
}
