/**
 * 中间件:安全中间件
 * @author: sun977
 * @date: 2026.03.18
 * @description: 定义安全中间件
 * @func:
 *   - GinCORSMiddleware CORS跨域资源共享中间件,按配置设置CORS头部
 *   - GinSecurityHeadersMiddleware 安全头部中间件,设置必要的安全头部信息
 *   - GinRequestIDMiddleware 请求ID中间件,为每个请求补充唯一的请求ID
 */
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GinCORSMiddleware CORS跨域资源共享中间件
// 按安全配置设置CORS头部，处理预检请求
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	cors := &m.securityConfig.CORS

	return func(c *gin.Context) {
		if !cors.Enabled {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		if cors.AllowAllOrigins {
			if origin != "" {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				c.Header("Access-Control-Allow-Origin", "*")
			}
		} else if originAllowed(origin, cors.AllowOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		if len(cors.AllowMethods) > 0 {
			c.Header("Access-Control-Allow-Methods", strings.Join(cors.AllowMethods, ", "))
		}
		if len(cors.AllowHeaders) > 0 {
			c.Header("Access-Control-Allow-Headers", strings.Join(cors.AllowHeaders, ", "))
		}
		if len(cors.ExposeHeaders) > 0 {
			c.Header("Access-Control-Expose-Headers", strings.Join(cors.ExposeHeaders, ", "))
		}
		if cors.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if cors.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", fmt.Sprintf("%d", int(cors.MaxAge.Seconds())))
		}

		// 处理预检请求（OPTIONS方法）
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// originAllowed 检查来源是否在允许列表中
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == origin || a == "*" {
			return true
		}
	}
	return false
}

// GinSecurityHeadersMiddleware 安全头部中间件
// 设置必要的安全头部信息，防止常见的安全漏洞
func (m *MiddlewareManager) GinSecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// GinRequestIDMiddleware 请求ID中间件
// 客户端未携带X-Request-ID时生成一个，写回响应头方便日志跟踪
func (m *MiddlewareManager) GinRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set("X-Request-ID", requestID)
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}
