/**
 * 工具类:统一响应
 * @author: sun977
 * @date: 2026.03.10
 * @description: HTTP统一响应封装 {code, message, data, timestamp}
 * @func:
 * 	1.成功响应
 * 	2.失败响应(业务错误码映射)
 */
package response

import (
	"errors"
	"net/http"

	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Envelope 统一响应结构 [所有HTTP接口共用]
type Envelope struct {
	Code      int         `json:"code"`      // 业务码，0为成功
	Message   string      `json:"message"`   // 提示信息
	Data      interface{} `json:"data"`      // 业务数据
	Timestamp string      `json:"timestamp"` // 响应时间
}

// newEnvelope 构建响应体
func newEnvelope(code int, message string, data interface{}) Envelope {
	return Envelope{
		Code:      code,
		Message:   message,
		Data:      data,
		Timestamp: logger.NowFormatted(),
	}
}

// Success 成功响应 [HTTP 200 + code 0]
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, newEnvelope(errcode.CodeSuccess, "success", data))
}

// SuccessWithMessage 成功响应并自定义提示
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, newEnvelope(errcode.CodeSuccess, message, data))
}

// Error 失败响应，业务错误按错误码返回，其余统一为内部错误
func Error(c *gin.Context, err error) {
	var bizErr *errcode.BizError
	if errors.As(err, &bizErr) {
		c.JSON(httpStatusOf(bizErr.Code), newEnvelope(bizErr.Code, bizErr.Message, nil))
		return
	}
	c.JSON(http.StatusInternalServerError,
		newEnvelope(errcode.CodeInternalError, errcode.MessageOf(errcode.CodeInternalError), nil))
}

// ErrorWithCode 按指定业务码返回失败响应
func ErrorWithCode(c *gin.Context, code int, message string) {
	if message == "" {
		message = errcode.MessageOf(code)
	}
	c.JSON(httpStatusOf(code), newEnvelope(code, message, nil))
}

// httpStatusOf 业务码到HTTP状态码的映射
func httpStatusOf(code int) int {
	switch code {
	case errcode.CodeSuccess:
		return http.StatusOK
	case errcode.CodeInvalidParam:
		return http.StatusBadRequest
	case errcode.CodeUnauthorized:
		return http.StatusUnauthorized
	case errcode.CodeForbidden, errcode.CodeInviteNotYours,
		errcode.CodeSpaceNotMember, errcode.CodeSpaceNotOwner:
		return http.StatusForbidden
	case errcode.CodeNotFound, errcode.CodeSessionNotFound,
		errcode.CodeInviteNotFound, errcode.CodeSpaceNotFound:
		return http.StatusNotFound
	case errcode.CodeTooManyRequests, errcode.CodeConcurrentAccess:
		return http.StatusTooManyRequests
	case errcode.CodeUpstreamTransport, errcode.CodeUpstreamTimeout:
		return http.StatusBadGateway
	default:
		// 其余业务失败保持HTTP 200，由code区分
		return http.StatusOK
	}
}
