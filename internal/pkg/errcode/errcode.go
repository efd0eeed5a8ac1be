/**
 * 工具类:业务错误码
 * @author: sun977
 * @date: 2026.03.10
 * @description: 带错误码的业务错误类型，handler层据此生成统一响应
 * @func:
 * 	1.定义业务错误码
 * 	2.包装底层错误
 */
package errcode

import (
	"errors"
	"fmt"
)

// 业务错误码定义 [0表示成功，非0表示各类失败]
const (
	CodeSuccess          = 0
	CodeInternalError    = 10000 // 内部错误
	CodeInvalidParam     = 10001 // 参数错误
	CodeUnauthorized     = 10002 // 未认证
	CodeForbidden        = 10003 // 无权限
	CodeNotFound         = 10004 // 资源不存在
	CodeTooManyRequests  = 10005 // 请求过于频繁
	CodeConcurrentAccess = 10006 // 并发冲突(获取锁失败)

	CodeSessionDuplicate = 20001 // 会话已存在
	CodeSessionNotFound  = 20002 // 会话不存在
	CodeSessionFinished  = 20003 // 会话已结束
	CodeTaskCreateFailed = 20004 // 上游任务创建失败

	CodeUpstreamTransport = 21001 // 上游连接/传输失败
	CodeUpstreamProtocol  = 21002 // 上游响应格式异常
	CodeUpstreamTimeout   = 21003 // 上游响应超时

	CodeInviteNotFound     = 30001 // 邀请不存在
	CodeInviteHandled      = 30002 // 邀请已处理
	CodeInviteExpired      = 30003 // 邀请已过期
	CodeInviteNotYours     = 30004 // 不是被邀请人
	CodeSpaceNotFound      = 30005 // 空间不存在
	CodeSpaceMemberFull    = 30006 // 空间成员已满
	CodeSpaceAlreadyJoined = 30007 // 已经是空间成员
	CodeSpaceNotMember     = 30008 // 不是空间成员
	CodeSpaceNotOwner      = 30009 // 不是空间所有者
)

// 错误码对应的默认提示
var codeMessages = map[int]string{
	CodeSuccess:          "success",
	CodeInternalError:    "internal server error",
	CodeInvalidParam:     "invalid parameter",
	CodeUnauthorized:     "unauthorized",
	CodeForbidden:        "forbidden",
	CodeNotFound:         "resource not found",
	CodeTooManyRequests:  "too many requests",
	CodeConcurrentAccess: "operation in progress, please retry later",

	CodeSessionDuplicate: "session already registered",
	CodeSessionNotFound:  "session not found",
	CodeSessionFinished:  "session already finished",
	CodeTaskCreateFailed: "failed to create upstream task",

	CodeUpstreamTransport: "upstream service unavailable",
	CodeUpstreamProtocol:  "upstream response malformed",
	CodeUpstreamTimeout:   "Request timeout, please try again later",

	CodeInviteNotFound:     "invite record not found",
	CodeInviteHandled:      "invite already handled",
	CodeInviteExpired:      "invite has expired",
	CodeInviteNotYours:     "invite does not belong to current user",
	CodeSpaceNotFound:      "space not found",
	CodeSpaceMemberFull:    "space member limit reached",
	CodeSpaceAlreadyJoined: "already a member of the space",
	CodeSpaceNotMember:     "not a member of the space",
	CodeSpaceNotOwner:      "not the owner of the space",
}

// BizError 业务错误
type BizError struct {
	Code    int    // 业务错误码
	Message string // 面向调用方的提示
	Err     error  // 底层错误(可为空)
}

// Error 实现error接口
func (e *BizError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is/As穿透
func (e *BizError) Unwrap() error {
	return e.Err
}

// New 创建业务错误，message为空时使用错误码默认提示
func New(code int, message string) *BizError {
	if message == "" {
		message = MessageOf(code)
	}
	return &BizError{Code: code, Message: message}
}

// Wrap 包装底层错误为业务错误
func Wrap(code int, err error) *BizError {
	return &BizError{Code: code, Message: MessageOf(code), Err: err}
}

// Wrapf 包装底层错误并自定义提示
func Wrapf(code int, err error, format string, args ...interface{}) *BizError {
	return &BizError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// MessageOf 获取错误码默认提示
func MessageOf(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return "unknown error"
}

// CodeOf 从错误中提取业务错误码，非业务错误返回内部错误码
func CodeOf(err error) int {
	if err == nil {
		return CodeSuccess
	}
	var bizErr *BizError
	if errors.As(err, &bizErr) {
		return bizErr.Code
	}
	return CodeInternalError
}

// AsBizError 尝试将错误转换为业务错误
func AsBizError(err error) (*BizError, bool) {
	var bizErr *BizError
	if errors.As(err, &bizErr) {
		return bizErr, true
	}
	return nil, false
}
