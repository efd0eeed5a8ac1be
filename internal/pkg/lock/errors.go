package lock

import "fmt"

// ErrorType 锁错误类型
type ErrorType string

const (
	// TypeAcquireTimeout 等待窗口内未能获取到锁
	TypeAcquireTimeout ErrorType = "ACQUIRE_TIMEOUT"
	// TypeReleaseFailed 释放失败(锁过期或被他人持有)
	TypeReleaseFailed ErrorType = "RELEASE_FAILED"
	// TypeKeyParseFailed 锁键非法
	TypeKeyParseFailed ErrorType = "KEY_PARSE_FAILED"
	// TypeRedisConnectionError Redis连接故障
	TypeRedisConnectionError ErrorType = "REDIS_CONNECTION_ERROR"
	// TypeConfigError 锁参数配置非法
	TypeConfigError ErrorType = "CONFIG_ERROR"
	// TypeUnknown 未归类错误
	TypeUnknown ErrorType = "UNKNOWN_ERROR"
)

// LockError 分布式锁错误
type LockError struct {
	Key  string    // 业务锁键(不含前缀)
	Type ErrorType // 错误类型
	Err  error     // 底层错误(可为空)
}

// NewLockError 创建锁错误
func NewLockError(key string, errType ErrorType, err error) *LockError {
	return &LockError{Key: key, Type: errType, Err: err}
}

// Error 实现error接口
func (e *LockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lock %s [%s]: %v", e.Key, e.Type, e.Err)
	}
	return fmt.Sprintf("lock %s [%s]", e.Key, e.Type)
}

// Unwrap 支持errors.Is/As穿透
func (e *LockError) Unwrap() error {
	return e.Err
}

// IsLockError 判断错误是否为指定类型的锁错误
func IsLockError(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	lockErr, ok := err.(*LockError)
	return ok && lockErr.Type == errType
}
