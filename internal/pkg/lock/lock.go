/**
 * 工具类:Redis分布式锁
 * @author: sun977
 * @date: 2026.03.12
 * @description: 基于Redis SET NX的分布式锁，支持等待重试、租约TTL和作用域释放
 * @func:
 * 	1.TryLock/Unlock 底层锁原语
 * 	2.WithLock 闭包执行(保证释放)
 * 	3.失败策略(报错/继续执行/跳过执行)
 */
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"astronhub/internal/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// releaseScript 比对持有者令牌后删除，避免释放他人持有的锁
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// FailStrategy 获取锁失败时的处理策略
type FailStrategy int

const (
	// FailException 获取失败返回错误(默认)
	FailException FailStrategy = iota
	// FailContinue 获取失败时跳过加锁直接执行业务
	FailContinue
	// FailSkip 获取失败时跳过业务执行，直接返回nil
	FailSkip
)

// Options 单次加锁参数，零值字段回落到管理器默认值
type Options struct {
	WaitTime  time.Duration // 获取锁最长等待时间
	LeaseTime time.Duration // 锁持有TTL
	Strategy  FailStrategy  // 获取失败策略
}

// RedisLockManager Redis分布式锁管理器
type RedisLockManager struct {
	client        *redis.Client
	prefix        string        // 锁键统一前缀
	waitTime      time.Duration // 默认获取等待时间
	leaseTime     time.Duration // 默认持有TTL
	retryInterval time.Duration // 获取重试间隔
}

// NewRedisLockManager 创建分布式锁管理器
func NewRedisLockManager(client *redis.Client, prefix string, waitTime, leaseTime, retryInterval time.Duration) (*RedisLockManager, error) {
	if client == nil {
		return nil, NewLockError("", TypeConfigError, errors.New("redis client cannot be nil"))
	}
	if leaseTime <= 0 {
		return nil, NewLockError("", TypeConfigError, errors.New("lease time must be positive"))
	}
	if retryInterval <= 0 {
		retryInterval = 50 * time.Millisecond
	}
	if prefix == "" {
		prefix = "astronhub:lock"
	}
	return &RedisLockManager{
		client:        client,
		prefix:        prefix,
		waitTime:      waitTime,
		leaseTime:     leaseTime,
		retryInterval: retryInterval,
	}, nil
}

// BuildKey 拼接业务锁键，段为空时返回KEY_PARSE_FAILED
func BuildKey(parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", NewLockError("", TypeKeyParseFailed, errors.New("lock key cannot be empty"))
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return "", NewLockError(strings.Join(parts, ":"), TypeKeyParseFailed,
				errors.New("lock key segment cannot be blank"))
		}
		if strings.ContainsAny(p, " \t\n") {
			return "", NewLockError(strings.Join(parts, ":"), TypeKeyParseFailed,
				errors.New("lock key segment cannot contain whitespace"))
		}
	}
	return strings.Join(parts, ":"), nil
}

// fullKey 加上管理器前缀的完整Redis键
func (m *RedisLockManager) fullKey(key string) string {
	return m.prefix + ":" + key
}

// TryLock 尝试获取一次锁，成功返回持有者令牌
func (m *RedisLockManager) TryLock(ctx context.Context, key string, leaseTime time.Duration) (string, bool, error) {
	if leaseTime <= 0 {
		leaseTime = m.leaseTime
	}

	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, m.fullKey(key), token, leaseTime).Result()
	if err != nil {
		return "", false, NewLockError(key, classifyRedisError(err), err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock 释放锁，仅当令牌匹配时删除
func (m *RedisLockManager) Unlock(ctx context.Context, key, token string) error {
	res, err := m.client.Eval(ctx, releaseScript, []string{m.fullKey(key)}, token).Result()
	if err != nil {
		return NewLockError(key, classifyRedisError(err), err)
	}
	if n, ok := res.(int64); !ok || n == 0 {
		// 锁已过期或被他人持有
		return NewLockError(key, TypeReleaseFailed, errors.New("lock not held by this owner"))
	}
	return nil
}

// acquire 在等待窗口内循环尝试获取锁
func (m *RedisLockManager) acquire(ctx context.Context, key string, waitTime, leaseTime time.Duration) (string, error) {
	deadline := time.Now().Add(waitTime)

	for {
		token, ok, err := m.TryLock(ctx, key, leaseTime)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}

		if time.Now().After(deadline) {
			return "", NewLockError(key, TypeAcquireTimeout, nil)
		}

		select {
		case <-ctx.Done():
			return "", NewLockError(key, TypeAcquireTimeout, ctx.Err())
		case <-time.After(m.retryInterval):
		}
	}
}

// WithLock 在锁保护下执行fn，使用默认等待时间/TTL和报错策略
func (m *RedisLockManager) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return m.WithLockOptions(ctx, key, Options{}, fn)
}

// WithLockOptions 在锁保护下执行fn
// 业务执行结果不受释放失败影响：释放失败只记录日志不覆盖fn的返回值
func (m *RedisLockManager) WithLockOptions(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return NewLockError(key, TypeKeyParseFailed, errors.New("lock key cannot be blank"))
	}

	waitTime := opts.WaitTime
	if waitTime <= 0 {
		waitTime = m.waitTime
	}
	leaseTime := opts.LeaseTime
	if leaseTime <= 0 {
		leaseTime = m.leaseTime
	}

	token, err := m.acquire(ctx, key, waitTime, leaseTime)
	if err != nil {
		switch opts.Strategy {
		case FailContinue:
			// 降级为无锁执行
			logger.LogSystemEvent("lock", "acquire_failed_continue",
				"lock acquisition failed, executing without lock", logrus.WarnLevel,
				map[string]interface{}{"key": key, "error": err.Error()})
			return fn(ctx)
		case FailSkip:
			logger.LogSystemEvent("lock", "acquire_failed_skip",
				"lock acquisition failed, skipping execution", logrus.WarnLevel,
				map[string]interface{}{"key": key, "error": err.Error()})
			return nil
		default:
			return err
		}
	}

	defer func() {
		// 释放必须脱离请求上下文，请求取消时锁也要归还
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if unlockErr := m.Unlock(releaseCtx, key, token); unlockErr != nil {
			logger.LogError(unlockErr, "", "", "", "", "", map[string]interface{}{
				"operation": "lock_release",
				"key":       key,
			})
		}
	}()

	return fn(ctx)
}

// classifyRedisError 将Redis错误归类到锁错误类型
func classifyRedisError(err error) ErrorType {
	if err == nil {
		return TypeUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TypeAcquireTimeout
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "no route to host") ||
		errors.Is(err, redis.ErrClosed) {
		return TypeRedisConnectionError
	}
	return TypeUnknown
}
