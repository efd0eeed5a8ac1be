/**
 * 中继仓库层:流式停止信号数据访问
 * @author: sun977
 * @date: 2026.03.13
 * @description: 流式会话停止信号(Redis存储,适合多实例部署:任意实例下发的停止信号对持有连接的实例可见)
 * @func: 单纯数据访问,不应该包含业务逻辑
 */
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 停止信号的保留时间 [略大于上游单帧读取周期，信号消费后自然过期]
const defaultStopSignalTTL = 16 * time.Second

// StreamSignalRepository 流式停止信号存储库
type StreamSignalRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStreamSignalRepository 创建停止信号存储库实例
func NewStreamSignalRepository(client *redis.Client) *StreamSignalRepository {
	return &StreamSignalRepository{
		client: client,
		ttl:    defaultStopSignalTTL,
	}
}

// getStopKey 生成停止信号键[KEY:relay:stop:{sid}]
func (r *StreamSignalRepository) getStopKey(sid string) string {
	return fmt.Sprintf("relay:stop:%s", sid)
}

// SetStopSignal 下发停止信号
func (r *StreamSignalRepository) SetStopSignal(ctx context.Context, sid string) error {
	err := r.client.Set(ctx, r.getStopKey(sid), "1", r.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set stop signal: %w", err)
	}
	return nil
}

// HasStopSignal 检查会话是否被要求停止
func (r *StreamSignalRepository) HasStopSignal(ctx context.Context, sid string) (bool, error) {
	n, err := r.client.Exists(ctx, r.getStopKey(sid)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check stop signal: %w", err)
	}
	return n > 0, nil
}

// ClearStopSignal 清除停止信号
func (r *StreamSignalRepository) ClearStopSignal(ctx context.Context, sid string) error {
	err := r.client.Del(ctx, r.getStopKey(sid)).Err()
	if err != nil {
		return fmt.Errorf("failed to clear stop signal: %w", err)
	}
	return nil
}
