/**
 * 中继服务层:轮询调度器
 * @author: sun977
 * @date: 2026.03.14
 * @description: 固定滴答的会话轮询调度器，按会话间隔派发轮询并维护会话状态机
 * @func:
 * 	1.Start/Stop 调度循环生命周期
 * 	2.每滴答扫描注册表，到期会话派发轮询(每会话一个goroutine)
 * @note:
 * 	- 在途保护:上一次轮询未返回时跳过本次派发
 * 	- 墙钟超时:超过最长运行时间的会话直接置为TIMEOUT，不再轮询
 * 	- 单会话panic被隔离，不影响调度循环和其他会话
 */
package relay

import (
	"context"
	"sync"
	"time"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/logger"

	"github.com/sirupsen/logrus"
)

// 轮询失败退避上限
const maxBackoffInterval = time.Minute

// PollScheduler 轮询调度器
type PollScheduler struct {
	registry *SessionRegistry
	poller   TaskPoller
	cfg      config.RelayConfig

	onTerminal func(Session) // 会话进入终态时的回调(可为空)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	pollWG  sync.WaitGroup
	running bool
}

// NewPollScheduler 创建轮询调度器
func NewPollScheduler(registry *SessionRegistry, poller TaskPoller, cfg config.RelayConfig) *PollScheduler {
	return &PollScheduler{
		registry: registry,
		poller:   poller,
		cfg:      cfg,
	}
}

// SetOnTerminal 设置终态回调，必须在Start之前调用
func (s *PollScheduler) SetOnTerminal(fn func(Session)) {
	s.onTerminal = fn
}

// Start 启动调度循环
func (s *PollScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(runCtx)

	logger.LogSystemEvent("relay", "scheduler_started", "poll scheduler started", logrus.InfoLevel,
		map[string]interface{}{
			"tick":         s.cfg.Tick.String(),
			"max_run_time": s.cfg.MaxRunTime.String(),
		})
}

// Stop 停止调度循环并等待在途轮询收尾
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.pollWG.Wait()

	logger.LogSystemEvent("relay", "scheduler_stopped", "poll scheduler stopped", logrus.InfoLevel, nil)
}

// loop 调度主循环
func (s *PollScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

// sweep 单次滴答:扫描快照，派发到期会话
func (s *PollScheduler) sweep(ctx context.Context, now time.Time) {
	for _, sess := range s.registry.All() {
		if sess.IsTerminal() {
			continue
		}

		// 墙钟超时检查先于轮询到期检查
		if now.Sub(sess.RegisteredAt) >= s.cfg.MaxRunTime {
			s.markTimeout(sess.ID)
			continue
		}

		if !s.isDue(sess, now) {
			continue
		}

		// TryBeginPoll在临界区内完成在途检查和lastPolledAt推进
		snapshot, ok := s.registry.TryBeginPoll(sess.ID, now)
		if !ok {
			continue
		}

		s.pollWG.Add(1)
		go s.pollOne(ctx, snapshot)
	}
}

// isDue 判断会话是否到达轮询时间点
// 从未轮询过的会话立即到期(注册即首轮)
func (s *PollScheduler) isDue(sess Session, now time.Time) bool {
	if sess.LastPolledAt.IsZero() {
		return true
	}
	interval := sess.NextPollInterval
	if interval <= 0 {
		interval = s.cfg.DefaultInterval
	}
	return now.Sub(sess.LastPolledAt) >= interval
}

// pollOne 执行单个会话的一次轮询
func (s *PollScheduler) pollOne(ctx context.Context, sess Session) {
	defer s.pollWG.Done()
	defer s.registry.EndPoll(sess.ID)
	defer func() {
		// 单会话panic隔离
		if r := recover(); r != nil {
			logger.LogSystemEvent("relay", "poll_panic", "poll goroutine panicked", logrus.ErrorLevel,
				map[string]interface{}{
					"session_id": sess.ID,
					"panic":      r,
				})
		}
	}()

	result, err := s.poller.Poll(ctx, sess)
	if err != nil {
		s.backoff(sess)
		logger.LogError(err, "", "", "", "service.relay.pollOne", "", map[string]interface{}{
			"operation":  "poll_upstream",
			"func_name":  "service.relay.pollOne",
			"session_id": sess.ID,
		})
		return
	}

	s.applyResult(sess.ID, result)
}

// backoff 轮询失败时拉大下次间隔，封顶退避上限
func (s *PollScheduler) backoff(sess Session) {
	_, err := s.registry.Update(sess.ID, func(cur *Session) {
		interval := cur.NextPollInterval
		if interval <= 0 {
			interval = s.cfg.DefaultInterval
		}
		interval *= 2
		if interval > maxBackoffInterval {
			interval = maxBackoffInterval
		}
		cur.NextPollInterval = interval
	})
	if err != nil && err != ErrSessionFinished && err != ErrSessionNotFound {
		logger.LogError(err, "", "", "", "service.relay.backoff", "", map[string]interface{}{
			"operation":  "poll_backoff",
			"func_name":  "service.relay.backoff",
			"session_id": sess.ID,
		})
	}
}

// applyResult 把轮询结果写回会话
// 终态吸收由注册表Update保证:并发场景下只有第一次终态写入生效
func (s *PollScheduler) applyResult(id string, result *model.PollResult) {
	updated, err := s.registry.Update(id, func(cur *Session) {
		cur.Status = result.Status
		if result.Result != "" {
			cur.Result = result.Result
		}
		if result.Message != "" {
			cur.Message = result.Message
		}
		// 上游建议的轮询间隔，低于下限时钳制
		if result.NextInterval > 0 {
			interval := time.Duration(result.NextInterval) * time.Second
			if interval < s.cfg.MinInterval {
				interval = s.cfg.MinInterval
			}
			cur.NextPollInterval = interval
		}
	})
	if err != nil {
		// 会话已被取消/移除，结果丢弃
		return
	}

	if updated.IsTerminal() {
		logger.LogBusinessOperation("relay_session_finished", "", "", "", "",
			"success", "session reached terminal status", map[string]interface{}{
				"session_id": updated.ID,
				"status":     string(updated.Status),
			})
		if s.onTerminal != nil {
			s.onTerminal(updated)
		}
	}
}

// markTimeout 墙钟超时，置为TIMEOUT终态
func (s *PollScheduler) markTimeout(id string) {
	updated, err := s.registry.Update(id, func(cur *Session) {
		cur.Status = model.SessionTimeout
		cur.Message = "task exceeded max run time"
	})
	if err != nil {
		return
	}

	logger.LogBusinessOperation("relay_session_timeout", "", "", "", "",
		"failed", "session exceeded max run time", map[string]interface{}{
			"session_id": id,
		})
	if s.onTerminal != nil {
		s.onTerminal(updated)
	}
}
