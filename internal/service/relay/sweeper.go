/**
 * 中继服务层:终态会话清理
 * @author: sun977
 * @date: 2026.03.15
 * @description: 定时清理超过保留时间的终态会话，防止注册表无界增长
 * @func: Start/Stop 清理任务生命周期
 */
package relay

import (
	"time"

	"astronhub/internal/config"
	"astronhub/internal/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TerminalSweeper 终态会话清理器
type TerminalSweeper struct {
	registry *SessionRegistry
	cfg      config.RelayConfig
	cron     *cron.Cron
}

// NewTerminalSweeper 创建终态会话清理器
func NewTerminalSweeper(registry *SessionRegistry, cfg config.RelayConfig) *TerminalSweeper {
	return &TerminalSweeper{
		registry: registry,
		cfg:      cfg,
		cron:     cron.New(),
	}
}

// Start 注册并启动清理任务
func (s *TerminalSweeper) Start() error {
	_, err := s.cron.AddFunc(s.cfg.SweepSpec, s.sweepOnce)
	if err != nil {
		return err
	}
	s.cron.Start()

	logger.LogSystemEvent("relay", "sweeper_started", "terminal session sweeper started", logrus.InfoLevel,
		map[string]interface{}{
			"spec":         s.cfg.SweepSpec,
			"terminal_ttl": s.cfg.TerminalTTL.String(),
		})
	return nil
}

// Stop 停止清理任务，等待在途执行完成
func (s *TerminalSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweepOnce 单次清理:移除终态停留超过TTL的会话
func (s *TerminalSweeper) sweepOnce() {
	now := time.Now()
	removed := 0

	for _, sess := range s.registry.All() {
		if !sess.IsTerminal() {
			continue
		}
		finishedAt := sess.FinishedAt
		if finishedAt.IsZero() {
			finishedAt = sess.RegisteredAt
		}
		if now.Sub(finishedAt) >= s.cfg.TerminalTTL {
			s.registry.Remove(sess.ID)
			removed++
		}
	}

	if removed > 0 {
		logger.LogSystemEvent("relay", "terminal_sessions_swept", "expired terminal sessions removed",
			logrus.InfoLevel, map[string]interface{}{
				"removed":   removed,
				"remaining": s.registry.Count(),
			})
	}
}
