/**
 * 空间服务层:过期邀请清理
 * @author: sun977
 * @date: 2026.03.17
 * @description: 定时把超期未处理的邀请置为过期状态
 * @note: 多实例部署时通过分布式锁选主，抢不到锁的实例本轮跳过
 */
package space

import (
	"context"
	"time"

	"astronhub/internal/pkg/lock"
	"astronhub/internal/pkg/logger"
	spacerepo "astronhub/internal/repo/mysql/space"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// 单轮清理的执行超时
const sweepTimeout = 30 * time.Second

// InviteSweeper 过期邀请清理器
type InviteSweeper struct {
	inviteRepo spacerepo.InviteRepository
	locker     Locker
	spec       string
	cron       *cron.Cron
}

// NewInviteSweeper 创建过期邀请清理器
func NewInviteSweeper(inviteRepo spacerepo.InviteRepository, locker Locker, spec string) *InviteSweeper {
	return &InviteSweeper{
		inviteRepo: inviteRepo,
		locker:     locker,
		spec:       spec,
		cron:       cron.New(),
	}
}

// Start 启动定时清理
func (s *InviteSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweepOnce); err != nil {
		return err
	}
	s.cron.Start()

	logger.LogSystemEvent("space", "invite_sweeper_started",
		"invite expiry sweeper started", logrus.InfoLevel,
		map[string]interface{}{"spec": s.spec})
	return nil
}

// Stop 停止定时清理，等待在跑的清理完成
func (s *InviteSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// sweepOnce 执行一轮过期清理
// 锁获取失败时跳过本轮，由持锁实例负责清理
func (s *InviteSweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	err := s.locker.WithLockOptions(ctx, "invite-expire-sweep", lock.Options{Strategy: lock.FailSkip},
		func(ctx context.Context) error {
			affected, err := s.inviteRepo.ExpireOverdue(ctx, time.Now())
			if err != nil {
				return err
			}
			if affected > 0 {
				logger.LogSystemEvent("space", "invites_expired",
					"overdue invites marked expired", logrus.InfoLevel,
					map[string]interface{}{"count": affected})
			}
			return nil
		})
	if err != nil {
		logger.LogError(err, "", "", "", "service.space.sweepOnce", "", map[string]interface{}{
			"operation": "expire_overdue_invites",
			"func_name": "service.space.sweepOnce",
		})
	}
}
