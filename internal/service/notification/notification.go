/**
 * 通知服务层:站内通知
 * @author: sun977
 * @date: 2026.03.17
 * @description: 站内通知的下发、查询、已读标记与删除
 * @func:
 * 	1.Notify 下发通知
 * 	2.List 分页查询
 * 	3.MarkRead 标记已读(notification:mark_read:{uid}锁保护，锁失败降级无锁执行)
 * 	4.Delete 删除通知
 */
package notification

import (
	"context"

	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/lock"
	"astronhub/internal/pkg/logger"
	"astronhub/internal/pkg/utils"
	notifrepo "astronhub/internal/repo/mysql/notification"
)

// Locker 分布式锁执行接口 [生产实现为lock.RedisLockManager]
type Locker interface {
	WithLockOptions(ctx context.Context, key string, opts lock.Options, fn func(ctx context.Context) error) error
}

// NotificationService 站内通知服务
type NotificationService struct {
	repo   notifrepo.NotificationRepository
	locker Locker
}

// NewNotificationService 创建站内通知服务
func NewNotificationService(repo notifrepo.NotificationRepository, locker Locker) *NotificationService {
	return &NotificationService{
		repo:   repo,
		locker: locker,
	}
}

// Notify 给指定用户下发通知
func (s *NotificationService) Notify(ctx context.Context, receiverID string, notifType model.NotificationType, title, body string) error {
	notification := &model.Notification{
		ReceiverID: receiverID,
		Type:       notifType,
		Title:      title,
		Body:       body,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	return nil
}

// List 分页查询用户通知
func (s *NotificationService) List(ctx context.Context, uid string, onlyUnread bool, page, pageSize int) ([]*model.Notification, int64, error) {
	notifications, total, err := s.repo.ListByReceiver(ctx, uid, onlyUnread, page, pageSize)
	if err != nil {
		return nil, 0, errcode.Wrap(errcode.CodeInternalError, err)
	}
	return notifications, total, nil
}

// MarkRead 标记通知已读，ids为空表示全部标记
// 已读标记是幂等操作，锁获取失败时降级为无锁执行
func (s *NotificationService) MarkRead(ctx context.Context, uid string, req *model.MarkReadRequest) (int64, error) {
	key, err := lock.BuildKey("notification", "mark_read", uid)
	if err != nil {
		return 0, errcode.Wrap(errcode.CodeInternalError, err)
	}

	var affected int64
	lockErr := s.locker.WithLockOptions(ctx, key, lock.Options{Strategy: lock.FailContinue},
		func(ctx context.Context) error {
			var markErr error
			if len(req.IDs) == 0 {
				affected, markErr = s.repo.MarkAllRead(ctx, uid)
			} else {
				affected, markErr = s.repo.MarkRead(ctx, uid, req.IDs)
			}
			return markErr
		})
	if lockErr != nil {
		return 0, errcode.Wrap(errcode.CodeInternalError, lockErr)
	}

	logger.LogBusinessOperation("notifications_marked_read", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "notifications marked read", map[string]interface{}{
			"affected": affected,
			"ids":      len(req.IDs),
		})

	return affected, nil
}

// Delete 删除用户通知
func (s *NotificationService) Delete(ctx context.Context, uid string, req *model.DeleteNotificationRequest) (int64, error) {
	affected, err := s.repo.Delete(ctx, uid, req.IDs)
	if err != nil {
		return 0, errcode.Wrap(errcode.CodeInternalError, err)
	}

	logger.LogBusinessOperation("notifications_deleted", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "notifications deleted", map[string]interface{}{
			"affected": affected,
		})

	return affected, nil
}
