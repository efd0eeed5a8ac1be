/**
 * 通知仓库层:站内通知数据访问
 * @author: sun977
 * @date: 2026.03.13
 * @description: 站内通知数据访问层，专注于数据操作，不包含业务逻辑
 * @func: 单纯数据访问
 */
package notification

import (
	"context"
	"time"

	"gorm.io/gorm"

	"astronhub/internal/model"
	"astronhub/internal/pkg/logger"
)

// NotificationRepository 通知仓库接口定义
type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	ListByReceiver(ctx context.Context, receiverID string, onlyUnread bool, page, pageSize int) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, receiverID string, ids []uint) (int64, error)
	MarkAllRead(ctx context.Context, receiverID string) (int64, error)
	Delete(ctx context.Context, receiverID string, ids []uint) (int64, error)
}

// notificationRepository 通知仓库实现
type notificationRepository struct {
	db *gorm.DB // 数据库连接
}

// NewNotificationRepository 创建通知仓库实例
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{
		db: db,
	}
}

// Create 创建通知
func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	notification.CreatedAt = time.Now()

	result := r.db.WithContext(ctx).Create(notification)
	if result.Error != nil {
		logger.LogError(result.Error, "", notification.ReceiverID, "", "repo.notification.Create", "", map[string]interface{}{
			"operation": "create_notification",
			"func_name": "repo.notification.Create",
			"type":      notification.Type,
		})
		return result.Error
	}

	return nil
}

// ListByReceiver 分页查询用户通知
func (r *notificationRepository) ListByReceiver(ctx context.Context, receiverID string, onlyUnread bool, page, pageSize int) ([]*model.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&model.Notification{}).Where("receiver_id = ?", receiverID)
	if onlyUnread {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.LogError(err, "", receiverID, "", "repo.notification.ListByReceiver", "", map[string]interface{}{
			"operation": "count_notifications",
			"func_name": "repo.notification.ListByReceiver",
		})
		return nil, 0, err
	}

	var notifications []*model.Notification
	result := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notifications)
	if result.Error != nil {
		logger.LogError(result.Error, "", receiverID, "", "repo.notification.ListByReceiver", "", map[string]interface{}{
			"operation": "list_notifications",
			"func_name": "repo.notification.ListByReceiver",
		})
		return nil, 0, result.Error
	}

	return notifications, total, nil
}

// MarkRead 标记指定通知为已读，仅处理属于该用户的未读记录
func (r *notificationRepository) MarkRead(ctx context.Context, receiverID string, ids []uint) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("receiver_id = ? AND id IN ? AND is_read = ?", receiverID, ids, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	if result.Error != nil {
		logger.LogError(result.Error, "", receiverID, "", "repo.notification.MarkRead", "", map[string]interface{}{
			"operation": "mark_notifications_read",
			"func_name": "repo.notification.MarkRead",
			"count":     len(ids),
		})
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// MarkAllRead 标记用户全部通知为已读
func (r *notificationRepository) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	if result.Error != nil {
		logger.LogError(result.Error, "", receiverID, "", "repo.notification.MarkAllRead", "", map[string]interface{}{
			"operation": "mark_all_notifications_read",
			"func_name": "repo.notification.MarkAllRead",
		})
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// Delete 删除用户通知
func (r *notificationRepository) Delete(ctx context.Context, receiverID string, ids []uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("receiver_id = ? AND id IN ?", receiverID, ids).
		Delete(&model.Notification{})
	if result.Error != nil {
		logger.LogError(result.Error, "", receiverID, "", "repo.notification.Delete", "", map[string]interface{}{
			"operation": "delete_notifications",
			"func_name": "repo.notification.Delete",
			"count":     len(ids),
		})
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
