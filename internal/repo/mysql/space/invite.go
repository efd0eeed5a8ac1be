/**
 * 空间仓库层:邀请记录数据访问
 * @author: sun977
 * @date: 2026.03.13
 * @description: 空间邀请记录数据访问层，专注于数据操作，不包含业务逻辑
 * @func: 单纯数据访问
 */
package space

import (
	"context"
	"time"

	"gorm.io/gorm"

	"astronhub/internal/model"
	"astronhub/internal/pkg/logger"
)

// InviteRepository 邀请记录仓库接口定义
type InviteRepository interface {
	Create(ctx context.Context, record *model.InviteRecord) error
	GetByID(ctx context.Context, inviteID uint) (*model.InviteRecord, error)
	GetPending(ctx context.Context, spaceID uint, inviteeUID string) (*model.InviteRecord, error)
	ListByInvitee(ctx context.Context, inviteeUID string, status *model.InviteStatus) ([]*model.InviteRecord, error)
	UpdateStatus(ctx context.Context, inviteID uint, from, to model.InviteStatus) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// inviteRepository 邀请记录仓库实现
type inviteRepository struct {
	db *gorm.DB // 数据库连接
}

// NewInviteRepository 创建邀请记录仓库实例
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{
		db: db,
	}
}

// Create 创建邀请记录
func (r *inviteRepository) Create(ctx context.Context, record *model.InviteRecord) error {
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		logger.LogError(result.Error, "", record.InviterUID, "", "repo.invite.Create", "", map[string]interface{}{
			"operation":   "create_invite",
			"func_name":   "repo.invite.Create",
			"space_id":    record.SpaceID,
			"invitee_uid": record.InviteeUID,
		})
		return result.Error
	}

	return nil
}

// GetByID 根据ID获取邀请记录
// 返回nil表示未找到，不是错误
func (r *inviteRepository) GetByID(ctx context.Context, inviteID uint) (*model.InviteRecord, error) {
	var record model.InviteRecord

	result := r.db.WithContext(ctx).Where("id = ?", inviteID).First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogError(result.Error, "", "", "", "repo.invite.GetByID", "", map[string]interface{}{
			"operation": "get_invite_by_id",
			"func_name": "repo.invite.GetByID",
			"invite_id": inviteID,
		})
		return nil, result.Error
	}

	return &record, nil
}

// GetPending 获取指定空间对指定用户的待处理邀请
func (r *inviteRepository) GetPending(ctx context.Context, spaceID uint, inviteeUID string) (*model.InviteRecord, error) {
	var record model.InviteRecord

	result := r.db.WithContext(ctx).
		Where("space_id = ? AND invitee_uid = ? AND status = ?", spaceID, inviteeUID, model.InviteStatusInit).
		First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogError(result.Error, "", inviteeUID, "", "repo.invite.GetPending", "", map[string]interface{}{
			"operation": "get_pending_invite",
			"func_name": "repo.invite.GetPending",
			"space_id":  spaceID,
		})
		return nil, result.Error
	}

	return &record, nil
}

// ListByInvitee 按被邀请人查询邀请记录，status为nil时返回全部
func (r *inviteRepository) ListByInvitee(ctx context.Context, inviteeUID string, status *model.InviteStatus) ([]*model.InviteRecord, error) {
	var records []*model.InviteRecord

	query := r.db.WithContext(ctx).Where("invitee_uid = ?", inviteeUID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	result := query.Order("created_at DESC").Find(&records)
	if result.Error != nil {
		logger.LogError(result.Error, "", inviteeUID, "", "repo.invite.ListByInvitee", "", map[string]interface{}{
			"operation": "list_invites_by_invitee",
			"func_name": "repo.invite.ListByInvitee",
		})
		return nil, result.Error
	}

	return records, nil
}

// UpdateStatus 状态条件更新 [带原状态条件，防止并发下重复处理]
// 原状态不匹配时返回gorm.ErrRecordNotFound
func (r *inviteRepository) UpdateStatus(ctx context.Context, inviteID uint, from, to model.InviteStatus) error {
	result := r.db.WithContext(ctx).Model(&model.InviteRecord{}).
		Where("id = ? AND status = ?", inviteID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		logger.LogError(result.Error, "", "", "", "repo.invite.UpdateStatus", "", map[string]interface{}{
			"operation": "update_invite_status",
			"func_name": "repo.invite.UpdateStatus",
			"invite_id": inviteID,
			"from":      from,
			"to":        to,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExpireOverdue 将所有超期未处理的邀请置为过期，返回影响行数
func (r *inviteRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.InviteRecord{}).
		Where("status = ? AND expire_at < ?", model.InviteStatusInit, now).
		Updates(map[string]interface{}{
			"status":     model.InviteStatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		logger.LogError(result.Error, "", "", "", "repo.invite.ExpireOverdue", "", map[string]interface{}{
			"operation": "expire_overdue_invites",
			"func_name": "repo.invite.ExpireOverdue",
		})
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
