/**
 * 空间仓库层:空间与成员数据访问
 * @author: sun977
 * @date: 2026.03.13
 * @description: 空间、空间成员、企业成员数据访问层，专注于数据操作，不包含业务逻辑
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

// SpaceRepository 空间仓库接口定义 [定义接口层供上层调用，然后底下实现这些接口]
type SpaceRepository interface {
	// 空间基础数据操作
	GetByID(ctx context.Context, spaceID uint) (*model.Space, error)
	Create(ctx context.Context, space *model.Space) error
	UpdateOwner(ctx context.Context, spaceID uint, ownerUID string) error

	// 空间成员管理
	GetMember(ctx context.Context, spaceID uint, uid string) (*model.SpaceUser, error)
	CountMembers(ctx context.Context, spaceID uint) (int64, error)
	AddMember(ctx context.Context, member *model.SpaceUser) error
	UpdateMemberRole(ctx context.Context, spaceID uint, uid string, role model.SpaceRole) error
	RemoveMember(ctx context.Context, spaceID uint, uid string) error

	// 企业成员管理
	GetEnterpriseMember(ctx context.Context, enterpriseID uint, uid string) (*model.EnterpriseUser, error)
	AddEnterpriseMember(ctx context.Context, member *model.EnterpriseUser) error
}

// spaceRepository 空间仓库实现
type spaceRepository struct {
	db *gorm.DB // 数据库连接
}

// NewSpaceRepository 创建空间仓库实例
func NewSpaceRepository(db *gorm.DB) SpaceRepository {
	return &spaceRepository{
		db: db,
	}
}

// GetByID 根据ID获取空间
// 返回nil表示未找到，不是错误
func (r *spaceRepository) GetByID(ctx context.Context, spaceID uint) (*model.Space, error) {
	var space model.Space

	result := r.db.WithContext(ctx).Where("id = ?", spaceID).First(&space)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogError(result.Error, "", "", "", "repo.space.GetByID", "", map[string]interface{}{
			"operation": "get_space_by_id",
			"func_name": "repo.space.GetByID",
			"space_id":  spaceID,
		})
		return nil, result.Error
	}

	return &space, nil
}

// Create 创建空间
func (r *spaceRepository) Create(ctx context.Context, space *model.Space) error {
	space.CreatedAt = time.Now()
	space.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Create(space)
	if result.Error != nil {
		logger.LogError(result.Error, "", space.OwnerUID, "", "repo.space.Create", "", map[string]interface{}{
			"operation": "create_space",
			"func_name": "repo.space.Create",
			"name":      space.Name,
		})
		return result.Error
	}

	return nil
}

// UpdateOwner 更新空间所有者
func (r *spaceRepository) UpdateOwner(ctx context.Context, spaceID uint, ownerUID string) error {
	result := r.db.WithContext(ctx).Model(&model.Space{}).
		Where("id = ?", spaceID).
		Updates(map[string]interface{}{
			"owner_uid":  ownerUID,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		logger.LogError(result.Error, "", ownerUID, "", "repo.space.UpdateOwner", "", map[string]interface{}{
			"operation": "update_space_owner",
			"func_name": "repo.space.UpdateOwner",
			"space_id":  spaceID,
		})
		return result.Error
	}
	return nil
}

// GetMember 获取空间成员
// 返回nil表示不是成员，不是错误
func (r *spaceRepository) GetMember(ctx context.Context, spaceID uint, uid string) (*model.SpaceUser, error) {
	var member model.SpaceUser

	result := r.db.WithContext(ctx).Where("space_id = ? AND uid = ?", spaceID, uid).First(&member)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogError(result.Error, "", uid, "", "repo.space.GetMember", "", map[string]interface{}{
			"operation": "get_space_member",
			"func_name": "repo.space.GetMember",
			"space_id":  spaceID,
		})
		return nil, result.Error
	}

	return &member, nil
}

// CountMembers 统计空间成员数
func (r *spaceRepository) CountMembers(ctx context.Context, spaceID uint) (int64, error) {
	var count int64

	result := r.db.WithContext(ctx).Model(&model.SpaceUser{}).Where("space_id = ?", spaceID).Count(&count)
	if result.Error != nil {
		logger.LogError(result.Error, "", "", "", "repo.space.CountMembers", "", map[string]interface{}{
			"operation": "count_space_members",
			"func_name": "repo.space.CountMembers",
			"space_id":  spaceID,
		})
		return 0, result.Error
	}

	return count, nil
}

// AddMember 添加空间成员
func (r *spaceRepository) AddMember(ctx context.Context, member *model.SpaceUser) error {
	member.CreatedAt = time.Now()
	member.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Create(member)
	if result.Error != nil {
		logger.LogError(result.Error, "", member.UID, "", "repo.space.AddMember", "", map[string]interface{}{
			"operation": "add_space_member",
			"func_name": "repo.space.AddMember",
			"space_id":  member.SpaceID,
		})
		return result.Error
	}

	logger.LogInfo("空间成员添加成功", "", member.UID, "", "repo.space.AddMember", "", map[string]interface{}{
		"operation": "add_space_member",
		"func_name": "repo.space.AddMember",
		"space_id":  member.SpaceID,
		"role":      member.Role,
	})

	return nil
}

// UpdateMemberRole 更新空间成员角色
func (r *spaceRepository) UpdateMemberRole(ctx context.Context, spaceID uint, uid string, role model.SpaceRole) error {
	result := r.db.WithContext(ctx).Model(&model.SpaceUser{}).
		Where("space_id = ? AND uid = ?", spaceID, uid).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		logger.LogError(result.Error, "", uid, "", "repo.space.UpdateMemberRole", "", map[string]interface{}{
			"operation": "update_member_role",
			"func_name": "repo.space.UpdateMemberRole",
			"space_id":  spaceID,
			"role":      role,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveMember 移除空间成员
func (r *spaceRepository) RemoveMember(ctx context.Context, spaceID uint, uid string) error {
	result := r.db.WithContext(ctx).Where("space_id = ? AND uid = ?", spaceID, uid).Delete(&model.SpaceUser{})
	if result.Error != nil {
		logger.LogError(result.Error, "", uid, "", "repo.space.RemoveMember", "", map[string]interface{}{
			"operation": "remove_space_member",
			"func_name": "repo.space.RemoveMember",
			"space_id":  spaceID,
		})
		return result.Error
	}
	return nil
}

// GetEnterpriseMember 获取企业成员
// 返回nil表示不是企业成员，不是错误
func (r *spaceRepository) GetEnterpriseMember(ctx context.Context, enterpriseID uint, uid string) (*model.EnterpriseUser, error) {
	var member model.EnterpriseUser

	result := r.db.WithContext(ctx).Where("enterprise_id = ? AND uid = ?", enterpriseID, uid).First(&member)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.LogError(result.Error, "", uid, "", "repo.space.GetEnterpriseMember", "", map[string]interface{}{
			"operation":     "get_enterprise_member",
			"func_name":     "repo.space.GetEnterpriseMember",
			"enterprise_id": enterpriseID,
		})
		return nil, result.Error
	}

	return &member, nil
}

// AddEnterpriseMember 添加企业成员
func (r *spaceRepository) AddEnterpriseMember(ctx context.Context, member *model.EnterpriseUser) error {
	member.CreatedAt = time.Now()
	member.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Create(member)
	if result.Error != nil {
		logger.LogError(result.Error, "", member.UID, "", "repo.space.AddEnterpriseMember", "", map[string]interface{}{
			"operation":     "add_enterprise_member",
			"func_name":     "repo.space.AddEnterpriseMember",
			"enterprise_id": member.EnterpriseID,
		})
		return result.Error
	}

	return nil
}
