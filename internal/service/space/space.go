/**
 * 空间服务层:空间管理
 * @author: sun977
 * @date: 2026.03.17
 * @description: 空间创建、所有权转移与企业加入
 * @func:
 * 	1.CreateSpace 创建空间(创建者自动成为所有者)
 * 	2.TransferOwnership 所有权转移(space-transfer:{spaceId}锁保护)
 * 	3.JoinEnterprise 加入企业(enterprise-apply:{enterpriseId}锁保护)
 */
package space

import (
	"context"
	"strconv"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/lock"
	"astronhub/internal/pkg/logger"
	"astronhub/internal/pkg/utils"
	spacerepo "astronhub/internal/repo/mysql/space"
)

// SpaceService 空间管理服务
type SpaceService struct {
	spaceRepo spacerepo.SpaceRepository
	locker    Locker
	cfg       config.SpaceConfig
}

// NewSpaceService 创建空间管理服务
func NewSpaceService(spaceRepo spacerepo.SpaceRepository, locker Locker, cfg config.SpaceConfig) *SpaceService {
	return &SpaceService{
		spaceRepo: spaceRepo,
		locker:    locker,
		cfg:       cfg,
	}
}

// CreateSpace 创建空间，创建者自动成为所有者成员
func (s *SpaceService) CreateSpace(ctx context.Context, uid, name, description string, spaceType model.SpaceType) (*model.Space, error) {
	if spaceType == 0 {
		spaceType = model.SpaceTypeFree
	}

	space := &model.Space{
		Name:        name,
		Description: description,
		OwnerUID:    uid,
		Type:        spaceType,
	}
	if err := s.spaceRepo.Create(ctx, space); err != nil {
		return nil, errcode.Wrap(errcode.CodeInternalError, err)
	}

	if err := s.spaceRepo.AddMember(ctx, &model.SpaceUser{
		SpaceID: space.ID,
		UID:     uid,
		Role:    model.SpaceRoleOwner,
	}); err != nil {
		return nil, errcode.Wrap(errcode.CodeInternalError, err)
	}

	logger.LogBusinessOperation("space_created", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "space created", map[string]interface{}{
			"space_id": space.ID,
			"type":     space.Type,
		})

	return space, nil
}

// TransferOwnership 转移空间所有权
// 旧所有者降为管理员，目标成员升为所有者，整个流程在锁内完成
func (s *SpaceService) TransferOwnership(ctx context.Context, uid string, req *model.TransferOwnershipRequest) error {
	key, err := lock.BuildKey("space-transfer", strconv.FormatUint(uint64(req.SpaceID), 10))
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}

	lockErr := s.locker.WithLockOptions(ctx, key, lock.Options{}, func(ctx context.Context) error {
		return s.transferLocked(ctx, uid, req)
	})
	if lockErr == nil {
		return nil
	}
	if lock.IsLockError(lockErr, lock.TypeAcquireTimeout) {
		return errcode.Wrap(errcode.CodeConcurrentAccess, lockErr)
	}
	return lockErr
}

// transferLocked 锁内的所有权转移流程
func (s *SpaceService) transferLocked(ctx context.Context, uid string, req *model.TransferOwnershipRequest) error {
	space, err := s.spaceRepo.GetByID(ctx, req.SpaceID)
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	if space == nil {
		return errcode.New(errcode.CodeSpaceNotFound, "")
	}
	if space.OwnerUID != uid {
		return errcode.New(errcode.CodeSpaceNotOwner, "")
	}
	if req.TargetUID == uid {
		return errcode.New(errcode.CodeInvalidParam, "cannot transfer to yourself")
	}

	target, err := s.spaceRepo.GetMember(ctx, req.SpaceID, req.TargetUID)
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	if target == nil {
		return errcode.New(errcode.CodeSpaceNotMember, "target user is not a member of the space")
	}

	if err := s.spaceRepo.UpdateOwner(ctx, req.SpaceID, req.TargetUID); err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	if err := s.spaceRepo.UpdateMemberRole(ctx, req.SpaceID, req.TargetUID, model.SpaceRoleOwner); err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	if err := s.spaceRepo.UpdateMemberRole(ctx, req.SpaceID, uid, model.SpaceRoleAdmin); err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}

	logger.LogBusinessOperation("space_ownership_transferred", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "space ownership transferred", map[string]interface{}{
			"space_id":   req.SpaceID,
			"target_uid": req.TargetUID,
		})

	return nil
}

// JoinEnterprise 加入企业
// 重复申请在enterprise-apply:{enterpriseId}锁内拦截
func (s *SpaceService) JoinEnterprise(ctx context.Context, uid string, req *model.JoinEnterpriseRequest) error {
	key, err := lock.BuildKey("enterprise-apply", strconv.FormatUint(uint64(req.EnterpriseID), 10))
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}

	lockErr := s.locker.WithLockOptions(ctx, key, lock.Options{}, func(ctx context.Context) error {
		existing, err := s.spaceRepo.GetEnterpriseMember(ctx, req.EnterpriseID, uid)
		if err != nil {
			return errcode.Wrap(errcode.CodeInternalError, err)
		}
		if existing != nil {
			return errcode.New(errcode.CodeSpaceAlreadyJoined, "already a member of the enterprise")
		}

		if err := s.spaceRepo.AddEnterpriseMember(ctx, &model.EnterpriseUser{
			EnterpriseID: req.EnterpriseID,
			UID:          uid,
			Role:         model.SpaceRoleMember,
		}); err != nil {
			return errcode.Wrap(errcode.CodeInternalError, err)
		}

		logger.LogBusinessOperation("enterprise_joined", uid, "", utils.GetClientIPFromContext(ctx), "",
			"success", "joined enterprise", map[string]interface{}{
				"enterprise_id": req.EnterpriseID,
			})
		return nil
	})
	if lockErr == nil {
		return nil
	}
	if lock.IsLockError(lockErr, lock.TypeAcquireTimeout) {
		return errcode.Wrap(errcode.CodeConcurrentAccess, lockErr)
	}
	return lockErr
}
