/**
 * 空间服务层:邀请流程
 * @author: sun977
 * @date: 2026.03.17
 * @description: 空间邀请的发起、接受、拒绝与查询
 * @func:
 * 	1.CreateInvite 发起邀请
 * 	2.AcceptInvite 接受邀请(分布式锁保护，防止并发超员)
 * 	3.RefuseInvite 拒绝邀请
 * 	4.ListInvites 查询我的邀请
 * @note: 接受邀请在space-invite:{spaceId}锁内完成成员数校验和写入，
 *        多实例并发接受同一空间邀请时不会突破成员上限
 */
package space

import (
	"context"
	"strconv"
	"time"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/lock"
	"astronhub/internal/pkg/logger"
	"astronhub/internal/pkg/utils"
	spacerepo "astronhub/internal/repo/mysql/space"

	"gorm.io/gorm"
)

// Locker 分布式锁执行接口 [生产实现为lock.RedisLockManager]
type Locker interface {
	WithLockOptions(ctx context.Context, key string, opts lock.Options, fn func(ctx context.Context) error) error
}

// InviteService 空间邀请服务
type InviteService struct {
	spaceRepo  spacerepo.SpaceRepository
	inviteRepo spacerepo.InviteRepository
	locker     Locker
	cfg        config.SpaceConfig
}

// NewInviteService 创建空间邀请服务
func NewInviteService(spaceRepo spacerepo.SpaceRepository, inviteRepo spacerepo.InviteRepository,
	locker Locker, cfg config.SpaceConfig) *InviteService {
	return &InviteService{
		spaceRepo:  spaceRepo,
		inviteRepo: inviteRepo,
		locker:     locker,
		cfg:        cfg,
	}
}

// CreateInvite 发起空间邀请
// 仅所有者/管理员可邀请；被邀请人已是成员或已有待处理邀请时拒绝
func (s *InviteService) CreateInvite(ctx context.Context, uid string, req *model.CreateInviteRequest) (*model.InviteRecord, error) {
	space, err := s.spaceRepo.GetByID(ctx, req.SpaceID)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodeInternalError, err)
	}
	if space == nil {
		return nil, errcode.New(errcode.CodeSpaceNotFound, "")
	}

	inviter, err := s.spaceRepo.GetMember(ctx, req.SpaceID, uid)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodeInternalError, err)
	}
	if inviter == nil {
		return nil, errcode.New(errcode.CodeSpaceNotMember, "")
	}
	if inviter.Role != model.SpaceRoleOwner && inviter.Role != model.SpaceRoleAdmin {
		return nil, errcode.New(errcode.CodeForbidden, "only owner or admin can invite")
	}

	existing, err := s.spaceRepo.GetMember(ctx, req.SpaceID, req.InviteeUID)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodeInternalError, err)
	}
	if existing != nil {
		return nil, errcode.New(errcode.CodeSpaceAlreadyJoined, "")
	}

	pending, err := s.inviteRepo.GetPending(ctx, req.SpaceID, req.InviteeUID)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodeInternalError, err)
	}
	if pending != nil {
		return nil, errcode.New(errcode.CodeInvalidParam, "a pending invite already exists")
	}

	role := req.Role
	if role == 0 {
		role = model.SpaceRoleMember
	}
	record := &model.InviteRecord{
		SpaceID:    req.SpaceID,
		InviterUID: uid,
		InviteeUID: req.InviteeUID,
		Role:       role,
		Status:     model.InviteStatusInit,
		ExpireAt:   time.Now().AddDate(0, 0, s.cfg.InviteExpireDays),
	}
	if err := s.inviteRepo.Create(ctx, record); err != nil {
		return nil, errcode.Wrap(errcode.CodeInternalError, err)
	}

	logger.LogBusinessOperation("space_invite_created", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "space invite created", map[string]interface{}{
			"space_id":    req.SpaceID,
			"invite_id":   record.ID,
			"invitee_uid": req.InviteeUID,
		})

	return record, nil
}

// AcceptInvite 接受空间邀请
// 成员数校验与写入在space-invite:{spaceId}锁内串行化
func (s *InviteService) AcceptInvite(ctx context.Context, uid string, req *model.AcceptInviteRequest) error {
	record, err := s.inviteRepo.GetByID(ctx, req.InviteID)
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	if record == nil {
		return errcode.New(errcode.CodeInviteNotFound, "")
	}
	if record.InviteeUID != uid {
		return errcode.New(errcode.CodeInviteNotYours, "")
	}
	if record.Status.IsHandled() {
		return errcode.New(errcode.CodeInviteHandled, "")
	}
	if record.IsExpired(time.Now()) {
		// 惰性过期:读到超期的待处理邀请时顺手置为过期
		_ = s.inviteRepo.UpdateStatus(ctx, record.ID, model.InviteStatusInit, model.InviteStatusExpired)
		return errcode.New(errcode.CodeInviteExpired, "")
	}

	key, err := lock.BuildKey("space-invite", strconv.FormatUint(uint64(record.SpaceID), 10))
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}

	lockErr := s.locker.WithLockOptions(ctx, key, lock.Options{}, func(ctx context.Context) error {
		return s.acceptLocked(ctx, uid, record, req.Nickname)
	})
	if lockErr == nil {
		return nil
	}
	if lock.IsLockError(lockErr, lock.TypeAcquireTimeout) {
		return errcode.Wrap(errcode.CodeConcurrentAccess, lockErr)
	}
	return lockErr
}

// acceptLocked 锁内的接受邀请流程
func (s *InviteService) acceptLocked(ctx context.Context, uid string, record *model.InviteRecord, nickname string) error {
	space, err := s.spaceRepo.GetByID(ctx, record.SpaceID)
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	if space == nil {
		return errcode.New(errcode.CodeSpaceNotFound, "")
	}

	existing, err := s.spaceRepo.GetMember(ctx, record.SpaceID, uid)
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	if existing != nil {
		return errcode.New(errcode.CodeSpaceAlreadyJoined, "")
	}

	count, err := s.spaceRepo.CountMembers(ctx, record.SpaceID)
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	limit := model.SpaceMemberLimit(space.Type, s.cfg.FreeUserLimit, s.cfg.ProUserLimit, s.cfg.TeamUserLimit)
	if limit > 0 && count >= int64(limit) {
		return errcode.New(errcode.CodeSpaceMemberFull, "")
	}

	// 先置状态再写成员:状态CAS失败说明并发下邀请已被处理
	if err := s.inviteRepo.UpdateStatus(ctx, record.ID, model.InviteStatusInit, model.InviteStatusAccept); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errcode.New(errcode.CodeInviteHandled, "")
		}
		return errcode.Wrap(errcode.CodeInternalError, err)
	}

	if err := s.spaceRepo.AddMember(ctx, &model.SpaceUser{
		SpaceID:  record.SpaceID,
		UID:      uid,
		Nickname: nickname,
		Role:     record.Role,
	}); err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}

	// 团队空间成员同时挂到所属企业下
	if space.EnterpriseID != 0 {
		entMember, err := s.spaceRepo.GetEnterpriseMember(ctx, space.EnterpriseID, uid)
		if err != nil {
			return errcode.Wrap(errcode.CodeInternalError, err)
		}
		if entMember == nil {
			if err := s.spaceRepo.AddEnterpriseMember(ctx, &model.EnterpriseUser{
				EnterpriseID: space.EnterpriseID,
				UID:          uid,
				Role:         model.SpaceRoleMember,
			}); err != nil {
				return errcode.Wrap(errcode.CodeInternalError, err)
			}
		}
	}

	logger.LogBusinessOperation("space_invite_accepted", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "space invite accepted", map[string]interface{}{
			"space_id":  record.SpaceID,
			"invite_id": record.ID,
		})

	return nil
}

// RefuseInvite 拒绝空间邀请
func (s *InviteService) RefuseInvite(ctx context.Context, uid string, req *model.RefuseInviteRequest) error {
	record, err := s.inviteRepo.GetByID(ctx, req.InviteID)
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}
	if record == nil {
		return errcode.New(errcode.CodeInviteNotFound, "")
	}
	if record.InviteeUID != uid {
		return errcode.New(errcode.CodeInviteNotYours, "")
	}
	if record.Status.IsHandled() {
		return errcode.New(errcode.CodeInviteHandled, "")
	}

	if err := s.inviteRepo.UpdateStatus(ctx, record.ID, model.InviteStatusInit, model.InviteStatusRefuse); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errcode.New(errcode.CodeInviteHandled, "")
		}
		return errcode.Wrap(errcode.CodeInternalError, err)
	}

	logger.LogBusinessOperation("space_invite_refused", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "space invite refused", map[string]interface{}{
			"space_id":  record.SpaceID,
			"invite_id": record.ID,
		})

	return nil
}

// ListInvites 查询我收到的邀请，status为nil时返回全部
func (s *InviteService) ListInvites(ctx context.Context, uid string, status *model.InviteStatus) ([]*model.InviteRecord, error) {
	records, err := s.inviteRepo.ListByInvitee(ctx, uid, status)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodeInternalError, err)
	}
	return records, nil
}
