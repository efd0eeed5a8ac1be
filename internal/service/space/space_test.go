package space

import (
	"context"
	"testing"

	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	spacerepo "astronhub/internal/repo/mysql/space"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSpace(t *testing.T) {
	db := newTestDB(t)
	spaceRepo := spacerepo.NewSpaceRepository(db)
	svc := NewSpaceService(spaceRepo, passLocker{}, testSpaceConfig())
	ctx := context.Background()

	sp, err := svc.CreateSpace(ctx, "owner-1", "my-space", "personal workspace", 0)
	require.NoError(t, err)
	assert.NotZero(t, sp.ID)
	assert.Equal(t, model.SpaceTypeFree, sp.Type)

	// 创建者自动成为所有者成员
	member, err := spaceRepo.GetMember(ctx, sp.ID, "owner-1")
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, model.SpaceRoleOwner, member.Role)
}

func TestTransferOwnership(t *testing.T) {
	db := newTestDB(t)
	spaceRepo := spacerepo.NewSpaceRepository(db)
	svc := NewSpaceService(spaceRepo, passLocker{}, testSpaceConfig())
	ctx := context.Background()

	sp, err := svc.CreateSpace(ctx, "owner-1", "my-space", "", model.SpaceTypePro)
	require.NoError(t, err)
	require.NoError(t, spaceRepo.AddMember(ctx, &model.SpaceUser{
		SpaceID: sp.ID, UID: "user-2", Role: model.SpaceRoleMember,
	}))

	// 非所有者不可转移
	err = svc.TransferOwnership(ctx, "user-2", &model.TransferOwnershipRequest{
		SpaceID: sp.ID, TargetUID: "user-2",
	})
	assert.Equal(t, errcode.CodeSpaceNotOwner, errcode.CodeOf(err))

	// 目标必须是空间成员
	err = svc.TransferOwnership(ctx, "owner-1", &model.TransferOwnershipRequest{
		SpaceID: sp.ID, TargetUID: "stranger",
	})
	assert.Equal(t, errcode.CodeSpaceNotMember, errcode.CodeOf(err))

	require.NoError(t, svc.TransferOwnership(ctx, "owner-1", &model.TransferOwnershipRequest{
		SpaceID: sp.ID, TargetUID: "user-2",
	}))

	got, err := spaceRepo.GetByID(ctx, sp.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-2", got.OwnerUID)

	newOwner, err := spaceRepo.GetMember(ctx, sp.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, model.SpaceRoleOwner, newOwner.Role)

	// 旧所有者降为管理员
	oldOwner, err := spaceRepo.GetMember(ctx, sp.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, model.SpaceRoleAdmin, oldOwner.Role)
}

func TestJoinEnterprise(t *testing.T) {
	db := newTestDB(t)
	spaceRepo := spacerepo.NewSpaceRepository(db)
	svc := NewSpaceService(spaceRepo, passLocker{}, testSpaceConfig())
	ctx := context.Background()

	require.NoError(t, svc.JoinEnterprise(ctx, "user-1", &model.JoinEnterpriseRequest{EnterpriseID: 9}))

	member, err := spaceRepo.GetEnterpriseMember(ctx, 9, "user-1")
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, model.SpaceRoleMember, member.Role)

	// 重复加入被拦截
	err = svc.JoinEnterprise(ctx, "user-1", &model.JoinEnterpriseRequest{EnterpriseID: 9})
	assert.Equal(t, errcode.CodeSpaceAlreadyJoined, errcode.CodeOf(err))
}

func TestJoinEnterpriseLockTimeout(t *testing.T) {
	db := newTestDB(t)
	spaceRepo := spacerepo.NewSpaceRepository(db)
	svc := NewSpaceService(spaceRepo, timeoutLocker{}, testSpaceConfig())
	ctx := context.Background()

	err := svc.JoinEnterprise(ctx, "user-1", &model.JoinEnterpriseRequest{EnterpriseID: 9})
	assert.Equal(t, errcode.CodeConcurrentAccess, errcode.CodeOf(err))
}
