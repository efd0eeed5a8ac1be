package space

import (
	"context"
	"fmt"
	"testing"
	"time"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/lock"
	spacerepo "astronhub/internal/repo/mysql/space"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// passLocker 测试用锁打桩，直接执行闭包
type passLocker struct{}

func (passLocker) WithLockOptions(ctx context.Context, key string, opts lock.Options, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// timeoutLocker 测试用锁打桩，始终获取超时
type timeoutLocker struct{}

func (timeoutLocker) WithLockOptions(ctx context.Context, key string, opts lock.Options, fn func(ctx context.Context) error) error {
	return lock.NewLockError(key, lock.TypeAcquireTimeout, nil)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Space{}, &model.SpaceUser{}, &model.InviteRecord{}, &model.EnterpriseUser{}))
	return db
}

func testSpaceConfig() config.SpaceConfig {
	return config.SpaceConfig{
		FreeUserLimit:    3,
		ProUserLimit:     10,
		TeamUserLimit:    50,
		InviteExpireDays: 7,
	}
}

// newInviteFixture 建好一个带所有者的空间，返回服务和仓库
func newInviteFixture(t *testing.T) (*InviteService, spacerepo.SpaceRepository, spacerepo.InviteRepository, *model.Space) {
	t.Helper()
	db := newTestDB(t)
	spaceRepo := spacerepo.NewSpaceRepository(db)
	inviteRepo := spacerepo.NewInviteRepository(db)
	svc := NewInviteService(spaceRepo, inviteRepo, passLocker{}, testSpaceConfig())

	ctx := context.Background()
	sp := &model.Space{Name: "team-a", OwnerUID: "owner-1", Type: model.SpaceTypeFree}
	require.NoError(t, spaceRepo.Create(ctx, sp))
	require.NoError(t, spaceRepo.AddMember(ctx, &model.SpaceUser{
		SpaceID: sp.ID, UID: "owner-1", Role: model.SpaceRoleOwner,
	}))
	return svc, spaceRepo, inviteRepo, sp
}

func TestCreateInvite(t *testing.T) {
	svc, _, _, sp := newInviteFixture(t)
	ctx := context.Background()

	record, err := svc.CreateInvite(ctx, "owner-1", &model.CreateInviteRequest{
		SpaceID:    sp.ID,
		InviteeUID: "user-2",
	})
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusInit, record.Status)
	assert.Equal(t, model.SpaceRoleMember, record.Role)
	assert.True(t, record.ExpireAt.After(time.Now()))

	// 同一被邀请人的待处理邀请不可重复发起
	_, err = svc.CreateInvite(ctx, "owner-1", &model.CreateInviteRequest{
		SpaceID:    sp.ID,
		InviteeUID: "user-2",
	})
	assert.Equal(t, errcode.CodeInvalidParam, errcode.CodeOf(err))

	// 普通成员不能发起邀请
	_, err = svc.CreateInvite(ctx, "user-3", &model.CreateInviteRequest{
		SpaceID:    sp.ID,
		InviteeUID: "user-4",
	})
	assert.Equal(t, errcode.CodeSpaceNotMember, errcode.CodeOf(err))
}

func TestAcceptInvite(t *testing.T) {
	svc, spaceRepo, inviteRepo, sp := newInviteFixture(t)
	ctx := context.Background()

	record, err := svc.CreateInvite(ctx, "owner-1", &model.CreateInviteRequest{
		SpaceID:    sp.ID,
		InviteeUID: "user-2",
	})
	require.NoError(t, err)

	// 非被邀请人不可接受
	err = svc.AcceptInvite(ctx, "user-3", &model.AcceptInviteRequest{InviteID: record.ID})
	assert.Equal(t, errcode.CodeInviteNotYours, errcode.CodeOf(err))

	require.NoError(t, svc.AcceptInvite(ctx, "user-2", &model.AcceptInviteRequest{
		InviteID: record.ID,
		Nickname: "小二",
	}))

	member, err := spaceRepo.GetMember(ctx, sp.ID, "user-2")
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, model.SpaceRoleMember, member.Role)
	assert.Equal(t, "小二", member.Nickname)

	accepted, err := inviteRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusAccept, accepted.Status)

	// 已处理的邀请不可再次接受
	err = svc.AcceptInvite(ctx, "user-2", &model.AcceptInviteRequest{InviteID: record.ID})
	assert.Equal(t, errcode.CodeInviteHandled, errcode.CodeOf(err))
}

func TestAcceptInviteExpired(t *testing.T) {
	svc, _, inviteRepo, sp := newInviteFixture(t)
	ctx := context.Background()

	record := &model.InviteRecord{
		SpaceID:    sp.ID,
		InviterUID: "owner-1",
		InviteeUID: "user-2",
		Role:       model.SpaceRoleMember,
		Status:     model.InviteStatusInit,
		ExpireAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, inviteRepo.Create(ctx, record))

	err := svc.AcceptInvite(ctx, "user-2", &model.AcceptInviteRequest{InviteID: record.ID})
	assert.Equal(t, errcode.CodeInviteExpired, errcode.CodeOf(err))

	// 超期邀请被惰性置为过期
	got, err := inviteRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusExpired, got.Status)
}

func TestAcceptInviteMemberLimit(t *testing.T) {
	svc, spaceRepo, _, sp := newInviteFixture(t)
	ctx := context.Background()

	// 填满免费空间(上限3，已有owner)
	for i := 0; i < 2; i++ {
		require.NoError(t, spaceRepo.AddMember(ctx, &model.SpaceUser{
			SpaceID: sp.ID,
			UID:     fmt.Sprintf("filler-%d", i),
			Role:    model.SpaceRoleMember,
		}))
	}

	record, err := svc.CreateInvite(ctx, "owner-1", &model.CreateInviteRequest{
		SpaceID:    sp.ID,
		InviteeUID: "user-2",
	})
	require.NoError(t, err)

	err = svc.AcceptInvite(ctx, "user-2", &model.AcceptInviteRequest{InviteID: record.ID})
	assert.Equal(t, errcode.CodeSpaceMemberFull, errcode.CodeOf(err))

	// 满员时邀请保持待处理状态
	member, err := spaceRepo.GetMember(ctx, sp.ID, "user-2")
	require.NoError(t, err)
	assert.Nil(t, member)
}

func TestAcceptInviteEnterpriseSpace(t *testing.T) {
	db := newTestDB(t)
	spaceRepo := spacerepo.NewSpaceRepository(db)
	inviteRepo := spacerepo.NewInviteRepository(db)
	svc := NewInviteService(spaceRepo, inviteRepo, passLocker{}, testSpaceConfig())
	ctx := context.Background()

	sp := &model.Space{Name: "team-b", OwnerUID: "owner-1", Type: model.SpaceTypeTeam, EnterpriseID: 77}
	require.NoError(t, spaceRepo.Create(ctx, sp))
	require.NoError(t, spaceRepo.AddMember(ctx, &model.SpaceUser{
		SpaceID: sp.ID, UID: "owner-1", Role: model.SpaceRoleOwner,
	}))

	record, err := svc.CreateInvite(ctx, "owner-1", &model.CreateInviteRequest{
		SpaceID:    sp.ID,
		InviteeUID: "user-2",
	})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvite(ctx, "user-2", &model.AcceptInviteRequest{InviteID: record.ID}))

	// 团队空间成员同步挂到企业下
	entMember, err := spaceRepo.GetEnterpriseMember(ctx, 77, "user-2")
	require.NoError(t, err)
	require.NotNil(t, entMember)
	assert.Equal(t, model.SpaceRoleMember, entMember.Role)
}

func TestAcceptInviteLockTimeout(t *testing.T) {
	db := newTestDB(t)
	spaceRepo := spacerepo.NewSpaceRepository(db)
	inviteRepo := spacerepo.NewInviteRepository(db)
	svc := NewInviteService(spaceRepo, inviteRepo, timeoutLocker{}, testSpaceConfig())
	ctx := context.Background()

	sp := &model.Space{Name: "team-c", OwnerUID: "owner-1", Type: model.SpaceTypeFree}
	require.NoError(t, spaceRepo.Create(ctx, sp))

	record := &model.InviteRecord{
		SpaceID:    sp.ID,
		InviterUID: "owner-1",
		InviteeUID: "user-2",
		Status:     model.InviteStatusInit,
		ExpireAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, inviteRepo.Create(ctx, record))

	// 锁获取超时映射为并发冲突错误码
	err := svc.AcceptInvite(ctx, "user-2", &model.AcceptInviteRequest{InviteID: record.ID})
	assert.Equal(t, errcode.CodeConcurrentAccess, errcode.CodeOf(err))
}

func TestRefuseInvite(t *testing.T) {
	svc, spaceRepo, inviteRepo, sp := newInviteFixture(t)
	ctx := context.Background()

	record, err := svc.CreateInvite(ctx, "owner-1", &model.CreateInviteRequest{
		SpaceID:    sp.ID,
		InviteeUID: "user-2",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RefuseInvite(ctx, "user-2", &model.RefuseInviteRequest{InviteID: record.ID}))

	got, err := inviteRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusRefuse, got.Status)

	// 拒绝后不会成为成员
	member, err := spaceRepo.GetMember(ctx, sp.ID, "user-2")
	require.NoError(t, err)
	assert.Nil(t, member)

	// 已处理的邀请不可重复拒绝
	err = svc.RefuseInvite(ctx, "user-2", &model.RefuseInviteRequest{InviteID: record.ID})
	assert.Equal(t, errcode.CodeInviteHandled, errcode.CodeOf(err))
}

func TestListInvites(t *testing.T) {
	svc, _, _, sp := newInviteFixture(t)
	ctx := context.Background()

	for _, invitee := range []string{"user-2", "user-3"} {
		_, err := svc.CreateInvite(ctx, "owner-1", &model.CreateInviteRequest{
			SpaceID:    sp.ID,
			InviteeUID: invitee,
		})
		require.NoError(t, err)
	}

	records, err := svc.ListInvites(ctx, "user-2", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sp.ID, records[0].SpaceID)

	// 按状态过滤
	accepted := model.InviteStatusAccept
	records, err = svc.ListInvites(ctx, "user-2", &accepted)
	require.NoError(t, err)
	assert.Empty(t, records)
}
