package notification

import (
	"context"
	"testing"

	"astronhub/internal/model"
	"astronhub/internal/pkg/lock"
	notifrepo "astronhub/internal/repo/mysql/notification"

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

func newTestService(t *testing.T) *NotificationService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Notification{}))
	return NewNotificationService(notifrepo.NewNotificationRepository(db), passLocker{})
}

func TestNotifyAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, "user-1", model.NotificationTypeInvite, "空间邀请", "owner-1邀请你加入team-a"))
	require.NoError(t, svc.Notify(ctx, "user-1", model.NotificationTypeSystem, "系统公告", "服务升级"))
	require.NoError(t, svc.Notify(ctx, "user-2", model.NotificationTypeSystem, "系统公告", "服务升级"))

	notifications, total, err := svc.List(ctx, "user-1", false, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, notifications, 2)

	// 其他用户的通知不可见
	notifications, total, err = svc.List(ctx, "user-2", false, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, notifications, 1)
}

func TestMarkRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, "user-1", model.NotificationTypeSystem, "a", ""))
	require.NoError(t, svc.Notify(ctx, "user-1", model.NotificationTypeSystem, "b", ""))

	notifications, _, err := svc.List(ctx, "user-1", true, 1, 20)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	// 标记单条
	affected, err := svc.MarkRead(ctx, "user-1", &model.MarkReadRequest{IDs: []uint{notifications[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// 重复标记幂等
	affected, err = svc.MarkRead(ctx, "user-1", &model.MarkReadRequest{IDs: []uint{notifications[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	// ids为空标记全部
	affected, err = svc.MarkRead(ctx, "user-1", &model.MarkReadRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	unread, _, err := svc.List(ctx, "user-1", true, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMarkReadOtherUsersUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, "user-1", model.NotificationTypeSystem, "a", ""))
	require.NoError(t, svc.Notify(ctx, "user-2", model.NotificationTypeSystem, "b", ""))

	others, _, err := svc.List(ctx, "user-2", true, 1, 20)
	require.NoError(t, err)
	require.Len(t, others, 1)

	// 用其他用户的通知ID标记，不生效
	affected, err := svc.MarkRead(ctx, "user-1", &model.MarkReadRequest{IDs: []uint{others[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestDeleteNotifications(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, "user-1", model.NotificationTypeSystem, "a", ""))
	notifications, _, err := svc.List(ctx, "user-1", false, 1, 20)
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	affected, err := svc.Delete(ctx, "user-1", &model.DeleteNotificationRequest{IDs: []uint{notifications[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, total, err := svc.List(ctx, "user-1", false, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
}
