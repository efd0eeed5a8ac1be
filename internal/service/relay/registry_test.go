package relay

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"astronhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewSessionRegistry()

	err := registry.Register(Session{ID: "s1", APIToken: "tok"})
	require.NoError(t, err)

	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, model.SessionPending, sess.Status)
	assert.False(t, sess.RegisteredAt.IsZero())

	// 重复注册
	err = registry.Register(Session{ID: "s1"})
	assert.Equal(t, ErrDuplicateSession, err)

	// 不存在的会话
	_, err = registry.Get("missing")
	assert.Equal(t, ErrSessionNotFound, err)
}

func TestRegistryUpdateTerminalAbsorbing(t *testing.T) {
	registry := NewSessionRegistry()
	require.NoError(t, registry.Register(Session{ID: "s1"}))

	updated, err := registry.Update("s1", func(sess *Session) {
		sess.Status = model.SessionSucceeded
		sess.Result = "done"
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionSucceeded, updated.Status)
	assert.False(t, updated.FinishedAt.IsZero())

	// 终态吸收:后续Update不生效
	_, err = registry.Update("s1", func(sess *Session) {
		sess.Status = model.SessionFailed
	})
	assert.Equal(t, ErrSessionFinished, err)

	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionSucceeded, sess.Status)
	assert.Equal(t, "done", sess.Result)
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	registry := NewSessionRegistry()
	require.NoError(t, registry.Register(Session{ID: "s1"}))

	registry.Remove("s1")
	registry.Remove("s1") // 二次删除静默

	_, err := registry.Get("s1")
	assert.Equal(t, ErrSessionNotFound, err)
}

func TestRegistryAllSnapshot(t *testing.T) {
	registry := NewSessionRegistry()
	for i := 0; i < 10; i++ {
		require.NoError(t, registry.Register(Session{ID: fmt.Sprintf("s%d", i)}))
	}

	all := registry.All()
	assert.Len(t, all, 10)
	assert.Equal(t, 10, registry.Count())

	// 快照是副本，修改不影响注册表
	all[0].Status = model.SessionFailed
	sess, err := registry.Get(all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionPending, sess.Status)
}

func TestRegistryTryBeginPoll(t *testing.T) {
	registry := NewSessionRegistry()
	require.NoError(t, registry.Register(Session{ID: "s1"}))

	now := time.Now()
	snapshot, ok := registry.TryBeginPoll("s1", now)
	require.True(t, ok)
	assert.Equal(t, now, snapshot.LastPolledAt)

	// 在途期间不可重复派发
	_, ok = registry.TryBeginPoll("s1", now.Add(time.Second))
	assert.False(t, ok)

	registry.EndPoll("s1")
	later := now.Add(2 * time.Second)
	snapshot, ok = registry.TryBeginPoll("s1", later)
	require.True(t, ok)
	assert.Equal(t, later, snapshot.LastPolledAt)

	// lastPolledAt单调:更早的时间点不回退
	registry.EndPoll("s1")
	_, ok = registry.TryBeginPoll("s1", now)
	require.True(t, ok)
	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, later, sess.LastPolledAt)
}

func TestRegistryTryBeginPollSkipsTerminal(t *testing.T) {
	registry := NewSessionRegistry()
	require.NoError(t, registry.Register(Session{ID: "s1"}))

	_, err := registry.Update("s1", func(sess *Session) {
		sess.Status = model.SessionCanceled
	})
	require.NoError(t, err)

	_, ok := registry.TryBeginPoll("s1", time.Now())
	assert.False(t, ok)
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	registry := NewSessionRegistry()
	require.NoError(t, registry.Register(Session{ID: "s1"}))

	// 并发Update计数，分片锁保证线性化
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Update("s1", func(sess *Session) {
				sess.NextPollInterval += time.Millisecond
			})
		}()
	}
	wg.Wait()

	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, sess.NextPollInterval)
}

func TestRegistryConcurrentTerminalRace(t *testing.T) {
	registry := NewSessionRegistry()
	require.NoError(t, registry.Register(Session{ID: "s1"}))

	// 两个终态并发写入，只有一个生效
	statuses := []model.SessionStatus{model.SessionSucceeded, model.SessionFailed}
	var wg sync.WaitGroup
	for _, st := range statuses {
		wg.Add(1)
		go func(status model.SessionStatus) {
			defer wg.Done()
			registry.Update("s1", func(sess *Session) {
				sess.Status = status
			})
		}(st)
	}
	wg.Wait()

	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.True(t, sess.IsTerminal())
	assert.Contains(t, statuses, sess.Status)
}
