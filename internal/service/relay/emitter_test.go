package relay

import (
	"context"
	"testing"

	"astronhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterOrderAndSingleFinish(t *testing.T) {
	manager := NewEmitterManager(nil)
	em := manager.Create("sid-1")

	require.NoError(t, em.Send(model.NewContentEvent("sid-1", "assistant", "hello", "")))
	require.NoError(t, em.Send(model.NewContentEvent("sid-1", "assistant", " world", "")))
	require.NoError(t, em.Send(model.NewFinishedEvent("sid-1")))

	// 结束后任何发送被拒绝
	err := em.Send(model.NewContentEvent("sid-1", "assistant", "late", ""))
	assert.Equal(t, ErrEmitterClosed, err)
	err = em.Send(model.NewFinishedEvent("sid-1"))
	assert.Equal(t, ErrEmitterClosed, err)

	// 事件保序，finished有且仅有一次且为最后一条
	var events []model.StreamEvent
	for ev := range em.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 3)
	assert.Equal(t, "hello", events[0].Payload.Content)
	assert.Equal(t, " world", events[1].Payload.Content)
	assert.False(t, events[0].Finished)
	assert.False(t, events[1].Finished)
	assert.True(t, events[2].Finished)
}

func TestEmitterManagerSendErrorAndClose(t *testing.T) {
	manager := NewEmitterManager(nil)
	em := manager.Create("sid-1")

	manager.SendErrorAndClose("sid-1", 21001, "upstream service unavailable")

	var events []model.StreamEvent
	for ev := range em.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.Equal(t, 21001, events[0].Code)
	assert.Equal(t, "upstream service unavailable", events[0].Message)
	assert.True(t, events[0].Finished)

	// 发射器已注销
	_, ok := manager.Get("sid-1")
	assert.False(t, ok)

	// 对不存在的sid幂等
	manager.SendErrorAndClose("sid-1", 21001, "again")
}

func TestEmitterManagerReplaceExisting(t *testing.T) {
	manager := NewEmitterManager(nil)
	old := manager.Create("sid-1")
	replacement := manager.Create("sid-1")

	// 旧发射器被关闭，新发射器接管
	var oldEvents []model.StreamEvent
	for ev := range old.Events() {
		oldEvents = append(oldEvents, ev)
	}
	require.Len(t, oldEvents, 1)
	assert.True(t, oldEvents[0].Finished)

	got, ok := manager.Get("sid-1")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, 1, manager.Count())
}

func TestEmitterStopSignalInProcess(t *testing.T) {
	manager := NewEmitterManager(nil)
	manager.Create("sid-1")
	ctx := context.Background()

	assert.False(t, manager.IsStopped(ctx, "sid-1"))

	manager.RequestStop(ctx, "sid-1")
	assert.True(t, manager.IsStopped(ctx, "sid-1"))

	// Remove清除停止信号
	manager.Remove("sid-1")
	assert.False(t, manager.IsStopped(ctx, "sid-1"))
}

func TestEmitterFinishedSendTimeoutClosesChannel(t *testing.T) {
	// 缓冲写满且无人消费，结束事件写入超时
	em := &Emitter{
		sid:    "sid-1",
		events: make(chan model.StreamEvent, 1),
	}
	require.NoError(t, em.Send(model.NewContentEvent("sid-1", "assistant", "hello", "")))

	err := em.Send(model.NewFinishedEvent("sid-1"))
	assert.Equal(t, ErrEmitterBlocked, err)

	// 结束事件未入队，但通道必须已关闭，迟到的消费者不会永久阻塞
	ev, ok := <-em.Events()
	require.True(t, ok)
	assert.Equal(t, "hello", ev.Payload.Content)
	_, ok = <-em.Events()
	assert.False(t, ok)

	// 结束标记已置位，后续发送被拒绝
	err = em.Send(model.NewContentEvent("sid-1", "assistant", "late", ""))
	assert.Equal(t, ErrEmitterClosed, err)
}
