/**
 * 中继服务层:下游SSE发射器
 * @author: sun977
 * @date: 2026.03.14
 * @description: 按会话ID管理下游SSE事件通道，保证事件保序和单次结束
 * @func:
 * 	1.Create/Get/Remove 发射器生命周期
 * 	2.Send/SendErrorAndClose 事件下发
 * 	3.RequestStop/IsStopped 停止信号(Redis共享，多实例可见)
 * @note: 同一发射器事件严格保序；finished=true的事件有且仅有一条，之后通道关闭
 */
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"astronhub/internal/model"
	"astronhub/internal/pkg/logger"
	redisrepo "astronhub/internal/repo/redis"
)

var (
	// ErrEmitterClosed 发射器已关闭(已发出结束事件)
	ErrEmitterClosed = errors.New("emitter already closed")
	// ErrEmitterBlocked 下游消费过慢，写入超时
	ErrEmitterBlocked = errors.New("emitter send timed out")
)

// 单条事件写入下游通道的最长等待
const sendTimeout = 5 * time.Second

// 通道缓冲大小 [上游分片速率远低于缓冲消费速率，正常不会写满]
const emitterBuffer = 64

// Emitter 单会话下游事件发射器
type Emitter struct {
	sid    string
	events chan model.StreamEvent

	mu       sync.Mutex
	finished bool
}

// Sid 会话标识
func (e *Emitter) Sid() string {
	return e.sid
}

// Events 下游事件通道，结束事件发出后通道关闭
func (e *Emitter) Events() <-chan model.StreamEvent {
	return e.events
}

// Send 发送事件
// 结束事件之后的任何发送返回ErrEmitterClosed；写入超时返回ErrEmitterBlocked
func (e *Emitter) Send(ev model.StreamEvent) error {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return ErrEmitterClosed
	}
	if ev.Finished {
		e.finished = true
	}
	e.mu.Unlock()

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case e.events <- ev:
	case <-timer.C:
		// 结束标记已置位，结束事件入队失败时必须关闭通道，否则下游永远等不到结束
		if ev.Finished {
			close(e.events)
		}
		return ErrEmitterBlocked
	}

	if ev.Finished {
		close(e.events)
	}
	return nil
}

// finish 无条件补发结束事件(若尚未结束)，用于异常路径收尾
func (e *Emitter) finish(ev model.StreamEvent) {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	e.finished = true
	e.mu.Unlock()

	// 缓冲满时放弃写入，直接关闭通道让下游感知结束
	select {
	case e.events <- ev:
	default:
	}
	close(e.events)
}

// EmitterManager 发射器管理器 [sid→emitter]
type EmitterManager struct {
	mu       sync.RWMutex
	emitters map[string]*Emitter
	signals  *redisrepo.StreamSignalRepository // 可为空:为空时停止信号仅进程内可见
	stopped  map[string]struct{}               // 进程内停止信号兜底
}

// NewEmitterManager 创建发射器管理器
func NewEmitterManager(signals *redisrepo.StreamSignalRepository) *EmitterManager {
	return &EmitterManager{
		emitters: make(map[string]*Emitter),
		signals:  signals,
		stopped:  make(map[string]struct{}),
	}
}

// Create 创建并登记发射器，同sid重复创建时替换旧的并关闭它
func (m *EmitterManager) Create(sid string) *Emitter {
	em := &Emitter{
		sid:    sid,
		events: make(chan model.StreamEvent, emitterBuffer),
	}

	m.mu.Lock()
	old, exists := m.emitters[sid]
	m.emitters[sid] = em
	delete(m.stopped, sid)
	m.mu.Unlock()

	if exists {
		old.finish(model.NewErrorEvent(sid, 0, "stream replaced by new connection"))
	}
	return em
}

// Get 获取发射器
func (m *EmitterManager) Get(sid string) (*Emitter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	em, ok := m.emitters[sid]
	return em, ok
}

// Remove 注销发射器，幂等
func (m *EmitterManager) Remove(sid string) {
	m.mu.Lock()
	delete(m.emitters, sid)
	delete(m.stopped, sid)
	m.mu.Unlock()
}

// SendErrorAndClose 发出异常结束事件并注销发射器
func (m *EmitterManager) SendErrorAndClose(sid string, code int, message string) {
	m.mu.RLock()
	em, ok := m.emitters[sid]
	m.mu.RUnlock()
	if !ok {
		return
	}

	em.finish(model.NewErrorEvent(sid, code, message))
	m.Remove(sid)
}

// CloseAll 关闭并注销所有发射器，用于服务停机
func (m *EmitterManager) CloseAll() {
	m.mu.Lock()
	emitters := m.emitters
	m.emitters = make(map[string]*Emitter)
	m.stopped = make(map[string]struct{})
	m.mu.Unlock()

	for sid, em := range emitters {
		em.finish(model.NewErrorEvent(sid, 0, "server shutting down"))
	}
}

// RequestStop 下发停止信号
// Redis写入失败时降级为进程内信号，本实例持有的连接仍能停止
func (m *EmitterManager) RequestStop(ctx context.Context, sid string) {
	m.mu.Lock()
	m.stopped[sid] = struct{}{}
	m.mu.Unlock()

	if m.signals == nil {
		return
	}
	if err := m.signals.SetStopSignal(ctx, sid); err != nil {
		logger.LogError(err, "", "", "", "service.relay.RequestStop", "", map[string]interface{}{
			"operation": "set_stop_signal",
			"func_name": "service.relay.RequestStop",
			"sid":       sid,
		})
	}
}

// IsStopped 检查会话是否被要求停止
func (m *EmitterManager) IsStopped(ctx context.Context, sid string) bool {
	m.mu.RLock()
	_, local := m.stopped[sid]
	m.mu.RUnlock()
	if local {
		return true
	}

	if m.signals == nil {
		return false
	}
	stopped, err := m.signals.HasStopSignal(ctx, sid)
	if err != nil {
		// Redis不可用时按未停止处理，流继续
		return false
	}
	return stopped
}

// Count 当前活跃发射器数量
func (m *EmitterManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.emitters)
}
