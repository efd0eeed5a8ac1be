/**
 * 中继服务层:会话注册表
 * @author: sun977
 * @date: 2026.03.14
 * @description: 外部长任务会话的进程内注册表，分片加锁支撑高并发读写
 * @func:
 * 	1.Register/Get/Update/All/Remove 会话生命周期管理
 * 	2.TryBeginPoll/EndPoll 轮询在途标记
 * @note: 终态吸收:会话进入终态后任何Update都不再生效
 */
package relay

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"astronhub/internal/model"
)

// 注册表分片数 [固定2的幂，fnv哈希按位与取片]
const shardCount = 16

var (
	// ErrDuplicateSession 会话ID已注册
	ErrDuplicateSession = errors.New("session already registered")
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionFinished 会话已进入终态
	ErrSessionFinished = errors.New("session already finished")
)

// Session 中继会话
// 注册表内部持有指针，对外所有读取均返回值拷贝
type Session struct {
	ID               string              // 会话标识
	UpstreamID       string              // 上游任务标识(轮询时使用)
	Status           model.SessionStatus // 当前状态
	NextPollInterval time.Duration       // 下次轮询间隔
	APIToken         string              // 上游鉴权令牌
	Result           string              // 任务产出(终态时填充)
	Message          string              // 附加提示
	RegisteredAt     time.Time           // 注册时间
	LastPolledAt     time.Time           // 最近一次轮询派发时间(零值表示尚未轮询)
	FinishedAt       time.Time           // 进入终态的时间(零值表示未结束)

	inFlight bool // 是否有轮询在途(由调度器维护)
}

// IsTerminal 判断会话是否已进入终态
func (s *Session) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// registryShard 注册表分片
type registryShard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// SessionRegistry 会话注册表
type SessionRegistry struct {
	shards [shardCount]*registryShard
}

// NewSessionRegistry 创建会话注册表
func NewSessionRegistry() *SessionRegistry {
	r := &SessionRegistry{}
	for i := range r.shards {
		r.shards[i] = &registryShard{
			sessions: make(map[string]*Session),
		}
	}
	return r
}

// shardOf 根据会话ID哈希取分片
func (r *SessionRegistry) shardOf(id string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return r.shards[h.Sum32()&(shardCount-1)]
}

// Register 注册新会话
// 状态缺省为PENDING，注册时间取当前时刻；ID重复返回ErrDuplicateSession
func (r *SessionRegistry) Register(sess Session) error {
	if sess.Status == "" {
		sess.Status = model.SessionPending
	}
	if sess.RegisteredAt.IsZero() {
		sess.RegisteredAt = time.Now()
	}

	shard := r.shardOf(sess.ID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, exists := shard.sessions[sess.ID]; exists {
		return ErrDuplicateSession
	}
	shard.sessions[sess.ID] = &sess
	return nil
}

// Get 获取会话快照
func (r *SessionRegistry) Get(id string) (Session, error) {
	shard := r.shardOf(id)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	sess, exists := shard.sessions[id]
	if !exists {
		return Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

// Update 在分片锁内应用变更函数，返回更新后的快照
// 同一会话的Update串行执行；会话已终态时不执行变更，返回ErrSessionFinished
func (r *SessionRegistry) Update(id string, fn func(*Session)) (Session, error) {
	shard := r.shardOf(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	sess, exists := shard.sessions[id]
	if !exists {
		return Session{}, ErrSessionNotFound
	}
	if sess.IsTerminal() {
		return *sess, ErrSessionFinished
	}

	fn(sess)
	// 终态落点时间由注册表统一记录
	if sess.IsTerminal() && sess.FinishedAt.IsZero() {
		sess.FinishedAt = time.Now()
	}
	return *sess, nil
}

// All 返回所有会话的快照副本
// 调度器遍历使用，持锁时间只覆盖拷贝过程
func (r *SessionRegistry) All() []Session {
	result := make([]Session, 0, 64)
	for _, shard := range r.shards {
		shard.mu.RLock()
		for _, sess := range shard.sessions {
			result = append(result, *sess)
		}
		shard.mu.RUnlock()
	}
	return result
}

// Remove 移除会话，幂等:不存在时静默返回
func (r *SessionRegistry) Remove(id string) {
	shard := r.shardOf(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.sessions, id)
}

// Count 当前会话总数
func (r *SessionRegistry) Count() int {
	total := 0
	for _, shard := range r.shards {
		shard.mu.RLock()
		total += len(shard.sessions)
		shard.mu.RUnlock()
	}
	return total
}

// TryBeginPoll 尝试标记会话进入轮询在途状态
// 派发前置检查与lastPolledAt推进在同一临界区内完成:
// 已在途、已终态或会话不存在时返回false，不会重复派发
func (r *SessionRegistry) TryBeginPoll(id string, now time.Time) (Session, bool) {
	shard := r.shardOf(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	sess, exists := shard.sessions[id]
	if !exists || sess.inFlight || sess.IsTerminal() {
		return Session{}, false
	}

	// lastPolledAt单调推进，在派发时刻而不是应答时刻更新
	if now.After(sess.LastPolledAt) {
		sess.LastPolledAt = now
	}
	sess.inFlight = true
	return *sess, true
}

// EndPoll 清除轮询在途标记，幂等
func (r *SessionRegistry) EndPoll(id string) {
	shard := r.shardOf(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if sess, exists := shard.sessions[id]; exists {
		sess.inFlight = false
	}
}
