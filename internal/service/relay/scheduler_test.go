package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"astronhub/internal/config"
	"astronhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoller 测试用轮询器打桩
type fakePoller struct {
	mu      sync.Mutex
	polls   []time.Time
	result  *model.PollResult
	err     error
	delay   time.Duration // 模拟上游响应耗时
	inBody  int32         // 当前并发轮询数
	maxBody int32         // 观测到的最大并发轮询数
}

func (p *fakePoller) CreateTask(ctx context.Context, req *model.RpaStartRequest) (string, error) {
	return "exec-1", nil
}

func (p *fakePoller) Poll(ctx context.Context, sess Session) (*model.PollResult, error) {
	cur := atomic.AddInt32(&p.inBody, 1)
	for {
		max := atomic.LoadInt32(&p.maxBody)
		if cur <= max || atomic.CompareAndSwapInt32(&p.maxBody, max, cur) {
			break
		}
	}
	defer atomic.AddInt32(&p.inBody, -1)

	p.mu.Lock()
	p.polls = append(p.polls, time.Now())
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	if p.err != nil {
		return nil, p.err
	}
	result := p.result
	if result == nil {
		result = &model.PollResult{Status: model.SessionRunning}
	}
	return result, nil
}

func (p *fakePoller) pollCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.polls)
}

func testRelayConfig() config.RelayConfig {
	return config.RelayConfig{
		Tick:            20 * time.Millisecond,
		DefaultInterval: 200 * time.Millisecond,
		MinInterval:     20 * time.Millisecond,
		MaxRunTime:      10 * time.Second,
		TerminalTTL:     time.Minute,
		SweepSpec:       "@every 1m",
	}
}

func TestSchedulerPollTiming(t *testing.T) {
	registry := NewSessionRegistry()
	poller := &fakePoller{}
	cfg := testRelayConfig()

	scheduler := NewPollScheduler(registry, poller, cfg)
	require.NoError(t, registry.Register(Session{
		ID:               "s1",
		NextPollInterval: 200 * time.Millisecond,
	}))

	scheduler.Start(context.Background())
	time.Sleep(500 * time.Millisecond)
	scheduler.Stop()

	// 间隔200ms运行约500ms:首轮立即派发，之后约每200ms一次，共2~4次
	count := poller.pollCount()
	assert.GreaterOrEqual(t, count, 2, "expected immediate first poll plus at least one periodic poll")
	assert.LessOrEqual(t, count, 4)

	// 相邻两次派发的间隔不低于轮询间隔(允许一个滴答的调度抖动)
	poller.mu.Lock()
	defer poller.mu.Unlock()
	for i := 1; i < len(poller.polls); i++ {
		gap := poller.polls[i].Sub(poller.polls[i-1])
		assert.GreaterOrEqual(t, gap, 200*time.Millisecond-cfg.Tick,
			"polls dispatched too close together")
	}
}

func TestSchedulerInFlightGuard(t *testing.T) {
	registry := NewSessionRegistry()
	// 上游响应耗时远超轮询间隔
	poller := &fakePoller{delay: 300 * time.Millisecond}
	cfg := testRelayConfig()
	cfg.DefaultInterval = 40 * time.Millisecond

	scheduler := NewPollScheduler(registry, poller, cfg)
	require.NoError(t, registry.Register(Session{ID: "s1", NextPollInterval: 40 * time.Millisecond}))

	scheduler.Start(context.Background())
	time.Sleep(400 * time.Millisecond)
	scheduler.Stop()

	// 在途保护:同一会话任意时刻至多一个轮询
	assert.Equal(t, int32(1), atomic.LoadInt32(&poller.maxBody))
}

func TestSchedulerAdaptiveInterval(t *testing.T) {
	registry := NewSessionRegistry()
	// 上游建议间隔1秒
	poller := &fakePoller{result: &model.PollResult{Status: model.SessionRunning, NextInterval: 1}}
	cfg := testRelayConfig()

	scheduler := NewPollScheduler(registry, poller, cfg)
	require.NoError(t, registry.Register(Session{ID: "s1", NextPollInterval: 30 * time.Millisecond}))

	scheduler.Start(context.Background())
	time.Sleep(300 * time.Millisecond)
	scheduler.Stop()

	// 首轮后间隔被上游建议值接管，300ms内不会再按旧间隔轮询
	assert.LessOrEqual(t, poller.pollCount(), 2)

	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, time.Second, sess.NextPollInterval)
}

func TestSchedulerTerminalStopsPolling(t *testing.T) {
	registry := NewSessionRegistry()
	poller := &fakePoller{result: &model.PollResult{Status: model.SessionSucceeded, Result: `{"ok":true}`}}
	cfg := testRelayConfig()
	cfg.DefaultInterval = 30 * time.Millisecond

	var terminalCalls int32
	scheduler := NewPollScheduler(registry, poller, cfg)
	scheduler.SetOnTerminal(func(sess Session) {
		atomic.AddInt32(&terminalCalls, 1)
	})
	require.NoError(t, registry.Register(Session{ID: "s1", NextPollInterval: 30 * time.Millisecond}))

	scheduler.Start(context.Background())
	time.Sleep(300 * time.Millisecond)
	scheduler.Stop()

	// 首轮即终态，之后不再轮询
	assert.Equal(t, 1, poller.pollCount())
	assert.Equal(t, int32(1), atomic.LoadInt32(&terminalCalls))

	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionSucceeded, sess.Status)
	assert.Equal(t, `{"ok":true}`, sess.Result)
}

func TestSchedulerWallClockTimeout(t *testing.T) {
	registry := NewSessionRegistry()
	poller := &fakePoller{}
	cfg := testRelayConfig()
	cfg.MaxRunTime = 100 * time.Millisecond
	// 间隔拉长，超时只能由墙钟检查触发
	cfg.DefaultInterval = 10 * time.Second

	scheduler := NewPollScheduler(registry, poller, cfg)
	require.NoError(t, registry.Register(Session{ID: "s1", NextPollInterval: 10 * time.Second}))

	scheduler.Start(context.Background())
	time.Sleep(300 * time.Millisecond)
	scheduler.Stop()

	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionTimeout, sess.Status)
}

func TestSchedulerCanceledSessionSkipped(t *testing.T) {
	registry := NewSessionRegistry()
	poller := &fakePoller{}
	cfg := testRelayConfig()
	cfg.DefaultInterval = 30 * time.Millisecond

	scheduler := NewPollScheduler(registry, poller, cfg)
	require.NoError(t, registry.Register(Session{ID: "s1", NextPollInterval: 30 * time.Millisecond}))

	// 启动前取消
	_, err := registry.Update("s1", func(sess *Session) {
		sess.Status = model.SessionCanceled
	})
	require.NoError(t, err)

	scheduler.Start(context.Background())
	time.Sleep(150 * time.Millisecond)
	scheduler.Stop()

	assert.Equal(t, 0, poller.pollCount())
}

func TestSchedulerBackoffOnError(t *testing.T) {
	registry := NewSessionRegistry()
	poller := &fakePoller{err: context.DeadlineExceeded}
	cfg := testRelayConfig()

	scheduler := NewPollScheduler(registry, poller, cfg)
	require.NoError(t, registry.Register(Session{ID: "s1", NextPollInterval: 50 * time.Millisecond}))

	scheduler.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	scheduler.Stop()

	// 轮询失败后间隔翻倍
	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Greater(t, sess.NextPollInterval, 50*time.Millisecond)
}

// panicPoller 轮询即panic
type panicPoller struct{}

func (p *panicPoller) CreateTask(ctx context.Context, req *model.RpaStartRequest) (string, error) {
	return "exec-1", nil
}

func (p *panicPoller) Poll(ctx context.Context, sess Session) (*model.PollResult, error) {
	panic("upstream exploded")
}

func TestSchedulerPanicIsolation(t *testing.T) {
	registry := NewSessionRegistry()
	cfg := testRelayConfig()
	cfg.DefaultInterval = 30 * time.Millisecond

	scheduler := NewPollScheduler(registry, &panicPoller{}, cfg)
	require.NoError(t, registry.Register(Session{ID: "s1", NextPollInterval: 30 * time.Millisecond}))

	scheduler.Start(context.Background())
	time.Sleep(150 * time.Millisecond)
	// panic被隔离，调度器仍在运行且能正常停止
	scheduler.Stop()

	sess, err := registry.Get("s1")
	require.NoError(t, err)
	assert.False(t, sess.IsTerminal())
}
