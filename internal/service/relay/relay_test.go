package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseUpstream 启动一个按行下发SSE帧的测试上游
func sseUpstream(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}))
}

func collectEvents(em *Emitter) []model.StreamEvent {
	var events []model.StreamEvent
	for ev := range em.Events() {
		events = append(events, ev)
	}
	return events
}

func TestRelaySSETwoChunksThenStop(t *testing.T) {
	server := sseUpstream(t, []string{
		`{"id":"sid-1","choices":[{"index":0,"delta":{"role":"assistant","content":"你好"}}]}`,
		`{"id":"sid-1","choices":[{"index":0,"delta":{"content":"，世界"},"finish_reason":""}]}`,
		`{"id":"sid-1","choices":[{"index":0,"delta":{"content":""},"finish_reason":"stop"}]}`,
	})
	defer server.Close()

	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	done := make(chan error, 1)
	go func() {
		done <- relay.RelaySSE(context.Background(), SSEOptions{
			URL:            server.URL,
			Body:           []byte(`{}`),
			ConnectTimeout: time.Second,
			ReadTimeout:    time.Second,
			CallTimeout:    5 * time.Second,
		}, em)
	}()

	events := collectEvents(em)
	require.NoError(t, <-done)

	// 上游2条内容帧 → 下游恰好2条内容事件 + 1条结束事件
	require.Len(t, events, 3)
	assert.Equal(t, "你好", events[0].Payload.Content)
	assert.Equal(t, "assistant", events[0].Payload.Role)
	assert.Equal(t, "，世界", events[1].Payload.Content)
	assert.True(t, events[2].Finished)
	assert.Equal(t, 0, events[2].Code)

	// 发射器已注销
	_, ok := manager.Get("sid-1")
	assert.False(t, ok)
}

func TestRelaySSEDoneMarker(t *testing.T) {
	server := sseUpstream(t, []string{
		`{"choices":[{"index":0,"delta":{"content":"partial"}}]}`,
		`[DONE]`,
	})
	defer server.Close()

	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	done := make(chan error, 1)
	go func() {
		done <- relay.RelaySSE(context.Background(), SSEOptions{
			URL:         server.URL,
			ReadTimeout: time.Second,
		}, em)
	}()

	events := collectEvents(em)
	require.NoError(t, <-done)
	require.Len(t, events, 2)
	assert.True(t, events[1].Finished)
}

func TestRelaySSEUpstreamBusinessError(t *testing.T) {
	server := sseUpstream(t, []string{
		`{"code":40003,"message":"flow not found"}`,
	})
	defer server.Close()

	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	done := make(chan error, 1)
	go func() {
		done <- relay.RelaySSE(context.Background(), SSEOptions{
			URL:         server.URL,
			ReadTimeout: time.Second,
		}, em)
	}()

	events := collectEvents(em)
	require.Error(t, <-done)

	// 业务失败以错误事件结束，不透传原始错误之外的内容帧
	require.Len(t, events, 1)
	assert.Equal(t, 40003, events[0].Code)
	assert.Equal(t, "flow not found", events[0].Message)
	assert.True(t, events[0].Finished)
}

func TestRelaySSETransportError(t *testing.T) {
	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	done := make(chan error, 1)
	go func() {
		done <- relay.RelaySSE(context.Background(), SSEOptions{
			URL:            "http://127.0.0.1:1/unreachable",
			ConnectTimeout: 200 * time.Millisecond,
			ReadTimeout:    time.Second,
		}, em)
	}()

	events := collectEvents(em)
	err := <-done
	require.Error(t, err)
	assert.Equal(t, errcode.CodeUpstreamTransport, errcode.CodeOf(err))

	require.Len(t, events, 1)
	assert.Equal(t, errcode.CodeUpstreamTransport, events[0].Code)
	assert.True(t, events[0].Finished)
}

func TestRelaySSEReadTimeout(t *testing.T) {
	// 上游建连后不发任何帧
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	done := make(chan error, 1)
	go func() {
		done <- relay.RelaySSE(context.Background(), SSEOptions{
			URL:         server.URL,
			ReadTimeout: 200 * time.Millisecond,
		}, em)
	}()

	events := collectEvents(em)
	err := <-done
	require.Error(t, err)
	assert.Equal(t, errcode.CodeUpstreamTimeout, errcode.CodeOf(err))

	require.Len(t, events, 1)
	assert.Equal(t, errcode.CodeUpstreamTimeout, events[0].Code)
	assert.Equal(t, "Request timeout, please try again later", events[0].Message)
	assert.True(t, events[0].Finished)
}

func TestRelaySSEStopSignal(t *testing.T) {
	// 上游持续发帧
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 100; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"c%d\"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(20 * time.Millisecond)
		}
	}))
	defer server.Close()

	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	done := make(chan error, 1)
	go func() {
		done <- relay.RelaySSE(context.Background(), SSEOptions{
			URL:         server.URL,
			ReadTimeout: time.Second,
		}, em)
	}()

	// 稍后下发停止信号
	go func() {
		time.Sleep(100 * time.Millisecond)
		manager.RequestStop(context.Background(), "sid-1")
	}()

	events := collectEvents(em)
	require.NoError(t, <-done)

	// 停止后以正常结束事件收尾
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Finished)
	assert.Equal(t, 0, last.Code)
	assert.Less(t, len(events), 100)
}

// wsUpstream 启动一个下发指定帧序列的WebSocket测试上游
func wsUpstream(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// 读取首帧请求后开始下发
		_, _, _ = conn.ReadMessage()
		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}
	}))
}

func TestRelayWebSocketHappyPath(t *testing.T) {
	server := wsUpstream(t, []string{
		`{"header":{"status":0,"code":0,"sid":"sid-1"},"payload":{"choices":{"text":[{"role":"assistant","content":"第一"}]}}}`,
		`{"header":{"status":1,"code":0,"sid":"sid-1"},"payload":{"choices":{"text":[{"role":"assistant","content":"第二","reasoning_content":"思考中"}]}}}`,
		`{"header":{"status":2,"code":0,"sid":"sid-1"},"payload":{"choices":{"text":[{"role":"assistant","content":"收尾"}]}}}`,
	})
	defer server.Close()

	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	done := make(chan error, 1)
	go func() {
		done <- relay.RelayWebSocket(context.Background(), WSOptions{
			URL:            wsURL,
			Request:        []byte(`{"header":{}}`),
			ConnectTimeout: time.Second,
			ReadTimeout:    time.Second,
			CallTimeout:    5 * time.Second,
		}, em)
	}()

	events := collectEvents(em)
	require.NoError(t, <-done)

	require.Len(t, events, 4)
	assert.Equal(t, "第一", events[0].Payload.Content)
	assert.Equal(t, "第二", events[1].Payload.Content)
	assert.Equal(t, "思考中", events[1].Payload.ReasoningContent)
	assert.Equal(t, "收尾", events[2].Payload.Content)
	assert.True(t, events[3].Finished)
}

func TestRelayWebSocketUpstreamError(t *testing.T) {
	server := wsUpstream(t, []string{
		`{"header":{"status":0,"code":10163,"message":"invalid api password","sid":"sid-1"}}`,
	})
	defer server.Close()

	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	done := make(chan error, 1)
	go func() {
		done <- relay.RelayWebSocket(context.Background(), WSOptions{
			URL:         wsURL,
			Request:     []byte(`{}`),
			ReadTimeout: time.Second,
		}, em)
	}()

	events := collectEvents(em)
	require.Error(t, <-done)

	require.Len(t, events, 1)
	assert.Equal(t, 10163, events[0].Code)
	assert.Equal(t, "invalid api password", events[0].Message)
	assert.True(t, events[0].Finished)
}

func TestRelayWebSocketConnectError(t *testing.T) {
	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	done := make(chan error, 1)
	go func() {
		done <- relay.RelayWebSocket(context.Background(), WSOptions{
			URL:            "ws://127.0.0.1:1/unreachable",
			ConnectTimeout: 200 * time.Millisecond,
			ReadTimeout:    time.Second,
		}, em)
	}()

	events := collectEvents(em)
	err := <-done
	require.Error(t, err)
	assert.Equal(t, errcode.CodeUpstreamTransport, errcode.CodeOf(err))
	require.Len(t, events, 1)
	assert.True(t, events[0].Finished)
}

func TestRelaySSEClientCancelNotTimeout(t *testing.T) {
	// 上游持续发帧
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 100; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"c%d\"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(20 * time.Millisecond)
		}
	}))
	defer server.Close()

	manager := NewEmitterManager(nil)
	relay := NewStreamRelay(manager)
	em := manager.Create("sid-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- relay.RelaySSE(ctx, SSEOptions{
			URL:         server.URL,
			ReadTimeout: time.Second,
		}, em)
	}()

	// 模拟下游断开
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	events := collectEvents(em)
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	// 取消按正常结束收尾，不误报上游超时
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Finished)
	assert.Equal(t, 0, last.Code)
}
