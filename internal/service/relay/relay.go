/**
 * 中继服务层:流式中继
 * @author: sun977
 * @date: 2026.03.15
 * @description: 把上游SSE/WebSocket流桥接到下游SSE发射器
 * @func:
 * 	1.RelaySSE 上游SSE→下游SSE
 * 	2.RelayWebSocket 上游WebSocket→下游SSE
 * @note:
 * 	- 连接超时、单帧读取超时、整体调用超时相互独立
 * 	- 上游异常不透传原始错误:归类为传输/协议/超时错误事件后结束流
 * 	- 事件顺序与上游一致，由单goroutine读取保证
 */
package relay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// SSEOptions 上游SSE中继参数
type SSEOptions struct {
	URL            string
	Body           []byte
	Headers        map[string]string
	ConnectTimeout time.Duration // 建连超时
	ReadTimeout    time.Duration // 单帧读取超时
	CallTimeout    time.Duration // 整体调用超时
}

// WSOptions 上游WebSocket中继参数
type WSOptions struct {
	URL            string
	Header         http.Header
	Request        []byte        // 建连后发送的首帧请求
	ConnectTimeout time.Duration // 建连超时
	ReadTimeout    time.Duration // 单帧读取超时
	CallTimeout    time.Duration // 整体调用超时
}

// StreamRelay 流式中继器
type StreamRelay struct {
	emitters *EmitterManager
}

// NewStreamRelay 创建流式中继器
func NewStreamRelay(emitters *EmitterManager) *StreamRelay {
	return &StreamRelay{
		emitters: emitters,
	}
}

// sseFrame 上游SSE读取结果
type sseFrame struct {
	data string
	err  error
}

// RelaySSE 把上游SSE流转发到发射器
// 返回时发射器必然已结束(正常结束或错误结束)
func (r *StreamRelay) RelaySSE(ctx context.Context, opts SSEOptions, em *Emitter) error {
	sid := em.Sid()

	callCtx := ctx
	if opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, opts.CallTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, opts.URL, bytes.NewReader(opts.Body))
	if err != nil {
		return r.abort(sid, errcode.CodeUpstreamTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: opts.ConnectTimeout,
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return r.abort(sid, errcode.CodeUpstreamTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return r.abort(sid, errcode.CodeUpstreamTransport,
			errcode.Wrapf(errcode.CodeUpstreamTransport, nil, "upstream returned http %d", resp.StatusCode))
	}

	// 独立goroutine逐行读取，主循环按单帧超时消费
	frames := make(chan sseFrame, 8)
	go func() {
		defer close(frames)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, ":") {
				continue
			}
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			frames <- sseFrame{data: strings.TrimSpace(strings.TrimPrefix(line, "data:"))}
		}
		if err := scanner.Err(); err != nil {
			frames <- sseFrame{err: err}
		}
	}()

	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = time.Minute
	}
	readTimer := time.NewTimer(readTimeout)
	defer readTimer.Stop()

	for {
		// 帧间检查停止信号
		if r.emitters.IsStopped(ctx, sid) {
			r.finishNormally(sid, em)
			return nil
		}

		if !readTimer.Stop() {
			select {
			case <-readTimer.C:
			default:
			}
		}
		readTimer.Reset(readTimeout)

		select {
		case <-callCtx.Done():
			// 调用方主动取消(如下游断开)不算上游超时
			if errors.Is(callCtx.Err(), context.Canceled) {
				r.finishNormally(sid, em)
				return callCtx.Err()
			}
			return r.abort(sid, errcode.CodeUpstreamTimeout, callCtx.Err())

		case <-readTimer.C:
			return r.abort(sid, errcode.CodeUpstreamTimeout, nil)

		case frame, ok := <-frames:
			if !ok {
				// 上游未发结束帧就断开，按协议异常收尾
				return r.abort(sid, errcode.CodeUpstreamProtocol, nil)
			}
			if frame.err != nil {
				// 取消会以读错误形式从读取goroutine冒出来
				if errors.Is(frame.err, context.Canceled) {
					r.finishNormally(sid, em)
					return frame.err
				}
				return r.abort(sid, errcode.CodeUpstreamTransport, frame.err)
			}
			if frame.data == "[DONE]" {
				r.finishNormally(sid, em)
				return nil
			}

			finished, err := r.forwardChatChunk(sid, em, frame.data)
			if err != nil {
				return err
			}
			if finished {
				return nil
			}
		}
	}
}

// forwardChatChunk 解析chat-completion分片并转发
// finish_reason=="stop"表示正常结束；分片内code非0表示上游业务失败
func (r *StreamRelay) forwardChatChunk(sid string, em *Emitter, data string) (bool, error) {
	parsed := gjson.Parse(data)
	if !parsed.IsObject() {
		return true, r.abort(sid, errcode.CodeUpstreamProtocol, nil)
	}

	if code := parsed.Get("code"); code.Exists() && code.Int() != 0 {
		msg := parsed.Get("message").String()
		if msg == "" {
			msg = errcode.MessageOf(errcode.CodeUpstreamProtocol)
		}
		r.emitters.SendErrorAndClose(sid, int(code.Int()), msg)
		return true, errcode.New(int(code.Int()), msg)
	}

	choice := parsed.Get("choices.0")
	if choice.Exists() {
		delta := choice.Get("delta")
		content := delta.Get("content").String()
		reasoning := delta.Get("reasoning_content").String()
		if content != "" || reasoning != "" {
			ev := model.NewContentEvent(sid, delta.Get("role").String(), content, reasoning)
			if err := em.Send(ev); err != nil {
				r.emitters.Remove(sid)
				return true, err
			}
		}

		if choice.Get("finish_reason").String() == "stop" {
			r.finishNormally(sid, em)
			return true, nil
		}
	}

	return false, nil
}

// RelayWebSocket 把上游WebSocket流转发到发射器
// 帧格式: header{status,code,message,sid} + payload，header.status==2为最后一帧
func (r *StreamRelay) RelayWebSocket(ctx context.Context, opts WSOptions, em *Emitter) error {
	sid := em.Sid()

	deadline := time.Time{}
	if opts.CallTimeout > 0 {
		deadline = time.Now().Add(opts.CallTimeout)
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: opts.ConnectTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, opts.URL, opts.Header)
	if err != nil {
		return r.abort(sid, errcode.CodeUpstreamTransport, err)
	}
	defer conn.Close()

	if len(opts.Request) > 0 {
		if err := conn.WriteMessage(websocket.TextMessage, opts.Request); err != nil {
			return r.abort(sid, errcode.CodeUpstreamTransport, err)
		}
	}

	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = time.Minute
	}

	for {
		if r.emitters.IsStopped(ctx, sid) {
			r.finishNormally(sid, em)
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return r.abort(sid, errcode.CodeUpstreamTimeout, nil)
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if isTimeoutError(err) {
				return r.abort(sid, errcode.CodeUpstreamTimeout, err)
			}
			return r.abort(sid, errcode.CodeUpstreamTransport, err)
		}

		finished, err := r.forwardWSFrame(sid, em, raw)
		if err != nil {
			return err
		}
		if finished {
			return nil
		}
	}
}

// forwardWSFrame 解析上游WebSocket帧并转发
func (r *StreamRelay) forwardWSFrame(sid string, em *Emitter, raw []byte) (bool, error) {
	parsed := gjson.ParseBytes(raw)
	header := parsed.Get("header")
	if !header.Exists() {
		return true, r.abort(sid, errcode.CodeUpstreamProtocol, nil)
	}

	if code := header.Get("code").Int(); code != 0 {
		msg := header.Get("message").String()
		if msg == "" {
			msg = errcode.MessageOf(errcode.CodeUpstreamProtocol)
		}
		r.emitters.SendErrorAndClose(sid, int(code), msg)
		return true, errcode.New(int(code), msg)
	}

	// 内容可能在choices.text数组或message单对象两种形态
	texts := parsed.Get("payload.choices.text")
	if texts.IsArray() {
		for _, item := range texts.Array() {
			content := item.Get("content").String()
			reasoning := item.Get("reasoning_content").String()
			if content == "" && reasoning == "" {
				continue
			}
			ev := model.NewContentEvent(sid, item.Get("role").String(), content, reasoning)
			if err := em.Send(ev); err != nil {
				r.emitters.Remove(sid)
				return true, err
			}
		}
	} else if msg := parsed.Get("payload.message"); msg.Exists() {
		content := msg.Get("content").String()
		if content != "" {
			ev := model.NewContentEvent(sid, msg.Get("role").String(), content, "")
			if err := em.Send(ev); err != nil {
				r.emitters.Remove(sid)
				return true, err
			}
		}
	}

	// status==2 表示上游最后一帧
	if header.Get("status").Int() == 2 {
		r.finishNormally(sid, em)
		return true, nil
	}

	return false, nil
}

// finishNormally 发出正常结束事件并注销发射器
func (r *StreamRelay) finishNormally(sid string, em *Emitter) {
	if err := em.Send(model.NewFinishedEvent(sid)); err != nil && err != ErrEmitterClosed {
		logger.LogError(err, "", "", "", "service.relay.finishNormally", "", map[string]interface{}{
			"operation": "send_finished_event",
			"func_name": "service.relay.finishNormally",
			"sid":       sid,
		})
	}
	r.emitters.Remove(sid)
}

// abort 按错误类型发出异常结束事件并注销发射器
func (r *StreamRelay) abort(sid string, code int, cause error) error {
	message := errcode.MessageOf(code)

	r.emitters.SendErrorAndClose(sid, code, message)

	err := errcode.Wrap(code, cause)
	logger.LogError(err, "", "", "", "service.relay.abort", "", map[string]interface{}{
		"operation": "abort_stream",
		"func_name": "service.relay.abort",
		"sid":       sid,
		"code":      code,
	})
	return err
}

// isTimeoutError 判断是否为读超时
func isTimeoutError(err error) bool {
	type timeout interface {
		Timeout() bool
	}
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}
	return false
}
