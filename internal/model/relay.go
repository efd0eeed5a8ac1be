/**
 * 模型:任务中继模型
 * @author: sun977
 * @date: 2026.03.12
 * @description: 外部长任务中继的会话状态与流式事件模型
 * @func: SessionStatus / PollResult / StreamEvent 及相关方法
 */
package model

// SessionStatus 中继会话状态枚举
type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"   // 已创建，等待首次轮询
	SessionRunning   SessionStatus = "RUNNING"   // 上游执行中
	SessionSucceeded SessionStatus = "SUCCEEDED" // 上游执行成功(终态)
	SessionFailed    SessionStatus = "FAILED"    // 上游执行失败(终态)
	SessionCanceled  SessionStatus = "CANCELED"  // 调用方主动取消(终态)
	SessionTimeout   SessionStatus = "TIMEOUT"   // 超过最长运行时间(终态)
)

// IsTerminal 判断是否为终态 [终态吸收:进入后状态不再变化]
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionSucceeded, SessionFailed, SessionCanceled, SessionTimeout:
		return true
	}
	return false
}

// PollResult 单次轮询上游返回的状态快照
type PollResult struct {
	Status       SessionStatus `json:"status"`                  // 任务最新状态
	Result       string        `json:"result,omitempty"`        // 任务产出(终态时填充)
	Message      string        `json:"message,omitempty"`       // 上游附带的提示
	NextInterval int64         `json:"next_interval,omitempty"` // 上游建议的下次轮询间隔(秒)，0表示不调整
}

// StreamPayload 流式事件负载
type StreamPayload struct {
	Role             string `json:"role,omitempty"`              // 消息角色(assistant等)
	Content          string `json:"content"`                     // 增量文本内容
	ReasoningContent string `json:"reasoning_content,omitempty"` // 思考过程增量(可为空)
}

// StreamEvent 下游SSE统一事件结构
// 同一会话内事件保序，finished=true有且仅有一次且为最后一条
type StreamEvent struct {
	Sid      string        `json:"sid"`               // 会话标识
	Code     int           `json:"code"`              // 业务码，0为正常
	Message  string        `json:"message,omitempty"` // 异常提示(code非0时填充)
	Payload  StreamPayload `json:"payload"`           // 事件负载
	Finished bool          `json:"finished"`          // 是否为结束事件
}

// NewContentEvent 构建正常内容事件
func NewContentEvent(sid, role, content, reasoning string) StreamEvent {
	return StreamEvent{
		Sid: sid,
		Payload: StreamPayload{
			Role:             role,
			Content:          content,
			ReasoningContent: reasoning,
		},
	}
}

// NewFinishedEvent 构建正常结束事件
func NewFinishedEvent(sid string) StreamEvent {
	return StreamEvent{Sid: sid, Finished: true}
}

// NewErrorEvent 构建异常结束事件 [错误事件同时也是结束事件]
func NewErrorEvent(sid string, code int, message string) StreamEvent {
	return StreamEvent{Sid: sid, Code: code, Message: message, Finished: true}
}

// RpaStartRequest RPA调试任务创建请求
type RpaStartRequest struct {
	ProjectID string                 `json:"project_id" binding:"required"` // RPA工程ID
	ExecPos   string                 `json:"exec_position"`                 // 执行位置
	Params    map[string]interface{} `json:"params"`                        // 工程入参
	APIToken  string                 `json:"-"`                             // 上游鉴权令牌(从插件配置解析，不走请求体)
}

// RpaSessionView RPA调试会话对外视图
type RpaSessionView struct {
	ID           string        `json:"id"`                // 会话ID
	Status       SessionStatus `json:"status"`            // 当前状态
	Result       string        `json:"result,omitempty"`  // 任务产出
	Message      string        `json:"message,omitempty"` // 附加提示
	RegisteredAt string        `json:"registered_at"`     // 注册时间
	LastPolledAt string        `json:"last_polled_at"`    // 最近轮询时间(未轮询过为空)
}
