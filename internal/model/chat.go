/**
 * 模型:对话与提示词模型
 * @author: sun977
 * @date: 2026.03.12
 * @description: 工作流对话、大模型对话和提示词增强的请求/响应模型
 * @func: WorkflowChatRequest / SparkChatRequest / PromptRequest 等
 */
package model

// WorkflowChatRequest 工作流对话调试请求
type WorkflowChatRequest struct {
	FlowID     string                 `json:"flow_id" binding:"required"` // 工作流ID
	Inputs     map[string]interface{} `json:"inputs"`                     // 开始节点入参
	ChatID     string                 `json:"chat_id"`                    // 会话ID(续聊时传入)
	Debugger   bool                   `json:"debugger"`                   // 是否调试模式(调试通过会打发布标记)
	Regen      bool                   `json:"regen"`                      // 是否重新生成
	OutputType string                 `json:"output_type"`                // 输出类型(text/markdown)
	Version    string                 `json:"version"`                    // 工作流版本号
}

// WorkflowResumeRequest 工作流会话恢复请求(中断节点续跑)
type WorkflowResumeRequest struct {
	EventID   string `json:"event_id" binding:"required"` // 中断事件ID
	EventType string `json:"event_type"`                  // 事件类型
	Content   string `json:"content"`                     // 用户补充内容
}

// ChatChoiceDelta 对话补全增量内容 [与上游chat-completion分片对齐]
type ChatChoiceDelta struct {
	Role             string `json:"role,omitempty"`              // 消息角色
	Content          string `json:"content"`                     // 增量文本
	ReasoningContent string `json:"reasoning_content,omitempty"` // 思考过程增量
}

// ChatChoice 对话补全选项
type ChatChoice struct {
	Index        int             `json:"index"`                   // 选项序号
	Delta        ChatChoiceDelta `json:"delta"`                   // 增量内容
	FinishReason string          `json:"finish_reason,omitempty"` // 结束原因，"stop"表示正常结束
}

// ChatCompletionChunk 对话补全流式分片
type ChatCompletionChunk struct {
	ID      string       `json:"id"`      // 分片所属会话ID
	Created int64        `json:"created"` // 创建时间戳(秒)
	Choices []ChatChoice `json:"choices"` // 选项列表(当前仅一个)
}

// SparkChatRequest 大模型对话请求
type SparkChatRequest struct {
	BotID    string             `json:"bot_id" binding:"required"`         // 助手ID
	Messages []SparkChatMessage `json:"messages" binding:"required,min=1"` // 对话历史
}

// SparkChatMessage 大模型对话消息
type SparkChatMessage struct {
	Role    string `json:"role" binding:"required"`    // user/assistant/system
	Content string `json:"content" binding:"required"` // 消息内容
}

// PromptEnhanceRequest 提示词增强请求
type PromptEnhanceRequest struct {
	Name   string `json:"name"`                      // 助手名称
	Prompt string `json:"prompt" binding:"required"` // 待增强的提示词
}

// PromptGenerateRequest 提示词AI生成请求
type PromptGenerateRequest struct {
	Code    string `json:"code"`                       // 能力编码
	Content string `json:"content" binding:"required"` // 生成依据描述
}

// Bot 助手实体
type Bot struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement"`              // 助手ID，主键自增
	UID         string `json:"uid" gorm:"index;not null;size:64"`               // 创建者用户ID
	SpaceID     uint   `json:"space_id" gorm:"index;comment:所属空间ID,0为个人"`       // 所属空间
	Name        string `json:"name" gorm:"not null;size:100"`                   // 助手名称
	Description string `json:"description" gorm:"size:500"`                     // 助手描述
	FlowID      string `json:"flow_id" gorm:"size:64;comment:绑定的工作流ID"`         // 绑定工作流
	Prompt      string `json:"prompt" gorm:"type:text"`                         // 系统提示词
	CanPublish  bool   `json:"can_publish" gorm:"default:false;comment:调试通过标记"` // 调试通过后才允许发布
	CreatedAt   int64  `json:"created_at" gorm:"autoCreateTime"`                // 创建时间
	UpdatedAt   int64  `json:"updated_at" gorm:"autoUpdateTime"`                // 更新时间
}

// TableName 指定助手表名
func (Bot) TableName() string {
	return "bots"
}
