/**
 * 对话服务层:工作流对话调试
 * @author: sun977
 * @date: 2026.03.16
 * @description: 工作流调试对话与中断恢复，上游为SSE流，经中继器转发到下游
 * @func:
 * 	1.StreamChat 发起调试对话流
 * 	2.StreamResume 中断节点恢复续跑
 * 	3.StopStream 停止指定会话的流
 * @note: 调试模式下流正常跑通后给绑定助手打调试通过标记，助手才允许发布
 */
package chat

import (
	"context"
	"encoding/json"
	"time"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/logger"
	"astronhub/internal/pkg/utils"
	botrepo "astronhub/internal/repo/mysql/bot"
	"astronhub/internal/service/relay"

	"github.com/google/uuid"
)

// WorkflowChatService 工作流对话调试服务
type WorkflowChatService struct {
	relay    *relay.StreamRelay
	emitters *relay.EmitterManager
	botRepo  botrepo.BotRepository
	cfg      config.WorkflowEngineConfig
}

// NewWorkflowChatService 创建工作流对话调试服务
func NewWorkflowChatService(streamRelay *relay.StreamRelay, emitters *relay.EmitterManager,
	botRepo botrepo.BotRepository, cfg config.WorkflowEngineConfig) *WorkflowChatService {
	return &WorkflowChatService{
		relay:    streamRelay,
		emitters: emitters,
		botRepo:  botRepo,
		cfg:      cfg,
	}
}

// workflowChatUpstreamRequest 上游工作流引擎对话请求体
type workflowChatUpstreamRequest struct {
	FlowID     string                 `json:"flow_id"`
	UID        string                 `json:"uid"`
	Inputs     map[string]interface{} `json:"inputs,omitempty"`
	ChatID     string                 `json:"chat_id,omitempty"`
	Debugger   bool                   `json:"debugger"`
	Regen      bool                   `json:"regen"`
	OutputType string                 `json:"output_type,omitempty"`
	Version    string                 `json:"version,omitempty"`
}

// StreamChat 发起工作流调试对话流
// 返回会话ID和下游事件发射器，中继在后台进行，handler消费发射器即可
func (s *WorkflowChatService) StreamChat(ctx context.Context, uid string, req *model.WorkflowChatRequest) (string, *relay.Emitter, error) {
	body, err := json.Marshal(workflowChatUpstreamRequest{
		FlowID:     req.FlowID,
		UID:        uid,
		Inputs:     req.Inputs,
		ChatID:     req.ChatID,
		Debugger:   req.Debugger,
		Regen:      req.Regen,
		OutputType: req.OutputType,
		Version:    req.Version,
	})
	if err != nil {
		return "", nil, errcode.Wrap(errcode.CodeInternalError, err)
	}

	sid := uuid.NewString()
	em := s.emitters.Create(sid)

	go func() {
		relayErr := s.relay.RelaySSE(ctx, relay.SSEOptions{
			URL:            s.cfg.ChatURL,
			Body:           body,
			ConnectTimeout: s.cfg.ConnectTimeout,
			ReadTimeout:    s.cfg.ReadTimeout,
			CallTimeout:    s.cfg.CallTimeout,
		}, em)
		if relayErr != nil {
			return
		}

		// 调试模式正常跑通即视为调试通过
		if req.Debugger {
			s.markDebugPassed(uid, req.FlowID)
		}
	}()

	logger.LogBusinessOperation("workflow_chat_started", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "workflow chat stream started", map[string]interface{}{
			"sid":      sid,
			"flow_id":  req.FlowID,
			"debugger": req.Debugger,
		})

	return sid, em, nil
}

// StreamResume 恢复中断的工作流会话
func (s *WorkflowChatService) StreamResume(ctx context.Context, uid string, req *model.WorkflowResumeRequest) (string, *relay.Emitter, error) {
	body, err := json.Marshal(map[string]interface{}{
		"event_id":   req.EventID,
		"event_type": req.EventType,
		"content":    req.Content,
		"uid":        uid,
	})
	if err != nil {
		return "", nil, errcode.Wrap(errcode.CodeInternalError, err)
	}

	sid := uuid.NewString()
	em := s.emitters.Create(sid)

	go func() {
		_ = s.relay.RelaySSE(ctx, relay.SSEOptions{
			URL:            s.cfg.ResumeURL,
			Body:           body,
			ConnectTimeout: s.cfg.ConnectTimeout,
			ReadTimeout:    s.cfg.ReadTimeout,
			CallTimeout:    s.cfg.CallTimeout,
		}, em)
	}()

	logger.LogBusinessOperation("workflow_resume_started", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "workflow resume stream started", map[string]interface{}{
			"sid":      sid,
			"event_id": req.EventID,
		})

	return sid, em, nil
}

// StopStream 停止指定会话的流
func (s *WorkflowChatService) StopStream(ctx context.Context, uid, sid string) {
	s.emitters.RequestStop(ctx, sid)
	logger.LogBusinessOperation("workflow_chat_stopped", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "workflow chat stream stop requested", map[string]interface{}{
			"sid": sid,
		})
}

// markDebugPassed 给绑定该工作流的助手打调试通过标记
// 流已结束，使用独立超时上下文落库
func (s *WorkflowChatService) markDebugPassed(uid, flowID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.botRepo.MarkCanPublish(ctx, flowID, true); err != nil {
		logger.LogError(err, "", uid, "", "service.chat.markDebugPassed", "", map[string]interface{}{
			"operation": "mark_can_publish",
			"func_name": "service.chat.markDebugPassed",
			"flow_id":   flowID,
		})
		return
	}

	logger.LogBusinessOperation("workflow_debug_passed", uid, "", "", "",
		"success", "workflow debug passed, bot marked publishable", map[string]interface{}{
			"flow_id": flowID,
		})
}
