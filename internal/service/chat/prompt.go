/**
 * 对话服务层:提示词增强
 * @author: sun977
 * @date: 2026.03.16
 * @description: 提示词增强/AI生成/代码生成，上游为SSE流，经中继器转发到下游
 * @func:
 * 	1.EnhancePrompt 增强已有提示词
 * 	2.GeneratePrompt 根据描述AI生成提示词
 * 	3.GenerateCode 根据描述AI生成代码
 */
package chat

import (
	"context"
	"encoding/json"
	"strings"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/logger"
	"astronhub/internal/pkg/utils"
	"astronhub/internal/service/relay"

	"github.com/google/uuid"
)

// 提示词增强引擎各能力的路径
const (
	enhancePath    = "/prompt/enhance"
	aiGeneratePath = "/prompt/ai-generate"
	aiCodePath     = "/prompt/ai-code"
)

// PromptService 提示词增强服务
type PromptService struct {
	relay    *relay.StreamRelay
	emitters *relay.EmitterManager
	cfg      config.EnhanceEngineConfig
}

// NewPromptService 创建提示词增强服务
func NewPromptService(streamRelay *relay.StreamRelay, emitters *relay.EmitterManager,
	cfg config.EnhanceEngineConfig) *PromptService {
	return &PromptService{
		relay:    streamRelay,
		emitters: emitters,
		cfg:      cfg,
	}
}

// EnhancePrompt 增强已有提示词
func (s *PromptService) EnhancePrompt(ctx context.Context, uid string, req *model.PromptEnhanceRequest) (string, *relay.Emitter, error) {
	return s.stream(ctx, uid, enhancePath, "prompt_enhance", map[string]interface{}{
		"name":   req.Name,
		"prompt": req.Prompt,
	})
}

// GeneratePrompt 根据描述AI生成提示词
func (s *PromptService) GeneratePrompt(ctx context.Context, uid string, req *model.PromptGenerateRequest) (string, *relay.Emitter, error) {
	return s.stream(ctx, uid, aiGeneratePath, "prompt_ai_generate", map[string]interface{}{
		"code":    req.Code,
		"content": req.Content,
	})
}

// GenerateCode 根据描述AI生成代码
func (s *PromptService) GenerateCode(ctx context.Context, uid string, req *model.PromptGenerateRequest) (string, *relay.Emitter, error) {
	return s.stream(ctx, uid, aiCodePath, "prompt_ai_code", map[string]interface{}{
		"code":    req.Code,
		"content": req.Content,
	})
}

// StopStream 停止指定会话的流
func (s *PromptService) StopStream(ctx context.Context, uid, sid string) {
	s.emitters.RequestStop(ctx, sid)
}

// stream 按能力路径发起上游SSE流
func (s *PromptService) stream(ctx context.Context, uid, path, operation string, payload map[string]interface{}) (string, *relay.Emitter, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, errcode.Wrap(errcode.CodeInternalError, err)
	}

	sid := uuid.NewString()
	em := s.emitters.Create(sid)

	go func() {
		_ = s.relay.RelaySSE(ctx, relay.SSEOptions{
			URL:            strings.TrimRight(s.cfg.BaseURL, "/") + path,
			Body:           body,
			ConnectTimeout: s.cfg.ConnectTimeout,
			ReadTimeout:    s.cfg.ReadTimeout,
			CallTimeout:    s.cfg.CallTimeout,
		}, em)
	}()

	logger.LogBusinessOperation(operation, uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "prompt stream started", map[string]interface{}{
			"sid":  sid,
			"path": path,
		})

	return sid, em, nil
}
