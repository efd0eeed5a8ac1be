/**
 * 对话服务层:大模型对话
 * @author: sun977
 * @date: 2026.03.16
 * @description: 基于助手提示词的大模型对话，上游为WebSocket流，经中继器转发到下游SSE
 * @func:
 * 	1.StreamChat 发起大模型对话流
 * 	2.StopStream 停止指定会话的流
 */
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/logger"
	"astronhub/internal/pkg/utils"
	botrepo "astronhub/internal/repo/mysql/bot"
	"astronhub/internal/service/relay"

	"github.com/google/uuid"
)

// SparkChatService 大模型对话服务
type SparkChatService struct {
	relay    *relay.StreamRelay
	emitters *relay.EmitterManager
	botRepo  botrepo.BotRepository
	cfg      config.SparkEngineConfig
}

// NewSparkChatService 创建大模型对话服务
func NewSparkChatService(streamRelay *relay.StreamRelay, emitters *relay.EmitterManager,
	botRepo botrepo.BotRepository, cfg config.SparkEngineConfig) *SparkChatService {
	return &SparkChatService{
		relay:    streamRelay,
		emitters: emitters,
		botRepo:  botRepo,
		cfg:      cfg,
	}
}

// StreamChat 发起大模型对话流
// 助手提示词作为system消息置于对话历史最前
func (s *SparkChatService) StreamChat(ctx context.Context, uid string, req *model.SparkChatRequest) (string, *relay.Emitter, error) {
	botID, err := strconv.ParseUint(req.BotID, 10, 64)
	if err != nil {
		return "", nil, errcode.Wrapf(errcode.CodeInvalidParam, err, "invalid bot_id: %s", req.BotID)
	}

	bot, err := s.botRepo.GetByID(ctx, uint(botID))
	if err != nil {
		return "", nil, errcode.Wrap(errcode.CodeInternalError, err)
	}
	if bot == nil {
		return "", nil, errcode.New(errcode.CodeNotFound, "bot not found")
	}

	messages := make([]model.SparkChatMessage, 0, len(req.Messages)+1)
	if bot.Prompt != "" {
		messages = append(messages, model.SparkChatMessage{Role: "system", Content: bot.Prompt})
	}
	messages = append(messages, req.Messages...)

	sid := uuid.NewString()
	request, err := json.Marshal(map[string]interface{}{
		"header": map[string]interface{}{
			"uid": uid,
			"sid": sid,
		},
		"payload": map[string]interface{}{
			"message": map[string]interface{}{
				"text": messages,
			},
		},
	})
	if err != nil {
		return "", nil, errcode.Wrap(errcode.CodeInternalError, err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.APIPassword)

	em := s.emitters.Create(sid)
	go func() {
		_ = s.relay.RelayWebSocket(ctx, relay.WSOptions{
			URL:            s.cfg.WsURL,
			Header:         header,
			Request:        request,
			ConnectTimeout: s.cfg.ConnectTimeout,
			ReadTimeout:    s.cfg.ReadTimeout,
			CallTimeout:    s.cfg.CallTimeout,
		}, em)
	}()

	logger.LogBusinessOperation("spark_chat_started", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "spark chat stream started", map[string]interface{}{
			"sid":    sid,
			"bot_id": bot.ID,
		})

	return sid, em, nil
}

// StopStream 停止指定会话的流
func (s *SparkChatService) StopStream(ctx context.Context, uid, sid string) {
	s.emitters.RequestStop(ctx, sid)
	logger.LogBusinessOperation("spark_chat_stopped", uid, "", utils.GetClientIPFromContext(ctx), "",
		"success", "spark chat stream stop requested", map[string]interface{}{
			"sid": sid,
		})
}
