/**
 * 中继服务层:RPA调试会话服务
 * @author: sun977
 * @date: 2026.03.15
 * @description: RPA调试会话的业务入口:创建上游任务并注册会话、查询状态、取消
 * @func:
 * 	1.StartSession 创建上游任务并注册中继会话
 * 	2.GetSession 查询会话视图
 * 	3.CancelSession 取消会话(终态吸收后调度器自动跳过)
 */
package relay

import (
	"context"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"
	"astronhub/internal/pkg/logger"

	"github.com/google/uuid"
)

// DebugService RPA调试会话服务
type DebugService struct {
	registry *SessionRegistry
	poller   TaskPoller
	cfg      config.RelayConfig
}

// NewDebugService 创建RPA调试会话服务
func NewDebugService(registry *SessionRegistry, poller TaskPoller, cfg config.RelayConfig) *DebugService {
	return &DebugService{
		registry: registry,
		poller:   poller,
		cfg:      cfg,
	}
}

// StartSession 创建上游任务并注册中继会话
// 返回会话ID，任务状态由调度器异步推进
func (s *DebugService) StartSession(ctx context.Context, uid string, req *model.RpaStartRequest) (string, error) {
	upstreamID, err := s.poller.CreateTask(ctx, req)
	if err != nil {
		logger.LogError(err, "", uid, "", "service.relay.StartSession", "", map[string]interface{}{
			"operation":  "create_upstream_task",
			"func_name":  "service.relay.StartSession",
			"project_id": req.ProjectID,
		})
		return "", err
	}

	sessionID := uuid.NewString()
	err = s.registry.Register(Session{
		ID:               sessionID,
		UpstreamID:       upstreamID,
		Status:           model.SessionPending,
		NextPollInterval: s.cfg.DefaultInterval,
		APIToken:         req.APIToken,
	})
	if err != nil {
		// uuid冲突在实践中不会发生，出现即为内部错误
		return "", errcode.Wrap(errcode.CodeInternalError, err)
	}

	logger.LogBusinessOperation("rpa_session_started", uid, "", "", "",
		"success", "rpa debug session registered", map[string]interface{}{
			"session_id":  sessionID,
			"upstream_id": upstreamID,
			"project_id":  req.ProjectID,
		})

	return sessionID, nil
}

// GetSession 查询会话对外视图
func (s *DebugService) GetSession(sessionID string) (*model.RpaSessionView, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodeSessionNotFound, err)
	}

	view := &model.RpaSessionView{
		ID:           sess.ID,
		Status:       sess.Status,
		Result:       sess.Result,
		Message:      sess.Message,
		RegisteredAt: logger.FormatTimestamp(sess.RegisteredAt),
	}
	if !sess.LastPolledAt.IsZero() {
		view.LastPolledAt = logger.FormatTimestamp(sess.LastPolledAt)
	}
	return view, nil
}

// CancelSession 取消会话
// 已终态的会话返回CodeSessionFinished；取消后调度器不再轮询该会话
func (s *DebugService) CancelSession(uid, sessionID string) error {
	_, err := s.registry.Update(sessionID, func(sess *Session) {
		sess.Status = model.SessionCanceled
		sess.Message = "canceled by user"
	})
	if err == ErrSessionNotFound {
		return errcode.Wrap(errcode.CodeSessionNotFound, err)
	}
	if err == ErrSessionFinished {
		return errcode.Wrap(errcode.CodeSessionFinished, err)
	}
	if err != nil {
		return errcode.Wrap(errcode.CodeInternalError, err)
	}

	logger.LogBusinessOperation("rpa_session_canceled", uid, "", "", "",
		"success", "rpa debug session canceled", map[string]interface{}{
			"session_id": sessionID,
		})
	return nil
}
