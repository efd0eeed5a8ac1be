/**
 * 中继服务层:上游任务轮询器
 * @author: sun977
 * @date: 2026.03.14
 * @description: RPA执行平台HTTP客户端，负责任务创建和状态查询
 * @func:
 * 	1.CreateTask 创建上游任务
 * 	2.Poll 查询任务最新状态
 */
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"astronhub/internal/config"
	"astronhub/internal/model"
	"astronhub/internal/pkg/errcode"

	"github.com/tidwall/gjson"
)

// TaskPoller 上游任务轮询接口
// 调度器只依赖该接口，便于替换上游平台和测试打桩
type TaskPoller interface {
	// CreateTask 创建上游任务，返回上游任务标识
	CreateTask(ctx context.Context, req *model.RpaStartRequest) (string, error)
	// Poll 查询任务最新状态
	Poll(ctx context.Context, sess Session) (*model.PollResult, error)
}

// RpaPoller RPA执行平台轮询器
type RpaPoller struct {
	createURL string
	queryURL  string
	client    *http.Client
}

// NewRpaPoller 创建RPA轮询器
func NewRpaPoller(cfg *config.RpaEngineConfig) *RpaPoller {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RpaPoller{
		createURL: cfg.CreateURL,
		queryURL:  cfg.QueryURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateTask 创建上游任务
// 上游应答格式 {code, msg, data:{executionId}}，code为"0000"或0表示成功
func (p *RpaPoller) CreateTask(ctx context.Context, req *model.RpaStartRequest) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"project_id":    req.ProjectID,
		"exec_position": req.ExecPos,
		"params":        req.Params,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal create task request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.createURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build create task request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIToken)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", errcode.Wrap(errcode.CodeUpstreamTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errcode.Wrap(errcode.CodeUpstreamTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errcode.Wrapf(errcode.CodeTaskCreateFailed, nil,
			"upstream returned http %d", resp.StatusCode)
	}

	parsed := gjson.ParseBytes(raw)
	if !isUpstreamSuccess(parsed.Get("code")) {
		return "", errcode.Wrapf(errcode.CodeTaskCreateFailed, nil,
			"upstream create task failed: %s", parsed.Get("msg").String())
	}

	executionID := parsed.Get("data.executionId").String()
	if executionID == "" {
		return "", errcode.New(errcode.CodeUpstreamProtocol, "upstream response missing executionId")
	}

	return executionID, nil
}

// Poll 查询任务最新状态
func (p *RpaPoller) Poll(ctx context.Context, sess Session) (*model.PollResult, error) {
	queryURL, err := url.Parse(p.queryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid query url: %w", err)
	}
	q := queryURL.Query()
	q.Set("executionId", sess.UpstreamID)
	queryURL.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build poll request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+sess.APIToken)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodeUpstreamTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errcode.Wrap(errcode.CodeUpstreamTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errcode.Wrapf(errcode.CodeUpstreamTransport, nil,
			"upstream returned http %d", resp.StatusCode)
	}

	parsed := gjson.ParseBytes(raw)
	if !isUpstreamSuccess(parsed.Get("code")) {
		return nil, errcode.Wrapf(errcode.CodeUpstreamProtocol, nil,
			"upstream poll failed: %s", parsed.Get("msg").String())
	}

	execution := parsed.Get("data.execution")
	if !execution.Exists() {
		return nil, errcode.New(errcode.CodeUpstreamProtocol, "upstream response missing execution")
	}

	result := &model.PollResult{
		Status:       mapUpstreamStatus(execution.Get("status").String()),
		Result:       execution.Get("result").Raw,
		Message:      execution.Get("error").String(),
		NextInterval: parsed.Get("data.interval").Int(),
	}
	return result, nil
}

// isUpstreamSuccess 上游成功码兼容字符串"0000"和数字0两种形态
func isUpstreamSuccess(code gjson.Result) bool {
	if !code.Exists() {
		return false
	}
	switch code.Type {
	case gjson.String:
		return code.String() == "0000" || code.String() == "0"
	default:
		return code.Int() == 0
	}
}

// mapUpstreamStatus 上游任务状态到会话状态的映射
func mapUpstreamStatus(status string) model.SessionStatus {
	switch strings.ToUpper(status) {
	case "PENDING", "CREATED", "QUEUED":
		return model.SessionPending
	case "EXECUTING", "RUNNING":
		return model.SessionRunning
	case "COMPLETED", "SUCCESS", "SUCCEEDED":
		return model.SessionSucceeded
	case "FAILED", "ERROR":
		return model.SessionFailed
	case "CANCELED", "CANCELLED":
		return model.SessionCanceled
	default:
		// 未知状态按执行中处理，等待上游收敛
		return model.SessionRunning
	}
}
