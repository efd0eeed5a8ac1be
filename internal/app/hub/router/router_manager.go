/**
 * 路由:路由管理器
 * @author: sun977
 * @date: 2026.03.18
 * @description: 路由管理器，包含Router结构体、NewRouter函数和SetupRoutes主函数
 * @func:
 */
package router

import (
	"context"

	"astronhub/internal/app/hub/middleware"
	"astronhub/internal/config"
	chatHandler "astronhub/internal/handler/chat"
	debugHandler "astronhub/internal/handler/debug"
	notificationHandler "astronhub/internal/handler/notification"
	spaceHandler "astronhub/internal/handler/space"
	authPkg "astronhub/internal/pkg/auth"
	"astronhub/internal/pkg/lock"

	// 统一使用项目封装的日志模块，便于采集规范字段与统一输出
	"astronhub/internal/pkg/logger"
	botRepo "astronhub/internal/repo/mysql/bot"
	notificationRepo "astronhub/internal/repo/mysql/notification"
	spaceRepo "astronhub/internal/repo/mysql/space"
	redisRepo "astronhub/internal/repo/redis"
	chatService "astronhub/internal/service/chat"
	notificationService "astronhub/internal/service/notification"
	relayService "astronhub/internal/service/relay"
	spaceService "astronhub/internal/service/space"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Router 路由管理器
type Router struct {
	config            *config.Config
	engine            *gin.Engine
	middlewareManager *middleware.MiddlewareManager
	// 对话/提示词相关Handler
	workflowChatHandler *chatHandler.WorkflowChatHandler
	sparkChatHandler    *chatHandler.SparkChatHandler
	promptHandler       *chatHandler.PromptHandler
	// RPA调试会话Handler
	rpaDebugHandler *debugHandler.RpaDebugHandler
	// 空间/邀请相关Handler
	spaceHandler  *spaceHandler.SpaceHandler
	inviteHandler *spaceHandler.InviteHandler
	// 站内通知Handler
	notificationHandler *notificationHandler.NotificationHandler
	// 后台组件(由App统一启停)
	scheduler       *relayService.PollScheduler
	terminalSweeper *relayService.TerminalSweeper
	inviteSweeper   *spaceService.InviteSweeper
	emitters        *relayService.EmitterManager
}

// NewRouter 创建路由管理器实例
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) (*Router, error) {
	// 内部提取需要的配置
	securityConfig := &cfg.Security

	// 初始化工具包
	jwtManager := authPkg.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.Issuer,
		cfg.Security.JWT.AccessTokenExpire,
		cfg.Security.JWT.RefreshTokenExpire,
	)
	lockManager, err := lock.NewRedisLockManager(
		redisClient,
		cfg.Lock.Prefix,
		cfg.Lock.WaitTime,
		cfg.Lock.LeaseTime,
		cfg.Lock.RetryInterval,
	)
	if err != nil {
		return nil, err
	}

	// 初始化中间件管理器
	middlewareManager := middleware.NewMiddlewareManager(jwtManager, securityConfig)

	// 初始化流式中继组件(发射器管理器/流中继/会话注册表/轮询调度器)
	signalRepo := redisRepo.NewStreamSignalRepository(redisClient)
	emitters := relayService.NewEmitterManager(signalRepo)
	streamRelay := relayService.NewStreamRelay(emitters)
	registry := relayService.NewSessionRegistry()
	poller := relayService.NewRpaPoller(&cfg.Engine.Rpa)
	scheduler := relayService.NewPollScheduler(registry, poller, cfg.Relay)
	terminalSweeper := relayService.NewTerminalSweeper(registry, cfg.Relay)

	// 初始化Repository(纯数据访问层)
	botRepository := botRepo.NewBotRepository(db)
	spaceRepository := spaceRepo.NewSpaceRepository(db)
	inviteRepository := spaceRepo.NewInviteRepository(db)
	notificationRepository := notificationRepo.NewNotificationRepository(db)

	// 初始化服务(控制器是服务集合,先初始化服务,然后服务装填成控制器)
	workflowChatSvc := chatService.NewWorkflowChatService(streamRelay, emitters, botRepository, cfg.Engine.Workflow)
	sparkChatSvc := chatService.NewSparkChatService(streamRelay, emitters, botRepository, cfg.Engine.Spark)
	promptSvc := chatService.NewPromptService(streamRelay, emitters, cfg.Engine.Enhance)
	debugSvc := relayService.NewDebugService(registry, poller, cfg.Relay)
	spaceSvc := spaceService.NewSpaceService(spaceRepository, lockManager, cfg.Space)
	inviteSvc := spaceService.NewInviteService(spaceRepository, inviteRepository, lockManager, cfg.Space)
	inviteSweeper := spaceService.NewInviteSweeper(inviteRepository, lockManager, cfg.Space.ExpireSweepSpec)
	notificationSvc := notificationService.NewNotificationService(notificationRepository, lockManager)

	// 初始化处理器
	workflowChatHdl := chatHandler.NewWorkflowChatHandler(workflowChatSvc)
	sparkChatHdl := chatHandler.NewSparkChatHandler(sparkChatSvc)
	promptHdl := chatHandler.NewPromptHandler(promptSvc)
	rpaDebugHdl := debugHandler.NewRpaDebugHandler(debugSvc)
	spaceHdl := spaceHandler.NewSpaceHandler(spaceSvc)
	inviteHdl := spaceHandler.NewInviteHandler(inviteSvc)
	notificationHdl := notificationHandler.NewNotificationHandler(notificationSvc)

	// 创建Gin引擎
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	return &Router{
		config:              cfg,
		engine:              engine,
		middlewareManager:   middlewareManager,
		workflowChatHandler: workflowChatHdl,
		sparkChatHandler:    sparkChatHdl,
		promptHandler:       promptHdl,
		rpaDebugHandler:     rpaDebugHdl,
		spaceHandler:        spaceHdl,
		inviteHandler:       inviteHdl,
		notificationHandler: notificationHdl,
		scheduler:           scheduler,
		terminalSweeper:     terminalSweeper,
		inviteSweeper:       inviteSweeper,
		emitters:            emitters,
	}, nil
}

// SetupRoutes 设置全局中间件和路由
// 在这里配置调用各个路由模块
func (r *Router) SetupRoutes() {
	// 1) 先注册全局中间件；2) 再注册各模块路由。

	// 1) 全局中间件注册
	r.registerGlobalMiddleware()

	// 2) 路由注册
	r.registerRoutes()
}

// GetEngine 获取Gin引擎实例
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// StartBackground 启动后台组件(轮询调度器/终态清理/过期邀请清理)
func (r *Router) StartBackground(ctx context.Context) error {
	r.scheduler.Start(ctx)
	if err := r.terminalSweeper.Start(); err != nil {
		return err
	}
	if err := r.inviteSweeper.Start(); err != nil {
		return err
	}
	return nil
}

// StopBackground 停止后台组件并关闭所有下行流
func (r *Router) StopBackground() {
	r.scheduler.Stop()
	r.terminalSweeper.Stop()
	r.inviteSweeper.Stop()
	r.emitters.CloseAll()
}

// registerGlobalMiddleware 注册全局中间件
// 将全局中间件的挂载集中在一个方法中，便于统一管理与测试（只需在此处验证链条顺序）
func (r *Router) registerGlobalMiddleware() {
	logger.WithFields(map[string]interface{}{
		"path":      "router_manager.registerGlobalMiddleware",
		"operation": "register_global_middleware",
		"option":    "middlewareManager.attach",
		"func_name": "router.registerGlobalMiddleware",
	}).Info("开始注册全局中间件")

	// 系统恢复中间件，防止 panic 直接导致进程崩溃
	r.engine.Use(gin.Recovery())

	if r.middlewareManager != nil {
		// 请求ID中间件
		r.engine.Use(r.middlewareManager.GinRequestIDMiddleware())
		// CORS 中间件
		r.engine.Use(r.middlewareManager.GinCORSMiddleware())
		// 安全响应头中间件
		r.engine.Use(r.middlewareManager.GinSecurityHeadersMiddleware())
		// 统一日志中间件
		r.engine.Use(r.middlewareManager.GinLoggingMiddleware())
		// 限流中间件
		r.engine.Use(r.middlewareManager.GinRateLimitMiddleware())
	}

	logger.WithFields(map[string]interface{}{
		"path":      "router_manager.registerGlobalMiddleware",
		"operation": "register_global_middleware",
		"option":    "middlewareManager.attach.done",
		"func_name": "router.registerGlobalMiddleware",
	}).Info("全局中间件注册完成")
}

// registerRoutes 注册路由
// 将"中间件注册"和"各模块路由注册"的步骤分离，提升可维护性与可测试性
func (r *Router) registerRoutes() {
	logger.WithFields(map[string]interface{}{
		"path":      "router_manager.registerRoutes",
		"operation": "register_routes",
		"option":    "routes.attach.begin",
		"func_name": "router.registerRoutes",
	}).Info("开始注册路由")

	// API 版本路由组：/api/v1
	api := r.engine.Group("/api")
	v1 := api.Group("/v1")

	// 具体模块路由注册(保持调用顺序与权限边界)
	// 对话与提示词路由（需要 JWT 认证）
	r.setupChatRoutes(v1)
	// RPA调试会话路由（需要 JWT 认证）
	r.setupDebugRoutes(v1)
	// 空间与邀请路由（需要 JWT 认证）
	r.setupSpaceRoutes(v1)
	// 站内通知路由（需要 JWT 认证）
	r.setupNotificationRoutes(v1)
	// 健康检查路由
	r.setupHealthRoutes(api)

	logger.WithFields(map[string]interface{}{
		"path":      "router_manager.registerRoutes",
		"operation": "register_routes",
		"option":    "routes.attach.done",
		"func_name": "router.registerRoutes",
	}).Info("路由注册完成")
}
