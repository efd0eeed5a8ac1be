/**
 * 应用:应用程序组装
 * @author: sun977
 * @date: 2026.03.18
 * @description: 应用程序结构体，负责配置加载、日志初始化、数据库/Redis连接与路由组装
 * @func:
 * 	1.NewApp 创建应用实例
 * 	2.Start 启动后台组件
 * 	3.Stop 停止后台组件并释放连接
 */
package hub

import (
	"context"
	"fmt"

	"astronhub/internal/app/hub/router"
	"astronhub/internal/config"
	"astronhub/internal/pkg/database"
	"astronhub/internal/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App 应用程序结构体
type App struct {
	config      *config.Config
	db          *gorm.DB
	redisClient *redis.Client
	router      *router.Router
	cancel      context.CancelFunc
}

// NewApp 创建新的应用程序实例
// 组装顺序:配置 → 日志 → MySQL/Redis → 路由管理器
func NewApp(configPath, env string) (*App, error) {
	// 加载配置
	cfg, err := config.LoadConfig(configPath, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化日志
	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 连接MySQL
	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}

	// 连接Redis
	redisClient, err := database.NewRedisConnection(&cfg.Database.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	// 初始化路由器
	r, err := router.NewRouter(db, redisClient, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	// 设置路由
	r.SetupRoutes()

	return &App{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		router:      r,
	}, nil
}

// GetConfig 获取配置实例
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// Start 启动应用程序后台组件(轮询调度器/清理任务)
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.router.StartBackground(ctx); err != nil {
		cancel()
		return err
	}

	logger.LogSystemEvent("app", "app_started", "application started", logrus.InfoLevel, map[string]interface{}{
		"operation": "app_start",
		"func_name": "hub.App.Start",
		"env":       config.GetEnv(),
	})
	return nil
}

// Stop 停止应用程序后台组件并释放连接
func (a *App) Stop() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.router.StopBackground()

	// 关闭数据库连接
	if sqlDB, err := a.db.DB(); err == nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.LogSystemEvent("app", "mysql_close_failed", closeErr.Error(), logrus.WarnLevel, map[string]interface{}{
				"operation": "app_stop",
				"func_name": "hub.App.Stop",
			})
		}
	}

	// 关闭Redis连接
	if err := a.redisClient.Close(); err != nil {
		logger.LogSystemEvent("app", "redis_close_failed", err.Error(), logrus.WarnLevel, map[string]interface{}{
			"operation": "app_stop",
			"func_name": "hub.App.Stop",
		})
	}

	logger.LogSystemEvent("app", "app_stopped", "application stopped", logrus.InfoLevel, map[string]interface{}{
		"operation": "app_stop",
		"func_name": "hub.App.Stop",
	})
	return nil
}
