/*
 * @author: sun977
 * @date: 2026.03.18
 * @description: 主程序入口
 * @func: 初始化应用、配置路由、启动服务器、等待中断信号
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"astronhub/internal/app/hub"
	"astronhub/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "配置文件目录，留空使用默认路径")
		env        = flag.String("env", "", "运行环境(development/test/production)，留空读取环境变量")
	)
	flag.Parse()

	// 加载.env文件(不存在时忽略)
	_ = config.LoadEnvFile(".env")

	// 创建应用实例
	app, err := hub.NewApp(*configPath, *env)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	// 启动后台组件(轮询调度器/清理任务)
	if err := app.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	// 获取配置和Gin引擎
	cfg := app.GetConfig()
	engine := app.GetRouter().GetEngine()

	// 创建HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:           addr,
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器的goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 给服务器5秒钟的时间来完成现有请求
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	// 停止后台组件并释放连接
	if err := app.Stop(); err != nil {
		log.Printf("Failed to stop app cleanly: %v", err)
	}

	fmt.Println("Server exiting")
}
