package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rollarena/server"
)

// RollArena 入口：加载配置，启动 HTTP + WebSocket 服务，并初始化房间管理器
func main() {
	var (
		cfgPath string
		addr    string
	)
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides config, e.g. :8080")
	flag.Parse()

	cfg := server.DefaultConfig()
	if cfgPath != "" {
		loaded, err := server.LoadConfig(cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Listen = addr
	}

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.Log.File, cfg.Log.Level); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	rm := server.InitRoomManager(cfg.Room)
	// 先预创建一个默认房间，便于快速试跑
	_ = rm.GetOrCreateRoom("room-1")

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", rm.HandleWS)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", rm.HandleAdminConfig)
	mux.HandleFunc("/admin/gravity", rm.HandleAdminGravity)
	mux.HandleFunc("/metrics", rm.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Listen, Handler: mux}

	go func() {
		server.Log.Infof("RollArena listening on %s physics=%v players=%d",
			cfg.Listen, cfg.Room.Physics, cfg.Room.PlayerCount)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	rm.StopAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
