// cmd/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solar-sync/internal/config"
	"solar-sync/internal/di"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// DI 컨테이너 생성
	container, err := di.NewContainer(cfg)
	if err != nil {
		panic("Failed to create DI container: " + err.Error())
	}
	defer container.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MQTT 구독 및 작업자 시작
	if err := container.Start(ctx); err != nil {
		container.Logger.Fatalf("Failed to start solar sync service: %v", err)
	}

	// HTTP 서버 시작
	serverErr := make(chan error, 1)
	go func() {
		container.Logger.Infof("🌐 HTTP server listening on %s", cfg.HTTPAddr)
		if err := container.Echo.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	container.Logger.Infof("🎯 Solar sync started successfully")
	container.Logger.Infof("📊 Services initialized:")
	container.Logger.Infof("   ✅ Device Store (Redis)")
	container.Logger.Infof("   ✅ MQTT Transport (prefix=%s)", cfg.MQTTTopicPrefix)
	container.Logger.Infof("   ✅ Dust Ingestor (%s)", cfg.WeatherProvider)
	container.Logger.Infof("   ✅ Auto Cleaner (every %v)", cfg.WorkerInterval)

	// 우아한 종료 처리
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		container.Logger.Infof("🛑 Shutdown signal received")
	case err := <-serverErr:
		container.Logger.Errorf("❌ HTTP server failed: %v", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := container.Echo.Shutdown(shutdownCtx); err != nil {
		container.Logger.Errorf("HTTP server shutdown failed: %v", err)
	}
	container.AutoCleaner.Wait()

	container.Logger.Infof("✅ Solar sync shutdown completed")
}
