package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ignatzorin/servicehub-backend/internal/app"
	"github.com/ignatzorin/servicehub-backend/internal/config"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Printf("main: ошибка освобождения ресурсов: %v", err)
		}
	}()

	if err := application.Run(ctx); err != nil {
		logger.Component("main").WithError(err).Error("сервер завершился с ошибкой")
	}
}
