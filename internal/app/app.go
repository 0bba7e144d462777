// Package app собирает зависимости сервера и управляет их жизненным циклом.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/config"
	"github.com/ignatzorin/servicehub-backend/internal/db"
	"github.com/ignatzorin/servicehub-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/servicehub-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/servicehub-backend/internal/http/router"
	"github.com/ignatzorin/servicehub-backend/internal/infrastructure/cache"
	"github.com/ignatzorin/servicehub-backend/internal/infrastructure/events"
	"github.com/ignatzorin/servicehub-backend/internal/infrastructure/persistence"
	newHandler "github.com/ignatzorin/servicehub-backend/internal/interface/http/handler"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/retry"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/scheduler"
	"github.com/ignatzorin/servicehub-backend/internal/service"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/booking"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/completion"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/review"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/statuslog"
	"github.com/ignatzorin/servicehub-backend/internal/ws"
)

const (
	// connectScanTimeout ограничивает сканирование при подключении клиента.
	connectScanTimeout = 30 * time.Second
	shutdownTimeout    = 10 * time.Second
)

type suppressionStore interface {
	completion.SuppressionSet
	io.Closer
}

type statusPublisher interface {
	completion.EventPublisher
	io.Closer
}

type namedCloser struct {
	name string
	io.Closer
}

// App хранит собранные зависимости сервера.
type App struct {
	cfg      *config.Config
	hub      *ws.Hub
	pollTask *scheduler.Task
	server   *http.Server

	// closers закрываются в обратном порядке.
	closers   []namedCloser
	closeOnce sync.Once
	closeErr  error
}

// New подключается к базе, применяет миграции и собирает граф зависимостей.
// При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("app: подключение к базе: %w", err)
	}
	a.addCloser("database", dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("app: миграции: %w", err)
	}

	healthChecks := map[string]httpHandlers.Pinger{"database": dbConn}

	// Множество недавно подтверждённых броней: Redis, если задан адрес, иначе память процесса.
	var suppressed suppressionStore
	if cfg.Redis.Addr != "" {
		redisSet := cache.NewRedisSet(cfg.Redis)
		a.addCloser("suppression set", redisSet)
		if err := redisSet.Ping(ctx); err != nil {
			return nil, fmt.Errorf("app: redis недоступен: %w", err)
		}
		healthChecks["redis"] = httpHandlers.PingFunc(redisSet.Ping)
		suppressed = redisSet
	} else {
		suppressed = cache.NewMemorySet(time.Minute)
		a.addCloser("suppression set", suppressed)
	}

	var publisher statusPublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka)
	}
	a.addCloser("status publisher", publisher)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	bookingRepo := persistence.NewBookingRepositoryAdapter(dbConn)
	statusRepo := persistence.NewStatusLogRepositoryAdapter(dbConn)
	reviewRepo := persistence.NewReviewRepositoryAdapter(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo)

	a.hub = ws.NewHub()
	a.hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))

	statusLog := statuslog.New(statusRepo)

	coordinator := completion.NewCoordinator(bookingRepo, statusLog, reviewRepo, suppressed, a.hub, publisher, completion.Options{
		SuppressionTTL: cfg.Completion.SuppressionTTL,
		StatusUpdate: retry.Strategy{
			Attempts: cfg.Completion.StatusUpdateAttempts,
			Delay:    cfg.Completion.StatusUpdateBackoff,
		},
	})
	poller := completion.NewConfirmationPoller(bookingRepo, coordinator, suppressed, a.hub, a.hub, completion.PollerOptions{
		Cooldown:  cfg.Completion.PollCooldown,
		PromptTTL: cfg.Completion.PromptTTL,
	})

	// При подключении клиента сразу проверяем, не ждёт ли его подтверждение.
	a.hub.OnConnect(func(userID uuid.UUID) {
		scanCtx, cancel := context.WithTimeout(ctx, connectScanTimeout)
		defer cancel()
		_, _ = poller.Scan(scanCtx, userID)
	})

	a.pollTask = scheduler.NewTask("confirmation_poller", cfg.Completion.PollInterval, poller.ScanConnected)

	bookingHandler := newHandler.NewBookingHandler(
		booking.NewCreateBookingUseCase(bookingRepo, statusLog, userRepo, a.hub),
		booking.NewConfirmBookingUseCase(bookingRepo, statusLog, a.hub, publisher),
		booking.NewCancelBookingUseCase(bookingRepo, statusLog, a.hub, publisher),
		booking.NewGetBookingUseCase(bookingRepo),
		booking.NewListMyBookingsUseCase(bookingRepo),
		booking.NewStatusHistoryUseCase(bookingRepo, statusLog),
	)
	reviewHandler := newHandler.NewReviewHandler(
		review.NewListProviderReviewsUseCase(reviewRepo),
		review.NewGetBookingReviewUseCase(bookingRepo, reviewRepo),
		review.NewRespondToReviewUseCase(reviewRepo, a.hub),
	)

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Auth:         httpHandlers.NewAuthHandler(authService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		WS:           httpHandlers.NewWSHandler(a.hub, tokenManager, cfg.AllowedOrigins),
		Health:       httpHandlers.NewHealthHandler(healthChecks),
		Booking:      bookingHandler,
		Completion:   newHandler.NewCompletionHandler(coordinator, poller),
		Review:       reviewHandler,
	}, tokenManager)

	a.server = &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run запускает фоновые задачи и HTTP сервер. Блокируется до отмены ctx
// или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	if err := a.pollTask.Start(ctx); err != nil {
		return fmt.Errorf("app: запуск опроса подтверждений: %w", err)
	}

	if a.hub != nil {
		goroutine.SafeGoWithContext(ctx, "ws_hub", a.hub.Run)
	}

	// Завершаем сервер при отмене контекста.
	goroutine.SafeGo("http_shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			logger.Component("app").WithError(err).Error("ошибка остановки http сервера")
		}
	})

	logger.Component("app").WithField("port", a.cfg.HTTPPort).Info("HTTP сервер запущен")

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("app: http сервер: %w", err)
	}
	return nil
}

// Close останавливает опрос и освобождает ресурсы. Повторные вызовы
// возвращают результат первого.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.pollTask != nil {
			a.pollTask.Stop()
		}

		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			c := a.closers[i]
			if err := c.Close(); err != nil {
				logger.Component("app").WithError(err).Warnf("ошибка закрытия %s", c.name)
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			}
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}

func (a *App) addCloser(name string, c io.Closer) {
	a.closers = append(a.closers, namedCloser{name: name, Closer: c})
}
