package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/clube-quinze/club-api/internal/api/http"
	"github.com/clube-quinze/club-api/internal/api/http/handlers"
	"github.com/clube-quinze/club-api/internal/auth"
	"github.com/clube-quinze/club-api/internal/config"
	"github.com/clube-quinze/club-api/internal/events"
	"github.com/clube-quinze/club-api/internal/notify"
	"github.com/clube-quinze/club-api/internal/observability"
	"github.com/clube-quinze/club-api/internal/persistence"
	"github.com/clube-quinze/club-api/internal/repository"
	"github.com/clube-quinze/club-api/internal/repository/memory"
	"github.com/clube-quinze/club-api/internal/scheduling"
	"github.com/clube-quinze/club-api/internal/service"
	"github.com/clube-quinze/club-api/internal/worker"
)

type repositories struct {
	users        repository.UserRepository
	appointments repository.AppointmentRepository
	pushTokens   repository.PushTokenRepository
	deliveries   repository.PushDeliveryRepository
	resets       repository.PasswordResetRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	settings, err := cfg.Scheduling.Settings()
	if err != nil {
		logger.Fatal("invalid scheduling config", zap.Error(err))
	}
	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	if err := pg.RegisterMetrics(metrics.Registry()); err != nil {
		logger.Warn("postgres pool metrics", zap.Error(err))
	}
	if err := redis.RegisterMetrics(metrics.Registry()); err != nil {
		logger.Warn("redis pool metrics", zap.Error(err))
	}

	repos := buildRepositories(pg)
	clock := scheduling.SystemClock{}

	var ledger repository.ReminderLedger = memory.NewReminderLedger()
	if redis.Enabled() {
		ledger = repository.NewRedisReminderLedger(redis.Client, time.Duration(cfg.Workers.ReminderLedgerTTLHour)*time.Hour)
	}

	var email notify.EmailSender
	if cfg.Notification.EmailEnabled() {
		email = notify.NewSMTPSender(cfg.Notification.SMTPHost, cfg.Notification.SMTPPort, cfg.Notification.EmailFrom)
	}
	push := notify.NewExpoClient(cfg.Notification.PushEndpoint, cfg.Notification.PushAccessToken,
		time.Duration(cfg.Notification.PushTimeoutSec)*time.Second)

	queue := worker.NewEventQueue(events.NewInMemoryDispatcher(), cfg.Workers.EventQueueSize, cfg.Workers.EventWorkers, logger, metrics)

	appointmentService := service.NewAppointmentService(service.AppointmentDependencies{
		AppointmentRepo: repos.appointments,
		UserRepo:        repos.users,
		Dispatcher:      queue,
		Clock:           clock,
		Settings:        settings,
		Logger:          logger,
		Metrics:         metrics,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          repos.users,
		PasswordResetRepo: repos.resets,
		Dispatcher:        queue,
		Email:             email,
		Clock:             clock,
		Logger:            logger,
	})
	pushService := service.NewPushNotificationService(service.PushDependencies{
		TokenRepo:    repos.pushTokens,
		DeliveryRepo: repos.deliveries,
		UserRepo:     repos.users,
		Push:         push,
		Email:        email,
		Clock:        clock,
		Logger:       logger,
		Metrics:      metrics,
	})
	reminderService := service.NewReminderService(service.ReminderDependencies{
		AppointmentRepo: repos.appointments,
		Ledger:          ledger,
		Sender:          pushService,
		Clock:           clock,
		Settings:        settings,
		Logger:          logger,
		Metrics:         metrics,
	})

	service.NewNotificationService(queue, pushService, settings, logger).RegisterHandlers()
	service.NewRecurringService(appointmentService, repos.users, queue, logger, metrics).RegisterHandlers()

	kafkaWriter := events.NewKafkaWriter(cfg.Kafka.Brokers)
	if kafkaWriter != nil {
		events.NewKafkaForwarder(kafkaWriter, cfg.Kafka.Topic, logger).Register(queue)
		logger.Info("forwarding appointment events to kafka", zap.String("topic", cfg.Kafka.Topic))
	}

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		queue.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		worker.NewReminderWorker(reminderService, time.Duration(cfg.Workers.ReminderIntervalSec)*time.Second, logger).Run(ctx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService),
		Appointments:   handlers.NewAppointmentsHandler(appointmentService),
		Notifications:  handlers.NewNotificationsHandler(pushService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
		BookingLimit:   bookingLimiter(cfg.RateLimit, redis, logger),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	workers.Wait()
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Warn("kafka writer close", zap.Error(err))
		}
	}
}

func buildRepositories(pg *persistence.Postgres) repositories {
	if !pg.Enabled() {
		return repositories{
			users:        memory.NewUserStore(),
			appointments: memory.NewAppointmentStore(),
			pushTokens:   memory.NewPushTokenStore(),
			deliveries:   memory.NewPushDeliveryStore(),
			resets:       memory.NewPasswordResetStore(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		users:        repository.NewUserRepository(pool),
		appointments: repository.NewAppointmentRepository(pool),
		pushTokens:   repository.NewPushTokenRepository(pool),
		deliveries:   repository.NewPushDeliveryRepository(pool),
		resets:       repository.NewPasswordResetRepository(pool),
	}
}

func bookingLimiter(cfg config.RateLimitConfig, redis *persistence.Redis, logger *zap.Logger) fiber.Handler {
	if !cfg.Enabled {
		return nil
	}
	var limiter httptransport.Limiter = httptransport.NewMemoryLimiter(cfg.Requests, cfg.Window())
	if redis.Enabled() {
		limiter = httptransport.NewRedisLimiter(redis.Client, cfg.Requests, cfg.Window(), "club:booking")
	}
	return httptransport.RateLimit(limiter, logger, cfg.FailOpen)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
