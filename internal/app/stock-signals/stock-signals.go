// Package stocksignals собирает HTTP-приложение: хранилище, кеш,
// платёжные шлюзы, сервисы и маршруты.
package stocksignals

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/stock-signals/internal/cache"
	"github.com/magabrotheeeer/stock-signals/internal/config"
	"github.com/magabrotheeeer/stock-signals/internal/gateway"
	"github.com/magabrotheeeer/stock-signals/internal/lib/jwt"
	"github.com/magabrotheeeer/stock-signals/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/stock-signals/internal/migrations"
	"github.com/magabrotheeeer/stock-signals/internal/models"
	authservice "github.com/magabrotheeeer/stock-signals/internal/services/auth"
	billingservice "github.com/magabrotheeeer/stock-signals/internal/services/billing"
	signalservice "github.com/magabrotheeeer/stock-signals/internal/services/signals"
	"github.com/magabrotheeeer/stock-signals/internal/storage/repository"
)

// App — собранное HTTP-приложение.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New собирает приложение из конфигурации: подключения, миграции,
// сервисы и маршруты. Уведомления по RabbitMQ опциональны: при пустом
// rabbitmq_url доступ выдается без писем.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, jwtMaker)

	registry, err := gateway.NewRegistry(
		models.Gateway(cfg.ActiveGateway),
		gateway.NewStripeAdapter(cfg.Stripe, cfg.FrontendURL),
		gateway.NewRazorpayAdapter(cfg.Razorpay),
	)
	if err != nil {
		return nil, err
	}

	var amqpConn *amqp.Connection
	var notifier billingservice.Notifier
	if cfg.RabbitMQURL != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(amqpConn, rabbitmq.GetBillingQueues())
		if err != nil {
			amqpConn.Close()
			return nil, err
		}
		notifier = billingservice.NewAmqpNotifier(ch)
	} else {
		logger.Warn("rabbitmq_url is empty, grant notifications are disabled")
	}

	reconciler := billingservice.NewReconciler(db, db, cacheRedis, notifier, logger)
	billingService := billingservice.NewService(registry, db, reconciler, logger)
	signalService := signalservice.NewSignalService(db, cacheRedis, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, authService, billingService, signalService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.amqpConn != nil {
			a.amqpConn.Close()
		}
		a.db.DB.Close()
		return err
	}
}
