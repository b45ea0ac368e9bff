package stocksignals

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/billing/checkout"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/billing/gateways"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/billing/status"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/billing/verify"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/billing/webhook"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/health"
	"github.com/magabrotheeeer/stock-signals/internal/http/handlers/signals/list"
	"github.com/magabrotheeeer/stock-signals/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/stock-signals/internal/services/auth"
	billingservice "github.com/magabrotheeeer/stock-signals/internal/services/billing"
	signalservice "github.com/magabrotheeeer/stock-signals/internal/services/signals"
	"github.com/magabrotheeeer/stock-signals/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	authService *authservice.AuthService, billingService *billingservice.Service,
	signalService *signalservice.SignalService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки; регистрация и вход ограничены по IP.
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, rate.Limit(5), 10))
			r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
			r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
		})
		r.Get("/billing/gateways", gateways.New(logger, billingService).ServeHTTP)
		r.Get("/health", health.New(logger, db).ServeHTTP)

		// Вебхуки шлюзов: без JWT, аутентификация — подпись тела.
		r.Post("/billing/webhook/{gateway}", webhook.New(logger, billingService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, rate.Limit(5), 10))
			r.Get("/auth/me", me.New(logger, db).ServeHTTP)
			r.Get("/signals", list.New(logger, signalService).ServeHTTP)
			r.Post("/billing/checkout", checkout.New(logger, billingService).ServeHTTP)
			r.Post("/billing/verify", verify.New(logger, billingService).ServeHTTP)
			r.Get("/billing/status", status.New(logger, billingService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
