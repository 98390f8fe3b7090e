package storefront

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	adminContracts "github.com/magabrotheeeer/subscribepro/internal/http/handlers/admin/contracts"
	adminProducts "github.com/magabrotheeeer/subscribepro/internal/http/handlers/admin/products"
	adminUsers "github.com/magabrotheeeer/subscribepro/internal/http/handlers/admin/users"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/auth/register"
	sessionHandler "github.com/magabrotheeeer/subscribepro/internal/http/handlers/auth/session"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/auth/verify"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/billing/dashboard"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/billing/invoices"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/contracts/current"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/products/detail"
	productList "github.com/magabrotheeeer/subscribepro/internal/http/handlers/products/list"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/subscriptions/cancel"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/subscriptions/create"
	subscriptionList "github.com/magabrotheeeer/subscribepro/internal/http/handlers/subscriptions/list"
	"github.com/magabrotheeeer/subscribepro/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscribepro/internal/lib/jwt"
	"github.com/magabrotheeeer/subscribepro/internal/metrics"
	"github.com/magabrotheeeer/subscribepro/internal/services/accounts"
	"github.com/magabrotheeeer/subscribepro/internal/services/catalog"
	"github.com/magabrotheeeer/subscribepro/internal/services/session"
	"github.com/magabrotheeeer/subscribepro/internal/services/subscription"
)

// Services — сервисы, которые обслуживают маршруты.
type Services struct {
	Auth          *session.Auth
	Tokens        jwt.Maker
	Catalog       *catalog.Service
	Subscriptions *subscription.Service
	Accounts      *accounts.Service
	AuthLimiter   *middlewarectx.RateLimiter
	Health        map[string]health.Check
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(s.AuthLimiter, logger))
			r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		})
		verifyHandler := verify.New(logger, s.Auth)
		r.Post("/verify-email", verifyHandler.ServeHTTP)
		r.Get("/verify-email", verifyHandler.ServeHTTP)

		// Каталог доступен гостям, токен лишь включает корпоративные цены
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.OptionalAuth(s.Auth, s.Tokens, logger))
			r.Get("/products", productList.New(logger, s.Catalog).ServeHTTP)
			r.Get("/products/{id}", detail.New(logger, s.Catalog).ServeHTTP)
		})

		// Группа с аутентификацией по сессии
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, s.Tokens, logger))
			r.Get("/session", sessionHandler.New().ServeHTTP)
			r.Post("/logout", logout.New(logger, s.Auth).ServeHTTP)

			r.Post("/subscriptions", create.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions", subscriptionList.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", cancel.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/invoices", invoices.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/dashboard", dashboard.New(logger, s.Subscriptions).ServeHTTP)

			r.With(middlewarectx.RequireAdminOrCorporate(logger)).
				Get("/contracts/current", current.New(logger, s.Catalog).ServeHTTP)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(logger))

				products := adminProducts.New(logger, s.Catalog)
				r.Get("/products", products.List)
				r.Post("/products", products.Create)
				r.Put("/products/{id}", products.Update)
				r.Delete("/products/{id}", products.Delete)

				contracts := adminContracts.New(logger, s.Catalog)
				r.Get("/contracts", contracts.List)
				r.Post("/contracts", contracts.Create)
				r.Post("/contracts/{id}/expire", contracts.Expire)
				r.Post("/contracts/{id}/prices", contracts.AddPrice)

				r.Get("/users", adminUsers.New(logger, s.Accounts).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
