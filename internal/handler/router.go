package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	custommiddleware "github.com/mmeshcher/support-me/internal/middleware"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/storage"
)

// RouterConfig содержит параметры маршрутизатора, не относящиеся к бизнес-логике.
type RouterConfig struct {
	// Каталог загруженных файлов, раздаётся по /static.
	StaticDir   string
	CORSOrigins []string
	// Запросов в минуту с одного адреса к /auth. 0 отключает ограничение.
	AuthRateLimit int
	// Metrics отдаёт метрики Prometheus по /metrics, если задан.
	Metrics http.Handler
	// Health проверяет доступность зависимостей для /healthz.
	Health func(ctx context.Context) error
}

var allRoles = []model.Role{model.RoleUser, model.RoleCreator, model.RoleAdmin}

// SetupRouter настраивает HTTP-маршруты и middleware сервиса Support Me.
func (h *Handler) SetupRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.MetricsMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Encoding"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// /metrics и /static отдаются без gzip: promhttp сжимает сам, загрузки уже сжаты.
	gzipped := r.With(custommiddleware.GzipMiddleware)

	gzipped.Get("/healthz", h.healthz(cfg.Health))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.StaticDir != "" {
		r.Handle(storage.URLPrefix+"/*", http.StripPrefix(storage.URLPrefix, staticFiles(cfg.StaticDir)))
	}

	gzipped.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimit > 0 {
				r.Use(custommiddleware.NewRateLimiter(cfg.AuthRateLimit, h.logger).Middleware)
			}
			r.Post("/register", h.Register)
			r.Post("/verify-email", h.VerifyEmail)
			r.Post("/login", h.Login)
			r.Get("/logout", h.Logout)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware, custommiddleware.RequireRoles(allRoles...))
				r.Get("/showCurrentUser", h.ShowCurrentUser)
				r.Patch("/updateUser", h.UpdateUser)
			})
		})

		r.Route("/creator-request", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.With(custommiddleware.RequireRoles(model.RoleAdmin)).Get("/", h.ListCreatorRequests)
			r.With(custommiddleware.RequireRoles(model.RoleUser)).Post("/", h.CreateCreatorRequest)
			r.With(custommiddleware.RequireRoles(model.RoleAdmin)).Patch("/{id}", h.DecideCreatorRequest)
			r.With(custommiddleware.RequireRoles(model.RoleUser)).Delete("/{id}", h.DeleteCreatorRequest)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", h.ListSubscriptions)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware, custommiddleware.RequireRoles(model.RoleCreator))
				r.Post("/", h.CreateSubscription)
				r.Patch("/{id}", h.UpdateSubscription)
				r.Delete("/{id}", h.DeleteSubscription)
			})
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/webhooks", h.StripeWebhook)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware, custommiddleware.RequireRoles(model.RoleUser, model.RoleCreator))
				r.Post("/{id}/create-checkout-session", h.CreateCheckoutSession)
				r.Patch("/manage", h.ManageSubscriptions)
			})
		})

		r.Route("/cashout", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.With(custommiddleware.RequireRoles(model.RoleAdmin)).Get("/", h.ListCashouts)
			r.With(custommiddleware.RequireRoles(model.RoleCreator)).Get("/personal", h.ListPersonalCashouts)
			r.With(custommiddleware.RequireRoles(model.RoleCreator)).Post("/", h.CreateCashout)
			r.With(custommiddleware.RequireRoles(model.RoleAdmin)).Patch("/{id}", h.UpdateCashout)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "<h1>NOT FOUND</h1>")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func (h *Handler) healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				h.logger.Warn("health check failed", zap.Error(err))
				writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// staticFiles раздаёт загруженные файлы без листинга каталогов.
func staticFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
