package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/tuition-notify/internal/config"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/pkg/metrics"
	"github.com/tuition-notify/internal/transport/http/handler"
	appmiddleware "github.com/tuition-notify/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(deps.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	pushMw := []func(http.Handler) http.Handler{
		appmiddleware.NewRateLimiter(rate.Limit(cfg.PushRateLimit), cfg.PushRateBurst).Limit,
	}
	if deps.JWTProvider != nil {
		pushMw = append(pushMw,
			appmiddleware.Auth(deps.JWTProvider),
			appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleTutor))
	}

	healthH := handler.NewHealthHandler()
	notifH := handler.NewNotificationHandler(deps.Notifications, deps.Log)

	r.Handle("/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(pushMw...)
			r.Get("/notifications/push", notifH.Push)
			r.Post("/notifications/push", notifH.Push)
		})
	})

	return r
}
