package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/dashboard"
	"github.com/wolfman30/practice-crm/internal/documents"
	httpmiddleware "github.com/wolfman30/practice-crm/internal/http/middleware"
	"github.com/wolfman30/practice-crm/internal/reps"
	"github.com/wolfman30/practice-crm/internal/submissions"
	"github.com/wolfman30/practice-crm/internal/webhooks"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

// Config holds router configuration. Nil handlers are not mounted.
type Config struct {
	Logger             *logging.Logger
	AuthSecret         string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
	PublicRateLimiter  *httpmiddleware.RateLimiter

	// HealthCheck reports backing-store readiness for /health.
	HealthCheck func(ctx context.Context) error

	Accounts           *accounts.Handler
	Submissions        *submissions.Handler
	Documents          *documents.Handler
	Reps               *reps.Handler
	Dashboard          *dashboard.Handler
	CuraGenesisWebhook *webhooks.CuraGenesisHandler
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthCheck))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.CuraGenesisWebhook != nil {
			public.Post("/webhooks/curagenesis", cfg.CuraGenesisWebhook.Handle)
		}
		if cfg.Reps != nil {
			public.Group(func(onboarding chi.Router) {
				if cfg.PublicRateLimiter != nil {
					onboarding.Use(httpmiddleware.RateLimit(cfg.PublicRateLimiter))
				}
				cfg.Reps.PublicRoutes(onboarding)
			})
		}
	})

	// Rep-facing API
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.RepJWT(cfg.AuthSecret))
		if cfg.Accounts != nil {
			cfg.Accounts.Routes(api)
		}
		if cfg.Submissions != nil {
			cfg.Submissions.Routes(api)
		}
		if cfg.Documents != nil {
			cfg.Documents.Routes(api)
		}
		if cfg.Dashboard != nil {
			cfg.Dashboard.Routes(api)
		}
	})

	// Admin surface
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.RepJWT(cfg.AuthSecret))
		admin.Use(httpmiddleware.RequireRole(httpmiddleware.RoleAdmin))
		if cfg.Submissions != nil {
			cfg.Submissions.AdminRoutes(admin)
		}
		if cfg.Reps != nil {
			cfg.Reps.AdminRoutes(admin)
		}
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
