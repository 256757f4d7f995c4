package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/addr-verify-api/internal/application/auth"
	"github.com/addr-verify-api/internal/application/clients"
	"github.com/addr-verify-api/internal/application/export"
	"github.com/addr-verify-api/internal/application/importer"
	"github.com/addr-verify-api/internal/application/notify"
	"github.com/addr-verify-api/internal/application/verification"
	"github.com/addr-verify-api/internal/config"
	jwtinfra "github.com/addr-verify-api/internal/infrastructure/jwt"
	"github.com/addr-verify-api/internal/infrastructure/sns"
	"github.com/addr-verify-api/internal/transport/http/handler"
	appmiddleware "github.com/addr-verify-api/internal/transport/http/middleware"
	"github.com/addr-verify-api/internal/transport/ws"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	ClientRepo  ClientRepository
	AdminRepo   AdminRepository
	AuditRepo   AuditRepository
	Archive     ObjectArchive
	Notifier    *notify.Notifier
	Alerts      sns.AlertPublisher
	JWTProvider *jwtinfra.Provider
	Hub         *ws.Hub
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	// Imports are heavy; 1 request/second with a small burst keeps a stuck
	// dashboard from hammering the pipeline.
	importRL := appmiddleware.NewRateLimiter(rate.Limit(1), 3)

	authSvc := auth.NewService(deps.AdminRepo, deps.JWTProvider)
	importSvc := importer.NewService(importer.ServiceDeps{
		ClientRepo: deps.ClientRepo,
		AuditRepo:  deps.AuditRepo,
		Notifier:   deps.Notifier,
		Progress:   deps.Hub,
	})
	verifySvc := verification.NewService(verification.ServiceDeps{
		ClientRepo: deps.ClientRepo,
		AuditRepo:  deps.AuditRepo,
		Notifier:   deps.Notifier,
	})
	clientSvc := clients.NewService(clients.ServiceDeps{
		ClientRepo: deps.ClientRepo,
		AuditRepo:  deps.AuditRepo,
		Notifier:   deps.Notifier,
	})
	exportSvc := export.NewService(deps.ClientRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	verifyH := handler.NewVerifyHandler(verifySvc)
	clientH := handler.NewClientHandler(clientSvc)
	importH := handler.NewImportHandler(importSvc, deps.Archive, deps.Alerts)
	exportH := handler.NewExportHandler(exportSvc)
	auditH := handler.NewAuditHandler(deps.AuditRepo)
	emailH := handler.NewEmailHandler(deps.Notifier)

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Post("/auth/setup", authH.Setup)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.Get("/verify/{token}", verifyH.Lookup)
		r.Post("/verify/{token}", verifyH.Confirm)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/me", authH.Me)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", clientH.Stats)
				r.Get("/clients", clientH.List)
				r.Get("/clients/{id}", clientH.Get)
				r.Put("/clients/{id}", clientH.Update)
				r.Patch("/clients/{id}", clientH.UpdateTemplateGroup)
				r.Post("/resend-email/{id}", clientH.ResendEmail)
				r.Get("/export", exportH.Download)
				r.Get("/test-email", emailH.Test)
				r.Get("/audit", auditH.List)
				r.With(importRL.Limit).Post("/import", importH.Upload)
				r.Get("/imports/{importID}/{filename}", importH.Download)
			})
		})
	})

	return r
}
