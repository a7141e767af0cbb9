package http

import (
	"net/http"

	"github.com/fintrack-api/internal/application/auth"
	"github.com/fintrack-api/internal/application/category"
	"github.com/fintrack-api/internal/application/report"
	"github.com/fintrack-api/internal/application/session"
	"github.com/fintrack-api/internal/application/transaction"
	"github.com/fintrack-api/internal/application/user"
	"github.com/fintrack-api/internal/config"
	"github.com/fintrack-api/internal/transport/http/handler"
	appmiddleware "github.com/fintrack-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router and the per-IP limiter
// guarding the public auth endpoints, whose cleanup loop the caller runs.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, *appmiddleware.RateLimiter) {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appmiddleware.Gate(cfg.LoginPath, "/v1/auth/", "/v1/health-check/"))

	cookies := &appmiddleware.Cookies{
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}

	// 5 requests/second, burst of 10, applied to the public auth endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo:    deps.UserRepo,
		JWTProvider: deps.JWTProvider,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo: deps.UserRepo,
		Limiter:  deps.OTPLimiter,
		Mailer:   deps.Mailer,
		Sessions: sessionSvc,
		OTPTTL:   cfg.OTPTTL,
	})
	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo})
	txSvc := transaction.NewService(transaction.ServiceDeps{TransactionRepo: deps.TransactionRepo})
	categorySvc := category.NewService(category.ServiceDeps{CategoryRepo: deps.CategoryRepo})
	reportSvc := report.NewService(report.ServiceDeps{
		TransactionRepo: deps.TransactionRepo,
		ReportStore:     deps.ReportStore,
		URLTTL:          cfg.ReportURLTTL,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, sessionSvc, cookies)
	userH := handler.NewUserHandler(userSvc)
	txH := handler.NewTransactionHandler(txSvc)
	categoryH := handler.NewCategoryHandler(categorySvc)
	reportH := handler.NewReportHandler(reportSvc)

	authMw := appmiddleware.Auth(sessionSvc, cookies)
	activeMw := appmiddleware.ActiveSession(sessionSvc, cookies)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/otp/send", authH.SendOTP)
		r.With(sensitiveRL.Limit).Post("/auth/otp/verify", authH.VerifyOTP)
		r.With(sensitiveRL.Limit).Post("/auth/refresh", authH.Refresh)
		r.Post("/auth/logout", authH.Logout)
		r.Post("/auth/logout-all", authH.LogoutAll)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/transactions", txH.List)
			r.Post("/transactions", txH.Create)
			r.Get("/transactions/{id}", txH.Get)
			r.Get("/categories", categoryH.List)
			r.Post("/categories", categoryH.Create)
			r.Get("/reports/dashboard", reportH.Dashboard)
			r.Post("/reports/generate", reportH.Generate)
			r.Post("/reports/export", reportH.Export)

			// Routes that also require an unrevoked refresh token.
			r.Group(func(r chi.Router) {
				r.Use(activeMw)

				r.Get("/user", userH.Get)
				r.Put("/user", userH.Update)
				r.Put("/transactions/{id}", txH.Update)
				r.Delete("/transactions/{id}", txH.Delete)
			})
		})
	})

	return r, sensitiveRL
}
