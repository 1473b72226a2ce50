package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zane-ops/guestbook/internal/metrics"
	"github.com/zane-ops/guestbook/internal/middleware"
)

// githubCallbackPath はGitHubに登録するOAuthコールバックのパス。
const githubCallbackPath = "/api/auth/callback/github"

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Sessions     SessionStore
	UserResolver middleware.UserResolver
	RateLimiter  *middleware.RateLimiter
	Logger       *slog.Logger

	// メトリクス。Gathererがnilの場合は/metricsを公開しない。
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	AuthService      AuthServiceInterface
	GuestbookService GuestbookServiceInterface
	ContactService   ContactServiceInterface
	HealthChecks     []NamedCheck

	Config Config
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Logging → Metrics → SecurityHeaders
//	  → RateLimit(General) → CSRF → Session → (認証系のみ RateLimit(Auth))
//
// /api/health と /metrics はレート制限とセッションの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.Config.CookieSecure,
		CookieDomain: deps.Config.CookieDomain,
		ExemptPaths:  []string{githubCallbackPath},
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, collector, deps.Config)
	guestbookHandler := NewGuestbookHandler(deps.GuestbookService, deps.Sessions, authHandler, collector, deps.Config)
	contactHandler := NewContactHandler(deps.ContactService, deps.Config)

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.Config.CookieSecure))

	// --- セッション不要のルート ---
	r.Method(http.MethodGet, "/api/health", NewHealthHandler(deps.HealthChecks...))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- セッションを扱うルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		r.Use(middleware.NewSessionMiddleware(deps.Sessions, deps.UserResolver))

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

		// ゲストブック
		r.Get("/", guestbookHandler.Loader)
		r.Post("/", guestbookHandler.Action)

		// 認証（認証系専用のレート制限を追加）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/login", authHandler.PasswordLogin)
			r.Post("/register", authHandler.Register)
			r.Get("/auth/github/login", authHandler.GitHubLogin)
			r.Get(githubCallbackPath, authHandler.Callback)
		})

		// コンタクト
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", contactHandler.List)
			r.Post("/", contactHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", contactHandler.Get)
				r.Post("/edit", contactHandler.Update)
				r.Post("/favorite", contactHandler.Favorite)
				r.Post("/destroy", contactHandler.Destroy)
			})
		})
	})

	return r
}
