package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zane-ops/guestbook/internal/auth"
	"github.com/zane-ops/guestbook/internal/config"
	"github.com/zane-ops/guestbook/internal/contact"
	"github.com/zane-ops/guestbook/internal/database"
	"github.com/zane-ops/guestbook/internal/guestbook"
	"github.com/zane-ops/guestbook/internal/handler"
	"github.com/zane-ops/guestbook/internal/kv"
	"github.com/zane-ops/guestbook/internal/logger"
	"github.com/zane-ops/guestbook/internal/metrics"
	"github.com/zane-ops/guestbook/internal/middleware"
	"github.com/zane-ops/guestbook/internal/repository"
	"github.com/zane-ops/guestbook/internal/security"
	"github.com/zane-ops/guestbook/internal/session"
)

// outboundTimeout はGitHub APIへのリクエストのタイムアウト。
const outboundTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映する
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// Server はHTTPハンドラーと、停止時に解放するリソースをまとめたもの。
type Server struct {
	Handler  http.Handler
	Registry *prometheus.Registry

	rateLimiter *middleware.RateLimiter
}

// Close はバックグラウンドで動くリソースを停止する。
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// NewServer は接続済みのDBとKVストアから全依存関係をワイヤリングする。
func NewServer(cfg *config.Config, db *sql.DB, store kv.Store) (*Server, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. セッションストレージ
	storage, err := session.NewStorage(store, session.Options{
		CookieName: cfg.SessionCookieName,
		Secrets:    cfg.SessionSecrets,
		MaxAge:     cfg.SessionMaxAge,
		Domain:     cfg.SessionDomain,
		Secure:     cfg.SessionSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}
	storage.SetErrorObserver(collector.RecordSessionBackendError)

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	messageRepo := repository.NewPostgresMessageRepo(db)
	contactRepo := repository.NewPostgresContactRepo(db)

	// 4. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewGitHubOAuthProvider(auth.GitHubOAuthConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubRedirectURI,
		HTTPClient:   ssrfGuard.NewSafeClient(outboundTimeout),
	})
	authService := auth.NewService(oauthProvider, userRepo, auth.NewArgon2Hasher(auth.DefaultArgon2Params))
	guestbookService := guestbook.NewService(messageRepo)
	contactService := contact.NewService(contactRepo, sanitizer, ssrfGuard)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Sessions:         storage,
		UserResolver:     authService,
		RateLimiter:      rateLimiter,
		Logger:           slog.Default(),
		Metrics:          collector,
		MetricsGatherer:  registry,
		AuthService:      authService,
		GuestbookService: guestbookService,
		ContactService:   contactService,
		HealthChecks: []handler.NamedCheck{
			{Name: "database", Checker: repository.NewPostgresHealthProbe(db)},
			{Name: "redis", Checker: handler.CheckFunc(store.Ping)},
		},
		Config: handler.Config{
			BaseURL:      cfg.BaseURL,
			CookieDomain: cfg.SessionDomain,
			CookieSecure: cfg.SessionSecure,
		},
	})

	return &Server{
		Handler:     router,
		Registry:    registry,
		rateLimiter: rateLimiter,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// DBとRedisに接続し、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	// 2. Redis接続
	redisClient, err := kv.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	store := kv.NewRedisStore(redisClient, kv.SessionPrefix)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("redis connection established")

	srv, err := NewServer(cfg, db, store)
	if err != nil {
		return err
	}
	defer srv.Close()

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /api/health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
