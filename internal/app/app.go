// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/necrock/readingtracker/internal/auth"
	"github.com/necrock/readingtracker/internal/clock"
	"github.com/necrock/readingtracker/internal/config"
	"github.com/necrock/readingtracker/internal/database"
	"github.com/necrock/readingtracker/internal/handler"
	"github.com/necrock/readingtracker/internal/logger"
	"github.com/necrock/readingtracker/internal/metrics"
	"github.com/necrock/readingtracker/internal/middleware"
	"github.com/necrock/readingtracker/internal/model"
	"github.com/necrock/readingtracker/internal/readingitem"
	"github.com/necrock/readingtracker/internal/readingprogress"
	"github.com/necrock/readingtracker/internal/repository"
	"github.com/necrock/readingtracker/internal/security"
	"github.com/necrock/readingtracker/internal/user"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// defaultPool はAPIサーバーのコネクションプール設定。
var defaultPool = database.PoolConfig{
	MaxOpenConns:    25,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
}

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

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
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("timezone", cfg.Location.String()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandPromote:
		return runPromote(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// components はリクエスト処理に必要な依存関係一式。
type components struct {
	users       *user.Service
	router      http.Handler
	rateLimiter *middleware.RateLimiter
}

// wire はリポジトリからルーターまでの依存関係を構築する。
// regにはアプリケーションのメトリクスが登録される。
func wire(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) *components {
	clk := clock.New(cfg.Location)
	collector := metrics.NewCollector(reg)

	// 1. リポジトリの初期化（制約違反はメトリクスに記録する）
	userRepo := repository.NewPostgresUserRepo(db, collector)
	itemRepo := repository.NewPostgresReadingItemRepo(db, collector)
	progressRepo := repository.NewPostgresReadingProgressRepo(db, collector)
	txManager := database.NewTxManager(db)

	// 2. ドメインサービスの初期化
	userService := user.NewService(userRepo, txManager, clk)
	itemService := readingitem.NewService(itemRepo, clk, security.NewTextSanitizer())
	progressService := readingprogress.NewService(progressRepo, userRepo, itemRepo, txManager)

	// 3. 認証
	tokens := auth.NewTokenService(cfg.SigningKey, clk)
	hasher := auth.BcryptHasher{Cost: cfg.BcryptCost}
	authService := auth.NewService(userService, hasher, tokens, collector)
	authenticator := auth.NewAuthenticator(tokens, userRepo)

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Authenticator:     authenticator,
		AuthFailures:      collector,
		HTTPMetrics:       collector,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		DB:             db,
		MetricsHandler: metrics.Handler(reg),

		AuthService:            authService,
		ReadingItemService:     itemService,
		ReadingProgressService: progressService,
		UserService:            userService,
		PasswordHasher:         hasher,
	})

	return &components{
		users:       userService,
		router:      router,
		rateLimiter: rateLimiter,
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, defaultPool)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDB(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := wire(cfg, db, reg)
	defer c.rateLimiter.Stop()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           c.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-stop:
	}

	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
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

// runPromote は指定ユーザーにADMINロールを付与する。
func runPromote(cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return errors.New("usage: promote <username>")
	}
	username := args[0]

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	c := wire(cfg, db, prometheus.NewRegistry())
	defer c.rateLimiter.Stop()

	return promote(ctx, c.users, username)
}

// roleGranter はユーザー名からユーザーを引き、ロールを確認・変更する。
type roleGranter interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	HasRole(ctx context.Context, id int64, role model.Role) (bool, error)
	SetRole(ctx context.Context, id int64, role model.Role) error
}

func promote(ctx context.Context, users roleGranter, username string) error {
	u, err := users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to find user %q: %w", username, err)
	}
	isAdmin, err := users.HasRole(ctx, u.ID, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to check role of user %q: %w", username, err)
	}
	if isAdmin {
		slog.Info("user is already an administrator", slog.String("username", username))
		return nil
	}
	if err := users.SetRole(ctx, u.ID, model.RoleAdmin); err != nil {
		return fmt.Errorf("failed to promote user %q: %w", username, err)
	}

	slog.Info("user promoted to administrator",
		slog.String("username", username),
		slog.Int64("user_id", u.ID),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
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
