package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/necrock/readingtracker/internal/auth"
	"github.com/necrock/readingtracker/internal/middleware"
	"github.com/necrock/readingtracker/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Authenticator     middleware.Authenticator
	AuthFailures      middleware.AuthFailureRecorder
	HTTPMetrics       middleware.HTTPRecorder
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string

	// 運用
	DB             Pinger
	MetricsHandler http.Handler

	// サービス
	AuthService            AuthServiceInterface
	ReadingItemService     ReadingItemServiceInterface
	ReadingProgressService ReadingProgressServiceInterface
	UserService            UserServiceInterface
	PasswordHasher         auth.PasswordHasher
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → Metrics → SecurityHeaders → CORS → Authentication
//
// レート制限は/auth/*に登録・ログイン用、/api/*にAPI全般用を個別に適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewAuthenticationMiddleware(deps.Authenticator, deps.AuthFailures))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, &model.APIError{Type: model.ErrTypeNotFound, Message: "Resource not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, middleware.ErrorResponseBody{
			Type:    model.ErrTypeValidation,
			Message: "Method not allowed",
		})
	})

	authHandler := NewAuthHandler(deps.AuthService)
	itemHandler := NewReadingItemHandler(deps.ReadingItemService)
	progressHandler := NewReadingProgressHandler(deps.ReadingProgressService)
	userHandler := NewUserHandler(deps.UserService, deps.PasswordHasher)
	adminHandler := NewAdminUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// --- 認証が必要なルート ---
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.RequireAuthentication)

		// 読み物
		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Post("/", itemHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.Get)
				r.Patch("/", itemHandler.Update)
				r.Delete("/", itemHandler.Delete)
			})
		})

		// 読書進捗
		r.Route("/progress", func(r chi.Router) {
			r.Get("/", progressHandler.List)
			r.Post("/", progressHandler.Create)
			r.Route("/{readingItemId}", func(r chi.Router) {
				r.Get("/", progressHandler.Get)
				r.Patch("/", progressHandler.Update)
				r.Delete("/", progressHandler.Delete)
			})
		})

		// 自分のアカウント
		r.Route("/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Patch("/", userHandler.UpdateMe)
			r.Delete("/", userHandler.DeleteMe)
			r.Put("/password", userHandler.ChangePassword)
		})

		// ユーザー管理（管理者のみ）
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAuthority(auth.AuthorityAdmin))
			r.Get("/", adminHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", adminHandler.Get)
				r.Put("/status", adminHandler.SetStatus)
				r.Put("/role", adminHandler.SetRole)
			})
		})
	})

	return r
}
