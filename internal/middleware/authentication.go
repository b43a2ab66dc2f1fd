// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/necrock/readingtracker/internal/auth"
	"github.com/necrock/readingtracker/internal/model"
)

const bearerPrefix = "Bearer "

// principalContextKey はリクエストコンテキストにPrincipalを格納するためのキー。
type principalContextKey struct{}

// Authenticator はBearerトークンからPrincipalを解決する。
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// AuthFailureRecorder は認証失敗を記録する。
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// NewAuthenticationMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証済みのPrincipalをリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーがないリクエストは未認証のまま通す。認証を必須にするのはRequireAuthentication。
// recorderはnilでもよい。
func NewAuthenticationMiddleware(authenticator Authenticator, recorder AuthFailureRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

			principal, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				var authErr *auth.AuthenticationError
				if errors.As(err, &authErr) {
					if recorder != nil {
						recorder.RecordAuthFailure(authErr.Reason)
					}
					WriteErrorResponse(w, authErr.Err)
					return
				}
				slog.Error("failed to authenticate request",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteInternalServerError(w)
				return
			}

			annotateUsername(r.Context(), principal.Username)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuthentication は認証済みでないリクエストに401を返す。
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			WriteErrorResponse(w, model.NewUnauthorizedError("Authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority は指定の権限を持たないリクエストを拒否するミドルウェアを返す。
// 未認証なら401、権限不足なら403になる。
func RequireAuthority(authority string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteErrorResponse(w, model.NewUnauthorizedError("Authentication required"))
				return
			}
			if !p.HasAuthority(authority) {
				WriteErrorResponse(w, model.NewForbiddenError("Access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済みのPrincipalを取得する。
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*auth.Principal)
	return p, ok && p != nil
}

// ContextWithPrincipal はコンテキストにPrincipalを注入する。
func ContextWithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}
