package auth

import (
	"context"
	"fmt"

	"github.com/necrock/readingtracker/internal/model"
)

// 認証失敗の理由。メトリクスのラベルに使う。
const (
	FailureInvalidToken   = "invalid_token"
	FailureUnknownUser    = "unknown_user"
	FailureDisabled       = "disabled"
	FailureBadCredentials = "bad_credentials"
)

// AuthenticationError は認証失敗を表す。ErrはHTTPレスポンスにそのまま使える。
type AuthenticationError struct {
	Reason string
	Err    *model.APIError
}

func (e *AuthenticationError) Error() string {
	return e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TokenParser はトークンを検証してユーザー名を返す。
type TokenParser interface {
	Parse(token string) (string, error)
}

// UserFinder はユーザー名でユーザーを引く。見つからない場合はnilを返す。
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Authenticator はBearerトークンからPrincipalを解決する。
type Authenticator struct {
	tokens TokenParser
	users  UserFinder
}

// NewAuthenticator はAuthenticatorを生成する。
func NewAuthenticator(tokens TokenParser, users UserFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate はトークンを検証し、ユーザーを毎回ストアから引き直してPrincipalを返す。
// 削除・無効化されたユーザーのトークンは有効期限内でも拒否する。
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	username, err := a.tokens.Parse(token)
	if err != nil {
		return nil, &AuthenticationError{
			Reason: FailureInvalidToken,
			Err:    model.NewUnauthorizedError("Invalid authentication token"),
		}
	}

	u, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}
	if u == nil {
		return nil, &AuthenticationError{
			Reason: FailureUnknownUser,
			Err:    model.NewUnauthorizedError("Invalid authentication token"),
		}
	}

	p := NewPrincipal(u)
	if !p.Enabled() {
		return nil, &AuthenticationError{
			Reason: FailureDisabled,
			Err:    model.NewForbiddenError("User is disabled"),
		}
	}
	return p, nil
}
