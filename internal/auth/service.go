package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/necrock/readingtracker/internal/model"
)

// UserRegistry はアカウント登録とユーザー名による取得を行う。
// 取得できない場合はNOT_FOUND_ERRORのAPIErrorを返す。
type UserRegistry interface {
	Add(ctx context.Context, u *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// TokenIssuer はユーザー名に対するトークンを発行する。
type TokenIssuer interface {
	Issue(username string) (string, error)
}

// FailureRecorder は認証失敗を記録する。
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// Registration はアカウント登録の入力。
type Registration struct {
	Username string
	Email    string
	Password string
}

// Service はアカウント登録とログインのビジネスロジックを提供する。
type Service struct {
	users    UserRegistry
	hasher   PasswordHasher
	tokens   TokenIssuer
	recorder FailureRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(users UserRegistry, hasher PasswordHasher, tokens TokenIssuer, recorder FailureRecorder) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
	}
}

// Register はアカウントを作成し、そのユーザーのトークンを返す。
// ユーザー名が既に使われている場合はALREADY_EXISTS_ERRORを返す。
func (s *Service) Register(ctx context.Context, reg Registration) (string, error) {
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return "", err
	}

	u := &model.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
	}
	if err := s.users.Add(ctx, u); err != nil {
		return "", err
	}

	return s.tokens.Issue(u.Username)
}

// Login はユーザー名とパスワードを照合してトークンを返す。
// ユーザーの有無はレスポンスから区別できない。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Type == model.ErrTypeNotFound {
			return "", s.fail(FailureBadCredentials, username)
		}
		return "", fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return "", s.fail(FailureBadCredentials, username)
		}
		return "", err
	}

	if u.Status != model.StatusActive {
		s.record(FailureDisabled, username)
		return "", model.NewUnauthorizedError("User is disabled")
	}

	return s.tokens.Issue(u.Username)
}

func (s *Service) fail(reason, username string) error {
	s.record(reason, username)
	return model.NewUnauthorizedError("Username or password incorrect")
}

func (s *Service) record(reason, username string) {
	slog.Info("ログインに失敗しました",
		slog.String("username", username),
		slog.String("reason", reason),
	)
	if s.recorder != nil {
		s.recorder.RecordAuthFailure(reason)
	}
}
