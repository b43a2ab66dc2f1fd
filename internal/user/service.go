// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/necrock/readingtracker/internal/clock"
	"github.com/necrock/readingtracker/internal/model"
	"github.com/necrock/readingtracker/internal/repository"
)

// TxRunner はfnを1つのトランザクション内で実行する。
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service はユーザー管理のサービス層。
type Service struct {
	repo  repository.UserRepository
	tx    TxRunner
	clock clock.Clock
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.UserRepository, tx TxRunner, clk clock.Clock) *Service {
	return &Service{repo: repo, tx: tx, clock: clk}
}

// Add はユーザーを新規登録する。ロールはUSER、状態はACTIVEで作成される。
// ユーザー名の重複は事前チェックで検出し、同時登録で事前チェックをすり抜けた場合は
// DBの一意制約から同じALREADY_EXISTS_ERRORになる。
func (s *Service) Add(ctx context.Context, u *model.User) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByUsername(ctx, u.Username)
		if err != nil {
			return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
		}
		if existing != nil {
			return model.NewUserAlreadyExistsError(u.Username)
		}

		u.Role = model.RoleUser
		u.Status = model.StatusActive
		u.CreatedAt = s.clock.Now()

		if err := s.repo.SaveAndFlush(ctx, u); err != nil {
			return err
		}

		slog.Info("ユーザーを登録しました",
			slog.Int64("user_id", u.ID),
			slog.String("username", u.Username),
		)
		return nil
	})
}

// Get は指定IDのユーザーを返す。存在しない場合はNOT_FOUND_ERRORを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return u, nil
}

// GetByUsername はユーザー名でユーザーを返す。存在しない場合はNOT_FOUND_ERRORを返す。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUsernameNotFoundError(username)
	}
	return u, nil
}

// List は全ユーザーを返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Update はユーザー自身のプロフィールを部分更新する。
func (s *Service) Update(ctx context.Context, id int64, update model.UserUpdate) (*model.User, error) {
	var updated *model.User
	err := s.modify(ctx, id, func(u *model.User) error {
		update.Apply(u)
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetPassword はパスワードハッシュを置き換える。
func (s *Service) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	return s.modify(ctx, id, func(u *model.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

// SetStatus はアカウントの状態を変更する。DELETEDにすると以後の認証が拒否される。
func (s *Service) SetStatus(ctx context.Context, id int64, status model.Status) error {
	if !status.Valid() {
		return model.NewValidationError(map[string]string{
			"status": "must be one of [ACTIVE, DELETED]",
		})
	}
	err := s.modify(ctx, id, func(u *model.User) error {
		u.Status = status
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("ユーザーの状態を変更しました",
		slog.Int64("user_id", id),
		slog.String("status", string(status)),
	)
	return nil
}

// SetRole はユーザーのロールを変更する。
func (s *Service) SetRole(ctx context.Context, id int64, role model.Role) error {
	if !role.Valid() {
		return model.NewValidationError(map[string]string{
			"role": "must be one of [USER, ADMIN]",
		})
	}
	err := s.modify(ctx, id, func(u *model.User) error {
		u.Role = role
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("ユーザーのロールを変更しました",
		slog.Int64("user_id", id),
		slog.String("role", string(role)),
	)
	return nil
}

// HasRole はユーザーが指定のロールを持つかどうかを返す。
func (s *Service) HasRole(ctx context.Context, id int64, role model.Role) (bool, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}

// modify はユーザーを取得してfnで変更し、同じトランザクション内で保存する。
func (s *Service) modify(ctx context.Context, id int64, fn func(u *model.User) error) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
		return s.repo.Save(ctx, u)
	})
}
