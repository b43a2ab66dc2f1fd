// Package readingprogress はユーザーごとの読書進捗の管理を提供する。
package readingprogress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/necrock/readingtracker/internal/model"
	"github.com/necrock/readingtracker/internal/repository"
)

// TxRunner はfnを1つのトランザクション内で実行する。
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserFinder はIDでユーザーを引く。見つからない場合はnilを返す。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// ReadingItemFinder はIDで読み物を引く。見つからない場合はnilを返す。
type ReadingItemFinder interface {
	FindByID(ctx context.Context, id int64) (*model.ReadingItem, error)
}

// Service は読書進捗のサービス層。
type Service struct {
	repo  repository.ReadingProgressRepository
	users UserFinder
	items ReadingItemFinder
	tx    TxRunner
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.ReadingProgressRepository,
	users UserFinder,
	items ReadingItemFinder,
	tx TxRunner,
) *Service {
	return &Service{
		repo:  repo,
		users: users,
		items: items,
		tx:    tx,
	}
}

// Add はユーザーの読み物に対する進捗を作成する。
// 同じ(ユーザー, 読み物)の進捗が既にある場合はALREADY_EXISTS_ERRORを返す。
// 同時作成で事前チェックをすり抜けた場合はDBの一意制約から同じエラーになる。
func (s *Service) Add(ctx context.Context, userID, readingItemID int64, lastReadChapter int) (*model.ReadingProgress, error) {
	var created *model.ReadingProgress
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
		}
		if u == nil {
			return model.NewUserNotFoundError(userID)
		}

		item, err := s.items.FindByID(ctx, readingItemID)
		if err != nil {
			return fmt.Errorf("読み物の取得に失敗しました: %w", err)
		}
		if item == nil {
			return model.NewReadingItemNotFoundError(readingItemID)
		}

		existing, err := s.repo.FindByUserAndItem(ctx, userID, readingItemID)
		if err != nil {
			return fmt.Errorf("読書進捗の取得に失敗しました: %w", err)
		}
		if existing != nil {
			return model.NewReadingProgressAlreadyExistsError(userID, readingItemID)
		}

		p := &model.ReadingProgress{
			UserID:          userID,
			ReadingItemID:   readingItemID,
			LastReadChapter: lastReadChapter,
		}
		if err := s.repo.SaveAndFlush(ctx, p); err != nil {
			return err
		}
		p.ReadingItem = item
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("読書進捗を作成しました",
		slog.Int64("user_id", userID),
		slog.Int64("reading_item_id", readingItemID),
	)
	return created, nil
}

// Get はユーザーの読み物に対する進捗を返す。存在しない場合はNOT_FOUND_ERRORを返す。
func (s *Service) Get(ctx context.Context, userID, readingItemID int64) (*model.ReadingProgress, error) {
	p, err := s.repo.FindByUserAndItem(ctx, userID, readingItemID)
	if err != nil {
		return nil, fmt.Errorf("読書進捗の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewReadingProgressNotFoundError(userID, readingItemID)
	}
	return p, nil
}

// ListForUser はユーザーの全進捗を返す。
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*model.ReadingProgress, error) {
	list, err := s.repo.FindAllByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("読書進捗一覧の取得に失敗しました: %w", err)
	}
	return list, nil
}

// Update は非nilのフィールドだけを上書きして保存し、更新後の進捗を返す。
func (s *Service) Update(ctx context.Context, userID, readingItemID int64, update model.ReadingProgressUpdate) (*model.ReadingProgress, error) {
	p, err := s.Get(ctx, userID, readingItemID)
	if err != nil {
		return nil, err
	}
	update.Apply(p)
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete はユーザーの読み物に対する進捗を削除する。
func (s *Service) Delete(ctx context.Context, userID, readingItemID int64) error {
	p, err := s.Get(ctx, userID, readingItemID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, p)
}
