// Package readingitem は読み物（書籍・記事）の管理を提供する。
package readingitem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/necrock/readingtracker/internal/clock"
	"github.com/necrock/readingtracker/internal/model"
	"github.com/necrock/readingtracker/internal/repository"
)

// Sanitizer はプレーンテキストのフィールドからマークアップを取り除く。
type Sanitizer interface {
	Text(raw string) string
}

// Service は読み物のサービス層。
type Service struct {
	repo      repository.ReadingItemRepository
	clock     clock.Clock
	sanitizer Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ReadingItemRepository, clk clock.Clock, sanitizer Sanitizer) *Service {
	return &Service{repo: repo, clock: clk, sanitizer: sanitizer}
}

// sanitizeTitle はタイトルからマークアップを除去する。
// 除去の結果が空になった場合はVALIDATION_ERRORを返す。
func (s *Service) sanitizeTitle(title string) (string, error) {
	clean := s.sanitizer.Text(title)
	if clean == "" {
		return "", model.NewValidationError(map[string]string{"title": "must not be blank"})
	}
	return clean, nil
}

// Add は読み物を登録する。
func (s *Service) Add(ctx context.Context, item *model.ReadingItem) error {
	title, err := s.sanitizeTitle(item.Title)
	if err != nil {
		return err
	}
	item.Title = title
	item.Author = s.sanitizer.Text(item.Author)
	item.ID = 0
	item.CreatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, item); err != nil {
		return err
	}
	slog.Info("読み物を登録しました",
		slog.Int64("reading_item_id", item.ID),
		slog.String("type", string(item.Type)),
	)
	return nil
}

// Get は指定IDの読み物を返す。存在しない場合はNOT_FOUND_ERRORを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.ReadingItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("読み物の取得に失敗しました: %w", err)
	}
	if item == nil {
		return nil, model.NewReadingItemNotFoundError(id)
	}
	return item, nil
}

// List は全読み物を返す。
func (s *Service) List(ctx context.Context) ([]*model.ReadingItem, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("読み物一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// Update は非nilのフィールドだけを上書きして保存し、更新後の読み物を返す。
// マークアップの除去も指定されたフィールドにだけ行い、保存済みの値には触れない。
func (s *Service) Update(ctx context.Context, id int64, update model.ReadingItemUpdate) (*model.ReadingItem, error) {
	if update.Title != nil {
		title, err := s.sanitizeTitle(*update.Title)
		if err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if update.Author != nil {
		author := s.sanitizer.Text(*update.Author)
		update.Author = &author
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(item)
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete は読み物を削除する。紐づく読書進捗はストレージ層で連鎖削除される。
func (s *Service) Delete(ctx context.Context, id int64) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, item); err != nil {
		return err
	}
	slog.Info("読み物を削除しました",
		slog.Int64("reading_item_id", id),
	)
	return nil
}
