// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"

	"github.com/necrock/readingtracker/internal/model"
)

// Store はエンティティ1種類に対する素の永続化操作。
// 制約違反の変換は行わず、SafeRepositoryがラップして使う。
type Store[E any, K comparable] interface {
	// Save はIDがゼロ値なら挿入してIDを採番し、そうでなければ更新する。
	Save(ctx context.Context, entity *E) error
	// Delete はエンティティを削除する。
	Delete(ctx context.Context, entity *E) error
	// FindByID は指定IDのエンティティを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id K) (*E, error)
	// FindAll は全件を取得する。
	FindAll(ctx context.Context) ([]*E, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// FindAll は全ユーザーをID順に取得する。
	FindAll(ctx context.Context) ([]*model.User, error)
	// Save はユーザーを保存する。ユーザー名の重複はALREADY_EXISTSに変換される。
	Save(ctx context.Context, user *model.User) error
	// SaveAndFlush はSaveと同じだが、トランザクション内での呼び出しを必須とする。
	SaveAndFlush(ctx context.Context, user *model.User) error
}

// ReadingItemRepository は読み物データの永続化インターフェース。
type ReadingItemRepository interface {
	// FindByID は指定IDの読み物を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.ReadingItem, error)
	// FindAll は全読み物をID順に取得する。
	FindAll(ctx context.Context) ([]*model.ReadingItem, error)
	// Save は読み物を保存する。
	Save(ctx context.Context, item *model.ReadingItem) error
	// Delete は読み物を削除する。紐づく進捗はCASCADE削除される。
	Delete(ctx context.Context, item *model.ReadingItem) error
}

// ReadingProgressRepository は読書進捗データの永続化インターフェース。
type ReadingProgressRepository interface {
	// FindByUserAndItem はユーザーと読み物の組で進捗を取得する。見つからない場合はnilを返す。
	FindByUserAndItem(ctx context.Context, userID, readingItemID int64) (*model.ReadingProgress, error)
	// FindAllByUserID はユーザーの全進捗を取得する。
	FindAllByUserID(ctx context.Context, userID int64) ([]*model.ReadingProgress, error)
	// Save は進捗を保存する。
	Save(ctx context.Context, progress *model.ReadingProgress) error
	// SaveAndFlush はSaveと同じだが、トランザクション内での呼び出しを必須とする。
	SaveAndFlush(ctx context.Context, progress *model.ReadingProgress) error
	// Delete は進捗を削除する。
	Delete(ctx context.Context, progress *model.ReadingProgress) error
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}
