package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/necrock/readingtracker/internal/database"
	"github.com/necrock/readingtracker/internal/model"
)

// Constraint はDB制約名と、その違反時に返すドメインエラーの対応。
type Constraint[E any] struct {
	// Name はマイグレーションで宣言した制約名。大文字小文字は区別しない。
	Name string
	// Err は違反したエンティティからドメインエラーを組み立てる。
	Err func(entity *E) error
}

// Hooks は保存・削除の前後に差し込む処理。nilのフックは何もしない。
type Hooks[E any] struct {
	// OnSave は保存の直前に呼ばれる。親集約への関連付けなどに使う。
	OnSave func(ctx context.Context, entity *E) error
	// OnDelete は削除の直後に呼ばれる。
	OnDelete func(ctx context.Context, entity *E) error
}

// ConstraintObserver は制約違反の変換を通知されるオブザーバー。
type ConstraintObserver interface {
	RecordConstraintViolation(constraint string)
}

// SafeRepository はStoreをラップし、ストレージの整合性制約違反を
// 登録済みのドメインエラーに変換する。
type SafeRepository[E any, K comparable] struct {
	store       Store[E, K]
	constraints []Constraint[E]
	hooks       Hooks[E]
	observer    ConstraintObserver
}

// NewSafeRepository はSafeRepositoryを生成する。observerはnilでもよい。
func NewSafeRepository[E any, K comparable](
	store Store[E, K],
	constraints []Constraint[E],
	hooks Hooks[E],
	observer ConstraintObserver,
) *SafeRepository[E, K] {
	return &SafeRepository[E, K]{
		store:       store,
		constraints: constraints,
		hooks:       hooks,
		observer:    observer,
	}
}

// Save はエンティティを保存する。
// 登録済みの制約に違反した場合はその制約のドメインエラーを、
// それ以外のストレージエラーは*DatabaseErrorを返す。
func (r *SafeRepository[E, K]) Save(ctx context.Context, entity *E) error {
	if r.hooks.OnSave != nil {
		if err := r.hooks.OnSave(ctx, entity); err != nil {
			return r.translate("save", entity, err)
		}
	}
	if err := r.store.Save(ctx, entity); err != nil {
		return r.translate("save", entity, err)
	}
	return nil
}

// SaveAndFlush はSaveと同じ処理を、呼び出し元のトランザクションに参加して行う。
// トランザクション外で呼ばれた場合はErrNotInTransactionを返す。
func (r *SafeRepository[E, K]) SaveAndFlush(ctx context.Context, entity *E) error {
	if !database.InTx(ctx) {
		return fmt.Errorf("SaveAndFlush: %w", ErrNotInTransaction)
	}
	return r.Save(ctx, entity)
}

// Delete はエンティティを削除し、続けてOnDeleteフックを呼ぶ。
func (r *SafeRepository[E, K]) Delete(ctx context.Context, entity *E) error {
	if err := r.store.Delete(ctx, entity); err != nil {
		return r.translate("delete", entity, err)
	}
	if r.hooks.OnDelete != nil {
		if err := r.hooks.OnDelete(ctx, entity); err != nil {
			return r.translate("delete", entity, err)
		}
	}
	return nil
}

// FindByID は指定IDのエンティティを取得する。見つからない場合はnilを返す。
func (r *SafeRepository[E, K]) FindByID(ctx context.Context, id K) (*E, error) {
	return r.store.FindByID(ctx, id)
}

// FindAll は全件を取得する。
func (r *SafeRepository[E, K]) FindAll(ctx context.Context) ([]*E, error) {
	return r.store.FindAll(ctx)
}

// translate はストレージエラーをドメインエラーに変換する。
// 制約の照合はドライバが返す構造化された制約名で行う。
func (r *SafeRepository[E, K]) translate(op string, entity *E, err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint != "" {
		for _, c := range r.constraints {
			if !strings.EqualFold(c.Name, pqErr.Constraint) {
				continue
			}
			slog.Info("constraint violation translated",
				slog.String("constraint", c.Name),
				slog.String("sqlstate", string(pqErr.Code)),
			)
			if r.observer != nil {
				r.observer.RecordConstraintViolation(c.Name)
			}
			return c.Err(entity)
		}
	}

	return &DatabaseError{Op: op, Cause: err}
}
