package database

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX はリポジトリが使うdatabase/sqlの部分集合。
// *sql.DBと*sql.Txの両方が満たす。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txContextKey はコンテキストにトランザクションを格納するためのキー。
type txContextKey struct{}

// ContextWithTx はコンテキストにトランザクションを紐付ける。
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext はコンテキストに紐付いたトランザクションを返す。
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// InTx はコンテキストがトランザクションに参加しているかを返す。
func InTx(ctx context.Context) bool {
	_, ok := TxFromContext(ctx)
	return ok
}

// Conn はコンテキストのトランザクションがあればそれを、なければdbを返す。
// リポジトリはすべてのクエリをこの戻り値経由で発行する。
func Conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// TxManager はサービス層にトランザクション境界を提供する。
type TxManager struct {
	db *sql.DB
}

// NewTxManager はTxManagerを生成する。
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx はトランザクション内でfnを実行する。
// fnがエラーを返すかpanicした場合はロールバックし、それ以外はコミットする。panicは再送出する。
// ctxが既にトランザクションを持つ場合は新たに開始せず、そのトランザクションに参加する。
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTx(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	return fn(ContextWithTx(ctx, tx))
}
