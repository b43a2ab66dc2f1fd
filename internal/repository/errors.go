package repository

import (
	"errors"
	"fmt"
)

// ErrNotInTransaction はトランザクション必須の操作がトランザクション外で呼ばれたことを表す。
// 呼び出し側の実装誤りであり、リトライで解消することはない。
var ErrNotInTransaction = errors.New("no transaction is in progress")

// DatabaseError は既知の制約に該当しないストレージ層のエラーを表す。
// HTTP境界では内部エラーとして扱われ、詳細はログにのみ残る。
type DatabaseError struct {
	Op    string
	Cause error
}

// Error はerrorインターフェースを実装する。
func (e *DatabaseError) Error() string {
	return fmt.Sprintf("Failed to %s: %s", e.Op, rootCauseMessage(e.Cause))
}

// Unwrap は原因エラーを返す。
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// rootCauseMessage はエラーチェーンの最も内側のエラーメッセージを返す。
func rootCauseMessage(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
