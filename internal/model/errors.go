// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/http"
)

// 定義済みエラー種別。レスポンスボディのtypeフィールドにそのまま出力される。
const (
	ErrTypeValidation    = "VALIDATION_ERROR"
	ErrTypeNotFound      = "NOT_FOUND_ERROR"
	ErrTypeAlreadyExists = "ALREADY_EXISTS_ERROR"
	ErrTypeUnauthorized  = "UNAUTHORIZED_ERROR"
	ErrTypeInternal      = "INTERNAL_ERROR"
)

// APIError は統一エラーフォーマットを表す。
// Detailsはバリデーションエラー時のフィールド名→メッセージ。
type APIError struct {
	Type    string
	Message string
	Details map[string]string

	// forbidden はUNAUTHORIZED_ERRORを403として返すかどうか。
	forbidden bool
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// HTTPStatus はエラー種別に対応するHTTPステータスコードを返す。
func (e *APIError) HTTPStatus() int {
	switch e.Type {
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeAlreadyExists:
		return http.StatusConflict
	case ErrTypeUnauthorized:
		if e.forbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError はフィールドごとのエラーを持つバリデーションエラーを生成する。
func NewValidationError(details map[string]string) *APIError {
	return &APIError{
		Type:    ErrTypeValidation,
		Message: "Validation failed",
		Details: details,
	}
}

// NewBadRequestError は詳細を持たないバリデーションエラーを生成する。
// リクエストボディの解析失敗などに使う。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

// NewUnauthorizedError は401として返す認証エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeUnauthorized,
		Message: message,
	}
}

// NewForbiddenError は403として返す認可エラーを生成する。
// 種別はUNAUTHORIZED_ERRORのまま、ステータスのみ403になる。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Type:      ErrTypeUnauthorized,
		Message:   message,
		forbidden: true,
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Type:    ErrTypeInternal,
		Message: "Internal server error",
	}
}

// NewUserNotFoundError は指定IDのユーザーが存在しない場合のエラーを生成する。
func NewUserNotFoundError(id int64) *APIError {
	return &APIError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("No user with id %d", id),
	}
}

// NewUsernameNotFoundError は指定ユーザー名のユーザーが存在しない場合のエラーを生成する。
func NewUsernameNotFoundError(username string) *APIError {
	return &APIError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("No user with username '%s'", username),
	}
}

// NewUserAlreadyExistsError はユーザー名が重複した場合のエラーを生成する。
func NewUserAlreadyExistsError(username string) *APIError {
	return &APIError{
		Type:    ErrTypeAlreadyExists,
		Message: fmt.Sprintf("User with username '%s' already exists", username),
	}
}

// NewReadingItemNotFoundError は読み物が存在しない場合のエラーを生成する。
func NewReadingItemNotFoundError(id int64) *APIError {
	return &APIError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("No reading item with id %d", id),
	}
}

// NewReadingProgressNotFoundError は読書進捗が存在しない場合のエラーを生成する。
func NewReadingProgressNotFoundError(userID, readingItemID int64) *APIError {
	return &APIError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("No reading progress for user %d and reading item %d", userID, readingItemID),
	}
}

// NewReadingProgressAlreadyExistsError は(ユーザー, 読み物)の進捗が既に存在する場合のエラーを生成する。
func NewReadingProgressAlreadyExistsError(userID, readingItemID int64) *APIError {
	return &APIError{
		Type:    ErrTypeAlreadyExists,
		Message: fmt.Sprintf("Reading progress for user %d and reading item %d already exists", userID, readingItemID),
	}
}
