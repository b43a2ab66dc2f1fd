package middleware

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/necrock/readingtracker/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// detailsはバリデーションエラーのときだけ出力する。
type ErrorResponseBody struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// ステータスコードはエラー種別から決まる。
func WriteErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	writeErrorBody(w, apiErr.HTTPStatus(), ErrorResponseBody{
		Type:    apiErr.Type,
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, model.NewInternalError())
}

func writeErrorBody(w http.ResponseWriter, status int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}
