// Package handler はREST APIのHTTPハンドラーとルーティングを提供する。
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/necrock/readingtracker/internal/auth"
	"github.com/necrock/readingtracker/internal/middleware"
	"github.com/necrock/readingtracker/internal/model"
	"github.com/necrock/readingtracker/internal/validation"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// writeJSON はvをJSONにエンコードして書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeAndValidate はリクエストボディをdstにデコードし、validateタグで検証する。
// 失敗した場合はエラーレスポンスを書き込んでfalseを返す。
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, model.NewBadRequestError("Malformed request body"))
		return false
	}
	if apiErr := validation.Struct(dst); apiErr != nil {
		middleware.WriteErrorResponse(w, apiErr)
		return false
	}
	return true
}

// pathID はURLパラメータnameを正の整数IDとして取り出す。
// 数値でない場合はエラーレスポンスを書き込んでfalseを返す。
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, model.NewValidationError(map[string]string{
			name: "must be a positive integer",
		}))
		return 0, false
	}
	return id, true
}

// currentPrincipal は認証済みのPrincipalを返す。
// RequireAuthenticationの内側で使う前提だが、欠けていれば401を書き込む。
func currentPrincipal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, model.NewUnauthorizedError("Authentication required"))
		return nil, false
	}
	return p, true
}

// handleServiceError はサービス層から返されたエラーをレスポンスに変換する。
// APIError以外は内部エラーとしてログに残し、詳細を返さない。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}
