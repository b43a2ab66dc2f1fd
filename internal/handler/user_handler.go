package handler

import (
	"context"
	"net/http"

	"github.com/necrock/readingtracker/internal/auth"
	"github.com/necrock/readingtracker/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, id int64, update model.UserUpdate) (*model.User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	SetStatus(ctx context.Context, id int64, status model.Status) error
	SetRole(ctx context.Context, id int64, role model.Role) error
}

// UserHandler は認証ユーザー自身のアカウントを扱うHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	hasher  auth.PasswordHasher
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, hasher auth.PasswordHasher) *UserHandler {
	return &UserHandler{
		service: service,
		hasher:  hasher,
	}
}

type updateMeRequest struct {
	Email *string `json:"email" validate:"omitempty,email,max=255"`
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type meResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Me は認証ユーザーのプロフィールを返す。
// GET /api/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{Username: u.Username, Email: u.Email})
}

// UpdateMe は認証ユーザーのプロフィールを部分更新する。
// PATCH /api/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}

	var req updateMeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.service.Update(r.Context(), p.UserID, model.UserUpdate{Email: req.Email})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{Username: u.Username, Email: u.Email})
}

// ChangePassword は認証ユーザーのパスワードを変更する。
// PUT /api/me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.service.SetPassword(r.Context(), p.UserID, hash); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteMe は認証ユーザーのアカウントをDELETEDにする。
// 行は残り、以後そのユーザーのトークンは拒否される。
// DELETE /api/me
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}

	if err := h.service.SetStatus(r.Context(), p.UserID, model.StatusDeleted); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
