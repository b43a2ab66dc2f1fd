package handler

import (
	"net/http"

	"github.com/necrock/readingtracker/internal/model"
)

// AdminUserHandler は管理者によるユーザー管理のHTTPハンドラー。
// ルーティング側でROLE_ADMINを要求する。
type AdminUserHandler struct {
	service UserServiceInterface
}

// NewAdminUserHandler はAdminUserHandlerを生成する。
func NewAdminUserHandler(service UserServiceInterface) *AdminUserHandler {
	return &AdminUserHandler{service: service}
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE DELETED"`
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER ADMIN"`
}

type adminUserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func toAdminUserResponse(u *model.User) adminUserResponse {
	return adminUserResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     string(u.Role),
		Status:   string(u.Status),
	}
}

// List は全ユーザーを返す。
// GET /api/users
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toAdminUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はユーザーを1件返す。
// GET /api/users/{id}
func (h *AdminUserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdminUserResponse(u))
}

// SetStatus はユーザーのアカウント状態を変更する。
// PUT /api/users/{id}/status
func (h *AdminUserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req setStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SetStatus(r.Context(), id, model.Status(req.Status)); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetRole はユーザーのロールを変更する。
// PUT /api/users/{id}/role
func (h *AdminUserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req setRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SetRole(r.Context(), id, model.Role(req.Role)); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
