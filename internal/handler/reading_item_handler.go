package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/necrock/readingtracker/internal/model"
)

// ReadingItemServiceInterface は読み物ハンドラーが必要とするサービスインターフェース。
type ReadingItemServiceInterface interface {
	Add(ctx context.Context, item *model.ReadingItem) error
	Get(ctx context.Context, id int64) (*model.ReadingItem, error)
	List(ctx context.Context) ([]*model.ReadingItem, error)
	Update(ctx context.Context, id int64, update model.ReadingItemUpdate) (*model.ReadingItem, error)
	Delete(ctx context.Context, id int64) error
}

// ReadingItemHandler は読み物のHTTPハンドラー。
type ReadingItemHandler struct {
	service ReadingItemServiceInterface
}

// NewReadingItemHandler はReadingItemHandlerを生成する。
func NewReadingItemHandler(service ReadingItemServiceInterface) *ReadingItemHandler {
	return &ReadingItemHandler{service: service}
}

type createReadingItemRequest struct {
	Title         string `json:"title" validate:"required,notblank,max=255"`
	Type          string `json:"type" validate:"required,oneof=BOOK ARTICLE"`
	Author        string `json:"author" validate:"required,notblank,max=255"`
	TotalChapters *int   `json:"totalChapters" validate:"omitempty,gte=0"`
}

type updateReadingItemRequest struct {
	Title         *string `json:"title" validate:"omitempty,notblank,max=255"`
	Type          *string `json:"type" validate:"omitempty,oneof=BOOK ARTICLE"`
	Author        *string `json:"author" validate:"omitempty,notblank,max=255"`
	TotalChapters *int    `json:"totalChapters" validate:"omitempty,gte=0"`
}

// toUpdate はnullまたは省略されたフィールドを変更なしとして扱う。
func (req updateReadingItemRequest) toUpdate() model.ReadingItemUpdate {
	update := model.ReadingItemUpdate{
		Title:         req.Title,
		Author:        req.Author,
		TotalChapters: req.TotalChapters,
	}
	if req.Type != nil {
		t := model.ReadingItemType(*req.Type)
		update.Type = &t
	}
	return update
}

type readingItemResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	Author        string    `json:"author"`
	TotalChapters *int      `json:"totalChapters"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toReadingItemResponse(item *model.ReadingItem) readingItemResponse {
	return readingItemResponse{
		ID:            item.ID,
		Title:         item.Title,
		Type:          string(item.Type),
		Author:        item.Author,
		TotalChapters: item.TotalChapters,
		CreatedAt:     item.CreatedAt,
	}
}

// List は全ての読み物を返す。
// GET /api/items
func (h *ReadingItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]readingItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toReadingItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は読み物を登録する。
// POST /api/items
func (h *ReadingItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReadingItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item := &model.ReadingItem{
		Title:         req.Title,
		Type:          model.ReadingItemType(req.Type),
		Author:        req.Author,
		TotalChapters: req.TotalChapters,
	}
	if err := h.service.Add(r.Context(), item); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReadingItemResponse(item))
}

// Get は読み物を1件返す。
// GET /api/items/{id}
func (h *ReadingItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReadingItemResponse(item))
}

// Update は読み物を部分更新する。
// PATCH /api/items/{id}
func (h *ReadingItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateReadingItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.service.Update(r.Context(), id, req.toUpdate())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReadingItemResponse(item))
}

// Delete は読み物を削除する。紐づく読書進捗も削除される。
// DELETE /api/items/{id}
func (h *ReadingItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
