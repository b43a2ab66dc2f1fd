package handler

import (
	"context"
	"net/http"

	"github.com/necrock/readingtracker/internal/model"
)

// ReadingProgressServiceInterface は読書進捗ハンドラーが必要とするサービスインターフェース。
type ReadingProgressServiceInterface interface {
	Add(ctx context.Context, userID, readingItemID int64, lastReadChapter int) (*model.ReadingProgress, error)
	Get(ctx context.Context, userID, readingItemID int64) (*model.ReadingProgress, error)
	ListForUser(ctx context.Context, userID int64) ([]*model.ReadingProgress, error)
	Update(ctx context.Context, userID, readingItemID int64, update model.ReadingProgressUpdate) (*model.ReadingProgress, error)
	Delete(ctx context.Context, userID, readingItemID int64) error
}

// ReadingProgressHandler は認証ユーザー自身の読書進捗を扱うHTTPハンドラー。
// 他のユーザーの進捗にはアクセスできない。
type ReadingProgressHandler struct {
	service ReadingProgressServiceInterface
}

// NewReadingProgressHandler はReadingProgressHandlerを生成する。
func NewReadingProgressHandler(service ReadingProgressServiceInterface) *ReadingProgressHandler {
	return &ReadingProgressHandler{service: service}
}

type createReadingProgressRequest struct {
	ReadingItemID   *int64 `json:"readingItemId" validate:"required,gt=0"`
	LastReadChapter *int   `json:"lastReadChapter" validate:"omitempty,gte=0"`
}

type updateReadingProgressRequest struct {
	LastReadChapter *int `json:"lastReadChapter" validate:"omitempty,gte=0"`
}

type progressItemResponse struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	TotalChapters *int   `json:"totalChapters"`
}

type readingProgressResponse struct {
	ReadingItem     progressItemResponse `json:"readingItem"`
	LastReadChapter int                  `json:"lastReadChapter"`
}

func toReadingProgressResponse(p *model.ReadingProgress) readingProgressResponse {
	resp := readingProgressResponse{
		ReadingItem:     progressItemResponse{ID: p.ReadingItemID},
		LastReadChapter: p.LastReadChapter,
	}
	if item := p.ReadingItem; item != nil {
		resp.ReadingItem.Title = item.Title
		resp.ReadingItem.Author = item.Author
		resp.ReadingItem.TotalChapters = item.TotalChapters
	}
	return resp
}

// List は認証ユーザーの進捗を全て返す。
// GET /api/progress
func (h *ReadingProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}

	progress, err := h.service.ListForUser(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]readingProgressResponse, 0, len(progress))
	for _, rp := range progress {
		resp = append(resp, toReadingProgressResponse(rp))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は読み物に対する進捗を作成する。lastReadChapterを省略した場合は0になる。
// POST /api/progress
func (h *ReadingProgressHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}

	var req createReadingProgressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	chapter := 0
	if req.LastReadChapter != nil {
		chapter = *req.LastReadChapter
	}

	progress, err := h.service.Add(r.Context(), p.UserID, *req.ReadingItemID, chapter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReadingProgressResponse(progress))
}

// Get は読み物1件に対する進捗を返す。
// GET /api/progress/{readingItemId}
func (h *ReadingProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "readingItemId")
	if !ok {
		return
	}

	progress, err := h.service.Get(r.Context(), p.UserID, itemID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReadingProgressResponse(progress))
}

// Update は進捗を部分更新する。
// PATCH /api/progress/{readingItemId}
func (h *ReadingProgressHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "readingItemId")
	if !ok {
		return
	}

	var req updateReadingProgressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	progress, err := h.service.Update(r.Context(), p.UserID, itemID, model.ReadingProgressUpdate{
		LastReadChapter: req.LastReadChapter,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReadingProgressResponse(progress))
}

// Delete は進捗を削除する。
// DELETE /api/progress/{readingItemId}
func (h *ReadingProgressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "readingItemId")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), p.UserID, itemID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
