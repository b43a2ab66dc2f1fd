package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/necrock/readingtracker/internal/model"
)

// --- モック定義 ---

type mockReadingProgressService struct {
	addFn         func(ctx context.Context, userID, readingItemID int64, lastReadChapter int) (*model.ReadingProgress, error)
	getFn         func(ctx context.Context, userID, readingItemID int64) (*model.ReadingProgress, error)
	listForUserFn func(ctx context.Context, userID int64) ([]*model.ReadingProgress, error)
	updateFn      func(ctx context.Context, userID, readingItemID int64, update model.ReadingProgressUpdate) (*model.ReadingProgress, error)
	deleteFn      func(ctx context.Context, userID, readingItemID int64) error
}

func (m *mockReadingProgressService) Add(ctx context.Context, userID, readingItemID int64, lastReadChapter int) (*model.ReadingProgress, error) {
	if m.addFn != nil {
		return m.addFn(ctx, userID, readingItemID, lastReadChapter)
	}
	return nil, nil
}

func (m *mockReadingProgressService) Get(ctx context.Context, userID, readingItemID int64) (*model.ReadingProgress, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, readingItemID)
	}
	return nil, model.NewReadingProgressNotFoundError(userID, readingItemID)
}

func (m *mockReadingProgressService) ListForUser(ctx context.Context, userID int64) ([]*model.ReadingProgress, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockReadingProgressService) Update(ctx context.Context, userID, readingItemID int64, update model.ReadingProgressUpdate) (*model.ReadingProgress, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, readingItemID, update)
	}
	return nil, nil
}

func (m *mockReadingProgressService) Delete(ctx context.Context, userID, readingItemID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, readingItemID)
	}
	return nil
}

func sampleProgress(chapter int) *model.ReadingProgress {
	item := sampleItem()
	return &model.ReadingProgress{
		ID:              11,
		UserID:          7,
		ReadingItemID:   item.ID,
		LastReadChapter: chapter,
		ReadingItem:     item,
	}
}

// --- POST /api/progress テスト ---

func TestReadingProgressHandler_Create_DefaultsChapterToZero(t *testing.T) {
	svc := &mockReadingProgressService{
		addFn: func(ctx context.Context, userID, readingItemID int64, lastReadChapter int) (*model.ReadingProgress, error) {
			if userID != 7 || readingItemID != 3 {
				t.Errorf("ids = (%d, %d), want (7, 3)", userID, readingItemID)
			}
			if lastReadChapter != 0 {
				t.Errorf("lastReadChapter = %d, want 0", lastReadChapter)
			}
			return sampleProgress(lastReadChapter), nil
		},
	}
	h := NewReadingProgressHandler(svc)

	req := withPrincipal(jsonRequest(http.MethodPost, "/api/progress", `{"readingItemId":3}`), testPrincipal())
	w := httptest.NewRecorder()
	h.Create(w, req)

	assertStatus(t, w, http.StatusCreated)
	var resp readingProgressResponse
	decodeBody(t, w, &resp)
	want := readingProgressResponse{
		ReadingItem:     progressItemResponse{ID: 3, Title: "Dune", Author: "Frank Herbert", TotalChapters: resp.ReadingItem.TotalChapters},
		LastReadChapter: 0,
	}
	if resp != want {
		t.Errorf("resp = %+v, want %+v", resp, want)
	}
	if resp.ReadingItem.TotalChapters == nil || *resp.ReadingItem.TotalChapters != 48 {
		t.Errorf("totalChapters = %v, want 48", resp.ReadingItem.TotalChapters)
	}
}

func TestReadingProgressHandler_Create_Duplicate_Returns409(t *testing.T) {
	svc := &mockReadingProgressService{
		addFn: func(ctx context.Context, userID, readingItemID int64, lastReadChapter int) (*model.ReadingProgress, error) {
			return nil, model.NewReadingProgressAlreadyExistsError(userID, readingItemID)
		},
	}
	h := NewReadingProgressHandler(svc)

	req := withPrincipal(jsonRequest(http.MethodPost, "/api/progress", `{"readingItemId":3,"lastReadChapter":2}`), testPrincipal())
	w := httptest.NewRecorder()
	h.Create(w, req)

	assertStatus(t, w, http.StatusConflict)
	body := parseErrorBody(t, w)
	if body.Message != "Reading progress for user 7 and reading item 3 already exists" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestReadingProgressHandler_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"missing item id", `{"lastReadChapter":1}`, "readingItemId", "must not be null"},
		{"negative chapter", `{"readingItemId":3,"lastReadChapter":-1}`, "lastReadChapter", "must be greater than or equal to 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReadingProgressHandler(&mockReadingProgressService{
				addFn: func(ctx context.Context, userID, readingItemID int64, lastReadChapter int) (*model.ReadingProgress, error) {
					t.Fatal("service should not be called for invalid input")
					return nil, nil
				},
			})

			req := withPrincipal(jsonRequest(http.MethodPost, "/api/progress", tt.body), testPrincipal())
			w := httptest.NewRecorder()
			h.Create(w, req)

			assertStatus(t, w, http.StatusBadRequest)
			if body := parseErrorBody(t, w); body.Details[tt.field] != tt.msg {
				t.Errorf("details[%s] = %q, want %q", tt.field, body.Details[tt.field], tt.msg)
			}
		})
	}
}

func TestReadingProgressHandler_Create_Unauthenticated(t *testing.T) {
	h := NewReadingProgressHandler(&mockReadingProgressService{})

	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/api/progress", `{"readingItemId":3}`))

	assertStatus(t, w, http.StatusUnauthorized)
}

// --- GET/PATCH/DELETE /api/progress/{readingItemId} テスト ---

func TestReadingProgressHandler_Get_NotFound(t *testing.T) {
	h := NewReadingProgressHandler(&mockReadingProgressService{})

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/progress/3", nil), "readingItemId", "3")
	req = withPrincipal(req, testPrincipal())
	w := httptest.NewRecorder()
	h.Get(w, req)

	assertStatus(t, w, http.StatusNotFound)
	if body := parseErrorBody(t, w); body.Message != "No reading progress for user 7 and reading item 3" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestReadingProgressHandler_Update_Success(t *testing.T) {
	svc := &mockReadingProgressService{
		updateFn: func(ctx context.Context, userID, readingItemID int64, update model.ReadingProgressUpdate) (*model.ReadingProgress, error) {
			if update.LastReadChapter == nil || *update.LastReadChapter != 12 {
				t.Fatalf("LastReadChapter = %v, want 12", update.LastReadChapter)
			}
			p := sampleProgress(4)
			update.Apply(p)
			return p, nil
		},
	}
	h := NewReadingProgressHandler(svc)

	req := withChiURLParam(jsonRequest(http.MethodPatch, "/api/progress/3", `{"lastReadChapter":12}`), "readingItemId", "3")
	req = withPrincipal(req, testPrincipal())
	w := httptest.NewRecorder()
	h.Update(w, req)

	assertStatus(t, w, http.StatusOK)
	var resp readingProgressResponse
	decodeBody(t, w, &resp)
	if resp.LastReadChapter != 12 {
		t.Errorf("lastReadChapter = %d, want 12", resp.LastReadChapter)
	}
}

func TestReadingProgressHandler_Delete_ScopedToCaller(t *testing.T) {
	var gotUser, gotItem int64
	h := NewReadingProgressHandler(&mockReadingProgressService{
		deleteFn: func(ctx context.Context, userID, readingItemID int64) error {
			gotUser, gotItem = userID, readingItemID
			return nil
		},
	})

	req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/api/progress/3", nil), "readingItemId", "3")
	req = withPrincipal(req, testPrincipal())
	w := httptest.NewRecorder()
	h.Delete(w, req)

	assertStatus(t, w, http.StatusNoContent)
	if gotUser != 7 || gotItem != 3 {
		t.Errorf("deleted (%d, %d), want (7, 3)", gotUser, gotItem)
	}
}

func TestReadingProgressHandler_List(t *testing.T) {
	h := NewReadingProgressHandler(&mockReadingProgressService{
		listForUserFn: func(ctx context.Context, userID int64) ([]*model.ReadingProgress, error) {
			return []*model.ReadingProgress{sampleProgress(1), sampleProgress(5)}, nil
		},
	})

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/progress", nil), testPrincipal())
	w := httptest.NewRecorder()
	h.List(w, req)

	assertStatus(t, w, http.StatusOK)
	var resp []readingProgressResponse
	decodeBody(t, w, &resp)
	if len(resp) != 2 || resp[1].LastReadChapter != 5 {
		t.Errorf("resp = %+v", resp)
	}
}
