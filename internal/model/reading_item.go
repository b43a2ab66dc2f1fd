package model

import "time"

// ReadingItemType は読み物の種別。
type ReadingItemType string

const (
	ReadingItemTypeBook    ReadingItemType = "BOOK"
	ReadingItemTypeArticle ReadingItemType = "ARTICLE"
)

// Valid は定義済みの種別かどうかを返す。
func (t ReadingItemType) Valid() bool {
	return t == ReadingItemTypeBook || t == ReadingItemTypeArticle
}

// ReadingItem は進捗を記録できる読み物（書籍・記事）を表す。
// 削除すると紐づく読書進捗もDBのCASCADEで削除される。
type ReadingItem struct {
	ID            int64
	Title         string
	Type          ReadingItemType
	Author        string
	TotalChapters *int
	CreatedAt     time.Time
}

// ReadingItemUpdate は読み物の部分更新の内容。nilのフィールドは変更しない。
type ReadingItemUpdate struct {
	Title         *string
	Type          *ReadingItemType
	Author        *string
	TotalChapters *int
}

// Apply は非nilのフィールドだけをitemに上書きする。
func (u ReadingItemUpdate) Apply(item *ReadingItem) {
	if u.Title != nil {
		item.Title = *u.Title
	}
	if u.Type != nil {
		item.Type = *u.Type
	}
	if u.Author != nil {
		item.Author = *u.Author
	}
	if u.TotalChapters != nil {
		chapters := *u.TotalChapters
		item.TotalChapters = &chapters
	}
}
