package model

// ReadingProgress はユーザーごとの読み物の進捗を表す。
// (UserID, ReadingItemID) の組はDBの一意制約で1件に制限される。
type ReadingProgress struct {
	ID              int64
	UserID          int64
	ReadingItemID   int64
	LastReadChapter int

	// ReadingItem は読み取り時にJOINで埋められる読み物の情報。保存時は参照しない。
	ReadingItem *ReadingItem
}

// ReadingProgressUpdate は進捗の部分更新の内容。nilのフィールドは変更しない。
type ReadingProgressUpdate struct {
	LastReadChapter *int
}

// Apply は非nilのフィールドだけをprogressに上書きする。
func (u ReadingProgressUpdate) Apply(progress *ReadingProgress) {
	if u.LastReadChapter != nil {
		progress.LastReadChapter = *u.LastReadChapter
	}
}
