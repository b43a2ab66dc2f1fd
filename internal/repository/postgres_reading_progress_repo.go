package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/necrock/readingtracker/internal/database"
	"github.com/necrock/readingtracker/internal/model"
)

// reading_progressテーブルの制約名。
const (
	ConstraintReadingProgressUniqueUserReadingItem = "reading_progress_unique_user_reading_item"
	ConstraintReadingProgressFKUser                = "reading_progress_fk_user"
	ConstraintReadingProgressFKReadingItem         = "reading_progress_fk_reading_item"
)

// readingProgressSelect は進捗と読み物の概要をまとめて取得するSELECT句。
const readingProgressSelect = `SELECT p.id, p.user_id, p.reading_item_id, p.last_read_chapter,
       i.id, i.title, i.type, i.author, i.total_chapters, i.created_at
  FROM reading_progress p
  JOIN reading_items i ON i.id = p.reading_item_id`

type postgresReadingProgressStore struct {
	db *sql.DB
}

// PostgresReadingProgressRepo はPostgreSQLを使用した読書進捗リポジトリ。
// (ユーザー, 読み物)の重複はALREADY_EXISTS、参照先の欠落はNOT_FOUNDに変換される。
type PostgresReadingProgressRepo struct {
	*SafeRepository[model.ReadingProgress, int64]
	store *postgresReadingProgressStore
}

// NewPostgresReadingProgressRepo はPostgresReadingProgressRepoを生成する。observerはnilでもよい。
func NewPostgresReadingProgressRepo(db *sql.DB, observer ConstraintObserver) *PostgresReadingProgressRepo {
	store := &postgresReadingProgressStore{db: db}
	constraints := []Constraint[model.ReadingProgress]{
		{
			Name: ConstraintReadingProgressUniqueUserReadingItem,
			Err: func(p *model.ReadingProgress) error {
				return model.NewReadingProgressAlreadyExistsError(p.UserID, p.ReadingItemID)
			},
		},
		{
			Name: ConstraintReadingProgressFKUser,
			Err: func(p *model.ReadingProgress) error {
				return model.NewUserNotFoundError(p.UserID)
			},
		},
		{
			Name: ConstraintReadingProgressFKReadingItem,
			Err: func(p *model.ReadingProgress) error {
				return model.NewReadingItemNotFoundError(p.ReadingItemID)
			},
		},
	}
	hooks := Hooks[model.ReadingProgress]{
		OnSave: store.attachToReadingItem,
	}
	return &PostgresReadingProgressRepo{
		SafeRepository: NewSafeRepository[model.ReadingProgress, int64](store, constraints, hooks, observer),
		store:          store,
	}
}

// FindByUserAndItem はユーザーと読み物の組で進捗を取得する。見つからない場合はnilを返す。
func (r *PostgresReadingProgressRepo) FindByUserAndItem(ctx context.Context, userID, readingItemID int64) (*model.ReadingProgress, error) {
	row := database.Conn(ctx, r.store.db).QueryRowContext(ctx,
		readingProgressSelect+` WHERE p.user_id = $1 AND p.reading_item_id = $2`,
		userID, readingItemID,
	)
	p, err := scanReadingProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reading progress by user and item: %w", err)
	}
	return p, nil
}

// FindAllByUserID はユーザーの全進捗を読み物ID順に取得する。
func (r *PostgresReadingProgressRepo) FindAllByUserID(ctx context.Context, userID int64) ([]*model.ReadingProgress, error) {
	return r.store.query(ctx, readingProgressSelect+` WHERE p.user_id = $1 ORDER BY p.reading_item_id`, userID)
}

// attachToReadingItem は新規の進捗を親の読み物に関連付ける。
// 親の行をFOR KEY SHAREでロックし、同時に読み物が削除されて孤立行が残ることを防ぐ。
func (s *postgresReadingProgressStore) attachToReadingItem(ctx context.Context, p *model.ReadingProgress) error {
	if p.ID != 0 {
		return nil
	}

	var id int64
	err := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT id FROM reading_items WHERE id = $1 FOR KEY SHARE`,
		p.ReadingItemID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewReadingItemNotFoundError(p.ReadingItemID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock reading item: %w", err)
	}
	return nil
}

func (s *postgresReadingProgressStore) Save(ctx context.Context, p *model.ReadingProgress) error {
	conn := database.Conn(ctx, s.db)

	if p.ID == 0 {
		err := conn.QueryRowContext(ctx,
			`INSERT INTO reading_progress (user_id, reading_item_id, last_read_chapter)
			 VALUES ($1, $2, $3)
			 RETURNING id`,
			p.UserID, p.ReadingItemID, p.LastReadChapter,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to insert reading progress: %w", err)
		}
		return nil
	}

	result, err := conn.ExecContext(ctx,
		`UPDATE reading_progress SET last_read_chapter = $1 WHERE id = $2`,
		p.LastReadChapter, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reading progress: %w", err)
	}
	return expectAffected(result, model.NewReadingProgressNotFoundError(p.UserID, p.ReadingItemID))
}

func (s *postgresReadingProgressStore) Delete(ctx context.Context, p *model.ReadingProgress) error {
	result, err := database.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM reading_progress WHERE id = $1`,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete reading progress: %w", err)
	}
	return expectAffected(result, model.NewReadingProgressNotFoundError(p.UserID, p.ReadingItemID))
}

func (s *postgresReadingProgressStore) FindByID(ctx context.Context, id int64) (*model.ReadingProgress, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		readingProgressSelect+` WHERE p.id = $1`,
		id,
	)
	p, err := scanReadingProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reading progress by ID: %w", err)
	}
	return p, nil
}

func (s *postgresReadingProgressStore) FindAll(ctx context.Context) ([]*model.ReadingProgress, error) {
	return s.query(ctx, readingProgressSelect+` ORDER BY p.id`)
}

func (s *postgresReadingProgressStore) query(ctx context.Context, query string, args ...any) ([]*model.ReadingProgress, error) {
	rows, err := database.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading progress: %w", err)
	}
	defer rows.Close()

	var list []*model.ReadingProgress
	for rows.Next() {
		p, err := scanReadingProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading progress: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reading progress: %w", err)
	}
	return list, nil
}

func scanReadingProgress(row rowScanner) (*model.ReadingProgress, error) {
	var (
		p        model.ReadingProgress
		item     model.ReadingItem
		itemType string
		chapters sql.NullInt64
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.ReadingItemID, &p.LastReadChapter,
		&item.ID, &item.Title, &itemType, &item.Author, &chapters, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Type = model.ReadingItemType(itemType)
	item.TotalChapters = intPtr(chapters)
	p.ReadingItem = &item
	return &p, nil
}

// compile-time interface check
var (
	_ Store[model.ReadingProgress, int64] = (*postgresReadingProgressStore)(nil)
	_ ReadingProgressRepository           = (*PostgresReadingProgressRepo)(nil)
)
