package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/necrock/readingtracker/internal/database"
	"github.com/necrock/readingtracker/internal/model"
)

// ConstraintReadingItemsTotalChaptersNonNegative は総章数が負でないことのCHECK制約。
const ConstraintReadingItemsTotalChaptersNonNegative = "reading_items_total_chapters_non_negative"

const readingItemColumns = `id, title, type, author, total_chapters, created_at`

type postgresReadingItemStore struct {
	db *sql.DB
}

// PostgresReadingItemRepo はPostgreSQLを使用した読み物リポジトリ。
type PostgresReadingItemRepo struct {
	*SafeRepository[model.ReadingItem, int64]
}

// NewPostgresReadingItemRepo はPostgresReadingItemRepoを生成する。observerはnilでもよい。
func NewPostgresReadingItemRepo(db *sql.DB, observer ConstraintObserver) *PostgresReadingItemRepo {
	constraints := []Constraint[model.ReadingItem]{
		{
			Name: ConstraintReadingItemsTotalChaptersNonNegative,
			Err: func(*model.ReadingItem) error {
				return model.NewValidationError(map[string]string{
					"totalChapters": "must be greater than or equal to 0",
				})
			},
		},
	}
	return &PostgresReadingItemRepo{
		SafeRepository: NewSafeRepository[model.ReadingItem, int64](
			&postgresReadingItemStore{db: db}, constraints, Hooks[model.ReadingItem]{}, observer,
		),
	}
}

func (s *postgresReadingItemStore) Save(ctx context.Context, item *model.ReadingItem) error {
	conn := database.Conn(ctx, s.db)

	if item.ID == 0 {
		err := conn.QueryRowContext(ctx,
			`INSERT INTO reading_items (title, type, author, total_chapters, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			item.Title, string(item.Type), item.Author, nullInt(item.TotalChapters), item.CreatedAt,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert reading item: %w", err)
		}
		return nil
	}

	result, err := conn.ExecContext(ctx,
		`UPDATE reading_items
		 SET title = $1, type = $2, author = $3, total_chapters = $4
		 WHERE id = $5`,
		item.Title, string(item.Type), item.Author, nullInt(item.TotalChapters), item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reading item: %w", err)
	}
	return expectAffected(result, model.NewReadingItemNotFoundError(item.ID))
}

// Delete は読み物を削除する。reading_progressはON DELETE CASCADEで削除される。
func (s *postgresReadingItemStore) Delete(ctx context.Context, item *model.ReadingItem) error {
	result, err := database.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM reading_items WHERE id = $1`,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete reading item: %w", err)
	}
	return expectAffected(result, model.NewReadingItemNotFoundError(item.ID))
}

func (s *postgresReadingItemStore) FindByID(ctx context.Context, id int64) (*model.ReadingItem, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+readingItemColumns+` FROM reading_items WHERE id = $1`,
		id,
	)
	item, err := scanReadingItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reading item by ID: %w", err)
	}
	return item, nil
}

func (s *postgresReadingItemStore) FindAll(ctx context.Context) ([]*model.ReadingItem, error) {
	rows, err := database.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+readingItemColumns+` FROM reading_items ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading items: %w", err)
	}
	defer rows.Close()

	var items []*model.ReadingItem
	for rows.Next() {
		item, err := scanReadingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reading items: %w", err)
	}
	return items, nil
}

func scanReadingItem(row rowScanner) (*model.ReadingItem, error) {
	var (
		item     model.ReadingItem
		itemType string
		chapters sql.NullInt64
	)
	if err := row.Scan(&item.ID, &item.Title, &itemType, &item.Author, &chapters, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Type = model.ReadingItemType(itemType)
	item.TotalChapters = intPtr(chapters)
	return &item, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// compile-time interface check
var (
	_ Store[model.ReadingItem, int64] = (*postgresReadingItemStore)(nil)
	_ ReadingItemRepository           = (*PostgresReadingItemRepo)(nil)
)
