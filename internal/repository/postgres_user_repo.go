package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/necrock/readingtracker/internal/database"
	"github.com/necrock/readingtracker/internal/model"
)

// ConstraintUsersUniqueUsername はユーザー名の一意制約。
const ConstraintUsersUniqueUsername = "users_unique_username"

const userColumns = `id, username, email, password_hash, role, status, created_at`

// postgresUserStore はusersテーブルへの素のアクセス。
type postgresUserStore struct {
	db *sql.DB
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
// ユーザー名の重複はALREADY_EXISTSに変換される。
type PostgresUserRepo struct {
	*SafeRepository[model.User, int64]
	store *postgresUserStore
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。observerはnilでもよい。
func NewPostgresUserRepo(db *sql.DB, observer ConstraintObserver) *PostgresUserRepo {
	store := &postgresUserStore{db: db}
	constraints := []Constraint[model.User]{
		{
			Name: ConstraintUsersUniqueUsername,
			Err: func(u *model.User) error {
				return model.NewUserAlreadyExistsError(u.Username)
			},
		},
	}
	return &PostgresUserRepo{
		SafeRepository: NewSafeRepository[model.User, int64](store, constraints, Hooks[model.User]{}, observer),
		store:          store,
	}
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.store.FindByUsername(ctx, username)
}

// Save はIDがゼロなら挿入、それ以外は更新する。
func (s *postgresUserStore) Save(ctx context.Context, u *model.User) error {
	conn := database.Conn(ctx, s.db)

	if u.ID == 0 {
		err := conn.QueryRowContext(ctx,
			`INSERT INTO users (username, email, password_hash, role, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			u.Username, nullString(u.Email), u.PasswordHash, string(u.Role), string(u.Status), u.CreatedAt,
		).Scan(&u.ID)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	}

	result, err := conn.ExecContext(ctx,
		`UPDATE users
		 SET username = $1, email = $2, password_hash = $3, role = $4, status = $5
		 WHERE id = $6`,
		u.Username, nullString(u.Email), u.PasswordHash, string(u.Role), string(u.Status), u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectAffected(result, model.NewUserNotFoundError(u.ID))
}

// Delete はユーザーを物理削除する。通常の運用では状態をDELETEDにする論理削除を使う。
func (s *postgresUserStore) Delete(ctx context.Context, u *model.User) error {
	result, err := database.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectAffected(result, model.NewUserNotFoundError(u.ID))
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *postgresUserStore) FindByID(ctx context.Context, id int64) (*model.User, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return u, nil
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (s *postgresUserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return u, nil
}

// FindAll は全ユーザーをID順に取得する。
func (s *postgresUserStore) FindAll(ctx context.Context) ([]*model.User, error) {
	rows, err := database.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u      model.User
		email  sql.NullString
		role   string
		status string
	)
	if err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &role, &status, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Role = model.Role(role)
	u.Status = model.Status(status)
	return &u, nil
}

// nullString は空文字列をNULLとして保存するための変換。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// expectAffected は更新・削除で1行以上が対象になったことを確認する。
// 読み込み後に行が削除されていた場合はnotFoundを返す。
func expectAffected(result sql.Result, notFound *model.APIError) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// compile-time interface check
var (
	_ Store[model.User, int64] = (*postgresUserStore)(nil)
	_ UserRepository           = (*PostgresUserRepo)(nil)
)
