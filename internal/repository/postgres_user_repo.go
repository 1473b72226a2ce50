package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zane-ops/guestbook/internal/database"
	"github.com/zane-ops/guestbook/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, github_id, username, avatar_url, password_hash, created_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user         model.User
		githubID     sql.NullString
		avatarURL    sql.NullString
		passwordHash sql.NullString
	)
	if err := row.Scan(&user.ID, &githubID, &user.Username, &avatarURL, &passwordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.GitHubID = githubID.String
	user.AvatarURL = avatarURL.String
	user.PasswordHash = passwordHash.String
	return &user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// UpsertByGitHubID はGitHubプロフィールでユーザーを作成または更新する。
func (r *PostgresUserRepo) UpsertByGitHubID(ctx context.Context, newID string, profile *model.GitHubProfile) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, github_id, username, avatar_url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (github_id) DO UPDATE SET avatar_url = EXCLUDED.avatar_url
		 RETURNING `+userColumns,
		newID, profile.GitHubID, profile.Username, nullString(profile.AvatarURL),
	))
	if err != nil {
		if database.IsUniqueViolation(err, "users_username_key") {
			return nil, fmt.Errorf("failed to upsert github user: %w", ErrDuplicateUsername)
		}
		return nil, fmt.Errorf("failed to upsert github user: %w", err)
	}
	return user, nil
}

// Create はパスワード登録のユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, avatar_url, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		user.ID, user.Username, nullString(user.AvatarURL), nullString(user.PasswordHash),
	).Scan(&user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "users_username_key") {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// nullString は空文字をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
