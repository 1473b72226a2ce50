package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zane-ops/guestbook/internal/model"
)

// PostgresContactRepo はPostgreSQLを使用したコンタクトリポジトリ。
type PostgresContactRepo struct {
	db *sql.DB
}

// NewPostgresContactRepo はPostgresContactRepoを生成する。
func NewPostgresContactRepo(db *sql.DB) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

const contactColumns = `id, first, last, avatar, twitter, notes, favorite, created_at`

func scanContact(row rowScanner) (*model.Contact, error) {
	var c model.Contact
	if err := row.Scan(&c.ID, &c.First, &c.Last, &c.Avatar, &c.Twitter, &c.Notes, &c.Favorite, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// likeEscaper はILIKEパターン中のワイルドカードをリテラルとして扱うためにエスケープする。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike はqueryを部分一致用のリテラルに変換する。
func escapeLike(query string) string {
	return likeEscaper.Replace(query)
}

// List はコンタクト一覧を返す。
// queryに含まれる % と _ は文字そのものとして検索する。
func (r *PostgresContactRepo) List(ctx context.Context, query string) ([]*model.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+`
		 FROM contacts
		 WHERE $1 = ''
		    OR first ILIKE '%' || $2 || '%' ESCAPE '\'
		    OR last ILIKE '%' || $2 || '%' ESCAPE '\'
		 ORDER BY last ASC, created_at ASC`,
		query, escapeLike(query),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}

// FindByID は指定IDのコンタクトを取得する。見つからない場合はnilを返す。
func (r *PostgresContactRepo) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contact by ID: %w", err)
	}
	return c, nil
}

// Create はコンタクトを作成する。
func (r *PostgresContactRepo) Create(ctx context.Context, c *model.Contact) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO contacts (id, first, last, avatar, twitter, notes, favorite)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		c.ID, c.First, c.Last, c.Avatar, c.Twitter, c.Notes, c.Favorite,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

// Update はコンタクトを更新する。見つからない場合はnilを返す。
func (r *PostgresContactRepo) Update(ctx context.Context, id string, u model.ContactUpdate) (*model.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx,
		`UPDATE contacts
		 SET first = $2, last = $3, avatar = $4, twitter = $5, notes = $6
		 WHERE id = $1
		 RETURNING `+contactColumns,
		id, u.First, u.Last, u.Avatar, u.Twitter, u.Notes,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return c, nil
}

// SetFavorite はお気に入り状態を更新する。
func (r *PostgresContactRepo) SetFavorite(ctx context.Context, id string, favorite bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET favorite = $2 WHERE id = $1`,
		id, favorite,
	)
	if err != nil {
		return fmt.Errorf("failed to update favorite: %w", err)
	}
	return requireRowsAffected(result)
}

// Delete はコンタクトを削除する。
func (r *PostgresContactRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return requireRowsAffected(result)
}

func requireRowsAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ ContactRepository = (*PostgresContactRepo)(nil)
