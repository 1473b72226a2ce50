package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zane-ops/guestbook/internal/model"
)

// PostgresMessageRepo はcommentsテーブルを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Create はメッセージを作成する。
func (r *PostgresMessageRepo) Create(ctx context.Context, message *model.Message) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (message, author_id) VALUES ($1, $2)
		 RETURNING id, created_at`,
		message.Message, message.AuthorID,
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListWithAuthor は投稿者名を結合したメッセージを新しい順に返す。
func (r *PostgresMessageRepo) ListWithAuthor(ctx context.Context, limit int) ([]model.MessageWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, u.username, c.message, c.created_at
		 FROM comments c
		 INNER JOIN users u ON u.id = c.author_id
		 ORDER BY c.created_at DESC, c.id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []model.MessageWithAuthor{}
	for rows.Next() {
		var m model.MessageWithAuthor
		if err := rows.Scan(&m.ID, &m.Author, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
