package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresHealthProbe はcommentsテーブルへの読み取りで疎通を確認する。
type PostgresHealthProbe struct {
	db *sql.DB
}

// NewPostgresHealthProbe はPostgresHealthProbeを生成する。
func NewPostgresHealthProbe(db *sql.DB) *PostgresHealthProbe {
	return &PostgresHealthProbe{db: db}
}

// Check はcommentsから1行読み出す。行が無くても成功とする。
func (p *PostgresHealthProbe) Check(ctx context.Context) error {
	var id int64
	err := p.db.QueryRowContext(ctx, `SELECT id FROM comments LIMIT 1`).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

// compile-time interface check
var _ HealthProbe = (*PostgresHealthProbe)(nil)
