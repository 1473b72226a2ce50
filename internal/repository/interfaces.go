// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/zane-ops/guestbook/internal/model"
)

// ErrDuplicateUsername はユーザー名が既に使われている場合のエラー。
var ErrDuplicateUsername = errors.New("username already exists")

// ErrNotFound は更新・削除対象の行が存在しない場合のエラー。
var ErrNotFound = errors.New("record not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// UpsertByGitHubID はGitHubプロフィールでユーザーを作成または更新する。
	// github_idが既に存在する場合はavatar_urlのみ更新し、既存のidを維持する。
	// newIDは新規作成時に使うid。
	UpsertByGitHubID(ctx context.Context, newID string, profile *model.GitHubProfile) (*model.User, error)

	// Create はパスワード登録のユーザーを作成する。
	// ユーザー名が重複する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error
}

// MessageRepository はゲストブックのメッセージ永続化インターフェース。
type MessageRepository interface {
	// Create はメッセージを作成し、採番されたIDと作成日時をmessageに設定する。
	Create(ctx context.Context, message *model.Message) error

	// ListWithAuthor は投稿者名を結合したメッセージを新しい順に最大limit件返す。
	ListWithAuthor(ctx context.Context, limit int) ([]model.MessageWithAuthor, error)
}

// ContactRepository はコンタクトの永続化インターフェース。
type ContactRepository interface {
	// List はコンタクト一覧を姓、作成日時の順で返す。
	// queryが空でない場合は姓名の部分一致（大文字小文字を区別しない）で絞り込む。
	List(ctx context.Context, query string) ([]*model.Contact, error)

	// FindByID は指定IDのコンタクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Contact, error)

	// Create はコンタクトを作成する。
	Create(ctx context.Context, contact *model.Contact) error

	// Update はコンタクトの編集可能な項目を更新し、更新後の値を返す。
	// 見つからない場合はnilを返す。
	Update(ctx context.Context, id string, update model.ContactUpdate) (*model.Contact, error)

	// SetFavorite はお気に入り状態を更新する。見つからない場合はErrNotFoundを返す。
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// Delete はコンタクトを削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// HealthProbe はデータベースの疎通確認インターフェース。
type HealthProbe interface {
	// Check はデータベースに簡単なクエリを発行して疎通を確認する。
	Check(ctx context.Context) error
}
