// Package contact はコンタクト一覧のドメインロジックを提供する。
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/zane-ops/guestbook/internal/model"
	"github.com/zane-ops/guestbook/internal/repository"
	"github.com/zane-ops/guestbook/internal/security"
)

// Service はコンタクト管理のサービス層。
type Service struct {
	repo      repository.ContactRepository
	sanitizer security.ContentSanitizerService
	guard     security.SSRFGuardService
	newID     func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.ContactRepository,
	sanitizer security.ContentSanitizerService,
	guard security.SSRFGuardService,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		guard:     guard,
		newID:     uuid.NewString,
	}
}

// List はコンタクト一覧を返す。queryは前後の空白を除いてから検索に使う。
func (s *Service) List(ctx context.Context, query string) ([]*model.Contact, error) {
	contacts, err := s.repo.List(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("コンタクト一覧の取得に失敗しました: %w", err)
	}
	return contacts, nil
}

// Get は指定IDのコンタクトを返す。存在しない場合はCONTACT_NOT_FOUNDのAPIErrorを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Contact, error) {
	if !isValidID(id) {
		return nil, model.NewContactNotFoundError(id)
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("コンタクトの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewContactNotFoundError(id)
	}
	return c, nil
}

// CreateEmpty は空のコンタクトを作成する。作成後は編集画面で内容を入力する。
func (s *Service) CreateEmpty(ctx context.Context) (*model.Contact, error) {
	c := &model.Contact{ID: s.newID()}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コンタクトの作成に失敗しました: %w", err)
	}
	return c, nil
}

// Update はコンタクトを更新する。
// avatarは公開http/https URLのみ受け付け、notesはサニタイズして保存する。
func (s *Service) Update(ctx context.Context, id string, u model.ContactUpdate) (*model.Contact, error) {
	if !isValidID(id) {
		return nil, model.NewContactNotFoundError(id)
	}

	u.First = strings.TrimSpace(u.First)
	u.Last = strings.TrimSpace(u.Last)
	u.Twitter = strings.TrimSpace(u.Twitter)
	u.Avatar = strings.TrimSpace(u.Avatar)
	u.Notes = s.sanitizer.SanitizeNotes(u.Notes)

	if u.Avatar != "" {
		if err := s.guard.ValidateURL(u.Avatar); err != nil {
			return nil, model.NewInvalidURLError(err.Error())
		}
	}

	c, err := s.repo.Update(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("コンタクトの更新に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewContactNotFoundError(id)
	}
	return c, nil
}

// SetFavorite はお気に入り状態を更新する。
func (s *Service) SetFavorite(ctx context.Context, id string, favorite bool) error {
	if !isValidID(id) {
		return model.NewContactNotFoundError(id)
	}

	if err := s.repo.SetFavorite(ctx, id, favorite); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewContactNotFoundError(id)
		}
		return fmt.Errorf("お気に入りの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete はコンタクトを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return model.NewContactNotFoundError(id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewContactNotFoundError(id)
		}
		return fmt.Errorf("コンタクトの削除に失敗しました: %w", err)
	}
	return nil
}

// isValidID はidがUUIDとして解釈できるかを返す。
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
