// Package guestbook はゲストブックのメッセージ投稿と一覧のドメインロジックを提供する。
package guestbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zane-ops/guestbook/internal/model"
	"github.com/zane-ops/guestbook/internal/repository"
)

// DefaultListLimit は一覧で返すメッセージの最大件数。
const DefaultListLimit = 100

// ErrAuthorRequired は投稿者が指定されていない場合のエラー。
var ErrAuthorRequired = errors.New("message author is required")

// MessageView は一覧表示用のメッセージ。
type MessageView struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service はゲストブックのサービス層。
type Service struct {
	repo  repository.MessageRepository
	limit int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.MessageRepository) *Service {
	return &Service{
		repo:  repo,
		limit: DefaultListLimit,
	}
}

// ValidateMessage は投稿本文の前後の空白を除いて検証する。
// 本文はそのまま保存し、エスケープは表示側で行う。
func (s *Service) ValidateMessage(raw string) (string, *model.ValidationError) {
	text := strings.TrimSpace(raw)
	if text == "" {
		verr := model.NewValidationError()
		verr.AddField("message", "String must contain at least 1 character(s)")
		return "", verr
	}
	return text, nil
}

// Post は検証済みの本文でメッセージを作成する。
func (s *Service) Post(ctx context.Context, authorID, text string) (*model.Message, error) {
	if authorID == "" {
		return nil, ErrAuthorRequired
	}

	msg := &model.Message{AuthorID: authorID, Message: text}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("メッセージの作成に失敗しました: %w", err)
	}

	slog.Info("message posted",
		slog.Int64("message_id", msg.ID),
		slog.String("user_id", authorID),
	)
	return msg, nil
}

// List は投稿者名付きのメッセージを新しい順に返す。
func (s *Service) List(ctx context.Context) ([]MessageView, error) {
	rows, err := s.repo.ListWithAuthor(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}

	views := make([]MessageView, len(rows))
	for i, row := range rows {
		views[i] = MessageView{
			ID:        row.ID,
			Author:    row.Author,
			Message:   row.Message,
			CreatedAt: row.CreatedAt,
		}
	}
	return views, nil
}
