// Package auth はGitHub OAuthとパスワードによる認証、セッションからのユーザー解決を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/zane-ops/guestbook/internal/model"
	"github.com/zane-ops/guestbook/internal/repository"
	"github.com/zane-ops/guestbook/internal/session"
)

// 入力値の最小文字数。
const (
	MinUsernameLength = 3
	MinPasswordLength = 8
)

// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合のエラー。
var ErrInvalidCredentials = errors.New("invalid username or password")

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*model.GitHubProfile, error)
}

// Credentials は検証済みのログイン・登録フォーム入力。
type Credentials struct {
	Username string
	Password string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	userRepo repository.UserRepository
	hasher   PasswordHasher
	newID    func() string
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	hasher PasswordHasher,
) *Service {
	return &Service{
		oauth:    oauth,
		userRepo: userRepo,
		hasher:   hasher,
		newID:    uuid.NewString,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// ResolveUser はセッションのuserIdからユーザーを取得する。
// 未ログイン、またはユーザーが存在しない場合はnil, nilを返す。セッションは変更しない。
func (s *Service) ResolveUser(ctx context.Context, sess *session.Session) (*model.User, error) {
	userID := sess.UserID()
	if userID == "" {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return user, nil
}

// HandleGitHubCallback は認可コードでGitHubのプロフィールを取得し、ユーザーを作成または更新する。
func (s *Service) HandleGitHubCallback(ctx context.Context, code string) (*model.User, error) {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.userRepo.UpsertByGitHubID(ctx, s.newID(), profile)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert github user: %w", err)
	}

	slog.Info("github user logged in",
		slog.String("user_id", user.ID),
		slog.String("github_id", user.GitHubID),
	)
	return user, nil
}

// ValidateCredentials はユーザー名とパスワードを検証する。
// ユーザー名は前後の空白を除いてから検証する。
func ValidateCredentials(username, password string) (Credentials, *model.ValidationError) {
	creds := Credentials{
		Username: strings.TrimSpace(username),
		Password: password,
	}

	verr := model.NewValidationError()
	if utf8.RuneCountInString(creds.Username) < MinUsernameLength {
		verr.AddField("username", fmt.Sprintf("String must contain at least %d character(s)", MinUsernameLength))
	}
	if utf8.RuneCountInString(creds.Password) < MinPasswordLength {
		verr.AddField("password", fmt.Sprintf("String must contain at least %d character(s)", MinPasswordLength))
	}
	if verr.HasErrors() {
		return creds, verr
	}
	return creds, nil
}

// LoginWithPassword はユーザー名とパスワードで認証する。
// ユーザーが存在しない、パスワード未設定、不一致のいずれもErrInvalidCredentialsを返す。
func (s *Service) LoginWithPassword(ctx context.Context, creds Credentials) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		slog.Warn("stored password hash is unreadable",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Register はパスワード認証のユーザーを作成する。
// ユーザー名が既に使われている場合はrepository.ErrDuplicateUsernameを返す。
func (s *Service) Register(ctx context.Context, creds Credentials) (*model.User, error) {
	existing, err := s.userRepo.FindByUsername(ctx, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrDuplicateUsername
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           s.newID(),
		Username:     creds.Username,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}
