package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zane-ops/guestbook/internal/auth"
	"github.com/zane-ops/guestbook/internal/metrics"
	"github.com/zane-ops/guestbook/internal/middleware"
	"github.com/zane-ops/guestbook/internal/model"
	"github.com/zane-ops/guestbook/internal/repository"
	"github.com/zane-ops/guestbook/internal/session"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600 // 10分

	msgLoggedIn       = "Logged in successfully"
	msgAccountCreated = "Account created successfully"
	msgAuthFailed     = "An unexpected error happened on authentication, please retry"
	msgInvalidLogin   = "Invalid username or password"
	msgDuplicateUser  = "A user with this username already exists."
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleGitHubCallback(ctx context.Context, code string) (*model.User, error)
	LoginWithPassword(ctx context.Context, creds auth.Credentials) (*model.User, error)
	Register(ctx context.Context, creds auth.Credentials) (*model.User, error)
}

// AuthHandler はGitHub OAuthとパスワード認証のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionCommitter
	metrics  metrics.MetricsCollector
	config   Config
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service AuthServiceInterface,
	sessions SessionCommitter,
	collector metrics.MetricsCollector,
	config Config,
) *AuthHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		metrics:  collector,
		config:   config,
	}
}

// GitHubLogin はGitHub OAuthフローを開始する。
// GET /auth/github/login
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	h.startGitHubLogin(w, r, http.StatusTemporaryRedirect)
}

// startGitHubLogin はstateをCookieに保存してGitHubの認可URLへリダイレクトする。
func (h *AuthHandler) startGitHubLogin(w http.ResponseWriter, r *http.Request, status int) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, h.stateCookie(state, oauthStateMaxAge))
	if !commitSession(w, r, h.sessions, sessionFrom(r)) {
		return
	}
	http.Redirect(w, r, h.service.GetLoginURL(state), status)
}

// Callback はGitHubからのOAuthコールバックを処理する。
// どの段階で失敗しても汎用のエラーフラッシュを設定してホームへ戻し、ログイン状態は変えない。
// GET /api/auth/callback/github?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	http.SetCookie(w, h.stateCookie("", -1))

	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		h.failLogin(w, r, sess)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback without code")
		h.failLogin(w, r, sess)
		return
	}

	user, err := h.service.HandleGitHubCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.failLogin(w, r, sess)
		return
	}

	h.completeLogin(w, r, sess, "github", user, msgLoggedIn)
}

// failLogin は汎用の認証エラーをフラッシュしてホームへリダイレクトする。
func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.metrics.RecordLogin("github", outcomeError)
	sess.Flash(session.FlashError, msgAuthFailed)
	commitAndRedirect(w, r, h.sessions, sess, h.config.homeURL())
}

// completeLogin はセッションにユーザーIDを設定し、成功フラッシュを付けてホームへリダイレクトする。
// ログイン前のセッションはストアから削除し、新しいidで発行し直す。
func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request, sess *session.Session, method string, user *model.User, flash string) {
	if sess.ID() != "" {
		if _, err := h.sessions.Destroy(r.Context(), sess); err != nil {
			h.metrics.RecordLogin(method, outcomeError)
			slog.Error("failed to rotate session",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			middleware.WriteInternalServerError(w)
			return
		}
	}
	sess.SetUserID(user.ID)
	sess.Flash(session.FlashSuccess, flash)
	if !commitSession(w, r, h.sessions, sess) {
		h.metrics.RecordLogin(method, outcomeError)
		return
	}
	h.metrics.RecordLogin(method, outcomeSuccess)
	http.Redirect(w, r, h.config.homeURL(), http.StatusSeeOther)
}

// PasswordLogin はユーザー名とパスワードでログインする。
// 入力不備や認証失敗は422で返し、セッションのログイン状態は変えない。
// POST /login
func (h *AuthHandler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	creds, verr := auth.ValidateCredentials(r.PostFormValue("username"), r.PostFormValue("password"))
	if verr != nil {
		h.metrics.RecordLogin("password", outcomeValidation)
		h.rejectForm(w, r, sess, verr)
		return
	}

	user, err := h.service.LoginWithPassword(r.Context(), creds)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.metrics.RecordLogin("password", outcomeUnauthorized)
		verr := model.NewValidationError()
		verr.AddForm(msgInvalidLogin)
		h.rejectForm(w, r, sess, verr)
		return
	}
	if err != nil {
		h.metrics.RecordLogin("password", outcomeError)
		slog.Error("password login failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.completeLogin(w, r, sess, "password", user, msgLoggedIn)
}

// Register はパスワード認証のユーザーを作成してログインする。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	creds, verr := auth.ValidateCredentials(r.PostFormValue("username"), r.PostFormValue("password"))
	if verr != nil {
		h.metrics.RecordLogin("register", outcomeValidation)
		h.rejectForm(w, r, sess, verr)
		return
	}

	user, err := h.service.Register(r.Context(), creds)
	if errors.Is(err, repository.ErrDuplicateUsername) {
		h.metrics.RecordLogin("register", outcomeValidation)
		verr := model.NewValidationError()
		verr.AddField("username", msgDuplicateUser)
		h.rejectForm(w, r, sess, verr)
		return
	}
	if err != nil {
		h.metrics.RecordLogin("register", outcomeError)
		slog.Error("registration failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.completeLogin(w, r, sess, "register", user, msgAccountCreated)
}

// rejectForm はセッションを保存してから422で検証エラーを返す。
func (h *AuthHandler) rejectForm(w http.ResponseWriter, r *http.Request, sess *session.Session, verr *model.ValidationError) {
	if commitSession(w, r, h.sessions, sess) {
		middleware.WriteValidationError(w, verr)
	}
}

func (h *AuthHandler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
