package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zane-ops/guestbook/internal/guestbook"
	"github.com/zane-ops/guestbook/internal/metrics"
	"github.com/zane-ops/guestbook/internal/middleware"
	"github.com/zane-ops/guestbook/internal/model"
	"github.com/zane-ops/guestbook/internal/session"
)

// フラッシュメッセージ
const (
	msgAuthRequired    = "You must be authenticated to perform this action!"
	msgLoggedOut       = "Logged out successfully"
	msgMessageSent     = "Your message has been sent !"
	msgInvalidIntentFm = "Invalid intent '%s'"
)

// intentの結果ラベル
const (
	outcomeSuccess      = "success"
	outcomeValidation   = "validation"
	outcomeUnauthorized = "unauthorized"
	outcomeInvalid      = "invalid"
	outcomeError        = "error"
)

// GuestbookServiceInterface はゲストブックハンドラーが必要とするサービスインターフェース。
type GuestbookServiceInterface interface {
	ValidateMessage(raw string) (string, *model.ValidationError)
	Post(ctx context.Context, authorID, text string) (*model.Message, error)
	List(ctx context.Context) ([]guestbook.MessageView, error)
}

// GuestbookHandler はゲストブック画面の読み込みとintentの処理を行う。
type GuestbookHandler struct {
	service  GuestbookServiceInterface
	sessions SessionCommitter
	oauth    *AuthHandler
	metrics  metrics.MetricsCollector
	config   Config
}

// NewGuestbookHandler はGuestbookHandlerを生成する。
// oauthはintent "login" でGitHubログインを開始するために使う。
func NewGuestbookHandler(
	service GuestbookServiceInterface,
	sessions SessionCommitter,
	oauth *AuthHandler,
	collector metrics.MetricsCollector,
	config Config,
) *GuestbookHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &GuestbookHandler{
		service:  service,
		sessions: sessions,
		oauth:    oauth,
		metrics:  collector,
		config:   config,
	}
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type flashResponse struct {
	Error   string `json:"error,omitempty"`
	Success string `json:"success,omitempty"`
}

type guestbookResponse struct {
	User     *userResponse           `json:"user"`
	Messages []guestbook.MessageView `json:"messages"`
	Flash    flashResponse           `json:"flash"`
}

// Loader はログインユーザー、メッセージ一覧、フラッシュメッセージを返す。
// フラッシュは読み出した時点で消費され、セッションを保存し直す。
// GET /
func (h *GuestbookHandler) Loader(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	messages, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list messages", slog.String("error", err.Error()))
		if commitSession(w, r, h.sessions, sess) {
			middleware.WriteInternalServerError(w)
		}
		return
	}

	resp := guestbookResponse{
		Messages: messages,
		Flash: flashResponse{
			Error:   sess.FlashMessage(session.FlashError),
			Success: sess.FlashMessage(session.FlashSuccess),
		},
	}
	if user := middleware.UserFromContext(r.Context()); user != nil {
		resp.User = &userResponse{
			ID:        user.ID,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
		}
	}

	if !commitSession(w, r, h.sessions, sess) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Action はフォームのintentに応じて処理を振り分ける。
// POST /
func (h *GuestbookHandler) Action(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	intent := r.PostFormValue("intent")

	switch intent {
	case "login":
		h.metrics.RecordIntent(intent, outcomeSuccess)
		h.oauth.startGitHubLogin(w, r, http.StatusSeeOther)
	case "logout":
		h.logout(w, r, sess)
	case "post":
		h.post(w, r, sess)
	default:
		h.metrics.RecordIntent("unknown", outcomeInvalid)
		sess.Flash(session.FlashError, fmt.Sprintf(msgInvalidIntentFm, intent))
		commitAndRedirect(w, r, h.sessions, sess, h.config.homeURL())
	}
}

// logout はセッションを破棄する。ストアからも削除し、識別子そのものを無効にする。
// レスポンスには失効Cookieと、成功フラッシュを持つ新しいセッションのCookieをこの順で付ける。
func (h *GuestbookHandler) logout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.metrics.RecordIntent("logout", outcomeUnauthorized)
		sess.Flash(session.FlashError, msgAuthRequired)
		commitAndRedirect(w, r, h.sessions, sess, h.config.homeURL())
		return
	}

	expired, err := h.sessions.Destroy(r.Context(), sess)
	if err != nil {
		h.metrics.RecordIntent("logout", outcomeError)
		slog.Error("failed to destroy session",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	w.Header().Add("Set-Cookie", expired)

	// Destroy後のsessは空の新規セッションになっている
	sess.Flash(session.FlashSuccess, msgLoggedOut)
	if !commitSession(w, r, h.sessions, sess) {
		h.metrics.RecordIntent("logout", outcomeError)
		return
	}

	h.metrics.RecordIntent("logout", outcomeSuccess)
	slog.Info("user logged out", slog.String("user_id", user.ID))
	http.Redirect(w, r, h.config.homeURL(), http.StatusSeeOther)
}

// post はメッセージを投稿する。入力検証を認可より先に行う。
func (h *GuestbookHandler) post(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	text, verr := h.service.ValidateMessage(r.PostFormValue("message"))
	if verr != nil {
		h.metrics.RecordIntent("post", outcomeValidation)
		if commitSession(w, r, h.sessions, sess) {
			middleware.WriteValidationError(w, verr)
		}
		return
	}

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.metrics.RecordIntent("post", outcomeUnauthorized)
		sess.Flash(session.FlashError, msgAuthRequired)
		commitAndRedirect(w, r, h.sessions, sess, h.config.homeURL())
		return
	}

	if _, err := h.service.Post(r.Context(), user.ID, text); err != nil {
		h.metrics.RecordIntent("post", outcomeError)
		slog.Error("failed to post message",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		if commitSession(w, r, h.sessions, sess) {
			middleware.WriteInternalServerError(w)
		}
		return
	}

	sess.Flash(session.FlashSuccess, msgMessageSent)
	if !commitSession(w, r, h.sessions, sess) {
		h.metrics.RecordIntent("post", outcomeError)
		return
	}

	h.metrics.RecordIntent("post", outcomeSuccess)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
