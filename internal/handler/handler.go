// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zane-ops/guestbook/internal/middleware"
	"github.com/zane-ops/guestbook/internal/model"
	"github.com/zane-ops/guestbook/internal/session"
)

// SessionCommitter はセッションの保存と破棄を行う。session.Storageが実装する。
type SessionCommitter interface {
	Commit(ctx context.Context, sess *session.Session) (string, error)
	Destroy(ctx context.Context, sess *session.Session) (string, error)
}

// SessionStore はリクエストからの復元と保存の両方を行うセッションストア。
type SessionStore interface {
	middleware.SessionLoader
	SessionCommitter
}

// Config はハンドラー共通の設定。
type Config struct {
	// BaseURL は認証やログアウト後のリダイレクト先。
	BaseURL      string
	CookieDomain string
	CookieSecure bool
}

func (c Config) homeURL() string {
	if c.BaseURL == "" {
		return "/"
	}
	return c.BaseURL
}

// sessionFrom はミドルウェアが注入したセッションを返す。無ければ空のセッションを返す。
func sessionFrom(r *http.Request) *session.Session {
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		return sess
	}
	return session.New()
}

// commitSession はセッションを保存してSet-Cookieヘッダーを追加する。
// 保存に失敗した場合は500を書き込みfalseを返す。
func commitSession(w http.ResponseWriter, r *http.Request, sessions SessionCommitter, sess *session.Session) bool {
	setCookie, err := sessions.Commit(r.Context(), sess)
	if err != nil {
		slog.Error("failed to commit session",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return false
	}
	w.Header().Add("Set-Cookie", setCookie)
	return true
}

// commitAndRedirect はセッションを保存して303でリダイレクトする。
func commitAndRedirect(w http.ResponseWriter, r *http.Request, sessions SessionCommitter, sess *session.Session, location string) {
	if !commitSession(w, r, sessions, sess) {
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeContactNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidURL, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeCSRF:
		return http.StatusForbidden
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
