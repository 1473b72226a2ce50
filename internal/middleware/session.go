// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zane-ops/guestbook/internal/model"
	"github.com/zane-ops/guestbook/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	sessionContextKey = contextKey("session")
	userContextKey    = contextKey("user")
	userIDContextKey  = contextKey("user_id")
)

// SessionLoader はリクエストからセッションを復元する。
// session.Storageが実装する。
type SessionLoader interface {
	FromRequest(r *http.Request) *session.Session
}

// UserResolver はセッションからログインユーザーを解決する。
// auth.Serviceが実装する。
type UserResolver interface {
	ResolveUser(ctx context.Context, sess *session.Session) (*model.User, error)
}

// NewSessionMiddleware はCookieからセッションを復元し、ログインユーザーを解決して
// リクエストコンテキストに注入するミドルウェアを返す。
// セッションの保存はハンドラーがレスポンス書き込み前に行う。
// 未認証のリクエストも拒否せずに通す。
func NewSessionMiddleware(loader SessionLoader, resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := loader.FromRequest(r)
			ctx := ContextWithSession(r.Context(), sess)

			user, err := resolver.ResolveUser(ctx, sess)
			if err != nil {
				slog.Error("failed to resolve user",
					slog.String("error", err.Error()),
				)
				user = nil
			}
			if user != nil {
				ctx = ContextWithUser(ctx, user)
				annotateUserID(ctx, user.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過していない場合はnilを返す。
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionContextKey).(*session.Session)
	return sess
}

// ContextWithSession はコンテキストにセッションを注入する。
func ContextWithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// UserFromContext はリクエストコンテキストからログインユーザーを取得する。
// 未認証の場合はnil。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithUser はコンテキストにログインユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, userIDContextKey, user.ID)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}
