package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zane-ops/guestbook/internal/kv"
)

// Options はセッションCookieの発行設定。
type Options struct {
	CookieName string
	Secrets    []string
	MaxAge     int // 秒
	Domain     string
	Secure     bool
}

// ErrorObserver はストア操作の失敗を通知するフック。opは "read" / "write" / "delete"。
type ErrorObserver func(op string)

// Storage はCookieとストアの間でセッションを読み書きする。
type Storage struct {
	store    kv.Store
	signer   *Signer
	opts     Options
	observer ErrorObserver
	newID    func() string
}

// NewStorage はStorageを生成する。
func NewStorage(store kv.Store, opts Options) (*Storage, error) {
	signer, err := NewSigner(opts.Secrets)
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = "__session"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 3600 * 24 * 7
	}
	return &Storage{
		store:  store,
		signer: signer,
		opts:   opts,
		newID:  uuid.NewString,
	}, nil
}

// SetErrorObserver はストア操作失敗時のフックを設定する。
func (s *Storage) SetErrorObserver(fn ErrorObserver) {
	s.observer = fn
}

// CookieName はセッションCookie名を返す。
func (s *Storage) CookieName() string {
	return s.opts.CookieName
}

func (s *Storage) maxAge() time.Duration {
	return time.Duration(s.opts.MaxAge) * time.Second
}

func (s *Storage) observe(op string) {
	if s.observer != nil {
		s.observer(op)
	}
}

// FromRequest はリクエストのCookieヘッダーからセッションを読み込む。
func (s *Storage) FromRequest(r *http.Request) *Session {
	return s.Decode(r.Context(), r.Header.Get("Cookie"))
}

// Decode はCookieヘッダーからセッションを復元する。
// Cookieが無い、署名が不正、期限切れ、ストアに存在しない、ストア障害のいずれでも
// 空の新規セッションを返し、エラーにはしない。
func (s *Storage) Decode(ctx context.Context, cookieHeader string) *Session {
	if cookieHeader == "" {
		return New()
	}

	req := http.Request{Header: http.Header{"Cookie": {cookieHeader}}}
	cookie, err := req.Cookie(s.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return New()
	}

	id, err := s.signer.Verify(cookie.Value)
	if err != nil {
		slog.Debug("session cookie rejected", slog.String("error", err.Error()))
		return New()
	}

	var rec record
	found, err := s.store.Get(ctx, id, &rec)
	if err != nil {
		s.observe("read")
		slog.Warn("failed to read session, starting a fresh one",
			slog.String("error", err.Error()),
		)
		return New()
	}
	if !found {
		return New()
	}

	return fromRecord(id, rec)
}

// Commit は必要に応じてセッションを保存し、Set-Cookieヘッダー値を返す。
// 新規または変更されたセッションのみストアへ書き込み、
// 変更の無い既存セッションはidの再署名だけを行う。
func (s *Storage) Commit(ctx context.Context, sess *Session) (string, error) {
	if sess.isNew || sess.dirty {
		id := sess.id
		if id == "" {
			id = s.newID()
		}
		if err := s.store.Set(ctx, id, sess.toRecord(), s.maxAge()); err != nil {
			s.observe("write")
			return "", fmt.Errorf("failed to commit session: %w", err)
		}
		sess.id = id
		sess.isNew = false
		sess.dirty = false
	}

	token, err := s.signer.Sign(sess.id, s.maxAge())
	if err != nil {
		return "", err
	}

	cookie := s.cookie(token)
	cookie.MaxAge = s.opts.MaxAge
	cookie.Expires = time.Now().Add(s.maxAge()).UTC()
	return cookie.String(), nil
}

// Destroy はストアからセッションを削除し、即時失効するSet-Cookieヘッダー値を返す。
func (s *Storage) Destroy(ctx context.Context, sess *Session) (string, error) {
	if sess.id != "" {
		if err := s.store.Delete(ctx, sess.id); err != nil {
			s.observe("delete")
			return "", fmt.Errorf("failed to destroy session: %w", err)
		}
	}

	sess.id = ""
	sess.data = map[string]string{}
	sess.flash = map[string]string{}
	sess.isNew = true
	sess.dirty = false

	cookie := s.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0).UTC()
	return cookie.String(), nil
}

func (s *Storage) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.opts.Domain,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
