package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/zane-ops/guestbook/internal/auth"
	"github.com/zane-ops/guestbook/internal/guestbook"
	"github.com/zane-ops/guestbook/internal/kv"
	"github.com/zane-ops/guestbook/internal/middleware"
	"github.com/zane-ops/guestbook/internal/model"
	"github.com/zane-ops/guestbook/internal/session"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	getLoginURLFn          func(state string) string
	handleGitHubCallbackFn func(ctx context.Context, code string) (*model.User, error)
	loginWithPasswordFn    func(ctx context.Context, creds auth.Credentials) (*model.User, error)
	registerFn             func(ctx context.Context, creds auth.Credentials) (*model.User, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://github.com/login/oauth/authorize?state=" + state
}

func (m *mockAuthService) HandleGitHubCallback(ctx context.Context, code string) (*model.User, error) {
	if m.handleGitHubCallbackFn != nil {
		return m.handleGitHubCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) LoginWithPassword(ctx context.Context, creds auth.Credentials) (*model.User, error) {
	if m.loginWithPasswordFn != nil {
		return m.loginWithPasswordFn(ctx, creds)
	}
	return nil, auth.ErrInvalidCredentials
}

func (m *mockAuthService) Register(ctx context.Context, creds auth.Credentials) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, creds)
	}
	return nil, nil
}

// mockGuestbookService はGuestbookServiceInterfaceのモック実装。
type mockGuestbookService struct {
	validateMessageFn func(raw string) (string, *model.ValidationError)
	postFn            func(ctx context.Context, authorID, text string) (*model.Message, error)
	listFn            func(ctx context.Context) ([]guestbook.MessageView, error)
}

func (m *mockGuestbookService) ValidateMessage(raw string) (string, *model.ValidationError) {
	if m.validateMessageFn != nil {
		return m.validateMessageFn(raw)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		verr := model.NewValidationError()
		verr.AddField("message", "String must contain at least 1 character(s)")
		return "", verr
	}
	return text, nil
}

func (m *mockGuestbookService) Post(ctx context.Context, authorID, text string) (*model.Message, error) {
	if m.postFn != nil {
		return m.postFn(ctx, authorID, text)
	}
	return &model.Message{ID: 1, AuthorID: authorID, Message: text}, nil
}

func (m *mockGuestbookService) List(ctx context.Context) ([]guestbook.MessageView, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []guestbook.MessageView{}, nil
}

// failingStore はすべての操作が失敗するkv.Store。
type failingStore struct {
	err error
}

func (s *failingStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	return false, s.err
}

func (s *failingStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return s.err
}

func (s *failingStore) Delete(ctx context.Context, key string) error { return s.err }

func (s *failingStore) Ping(ctx context.Context) error { return s.err }

// --- テストヘルパー ---

const testCookieName = "__session"

func newTestStorage(t *testing.T) (*session.Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	storage, err := session.NewStorage(kv.NewRedisStore(client, kv.SessionPrefix), session.Options{
		Secrets: []string{"handler-test-secret"},
	})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage, mr
}

func newStorageWithStore(t *testing.T, store kv.Store) *session.Storage {
	t.Helper()
	storage, err := session.NewStorage(store, session.Options{
		Secrets: []string{"handler-test-secret"},
	})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage
}

// formRequest はフォーム送信のリクエストを生成し、セッションとユーザーをコンテキストに注入する。
func formRequest(target string, form url.Values, sess *session.Session, user *model.User) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withSession(req, sess, user)
}

func withSession(req *http.Request, sess *session.Session, user *model.User) *http.Request {
	ctx := req.Context()
	if sess != nil {
		ctx = middleware.ContextWithSession(ctx, sess)
	}
	if user != nil {
		ctx = middleware.ContextWithUser(ctx, user)
	}
	return req.WithContext(ctx)
}

// sessionCookies はレスポンスのSet-CookieからセッションCookieを順に取り出す。
func sessionCookies(resp *http.Response) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			out = append(out, c)
		}
	}
	return out
}

// reload はレスポンスの最後のセッションCookieからセッションを復元する。
func reload(t *testing.T, storage *session.Storage, resp *http.Response) *session.Session {
	t.Helper()
	cookies := sessionCookies(resp)
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie in the response")
	}
	last := cookies[len(cookies)-1]
	return storage.Decode(context.Background(), last.Name+"="+last.Value)
}

var testUser = &model.User{ID: "user-1", Username: "octocat", AvatarURL: "https://avatars.example.com/1"}
