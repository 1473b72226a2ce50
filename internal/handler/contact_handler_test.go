package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zane-ops/guestbook/internal/middleware"
	"github.com/zane-ops/guestbook/internal/model"
)

// mockContactService はContactServiceInterfaceのモック実装。
type mockContactService struct {
	listFn        func(ctx context.Context, query string) ([]*model.Contact, error)
	getFn         func(ctx context.Context, id string) (*model.Contact, error)
	createEmptyFn func(ctx context.Context) (*model.Contact, error)
	updateFn      func(ctx context.Context, id string, u model.ContactUpdate) (*model.Contact, error)
	setFavoriteFn func(ctx context.Context, id string, favorite bool) error
	deleteFn      func(ctx context.Context, id string) error
}

func (m *mockContactService) List(ctx context.Context, query string) ([]*model.Contact, error) {
	if m.listFn != nil {
		return m.listFn(ctx, query)
	}
	return nil, nil
}

func (m *mockContactService) Get(ctx context.Context, id string) (*model.Contact, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewContactNotFoundError(id)
}

func (m *mockContactService) CreateEmpty(ctx context.Context) (*model.Contact, error) {
	if m.createEmptyFn != nil {
		return m.createEmptyFn(ctx)
	}
	return &model.Contact{ID: "c-new"}, nil
}

func (m *mockContactService) Update(ctx context.Context, id string, u model.ContactUpdate) (*model.Contact, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, u)
	}
	return &model.Contact{ID: id}, nil
}

func (m *mockContactService) SetFavorite(ctx context.Context, id string, favorite bool) error {
	if m.setFavoriteFn != nil {
		return m.setFavoriteFn(ctx, id, favorite)
	}
	return nil
}

func (m *mockContactService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// newContactRouter はURLパラメータを解決するためにchiルーター経由でハンドラーを公開する。
func newContactRouter(svc ContactServiceInterface) http.Handler {
	h := NewContactHandler(svc, Config{BaseURL: "/"})
	r := chi.NewRouter()
	r.Get("/contacts", h.List)
	r.Post("/contacts", h.Create)
	r.Get("/contacts/{id}", h.Get)
	r.Post("/contacts/{id}/edit", h.Update)
	r.Post("/contacts/{id}/favorite", h.Favorite)
	r.Post("/contacts/{id}/destroy", h.Destroy)
	return r
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestContactHandler_List_PassesQuery(t *testing.T) {
	var gotQuery string
	svc := &mockContactService{
		listFn: func(ctx context.Context, query string) ([]*model.Contact, error) {
			gotQuery = query
			return []*model.Contact{{ID: "c1", First: "Ada", Last: "Lovelace", Favorite: true}}, nil
		},
	}

	w := httptest.NewRecorder()
	newContactRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contacts?q=ada", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotQuery != "ada" {
		t.Errorf("query = %q, want %q", gotQuery, "ada")
	}

	var body contactListResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Q != "ada" || len(body.Contacts) != 1 || body.Contacts[0].Last != "Lovelace" || !body.Contacts[0].Favorite {
		t.Errorf("body = %+v", body)
	}
}

func TestContactHandler_List_EmptyIsArray(t *testing.T) {
	w := httptest.NewRecorder()
	newContactRouter(&mockContactService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contacts", nil))

	if !strings.Contains(w.Body.String(), `"contacts":[]`) {
		t.Errorf("body = %s, want empty contacts array", w.Body.String())
	}
}

func TestContactHandler_Create_RedirectsToEdit(t *testing.T) {
	w := httptest.NewRecorder()
	newContactRouter(&mockContactService{}).ServeHTTP(w, postForm("/contacts", nil))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/contacts/c-new/edit" {
		t.Errorf("Location = %q, want %q", loc, "/contacts/c-new/edit")
	}
}

func TestContactHandler_Get_NotFound_Returns404(t *testing.T) {
	w := httptest.NewRecorder()
	newContactRouter(&mockContactService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contacts/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeContactNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeContactNotFound)
	}
}

func TestContactHandler_Update_PassesFormFields(t *testing.T) {
	var got model.ContactUpdate
	svc := &mockContactService{
		updateFn: func(ctx context.Context, id string, u model.ContactUpdate) (*model.Contact, error) {
			got = u
			return &model.Contact{ID: id}, nil
		},
	}

	form := url.Values{
		"first":   {"Ada"},
		"last":    {"Lovelace"},
		"avatar":  {"https://example.com/ada.png"},
		"twitter": {"@ada"},
		"notes":   {"first programmer"},
	}
	w := httptest.NewRecorder()
	newContactRouter(svc).ServeHTTP(w, postForm("/contacts/c1/edit", form))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/contacts/c1" {
		t.Errorf("Location = %q, want %q", loc, "/contacts/c1")
	}
	want := model.ContactUpdate{First: "Ada", Last: "Lovelace", Avatar: "https://example.com/ada.png", Twitter: "@ada", Notes: "first programmer"}
	if got != want {
		t.Errorf("update = %+v, want %+v", got, want)
	}
}

func TestContactHandler_Update_InvalidAvatar_Returns400(t *testing.T) {
	svc := &mockContactService{
		updateFn: func(ctx context.Context, id string, u model.ContactUpdate) (*model.Contact, error) {
			return nil, model.NewInvalidURLError("private address")
		},
	}

	w := httptest.NewRecorder()
	newContactRouter(svc).ServeHTTP(w, postForm("/contacts/c1/edit", url.Values{"avatar": {"http://127.0.0.1/x.png"}}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestContactHandler_Favorite(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantStatus int
		wantValue  bool
	}{
		{"mark", "true", http.StatusSeeOther, true},
		{"unmark", "false", http.StatusSeeOther, false},
		{"invalid", "maybe", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var got bool
			svc := &mockContactService{
				setFavoriteFn: func(ctx context.Context, id string, favorite bool) error {
					called = true
					got = favorite
					return nil
				},
			}

			w := httptest.NewRecorder()
			newContactRouter(svc).ServeHTTP(w, postForm("/contacts/c1/favorite", url.Values{"favorite": {tt.value}}))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusSeeOther && (!called || got != tt.wantValue) {
				t.Errorf("SetFavorite called=%v value=%v, want value %v", called, got, tt.wantValue)
			}
		})
	}
}

func TestContactHandler_Destroy_RedirectsHome(t *testing.T) {
	var deleted string
	svc := &mockContactService{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}

	w := httptest.NewRecorder()
	newContactRouter(svc).ServeHTTP(w, postForm("/contacts/c1/destroy", nil))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if w.Header().Get("Location") != "/" {
		t.Errorf("Location = %q, want /", w.Header().Get("Location"))
	}
	if deleted != "c1" {
		t.Errorf("deleted = %q, want c1", deleted)
	}
}

func TestContactHandler_Destroy_InternalError_Returns500(t *testing.T) {
	svc := &mockContactService{
		deleteFn: func(ctx context.Context, id string) error {
			return errors.New("db down")
		},
	}

	w := httptest.NewRecorder()
	newContactRouter(svc).ServeHTTP(w, postForm("/contacts/c1/destroy", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
