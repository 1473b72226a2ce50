package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zane-ops/guestbook/internal/model"
)

// ContactServiceInterface はコンタクトハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	List(ctx context.Context, query string) ([]*model.Contact, error)
	Get(ctx context.Context, id string) (*model.Contact, error)
	CreateEmpty(ctx context.Context) (*model.Contact, error)
	Update(ctx context.Context, id string, u model.ContactUpdate) (*model.Contact, error)
	SetFavorite(ctx context.Context, id string, favorite bool) error
	Delete(ctx context.Context, id string) error
}

// ContactHandler はコンタクト関連のHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
	config  Config
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface, config Config) *ContactHandler {
	return &ContactHandler{service: service, config: config}
}

type contactResponse struct {
	ID        string    `json:"id"`
	First     string    `json:"first"`
	Last      string    `json:"last"`
	Avatar    string    `json:"avatar"`
	Twitter   string    `json:"twitter"`
	Notes     string    `json:"notes"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"createdAt"`
}

type contactListResponse struct {
	Contacts []contactResponse `json:"contacts"`
	Q        string            `json:"q"`
}

// List はコンタクト一覧を返す。qで姓名を部分一致検索する。
// GET /contacts?q=xxx
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	contacts, err := h.service.List(r.Context(), q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := contactListResponse{
		Contacts: make([]contactResponse, len(contacts)),
		Q:        q,
	}
	for i, c := range contacts {
		resp.Contacts[i] = toContactResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は空のコンタクトを作成して編集画面へリダイレクトする。
// POST /contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.CreateEmpty(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/contacts/"+c.ID+"/edit", http.StatusSeeOther)
}

// Get はコンタクトの詳細を返す。
// GET /contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}

// Update はフォームの内容でコンタクトを更新し、詳細へリダイレクトする。
// POST /contacts/{id}/edit
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		handleServiceError(w, model.NewInvalidRequestError())
		return
	}

	id := chi.URLParam(r, "id")
	c, err := h.service.Update(r.Context(), id, model.ContactUpdate{
		First:   r.PostFormValue("first"),
		Last:    r.PostFormValue("last"),
		Avatar:  r.PostFormValue("avatar"),
		Twitter: r.PostFormValue("twitter"),
		Notes:   r.PostFormValue("notes"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/contacts/"+c.ID, http.StatusSeeOther)
}

// Favorite はお気に入り状態を切り替える。
// POST /contacts/{id}/favorite (favorite=true|false)
func (h *ContactHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	favorite, err := strconv.ParseBool(r.PostFormValue("favorite"))
	if err != nil {
		handleServiceError(w, model.NewInvalidRequestError())
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.SetFavorite(r.Context(), id, favorite); err != nil {
		handleServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/contacts/"+id, http.StatusSeeOther)
}

// Destroy はコンタクトを削除してホームへリダイレクトする。
// POST /contacts/{id}/destroy
func (h *ContactHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	http.Redirect(w, r, h.config.homeURL(), http.StatusSeeOther)
}

func toContactResponse(c *model.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		First:     c.First,
		Last:      c.Last,
		Avatar:    c.Avatar,
		Twitter:   c.Twitter,
		Notes:     c.Notes,
		Favorite:  c.Favorite,
		CreatedAt: c.CreatedAt,
	}
}
