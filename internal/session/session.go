// Package session は署名付きCookieとキーバリューストアによるセッション管理を提供する。
//
// Cookieにはセッションidを署名したトークンのみを載せ、データ本体は
// ストア上の auth:session:<id> に保存する。
package session

// データとフラッシュのキー。
const (
	KeyUserID    = "userId"
	FlashError   = "error"
	FlashSuccess = "success"
)

// Session は1リクエスト分のセッション状態を表す。
// 並行利用は想定しない。
type Session struct {
	id    string
	data  map[string]string
	flash map[string]string
	isNew bool
	dirty bool
}

// record はストアに保存するセッションの内容。
type record struct {
	Data  map[string]string `json:"data"`
	Flash map[string]string `json:"flash"`
}

// New は空の新規セッションを生成する。idは初回Commit時に採番される。
func New() *Session {
	return &Session{
		data:  map[string]string{},
		flash: map[string]string{},
		isNew: true,
	}
}

func fromRecord(id string, rec record) *Session {
	s := &Session{id: id, data: rec.Data, flash: rec.Flash}
	if s.data == nil {
		s.data = map[string]string{}
	}
	if s.flash == nil {
		s.flash = map[string]string{}
	}
	return s
}

func (s *Session) toRecord() record {
	return record{Data: s.data, Flash: s.flash}
}

// ID はセッションidを返す。未保存のセッションでは空文字。
func (s *Session) ID() string { return s.id }

// IsNew はストアにまだ保存されていないセッションかどうかを返す。
func (s *Session) IsNew() bool { return s.isNew }

// Dirty は読み込み後に変更されたかどうかを返す。
func (s *Session) Dirty() bool { return s.dirty }

// Get はデータ値を返す。
func (s *Session) Get(key string) string { return s.data[key] }

// Set はデータ値を設定する。
func (s *Session) Set(key, value string) {
	s.data[key] = value
	s.dirty = true
}

// Unset はデータ値を削除する。
func (s *Session) Unset(key string) {
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	s.dirty = true
}

// UserID はログイン中のユーザーidを返す。未ログインの場合は空文字。
func (s *Session) UserID() string { return s.data[KeyUserID] }

// SetUserID はログイン中のユーザーidを設定する。
func (s *Session) SetUserID(userID string) { s.Set(KeyUserID, userID) }

// Flash は次回の読み出しで一度だけ返るメッセージを設定する。
func (s *Session) Flash(key, message string) {
	s.flash[key] = message
	s.dirty = true
}

// FlashMessage はフラッシュメッセージを取り出す。
// 取り出したメッセージは削除され、次のCommitで永続化される。
func (s *Session) FlashMessage(key string) string {
	msg, ok := s.flash[key]
	if !ok {
		return ""
	}
	delete(s.flash, key)
	s.dirty = true
	return msg
}

// HasFlash はフラッシュメッセージが残っているかを消費せずに返す。
func (s *Session) HasFlash(key string) bool {
	_, ok := s.flash[key]
	return ok
}
