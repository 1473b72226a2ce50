package model

import "time"

// Contact はコンタクト一覧のエントリを表す。
type Contact struct {
	ID        string
	First     string
	Last      string
	Avatar    string
	Twitter   string
	Notes     string
	Favorite  bool
	CreatedAt time.Time
}

// HasName は姓名のいずれかが設定されているかを返す。
func (c *Contact) HasName() bool {
	return c.First != "" || c.Last != ""
}

// ContactUpdate はコンタクト編集フォームの入力値。
type ContactUpdate struct {
	First   string
	Last    string
	Avatar  string
	Twitter string
	Notes   string
}
