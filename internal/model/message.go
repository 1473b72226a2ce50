package model

import "time"

// Message はゲストブックに投稿されたメッセージを表す。
// AuthorIDはusers.idを参照し、ユーザー削除時にCASCADE削除される。
type Message struct {
	ID        int64
	AuthorID  string
	Message   string
	CreatedAt time.Time
}

// MessageWithAuthor は一覧表示用に投稿者名を結合したメッセージ。
type MessageWithAuthor struct {
	ID        int64
	Author    string
	Message   string
	CreatedAt time.Time
}
