package model

import "time"

// User はゲストブックの利用ユーザーを表す。
// IDはローカルで発行するUUIDで、セッションにはこの値のみを保存する。
// GitHubログインのユーザーはGitHubIDを、パスワード登録のユーザーはPasswordHashを持つ。
type User struct {
	ID           string
	GitHubID     string
	Username     string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

// HasPassword はパスワード認証が可能なユーザーかどうかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// GitHubProfile はGitHubのプロフィールから得たユーザー情報。
// UpsertByGitHubIDの入力として使用する。
type GitHubProfile struct {
	GitHubID  string
	Username  string
	AvatarURL string
	Bio       string
	Location  string
}
