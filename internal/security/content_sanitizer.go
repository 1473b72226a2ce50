// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はコンタクトのメモを最小限のインライン装飾のみ許可して保存する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー入力のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// SanitizeNotes はp, br, strong, em, aのみを残したHTMLを返す。
	// aタグのhrefはhttp/httpsの絶対URLのみ許可し、rel="nofollow noreferrer"を付与する。
	SanitizeNotes(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type contentSanitizer struct {
	notes *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	notes := bluemonday.NewPolicy()
	notes.AllowElements("p", "br", "strong", "em")
	notes.AllowAttrs("href").OnElements("a")
	notes.AllowURLSchemes("http", "https")
	notes.AllowRelativeURLs(false)
	notes.RequireNoFollowOnLinks(true)
	notes.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		notes: notes,
	}
}

// SanitizeNotes はメモ用のポリシーでサニタイズする。
func (s *contentSanitizer) SanitizeNotes(raw string) string {
	return strings.TrimSpace(s.notes.Sanitize(raw))
}
