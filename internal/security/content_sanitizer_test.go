package security

import (
	"strings"
	"testing"
)

func TestSanitizeNotes_AllowedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.SanitizeNotes("<p><strong>Met</strong> at <em>GopherCon</em><br>2024</p>")
	for _, want := range []string{"<p>", "<strong>Met</strong>", "<em>GopherCon</em>", "<br"} {
		if !strings.Contains(got, want) {
			t.Errorf("SanitizeNotes() = %q, want to contain %q", got, want)
		}
	}
}

func TestSanitizeNotes_RemovesDangerousContent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		notContain []string
	}{
		{"script", `<p>x</p><script>alert(1)</script>`, []string{"<script", "alert"}},
		{"iframe", `<iframe src="https://evil.example"></iframe>`, []string{"<iframe"}},
		{"style", `<style>body{}</style>`, []string{"<style", "body{}"}},
		{"onイベント属性", `<p onclick="alert(1)">x</p>`, []string{"onclick"}},
		{"javascriptスキーム", `<a href="javascript:alert(1)">x</a>`, []string{"javascript:"}},
		{"img", `<img src="https://example.com/a.png">`, []string{"<img"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeNotes(tt.input)
			for _, s := range tt.notContain {
				if strings.Contains(got, s) {
					t.Errorf("SanitizeNotes(%q) = %q, must not contain %q", tt.input, got, s)
				}
			}
		})
	}
}

func TestSanitizeNotes_LinksGetRel(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.SanitizeNotes(`<a href="https://example.com">site</a>`)
	if !strings.Contains(got, `href="https://example.com"`) {
		t.Errorf("href lost: %q", got)
	}
	if !strings.Contains(got, "nofollow") || !strings.Contains(got, "noreferrer") {
		t.Errorf("rel not enforced: %q", got)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()
	input := `<p>Hello <strong>there</strong> <a href="https://example.com">link</a></p>`

	once := sanitizer.SanitizeNotes(input)
	if twice := sanitizer.SanitizeNotes(once); once != twice {
		t.Errorf("not idempotent:\n once = %q\ntwice = %q", once, twice)
	}
}

func TestContentSanitizerInterface(t *testing.T) {
	var _ ContentSanitizerService = NewContentSanitizer()
}
