package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSafeClient(t *testing.T) {
	client := NewSSRFGuard().NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want %v", client.Timeout, 5*time.Second)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("expected custom Transport")
	}
}

// httptestサーバーはループバックかつhttpのため拒否される。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewSSRFGuard().NewSafeClient(5 * time.Second)
	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

func TestValidateURL_PublicURL(t *testing.T) {
	guard := NewSSRFGuard()

	for _, u := range []string{
		"https://avatars.githubusercontent.com/u/1?v=4",
		"https://sessionize.com/image/124e-400o400o2-wHVdAuNaxi8KJrgtN3ZKci.jpg",
		"http://example.org/me.png",
		"https://8.8.8.8/a.png",
	} {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err != nil {
				t.Errorf("ValidateURL(%q) returned error: %v", u, err)
			}
		})
	}
}

func TestValidateURL_BlockedAddresses(t *testing.T) {
	guard := NewSSRFGuard()

	for _, u := range []string{
		"http://10.0.0.1/a.png",
		"http://172.16.0.1/a.png",
		"http://192.168.1.100/a.png",
		"http://127.0.0.1/a.png",
		"http://localhost/a.png",
		"http://api.localhost/a.png",
		"http://169.254.169.254/latest/meta-data/",
		"http://0.0.0.0/a.png",
		"http://100.64.0.1/a.png",
		"http://[::1]/a.png",
		"http://[::ffff:127.0.0.1]/a.png",
		"http://[fd00::1]/a.png",
	} {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error", u)
			}
		})
	}
}

func TestValidateURL_InvalidURL(t *testing.T) {
	guard := NewSSRFGuard()

	if err := guard.ValidateURL(""); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("ValidateURL(\"\") = %v, want ErrEmptyURL", err)
	}

	for _, u := range []string{
		"not-a-url",
		"ftp://example.com/a.png",
		"file:///etc/passwd",
		"javascript:alert(1)",
		"https://",
	} {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error", u)
			}
		})
	}
}

func TestSSRFGuardInterface(t *testing.T) {
	var _ SSRFGuardService = NewSSRFGuard()
}
