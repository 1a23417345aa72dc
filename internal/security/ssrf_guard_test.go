package security

import (
	"strings"
	"testing"
	"time"
)

// TestValidateURL_AllowsPublicURL は公開URLが許可されることを検証する。
func TestValidateURL_AllowsPublicURL(t *testing.T) {
	g := NewSSRFGuard()

	cases := []string{
		"https://cdn.example.com/thumbnails/iot.png",
		"http://images.example.org/course.jpg",
		"https://93.184.216.34/banner.webp",
	}
	for _, u := range cases {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) should pass, got: %v", u, err)
		}
	}
}

// TestValidateURL_BlocksPrivateTargets はプライベート・ループバック・
// メタデータ宛のURLが拒否されることを検証する。
func TestValidateURL_BlocksPrivateTargets(t *testing.T) {
	g := NewSSRFGuard()

	cases := []struct {
		name string
		url  string
	}{
		{"ループバックIP", "http://127.0.0.1/thumb.png"},
		{"localhostホスト名", "http://localhost/thumb.png"},
		{"プライベートIP 10系", "http://10.0.0.5/thumb.png"},
		{"プライベートIP 192.168系", "https://192.168.1.1/thumb.png"},
		{"クラウドメタデータIP", "http://169.254.169.254/latest/meta-data/"},
		{"IPv6ループバック", "http://[::1]/thumb.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := g.ValidateURL(tc.url); err == nil {
				t.Errorf("ValidateURL(%q) should be blocked", tc.url)
			}
		})
	}
}

// TestValidateURL_BlocksDisallowedSchemes はhttp/https以外のスキームが
// 拒否されることを検証する。
func TestValidateURL_BlocksDisallowedSchemes(t *testing.T) {
	g := NewSSRFGuard()

	cases := []string{
		"file:///etc/passwd",
		"ftp://example.com/thumb.png",
		"javascript:alert(1)",
		"",
	}
	for _, u := range cases {
		err := g.ValidateURL(u)
		if err == nil {
			t.Errorf("ValidateURL(%q) should be blocked", u)
		}
	}
}

// TestValidateURL_ErrorMentionsReason は拒否理由がエラーに含まれることを検証する。
func TestValidateURL_ErrorMentionsReason(t *testing.T) {
	g := NewSSRFGuard()

	err := g.ValidateURL("ftp://example.com/x")
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Errorf("scheme rejection should mention scheme, got: %v", err)
	}

	err = g.ValidateURL("http://127.0.0.1/x")
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("IP rejection should mention blocked, got: %v", err)
	}
}

// TestNewSafeClient_ReturnsClient はタイムアウト付きクライアントが生成されることを検証する。
func TestNewSafeClient_ReturnsClient(t *testing.T) {
	g := NewSSRFGuard()

	client := g.NewSafeClient(3 * time.Second)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}
