package security

import (
	"strings"
	"testing"
)

// TestSanitizeHTML_AllowedTags は許可タグが保持されることを検証する。
func TestSanitizeHTML_AllowedTags(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>Arduinoで学ぶ<strong>IoT</strong>入門。</p><ul><li>センサー</li><li>通信</li></ul>`
	got := s.SanitizeHTML(input)

	for _, tag := range []string{"<p>", "<strong>", "<ul>", "<li>"} {
		if !strings.Contains(got, tag) {
			t.Errorf("sanitized output should keep %s, got: %s", tag, got)
		}
	}
}

// TestSanitizeHTML_RemovesScript はscriptタグとイベント属性が除去されることを検証する。
func TestSanitizeHTML_RemovesScript(t *testing.T) {
	s := NewContentSanitizer()

	cases := []struct {
		name  string
		input string
		deny  string
	}{
		{"scriptタグ", `<p>ok</p><script>alert(1)</script>`, "<script"},
		{"iframeタグ", `<iframe src="https://evil.example"></iframe>`, "<iframe"},
		{"styleタグ", `<style>body{display:none}</style>`, "<style"},
		{"onclick属性", `<p onclick="alert(1)">x</p>`, "onclick"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.SanitizeHTML(tc.input)
			if strings.Contains(got, tc.deny) {
				t.Errorf("sanitized output should not contain %q, got: %s", tc.deny, got)
			}
		})
	}
}

// TestSanitizeHTML_LinkPolicy はaタグにrel属性が強制付与されることを検証する。
func TestSanitizeHTML_LinkPolicy(t *testing.T) {
	s := NewContentSanitizer()

	got := s.SanitizeHTML(`<a href="https://example.com/syllabus">シラバス</a>`)
	if !strings.Contains(got, `href="https://example.com/syllabus"`) {
		t.Errorf("link href should be kept, got: %s", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("link should carry noopener/noreferrer, got: %s", got)
	}
}

// TestSanitizeHTML_Idempotent は同一入力で常に同一出力となることを検証する。
func TestSanitizeHTML_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>基礎から<em>実践</em>まで</p><script>x</script>`
	first := s.SanitizeHTML(input)
	second := s.SanitizeHTML(first)
	if first != second {
		t.Errorf("sanitize should be idempotent: first=%q second=%q", first, second)
	}
}

// TestSanitizeHTML_Empty は空入力で空出力となることを検証する。
func TestSanitizeHTML_Empty(t *testing.T) {
	s := NewContentSanitizer()
	if got := s.SanitizeHTML(""); got != "" {
		t.Errorf("empty input should yield empty output, got: %q", got)
	}
}

// TestSanitizeText_StripsAllTags は問い合わせメッセージから全タグが除去されることを検証する。
func TestSanitizeText_StripsAllTags(t *testing.T) {
	s := NewContentSanitizer()

	got := s.SanitizeText(`IoT講座について<b>質問</b>です<script>alert(1)</script>`)
	if strings.Contains(got, "<") {
		t.Errorf("text output should contain no tags, got: %q", got)
	}
	if !strings.Contains(got, "質問") {
		t.Errorf("text content should be kept, got: %q", got)
	}
}
