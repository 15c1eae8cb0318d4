package security

import "testing"

// プレーンテキストがそのまま通過することを検証
func TestMessageSanitizer_PlainText_Unchanged(t *testing.T) {
	s := NewMessageSanitizer()

	got := s.Sanitize("hello board")
	if got != "hello board" {
		t.Errorf("Sanitize() = %q, want %q", got, "hello board")
	}
}

// scriptタグが除去されることを検証
func TestMessageSanitizer_ScriptTag_Removed(t *testing.T) {
	s := NewMessageSanitizer()

	got := s.Sanitize(`hi <script>alert("xss")</script>there`)
	if got != "hi there" {
		t.Errorf("Sanitize() = %q, want %q", got, "hi there")
	}
}

// 全てのHTMLタグが除去されることを検証（プレーンテキスト掲示板のため）
func TestMessageSanitizer_AllTags_Removed(t *testing.T) {
	s := NewMessageSanitizer()

	got := s.Sanitize(`<b>bold</b> and <a href="https://example.com">link</a>`)
	if got != "bold and link" {
		t.Errorf("Sanitize() = %q, want %q", got, "bold and link")
	}
}

// 前後の空白が取り除かれることを検証
func TestMessageSanitizer_TrimsWhitespace(t *testing.T) {
	s := NewMessageSanitizer()

	got := s.Sanitize("  hello  ")
	if got != "hello" {
		t.Errorf("Sanitize() = %q, want %q", got, "hello")
	}
}

// 空入力に空文字列を返すことを検証
func TestMessageSanitizer_Empty_ReturnsEmpty(t *testing.T) {
	s := NewMessageSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

// タグのみの入力が空文字列になることを検証
func TestMessageSanitizer_TagsOnly_ReturnsEmpty(t *testing.T) {
	s := NewMessageSanitizer()

	if got := s.Sanitize("<img src=x onerror=alert(1)>"); got != "" {
		t.Errorf("Sanitize() = %q, want empty", got)
	}
}

// 同一入力に対して冪等であることを検証
func TestMessageSanitizer_Idempotent(t *testing.T) {
	s := NewMessageSanitizer()

	input := `msg <b>with</b> tags`
	first := s.Sanitize(input)
	second := s.Sanitize(first)
	if first != second {
		t.Errorf("Sanitize should be idempotent: %q vs %q", first, second)
	}
}
