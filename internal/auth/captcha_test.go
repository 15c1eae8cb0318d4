package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/boardman/internal/model"
)

func newTestVerifier(t *testing.T, handler http.HandlerFunc) *RecaptchaVerifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	v := NewRecaptchaVerifier(server.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)), "test-secret")
	v.endpoint = server.URL
	return v
}

// トークン未指定でCAPTCHA_REQUIREDが返ることを検証（外部APIは呼ばれない）
func TestRecaptchaVerifier_EmptyToken_ReturnsCaptchaRequired(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("siteverify should not be called for an empty token")
	})

	err := v.Verify(context.Background(), "", "203.0.113.1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCaptchaRequired {
		t.Errorf("error = %v, want CAPTCHA_REQUIRED", err)
	}
}

// 検証成功時にnilが返ることを検証
func TestRecaptchaVerifier_Success(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("secret") != "test-secret" {
			t.Errorf("secret = %q, want test-secret", r.PostForm.Get("secret"))
		}
		if r.PostForm.Get("response") != "client-token" {
			t.Errorf("response = %q, want client-token", r.PostForm.Get("response"))
		}
		if r.PostForm.Get("remoteip") != "203.0.113.1" {
			t.Errorf("remoteip = %q, want 203.0.113.1", r.PostForm.Get("remoteip"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	})

	if err := v.Verify(context.Background(), "client-token", "203.0.113.1"); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

// 検証失敗時にCAPTCHA_FAILEDが返ることを検証
func TestRecaptchaVerifier_Failure_ReturnsCaptchaFailed(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	})

	err := v.Verify(context.Background(), "bad-token", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCaptchaFailed {
		t.Errorf("error = %v, want CAPTCHA_FAILED", err)
	}
}

// 外部APIのエラーステータスが内部エラーとして返ることを検証
// （CAPTCHA_FAILEDとは区別され、呼び出し元で500にマップされる）
func TestRecaptchaVerifier_UpstreamError_ReturnsError(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := v.Verify(context.Background(), "client-token", "")
	if err == nil {
		t.Fatal("Verify should fail for an upstream error")
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("upstream errors should not be APIErrors, got %v", apiErr)
	}
}
