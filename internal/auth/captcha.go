package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/boardman/internal/model"
)

// recaptchaEndpoint はreCAPTCHA検証APIのエンドポイント。
const recaptchaEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// CaptchaVerifier はログイン時の人間性検証トークンを確認するインターフェース。
type CaptchaVerifier interface {
	// Verify はクライアントから送られたCAPTCHAトークンを検証する。
	// トークン未指定はCAPTCHA_REQUIRED、検証失敗はCAPTCHA_FAILEDの
	// APIErrorを返す。
	Verify(ctx context.Context, token, remoteIP string) error
}

// RecaptchaVerifier はGoogle reCAPTCHAのsiteverify APIを使用した実装。
type RecaptchaVerifier struct {
	httpClient *http.Client
	logger     *slog.Logger
	secret     string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewRecaptchaVerifier はRecaptchaVerifierを生成する。
func NewRecaptchaVerifier(httpClient *http.Client, logger *slog.Logger, secret string) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		httpClient: httpClient,
		logger:     logger,
		secret:     secret,
		endpoint:   recaptchaEndpoint,
	}
}

// siteverifyResponse はreCAPTCHA検証APIのレスポンス。
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify はreCAPTCHAトークンをsiteverify APIで検証する。
// 資格情報の確認より前に呼び出されることを想定している。
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return model.NewCaptchaRequiredError()
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Error("CAPTCHA検証APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Error("CAPTCHA検証APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode siteverify response: %w", err)
	}

	if !result.Success {
		v.logger.Warn("CAPTCHA検証に失敗しました",
			slog.Any("error_codes", result.ErrorCodes),
		)
		return model.NewCaptchaFailedError()
	}

	return nil
}

// compile-time interface check
var _ CaptchaVerifier = (*RecaptchaVerifier)(nil)
