// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeDuplicateUser   = "DUPLICATE_USER"
	ErrCodeInvalidCreds    = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInvalidCSRF     = "INVALID_CSRF_TOKEN"
	ErrCodeCaptchaRequired = "CAPTCHA_REQUIRED"
	ErrCodeCaptchaFailed   = "CAPTCHA_FAILED"
	ErrCodePostNotFound    = "POST_NOT_FOUND"
	ErrCodeAvatarTooLarge  = "AVATAR_TOO_LARGE"
	ErrCodeBadAvatarType   = "UNSUPPORTED_AVATAR_TYPE"
	ErrCodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewValidationError は入力不備エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewDuplicateUserError は同名ユーザーが既に存在する場合のエラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "このユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー名不明とパスワード不一致で同一のメッセージを返し、
// ユーザー列挙の手がかりを与えない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCreds,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "自分の投稿に対してのみ実行できます。",
	}
}

// NewInvalidCSRFTokenError はCSRFトークン検証失敗エラーを生成する。
func NewInvalidCSRFTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCSRF,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewCaptchaRequiredError はCAPTCHAトークン未指定エラーを生成する。
func NewCaptchaRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeCaptchaRequired,
		Message:  "CAPTCHA認証が必要です。",
		Category: "auth",
		Action:   "CAPTCHAチェックを完了してから再度お試しください。",
	}
}

// NewCaptchaFailedError はCAPTCHA検証失敗エラーを生成する。
func NewCaptchaFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCaptchaFailed,
		Message:  "CAPTCHA認証に失敗しました。",
		Category: "auth",
		Action:   "CAPTCHAチェックをやり直してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "post",
		Action:   "投稿が既に削除されていないか確認してください。",
	}
}

// NewAvatarTooLargeError はアバター画像のサイズ超過エラーを生成する。
func NewAvatarTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeAvatarTooLarge,
		Message:  fmt.Sprintf("アバター画像のサイズが上限（%dバイト）を超えています。", maxBytes),
		Category: "validation",
		Action:   "5MB以下の画像を指定してください。",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimit,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewBadAvatarTypeError はアバター画像の形式不正エラーを生成する。
func NewBadAvatarTypeError(detected string) *APIError {
	return &APIError{
		Code:     ErrCodeBadAvatarType,
		Message:  fmt.Sprintf("サポートされていない画像形式です: %s", detected),
		Category: "validation",
		Action:   "JPEGまたはPNG形式の画像を指定してください。",
	}
}
