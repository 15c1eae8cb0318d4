// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/boardman/internal/auth"
	"github.com/hitoshi/boardman/internal/middleware"
	"github.com/hitoshi/boardman/internal/model"
)

// avatarFormField はマルチパートフォームでアバター画像を格納するフィールド名。
const avatarFormField = "avatar"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, input auth.RegisterInput) (*auth.AuthResult, error)
	Login(ctx context.Context, name, password, captchaToken, remoteIP string) (*auth.AuthResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// MaxUploadSize はマルチパートリクエストボディ全体の上限（バイト）。
	// アバター上限より少し大きめにとり、テキストフィールド分を許容する。
	MaxUploadSize int64
}

// AuthHandler は登録・ログインのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// authResponse は登録・ログイン成功時のレスポンス。
type authResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// Register は新規ユーザーを登録する。
// POST /api/auth/register (multipart/form-data: name, password, avatar?)
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// ボディ全体のサイズを制限してからパースする
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)

	if err := r.ParseMultipartForm(h.config.MaxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			middleware.WriteAPIError(w, model.NewAvatarTooLargeError(maxBytesErr.Limit))
			return
		}
		middleware.WriteAPIError(w, model.NewValidationError("multipart/form-data形式で送信してください"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}()

	input := auth.RegisterInput{
		Name:     r.FormValue("name"),
		Password: r.FormValue("password"),
	}

	// アバターは任意
	file, header, err := r.FormFile(avatarFormField)
	switch {
	case err == nil:
		defer file.Close()
		input.Avatar = file
		input.AvatarHeader = header
	case errors.Is(err, http.ErrMissingFile):
		// アバターなしで登録
	default:
		middleware.WriteAPIError(w, model.NewValidationError("アバター画像の読み取りに失敗しました"))
		return
	}

	result, err := h.service.Register(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: result.Token,
		User:  result.User,
	})
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Name         string `json:"name"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
}

// Login は認証情報を検証し、識別トークンを発行する。
// POST /api/auth/login (application/json)
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディのJSONが不正です"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Name, req.Password, req.CaptchaToken, middleware.ClientIP(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: result.Token,
		User:  result.User,
	})
}

// --- ヘルパー関数 ---

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response body", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーは詳細をログにのみ残し、クライアントには汎用エラーを返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
