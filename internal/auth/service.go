package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
)

// maxNameLength はユーザー名の最大文字数。
const maxNameLength = 50

// AvatarStore はアバター画像の保存インターフェース。
// upload.AvatarStoreの部分集合として定義する。
type AvatarStore interface {
	// Save は画像を検証して保存し、相対URLを返す。
	Save(file multipart.File, header *multipart.FileHeader) (string, error)
	// Remove は保存済み画像を削除する。
	Remove(relPath string) error
}

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordRegistration()
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordCaptchaFailure()
}

// AuthResult は登録・ログイン成功時のレスポンスデータ。
type AuthResult struct {
	Token string
	User  model.PublicUser
}

// RegisterInput は登録リクエストの入力。
// Avatarはnilのままでもよい（アバターは任意）。
type RegisterInput struct {
	Name         string
	Password     string
	Avatar       multipart.File
	AvatarHeader *multipart.FileHeader
}

// Service は登録・ログインのサービス層。
type Service struct {
	users   repository.UserRepository
	hasher  PasswordHasher
	tokens  *TokenManager
	captcha CaptchaVerifier // nilの場合はCAPTCHA検証を行わない
	avatars AvatarStore
	metrics MetricsRecorder // nil許容
}

// NewService はServiceの新しいインスタンスを生成する。
// captchaがnilの場合、ログイン時のCAPTCHA検証は無効になる。
func NewService(
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens *TokenManager,
	captcha CaptchaVerifier,
	avatars AvatarStore,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		captcha: captcha,
		avatars: avatars,
		metrics: metrics,
	}
}

// Register は新規ユーザーを登録し、識別トークンを発行する。
//
// アバターの検証・保存はアカウント作成より前に行い、
// 拒否された場合はアカウントを作成しない。
// 逆にアカウント作成が失敗した場合は保存済みアバターを削除する
// （孤児ファイルを残さない）。
//
// ユーザー名の一意性は事前チェックとDBの一意制約の2層で保証する。
// 事前チェックとINSERTの間のレースはCreate側の制約違反検出が防ぐ。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := validateCredentials(input.Name, input.Password); err != nil {
		return nil, err
	}

	// 同名ユーザーの事前チェック
	existing, err := s.users.FindByName(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUserError()
	}

	// アバターの検証と保存（拒否時はここで中断し、アカウントは作成されない）
	avatarPath := ""
	if input.Avatar != nil {
		avatarPath, err = s.avatars.Save(input.Avatar, input.AvatarHeader)
		if err != nil {
			return nil, err
		}
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.cleanupAvatar(avatarPath)
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		PasswordHash: passwordHash,
		Avatar:       avatarPath,
		CreatedAt:    time.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.cleanupAvatar(avatarPath)
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
	)

	return &AuthResult{Token: token, User: user.Public()}, nil
}

// Login は資格情報を検証し、識別トークンを発行する。
// CAPTCHA検証が有効な場合、資格情報の確認より先にCAPTCHAトークンを検証する。
// ユーザー名不明とパスワード不一致は同一のエラーを返す。
func (s *Service) Login(ctx context.Context, name, password, captchaToken, remoteIP string) (*AuthResult, error) {
	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, captchaToken, remoteIP); err != nil {
			if s.metrics != nil {
				s.metrics.RecordCaptchaFailure()
			}
			return nil, err
		}
	}

	if err := validateCredentials(name, password); err != nil {
		return nil, err
	}

	user, err := s.users.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return &AuthResult{Token: token, User: user.Public()}, nil
}

// validateCredentials はユーザー名とパスワードの形式を検証する。
func validateCredentials(name, password string) error {
	if name == "" || password == "" {
		return model.NewValidationError("ユーザー名とパスワードは必須です")
	}
	if len(name) > maxNameLength {
		return model.NewValidationError(fmt.Sprintf("ユーザー名は%d文字以内で指定してください", maxNameLength))
	}
	if len(password) > maxPasswordBytes {
		return model.NewValidationError(fmt.Sprintf("パスワードは%dバイト以内で指定してください", maxPasswordBytes))
	}
	return nil
}

// cleanupAvatar はアカウント作成失敗時に保存済みアバターを削除する。
// 削除失敗は後続処理に影響しないためログのみ残す。
func (s *Service) cleanupAvatar(relPath string) {
	if relPath == "" {
		return
	}
	if err := s.avatars.Remove(relPath); err != nil {
		slog.Warn("failed to remove orphan avatar",
			slog.String("path", relPath),
			slog.String("error", err.Error()),
		)
	}
}
