// Package post は投稿管理のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
)

// maxMessageLength は投稿メッセージの最大文字数。
const maxMessageLength = 1000

// Sanitizer は投稿メッセージのサニタイズインターフェース。
// security.MessageSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder は投稿イベントのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordPostCreated()
	RecordPostDeleted()
}

// Service は投稿管理のサービス層。
type Service struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	sanitizer Sanitizer
	metrics   MetricsRecorder // nil許容
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	posts repository.PostRepository,
	users repository.UserRepository,
	sanitizer Sanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		posts:     posts,
		users:     users,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// List は全投稿を投稿者情報付きで新しい順に返す。
func (s *Service) List(ctx context.Context) ([]model.PostWithAuthor, error) {
	posts, err := s.posts.ListWithAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// Create は認証済みユーザーの投稿を作成し、投稿者情報付きで返す。
// メッセージはサニタイズ後に空でないこと、最大文字数以内であることを検証する。
func (s *Service) Create(ctx context.Context, userID, message string) (*model.PostWithAuthor, error) {
	cleaned := s.sanitizer.Sanitize(message)
	if cleaned == "" {
		return nil, model.NewValidationError("メッセージは必須です")
	}
	if len([]rune(cleaned)) > maxMessageLength {
		return nil, model.NewValidationError(fmt.Sprintf("メッセージは%d文字以内で入力してください", maxMessageLength))
	}

	// 投稿者の存在確認（レスポンスの投稿者情報にも使用する）
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	p := &model.Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   cleaned,
		CreatedAt: time.Now(),
	}

	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPostCreated()
	}

	slog.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("user_id", userID),
	)

	return &model.PostWithAuthor{Post: *p, Author: user.Public()}, nil
}

// Delete は投稿を所有者本人に限って削除する。
//
// 削除は「IDと所有者の一致」を条件とする1文のDELETEで行い、
// 判定と削除の間のレースを排除する。0行だった場合のみ再取得して
// 404（存在しない）と403（所有者でない）を区別する。
// 所有権は毎回DBの現在値で評価し、リクエスト間でキャッシュしない。
func (s *Service) Delete(ctx context.Context, userID, postID string) error {
	affected, err := s.posts.DeleteByIDAndOwner(ctx, postID, userID)
	if err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	if affected == 0 {
		existing, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			return fmt.Errorf("投稿の取得に失敗しました: %w", err)
		}
		if existing == nil {
			return model.NewPostNotFoundError(postID)
		}
		return model.NewForbiddenError()
	}

	if s.metrics != nil {
		s.metrics.RecordPostDeleted()
	}

	slog.Info("post deleted",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
	)

	return nil
}
