// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/boardman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByName は指定名のユーザーを取得する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.User, error)

	// Create はユーザーを作成する。
	// name一意制約に違反した場合はmodel.ErrCodeDuplicateUserのAPIErrorを返す。
	// 事前チェックとINSERTの間のレースは一意制約で防ぐ。
	Create(ctx context.Context, user *model.User) error
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// ListWithAuthors は全投稿を投稿者情報付きで新しい順に取得する。
	ListWithAuthors(ctx context.Context) ([]model.PostWithAuthor, error)

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// DeleteByIDAndOwner は指定IDかつ指定所有者の投稿を1文の条件付きDELETEで削除し、
	// 削除された行数を返す。所有権チェックと削除を分離しないことで、
	// 並行削除リクエスト間のcheck-then-actレースを排除する。
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (int64, error)
}
