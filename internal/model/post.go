package model

import "time"

// Post は掲示板への投稿を表す。
// 投稿は作成後に編集されない（削除のみ可能）。
type Post struct {
	ID        string
	UserID    string
	Message   string
	CreatedAt time.Time
}

// PostWithAuthor は投稿と投稿者情報を結合した構造体。
// GET /api/posts のレスポンスに使用する。
type PostWithAuthor struct {
	Post
	Author PublicUser
}
