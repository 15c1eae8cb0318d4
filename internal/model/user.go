// Package model はドメインモデルを定義する。
package model

import "time"

// User は掲示板の利用ユーザーを表す。
// PasswordHashはbcryptでハッシュ化された値のみを保持し、平文は一切保持しない。
type User struct {
	ID           string
	Name         string
	PasswordHash string
	// Avatar はアップロードされたアバター画像の相対URL（例: /uploads/avatars/xxx.png）。
	// 未設定の場合は空文字列。
	Avatar    string
	CreatedAt time.Time
}

// PublicUser はAPIレスポンスに含めてよいユーザー情報のサブセット。
// パスワードハッシュを外部に出さないための型。
type PublicUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Public はAPIレスポンス用のユーザー情報を返す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:     u.ID,
		Name:   u.Name,
		Avatar: u.Avatar,
	}
}
