// Package auth は認証のドメインロジックを提供する。
// パスワードハッシュ、識別トークンの発行・検証、CAPTCHA検証、
// 登録・ログインのサービス層を含む。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes はbcryptが処理できるパスワードの最大バイト数。
const maxPasswordBytes = 72

// PasswordHasher はパスワードの一方向ハッシュ化と検証のインターフェース。
type PasswordHasher interface {
	// Hash は平文パスワードをソルト付きでハッシュ化する。
	// 出力にはソルトが埋め込まれ、同一入力でも毎回異なる値になる。
	Hash(plain string) (string, error)

	// Verify は平文パスワードがハッシュと一致するかを返す。
	Verify(plain, hash string) bool
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
// 適応型・ソルト付きの低速ハッシュであり、可逆暗号や
// ソルトなし高速ハッシュは使用しない。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はデフォルトコストのBcryptHasherを生成する。
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

// Hash は平文パスワードをbcryptでハッシュ化する。
func (h *BcryptHasher) Hash(plain string) (string, error) {
	if len(plain) > maxPasswordBytes {
		return "", fmt.Errorf("password exceeds %d bytes", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashed), nil
}

// Verify は平文パスワードがハッシュと一致するかを返す。
func (h *BcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// compile-time interface check
var _ PasswordHasher = (*BcryptHasher)(nil)
